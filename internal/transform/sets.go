package transform

import (
	"context"
	"sort"

	"gamcsv/internal/csvio"
	"gamcsv/internal/indexed"
	"gamcsv/internal/logging"
	"gamcsv/internal/lookup"
)

// NotInOptions writes the rows of a left file whose key is absent from a
// right file.
type NotInOptions struct {
	LeftKey  string
	RightKey string

	// Headerless reads both files without a header row; each file's first
	// column is its key.
	Headerless bool
	FoldCase   bool

	// Sort buffers the result and writes it ordered by key, one row per key.
	Sort bool
}

// DefaultNotIn returns options for a user list against a member list.
func DefaultNotIn() NotInOptions {
	return NotInOptions{LeftKey: "primaryEmail", RightKey: "email"}
}

func (o NotInOptions) open(env *Env, name, key string) (*Input, error) {
	if o.Headerless {
		return env.OpenCSVWith(name, csvio.ReaderOptions{Headerless: true, Columns: []string{key}})
	}
	return env.OpenCSV(name)
}

// Run writes the left rows missing from the right file to outName.
func (o NotInOptions) Run(ctx context.Context, env *Env, leftName, rightName, outName string) (res Result, err error) {
	left, err := o.open(env, leftName, o.LeftKey)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, left)
	if err := left.Require(o.LeftKey); err != nil {
		return res, err
	}

	right, err := o.open(env, rightName, o.RightKey)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, right)

	members, err := env.newIndex(ctx)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, members)

	kf := keyFunc(o.FoldCase)
	if _, err := lookup.LoadSet(ctx, members, right.Reader, o.RightKey, kf); err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, left.Header())
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	var buffered lookup.Rows
	if o.Sort {
		idx, ierr := env.newIndex(ctx)
		if ierr != nil {
			return res, ierr
		}
		defer closeInto(&err, idx)
		buffered = lookup.Rows{Index: idx}
	}

	err = left.ForEach(ctx, func(row indexed.FlatRow) error {
		key := kf(row[o.LeftKey])
		_, found, err := members.Get(ctx, key)
		if err != nil || found {
			return err
		}
		if o.Sort {
			return buffered.Put(ctx, row[o.LeftKey], row)
		}
		return out.WriteRow(row)
	})
	if err == nil && o.Sort {
		err = writeSorted(ctx, buffered, out)
	}

	res.RowsIn = left.Rows() + right.Rows()
	res.RowsOut = out.Rows()
	return res, err
}

// writeSorted writes every row of rows ordered by key.
func writeSorted(ctx context.Context, rows lookup.Rows, out *Output) error {
	var keys []string
	byKey := map[string]indexed.FlatRow{}
	err := rows.Range(ctx, func(k string, row indexed.FlatRow) error {
		keys = append(keys, k)
		byKey[k] = row
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := out.WriteRow(byKey[k]); err != nil {
			return err
		}
	}
	return nil
}

// UserChangesOptions compares two user exports and writes the users added,
// deleted and changed between them.
type UserChangesOptions struct {
	Key         string
	MatchFields []string

	AddFile    string
	DeleteFile string
	UpdateFile string
}

// DefaultUserChanges returns the options matching a standard user export.
func DefaultUserChanges() UserChangesOptions {
	return UserChangesOptions{
		Key:         "primaryEmail",
		MatchFields: []string{"name.givenName", "name.familyName", "password", "orgUnitPath"},
		AddFile:     "AddUsers.csv",
		DeleteFile:  "DeleteUsers.csv",
		UpdateFile:  "UpdateUsers.csv",
	}
}

// userSnapshot is one export indexed by key.
type userSnapshot struct {
	header []string
	rows   lookup.Rows
	keys   map[string]struct{}
	n      int
}

func (o UserChangesOptions) load(ctx context.Context, env *Env, name string) (s *userSnapshot, err error) {
	in, err := env.OpenCSV(name)
	if err != nil {
		return nil, err
	}
	defer closeInto(&err, in)
	if err := in.Require(append([]string{o.Key}, o.MatchFields...)...); err != nil {
		return nil, err
	}

	idx, err := env.newIndex(ctx)
	if err != nil {
		return nil, err
	}
	s = &userSnapshot{header: in.Header(), rows: lookup.Rows{Index: idx}, keys: map[string]struct{}{}}
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		k := row[o.Key]
		s.keys[k] = struct{}{}
		return s.rows.Put(ctx, k, row)
	})
	s.n = in.Rows()
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	return s, nil
}

// Run writes AddFile (in curr only), DeleteFile (in prev only) and
// UpdateFile (in both, some MatchFields differ), each sorted by key.
func (o UserChangesOptions) Run(ctx context.Context, env *Env, prevName, currName string) (res Result, err error) {
	std := 0
	for _, name := range []string{o.AddFile, o.DeleteFile, o.UpdateFile} {
		if csvio.IsStd(name) {
			std++
		}
	}
	if std > 1 {
		return res, Usagef("user-changes: at most one of the add, delete and update outputs may be stdout")
	}

	prev, err := o.load(ctx, env, prevName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, prev.rows.Index)
	curr, err := o.load(ctx, env, currName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, curr.rows.Index)
	res.RowsIn = prev.n + curr.n

	var added, deleted, updated []string
	for _, k := range sortedKeys(curr.keys) {
		if !contains(prev.keys, k) {
			added = append(added, k)
			continue
		}
		p, _, err := prev.rows.Get(ctx, k)
		if err != nil {
			return res, err
		}
		c, _, err := curr.rows.Get(ctx, k)
		if err != nil {
			return res, err
		}
		for _, f := range o.MatchFields {
			if p[f] != c[f] {
				updated = append(updated, k)
				break
			}
		}
	}
	for _, k := range sortedKeys(prev.keys) {
		if !contains(curr.keys, k) {
			deleted = append(deleted, k)
		}
	}

	outputs := []struct {
		name   string
		header []string
		keys   []string
		from   lookup.Rows
	}{
		{o.AddFile, curr.header, added, curr.rows},
		{o.DeleteFile, prev.header, deleted, prev.rows},
		{o.UpdateFile, curr.header, updated, curr.rows},
	}
	for _, spec := range outputs {
		n, err := writeKeyed(ctx, env, spec.name, spec.header, spec.keys, spec.from)
		res.RowsOut += n
		if err != nil {
			return res, err
		}
	}
	logging.FromContext(ctx).Info("user changes", "added", len(added), "deleted", len(deleted), "updated", len(updated))
	return res, nil
}

func writeKeyed(ctx context.Context, env *Env, name string, header, keys []string, rows lookup.Rows) (n int, err error) {
	out, err := env.CreateCSV(name, header)
	if err != nil {
		return 0, err
	}
	defer closeInto(&err, out)
	for _, k := range keys {
		row, _, err := rows.Get(ctx, k)
		if err != nil {
			return out.Rows(), err
		}
		if err := out.WriteRow(row); err != nil {
			return out.Rows(), err
		}
	}
	return out.Rows(), nil
}
