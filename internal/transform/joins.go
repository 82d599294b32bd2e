package transform

import (
	"context"
	"fmt"

	"gamcsv/internal/csvio"
	"gamcsv/internal/indexed"
	"gamcsv/internal/logging"
	"gamcsv/internal/lookup"
)

// AddOrgUnitOptions adds each user's org unit to a data file keyed by email.
type AddOrgUnitOptions struct {
	DataEmailColumn string
	UserEmailColumn string
	OrgUnitColumn   string
	Unknown         string
	FoldCase        bool
}

// DefaultAddOrgUnit returns the options matching a standard user export.
func DefaultAddOrgUnit() AddOrgUnitOptions {
	return AddOrgUnitOptions{
		DataEmailColumn: "email",
		UserEmailColumn: "primaryEmail",
		OrgUnitColumn:   "orgUnitPath",
		Unknown:         "Unknown",
	}
}

func keyFunc(fold bool) lookup.KeyFunc {
	if fold {
		return lookup.Fold
	}
	return lookup.Exact
}

// Run writes dataName to outName with OrgUnitColumn inserted right after the
// email column. Users missing from usersName get Unknown.
func (o AddOrgUnitOptions) Run(ctx context.Context, env *Env, dataName, usersName, outName string) (res Result, err error) {
	data, err := env.OpenCSV(dataName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, data)
	if err := data.Require(o.DataEmailColumn); err != nil {
		return res, err
	}

	idx, err := env.newIndex(ctx)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, idx)

	users, err := env.OpenCSV(usersName)
	if err != nil {
		return res, err
	}
	n, err := lookup.Load(ctx, idx, users.Reader, o.UserEmailColumn, o.OrgUnitColumn, keyFunc(o.FoldCase))
	if cerr := users.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return res, err
	}
	logging.FromContext(ctx).Debug("org units indexed", "file", users.Name(), "rows", n, "keys", idx.Len())

	out, err := env.CreateCSV(outName, csvio.InsertAfter(data.Header(), o.DataEmailColumn, o.OrgUnitColumn))
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	kf := keyFunc(o.FoldCase)
	err = data.ForEach(ctx, func(row indexed.FlatRow) error {
		ou, ok, err := idx.Get(ctx, kf(row[o.DataEmailColumn]))
		if err != nil {
			return err
		}
		if !ok {
			ou = o.Unknown
		}
		row[o.OrgUnitColumn] = ou
		return out.WriteRow(row)
	})

	res.RowsIn, res.RowsOut = data.Rows(), out.Rows()
	return res, err
}

// AddCrosIDOptions adds ChromeOS device ids to a data file keyed by serial
// number. Serial numbers compare case-insensitively.
type AddCrosIDOptions struct {
	MapSerialColumn  string
	MapDeviceColumn  string
	DataSerialColumn string
}

// DefaultAddCrosID returns the options matching a standard device export.
func DefaultAddCrosID() AddCrosIDOptions {
	return AddCrosIDOptions{
		MapSerialColumn:  "serialNumber",
		MapDeviceColumn:  "deviceId",
		DataSerialColumn: "serialNumber",
	}
}

// Run writes dataName to outName with the device id column after the serial
// column. Unknown serial numbers are reported and their rows written without
// a device id.
func (o AddCrosIDOptions) Run(ctx context.Context, env *Env, mapName, dataName, outName string) (res Result, err error) {
	data, err := env.OpenCSV(dataName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, data)
	if err := data.Require(o.DataSerialColumn); err != nil {
		return res, err
	}

	idx, err := env.newIndex(ctx)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, idx)

	m, err := env.OpenCSV(mapName)
	if err != nil {
		return res, err
	}
	_, err = lookup.Load(ctx, idx, m.Reader, o.MapSerialColumn, o.MapDeviceColumn, lookup.Upper)
	if cerr := m.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, csvio.InsertAfter(data.Header(), o.DataSerialColumn, o.MapDeviceColumn))
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	report := env.NewReport(ctx)
	err = data.ForEach(ctx, func(row indexed.FlatRow) error {
		sn := row[o.DataSerialColumn]
		id, ok, err := idx.Get(ctx, lookup.Upper(sn))
		if err != nil {
			return err
		}
		if ok && id != "" {
			row[o.MapDeviceColumn] = id
		} else {
			report.Unmatched("Error: Serial number %s is not in Serial Number/DeviceID file %s", sn, m.Name())
		}
		return out.WriteRow(row)
	})

	res.RowsIn, res.RowsOut, res.Unmatched = data.Rows(), out.Rows(), report.Count()
	return res, err
}

// MergeUserDataOptions joins the rows of a merge file onto a data file.
//
// In merge mode (the default) the merge file drives: each merge row is
// joined to the data row with the same key and the output is sorted by key.
// In Append mode the data file drives: its rows keep file order and gain the
// fields of the matching merge row.
type MergeUserDataOptions struct {
	DataKey  string
	MergeKey string

	LowercaseKeys  bool
	RetainMergeKey bool

	// RetainFields lists the merge file columns copied; empty means all.
	RetainFields []string

	// OutputUnmerged also writes data rows without a merge row.
	OutputUnmerged bool

	Append bool

	// Suffix renames merge columns that collide with data columns.
	Suffix string
}

// DefaultMergeUserData returns the merge-mode defaults.
func DefaultMergeUserData() MergeUserDataOptions {
	return MergeUserDataOptions{
		DataKey:       "primaryEmail",
		MergeKey:      "User",
		LowercaseKeys: true,
		Suffix:        ".merge",
	}
}

func (o MergeUserDataOptions) key(v string) string {
	if o.LowercaseKeys {
		return lookup.Lower(v)
	}
	return v
}

// mergeColumns maps each copied merge column to its output name.
func (o MergeUserDataOptions) mergeColumns(file string, dataHeader, mergeHeader []string) ([]string, map[string]string, error) {
	retain := o.RetainFields
	if len(retain) == 0 {
		retain = mergeHeader
	} else if err := csvio.Require(file, mergeHeader, retain...); err != nil {
		return nil, nil, err
	}
	inData := stringSet(dataHeader)
	var cols []string
	mapped := map[string]string{}
	for _, f := range retain {
		if f == o.MergeKey && !o.RetainMergeKey {
			continue
		}
		name := f
		if contains(inData, f) {
			name = f + o.Suffix
		}
		cols = append(cols, f)
		mapped[f] = name
	}
	return cols, mapped, nil
}

// Run joins mergeName onto dataName and writes outName. Keys found on only
// one side are reported.
func (o MergeUserDataOptions) Run(ctx context.Context, env *Env, dataName, mergeName, outName string) (res Result, err error) {
	if o.Suffix == "" {
		return res, Usagef("merge-user-data: collision suffix must not be empty")
	}
	data, err := env.OpenCSV(dataName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, data)
	if err := data.Require(o.DataKey); err != nil {
		return res, err
	}

	merge, err := env.OpenCSV(mergeName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, merge)
	if err := merge.Require(o.MergeKey); err != nil {
		return res, err
	}

	cols, mapped, err := o.mergeColumns(merge.Name(), data.Header(), merge.Header())
	if err != nil {
		return res, err
	}
	header := append([]string(nil), data.Header()...)
	for _, c := range cols {
		header = append(header, mapped[c])
	}

	idx, err := env.newIndex(ctx)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, idx)
	rows := lookup.Rows{Index: idx}

	out, err := env.CreateCSV(outName, header)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	report := env.NewReport(ctx)
	apply := func(dst, src indexed.FlatRow) {
		for _, c := range cols {
			dst[mapped[c]] = src[c]
		}
	}

	if o.Append {
		err = o.runAppend(ctx, data.Reader, merge.Reader, rows, out, report, apply)
	} else {
		err = o.runMerge(ctx, data.Reader, merge.Reader, rows, out, report, apply)
	}
	res.RowsIn = data.Rows() + merge.Rows()
	res.RowsOut, res.Unmatched = out.Rows(), report.Count()
	return res, err
}

func (o MergeUserDataOptions) runMerge(ctx context.Context, data, merge *csvio.Reader, rows lookup.Rows, out *Output,
	report *Report, apply func(dst, src indexed.FlatRow)) error {
	err := data.ForEach(ctx, func(row indexed.FlatRow) error {
		k := o.key(row[o.DataKey])
		row[o.DataKey] = k
		return rows.Put(ctx, k, row)
	})
	if err != nil {
		return err
	}

	merged := map[string]indexed.FlatRow{}
	err = merge.ForEach(ctx, func(row indexed.FlatRow) error {
		k := o.key(row[o.MergeKey])
		orow, ok, err := rows.Get(ctx, k)
		if err != nil {
			return err
		}
		if _, done := merged[k]; !ok || done {
			report.Unmatched("Merge key field %s in %s does not occur in %s", k, merge.Name(), data.Name())
			return nil
		}
		apply(orow, row)
		merged[k] = orow
		return nil
	})
	if err != nil {
		return err
	}

	if o.OutputUnmerged {
		err = rows.Range(ctx, func(k string, row indexed.FlatRow) error {
			if _, done := merged[k]; !done {
				merged[k] = row
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(merged) {
		if err := out.WriteRow(merged[k]); err != nil {
			return err
		}
	}
	return nil
}

func (o MergeUserDataOptions) runAppend(ctx context.Context, data, merge *csvio.Reader, rows lookup.Rows, out *Output,
	report *Report, apply func(dst, src indexed.FlatRow)) error {
	err := merge.ForEach(ctx, func(row indexed.FlatRow) error {
		return rows.Put(ctx, o.key(row[o.MergeKey]), row)
	})
	if err != nil {
		return err
	}
	return data.ForEach(ctx, func(row indexed.FlatRow) error {
		src, ok, err := rows.Get(ctx, o.key(row[o.DataKey]))
		if err != nil {
			return err
		}
		if !ok {
			report.Unmatched("Data key field %s in %s does not occur in %s", row[o.DataKey], data.Name(), merge.Name())
			if !o.OutputUnmerged {
				return nil
			}
		} else {
			apply(row, src)
		}
		return out.WriteRow(row)
	})
}

// UserGroupCountsOptions counts group memberships per user.
type UserGroupCountsOptions struct {
	UserKey   string
	MemberKey string

	// Threshold keeps users with more than Threshold groups; -1 keeps all.
	Threshold int

	// NoGroups keeps only users without any group, overriding Threshold.
	NoGroups bool
}

// DefaultUserGroupCounts keeps every user.
func DefaultUserGroupCounts() UserGroupCountsOptions {
	return UserGroupCountsOptions{UserKey: "primaryEmail", MemberKey: "email", Threshold: -1}
}

// Run writes the users of usersName with a GroupsCount column inserted at
// position 1, sorted by user key.
func (o UserGroupCountsOptions) Run(ctx context.Context, env *Env, usersName, membersName, outName string) (res Result, err error) {
	users, err := env.OpenCSV(usersName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, users)
	if err := users.Require(o.UserKey); err != nil {
		return res, err
	}

	members, err := env.OpenCSV(membersName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, members)
	if err := members.Require(o.MemberKey); err != nil {
		return res, err
	}

	idx, err := env.newIndex(ctx)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, idx)
	rows := lookup.Rows{Index: idx}

	counts := indexed.NewCounter()
	err = users.ForEach(ctx, func(row indexed.FlatRow) error {
		k := row[o.UserKey]
		counts.Add(k, 0)
		return rows.Put(ctx, k, row)
	})
	if err != nil {
		return res, err
	}
	err = members.ForEach(ctx, func(row indexed.FlatRow) error {
		if k := row[o.MemberKey]; counts.Has(k) {
			counts.Add(k, 1)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, csvio.InsertAt(users.Header(), 1, "GroupsCount"))
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	for _, c := range counts.Counts(indexed.ByKey) {
		if o.NoGroups && c.N != 0 || !o.NoGroups && c.N <= o.Threshold {
			continue
		}
		row, ok, err := rows.Get(ctx, c.Key)
		if err != nil {
			return res, err
		}
		if !ok {
			return res, fmt.Errorf("user %q missing from index", c.Key)
		}
		row["GroupsCount"] = itoa(c.N)
		if err := out.WriteRow(row); err != nil {
			return res, err
		}
	}

	res.RowsIn = users.Rows() + members.Rows()
	res.RowsOut = out.Rows()
	return res, nil
}
