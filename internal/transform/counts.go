package transform

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gamcsv/internal/csvio"
	"gamcsv/internal/indexed"
)

// writeCounts writes a two-column count table.
func writeCounts(env *Env, outName, keyCol, countCol string, counts []indexed.Count) (n int, err error) {
	out, err := env.CreateCSV(outName, []string{keyCol, countCol})
	if err != nil {
		return 0, err
	}
	defer closeInto(&err, out)
	for _, c := range counts {
		if err := out.WriteRow(indexed.FlatRow{keyCol: c.Key, countCol: itoa(c.N)}); err != nil {
			return out.Rows(), err
		}
	}
	return out.Rows(), nil
}

// CountValuesOptions counts the distinct values of one column, or of one
// subfield across a repeated group when Prefix is set.
type CountValuesOptions struct {
	Key      string
	Prefix   string
	MinCount int
	ByCount  bool
}

// Run writes Key,Count to outName.
func (o CountValuesOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	if o.Key == "" {
		return res, Usagef("count-values: --key is required")
	}
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)

	counter := indexed.NewCounter()
	if o.Prefix == "" {
		if err := in.Require(o.Key); err != nil {
			return res, err
		}
		err = in.ForEach(ctx, func(row indexed.FlatRow) error {
			counter.Add(row[o.Key], 1)
			return nil
		})
	} else {
		plan := indexed.NewPlan(in.Header(), o.Prefix)
		if !contains(stringSet(plan.Subfields()), o.Key) {
			return res, &csvio.MissingColumnError{File: in.Name(), Column: o.Prefix + ".N." + o.Key, Header: in.Header()}
		}
		key := func(r indexed.Record) string { return r.Get(o.Key) }
		err = in.ForEach(ctx, func(row indexed.FlatRow) error {
			records := indexed.Filter(plan.Decode(row), indexed.NotBlank())
			for _, c := range indexed.Aggregate(records, key, nil).Counts(indexed.ByKey) {
				counter.Add(c.Key, c.N)
			}
			return nil
		})
	}
	res.RowsIn = in.Rows()
	if err != nil {
		return res, err
	}

	order := indexed.ByKey
	if o.ByCount {
		order = indexed.ByCountDesc
	}
	var counts []indexed.Count
	for _, c := range counter.Counts(order) {
		if c.N >= o.MinCount {
			counts = append(counts, c)
		}
	}
	res.RowsOut, err = writeCounts(env, outName, "Key", "Count", counts)
	return res, err
}

// fromAddress matches "Display Name <addr>".
var fromAddress = regexp.MustCompile(`^.+<(.+)>$`)

// CountFromsOptions counts messages per sender address.
type CountFromsOptions struct {
	Column string
	// Limit shows only the first Limit senders; 0 shows all.
	Limit int
}

// Run writes From,Count ordered by count descending.
func (o CountFromsOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	if o.Limit < 0 {
		return res, Usagef("count-froms: --limit must not be negative")
	}
	col := o.Column
	if col == "" {
		col = "From"
	}
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require(col); err != nil {
		return res, err
	}

	counter := indexed.NewCounter()
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		addr := row[col]
		if m := fromAddress.FindStringSubmatch(addr); m != nil {
			addr = m[1]
		}
		counter.Add(strings.ToLower(addr), 1)
		return nil
	})
	res.RowsIn = in.Rows()
	if err != nil {
		return res, err
	}

	counts := counter.Counts(indexed.ByCountDesc)
	if o.Limit > 0 && len(counts) > o.Limit {
		counts = counts[:o.Limit]
	}
	res.RowsOut, err = writeCounts(env, outName, "From", "Count", counts)
	return res, err
}

// CountGroupsByDomain writes Domain,Groups for a group list, taking the
// address from the email column, else Email.
func CountGroupsByDomain(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := csvio.RequireAny(in.Name(), in.Header(), "email", "Email"); err != nil {
		return res, err
	}

	counter := indexed.NewCounter()
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		if email := csvio.Get(row, []string{"email", "Email"}, ""); email != "" {
			counter.Add(emailDomain(email), 1)
		}
		return nil
	})
	res.RowsIn = in.Rows()
	if err != nil {
		return res, err
	}
	res.RowsOut, err = writeCounts(env, outName, "Domain", "Groups", counter.Counts(indexed.ByKey))
	return res, err
}

var memberTypes = []string{"CUSTOMER", "GROUP", "USER", "UNKNOWN"}

// GroupTypeCounts writes group,CUSTOMER,GROUP,USER,UNKNOWN member counts
// for a group membership list.
func GroupTypeCounts(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require("group"); err != nil {
		return res, err
	}

	known := stringSet(memberTypes[:3])
	groups := map[string]map[string]int{}
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		g := groups[row["group"]]
		if g == nil {
			g = map[string]int{}
			groups[row["group"]] = g
		}
		t := row["type"]
		if !contains(known, t) {
			t = "UNKNOWN"
		}
		g[t]++
		return nil
	})
	res.RowsIn = in.Rows()
	if err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, append([]string{"group"}, memberTypes...))
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)
	for _, name := range sortedKeys(groups) {
		row := indexed.FlatRow{"group": name}
		for _, t := range memberTypes {
			row[t] = itoa(groups[name][t])
		}
		if err := out.WriteRow(row); err != nil {
			return res, err
		}
	}
	res.RowsOut = out.Rows()
	return res, nil
}

// OUUserCountsOptions counts users per org unit.
type OUUserCountsOptions struct {
	NoSuspended bool
	NoReasons   bool
	NoTotals    bool
}

type ouCounts struct {
	users, active, suspended int
	reasons                  map[string]int
}

func newOUCounts() *ouCounts { return &ouCounts{reasons: map[string]int{}} }

// Run writes orgUnitPath,users[,active,suspended[,suspensionReason.*]] for
// every org unit of orgUnitsName plus any seen only in usersName, sorted by
// path, followed by a Totals row.
func (o OUUserCountsOptions) Run(ctx context.Context, env *Env, orgUnitsName, usersName, outName string) (res Result, err error) {
	ous, err := env.OpenCSV(orgUnitsName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, ous)
	if err := ous.Require("orgUnitPath"); err != nil {
		return res, err
	}
	users, err := env.OpenCSV(usersName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, users)
	if err := users.Require("orgUnitPath"); err != nil {
		return res, err
	}

	counts := map[string]*ouCounts{}
	err = ous.ForEach(ctx, func(row indexed.FlatRow) error {
		counts[row["orgUnitPath"]] = newOUCounts()
		return nil
	})
	if err != nil {
		return res, err
	}

	checkSuspended := !o.NoSuspended && users.Has("suspended")
	checkReasons := checkSuspended && !o.NoReasons && users.Has("suspensionReason")
	reasons := map[string]struct{}{}
	err = users.ForEach(ctx, func(row indexed.FlatRow) error {
		c := counts[row["orgUnitPath"]]
		if c == nil {
			c = newOUCounts()
			counts[row["orgUnitPath"]] = c
		}
		c.users++
		if !checkSuspended {
			return nil
		}
		if row["suspended"] != "True" {
			c.active++
			return nil
		}
		c.suspended++
		if checkReasons {
			r := row["suspensionReason"]
			reasons[r] = struct{}{}
			c.reasons[r]++
		}
		return nil
	})
	res.RowsIn = ous.Rows() + users.Rows()
	if err != nil {
		return res, err
	}

	header := []string{"orgUnitPath", "users"}
	if checkSuspended {
		header = append(header, "active", "suspended")
	}
	reasonList := sortedKeys(reasons)
	for _, r := range reasonList {
		header = append(header, "suspensionReason."+r)
	}

	out, err := env.CreateCSV(outName, header)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	totals := newOUCounts()
	render := func(path string, c *ouCounts) indexed.FlatRow {
		row := indexed.FlatRow{"orgUnitPath": path, "users": itoa(c.users)}
		if checkSuspended {
			row["active"], row["suspended"] = itoa(c.active), itoa(c.suspended)
			for _, r := range reasonList {
				row["suspensionReason."+r] = itoa(c.reasons[r])
			}
		}
		return row
	}
	for _, path := range sortedKeys(counts) {
		c := counts[path]
		totals.users += c.users
		totals.active += c.active
		totals.suspended += c.suspended
		for r, n := range c.reasons {
			totals.reasons[r] += n
		}
		if err := out.WriteRow(render(path, c)); err != nil {
			return res, err
		}
	}
	if !o.NoTotals {
		if err := out.WriteRow(render("Totals", totals)); err != nil {
			return res, err
		}
	}
	res.RowsOut = out.Rows()
	return res, nil
}

// CountRows prints the number of data rows of inName.
func CountRows(ctx context.Context, env *Env, inName string) (res Result, err error) {
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.ForEach(ctx, func(indexed.FlatRow) error { return nil }); err != nil {
		return res, err
	}
	res.RowsIn = in.Rows()
	if _, err := fmt.Fprintln(env.Stdout, res.RowsIn); err != nil {
		return res, fmt.Errorf("write count: %w", err)
	}
	return res, nil
}

// CombineKeyValuesOptions joins the distinct values seen for each key.
type CombineKeyValuesOptions struct {
	Key       string
	Value     string
	Delimiter string
}

// Run writes Key,Value with one row per key, sorted by key. Values keep
// first-seen order.
func (o CombineKeyValuesOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require(o.Key, o.Value); err != nil {
		return res, err
	}

	values := map[string][]string{}
	seen := map[[2]string]struct{}{}
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		k, v := row[o.Key], row[o.Value]
		if _, dup := seen[[2]string{k, v}]; dup {
			return nil
		}
		seen[[2]string{k, v}] = struct{}{}
		values[k] = append(values[k], v)
		return nil
	})
	res.RowsIn = in.Rows()
	if err != nil {
		return res, err
	}

	delim := o.Delimiter
	if delim == "" {
		delim = " "
	}
	out, err := env.CreateCSV(outName, []string{o.Key, o.Value})
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)
	for _, k := range sortedKeys(values) {
		if err := out.WriteRow(indexed.FlatRow{o.Key: k, o.Value: strings.Join(values[k], delim)}); err != nil {
			return res, err
		}
	}
	res.RowsOut = out.Rows()
	return res, nil
}

// UserGroupsOptions inverts a group membership list into one row per user.
type UserGroupsOptions struct {
	Delimiter string
}

// Run writes primaryEmail,[Role,]GroupsCount,Groups for the USER members of
// inName. Role is present when the input has a role column; the last role
// seen for a user wins.
func (o UserGroupsOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require("group", "email", "type"); err != nil {
		return res, err
	}
	withRole := in.Has("role")

	type membership struct {
		role   string
		groups []string
	}
	users := map[string]*membership{}
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		if row["type"] != "USER" {
			return nil
		}
		email := strings.ToLower(row["email"])
		m := users[email]
		if m == nil {
			m = &membership{}
			users[email] = m
		}
		if withRole {
			m.role = row["role"]
		}
		m.groups = append(m.groups, strings.ToLower(row["group"]))
		return nil
	})
	res.RowsIn = in.Rows()
	if err != nil {
		return res, err
	}

	header := []string{"primaryEmail", "GroupsCount", "Groups"}
	if withRole {
		header = csvio.InsertAt(header, 1, "Role")
	}
	delim := o.Delimiter
	if delim == "" {
		delim = " "
	}
	out, err := env.CreateCSV(outName, header)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)
	for _, email := range sortedKeys(users) {
		m := users[email]
		sort.Strings(m.groups)
		row := indexed.FlatRow{
			"primaryEmail": email,
			"Role":         m.role,
			"GroupsCount":  itoa(len(m.groups)),
			"Groups":       strings.Join(m.groups, delim),
		}
		if err := out.WriteRow(row); err != nil {
			return res, err
		}
	}
	res.RowsOut = out.Rows()
	return res, nil
}
