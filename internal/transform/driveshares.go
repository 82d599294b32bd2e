package transform

import (
	"context"
	"strings"

	"gamcsv/internal/indexed"
)

// ExternalShareCountsOptions counts the shares of a Drive file listing that
// leave the organization, per principal.
type ExternalShareCountsOptions struct {
	Domains       []string
	Exclusive     bool
	IncludeAnyone bool
}

// Run writes Type,ExternalShare,Count rows: anyone and anyoneWithLink first
// (always present), then domain, domainWithLink, group and user rows, each
// sorted by principal.
func (o ExternalShareCountsOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)

	m := newACLMatcher(DriveACLsOptions{Domains: o.Domains, Exclusive: o.Exclusive})
	plan := indexed.NewPlan(in.Header(), permissionsPrefix)

	var anyone, anyoneWithLink int
	kinds := []string{"domain", "domainWithLink", "group", "user"}
	counters := map[string]*indexed.Counter{}
	for _, k := range kinds {
		counters[k] = indexed.NewCounter()
	}

	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		for _, r := range plan.Decode(row) {
			typ := r.Get("type")
			if typ == "" || r.Get("role") == "owner" || r.Get("deleted") == "True" {
				continue
			}
			withLink := allowFileDiscovery(r) == "False"
			switch typ {
			case "anyone":
				if !o.IncludeAnyone {
					continue
				}
				if withLink {
					anyoneWithLink++
				} else {
					anyone++
				}
			case "domain":
				domain := r.Get("domain")
				if !m.outside(domain) {
					continue
				}
				if withLink {
					counters["domainWithLink"].Add(domain, 1)
				} else {
					counters["domain"].Add(domain, 1)
				}
			default:
				if !m.outside(principalDomain(r)) {
					continue
				}
				if typ == "group" {
					counters["group"].Add(r.Get("emailAddress"), 1)
				} else {
					counters["user"].Add(r.Get("emailAddress"), 1)
				}
			}
		}
		return nil
	})
	res.RowsIn = in.Rows()
	if err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, []string{"Type", "ExternalShare", "Count"})
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	rows := []indexed.FlatRow{
		{"Type": "anyone", "Count": itoa(anyone)},
		{"Type": "anyoneWithLink", "Count": itoa(anyoneWithLink)},
	}
	for _, k := range kinds {
		for _, c := range counters[k].Counts(indexed.ByKey) {
			rows = append(rows, indexed.FlatRow{"Type": k, "ExternalShare": c.Key, "Count": itoa(c.N)})
		}
	}
	for _, r := range rows {
		if err := out.WriteRow(r); err != nil {
			return res, err
		}
	}
	res.RowsOut = out.Rows()
	return res, nil
}

// SharedDriveOrganizersOptions lists the organizers of each shared drive in
// a shared drive ACL listing (one drive per row).
type SharedDriveOrganizersOptions struct {
	// Domains restricts organizers to members of these domains.
	Domains []string

	// Types are the principal types reported; empty means user and group.
	Types []string

	AllOrganizers    bool
	FileOrganizers   bool
	HideNoOrganizers bool
	Delimiter        string
}

// Run writes id,name,organizers for inName to outName, taking drive names
// from the id,name file drivesName.
func (o SharedDriveOrganizersOptions) Run(ctx context.Context, env *Env, inName, drivesName, outName string) (res Result, err error) {
	names, err := loadDriveNames(ctx, env, drivesName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, names)

	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require("id"); err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, []string{"id", "name", "organizers"})
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	roles := []string{"organizer"}
	if o.FileOrganizers {
		roles = append(roles, "fileOrganizer")
	}
	types := o.Types
	if len(types) == 0 {
		types = []string{"user", "group"}
	}
	pred := indexed.All(
		indexed.In("role", roles...),
		indexed.NotEquals("deleted", "True"),
		indexed.In("type", types...),
	)
	domains := stringSet(o.Domains)
	delim := o.Delimiter
	if delim == "" {
		delim = " "
	}

	plan := indexed.NewPlan(in.Header(), permissionsPrefix)
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		var organizers []string
		for _, r := range indexed.Filter(plan.Decode(row), pred) {
			member := r.Get("emailAddress")
			if len(domains) > 0 && !contains(domains, emailDomain(member)) {
				continue
			}
			organizers = append(organizers, member)
			if !o.AllOrganizers {
				break
			}
		}
		if len(organizers) == 0 && o.HideNoOrganizers {
			return nil
		}
		name, err := driveName(ctx, names, row["id"])
		if err != nil {
			return err
		}
		return out.WriteRow(indexed.FlatRow{
			"id":         row["id"],
			"name":       name,
			"organizers": strings.Join(organizers, delim),
		})
	})

	res.RowsIn, res.RowsOut = in.Rows(), out.Rows()
	return res, err
}

// SharedDriveMembersOptions lists the organizers and the other members of
// each shared drive in a shared drive ACL listing (one drive per row).
type SharedDriveMembersOptions struct {
	// Domains restricts members to these domains.
	Domains []string

	// Types are the principal types reported; empty means user and group.
	Types []string

	Delimiter string
}

// Run writes id,name,organizers,members for inName to outName, taking drive
// names from the id,name file drivesName. Every role other than organizer
// counts as a member.
func (o SharedDriveMembersOptions) Run(ctx context.Context, env *Env, inName, drivesName, outName string) (res Result, err error) {
	names, err := loadDriveNames(ctx, env, drivesName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, names)

	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require("id"); err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, []string{"id", "name", "organizers", "members"})
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	types := o.Types
	if len(types) == 0 {
		types = []string{"user", "group"}
	}
	domains := stringSet(o.Domains)
	pred := indexed.All(
		indexed.NonEmpty("role"),
		indexed.NotEquals("deleted", "True"),
		indexed.In("type", types...),
		func(r indexed.Record) bool {
			return len(domains) == 0 || contains(domains, emailDomain(r.Get("emailAddress")))
		},
	)
	delim := o.Delimiter
	if delim == "" {
		delim = " "
	}
	byRole := func(r indexed.Record) string {
		if r.Get("role") == "organizer" {
			return "organizer"
		}
		return "member"
	}
	email := func(r indexed.Record) string { return r.Get("emailAddress") }

	plan := indexed.NewPlan(in.Header(), permissionsPrefix)
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		g := indexed.Aggregate(indexed.Filter(plan.Decode(row), pred), byRole, email)
		name, err := driveName(ctx, names, row["id"])
		if err != nil {
			return err
		}
		return out.WriteRow(indexed.FlatRow{
			"id":         row["id"],
			"name":       name,
			"organizers": strings.Join(g.Values("organizer"), delim),
			"members":    strings.Join(g.Values("member"), delim),
		})
	})

	res.RowsIn, res.RowsOut = in.Rows(), out.Rows()
	return res, err
}
