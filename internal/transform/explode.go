package transform

import (
	"context"
	"strings"

	"gamcsv/internal/csvio"
	"gamcsv/internal/indexed"
	"gamcsv/internal/logging"
)

// ExplodeOptions turns each row carrying a repeated group into one row per
// item of the group.
type ExplodeOptions struct {
	// Prefix is the repeated group to explode ("permissions").
	Prefix string

	// OutputPrefix renames subfield s to OutputPrefix.s; empty keeps s.
	OutputPrefix string

	// Rename overrides the output name of individual subfields.
	Rename map[string]string

	DropColumns   []string
	DropSubfields []string

	// KeepEmpty writes rows without any item once, with empty item columns.
	// Otherwise such rows are dropped.
	KeepEmpty bool

	// CountPerRow rewrites the bare Prefix column (the item count) to 1 on
	// exploded rows and 0 on rows kept by KeepEmpty.
	CountPerRow bool

	// Filter selects the items written. Items whose values are all empty are
	// export padding and never written.
	Filter indexed.Predicate
}

// ACLPerRow is the one-ACL-per-row preset: permissions.N.x becomes
// permission.x.
func ACLPerRow() ExplodeOptions {
	return ExplodeOptions{Prefix: "permissions", OutputPrefix: "permission"}
}

// AttendeePerRow is the one-attendee-per-row preset for calendar event
// exports. Non-empty attendees or domains restrict the attendees written.
func AttendeePerRow(attendees, domains []string) ExplodeOptions {
	return ExplodeOptions{
		Prefix:        "attendees",
		OutputPrefix:  "attendee",
		DropColumns:   []string{"attendees"},
		DropSubfields: []string{"photoLink"},
		Filter:        attendeeFilter("email", attendees, domains),
	}
}

// attendeeFilter matches records whose email subfield is in attendees and
// whose domain is in domains; an empty list matches everything.
func attendeeFilter(sub string, attendees, domains []string) indexed.Predicate {
	var preds []indexed.Predicate
	if len(attendees) > 0 {
		preds = append(preds, indexed.In(sub, attendees...))
	}
	if len(domains) > 0 {
		set := stringSet(domains)
		preds = append(preds, func(r indexed.Record) bool {
			_, ok := set[emailDomain(r.Get(sub))]
			return ok
		})
	}
	if len(preds) == 0 {
		return nil
	}
	return indexed.All(preds...)
}

// Header returns the output header for an input header.
func (o ExplodeOptions) Header(in []string) []string {
	rename := o.rename()
	hdr := indexed.ExplodeHeader(csvio.Without(in, o.DropColumns...), o.Prefix, rename)
	if len(o.DropSubfields) == 0 {
		return hdr
	}
	drop := make([]string, 0, len(o.DropSubfields))
	for _, s := range o.DropSubfields {
		drop = append(drop, rename(s))
	}
	return csvio.Without(hdr, drop...)
}

func (o ExplodeOptions) rename() indexed.Rename {
	return indexed.Mapped(o.Rename, indexed.Dotted(o.OutputPrefix))
}

// Run explodes inName into outName.
//
// Edge cases:
//   - An input without any Prefix.N.* column is copied through when
//     KeepEmpty is set and yields only a header otherwise.
func (o ExplodeOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	if o.Prefix == "" {
		return res, Usagef("explode: --prefix is required")
	}
	if strings.HasSuffix(o.Prefix, ".") {
		return res, Usagef("explode: prefix %q must not end with a dot", o.Prefix)
	}

	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)

	if len(in.Header()) == 0 {
		return res, &csvio.MissingColumnError{File: in.Name(), Column: o.Prefix}
	}
	plan := indexed.NewPlan(in.Header(), o.Prefix)
	if !plan.HasGroup() {
		logging.FromContext(ctx).Warn("no repeated group columns in input", "file", in.Name(), "prefix", o.Prefix)
	}
	countCol := o.CountPerRow && in.Has(o.Prefix)

	out, err := env.CreateCSV(outName, o.Header(in.Header()))
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	rename := o.rename()
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		base := plan.Base(row)
		for _, c := range o.DropColumns {
			delete(base, c)
		}

		items := indexed.Filter(plan.Decode(row), indexed.NotBlank())
		if len(items) == 0 {
			if !o.KeepEmpty {
				return nil
			}
			if countCol {
				base[o.Prefix] = "0"
			}
			return out.WriteRow(base)
		}

		items = indexed.Filter(items, o.Filter)
		if len(o.DropSubfields) > 0 {
			for i := range items {
				items[i] = items[i].Without(o.DropSubfields...)
			}
		}
		for _, r := range indexed.Explode(base, o.Prefix, items, rename) {
			if countCol {
				r[o.Prefix] = "1"
			}
			if err := out.WriteRow(r); err != nil {
				return err
			}
		}
		return nil
	})

	res.RowsIn, res.RowsOut = in.Rows(), out.Rows()
	return res, err
}
