package transform

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gamcsv/internal/csvio"
	"gamcsv/internal/indexed"
	"gamcsv/internal/logging"
	"gamcsv/internal/rowhash"
)

// DedupeOptions drops rows repeating an earlier row's identity fields.
type DedupeOptions struct {
	IDFields     []string
	DeleteFields []string

	// TrimSpace compares identity values without surrounding whitespace.
	TrimSpace bool
}

// Run sorts inName by IDFields (stable) and writes the first row of each
// identity to outName, without DeleteFields.
func (o DedupeOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	ids := o.IDFields
	if len(ids) == 0 {
		ids = []string{"id"}
	}
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require(ids...); err != nil {
		return res, err
	}

	rows, err := in.ReadAll(ctx)
	res.RowsIn = in.Rows()
	if err != nil {
		return res, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range ids {
			if rows[i][f] != rows[j][f] {
				return rows[i][f] < rows[j][f]
			}
		}
		return false
	})

	out, err := env.CreateCSV(outName, csvio.Without(in.Header(), o.DeleteFields...))
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	h := rowhash.Hasher{Fields: ids, TrimSpace: o.TrimSpace}
	seen := rowhash.Seen{}
	for _, row := range rows {
		if !seen.Add(h.Sum(row)) {
			continue
		}
		if err := out.WriteRow(row); err != nil {
			return res, err
		}
	}
	res.RowsOut = out.Rows()
	logging.FromContext(ctx).Debug("dedupe", "rows", res.RowsIn, "kept", res.RowsOut)
	return res, nil
}

const dateLayout = "2006-01-02"

// FutureEventsOptions selects the calendar events a user created that start
// on or after Date.
type FutureEventsOptions struct {
	// Date is YYYY-MM-DD; empty means today.
	Date          string
	WithAttendees bool

	// Now supplies today's date; nil means time.Now.
	Now func() time.Time
}

func (o FutureEventsOptions) startDate() (string, error) {
	if o.Date == "" {
		now := time.Now
		if o.Now != nil {
			now = o.Now
		}
		return now().Format(dateLayout), nil
	}
	if _, err := time.Parse(dateLayout, o.Date); err != nil {
		return "", Usagef("future-events: date (%s) is not valid, it must be (yyyy-mm-dd)", o.Date)
	}
	return o.Date, nil
}

// Run writes the selected events of inName to outName, unchanged.
func (o FutureEventsOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	start, err := o.startDate()
	if err != nil {
		return res, err
	}
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require("primaryEmail"); err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, in.Header())
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	// Without a creator column no event belongs to the user.
	hasCreator := slices.Contains(in.Header(), "creator.email")
	log := logging.WithFields(ctx, "file", in.Name())
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		if !hasCreator || row["primaryEmail"] != row["creator.email"] {
			return nil
		}
		var day string
		switch {
		case row["start.date"] != "":
			day = row["start.date"]
		case row["start.dateTime"] != "":
			day = row["start.dateTime"]
			if len(day) > len(dateLayout) {
				day = day[:len(dateLayout)]
			}
		default:
			return nil
		}
		if day < start {
			return nil
		}
		if !o.WithAttendees && row["attendees"] != "" {
			n, perr := strconv.Atoi(row["attendees"])
			if perr != nil {
				log.Debug("bad attendee count", "value", row["attendees"], "line", in.Line())
			}
			if n > 0 {
				return nil
			}
		}
		return out.WriteRow(row)
	})
	res.RowsIn, res.RowsOut = in.Rows(), out.Rows()
	return res, err
}

// CollectAttendeesOptions lists the distinct attendees of a calendar event
// listing.
type CollectAttendeesOptions struct {
	Attendees []string
	Domains   []string

	// Pattern must match at the start of the address.
	Pattern string

	SkipNoName bool
}

// Run writes email,name to outName, one row per address, in first-seen
// order. The name is the attendee's displayName, else the address.
func (o CollectAttendeesOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	var re *regexp.Regexp
	if o.Pattern != "" {
		re, err = regexp.Compile(`^(?:` + o.Pattern + `)`)
		if err != nil {
			return res, Usagef("collect-attendees: bad pattern %q: %v", o.Pattern, err)
		}
	}

	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)

	out, err := env.CreateCSV(outName, []string{"email", "name"})
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	pred := indexed.All(indexed.NonEmpty("email"), attendeeFilter("email", o.Attendees, o.Domains))
	if re != nil {
		pred = indexed.All(pred, indexed.Matches("email", re))
	}
	plan := indexed.NewPlan(in.Header(), "attendees")
	seen := map[string]struct{}{}
	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		for _, r := range indexed.Filter(plan.Decode(row), pred) {
			email := r.Get("email")
			if contains(seen, email) {
				continue
			}
			seen[email] = struct{}{}
			name := r.Get("displayName")
			if name == "" {
				if o.SkipNoName {
					continue
				}
				name = email
			}
			if err := out.WriteRow(indexed.FlatRow{"email": email, "name": name}); err != nil {
				return err
			}
		}
		return nil
	})
	res.RowsIn, res.RowsOut = in.Rows(), out.Rows()
	return res, err
}

// VacationToHTMLOptions converts plain text vacation messages to HTML.
type VacationToHTMLOptions struct {
	// Normalize re-renders the generated HTML through an HTML parser, which
	// escapes stray markup characters and closes open tags.
	Normalize bool
}

// Run writes only the rows whose message changed.
func (o VacationToHTMLOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)
	if err := in.Require("html", "message"); err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, in.Header())
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		if row["html"] == "True" || row["message"] == "" {
			return nil
		}
		msg, err := o.toHTML(row["message"])
		if err != nil {
			return fmt.Errorf("%s line %d: %w", in.Name(), in.Line(), err)
		}
		row["message"] = msg
		return out.WriteRow(row)
	})
	res.RowsIn, res.RowsOut = in.Rows(), out.Rows()
	return res, err
}

var vacationEscapes = strings.NewReplacer(`\n`, "<br>", `\r`, "")

func (o VacationToHTMLOptions) toHTML(message string) (string, error) {
	s := "<div>" + vacationEscapes.Replace(message) + "</div>"
	if !o.Normalize {
		return s, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parse message html: %w", err)
	}
	return doc.Find("body").Html()
}
