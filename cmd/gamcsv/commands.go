package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"gamcsv/internal/transform"
)

// body is the part of a command that runs once setup is done.
type body func(ctx context.Context, env *transform.Env) (transform.Result, error)

// fileArgs accepts between lo and hi positional file names.
func fileArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < lo || len(args) > hi {
			if lo == hi {
				return transform.Usagef("%s: want %d file arguments, got %d", cmd.Name(), lo, len(args))
			}
			return transform.Usagef("%s: want %d to %d file arguments, got %d", cmd.Name(), lo, hi, len(args))
		}
		return nil
	}
}

// files pads args to n names; omitted trailing names are "-".
func files(args []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "-"
		if i < len(args) {
			out[i] = args[i]
		}
	}
	return out
}

// parsePairs reads sub=col items.
func parsePairs(items []string) (map[string]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(items))
	for _, it := range items {
		k, v, ok := strings.Cut(it, "=")
		if !ok || k == "" || v == "" {
			return nil, transform.Usagef("--rename: want subfield=column, got %q", it)
		}
		m[k] = v
	}
	return m, nil
}

// command builds a cobra command whose RunE hands build's body to exec.
func (a *app) command(use, short string, args cobra.PositionalArgs, build func(cmd *cobra.Command, args []string) (body, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := build(cmd, args)
			if err != nil {
				return err
			}
			return a.exec(cmd, b)
		},
	}
}

func (a *app) commands() []*cobra.Command {
	return []*cobra.Command{
		a.explodeCmd(),
		a.aclPerRowCmd(),
		a.attendeePerRowCmd(),
		a.countValuesCmd(),
		a.jsonToCSVCmd(),
		a.driveACLsCmd(),
		a.externalShareCountsCmd(),
		a.sharedDriveOrganizersCmd(),
		a.sharedDriveMembersCmd(),
		a.addOrgUnitCmd(),
		a.addCrosIDCmd(),
		a.mergeUserDataCmd(),
		a.userGroupCountsCmd(),
		a.notInCmd(),
		a.userChangesCmd(),
		a.countFromsCmd(),
		a.simpleCmd("count-groups-by-domain", "Count groups per domain", transform.CountGroupsByDomain),
		a.simpleCmd("group-type-counts", "Count group members per member type", transform.GroupTypeCounts),
		a.ouUserCountsCmd(),
		a.countRowsCmd(),
		a.combineKeyValuesCmd(),
		a.userGroupsCmd(),
		a.dedupeCmd(),
		a.futureEventsCmd(),
		a.collectAttendeesCmd(),
		a.vacationToHTMLCmd(),
		a.csvToJSONCmd(),
	}
}

// simpleCmd wraps an INPUT OUTPUT transform without options.
func (a *app) simpleCmd(name, short string, run func(ctx context.Context, env *transform.Env, in, out string) (transform.Result, error)) *cobra.Command {
	return a.command(name+" [INPUT] [OUTPUT]", short, fileArgs(0, 2), func(_ *cobra.Command, args []string) (body, error) {
		f := files(args, 2)
		return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
			return run(ctx, env, f[0], f[1])
		}, nil
	})
}

func (a *app) explodeCmd() *cobra.Command {
	var (
		o      transform.ExplodeOptions
		rename []string
	)
	cmd := a.command("explode [INPUT] [OUTPUT]", "Write one row per item of a repeated column group", fileArgs(0, 2),
		func(cmd *cobra.Command, args []string) (body, error) {
			m, err := parsePairs(rename)
			if err != nil {
				return nil, err
			}
			o.Rename = m
			if !cmd.Flags().Changed("output-prefix") {
				o.OutputPrefix = o.Prefix
			}
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.Prefix, "prefix", "", "repeated group prefix, e.g. permissions")
	fl.StringVar(&o.OutputPrefix, "output-prefix", "", "prefix of the item columns written (default: --prefix; empty for bare subfield names)")
	fl.StringSliceVar(&rename, "rename", nil, "subfield=column overrides")
	fl.StringSliceVar(&o.DropColumns, "drop-columns", nil, "input columns not written")
	fl.StringSliceVar(&o.DropSubfields, "drop-subfields", nil, "item subfields not written")
	fl.BoolVar(&o.KeepEmpty, "keep-empty", false, "write rows without items once")
	fl.BoolVar(&o.CountPerRow, "count-per-row", false, "rewrite the item count column to 1 per exploded row")
	return cmd
}

func (a *app) aclPerRowCmd() *cobra.Command {
	var keepEmpty bool
	cmd := a.command("acl-per-row [INPUT] [OUTPUT]", "Write one row per Drive file permission", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			o := transform.ACLPerRow()
			o.KeepEmpty = keepEmpty
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().BoolVar(&keepEmpty, "keep-empty", false, "write files without permissions once")
	return cmd
}

func (a *app) attendeePerRowCmd() *cobra.Command {
	var attendees []string
	cmd := a.command("attendee-per-row [INPUT] [OUTPUT]", "Write one row per calendar event attendee", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return transform.AttendeePerRow(attendees, a.opts.Domains).Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().StringSliceVar(&attendees, "attendees", nil, "attendee addresses kept")
	return cmd
}

func (a *app) countValuesCmd() *cobra.Command {
	var o transform.CountValuesOptions
	cmd := a.command("count-values [INPUT] [OUTPUT]", "Count the distinct values of a column", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.Key, "key", "", "column (or subfield with --prefix) counted")
	fl.StringVar(&o.Prefix, "prefix", "", "count a subfield across this repeated group")
	fl.IntVar(&o.MinCount, "min-count", 0, "omit values seen fewer times")
	fl.BoolVar(&o.ByCount, "by-count", false, "order by count, highest first")
	return cmd
}

func (a *app) jsonToCSVCmd() *cobra.Command {
	return a.simpleCmd("json-to-csv", "Flatten JSON objects into indexed CSV columns", transform.JSONToCSV)
}

func (a *app) driveACLsCmd() *cobra.Command {
	var (
		sel string
		o   transform.DriveACLsOptions
	)
	cmd := a.command("drive-acls [INPUT] [OUTPUT]", "Write one row per selected Drive file ACL", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			o.Select = transform.ACLSelector(sel)
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				o.Domains, o.Users, o.Groups = a.opts.Domains, a.opts.Users, a.opts.Groups
				o.OwnerColumn, o.TitleColumns = a.opts.OwnerColumn, a.opts.TitleColumns
				o.SkipDeleted = a.opts.SkipDeleted
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&sel, "select", string(transform.SelectAll), "ACLs reported: "+strings.Join(transform.ACLSelectors(), ", "))
	fl.BoolVar(&o.Exclusive, "exclusive", true, "external means outside --domains (false: inside)")
	fl.BoolVar(&o.IncludeAnyone, "include-anyone", true, "external includes anyone ACLs")
	fl.StringVar(&o.AllowFileDiscovery, "allow-file-discovery", "Any", "domain ACLs kept: Any, True or False")
	fl.BoolVar(&o.NonInheritedOnly, "non-inherited-only", false, "skip inherited ACLs")
	fl.StringVar(&o.SharedDrives, "shared-drives", "", "id,name CSV of shared drives; adds teamDriveId and teamDriveName")
	return cmd
}

func (a *app) externalShareCountsCmd() *cobra.Command {
	var o transform.ExternalShareCountsOptions
	cmd := a.command("external-share-counts [INPUT] [OUTPUT]", "Count Drive shares leaving the organization", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				o.Domains = a.opts.Domains
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().BoolVar(&o.Exclusive, "exclusive", true, "external means outside --domains (false: inside)")
	cmd.Flags().BoolVar(&o.IncludeAnyone, "include-anyone", true, "count anyone shares")
	return cmd
}

func (a *app) sharedDriveOrganizersCmd() *cobra.Command {
	var o transform.SharedDriveOrganizersOptions
	cmd := a.command("shared-drive-organizers ACLS DRIVES [OUTPUT]", "List the organizers of each shared drive", fileArgs(2, 3),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 3)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				o.Domains = a.opts.Domains
				return o.Run(ctx, env, f[0], f[1], f[2])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringSliceVar(&o.Types, "types", nil, "principal types reported (default user,group)")
	fl.BoolVar(&o.AllOrganizers, "all-organizers", false, "list every organizer, not only the first")
	fl.BoolVar(&o.FileOrganizers, "file-organizers", false, "include file organizers")
	fl.BoolVar(&o.HideNoOrganizers, "hide-no-organizers", false, "omit drives without organizers")
	fl.StringVar(&o.Delimiter, "delimiter", " ", "organizer list separator")
	return cmd
}

func (a *app) sharedDriveMembersCmd() *cobra.Command {
	var o transform.SharedDriveMembersOptions
	cmd := a.command("shared-drive-members ACLS DRIVES [OUTPUT]", "List the organizers and members of each shared drive", fileArgs(2, 3),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 3)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				o.Domains = a.opts.Domains
				return o.Run(ctx, env, f[0], f[1], f[2])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringSliceVar(&o.Types, "types", nil, "principal types reported (default user,group)")
	fl.StringVar(&o.Delimiter, "delimiter", " ", "member list separator")
	return cmd
}

func (a *app) addOrgUnitCmd() *cobra.Command {
	o := transform.DefaultAddOrgUnit()
	cmd := a.command("add-org-unit DATA USERS [OUTPUT]", "Add each user's org unit to a data file", fileArgs(2, 3),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 3)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1], f[2])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.DataEmailColumn, "data-email-column", o.DataEmailColumn, "email column of DATA")
	fl.StringVar(&o.UserEmailColumn, "user-email-column", o.UserEmailColumn, "email column of USERS")
	fl.StringVar(&o.OrgUnitColumn, "org-unit-column", o.OrgUnitColumn, "org unit column of USERS, added to the output")
	fl.StringVar(&o.Unknown, "unknown", o.Unknown, "org unit written for users not in USERS")
	fl.BoolVar(&o.FoldCase, "fold-case", false, "compare addresses case-insensitively")
	return cmd
}

func (a *app) addCrosIDCmd() *cobra.Command {
	o := transform.DefaultAddCrosID()
	cmd := a.command("add-cros-id MAP DATA [OUTPUT]", "Add ChromeOS device ids by serial number", fileArgs(2, 3),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 3)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1], f[2])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.MapSerialColumn, "map-serial-column", o.MapSerialColumn, "serial number column of MAP")
	fl.StringVar(&o.MapDeviceColumn, "map-device-column", o.MapDeviceColumn, "device id column of MAP, added to the output")
	fl.StringVar(&o.DataSerialColumn, "data-serial-column", o.DataSerialColumn, "serial number column of DATA")
	return cmd
}

func (a *app) mergeUserDataCmd() *cobra.Command {
	o := transform.DefaultMergeUserData()
	cmd := a.command("merge-user-data DATA MERGE [OUTPUT]", "Join the rows of a merge file onto a data file", fileArgs(2, 3),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 3)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1], f[2])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.DataKey, "data-key", o.DataKey, "key column of DATA")
	fl.StringVar(&o.MergeKey, "merge-key", o.MergeKey, "key column of MERGE")
	fl.BoolVar(&o.LowercaseKeys, "lowercase-keys", o.LowercaseKeys, "compare keys case-insensitively")
	fl.BoolVar(&o.RetainMergeKey, "retain-merge-key", false, "also write the MERGE key column")
	fl.StringSliceVar(&o.RetainFields, "retain-fields", nil, "MERGE columns written (default all)")
	fl.BoolVar(&o.OutputUnmerged, "output-unmerged", false, "also write DATA rows without a MERGE row")
	fl.BoolVar(&o.Append, "append", false, "keep DATA order and append MERGE fields to each row")
	fl.StringVar(&o.Suffix, "suffix", o.Suffix, "suffix of MERGE columns colliding with DATA columns")
	return cmd
}

func (a *app) userGroupCountsCmd() *cobra.Command {
	o := transform.DefaultUserGroupCounts()
	cmd := a.command("user-group-counts USERS MEMBERS [OUTPUT]", "Count group memberships per user", fileArgs(2, 3),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 3)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1], f[2])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.UserKey, "user-key", o.UserKey, "email column of USERS")
	fl.StringVar(&o.MemberKey, "member-key", o.MemberKey, "email column of MEMBERS")
	fl.IntVar(&o.Threshold, "threshold", o.Threshold, "keep users in more than N groups (-1 keeps all)")
	fl.BoolVar(&o.NoGroups, "no-groups", false, "keep only users without any group")
	return cmd
}

func (a *app) notInCmd() *cobra.Command {
	o := transform.DefaultNotIn()
	cmd := a.command("not-in LEFT RIGHT [OUTPUT]", "Write LEFT rows whose key is missing from RIGHT", fileArgs(2, 3),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 3)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1], f[2])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.LeftKey, "left-key", o.LeftKey, "key column of LEFT")
	fl.StringVar(&o.RightKey, "right-key", o.RightKey, "key column of RIGHT")
	fl.BoolVar(&o.Headerless, "headerless", false, "files have no header; the first column is the key")
	fl.BoolVar(&o.FoldCase, "fold-case", false, "compare keys case-insensitively")
	fl.BoolVar(&o.Sort, "sort", false, "write one row per key, sorted by key")
	return cmd
}

func (a *app) userChangesCmd() *cobra.Command {
	o := transform.DefaultUserChanges()
	cmd := a.command("user-changes PREVIOUS CURRENT", "Write the users added, deleted and changed between two exports", fileArgs(2, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, args[0], args[1])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.Key, "key", o.Key, "key column")
	fl.StringSliceVar(&o.MatchFields, "match-fields", o.MatchFields, "columns compared for updates")
	fl.StringVar(&o.AddFile, "add", o.AddFile, "output of added users")
	fl.StringVar(&o.DeleteFile, "delete", o.DeleteFile, "output of deleted users")
	fl.StringVar(&o.UpdateFile, "update", o.UpdateFile, "output of changed users")
	return cmd
}

func (a *app) countFromsCmd() *cobra.Command {
	var o transform.CountFromsOptions
	cmd := a.command("count-froms [INPUT] [OUTPUT]", "Count messages per sender address", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().StringVar(&o.Column, "column", "From", "sender column")
	cmd.Flags().IntVar(&o.Limit, "limit", 0, "write only the top N senders (0 writes all)")
	return cmd
}

func (a *app) ouUserCountsCmd() *cobra.Command {
	var o transform.OUUserCountsOptions
	cmd := a.command("ou-user-counts ORGUNITS USERS [OUTPUT]", "Count users per org unit", fileArgs(2, 3),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 3)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1], f[2])
			}, nil
		})
	fl := cmd.Flags()
	fl.BoolVar(&o.NoSuspended, "no-suspended", false, "omit the active and suspended columns")
	fl.BoolVar(&o.NoReasons, "no-reasons", false, "omit the suspension reason columns")
	fl.BoolVar(&o.NoTotals, "no-totals", false, "omit the Totals row")
	return cmd
}

func (a *app) countRowsCmd() *cobra.Command {
	return a.command("count-rows [INPUT]", "Print the number of data rows", fileArgs(0, 1),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 1)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return transform.CountRows(ctx, env, f[0])
			}, nil
		})
}

func (a *app) combineKeyValuesCmd() *cobra.Command {
	var o transform.CombineKeyValuesOptions
	cmd := a.command("combine-key-values [INPUT] [OUTPUT]", "Join the distinct values of each key", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	fl := cmd.Flags()
	fl.StringVar(&o.Key, "key", "key", "key column")
	fl.StringVar(&o.Value, "value", "value", "value column")
	fl.StringVar(&o.Delimiter, "delimiter", " ", "value separator")
	return cmd
}

func (a *app) userGroupsCmd() *cobra.Command {
	var o transform.UserGroupsOptions
	cmd := a.command("user-groups [INPUT] [OUTPUT]", "Invert a group membership list into one row per user", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().StringVar(&o.Delimiter, "delimiter", " ", "group list separator")
	return cmd
}

func (a *app) dedupeCmd() *cobra.Command {
	var o transform.DedupeOptions
	cmd := a.command("dedupe [INPUT] [OUTPUT]", "Drop rows repeating an earlier row's id", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().StringSliceVar(&o.IDFields, "id-fields", []string{"id"}, "columns identifying a row")
	cmd.Flags().StringSliceVar(&o.DeleteFields, "delete-fields", nil, "columns not written")
	cmd.Flags().BoolVar(&o.TrimSpace, "trim", false, "ignore surrounding whitespace when comparing ids")
	return cmd
}

func (a *app) futureEventsCmd() *cobra.Command {
	var o transform.FutureEventsOptions
	cmd := a.command("future-events [INPUT] [OUTPUT]", "Select the events a user created that start on or after a date", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().StringVar(&o.Date, "date", "", "first start date kept, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&o.WithAttendees, "with-attendees", false, "also keep events with attendees")
	return cmd
}

func (a *app) collectAttendeesCmd() *cobra.Command {
	var o transform.CollectAttendeesOptions
	cmd := a.command("collect-attendees [INPUT] [OUTPUT]", "List the distinct attendees of calendar events", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				o.Domains, o.Pattern = a.opts.Domains, a.opts.AttendeePattern
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().StringSliceVar(&o.Attendees, "attendees", nil, "attendee addresses kept")
	cmd.Flags().BoolVar(&o.SkipNoName, "skip-no-name", false, "omit attendees without a display name")
	return cmd
}

func (a *app) vacationToHTMLCmd() *cobra.Command {
	var o transform.VacationToHTMLOptions
	cmd := a.command("vacation-to-html [INPUT] [OUTPUT]", "Convert plain text vacation messages to HTML", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	cmd.Flags().BoolVar(&o.Normalize, "normalize", false, "re-render the HTML through an HTML parser")
	return cmd
}

func (a *app) csvToJSONCmd() *cobra.Command {
	var o transform.CSVToJSONOptions
	cmd := a.command("csv-to-json [INPUT] [OUTPUT]", "Merge the JSON columns of each row into one object", fileArgs(0, 2),
		func(_ *cobra.Command, args []string) (body, error) {
			f := files(args, 2)
			return func(ctx context.Context, env *transform.Env) (transform.Result, error) {
				return o.Run(ctx, env, f[0], f[1])
			}, nil
		})
	fl := cmd.Flags()
	fl.BoolVar(&o.MergePlain, "merge-plain", false, "also copy the non-JSON columns")
	fl.StringSliceVar(&o.SkipFields, "skip-fields", nil, "non-JSON columns not copied")
	fl.BoolVar(&o.List, "list", false, "write one JSON array instead of CSV")
	fl.BoolVar(&o.NoHeader, "no-header", false, "omit the JSON header row")
	return cmd
}
