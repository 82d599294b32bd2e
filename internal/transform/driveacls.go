package transform

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gamcsv/internal/csvio"
	"gamcsv/internal/indexed"
	"gamcsv/internal/logging"
	"gamcsv/internal/lookup"
)

// ACLSelector picks which permissions of a Drive file listing are reported.
type ACLSelector string

const (
	SelectAnyone       ACLSelector = "anyone"
	SelectDomain       ACLSelector = "domain"
	SelectGroup        ACLSelector = "group"
	SelectUser         ACLSelector = "user"
	SelectExternal     ACLSelector = "external"
	SelectNonDomain    ACLSelector = "nondomain"
	SelectLink         ACLSelector = "link"
	SelectDiscoverable ACLSelector = "discoverable"
	SelectAll          ACLSelector = "all"
)

const permissionsPrefix = "permissions"

// Output column sets, without the shared drive columns.
var aclColumns = map[ACLSelector][]string{
	SelectAnyone:       {"Owner", "driveFileId", "driveFileTitle", "permissionId", "role", "allowFileDiscovery"},
	SelectDomain:       {"Owner", "driveFileId", "driveFileTitle", "permissionId", "role", "domain", "allowFileDiscovery"},
	SelectGroup:        {"Owner", "driveFileId", "driveFileTitle", "mimeType", "permissionId", "role", "emailAddress"},
	SelectUser:         {"Owner", "driveFileId", "driveFileTitle", "permissionId", "role", "emailAddress"},
	SelectExternal:     {"Owner", "driveFileId", "driveFileTitle", "permissionId", "role", "type", "emailAddress", "domain"},
	SelectNonDomain:    {"Owner", "driveFileId", "driveFileTitle", "permissionId", "role", "type", "emailAddress"},
	SelectLink:         {"Owner", "driveFileId", "driveFileTitle", "mimeType", "permissionId", "role", "allowFileDiscovery", "resourceKey", "linkShareMetadata.securityUpdateEligible", "linkShareMetadata.securityUpdateEnabled", "webViewLink"},
	SelectDiscoverable: {"Owner", "driveFileId", "driveFileTitle", "mimeType", "permissionId", "role", "type", "allowFileDiscovery", "domain"},
	SelectAll:          {"Owner", "driveFileId", "driveFileTitle", "permissionId", "role", "type", "emailAddress", "domain", "allowFileDiscovery"},
}

// File-level columns copied from the input row as they are.
var fileColumns = []string{"mimeType", "resourceKey", "linkShareMetadata.securityUpdateEligible",
	"linkShareMetadata.securityUpdateEnabled", "webViewLink"}

// ACLSelectors lists the valid selectors, sorted.
func ACLSelectors() []string {
	out := make([]string, 0, len(aclColumns))
	for s := range aclColumns {
		out = append(out, string(s))
	}
	sort.Strings(out)
	return out
}

// DriveACLsOptions reports one row per selected permission of a Drive file
// listing (one file per row, permissions.N.* columns).
type DriveACLsOptions struct {
	Select ACLSelector

	Domains []string
	Users   []string
	Groups  []string

	// Exclusive makes "external" mean outside Domains; otherwise it means
	// inside Domains.
	Exclusive     bool
	IncludeAnyone bool

	// AllowFileDiscovery restricts the domain selector: "", "Any", "True"
	// or "False".
	AllowFileDiscovery string

	OwnerColumn  string
	TitleColumns []string

	SkipDeleted      bool
	NonInheritedOnly bool

	// SharedDrives names an id,name CSV of shared drives. When set the
	// output gains teamDriveId and teamDriveName, and "external" skips
	// organizer permissions.
	SharedDrives string
}

func (o DriveACLsOptions) validate() error {
	if _, ok := aclColumns[o.Select]; !ok {
		return Usagef("drive-acls: unknown selector %q (want one of %s)", o.Select, strings.Join(ACLSelectors(), ", "))
	}
	switch o.AllowFileDiscovery {
	case "", "Any", "True", "False":
	default:
		return Usagef("drive-acls: --allow-file-discovery must be Any, True or False, got %q", o.AllowFileDiscovery)
	}
	if strings.TrimSpace(o.OwnerColumn) == "" {
		return Usagef("drive-acls: owner column must not be empty")
	}
	return nil
}

// Header returns the output columns.
func (o DriveACLsOptions) Header() []string {
	cols := append([]string(nil), aclColumns[o.Select]...)
	if o.SharedDrives != "" {
		cols = csvio.InsertAfter(cols, "Owner", "teamDriveId")
		cols = csvio.InsertAfter(cols, "teamDriveId", "teamDriveName")
	}
	return cols
}

// allowFileDiscovery reads the flag from an ACL, deriving it from the older
// withLink subfield when absent.
func allowFileDiscovery(r indexed.Record) string {
	if r.Has("allowFileDiscovery") {
		return r.Get("allowFileDiscovery")
	}
	return pyBool(r.Get("withLink") == "False")
}

// principalDomain is the domain subfield, or the domain of the email address.
func principalDomain(r indexed.Record) string {
	if d := r.Get("domain"); d != "" {
		return d
	}
	if e := r.Get("emailAddress"); e != "" {
		return emailDomain(e)
	}
	return ""
}

// aclMatcher decides per permission and supplies the derived columns.
type aclMatcher struct {
	o       DriveACLsOptions
	domains map[string]struct{}
	users   map[string]struct{}
	groups  map[string]struct{}
}

func newACLMatcher(o DriveACLsOptions) *aclMatcher {
	return &aclMatcher{
		o:       o,
		domains: stringSet(o.Domains),
		users:   stringSet(o.Users),
		groups:  stringSet(o.Groups),
	}
}

// outside reports whether domain counts as external under Exclusive.
func (m *aclMatcher) outside(domain string) bool {
	in := contains(m.domains, domain)
	if m.o.Exclusive {
		return !in
	}
	return in
}

// common applies the checks shared by every selector.
func (m *aclMatcher) common(r indexed.Record) bool {
	if r.Get("type") == "" {
		return false
	}
	if m.o.SkipDeleted && r.Get("deleted") == "True" {
		return false
	}
	if m.o.NonInheritedOnly && r.Get("permissionDetails.0.inherited") == "True" {
		return false
	}
	return true
}

// match returns the per-permission output values when r is selected.
func (m *aclMatcher) match(r indexed.Record) (indexed.FlatRow, bool) {
	if !m.common(r) {
		return nil, false
	}
	typ := r.Get("type")
	email := r.Get("emailAddress")
	domain := r.Get("domain")
	afd := allowFileDiscovery(r)

	ok := false
	switch m.o.Select {
	case SelectAnyone:
		ok = typ == "anyone"
	case SelectDomain:
		ok = typ == "domain" &&
			(len(m.domains) == 0 || contains(m.domains, domain)) &&
			(m.o.AllowFileDiscovery == "" || m.o.AllowFileDiscovery == "Any" || m.o.AllowFileDiscovery == afd)
	case SelectGroup:
		ok = typ == "group" &&
			((len(m.groups) == 0 && len(m.domains) == 0) ||
				contains(m.groups, email) || contains(m.domains, principalDomain(r)))
	case SelectUser:
		ok = typ == "user" && (len(m.users) == 0 || contains(m.users, email))
	case SelectExternal:
		switch typ {
		case "domain":
			email = ""
		case "user", "group":
			if r.Get("deleted") == "True" {
				return nil, false
			}
			domain = emailDomain(email)
		default:
			if !m.o.IncludeAnyone {
				return nil, false
			}
			email, domain = "", ""
		}
		if m.o.SharedDrives != "" && r.Get("role") == "organizer" {
			return nil, false
		}
		ok = (typ != "domain" && typ != "user" && typ != "group") || m.outside(domain)
	case SelectNonDomain:
		ok = email != "" && !contains(m.domains, domain)
	case SelectLink:
		ok = (typ == "anyone" || typ == "domain") && afd == "False"
	case SelectDiscoverable:
		ok = (typ == "anyone" || typ == "domain") && afd == "True"
	case SelectAll:
		if r.Get("role") == "owner" {
			return nil, false
		}
		switch typ {
		case "user", "group":
			email = strings.ToLower(email)
			domain = emailDomain(email)
			afd = ""
		case "domain":
			email = ""
		default:
			email, domain = "", ""
		}
		ok = true
	}
	if !ok {
		return nil, false
	}
	return indexed.FlatRow{
		"permissionId":       "id:" + r.Get("id"),
		"role":               r.Get("role"),
		"type":               typ,
		"emailAddress":       email,
		"domain":             domain,
		"allowFileDiscovery": afd,
	}, true
}

// loadDriveNames indexes an id,name file of shared drives.
func loadDriveNames(ctx context.Context, env *Env, name string) (idx lookup.Index, err error) {
	in, err := env.OpenCSV(name)
	if err != nil {
		return nil, err
	}
	defer closeInto(&err, in)

	idx, err = env.newIndex(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := lookup.Load(ctx, idx, in.Reader, "id", "name", lookup.Exact); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// driveName returns the name of a shared drive, or its id when unknown.
func driveName(ctx context.Context, idx lookup.Index, id string) (string, error) {
	name, ok, err := idx.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("lookup drive %s: %w", id, err)
	}
	if !ok {
		return id, nil
	}
	return name, nil
}

// Run writes the selected ACLs of inName to outName.
func (o DriveACLsOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	if err := o.validate(); err != nil {
		return res, err
	}

	var names lookup.Index
	if o.SharedDrives != "" {
		names, err = loadDriveNames(ctx, env, o.SharedDrives)
		if err != nil {
			return res, err
		}
		defer closeInto(&err, names)
	}

	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)

	required := []string{"id", o.OwnerColumn}
	if o.SharedDrives != "" {
		required = append(required, "driveId")
	}
	if err := in.Require(required...); err != nil {
		return res, err
	}

	out, err := env.CreateCSV(outName, o.Header())
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)

	m := newACLMatcher(o)
	plan := indexed.NewPlan(in.Header(), permissionsPrefix)
	title := o.TitleColumns
	log := logging.WithFields(ctx, "file", in.Name())

	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		base := indexed.FlatRow{
			"Owner":          row[o.OwnerColumn],
			"driveFileId":    row["id"],
			"driveFileTitle": csvio.Get(row, title, "Unknown"),
		}
		for _, c := range fileColumns {
			base[c] = row[c]
		}
		if names != nil {
			id := row["driveId"]
			name, err := driveName(ctx, names, id)
			if err != nil {
				return err
			}
			base["teamDriveId"], base["teamDriveName"] = id, name
		}

		for _, r := range plan.Decode(row) {
			vals, ok := m.match(r)
			if !ok {
				continue
			}
			for k, v := range base {
				vals[k] = v
			}
			if err := out.WriteRow(vals); err != nil {
				return err
			}
		}
		return nil
	})

	res.RowsIn, res.RowsOut = in.Rows(), out.Rows()
	log.Debug("drive acls selected", "select", string(o.Select), "files", res.RowsIn, "acls", res.RowsOut)
	return res, err
}
