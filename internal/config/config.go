// Package config holds the tunables shared by gamcsv commands and loads them
// from, in increasing precedence: built-in defaults, an HCL or JSON config
// file, GAMCSV_* environment variables (optionally from a .env file), and
// finally command-line flags applied by the binary.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"gamcsv/internal/csvio"
	"gamcsv/internal/logging"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
)

// Options is the resolved configuration of one gamcsv run.
//
// Absent attributes in a config file leave the current value untouched, so a
// file only needs to name what it changes.
type Options struct {
	// CSV dialect.
	QuoteChar string `hcl:"quote_char,optional"`
	CRLF      bool   `hcl:"crlf,optional"`

	// HeaderMap renames input header columns (old = new) in every file read.
	// StrictWidth rejects input rows with more fields than their header.
	HeaderMap   map[string]string `hcl:"header_map,optional"`
	StrictWidth bool              `hcl:"strict_width,optional"`

	LogLevel  string `hcl:"log_level,optional"`
	LogFormat string `hcl:"log_format,optional"`

	// Lookup selects the join index backend: "memory" or "sqlite".
	Lookup string `hcl:"lookup,optional"`

	// Metrics selects the metrics backend: "none" or "datadog".
	Metrics             string   `hcl:"metrics,optional"`
	MetricsTags         []string `hcl:"metrics_tags,optional"`
	MetricsFlushSeconds int      `hcl:"metrics_flush_seconds,optional"`

	// Principal lists used by the ACL and attendee filters.
	Domains []string `hcl:"domains,optional"`
	Users   []string `hcl:"users,optional"`
	Groups  []string `hcl:"groups,optional"`

	AttendeePattern string `hcl:"attendee_pattern,optional"`

	// Drive export column names; older exports use "Owner" and "title".
	OwnerColumn  string   `hcl:"owner_column,optional"`
	TitleColumns []string `hcl:"title_columns,optional"`
	SkipDeleted  bool     `hcl:"skip_deleted,optional"`
}

// Default returns the built-in configuration.
func Default() Options {
	return Options{
		QuoteChar:           `"`,
		LogLevel:            "info",
		LogFormat:           "text",
		Lookup:              "memory",
		Metrics:             "none",
		MetricsFlushSeconds: 60,
		OwnerColumn:         "owners.0.emailAddress",
		TitleColumns:        []string{"name", "title"},
		SkipDeleted:         true,
	}
}

// Dialect returns the CSV dialect described by the options. Callers run
// Validate first; an unparsable quote char falls back to '"'.
func (o Options) Dialect() csvio.Dialect {
	q, err := csvio.ParseQuote(o.QuoteChar)
	if err != nil {
		q = '"'
	}
	d := csvio.Dialect{Comma: ',', Quote: q, LineTerminator: "\n"}
	if o.CRLF {
		d.LineTerminator = "\r\n"
	}
	return d
}

// FlushEvery is MetricsFlushSeconds as a duration.
func (o Options) FlushEvery() time.Duration {
	return time.Duration(o.MetricsFlushSeconds) * time.Second
}

// LoadFile decodes path over o. Files ending in .json use the HCL JSON
// syntax; everything else is parsed as native HCL.
func (o *Options) LoadFile(path string) error {
	parser := hclparse.NewParser()

	var (
		body  = parser.ParseHCLFile
		label = "HCL"
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		body, label = parser.ParseJSONFile, "JSON"
	}

	f, diags := body(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse %s config %s: %w", label, path, diags)
	}
	if diags := gohcl.DecodeBody(f.Body, nil, o); diags.HasErrors() {
		return fmt.Errorf("decode config %s: %w", path, diags)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "GAMCSV_"

// ApplyEnv overrides o from GAMCSV_* variables. lookup is usually
// os.LookupEnv. List values are comma separated.
//
// Errors:
//   - Malformed booleans and integers name the offending variable.
func (o *Options) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = SplitList(v)
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
	}
	integer := func(name string, dst *int) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "QUOTE_CHAR"); ok {
		o.QuoteChar = v
	}
	boolean("CRLF", &o.CRLF)
	if v, ok := lookup(EnvPrefix + "HEADER_MAP"); ok {
		m, err := ParsePairs(strings.Split(v, ","))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sHEADER_MAP: %w", EnvPrefix, err))
		} else {
			o.HeaderMap = m
		}
	}
	boolean("STRICT_WIDTH", &o.StrictWidth)
	str("LOG_LEVEL", &o.LogLevel)
	str("LOG_FORMAT", &o.LogFormat)
	str("LOOKUP", &o.Lookup)
	str("METRICS", &o.Metrics)
	list("METRICS_TAGS", &o.MetricsTags)
	integer("METRICS_FLUSH_SECONDS", &o.MetricsFlushSeconds)
	list("DOMAINS", &o.Domains)
	list("USERS", &o.Users)
	list("GROUPS", &o.Groups)
	str("ATTENDEE_PATTERN", &o.AttendeePattern)
	str("OWNER_COLUMN", &o.OwnerColumn)
	list("TITLE_COLUMNS", &o.TitleColumns)
	boolean("SKIP_DELETED", &o.SkipDeleted)

	return errors.Join(errs...)
}

// SplitList splits a comma or space separated list, dropping empty items.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ParsePairs reads old=new items into a map. Blank items are skipped.
func ParsePairs(items []string) (map[string]string, error) {
	m := make(map[string]string, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		k, v, ok := strings.Cut(it, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("want old=new, got %q", it)
		}
		m[k] = v
	}
	return m, nil
}

// Load resolves defaults, the optional config file and the environment.
// Flags are applied by the caller afterwards.
func Load(path string, lookup func(string) (string, bool)) (Options, error) {
	o := Default()
	if path != "" {
		if err := o.LoadFile(path); err != nil {
			return o, err
		}
	}
	if lookup != nil {
		if err := o.ApplyEnv(lookup); err != nil {
			return o, err
		}
	}
	return o, nil
}

// Validate checks o and returns every problem found.
func (o Options) Validate() []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if q, err := csvio.ParseQuote(o.QuoteChar); err != nil {
		add(SeverityError, "quote_char", "%v", err)
	} else if err := (csvio.Dialect{Quote: q}).Validate(); err != nil {
		add(SeverityError, "quote_char", "%v", err)
	}

	for _, k := range slices.Sorted(maps.Keys(o.HeaderMap)) {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(o.HeaderMap[k]) == "" {
			add(SeverityError, "header_map", "empty column name in %q = %q", k, o.HeaderMap[k])
		}
	}

	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		add(SeverityError, "log_level", "%v", err)
	}
	switch strings.ToLower(o.LogFormat) {
	case "", "text", "json":
	default:
		add(SeverityError, "log_format", "must be text or json, got %q", o.LogFormat)
	}

	switch o.Lookup {
	case "memory", "sqlite":
	default:
		add(SeverityError, "lookup", "must be memory or sqlite, got %q", o.Lookup)
	}

	switch o.Metrics {
	case "", "none", "datadog":
	default:
		add(SeverityError, "metrics", "must be none or datadog, got %q", o.Metrics)
	}
	if o.Metrics == "datadog" && o.MetricsFlushSeconds <= 0 {
		add(SeverityWarn, "metrics_flush_seconds", "non-positive value, the backend default of 60s applies")
	}

	if o.AttendeePattern != "" {
		if _, err := regexp.Compile(o.AttendeePattern); err != nil {
			add(SeverityError, "attendee_pattern", "invalid regular expression: %v", err)
		}
	}

	for i, d := range o.Domains {
		if strings.Contains(d, "@") {
			add(SeverityWarn, fmt.Sprintf("domains[%d]", i), "%q looks like an email address, not a domain", d)
		}
	}

	if strings.TrimSpace(o.OwnerColumn) == "" {
		add(SeverityError, "owner_column", "must not be empty")
	}
	if len(o.TitleColumns) == 0 {
		add(SeverityWarn, "title_columns", "empty, every title will be Unknown")
	}

	return issues
}
