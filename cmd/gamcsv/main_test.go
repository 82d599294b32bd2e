package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gamcsv/internal/config"
	"gamcsv/internal/metrics"
)

type fakeDeps struct {
	env          map[string]string
	metricsCalls int
	cleanups     int
	gotOpts      config.Options
	gotRunID     string
}

func (f *fakeDeps) deps(stdin string) appDeps {
	return appDeps{
		stdin: strings.NewReader(stdin),
		lookupEnv: func(k string) (string, bool) {
			v, ok := f.env[k]
			return v, ok
		},
		loadDotEnv: func(string) error { return nil },
		initMetrics: func(_ context.Context, opts config.Options, runID string) (func() error, error) {
			f.metricsCalls++
			f.gotOpts, f.gotRunID = opts, runID
			return func() error { f.cleanups++; return nil }, nil
		},
		newRunID: func() string { return "run-1" },
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRunMain(t *testing.T) {
	dir := t.TempDir()
	mapFile := writeFile(t, dir, "map.csv", "serialNumber,deviceId\nabc1,dev-1\n")
	data := writeFile(t, dir, "data.csv", "serialNumber,user\nABC1,a@x.com\nzzz9,b@x.com\n")
	noSerial := writeFile(t, dir, "bad.csv", "sn,user\nABC1,a@x.com\n")
	files := writeFile(t, dir, "files.csv",
		"id,name,owners.0.emailAddress,permissions.0.id,permissions.0.type,permissions.0.role,permissions.0.emailAddress,"+
			"permissions.1.id,permissions.1.type,permissions.1.role,permissions.1.emailAddress\n"+
			"F1,Doc,own@x.com,a1,anyone,reader,,u1,user,writer,bob@x.com\n")

	tests := []struct {
		name       string
		args       []string
		env        map[string]string
		stdin      string
		wantCode   int
		wantStdout string
		wantStderr string
		wantInit   int
	}{
		{
			name:       "count rows from stdin",
			args:       []string{"count-rows"},
			stdin:      "a,b\n1,2\n3,4\n",
			wantCode:   exitOK,
			wantStdout: "2\n",
			wantInit:   1,
		},
		{
			name:       "unmatched rows fail after writing",
			args:       []string{"--log-level", "error", "add-cros-id", mapFile, data},
			wantCode:   exitFailure,
			wantStdout: "serialNumber,deviceId,user\nABC1,dev-1,a@x.com\nzzz9,,b@x.com\n",
			wantStderr: "Serial number zzz9 is not in",
			wantInit:   1,
		},
		{
			name:       "missing column",
			args:       []string{"add-cros-id", mapFile, noSerial},
			wantCode:   exitMissingColumn,
			wantStderr: "serialNumber",
			wantInit:   1,
		},
		{
			name:       "external ACLs include anyone by default",
			args:       []string{"--domains", "x.com", "drive-acls", "--select", "external", files},
			wantCode:   exitOK,
			wantStdout: "Owner,driveFileId,driveFileTitle,permissionId,role,type,emailAddress,domain\nown@x.com,F1,Doc,id:a1,reader,anyone,,\n",
			wantInit:   1,
		},
		{
			name:       "header map renames input columns",
			args:       []string{"--header-map", "sn=serialNumber", "add-cros-id", mapFile, noSerial},
			wantCode:   exitOK,
			wantStdout: "serialNumber,deviceId,user\nABC1,dev-1,a@x.com\n",
			wantInit:   1,
		},
		{
			name:       "strict rejects wide rows",
			args:       []string{"--strict", "count-rows"},
			stdin:      "a\n1,2\n",
			wantCode:   exitFailure,
			wantStderr: "row has 2 fields, header has 1",
			wantInit:   1,
		},
		{
			name:       "dedupe trims ids",
			args:       []string{"dedupe", "--trim"},
			stdin:      "id,n\na ,1\na,2\n",
			wantCode:   exitOK,
			wantStdout: "id,n\na,2\n",
			wantInit:   1,
		},
		{
			name:       "unknown command",
			args:       []string{"bogus"},
			wantCode:   exitUsage,
			wantStderr: "Run 'gamcsv --help' for usage.",
		},
		{
			name:       "wrong argument count",
			args:       []string{"add-cros-id", mapFile},
			wantCode:   exitUsage,
			wantStderr: "want 2 to 3 file arguments, got 1",
		},
		{
			name:       "unknown flag",
			args:       []string{"count-rows", "--bogus"},
			wantCode:   exitUsage,
			wantStderr: "unknown flag",
		},
		{
			name:       "invalid lookup backend",
			args:       []string{"--lookup", "redis", "count-rows"},
			wantCode:   exitUsage,
			wantStderr: "lookup: must be memory or sqlite",
		},
		{
			name:       "malformed environment",
			args:       []string{"count-rows"},
			env:        map[string]string{"GAMCSV_CRLF": "maybe"},
			wantCode:   exitUsage,
			wantStderr: "GAMCSV_CRLF",
		},
		{
			name:       "bad rename pair",
			args:       []string{"explode", "--prefix", "permissions", "--rename", "role"},
			wantCode:   exitUsage,
			wantStderr: "want subfield=column",
			wantInit:   1,
		},
		{
			name:       "missing input file",
			args:       []string{"count-rows", filepath.Join(dir, "nope.csv")},
			wantCode:   exitFailure,
			wantStderr: "nope.csv",
			wantInit:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := &fakeDeps{env: tt.env}
			var stdout, stderr bytes.Buffer
			code := runMain(context.Background(), tt.args, &stdout, &stderr, fd.deps(tt.stdin))

			require.Equal(t, tt.wantCode, code, "stderr: %s", stderr.String())
			if tt.wantStdout != "" {
				require.Equal(t, tt.wantStdout, stdout.String())
			}
			require.Contains(t, stderr.String(), tt.wantStderr)
			require.Equal(t, tt.wantInit, fd.metricsCalls)
			require.Equal(t, tt.wantInit, fd.cleanups)
		})
	}
}

func TestRunMain_FlagsOverrideEnvironment(t *testing.T) {
	fd := &fakeDeps{env: map[string]string{
		"GAMCSV_DOMAINS": "env.com",
		"GAMCSV_METRICS": "datadog",
	}}
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(),
		[]string{"--domains", "x.com,y.com", "--metrics-tags", "team:it", "count-rows"},
		&stdout, &stderr, fd.deps("h\n"))

	require.Equal(t, exitOK, code, "stderr: %s", stderr.String())
	require.Equal(t, []string{"x.com", "y.com"}, fd.gotOpts.Domains)
	require.Equal(t, "datadog", fd.gotOpts.Metrics)
	require.Equal(t, []string{"team:it"}, fd.gotOpts.MetricsTags)
	require.Equal(t, "run-1", fd.gotRunID)
	require.Equal(t, "0\n", stdout.String())
}

func TestRunMain_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gamcsv.hcl", "crlf = true\n")
	in := writeFile(t, dir, "in.csv", "k,v\na,1\na,2\nb,3\n")

	fd := &fakeDeps{}
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(),
		[]string{"--config", cfg, "combine-key-values", "--key", "k", "--value", "v", in},
		&stdout, &stderr, fd.deps(""))

	require.Equal(t, exitOK, code, "stderr: %s", stderr.String())
	require.Equal(t, "k,v\r\na,1 2\r\nb,3\r\n", stdout.String())
}

// TestRootCommand_FlagDefaults pins the defaults users rely on when a flag
// is omitted.
func TestRootCommand_FlagDefaults(t *testing.T) {
	root := (&app{}).rootCommand()

	tests := []struct {
		command string
		flag    string
		want    string
	}{
		{"drive-acls", "include-anyone", "true"},
		{"drive-acls", "exclusive", "true"},
		{"drive-acls", "allow-file-discovery", "Any"},
		{"external-share-counts", "include-anyone", "true"},
		{"external-share-counts", "exclusive", "true"},
		{"merge-user-data", "data-key", "primaryEmail"},
		{"merge-user-data", "merge-key", "User"},
		{"merge-user-data", "lowercase-keys", "true"},
		{"merge-user-data", "retain-merge-key", "false"},
		{"merge-user-data", "output-unmerged", "false"},
		{"dedupe", "id-fields", "[id]"},
		{"shared-drive-organizers", "delimiter", " "},
		{"shared-drive-organizers", "all-organizers", "false"},
		{"shared-drive-organizers", "hide-no-organizers", "false"},
		{"shared-drive-organizers", "file-organizers", "false"},
		{"gamcsv", "quote-char", `"`},
		{"gamcsv", "strict", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			cmd := root
			if tt.command != root.Name() {
				var err error
				cmd, _, err = root.Find([]string{tt.command})
				require.NoError(t, err)
			}
			f := cmd.Flags().Lookup(tt.flag)
			if f == nil {
				f = cmd.PersistentFlags().Lookup(tt.flag)
			}
			require.NotNil(t, f, "flag --%s of %s", tt.flag, tt.command)
			require.Equal(t, tt.want, f.DefValue)
		})
	}
}

type countingBackend struct {
	commands int
	flushes  int
}

func (b *countingBackend) IncCounter(name string, _ float64, _ metrics.Labels) {
	if name == metrics.CommandTotal {
		b.commands++
	}
}

func (b *countingBackend) ObserveHistogram(string, float64, metrics.Labels) {}

func (b *countingBackend) Flush() error {
	b.flushes++
	return nil
}

func TestRunMain_FlushesMetricsAfterCommand(t *testing.T) {
	b := &countingBackend{}
	prev := metrics.SetBackend(b)
	defer metrics.SetBackend(prev)

	fd := &fakeDeps{}
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"count-rows"}, &stdout, &stderr, fd.deps("a\n1\n"))

	require.Equal(t, exitOK, code, "stderr: %s", stderr.String())
	require.Equal(t, 1, b.commands)
	require.Equal(t, 1, b.flushes)
}
