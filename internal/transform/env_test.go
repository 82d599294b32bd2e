package transform

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gamcsv/internal/csvio"
	"gamcsv/internal/logging"
	"gamcsv/internal/lookup"
	_ "gamcsv/internal/lookup/all"
)

// testEnv is an Env writing stdout and stderr to buffers, with files under a
// temporary directory.
type testEnv struct {
	*Env
	dir    string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	te := &testEnv{dir: dir, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	te.Env = &Env{
		Stdin:   strings.NewReader(""),
		Stdout:  te.stdout,
		Stderr:  te.stderr,
		Dialect: csvio.DefaultDialect(),
		Lookup:  lookup.Options{Dir: dir},
	}
	return te
}

// file writes content to name and returns its path.
func (te *testEnv) file(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(te.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (te *testEnv) path(name string) string { return filepath.Join(te.dir, name) }

func (te *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(te.path(name))
	require.NoError(t, err)
	return string(b)
}

func lines(s ...string) string { return strings.Join(s, "\n") + "\n" }

func TestEnv_CreateCSVToStdout(t *testing.T) {
	te := newTestEnv(t)
	out, err := te.CreateCSV("-", []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, out.WriteRow(map[string]string{"a": "1", "b": "x,y"}))
	require.NoError(t, out.Close())
	require.Equal(t, lines("a,b", `1,"x,y"`), te.stdout.String())
}

func TestEnv_OpenCSVMissingFile(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.OpenCSV(te.path("nope.csv"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestEnv_OpenCSVAppliesInputOptions(t *testing.T) {
	te := newTestEnv(t)
	te.HeaderMap = map[string]string{"title": "name"}
	te.StrictWidth = true
	p := te.file(t, "in.csv", lines("id,title", "1,Doc", "2,Memo,extra"))

	in, err := te.OpenCSV(p)
	require.NoError(t, err)
	defer in.Close()
	require.Equal(t, []string{"id", "name"}, in.Header())

	_, err = in.ReadAll(context.Background())
	var pe *csvio.ParseError
	require.ErrorAs(t, err, &pe)
	require.ErrorContains(t, err, "row has 3 fields, header has 2")
}

func TestReport_CountsAndPrints(t *testing.T) {
	te := newTestEnv(t)
	r := te.NewReport(context.Background())
	r.Unmatched("key %s missing", "a")
	r.Unmatched("key %s missing", "b")
	require.Equal(t, 2, r.Count())
	require.Equal(t, lines("key a missing", "key b missing"), te.stderr.String())
}

func TestReport_LogsThroughContextLogger(t *testing.T) {
	te := newTestEnv(t)
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "debug", "text")
	require.NoError(t, err)

	r := te.NewReport(logging.WithLogger(context.Background(), logger.With("command", "merge-user-data")))
	r.Unmatched("key %s missing", "a")
	require.Contains(t, buf.String(), `detail="key a missing"`)
	require.Contains(t, buf.String(), "command=merge-user-data")
}

func TestUsagef_IsUsage(t *testing.T) {
	err := Usagef("bad %s", "flag")
	require.True(t, IsUsage(err))
	require.EqualError(t, err, "bad flag")
	require.False(t, IsUsage(errors.New("bad flag")))
}
