// Command gamcsv transforms the CSV exports of a directory administration
// tool: exploding repeated column groups, joining files by key, filtering
// Drive ACLs and counting values.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gamcsv/internal/config"
	"gamcsv/internal/csvio"
	"gamcsv/internal/logging"
	"gamcsv/internal/metrics"
	"gamcsv/internal/metrics/datadog"
	"gamcsv/internal/transform"

	// register every lookup backend; --lookup picks one.
	_ "gamcsv/internal/lookup/all"
)

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitUsage         = 2
	exitMissingColumn = 3
)

// appDeps are the process-level seams runMain depends on.
type appDeps struct {
	stdin       io.Reader
	lookupEnv   func(string) (string, bool)
	loadDotEnv  func(path string) error
	initMetrics func(ctx context.Context, opts config.Options, runID string) (func() error, error)
	newRunID    func() string
}

func defaultDeps() appDeps {
	return appDeps{
		stdin:       os.Stdin,
		lookupEnv:   os.LookupEnv,
		loadDotEnv:  config.LoadDotEnv,
		initMetrics: initMetrics,
		newRunID:    uuid.NewString,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// globalFlags are the persistent flags; each overrides the matching
// config.Options field when set.
type globalFlags struct {
	configPath  string
	quoteChar   string
	crlf        bool
	logLevel    string
	logFormat   string
	lookup      string
	metrics     string
	metricsTags string
	headerMap   map[string]string
	strict      bool

	domains         []string
	users           []string
	groups          []string
	attendeePattern string
	ownerColumn     string
	titleColumns    []string
	skipDeleted     bool
}

// app is the state of one invocation.
type app struct {
	deps   appDeps
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags

	opts    config.Options
	log     *slog.Logger
	env     *transform.Env
	cleanup func() error

	// started is set once a command body runs; errors before that are
	// usage errors.
	started bool
	result  transform.Result
}

// runMain executes one gamcsv invocation and returns the process exit code.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	a := &app{deps: deps, stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.cleanup != nil {
		if cerr := a.cleanup(); cerr != nil && a.log != nil {
			a.log.Warn("metrics shutdown failed", "error", cerr)
		}
	}

	code := a.exitCode(err)
	if err != nil {
		fmt.Fprintf(stderr, "gamcsv: %v\n", err)
		if code == exitUsage && !a.started {
			fmt.Fprintln(stderr, "Run 'gamcsv --help' for usage.")
		}
	}
	return code
}

func (a *app) exitCode(err error) int {
	var (
		missing *csvio.MissingColumnError
		invalid *config.ValidationError
		usage   *transform.UsageError
	)
	switch {
	case err == nil:
		if a.result.Unmatched > 0 {
			return exitFailure
		}
		return exitOK
	case errors.As(err, &missing):
		return exitMissingColumn
	case errors.As(err, &invalid), errors.As(err, &usage):
		return exitUsage
	case !a.started:
		return exitUsage
	default:
		return exitFailure
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gamcsv",
		Short: "Transform directory tool CSV exports",
		Long: "gamcsv reads CSV exports (\"-\" is stdin) and writes CSV (\"-\" is stdout).\n" +
			"Exit codes: 0 ok, 1 unmatched rows or I/O failure, 2 usage or configuration error,\n" +
			"3 missing required column.",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &transform.UsageError{Err: err}
	})

	def := config.Default()
	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", "config file (.hcl or .json)")
	f.StringVar(&a.flags.quoteChar, "quote-char", def.QuoteChar, "CSV quote character")
	f.BoolVar(&a.flags.crlf, "crlf", false, "write \\r\\n line terminators")
	f.StringVar(&a.flags.logLevel, "log-level", def.LogLevel, "debug, info, warn or error")
	f.StringVar(&a.flags.logFormat, "log-format", def.LogFormat, "text or json")
	f.StringVar(&a.flags.lookup, "lookup", def.Lookup, "join index backend: memory or sqlite")
	f.StringVar(&a.flags.metrics, "metrics", def.Metrics, "metrics backend: none or datadog")
	f.StringVar(&a.flags.metricsTags, "metrics-tags", "", "extra metric tags, comma separated (team:it,env:prod)")
	f.StringToStringVar(&a.flags.headerMap, "header-map", nil, "rename input columns, old=new pairs comma separated")
	f.BoolVar(&a.flags.strict, "strict", false, "reject input rows wider than their header")
	f.StringSliceVar(&a.flags.domains, "domains", nil, "domains of the organization")
	f.StringSliceVar(&a.flags.users, "users", nil, "users selected by ACL filters")
	f.StringSliceVar(&a.flags.groups, "groups", nil, "groups selected by ACL filters")
	f.StringVar(&a.flags.attendeePattern, "pattern", "", "regular expression attendee addresses must match")
	f.StringVar(&a.flags.ownerColumn, "owner-column", def.OwnerColumn, "Drive export column holding the file owner")
	f.StringSliceVar(&a.flags.titleColumns, "title-columns", def.TitleColumns, "Drive export columns tried for the file title")
	f.BoolVar(&a.flags.skipDeleted, "skip-deleted", def.SkipDeleted, "ignore ACLs of deleted principals")

	root.AddCommand(a.commands()...)
	return root
}

// setup resolves the configuration and builds the logger, metrics backend
// and transform environment.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.deps.loadDotEnv(".env"); err != nil {
		return err
	}
	opts, err := config.Load(a.flags.configPath, a.deps.lookupEnv)
	if err != nil {
		return err
	}
	a.applyFlags(cmd, &opts)

	issues := opts.Validate()
	if err := config.Check(issues); err != nil {
		return err
	}
	a.opts = opts

	logger, err := logging.New(a.stderr, opts.LogLevel, opts.LogFormat)
	if err != nil {
		return &config.ValidationError{Issues: []config.Issue{{Severity: config.SeverityError, Path: "log_level", Message: err.Error()}}}
	}
	runID := a.deps.newRunID()
	a.log = logger.With("command", cmd.Name(), "run_id", runID)
	for _, iss := range config.Warnings(issues) {
		a.log.Warn("configuration", "path", iss.Path, "issue", iss.Message)
	}
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.log))

	cleanup, err := a.deps.initMetrics(cmd.Context(), opts, runID)
	if err != nil {
		a.log.Warn("metrics backend unavailable, using nop", "backend", opts.Metrics, "error", err)
	} else {
		a.cleanup = cleanup
	}

	a.env = &transform.Env{
		Stdin:       a.deps.stdin,
		Stdout:      a.stdout,
		Stderr:      a.stderr,
		Dialect:     opts.Dialect(),
		HeaderMap:   opts.HeaderMap,
		StrictWidth: opts.StrictWidth,
	}
	a.env.Lookup.Kind = opts.Lookup
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, o *config.Options) {
	f := cmd.Flags()
	if f.Changed("quote-char") {
		o.QuoteChar = a.flags.quoteChar
	}
	if f.Changed("crlf") {
		o.CRLF = a.flags.crlf
	}
	if f.Changed("log-level") {
		o.LogLevel = a.flags.logLevel
	}
	if f.Changed("log-format") {
		o.LogFormat = a.flags.logFormat
	}
	if f.Changed("header-map") {
		o.HeaderMap = a.flags.headerMap
	}
	if f.Changed("strict") {
		o.StrictWidth = a.flags.strict
	}
	if f.Changed("lookup") {
		o.Lookup = a.flags.lookup
	}
	if f.Changed("metrics") {
		o.Metrics = a.flags.metrics
	}
	if f.Changed("metrics-tags") {
		o.MetricsTags = datadog.ParseTagsCSV(a.flags.metricsTags)
	}
	if f.Changed("domains") {
		o.Domains = a.flags.domains
	}
	if f.Changed("users") {
		o.Users = a.flags.users
	}
	if f.Changed("groups") {
		o.Groups = a.flags.groups
	}
	if f.Changed("pattern") {
		o.AttendeePattern = a.flags.attendeePattern
	}
	if f.Changed("owner-column") {
		o.OwnerColumn = a.flags.ownerColumn
	}
	if f.Changed("title-columns") {
		o.TitleColumns = a.flags.titleColumns
	}
	if f.Changed("skip-deleted") {
		o.SkipDeleted = a.flags.skipDeleted
	}
}

// exec runs a command body, logs its outcome and records its metrics.
func (a *app) exec(cmd *cobra.Command, body func(ctx context.Context, env *transform.Env) (transform.Result, error)) error {
	a.started = true
	start := time.Now()
	res, err := body(cmd.Context(), a.env)
	a.result = res
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case res.Unmatched > 0:
		status = "unmatched"
	}
	metrics.RecordCommand(cmd.Name(), status, elapsed, res.RowsIn, res.RowsOut, res.Unmatched)
	if ferr := metrics.Flush(); ferr != nil {
		a.log.Warn("metrics flush failed", "error", ferr)
	}

	attrs := []any{"rows_in", res.RowsIn, "rows_out", res.RowsOut, "unmatched", res.Unmatched, "duration", elapsed}
	if err != nil {
		a.log.Debug("command failed", append(attrs, "error", err)...)
		return err
	}
	a.log.Info("command done", attrs...)
	return nil
}
