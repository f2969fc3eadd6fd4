// Command statfetch downloads the latest statistical releases from the
// RBA, ABS, APRA and NSW Revenue websites into per-agency folders.
//
// A plain run fetches every built-in source:
//
//	statfetch -root "/data/Economic Data"
//
// A JSON config file can repoint or replace the catalog:
//
//	statfetch -config statfetch.json -validate
//	statfetch -config statfetch.json -only rba-payments
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"statfetch/internal/config"
	"statfetch/internal/download"
	"statfetch/internal/fetch"
	"statfetch/internal/metrics"
	"statfetch/internal/metrics/datadog"
	"statfetch/internal/source"
)

// backendCloser is the minimal interface used by this command to manage a
// metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
//
// When to use:
//   - Unit tests: inject a fake backend factory, capture stdout/stderr,
//     and disable real sleeping between retries.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
	Sleep          func(d time.Duration)
}

// runConfig holds the parsed flags for a run.
type runConfig struct {
	Root       string
	ConfigPath string
	Only       string
	Retries    int
	Wait       time.Duration
	Timeout    time.Duration
	Validate   bool

	MetricsBackend string
	DDTagsCSV      string
	FlushEvery     time.Duration
}

// main is intentionally small: it wires real dependencies and exits with a code.
func main() {
	code := run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName:    jobName,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
		},
		Sleep: time.Sleep,
	})
	os.Exit(code)
}

// run executes the downloader and returns an exit code.
//
// Exit codes:
//   - 0: run completed. Individual source failures are reported on stdout
//     but do not change the exit code; a nightly scheduler should not
//     treat one agency outage as a whole-run failure.
//   - 2: configuration/initialization error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	fileCfg := config.Config{}
	if cfg.ConfigPath != "" {
		fileCfg, err = config.Load(cfg.ConfigPath)
		if err != nil {
			fmt.Fprintf(d.Stderr, "config: %v\n", err)
			return 2
		}
	}

	issues := config.Validate(fileCfg)
	for _, iss := range issues {
		fmt.Fprintf(d.Stderr, "config %s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return 2
	}
	if cfg.Validate {
		fmt.Fprintln(d.Stdout, "config ok")
		return 0
	}

	sources := fileCfg.SourceList()
	if cfg.Only != "" {
		src, ok := source.ByName(sources, cfg.Only)
		if !ok {
			fmt.Fprintf(d.Stderr, "unknown source %q; known sources: %s\n", cfg.Only, sourceNames(sources))
			return 2
		}
		sources = []source.Source{src}
	}

	root := cfg.Root
	if fileCfg.RootDir != "" && !flagWasSet(args, "root") {
		root = fileCfg.RootDir
	}

	retries := cfg.Retries
	if fileCfg.Retries > 0 && !flagWasSet(args, "retries") {
		retries = fileCfg.Retries
	}
	wait := fileCfg.InitialWait(cfg.Wait)
	timeout := fileCfg.Timeout(cfg.Timeout)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	const jobName = "statfetch"
	if cfg.MetricsBackend == "datadog" {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := append(datadog.ParseTagsCSV(cfg.DDTagsCSV), "tool:statfetch")
		backend, err := d.BackendFactory(ctx, jobName, tags, cfg.FlushEvery)
		if err != nil {
			fmt.Fprintf(d.Stderr, "datadog backend init failed: %v\n", err)
			return 2
		}
		metrics.SetBackend(backend)
		defer func() {
			_ = metrics.Flush()
			_ = backend.Close()
		}()
	}

	fetcher := fetch.NewFetcher(timeout, d.Stdout, jobName)
	fetcher.Retries = retries
	fetcher.InitialWait = wait
	fetcher.Sleep = d.Sleep

	saver := download.NewSaver(d.Stdout, jobName)

	runner := &source.Runner{
		Fetch:   fetcher.Fetch,
		Save:    saver.Save,
		Status:  d.Stdout,
		JobName: jobName,
	}
	runner.RunAll(ctx, sources, root)

	return 0
}

// parseFlags parses command arguments into a validated runConfig.
//
// Errors:
//   - Returns an error for invalid/missing flags.
//   - Does not exit the process (caller decides exit code).
func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("statfetch", flag.ContinueOnError)

	// Capture help/usage text instead of writing to stdout.
	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)

	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage of %s:\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.Root, "root", "Economic Data", "Destination root folder for agency subfolders")
	fs.StringVar(&cfg.ConfigPath, "config", "", "Optional JSON file overriding the source catalog")
	fs.StringVar(&cfg.Only, "only", "", "Run only the named source")
	fs.IntVar(&cfg.Retries, "retries", fetch.DefaultRetries, "Total page-fetch attempts per source")
	fs.DurationVar(&cfg.Wait, "wait", fetch.DefaultInitialWait, "Initial backoff after a blocked fetch (doubles per retry)")
	fs.DurationVar(&cfg.Timeout, "timeout", fetch.DefaultTimeout, "HTTP timeout per page request")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate the config file and exit")
	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", "none", "Metrics backend: datadog or none")
	fs.StringVar(&cfg.DDTagsCSV, "dd_tags", "", "Extra Datadog tags CSV (e.g. env:prod,service:statfetch)")
	fs.DurationVar(&cfg.FlushEvery, "metrics_flush", 1*time.Minute, "Datadog flush interval")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if cfg.Root == "" {
		return runConfig{}, errors.New("-root must not be empty")
	}
	if cfg.Retries <= 0 {
		return runConfig{}, errors.New("-retries must be > 0")
	}
	if cfg.Wait <= 0 {
		return runConfig{}, errors.New("-wait must be > 0")
	}
	if cfg.Timeout <= 0 {
		return runConfig{}, errors.New("-timeout must be > 0")
	}
	if cfg.MetricsBackend != "datadog" && cfg.MetricsBackend != "none" {
		return runConfig{}, fmt.Errorf("-metrics-backend must be datadog or none, got %q", cfg.MetricsBackend)
	}

	return cfg, nil
}

// flagWasSet reports whether a flag appears explicitly in args, so a
// config-file value only applies when the command line left the default.
func flagWasSet(args []string, name string) bool {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			continue
		}
		body := strings.TrimLeft(a, "-")
		if body == name || strings.HasPrefix(body, name+"=") {
			return true
		}
	}
	return false
}

func sourceNames(sources []source.Source) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
