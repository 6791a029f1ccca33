// Package main wires the wlgen CLI entrypoint: a workload mix generator
// that spawns Batch, Interactive, Periodic and YieldBurst workers, starts
// them simultaneously and reports the measured run time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"wlgen/internal/buildinfo"
	"wlgen/pkg/run"
)

const (
	defaultLogLevel = "info"

	exitCodeSuccess      = 0
	exitCodeRuntimeError = 1
	exitCodeParseError   = 2
)

func main() {
	code := runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if code != 0 {
		exitProcess(code)
	}
}

var exitProcess = os.Exit //nolint:gochecknoglobals // replaceable for tests

var errInvalidLogLevel = errors.New("invalid log level")

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitCodeSuccess
		}

		return writeError(stderr, err, exitCodeParseError)
	}

	merged, err := loadSettings(opts.configPath)
	if err != nil {
		return writeError(
			stderr,
			fmt.Errorf("failed to load configuration: %w", err),
			exitCodeRuntimeError,
		)
	}

	err = applyFlagOverrides(&merged, opts)
	if err != nil {
		return writeError(stderr, err, exitCodeParseError)
	}

	cfg, err := merged.runConfig()
	if err != nil {
		return writeError(stderr, err, exitCodeParseError)
	}

	logger, err := newLogger(opts.logLevel, opts.verbose)
	if err != nil {
		return writeError(
			stderr,
			fmt.Errorf("failed to configure logger: %w", err),
			exitCodeRuntimeError,
		)
	}

	defer func() {
		_ = logger.Sync()
	}()

	info := buildinfo.Current()
	logger.Debug(
		"starting wlgen",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("buildDate", info.BuildDate),
	)

	coord, err := run.New(cfg, logger)
	if err != nil {
		return writeError(stderr, err, exitCodeParseError)
	}

	printBanner(stdout, cfg)

	stopProgress := func() {}
	if !opts.noProgress {
		stopProgress = trackProgress(stdout, coord, cfg.Duration)
	}

	result, err := coord.Run(ctx)

	stopProgress()

	if err != nil {
		logger.Error("run failed", zap.Error(err))

		return exitCodeRuntimeError
	}

	printReport(stdout, result)

	return exitCodeSuccess
}

func writeError(dst io.Writer, err error, code int) int {
	if err == nil {
		return code
	}

	_, _ = fmt.Fprintf(dst, "%v\n", err)

	return code
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if level == "" {
		level = defaultLogLevel
	}

	if verbose {
		level = "debug"
	}

	cfg := zap.NewProductionConfig()

	err := cfg.Level.UnmarshalText([]byte(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return logger, nil
}

type options struct {
	configPath string
	logLevel   string
	verbose    bool
	noProgress bool

	duration        int
	batch           int
	interactiveSpec string
	periodicSpec    string
	yieldSpec       string
	seed            uint64
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	opts := options{duration: -1, batch: -1}

	flagSet := flag.NewFlagSet("wlgen", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		printUsage(stderr, flagSet)
	}

	flagSet.StringVar(&opts.configPath, "config", "",
		"Path to an optional YAML configuration file")
	flagSet.StringVar(&opts.logLevel, "log-level", defaultLogLevel,
		"Structured log level (debug, info, warn, error)")
	flagSet.BoolVar(&opts.verbose, "verbose", false,
		"Enable verbose output (forces debug log level)")
	flagSet.BoolVar(&opts.noProgress, "no-progress", false,
		"Disable the run progress bar")
	flagSet.IntVar(&opts.duration, "d", -1,
		"Test duration in whole seconds (default 5)")
	flagSet.IntVar(&opts.batch, "b", -1,
		"Spawn N batch workers")
	flagSet.StringVar(&opts.interactiveSpec, "i", "",
		"Spawn interactive workers: N,intervalMax,durationMax ([us])")
	flagSet.StringVar(&opts.periodicSpec, "p", "",
		"Spawn periodic workers: N,period,dutyCycle ([us], [%])")
	flagSet.StringVar(&opts.yieldSpec, "y", "",
		"Spawn yield-burst workers: N,burstPeriod,yieldInterval ([us])")
	flagSet.Uint64Var(&opts.seed, "seed", 0,
		"Base random seed for reproducible runs (0 seeds from thread ids)")

	err := flagSet.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return options{}, err
		}

		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.logLevel = strings.TrimSpace(opts.logLevel)

	return opts, nil
}

func printUsage(dst io.Writer, flagSet *flag.FlagSet) {
	_, _ = fmt.Fprintf(dst, "Usage: wlgen [options]\n\n")
	_, _ = fmt.Fprintf(dst, "Workload kinds:\n")
	_, _ = fmt.Fprintf(dst, "  batch        uninterrupted busy loops, no voluntary preemption\n")
	_, _ = fmt.Fprintf(dst, "  interactive  random sleep up to intervalMax, then random busy spin up to durationMax\n")
	_, _ = fmt.Fprintf(dst, "  periodic     fixed period split into an idle sleep and a busy spin by dutyCycle\n")
	_, _ = fmt.Fprintf(dst, "  yield-burst  busy burst, then an equal burst yielding every yieldInterval\n\n")
	_, _ = fmt.Fprintf(dst, "Options:\n")
	flagSet.PrintDefaults()
}
