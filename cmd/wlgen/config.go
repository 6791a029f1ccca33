package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wlgen/pkg/run"
	"wlgen/pkg/workload"
)

const (
	envDuration        = "WLGEN_DURATION"
	envSeed            = "WLGEN_SEED"
	envBatchWorkers    = "WLGEN_BATCH_WORKERS"
	envInteractiveSpec = "WLGEN_INTERACTIVE_SPEC"
	envPeriodicSpec    = "WLGEN_PERIODIC_SPEC"
	envYieldSpec       = "WLGEN_YIELD_SPEC"

	defaultDurationSeconds = 5
)

var (
	errInvalidWorkerSpec = errors.New("invalid worker specification")
	errDurationSeconds   = errors.New("test duration must be a positive whole number of seconds")
)

// settings is the mutable merge target for defaults, config file, env and
// flags, resolved once into an immutable run.Config.
type settings struct {
	DurationSeconds int
	Seed            uint64

	Batch       int
	Interactive kindSpec
	Periodic    kindSpec
	Yield       kindSpec
}

// kindSpec is a worker count plus the two per-kind numeric parameters in
// the original N,P1,P2 order.
type kindSpec struct {
	Workers int
	P1      uint32
	P2      uint32
}

type fileConfig struct {
	Duration *int    `yaml:"duration"`
	Seed     *uint64 `yaml:"seed"`

	Batch       *batchFileConfig       `yaml:"batch"`
	Interactive *interactiveFileConfig `yaml:"interactive"`
	Periodic    *periodicFileConfig    `yaml:"periodic"`
	Yield       *yieldFileConfig       `yaml:"yieldBurst"`
}

type batchFileConfig struct {
	Workers *int `yaml:"workers"`
}

type interactiveFileConfig struct {
	Workers     *int    `yaml:"workers"`
	IntervalMax *uint32 `yaml:"intervalMax"`
	DurationMax *uint32 `yaml:"durationMax"`
}

type periodicFileConfig struct {
	Workers   *int    `yaml:"workers"`
	Period    *uint32 `yaml:"period"`
	DutyCycle *uint32 `yaml:"dutyCycle"`
}

type yieldFileConfig struct {
	Workers       *int    `yaml:"workers"`
	BurstPeriod   *uint32 `yaml:"burstPeriod"`
	YieldInterval *uint32 `yaml:"yieldInterval"`
}

func defaultSettings() settings {
	return settings{DurationSeconds: defaultDurationSeconds}
}

func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()

	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		data, err := os.ReadFile(trimmed)
		if err != nil {
			return settings{}, fmt.Errorf("read config file %q: %w", trimmed, err)
		}

		var fileCfg fileConfig

		err = yaml.Unmarshal(data, &fileCfg)
		if err != nil {
			return settings{}, fmt.Errorf("decode config file %q: %w", trimmed, err)
		}

		mergeFileConfig(&cfg, fileCfg)
	}

	err := applyEnvOverrides(&cfg)
	if err != nil {
		return settings{}, err
	}

	return cfg, nil
}

func mergeFileConfig(dst *settings, src fileConfig) {
	assignInt(&dst.DurationSeconds, src.Duration)
	assignUint64(&dst.Seed, src.Seed)

	if src.Batch != nil {
		assignInt(&dst.Batch, src.Batch.Workers)
	}

	if src.Interactive != nil {
		assignInt(&dst.Interactive.Workers, src.Interactive.Workers)
		assignUint32(&dst.Interactive.P1, src.Interactive.IntervalMax)
		assignUint32(&dst.Interactive.P2, src.Interactive.DurationMax)
	}

	if src.Periodic != nil {
		assignInt(&dst.Periodic.Workers, src.Periodic.Workers)
		assignUint32(&dst.Periodic.P1, src.Periodic.Period)
		assignUint32(&dst.Periodic.P2, src.Periodic.DutyCycle)
	}

	if src.Yield != nil {
		assignInt(&dst.Yield.Workers, src.Yield.Workers)
		assignUint32(&dst.Yield.P1, src.Yield.BurstPeriod)
		assignUint32(&dst.Yield.P2, src.Yield.YieldInterval)
	}
}

var lookupEnv = os.LookupEnv //nolint:gochecknoglobals // overridden in tests

func applyEnvOverrides(cfg *settings) error {
	if value, ok := lookupEnv(envDuration); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", envDuration, err)
		}

		cfg.DurationSeconds = parsed
	}

	if value, ok := lookupEnv(envSeed); ok {
		parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envSeed, err)
		}

		cfg.Seed = parsed
	}

	if value, ok := lookupEnv(envBatchWorkers); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", envBatchWorkers, err)
		}

		cfg.Batch = parsed
	}

	for _, override := range []struct {
		env  string
		spec *kindSpec
	}{
		{envInteractiveSpec, &cfg.Interactive},
		{envPeriodicSpec, &cfg.Periodic},
		{envYieldSpec, &cfg.Yield},
	} {
		value, ok := lookupEnv(override.env)
		if !ok {
			continue
		}

		spec, err := parseKindSpec(value)
		if err != nil {
			return fmt.Errorf("%s: %w", override.env, err)
		}

		*override.spec = spec
	}

	return nil
}

func applyFlagOverrides(cfg *settings, opts options) error {
	if opts.duration >= 0 {
		cfg.DurationSeconds = opts.duration
	}

	if opts.seed != 0 {
		cfg.Seed = opts.seed
	}

	if opts.batch >= 0 {
		cfg.Batch = opts.batch
	}

	for _, override := range []struct {
		raw  string
		spec *kindSpec
	}{
		{opts.interactiveSpec, &cfg.Interactive},
		{opts.periodicSpec, &cfg.Periodic},
		{opts.yieldSpec, &cfg.Yield},
	} {
		if override.raw == "" {
			continue
		}

		spec, err := parseKindSpec(override.raw)
		if err != nil {
			return err
		}

		*override.spec = spec
	}

	return nil
}

// parseKindSpec reads the original comma syntax: a worker count, optionally
// followed by the two kind parameters, e.g. "2,1000,500".
func parseKindSpec(raw string) (kindSpec, error) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) != 1 && len(fields) != 3 {
		return kindSpec{}, fmt.Errorf(
			"%w: %q (want N or N,P1,P2)", errInvalidWorkerSpec, raw)
	}

	workers, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || workers < 0 {
		return kindSpec{}, fmt.Errorf("%w: bad worker count %q", errInvalidWorkerSpec, fields[0])
	}

	spec := kindSpec{Workers: workers}

	if len(fields) == 3 {
		p1, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
		if err != nil {
			return kindSpec{}, fmt.Errorf("%w: bad parameter %q", errInvalidWorkerSpec, fields[1])
		}

		p2, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 32)
		if err != nil {
			return kindSpec{}, fmt.Errorf("%w: bad parameter %q", errInvalidWorkerSpec, fields[2])
		}

		spec.P1 = uint32(p1)
		spec.P2 = uint32(p2)
	}

	return spec, nil
}

// runConfig resolves the merged settings into the immutable core config,
// enforcing the boundary constraints before any worker is created.
func (s settings) runConfig() (run.Config, error) {
	if s.DurationSeconds < 0 {
		return run.Config{}, fmt.Errorf("%w: got %d", errDurationSeconds, s.DurationSeconds)
	}

	cfg := run.Config{
		Duration:    time.Duration(s.DurationSeconds) * time.Second,
		Seed:        s.Seed,
		Batch:       s.Batch,
		Interactive: s.Interactive.Workers,
		Periodic:    s.Periodic.Workers,
		YieldBurst:  s.Yield.Workers,
		InteractiveParams: workload.InteractiveParams{
			IntervalMax: s.Interactive.P1,
			DurationMax: s.Interactive.P2,
		},
		PeriodicParams: workload.PeriodicParams{
			Period:    s.Periodic.P1,
			DutyCycle: s.Periodic.P2,
		},
		YieldBurstParams: workload.YieldBurstParams{
			BurstPeriod:   s.Yield.P1,
			YieldInterval: s.Yield.P2,
		},
	}

	if err := cfg.Validate(); err != nil {
		return run.Config{}, err
	}

	return cfg, nil
}

func assignInt(target *int, value *int) {
	if value != nil {
		*target = *value
	}
}

func assignUint32(target *uint32, value *uint32) {
	if value != nil {
		*target = *value
	}
}

func assignUint64(target *uint64, value *uint64) {
	if value != nil {
		*target = *value
	}
}
