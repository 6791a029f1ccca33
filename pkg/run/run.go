// Package run wires a configured worker population to the start barrier,
// releases them simultaneously and measures the wall-clock span of the run.
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"wlgen/pkg/barrier"
	"wlgen/pkg/mclock"
	"wlgen/pkg/worker"
	"wlgen/pkg/workload"
)

// readinessPollInterval paces the coordinator's scan over the per-worker
// readiness markers while workers initialize.
const readinessPollInterval = time.Millisecond

var (
	// ErrNegativeDuration rejects runs configured with a negative duration.
	ErrNegativeDuration = errors.New("run: test duration must not be negative")
	// ErrNegativeCount rejects negative per-kind worker counts.
	ErrNegativeCount = errors.New("run: worker count must not be negative")
	// ErrNoWorkers rejects configurations that would start an empty run.
	ErrNoWorkers = errors.New("run: at least one worker is required")
)

// Config is the resolved, immutable description of one run: the nominal
// duration plus a worker count and parameter set per workload kind. It is
// built once by the boundary layer and passed by value.
type Config struct {
	Duration time.Duration

	Batch       int
	Interactive int
	Periodic    int
	YieldBurst  int

	InteractiveParams workload.InteractiveParams
	PeriodicParams    workload.PeriodicParams
	YieldBurstParams  workload.YieldBurstParams

	// Seed, when non-zero, derives a deterministic per-worker seed instead
	// of the default OS thread id seeding.
	Seed uint64
}

// TotalWorkers sums the configured population across all kinds.
func (c Config) TotalWorkers() int {
	return c.Batch + c.Interactive + c.Periodic + c.YieldBurst
}

// Validate checks the configuration before any worker exists.
func (c Config) Validate() error {
	if c.Duration < 0 {
		return fmt.Errorf("%w: got %v", ErrNegativeDuration, c.Duration)
	}

	for kind, count := range map[workload.Kind]int{
		workload.Batch:       c.Batch,
		workload.Interactive: c.Interactive,
		workload.Periodic:    c.Periodic,
		workload.YieldBurst:  c.YieldBurst,
	} {
		if count < 0 {
			return fmt.Errorf("%w: %d %s workers", ErrNegativeCount, count, kind)
		}
	}

	if c.TotalWorkers() == 0 {
		return ErrNoWorkers
	}

	if c.Interactive > 0 {
		if err := c.InteractiveParams.Validate(); err != nil {
			return err
		}
	}

	if c.Periodic > 0 {
		if err := c.PeriodicParams.Validate(); err != nil {
			return err
		}
	}

	if c.YieldBurst > 0 {
		if err := c.YieldBurstParams.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// WorkerStat is the per-worker slice of a Result.
type WorkerStat struct {
	Name       string
	Kind       workload.Kind
	ThreadID   uint64
	Iterations uint64
}

// Result reports a completed run.
type Result struct {
	// Elapsed is the span between barrier release and the last join.
	Elapsed     mclock.Timestamp
	ReleasedAt  mclock.Timestamp
	CompletedAt mclock.Timestamp
	Workers     []WorkerStat
}

// Coordinator owns a run: it creates the worker population, holds the start
// barrier closed while workers initialize, releases them together and joins
// them all.
type Coordinator struct {
	cfg    Config
	logger *zap.Logger

	descriptors []*worker.Descriptor
	start       *barrier.Start
	latch       *barrier.Latch
}

// New validates the configuration and builds the worker descriptors. No
// worker is started here.
func New(cfg Config, logger *zap.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	coord := &Coordinator{
		cfg:    cfg,
		logger: logger,
		start:  barrier.NewStart(),
		latch:  barrier.NewLatch(cfg.TotalWorkers()),
	}

	coord.descriptors = buildDescriptors(cfg)

	return coord, nil
}

func buildDescriptors(cfg Config) []*worker.Descriptor {
	descriptors := make([]*worker.Descriptor, 0, cfg.TotalWorkers())

	appendKind := func(count int, params workload.Params) {
		for i := range count {
			desc := worker.NewDescriptor(uint8(i+1), params)

			if cfg.Seed != 0 {
				desc.SetSeed(cfg.Seed + uint64(len(descriptors)))
			}

			descriptors = append(descriptors, desc)
		}
	}

	appendKind(cfg.Batch, workload.BatchParams{})
	appendKind(cfg.Interactive, cfg.InteractiveParams)
	appendKind(cfg.Periodic, cfg.PeriodicParams)
	appendKind(cfg.YieldBurst, cfg.YieldBurstParams)

	return descriptors
}

// Workers exposes the descriptors in creation order. The readiness marker of
// each is the polled observation available to callers during startup.
func (c *Coordinator) Workers() []*worker.Descriptor {
	return c.descriptors
}

// Released reports whether the start barrier has been opened.
func (c *Coordinator) Released() bool {
	return c.start.Released()
}

// Run executes the whole lifecycle: spawn every worker on its own pinned
// thread, wait for all of them to initialize, release the barrier once,
// join every worker and report the measured span.
//
// A readiness-wait failure abandons the spawned workers at the closed
// barrier rather than cleaning them up; the run is already lost at that
// point and the process is expected to exit.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	var group errgroup.Group

	for _, desc := range c.descriptors {
		group.Go(func() error {
			return desc.Run(c.start, c.latch, c.cfg.Duration)
		})
	}

	c.logger.Debug("waiting for workers to initialize",
		zap.Int("workers", len(c.descriptors)))

	if err := c.waitReady(ctx); err != nil {
		return Result{}, err
	}

	c.logger.Info("releasing start barrier",
		zap.Int("workers", len(c.descriptors)),
		zap.Duration("duration", c.cfg.Duration))

	c.start.Release()
	releasedAt := mclock.Now()

	if err := group.Wait(); err != nil {
		return Result{}, fmt.Errorf("run: join workers: %w", err)
	}

	completedAt := mclock.Now()

	result := Result{
		Elapsed:     mclock.Sub(completedAt, releasedAt),
		ReleasedAt:  releasedAt,
		CompletedAt: completedAt,
		Workers:     make([]WorkerStat, 0, len(c.descriptors)),
	}

	for _, desc := range c.descriptors {
		c.logger.Debug("worker joined",
			zap.String("worker", desc.Name()),
			zap.Uint64("iterations", desc.Iterations()))

		result.Workers = append(result.Workers, WorkerStat{
			Name:       desc.Name(),
			Kind:       desc.Kind,
			ThreadID:   desc.ThreadID(),
			Iterations: desc.Iterations(),
		})
	}

	return result, nil
}

// waitReady blocks until every worker has published its readiness marker.
// Markers are scanned in creation order at a bounded poll rate, then the
// counting latch confirms that every arrival registered.
func (c *Coordinator) waitReady(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(readinessPollInterval), 1)

	for _, desc := range c.descriptors {
		for !desc.Ready() {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("run: readiness wait: %w", err)
			}
		}

		c.logger.Debug("worker ready",
			zap.String("worker", desc.Name()),
			zap.Uint64("tid", desc.ThreadID()))
	}

	if err := c.latch.Wait(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}
