package run

import (
	"context"
	"errors"
	"testing"
	"time"

	"wlgen/pkg/worker"
	"wlgen/pkg/workload"
)

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{
			"no workers",
			Config{Duration: time.Second},
			ErrNoWorkers,
		},
		{
			"negative duration",
			Config{Duration: -time.Second, Batch: 1},
			ErrNegativeDuration,
		},
		{
			"negative count",
			Config{Duration: time.Second, Batch: -1},
			ErrNegativeCount,
		},
		{
			"duty cycle above 100",
			Config{
				Duration:       time.Second,
				Periodic:       1,
				PeriodicParams: workload.PeriodicParams{Period: 1000, DutyCycle: 150},
			},
			workload.ErrDutyCycleRange,
		},
		{
			"yield interval above burst",
			Config{
				Duration:         time.Second,
				YieldBurst:       1,
				YieldBurstParams: workload.YieldBurstParams{BurstPeriod: 100, YieldInterval: 200},
			},
			workload.ErrYieldInterval,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			coord, err := New(tc.cfg, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}

			if coord != nil {
				t.Fatal("invalid configuration must not produce a coordinator")
			}
		})
	}
}

func TestInvalidConfigRejectedBeforeAnyWorkerExists(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Duration:       time.Second,
		Periodic:       4,
		PeriodicParams: workload.PeriodicParams{Period: 1000, DutyCycle: 150},
	}

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestDescriptorLayoutFollowsCreationOrder(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Duration:          time.Second,
		Batch:             2,
		Interactive:       1,
		Periodic:          1,
		YieldBurst:        1,
		InteractiveParams: workload.InteractiveParams{IntervalMax: 10, DurationMax: 10},
		PeriodicParams:    workload.PeriodicParams{Period: 100, DutyCycle: 50},
		YieldBurstParams:  workload.YieldBurstParams{BurstPeriod: 10, YieldInterval: 5},
	}

	coord, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	wantNames := []string{"wlg_B001", "wlg_B002", "wlg_I001", "wlg_P001", "wlg_Y001"}

	workers := coord.Workers()
	if len(workers) != len(wantNames) {
		t.Fatalf("expected %d workers, got %d", len(wantNames), len(workers))
	}

	for i, desc := range workers {
		if desc.Name() != wantNames[i] {
			t.Errorf("worker %d: got %q, want %q", i, desc.Name(), wantNames[i])
		}

		if desc.Ready() {
			t.Errorf("worker %q ready before the run started", desc.Name())
		}
	}
}

func TestRunTwoInteractiveWorkersEndToEnd(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Duration:          time.Second,
		Interactive:       2,
		InteractiveParams: workload.InteractiveParams{IntervalMax: 1000, DurationMax: 500},
		Seed:              1234,
	}

	coord, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	result, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Workers) != 2 {
		t.Fatalf("expected exactly 2 workers, got %d", len(result.Workers))
	}

	elapsed := result.Elapsed.Duration()
	if elapsed < cfg.Duration {
		t.Fatalf("elapsed %v shorter than the nominal duration %v", elapsed, cfg.Duration)
	}

	// The bound is the nominal duration plus one worst-case Interactive
	// segment (delay + processing), padded for scheduling jitter.
	if elapsed > cfg.Duration+500*time.Millisecond {
		t.Fatalf("elapsed %v exceeds the termination bound", elapsed)
	}

	for _, desc := range coord.Workers() {
		if desc.State() != worker.Terminated {
			t.Errorf("worker %q not terminated after join", desc.Name())
		}
	}

	for _, stat := range result.Workers {
		if stat.ThreadID == 0 {
			t.Errorf("worker %q joined without a readiness marker", stat.Name)
		}

		if stat.Iterations == 0 {
			t.Errorf("worker %q completed no segments in a 1s run", stat.Name)
		}
	}
}

func TestRunMixedPopulation(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Duration:          150 * time.Millisecond,
		Batch:             1,
		Interactive:       1,
		Periodic:          1,
		YieldBurst:        1,
		InteractiveParams: workload.InteractiveParams{IntervalMax: 2000, DurationMax: 1000},
		PeriodicParams:    workload.PeriodicParams{Period: 5000, DutyCycle: 20},
		YieldBurstParams:  workload.YieldBurstParams{BurstPeriod: 1000, YieldInterval: 200},
		Seed:              1,
	}

	coord, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	result, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := result.Elapsed.Duration(); got < cfg.Duration {
		t.Fatalf("elapsed %v shorter than nominal %v", got, cfg.Duration)
	}

	if !coord.Released() {
		t.Fatal("barrier must be released after the run")
	}

	kinds := map[workload.Kind]bool{}
	for _, stat := range result.Workers {
		kinds[stat.Kind] = true
	}

	if len(kinds) != 4 {
		t.Fatalf("expected all four kinds in the result, got %v", kinds)
	}
}

func TestRunZeroDurationStillMeasures(t *testing.T) {
	t.Parallel()

	cfg := Config{Duration: 0, Batch: 2}

	coord, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	result, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Elapsed.Sec < 0 {
		t.Fatalf("negative elapsed span %v", result.Elapsed)
	}

	for _, stat := range result.Workers {
		if stat.Iterations != 0 {
			t.Errorf("worker %q ran segments past an already-expired deadline", stat.Name)
		}
	}
}

func TestReadinessWaitHonorsContext(t *testing.T) {
	t.Parallel()

	cfg := Config{Duration: time.Second, Batch: 1}

	coord, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The latch wait observes the dead context even when the marker poll
	// never gets a chance to pace.
	if err := coord.latch.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
