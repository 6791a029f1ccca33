package worker

import (
	"testing"
	"time"

	"wlgen/pkg/barrier"
	"wlgen/pkg/workload"
)

func TestDescriptorNameEncodesKindAndOrdinal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		params workload.Params
		id     uint8
		want   string
	}{
		{workload.BatchParams{}, 1, "wlg_B001"},
		{workload.InteractiveParams{}, 12, "wlg_I012"},
		{workload.PeriodicParams{}, 3, "wlg_P003"},
		{workload.YieldBurstParams{}, 250, "wlg_Y250"},
	}

	for _, tc := range cases {
		desc := NewDescriptor(tc.id, tc.params)
		if desc.Name() != tc.want {
			t.Errorf("got %q, want %q", desc.Name(), tc.want)
		}
	}
}

func TestWorkerPublishesReadinessBeforeRelease(t *testing.T) {
	t.Parallel()

	desc := NewDescriptor(1, workload.BatchParams{})
	start := barrier.NewStart()
	latch := barrier.NewLatch(1)

	if desc.Ready() {
		t.Fatal("descriptor must not be ready before Run")
	}

	done := make(chan error, 1)

	go func() {
		done <- desc.Run(start, latch, 50*time.Millisecond)
	}()

	// The worker initializes, flips the marker and parks at the barrier.
	deadline := time.After(time.Second)
	for !desc.Ready() {
		select {
		case <-deadline:
			t.Fatal("worker never became ready")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	for desc.State() != WaitingAtBarrier {
		select {
		case <-deadline:
			t.Fatalf("ready worker never parked at the barrier, state %v", desc.State())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if desc.ThreadID() == 0 {
		t.Fatal("readiness marker must be non-zero")
	}

	released := mustElapsed(t, func() {
		start.Release()

		if err := <-done; err != nil {
			t.Errorf("worker run: %v", err)
		}
	})

	if released < 50*time.Millisecond {
		t.Fatalf("worker terminated after %v, before its deadline", released)
	}

	if got := desc.State(); got != Terminated {
		t.Fatalf("joined worker must be terminated, state %v", got)
	}

	if desc.Iterations() == 0 {
		t.Fatal("worker made no progress before its deadline")
	}
}

func TestWorkerZeroDurationTerminatesImmediately(t *testing.T) {
	t.Parallel()

	desc := NewDescriptor(1, workload.PeriodicParams{Period: 1_000_000, DutyCycle: 50})
	start := barrier.NewStart()
	latch := barrier.NewLatch(1)

	start.Release()

	if err := desc.Run(start, latch, 0); err != nil {
		t.Fatalf("worker run: %v", err)
	}

	// Equal timestamps count as "deadline passed", so no segment runs.
	if got := desc.Iterations(); got != 0 {
		t.Fatalf("expected no iterations for a zero duration, got %d", got)
	}
}

func TestInjectedSeedOverridesThreadSeed(t *testing.T) {
	t.Parallel()

	run := func(seed uint64) uint64 {
		desc := NewDescriptor(1, workload.InteractiveParams{IntervalMax: 200, DurationMax: 0})
		desc.SetSeed(seed)

		start := barrier.NewStart()
		start.Release()

		if err := desc.Run(start, barrier.NewLatch(1), 20*time.Millisecond); err != nil {
			t.Fatalf("worker run: %v", err)
		}

		return desc.Iterations()
	}

	if run(99) == 0 {
		t.Fatal("seeded worker made no progress")
	}
}

func mustElapsed(t *testing.T, fn func()) time.Duration {
	t.Helper()

	begin := time.Now()
	fn()

	return time.Since(begin)
}
