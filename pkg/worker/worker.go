// Package worker implements the per-worker lifecycle: initialize, announce
// readiness, block on the shared start barrier, then run pattern segments
// until the private deadline passes.
package worker

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"wlgen/pkg/barrier"
	"wlgen/pkg/mclock"
	"wlgen/pkg/workload"
)

// State tracks where a worker is in its lifecycle.
type State uint32

const (
	Created State = iota
	Initializing
	WaitingAtBarrier
	Running
	Terminated
)

var stateNames = [...]string{
	"Created", "Initializing", "WaitingAtBarrier", "Running", "Terminated",
}

func (s State) String() string {
	if int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", uint32(s))
	}

	return stateNames[s]
}

// Descriptor is the identity and configuration of one worker. It is created
// once by the coordinator and owned by its worker thread afterwards; the
// coordinator only reads the readiness marker and the counters.
type Descriptor struct {
	ID     uint8
	Kind   workload.Kind
	Params workload.Params

	name string
	seed uint64

	started    atomic.Uint64
	iterations atomic.Uint64
	state      atomic.Uint32
}

// NewDescriptor builds a descriptor for one worker of the params' kind. The
// ordinal id is unique within the kind, starting at 1.
func NewDescriptor(id uint8, params workload.Params) *Descriptor {
	kind := params.Kind()

	return &Descriptor{
		ID:     id,
		Kind:   kind,
		Params: params,
		name:   fmt.Sprintf("wlg_%c%03d", kind.Letter(), id),
	}
}

// SetSeed pins the worker's random generator to an explicit seed instead of
// deriving it from the OS thread id. Call before Run.
func (d *Descriptor) SetSeed(seed uint64) {
	d.seed = seed
}

// Name returns the worker's display and thread name, like "wlg_B001".
func (d *Descriptor) Name() string {
	return d.name
}

// Ready reports whether the worker has published its readiness marker. Only
// the worker writes the marker; only the coordinator reads it.
func (d *Descriptor) Ready() bool {
	return d.started.Load() != 0
}

// ThreadID returns the identity the worker published as its readiness
// marker, zero until the worker has initialized.
func (d *Descriptor) ThreadID() uint64 {
	return d.started.Load()
}

// Iterations returns the number of completed pattern segments.
func (d *Descriptor) Iterations() uint64 {
	return d.iterations.Load()
}

// State returns the worker's current lifecycle state.
func (d *Descriptor) State() State {
	return State(d.state.Load())
}

func (d *Descriptor) setState(s State) {
	d.state.Store(uint32(s))
}

// Run executes the worker lifecycle on the calling goroutine, pinned to its
// OS thread for the whole run. It returns after the private deadline,
// computed at barrier release, has passed.
func (d *Descriptor) Run(start *barrier.Start, latch *barrier.Latch, duration time.Duration) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d.setState(Initializing)

	tid := threadID()
	if tid == 0 {
		tid = uint64(d.ID) + 1
	}

	setThreadName(d.name)

	seed := d.seed
	if seed == 0 {
		seed = tid
	}

	engine := workload.NewEngine(seed)

	// The marker signals "initialized", not "running": the worker is still
	// blocked on the barrier once it flips.
	d.started.Store(tid)

	err := latch.Arrive()
	if err != nil {
		return fmt.Errorf("worker %s: %w", d.name, err)
	}

	d.setState(WaitingAtBarrier)
	start.Wait()

	d.setState(Running)

	deadline := mclock.Now().Add(duration)
	for {
		if mclock.Older(mclock.Now(), deadline) {
			break
		}

		engine.Run(d.Params)
		d.iterations.Add(1)
	}

	d.setState(Terminated)

	return nil
}
