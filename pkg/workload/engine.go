package workload

import (
	"math/rand/v2"
	"runtime"
	"time"

	"wlgen/pkg/mclock"
)

// Engine generates activity segments for a single worker. Timing hooks are
// function fields so tests can substitute a fake clock; the defaults read
// the raw monotonic clock, sleep on the OS timer and yield via the runtime
// scheduler.
type Engine struct {
	now   func() mclock.Timestamp
	sleep func(us uint32)
	yield func()

	rng *rand.Rand
}

// NewEngine builds an engine whose random draws are produced by a private
// generator seeded with seed. Draws are independent across workers and only
// reproducible when the seed is fixed.
func NewEngine(seed uint64) *Engine {
	engine := new(Engine)
	engine.now = mclock.Now
	engine.sleep = sleepMicros
	engine.yield = runtime.Gosched
	engine.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	return engine
}

func sleepMicros(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

// Run executes one segment of the pattern selected by the concrete params
// variant and returns once the segment completes.
func (e *Engine) Run(params Params) {
	switch p := params.(type) {
	case BatchParams:
		e.Batch()
	case InteractiveParams:
		e.Interactive(p)
	case PeriodicParams:
		e.Periodic(p)
	case YieldBurstParams:
		e.YieldBurst(p)
	}
}

// Batch spins through one fixed-length counting loop with no suspension
// point, occupying the CPU until the counter wraps.
func (e *Engine) Batch() {
	busyLoop()
}

// Interactive sleeps for a uniformly drawn inter-arrival delay, then
// busy-spins for a uniformly drawn processing time.
func (e *Engine) Interactive(p InteractiveParams) {
	delay := e.uniform(p.IntervalMax)
	e.sleep(delay)

	process := e.uniform(p.DurationMax)
	e.spin(process)
}

// Periodic sleeps through the idle share of the period and busy-spins
// through the busy share. Deterministic for fixed parameters.
func (e *Engine) Periodic(p PeriodicParams) {
	busy, idle := PeriodicSplit(p.Period, p.DutyCycle)

	e.sleep(idle)
	e.spin(busy)
}

// YieldBurst busy-spins through one uninterrupted burst, then spins through
// a second burst of the same length while relinquishing the processor each
// time a sliding next-yield timestamp is crossed.
func (e *Engine) YieldBurst(p YieldBurstParams) {
	e.spin(p.BurstPeriod)

	base := e.now()
	end := base.AddMicros(int64(p.BurstPeriod))

	if p.YieldInterval == 0 {
		e.spinUntil(end)

		return
	}

	yieldAt := base.AddMicros(int64(p.YieldInterval))

	for {
		now := e.now()

		if mclock.Older(now, yieldAt) {
			yieldAt = yieldAt.AddMicros(int64(p.YieldInterval))
			e.yield()
		}

		if mclock.Older(now, end) {
			return
		}
	}
}

// spin busy-waits for us microseconds, re-reading the clock on every
// iteration so accuracy does not depend on CPU speed.
func (e *Engine) spin(us uint32) {
	e.spinUntil(e.now().AddMicros(int64(us)))
}

func (e *Engine) spinUntil(end mclock.Timestamp) {
	for {
		if mclock.Older(e.now(), end) {
			return
		}

		busyLoop()
	}
}

// uniform draws from [0, max] inclusive.
func (e *Engine) uniform(max uint32) uint32 {
	return uint32(e.rng.Uint64N(uint64(max) + 1))
}

func busyLoop() {
	for i := uint16(1); i != 0; i++ {
	}
}
