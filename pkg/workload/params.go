// Package workload implements the four activity pattern generators a worker
// can run: Batch, Interactive, Periodic and YieldBurst. Each pattern call
// produces exactly one segment of activity and keeps no state between calls.
package workload

import (
	"errors"
	"fmt"
)

// Kind identifies which pattern a worker executes on every iteration.
type Kind uint8

const (
	Batch Kind = iota
	Interactive
	Periodic
	YieldBurst
)

var kindNames = [...]string{"Batch", "Interactive", "Periodic", "YieldBurst"}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}

	return kindNames[k]
}

// Letter returns the single-character tag used in worker names.
func (k Kind) Letter() byte {
	return k.String()[0]
}

var (
	// ErrDutyCycleRange rejects periodic duty cycles above 100 percent.
	ErrDutyCycleRange = errors.New("workload: duty cycle must be at most 100")
	// ErrYieldInterval rejects yield intervals longer than the burst period.
	ErrYieldInterval = errors.New("workload: yield interval must not exceed the burst period")
)

// Params is the per-kind parameter set carried by a worker. It is a sealed
// sum type; the engine dispatches on the concrete variant.
type Params interface {
	Kind() Kind
	Validate() error
}

// BatchParams configures a Batch worker. Batch workers take no parameters.
type BatchParams struct{}

func (BatchParams) Kind() Kind      { return Batch }
func (BatchParams) Validate() error { return nil }

// InteractiveParams configures an Interactive worker. Both bounds are in
// microseconds; the actual delay and processing time of each segment are
// drawn uniformly from [0, bound].
type InteractiveParams struct {
	IntervalMax uint32
	DurationMax uint32
}

func (InteractiveParams) Kind() Kind      { return Interactive }
func (InteractiveParams) Validate() error { return nil }

// PeriodicParams configures a Periodic worker: a period length in
// microseconds and the percentage of it spent busy.
type PeriodicParams struct {
	Period    uint32
	DutyCycle uint32
}

func (PeriodicParams) Kind() Kind { return Periodic }

func (p PeriodicParams) Validate() error {
	if p.DutyCycle > 100 {
		return fmt.Errorf("%w: got %d%%", ErrDutyCycleRange, p.DutyCycle)
	}

	return nil
}

// YieldBurstParams configures a YieldBurst worker: an uninterrupted burst
// length and the spacing of voluntary yields during the following phase,
// both in microseconds.
type YieldBurstParams struct {
	BurstPeriod   uint32
	YieldInterval uint32
}

func (YieldBurstParams) Kind() Kind { return YieldBurst }

func (p YieldBurstParams) Validate() error {
	if p.YieldInterval > p.BurstPeriod {
		return fmt.Errorf(
			"%w: interval %dus, burst %dus",
			ErrYieldInterval,
			p.YieldInterval,
			p.BurstPeriod,
		)
	}

	return nil
}

// PeriodicSplit resolves a period and duty cycle into the busy and idle
// spans of one segment. The busy span truncates toward zero and the two
// spans always sum to the period exactly.
func PeriodicSplit(period, dutyCycle uint32) (busy, idle uint32) {
	busy = uint32(uint64(period) * uint64(dutyCycle) / 100)
	idle = period - busy

	return busy, idle
}
