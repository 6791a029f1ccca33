// Package mclock provides coarse monotonic timestamps and the split
// seconds/nanoseconds arithmetic the workload engines pace themselves with.
// All operations are pure and allocation free.
package mclock

import (
	"fmt"
	"time"
)

const (
	nsPerUs  = 1_000
	nsPerMs  = 1_000_000
	nsPerSec = 1_000_000_000
	msPerSec = 1_000
)

// Timestamp is a point on the monotonic clock, split into whole seconds and
// a nanosecond remainder kept in [0, 1e9).
type Timestamp struct {
	Sec  int64
	Nsec int64
}

func normalize(sec, nsec int64) Timestamp {
	sec += nsec / nsPerSec
	nsec %= nsPerSec

	if nsec < 0 {
		nsec += nsPerSec
		sec--
	}

	return Timestamp{Sec: sec, Nsec: nsec}
}

// AddNanos returns the timestamp advanced by n nanoseconds, carrying any
// overflow of the nanosecond field into the seconds field.
func (t Timestamp) AddNanos(n int64) Timestamp {
	return normalize(t.Sec, t.Nsec+n)
}

// AddMicros returns the timestamp advanced by us microseconds.
func (t Timestamp) AddMicros(us int64) Timestamp {
	sec := us / (nsPerSec / nsPerUs)
	rem := us % (nsPerSec / nsPerUs)

	return normalize(t.Sec+sec, t.Nsec+rem*nsPerUs)
}

// AddMillis returns the timestamp advanced by ms milliseconds.
func (t Timestamp) AddMillis(ms int64) Timestamp {
	sec := ms / msPerSec
	rem := ms % msPerSec

	return normalize(t.Sec+sec, t.Nsec+rem*nsPerMs)
}

// Add returns the timestamp advanced by d.
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t.AddNanos(d.Nanoseconds())
}

// Older reports whether a is at or after b, i.e. a has become at least as
// old as the deadline b. Equal timestamps report true.
func Older(a, b Timestamp) bool {
	if a.Sec != b.Sec {
		return a.Sec > b.Sec
	}

	return a.Nsec >= b.Nsec
}

// Compare returns -1, 0 or 1 as a sorts before, equal to or after b.
func Compare(a, b Timestamp) int {
	if a.Sec != b.Sec {
		if a.Sec < b.Sec {
			return -1
		}

		return 1
	}

	if a.Nsec != b.Nsec {
		if a.Nsec < b.Nsec {
			return -1
		}

		return 1
	}

	return 0
}

// Sub returns the elapsed span a-b, borrowing across the seconds boundary.
func Sub(a, b Timestamp) Timestamp {
	return normalize(a.Sec-b.Sec, a.Nsec-b.Nsec)
}

// Milliseconds converts the timestamp into whole milliseconds.
func (t Timestamp) Milliseconds() int64 {
	return t.Sec*msPerSec + t.Nsec/nsPerMs
}

// Duration converts the timestamp, interpreted as a span, into a
// time.Duration.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t.Sec)*time.Second + time.Duration(t.Nsec)
}

// String renders the timestamp as seconds with a nanosecond fraction.
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%09d", t.Sec, t.Nsec)
}
