//go:build !linux

package mclock

import "time"

var processStart = time.Now()

// Now derives a monotonic timestamp from the runtime clock, anchored at
// process start.
func Now() Timestamp {
	elapsed := time.Since(processStart).Nanoseconds()

	return Timestamp{Sec: elapsed / nsPerSec, Nsec: elapsed % nsPerSec}
}
