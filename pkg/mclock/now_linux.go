//go:build linux

package mclock

import "golang.org/x/sys/unix"

// Now reads CLOCK_MONOTONIC_RAW, which is immune to both wall clock jumps
// and NTP slewing.
func Now() Timestamp {
	var ts unix.Timespec

	err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts)
	if err != nil {
		// The raw clock can be absent on very old kernels; the adjusted
		// monotonic clock is always available.
		_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	}

	return Timestamp{Sec: ts.Sec, Nsec: ts.Nsec}
}
