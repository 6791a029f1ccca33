//go:build linux

package worker

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func threadID() uint64 {
	return uint64(unix.Gettid())
}

// setThreadName labels the pinned OS thread so workers are attributable in
// scheduler traces and /proc. Best effort; the kernel caps names at 15
// bytes plus the terminator.
func setThreadName(name string) {
	buf := make([]byte, 16)
	copy(buf[:15], name)

	_ = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}
