//go:build !linux

package worker

func threadID() uint64 {
	return 0
}

func setThreadName(string) {}
