//go:build !windows

package compute

import "time"

var hiresEpoch = time.Now()

// hiresNow returns a high-resolution monotonic timestamp in nanoseconds.
func hiresNow() int64 {
	return time.Since(hiresEpoch).Nanoseconds()
}

// hiresSinceUs returns the elapsed microseconds since startNano.
func hiresSinceUs(startNano int64) int64 {
	return (hiresNow() - startNano) / 1_000
}

// hiresSinceMs returns the elapsed milliseconds since startNano.
func hiresSinceMs(startNano int64) int64 {
	return (hiresNow() - startNano) / 1_000_000
}
