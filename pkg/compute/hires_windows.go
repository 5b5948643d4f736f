//go:build windows

package compute

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32DLL = windows.NewLazySystemDLL("kernel32.dll")
	qpcProc     = kernel32DLL.NewProc("QueryPerformanceCounter")
	qpfProc     = kernel32DLL.NewProc("QueryPerformanceFrequency")
	qpcFreq     int64
)

func init() {
	qpfProc.Call(uintptr(unsafe.Pointer(&qpcFreq)))
	if qpcFreq == 0 {
		qpcFreq = 1
	}
}

// hiresNow returns a high-resolution monotonic timestamp (QPC count).
func hiresNow() int64 {
	var count int64
	qpcProc.Call(uintptr(unsafe.Pointer(&count)))
	return count
}

// hiresSinceUs returns the elapsed microseconds since startCount using QPC.
func hiresSinceUs(startCount int64) int64 {
	return scaleCount(hiresNow()-startCount, 1_000_000)
}

// hiresSinceMs returns the elapsed milliseconds since startCount using QPC.
func hiresSinceMs(startCount int64) int64 {
	return scaleCount(hiresNow()-startCount, 1000)
}

func scaleCount(d, units int64) int64 {
	return scaleCountBy(d, qpcFreq, units)
}
