//go:build linux

package server

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func freeMemory() uint64 {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return heapFree()
	}
	return uint64(si.Freeram) * uint64(si.Unit)
}

func heapFree() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapIdle - m.HeapReleased
}
