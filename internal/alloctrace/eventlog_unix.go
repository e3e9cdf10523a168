//go:build unix

package alloctrace

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// allocateSlab reserves capacity events' worth of memory via an anonymous
// mmap mapping rather than make([]Event, capacity), so that the event
// log's own backing storage is never itself a tracked Go heap allocation
// (it would otherwise be indistinguishable from program allocations and
// could, under tracking, recursively record itself).
func allocateSlab(capacity int) []Event {
	if capacity <= 0 {
		capacity = 1
	}

	size := capacity * int(unsafe.Sizeof(Event{}))

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		// Fall back to heap-backed storage rather than failing
		// construction outright; tracking still works, just with one
		// more allocation attributable to heapviz itself at startup.
		return make([]Event, capacity)
	}

	return unsafe.Slice((*Event)(unsafe.Pointer(&data[0])), capacity)
}
