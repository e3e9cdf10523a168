//go:build !unix

package alloctrace

// allocateSlab falls back to a plain heap-backed slice on platforms
// without an mmap-style anonymous mapping call available through
// golang.org/x/sys/unix.
func allocateSlab(capacity int) []Event {
	if capacity <= 0 {
		capacity = 1
	}

	return make([]Event, capacity)
}
