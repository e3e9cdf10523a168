//go:build unix

package alloctrace

import "golang.org/x/sys/unix"

// osThreadID returns the calling OS thread's id, exposed through
// DebugInfo for diagnosing cases where goroutine-ID hashing in the
// re-entrancy guard is suspected of colliding pathologically on a given
// platform.
func osThreadID() int {
	return unix.Gettid()
}
