package alloctrace

import "runtime"

// captureStack fills dst with up to len(dst) program counters for the
// calling goroutine's stack, skipping skip additional frames beyond
// captureStack itself, and returns how many were written. Frames are in
// capture order: the immediate caller first, outermost caller last.
//
// runtime.Callers, not runtime.Stack, is used here: it returns raw
// program counters without formatting them to text, which both avoids an
// allocation on the hot path and defers symbolication to the attribution
// package, which runs after tracking stops and may allocate freely.
func captureStack(dst *[maxStackDepth]uintptr, skip int) int {
	return runtime.Callers(skip+2, dst[:])
}
