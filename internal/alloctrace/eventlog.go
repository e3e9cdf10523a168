package alloctrace

import "sync/atomic"

// Event is one recorded allocation or deallocation, stored in the fixed
// slab owned by EventLog. Stack holds up to maxStackDepth program
// counters in capture order (innermost first); Depth is how many of them
// are valid.
type Event struct {
	Kind    uint8
	_       [7]byte // padding, keeps Address 8-byte aligned
	Address uintptr
	Size    uintptr
	Depth   int
	Stack   [maxStackDepth]uintptr
}

// FMax is the compile-time bound on captured stack depth per event
// (spec.md's F_MAX).
const FMax = 32

const maxStackDepth = FMax

const (
	eventKindAlloc uint8 = iota
	eventKindDealloc
)

// EventLog is a fixed-capacity, append-only log written by arbitrarily
// many concurrent goroutines via a single atomic fetch-and-add cursor.
// Once the cursor would exceed capacity, further writes are counted as
// overflow and dropped: no blocking, no reallocation, no CAS retry loop,
// since a plain add is already race-free for claiming a unique slot.
//
// The backing slab is allocated outside the Go heap (see eventlog_unix.go)
// so that the profiler's own bookkeeping memory is never itself recorded
// as a tracked allocation.
type EventLog struct {
	slab     []Event
	cursor   uint64
	overflow uint64
}

// NewEventLog allocates a log capable of holding exactly capacity events.
func NewEventLog(capacity int) *EventLog {
	return &EventLog{slab: allocateSlab(capacity)}
}

// Append records ev, returning false if the log was full (ev is dropped
// and the overflow counter is incremented instead).
func (l *EventLog) Append(ev Event) bool {
	i := atomic.AddUint64(&l.cursor, 1) - 1
	if i >= uint64(len(l.slab)) {
		atomic.AddUint64(&l.overflow, 1)
		return false
	}

	l.slab[i] = ev

	return true
}

// Snapshot freezes the log's current contents: every event successfully
// appended so far, plus the overflow count. Safe to call concurrently
// with Append, though any event mid-write when Snapshot runs may or may
// not be included (Collect's contract requires tracking to have stopped
// first, which is the only case heapviz actually calls this in).
func (l *EventLog) Snapshot() ([]Event, uint64) {
	n := atomic.LoadUint64(&l.cursor)
	if n > uint64(len(l.slab)) {
		n = uint64(len(l.slab))
	}

	out := make([]Event, n)
	copy(out, l.slab[:n])

	return out, atomic.LoadUint64(&l.overflow)
}

// Reset clears the log for reuse, freeing nothing (the slab is retained).
func (l *EventLog) Reset() {
	atomic.StoreUint64(&l.cursor, 0)
	atomic.StoreUint64(&l.overflow, 0)
}

// Capacity returns the fixed number of events the log can hold (spec.md's
// N_MAX).
func (l *EventLog) Capacity() int { return len(l.slab) }
