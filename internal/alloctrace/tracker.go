package alloctrace

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/orizon-lang/heapviz/internal/attribution"
	heapvizerrors "github.com/orizon-lang/heapviz/internal/errors"
)

// Tracker owns one interceptor/event-log pair and exposes the public
// tracking lifecycle: Install binds it as the process's active tracker,
// StartTrack/StopTrack gate recording, and Collect freezes the log into
// attribution.Stats.
type Tracker struct {
	ic  *interceptor
	log *EventLog

	mu       sync.Mutex
	tracking bool
}

// NewTracker builds a Tracker with the given backing allocator and a log
// sized to hold exactly capacity events (spec.md's N_MAX) before further
// writes overflow.
func NewTracker(backing Allocator, capacity int) *Tracker {
	if backing == nil {
		backing = DefaultBackingAllocator
	}

	log := NewEventLog(capacity)

	return &Tracker{ic: newInterceptor(backing, log), log: log}
}

var (
	activeMu sync.Mutex
	active   *Tracker
)

// Install binds t as the process-wide active tracker used by the
// package-level Alloc/Free/Realloc wrappers. Only one tracker is active
// at a time; installing a new one replaces the old.
func Install(t *Tracker) {
	activeMu.Lock()
	defer activeMu.Unlock()

	active = t
}

func activeTracker() *Tracker {
	activeMu.Lock()
	defer activeMu.Unlock()

	return active
}

// Alloc routes through the installed Tracker's backing allocator,
// recording the call if tracking is active. Panics if no Tracker has
// been installed, mirroring the teacher runtime's nil-GlobalAllocator
// guard in its package-level allocation wrappers.
func Alloc(size uintptr) unsafe.Pointer {
	t := mustActive()
	return t.ic.Alloc(size)
}

// AllocZeroed behaves like Alloc: the backing allocator's make() already
// returns zeroed memory, so the zero-fill itself is not separately
// recorded, only a single Alloc event per heapviz's Open Question
// resolution (see SPEC_FULL.md §2).
func AllocZeroed(size uintptr) unsafe.Pointer {
	return Alloc(size)
}

// Free routes through the installed Tracker.
func Free(ptr unsafe.Pointer) {
	t := mustActive()
	t.ic.Free(ptr)
}

// Realloc routes through the installed Tracker.
func Realloc(ptr unsafe.Pointer, newSize uintptr) unsafe.Pointer {
	t := mustActive()
	return t.ic.Realloc(ptr, newSize)
}

func mustActive() *Tracker {
	t := activeTracker()
	if t == nil {
		panic("alloctrace: no Tracker installed; call Install first")
	}

	return t
}

// StartTrack enables recording on t. It is idempotent: calling it while
// already tracking is a no-op.
func (t *Tracker) StartTrack() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracking = true
	atomic.StoreInt32(&trackingFlag, 1)
}

// StopTrack disables recording on t. Idempotent.
func (t *Tracker) StopTrack() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracking = false
	atomic.StoreInt32(&trackingFlag, 0)
}

// IsTracking reports whether recording is currently enabled.
func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.tracking
}

// Collect freezes the event log into an attribution.Stats and resets the
// log for reuse. It is a precondition violation to call Collect while
// still tracking: the spec leaves the result of doing so undefined, and
// heapviz resolves that by refusing rather than racing the log.
func (t *Tracker) Collect(filter *attribution.FrameFilter) (*attribution.Stats, error) {
	t.mu.Lock()
	tracking := t.tracking
	t.mu.Unlock()

	if tracking {
		return nil, heapvizerrors.PreconditionViolation("Collect", "called while tracking is still active; call StopTrack first")
	}

	raw, overflow := t.log.Snapshot()
	t.log.Reset()

	events := make([]attribution.RawEvent, len(raw))

	for i, ev := range raw {
		kind := attribution.KindAlloc
		if ev.Kind == eventKindDealloc {
			kind = attribution.KindDealloc
		}

		stack := make([]uintptr, ev.Depth)
		copy(stack, ev.Stack[:ev.Depth])

		events[i] = attribution.RawEvent{
			Kind:    kind,
			Address: ev.Address,
			Size:    ev.Size,
			Stack:   stack,
		}
	}

	return attribution.NewStats(events, overflow, filter), nil
}

// DebugInfo reports the tracker's current log occupancy and capacity,
// intended for diagnostics rather than profiling output.
type DebugInfo struct {
	Capacity   int
	Used       uint64
	Overflow   uint64
	OSThreadID int
}

// DebugInfo snapshots t's log without resetting it.
func (t *Tracker) DebugInfo() DebugInfo {
	used := atomic.LoadUint64(&t.log.cursor)
	if used > uint64(t.log.Capacity()) {
		used = uint64(t.log.Capacity())
	}

	return DebugInfo{
		Capacity:   t.log.Capacity(),
		Used:       used,
		Overflow:   atomic.LoadUint64(&t.log.overflow),
		OSThreadID: osThreadID(),
	}
}
