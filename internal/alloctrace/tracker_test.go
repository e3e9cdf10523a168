package alloctrace

import (
	"testing"
	"unsafe"

	"github.com/orizon-lang/heapviz/internal/attribution"
)

func freshTracker(t *testing.T, capacity int) *Tracker {
	t.Helper()

	tr := NewTracker(DefaultBackingAllocator, capacity)
	Install(tr)

	return tr
}

func TestSingleAllocationAttributesToCaller(t *testing.T) {
	tr := freshTracker(t, 16)
	tr.StartTrack()

	p := Alloc(128)
	Free(p)

	tr.StopTrack()

	stats, err := tr.Collect(attribution.DefaultFrameFilter("github.com/orizon-lang/heapviz/internal/alloctrace", nil))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	tree := stats.IntoTree()
	if tree.Root.AllocBytes != 128 {
		t.Errorf("root AllocBytes = %d, want 128", tree.Root.AllocBytes)
	}

	if tree.Root.DeallocBytes != 128 {
		t.Errorf("root DeallocBytes = %d, want 128 (Free must report the size Alloc returned)", tree.Root.DeallocBytes)
	}

	if tree.Root.DeallocCount != 1 {
		t.Errorf("root DeallocCount = %d, want 1", tree.Root.DeallocCount)
	}

	if tree.OverflowCount != 0 {
		t.Errorf("OverflowCount = %d, want 0", tree.OverflowCount)
	}
}

func allocSiteA() { Alloc(10) }
func allocSiteB() { Alloc(20) }

func TestSiblingCallSitesAttributeIndependently(t *testing.T) {
	tr := freshTracker(t, 16)
	tr.StartTrack()

	allocSiteA()
	allocSiteB()

	tr.StopTrack()

	stats, err := tr.Collect(nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	tree := stats.IntoTree()
	if tree.Root.AllocBytes != 30 {
		t.Errorf("root AllocBytes = %d, want 30", tree.Root.AllocBytes)
	}
}

func recurse(depth int) {
	if depth == 0 {
		Alloc(8)
		return
	}

	recurse(depth - 1)
}

func TestRecursiveCallsAreFolded(t *testing.T) {
	tr := freshTracker(t, 16)
	tr.StartTrack()

	recurse(3)

	tr.StopTrack()

	stats, err := tr.Collect(nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	tree := stats.IntoTree()
	if tree.Root.AllocBytes != 8 {
		t.Errorf("root AllocBytes = %d, want 8", tree.Root.AllocBytes)
	}
}

func TestOverflowIsCountedNotAttributed(t *testing.T) {
	tr := freshTracker(t, 4)
	tr.StartTrack()

	for i := 0; i < 10; i++ {
		Alloc(1)
	}

	tr.StopTrack()

	stats, err := tr.Collect(nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if stats.OverflowCount() != 6 {
		t.Errorf("OverflowCount() = %d, want 6", stats.OverflowCount())
	}

	if stats.EventCount() != 4 {
		t.Errorf("EventCount() = %d, want 4", stats.EventCount())
	}
}

func TestUntrackedAllocationsAreIgnored(t *testing.T) {
	tr := freshTracker(t, 16)

	// Tracking never started.
	Alloc(999)

	stats, err := tr.Collect(nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if stats.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0 (tracking was never started)", stats.EventCount())
	}
}

func TestCollectWhileTrackingIsPreconditionViolation(t *testing.T) {
	tr := freshTracker(t, 16)
	tr.StartTrack()
	defer tr.StopTrack()

	if _, err := tr.Collect(nil); err == nil {
		t.Fatal("expected Collect to reject being called while tracking is active")
	}
}

func TestReallocRecordsDeallocThenAlloc(t *testing.T) {
	tr := freshTracker(t, 16)
	tr.StartTrack()

	p := Alloc(16)
	Realloc(p, 32)

	tr.StopTrack()

	stats, err := tr.Collect(nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if stats.EventCount() != 3 {
		t.Fatalf("EventCount() = %d, want 3 (alloc, dealloc, alloc)", stats.EventCount())
	}

	tree := stats.IntoTree()
	if tree.Root.AllocBytes != 48 {
		t.Errorf("root AllocBytes = %d, want 48 (16 original + 32 grown)", tree.Root.AllocBytes)
	}

	if tree.Root.DeallocBytes != 16 {
		t.Errorf("root DeallocBytes = %d, want 16 (the original allocation's size)", tree.Root.DeallocBytes)
	}
}

func TestFreeRecordsDeallocEvent(t *testing.T) {
	tr := freshTracker(t, 16)
	tr.StartTrack()

	p := Alloc(16)
	Free(p)

	tr.StopTrack()

	stats, err := tr.Collect(nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	tree := stats.IntoTree()
	if tree.Root.DeallocCount != 1 {
		t.Errorf("root DeallocCount = %d, want 1", tree.Root.DeallocCount)
	}

	if tree.Root.DeallocBytes != 16 {
		t.Errorf("root DeallocBytes = %d, want 16 (the size Alloc originally returned)", tree.Root.DeallocBytes)
	}
}

func TestFreeOfUntrackedPointerRecordsZeroSize(t *testing.T) {
	tr := freshTracker(t, 16)
	tr.StartTrack()

	// A pointer the tracker never saw Alloc (e.g. allocated before Install)
	// has no sizeTable entry; Free must not panic and must report size 0
	// rather than fabricate one.
	Free(unsafe.Pointer(&struct{ x int }{}))

	tr.StopTrack()

	stats, err := tr.Collect(nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	tree := stats.IntoTree()
	if tree.Root.DeallocBytes != 0 {
		t.Errorf("root DeallocBytes = %d, want 0 for an untracked pointer", tree.Root.DeallocBytes)
	}
}
