package alloctrace

import "testing"

func TestHeapBackingAllocReturnsUsableMemory(t *testing.T) {
	var b heapBacking

	p := b.Alloc(32)
	if p == nil {
		t.Fatal("Alloc(32) returned nil")
	}

	b.Free(p) // must not panic
}

func TestHeapBackingAllocZeroSizeReturnsNil(t *testing.T) {
	var b heapBacking
	if p := b.Alloc(0); p != nil {
		t.Errorf("Alloc(0) = %v, want nil", p)
	}
}

func TestHeapBackingRealloc(t *testing.T) {
	var b heapBacking

	p := b.Alloc(16)
	q := b.Realloc(p, 64)

	if q == nil {
		t.Fatal("Realloc returned nil")
	}
}
