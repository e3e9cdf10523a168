// Package alloctrace instruments Go heap allocations made through an
// explicit Allocator indirection and records them, per-call-stack, into a
// fixed-capacity event log. It is the process-facing half of heapviz: the
// attribution package turns what this package records into a call-path
// tree.
//
// heapviz has no equivalent of a process-wide global-allocator override
// (Go does not expose one). Instead, the Allocator interface and the
// package-level Alloc/Free/Realloc wrappers are the narrowest point
// through which a profiled program's allocations already pass, modeled
// directly on the teacher runtime's internal/allocator.GlobalAllocator
// indirection.
package alloctrace
