package attribution

import "runtime"

// CallSiteKey is the canonical identity of a frame after symbolication and
// normalization. Equality is structural on all four fields.
type CallSiteKey struct {
	File     string
	Line     int
	Function string
	Module   string
}

const (
	unknownFile = "<unknown>"
	unknownFunc = "<unknown>"
)

var unknownKey = CallSiteKey{File: unknownFile, Line: 0, Function: unknownFunc, Module: ""}

// Symbolicator maps instruction pointers to call-site keys, treating Go's
// own runtime.CallersFrames as the platform oracle spec.md describes:
// implementations differ per platform, and the core only depends on the
// small "pc in, (module, function, file, line) out" contract. Results are
// cached per pointer, since the same return address recurs across many
// events sharing a call path.
type Symbolicator struct {
	cache map[uintptr]CallSiteKey
}

// NewSymbolicator returns a Symbolicator with an empty cache.
func NewSymbolicator() *Symbolicator {
	return &Symbolicator{cache: make(map[uintptr]CallSiteKey)}
}

// Resolve symbolicates pcs (in the order given) and returns one CallSiteKey
// per input pointer. Unresolvable addresses yield the fallback key
// documented in spec.md §4.G rather than an error.
func (s *Symbolicator) Resolve(pcs []uintptr) []CallSiteKey {
	if len(pcs) == 0 {
		return nil
	}

	out := make([]CallSiteKey, len(pcs))

	for i, pc := range pcs {
		if key, ok := s.cache[pc]; ok {
			out[i] = key
			continue
		}

		key := s.resolveOne(pc)
		s.cache[pc] = key
		out[i] = key
	}

	return out
}

// resolveOne symbolicates a single pointer. It is kept to one pc per call
// into runtime.CallersFrames so that inlined-call expansion (which can
// yield more logical frames than physical return addresses) never gets
// misattributed to a neighboring pc; heapviz only needs the frame at the
// exact address it captured, not every inliner artifact beneath it.
func (s *Symbolicator) resolveOne(pc uintptr) CallSiteKey {
	frames := runtime.CallersFrames([]uintptr{pc})

	frame, _ := frames.Next()
	if frame.Function == "" {
		return unknownKey
	}

	return CallSiteKey{
		File:     frame.File,
		Line:     frame.Line,
		Function: frame.Function,
		Module:   modulePath(frame.Function),
	}
}

// modulePath derives the defining package's import path from a fully
// qualified function name, e.g.
// "github.com/orizon-lang/heapviz/internal/attribution.(*Tree).Save" ->
// "github.com/orizon-lang/heapviz/internal/attribution".
func modulePath(fn string) string {
	lastSlash := -1
	for i := 0; i < len(fn); i++ {
		if fn[i] == '/' {
			lastSlash = i
		}
	}

	dot := -1
	for i := lastSlash + 1; i < len(fn); i++ {
		if fn[i] == '.' {
			dot = i
			break
		}
	}

	if dot < 0 {
		return ""
	}

	return fn[:dot]
}
