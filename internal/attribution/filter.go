package attribution

import "sort"

// Category is the visual-grouping bucket assigned to a surviving frame.
type Category string

const (
	CategoryStd   Category = "std"
	CategoryDeps  Category = "deps"
	CategoryUser  Category = "user"
	CategoryOther Category = "other"
)

// FilteredFrame is one surviving, categorized frame of a call path.
type FilteredFrame struct {
	Key      CallSiteKey
	Category Category
}

// FrameFilter drops noise frames and assigns each surviving frame a
// category, applying the four rules of spec.md §4.H in order.
type FrameFilter struct {
	// ProloguePrefixes are fully qualified function-name prefixes
	// belonging to the interceptor, the stack capturer, and the backing
	// allocator adapter. Leading frames matching any of these are dropped.
	ProloguePrefixes []string
	// EntrypointSymbol is the sentinel marking the host's process entry
	// point (e.g. "main.main"). Frames below it (i.e. further from the
	// leaf, closer to process start) are dropped; the entrypoint frame
	// itself is kept.
	EntrypointSymbol string
	// UserModulePrefix identifies frames inside the executable under
	// analysis (rule c).
	UserModulePrefix string
	// DepsModules is a sorted list of known third-party module import
	// paths (rule b), supplied at build time.
	DepsModules []string
}

// DefaultFrameFilter returns a filter configured for heapviz's own module
// layout: it drops its own interceptor frames, stops at "main.main", and
// treats userModule as the profiled executable.
func DefaultFrameFilter(userModule string, deps []string) *FrameFilter {
	sorted := append([]string(nil), deps...)
	sort.Strings(sorted)

	return &FrameFilter{
		ProloguePrefixes: []string{
			"github.com/orizon-lang/heapviz/internal/alloctrace.",
		},
		EntrypointSymbol: "main.main",
		UserModulePrefix: userModule,
		DepsModules:      sorted,
	}
}

// Apply filters and categorizes a raw, capture-order (innermost-first) call
// path, returning it root-first and ready for tree folding.
func (f *FrameFilter) Apply(keys []CallSiteKey) []FilteredFrame {
	start := 0
	for start < len(keys) && f.isPrologue(keys[start]) {
		start++
	}

	end := len(keys)

	for i := len(keys) - 1; i >= start; i-- {
		if keys[i].Function == f.EntrypointSymbol {
			end = i + 1
			break
		}
	}

	if end < start {
		end = start
	}

	kept := keys[start:end]

	out := make([]FilteredFrame, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		k := kept[i]
		if len(out) > 0 && out[len(out)-1].Key == k {
			continue // inline squash: adjacent identical frame
		}

		out = append(out, FilteredFrame{Key: k, Category: f.categorize(k)})
	}

	return out
}

func (f *FrameFilter) isPrologue(k CallSiteKey) bool {
	for _, p := range f.ProloguePrefixes {
		if hasPrefix(k.Function, p) {
			return true
		}
	}

	return false
}

func (f *FrameFilter) categorize(k CallSiteKey) Category {
	switch {
	case isStdModule(k.Module):
		return CategoryStd
	case f.isDepsModule(k.Module):
		return CategoryDeps
	case f.UserModulePrefix != "" && hasPrefix(k.Module, f.UserModulePrefix):
		return CategoryUser
	default:
		return CategoryOther
	}
}

// isStdModule applies the common Go heuristic: standard library import
// paths have no dot in their first path element, unlike any module-rooted
// third-party or user import path.
func isStdModule(module string) bool {
	if module == "" {
		return false
	}

	first := module
	if i := indexByte(module, '/'); i >= 0 {
		first = module[:i]
	}

	return indexByte(first, '.') < 0
}

func (f *FrameFilter) isDepsModule(module string) bool {
	if module == "" || len(f.DepsModules) == 0 {
		return false
	}

	i := sort.SearchStrings(f.DepsModules, module)
	if i < len(f.DepsModules) && f.DepsModules[i] == module {
		return true
	}

	if i > 0 && hasPrefix(module, f.DepsModules[i-1]+"/") {
		return true
	}

	return false
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}

	return -1
}
