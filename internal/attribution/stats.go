package attribution

// Stats is the frozen, not-yet-folded result of Tracker.Collect: the raw
// events plus the overflow counter observed at freeze time. IntoTree runs
// the remaining symbolicate -> filter/categorize -> fold pipeline stages
// (components G, H, and I).
type Stats struct {
	events   []RawEvent
	overflow uint64
	filter   *FrameFilter
}

// NewStats constructs a Stats from frozen events. A nil filter falls back
// to DefaultFrameFilter("", nil).
func NewStats(events []RawEvent, overflow uint64, filter *FrameFilter) *Stats {
	if filter == nil {
		filter = DefaultFrameFilter("", nil)
	}

	return &Stats{events: events, overflow: overflow, filter: filter}
}

// OverflowCount returns the number of events dropped because the log was
// full when they occurred.
func (s *Stats) OverflowCount() uint64 { return s.overflow }

// EventCount returns the number of recorded (non-overflowed) events.
func (s *Stats) EventCount() int { return len(s.events) }

// IntoTree symbolicates every instruction pointer appearing in the frozen
// events, filters and categorizes each call path, and folds the result
// into a call-path tree rooted at a synthetic root (spec.md §6).
func (s *Stats) IntoTree() *Tree {
	sym := NewSymbolicator()
	paths := make([][]FilteredFrame, len(s.events))

	for i, ev := range s.events {
		keys := sym.Resolve(ev.Stack)
		paths[i] = s.filter.Apply(keys)
	}

	return BuildTree(paths, s.events, s.overflow)
}
