package render

import (
	"bufio"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	heapvizerrors "github.com/orizon-lang/heapviz/internal/errors"
)

// SourceContext is a leaf's file_content block: the lines surrounding the
// attributed call site, per spec.md §6.
type SourceContext struct {
	Path      string
	StartLine int
	Lines     []string
}

// SourceCache reads and caches source files for file_content blocks,
// invalidating an entry as soon as fsnotify reports the underlying file
// changed, so a long-lived render server never serves a stale snippet
// after the profiled program's source is edited. Grounded on the
// teacher's fsnotify-backed vfs.FSNotifyWatcher.
type SourceCache struct {
	mu      sync.Mutex
	files   map[string][]string
	watcher *fsnotify.Watcher
}

// NewSourceCache starts an fsnotify watcher for cache invalidation. If the
// platform watcher cannot be created, the cache still works but never
// invalidates proactively (entries are only ever read once each).
func NewSourceCache() *SourceCache {
	c := &SourceCache{files: make(map[string][]string)}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return c
	}

	c.watcher = w

	go c.loop()

	return c
}

func (c *SourceCache) loop() {
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.invalidate(ev.Name)
			}
		case _, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (c *SourceCache) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.files, path)
}

// Close stops the underlying watcher, if any.
func (c *SourceCache) Close() error {
	if c.watcher == nil {
		return nil
	}

	return c.watcher.Close()
}

// Context returns the K lines of context before and after line (1-based)
// in path, reading and caching the whole file on first access. Returns a
// nil SourceContext and a SourceFileUnavailable error if the file cannot
// be read, which callers treat as "omit this block," not a fatal error.
func (c *SourceCache) Context(path string, line, k int) (*SourceContext, error) {
	lines, err := c.lines(path)
	if err != nil {
		return nil, heapvizerrors.SourceFileUnavailable(path, err)
	}

	start := line - 1 - k
	if start < 0 {
		start = 0
	}

	end := line - 1 + k + 1
	if end > len(lines) {
		end = len(lines)
	}

	if start > end {
		start = end
	}

	return &SourceContext{Path: path, StartLine: start + 1, Lines: append([]string(nil), lines[start:end]...)}, nil
}

func (c *SourceCache) lines(path string) ([]string, error) {
	c.mu.Lock()
	if lines, ok := c.files[path]; ok {
		c.mu.Unlock()
		return lines, nil
	}
	c.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.files[path] = lines
	if c.watcher != nil {
		_ = c.watcher.Add(path)
	}
	c.mu.Unlock()

	return lines, nil
}
