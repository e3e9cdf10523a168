package attribution

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"

	heapvizerrors "github.com/orizon-lang/heapviz/internal/errors"
)

// CurrentFormatVersion is the semver of the snapshot wire format this build
// writes. LoadSnapshot rejects files whose FormatVersion does not satisfy
// CompatibleFormatRange, the same "don't silently misread
// a newer/older format" guard the teacher's package resolver applies to
// dependency version constraints.
const CurrentFormatVersion = "1.0.0"

// CompatibleFormatRange is the semver constraint a loaded snapshot's
// FormatVersion must satisfy. Widened only in lockstep with documented,
// backward-compatible wire-format changes.
const CompatibleFormatRange = "^1.0.0"

// nodeKeyJSON is the on-disk shape of a CallSiteKey, nested under
// nodeJSON's "key" field the same way spec.md §4.J's renderer output
// nests "key:{filename,lineno,fn_name,...}" — so a saved snapshot and a
// rendered page agree on where a node's identity lives. Module is an
// extra bookkeeping field spec.md §4.J doesn't name, kept here (not in
// the renderer's output) because only tooling reloading a Snapshot, not
// the HTML page, needs it to reconstruct a CallSiteKey exactly.
type nodeKeyJSON struct {
	Filename string `json:"filename"`
	Lineno   int    `json:"lineno"`
	FnName   string `json:"fn_name"`
	Module   string `json:"module"`
}

// nodeJSON is the on-disk shape of a Node: spec.md §4.J's per-node object
// (key/category/allocation/allocation_count/deallocation/
// deallocation_count/children), with nodeKeyJSON's extra Module field, so
// that tooling can reconstruct the tree without re-running the profiler.
type nodeJSON struct {
	Key               nodeKeyJSON `json:"key"`
	Category          Category    `json:"category"`
	Allocation        uint64      `json:"allocation"`
	AllocationCount   uint64      `json:"allocation_count"`
	Deallocation      uint64      `json:"deallocation"`
	DeallocationCount uint64      `json:"deallocation_count"`
	Children          []nodeJSON  `json:"children"`
}

// Snapshot is the persisted form of a Tree: a format version tag plus the
// folded tree itself, suitable for saving one process's profiling results
// and loading them later in another (e.g. to render offline).
type Snapshot struct {
	FormatVersion string   `json:"format_version"`
	OverflowCount uint64   `json:"overflow_count"`
	Root          nodeJSON `json:"root"`
}

// NewSnapshot captures t as a Snapshot tagged with CurrentFormatVersion.
func NewSnapshot(t *Tree) *Snapshot {
	return &Snapshot{
		FormatVersion: CurrentFormatVersion,
		OverflowCount: t.OverflowCount,
		Root:          toNodeJSON(t.Root),
	}
}

func toNodeJSON(n *Node) nodeJSON {
	children := make([]nodeJSON, len(n.Children))
	for i, c := range n.Children {
		children[i] = toNodeJSON(c)
	}

	return nodeJSON{
		Key: nodeKeyJSON{
			Filename: n.Key.File,
			Lineno:   n.Key.Line,
			FnName:   n.Key.Function,
			Module:   n.Key.Module,
		},
		Category:          n.Category,
		Allocation:        n.AllocBytes,
		AllocationCount:   n.AllocCount,
		Deallocation:      n.DeallocBytes,
		DeallocationCount: n.DeallocCount,
		Children:          children,
	}
}

func fromNodeJSON(nj nodeJSON) *Node {
	key := CallSiteKey{File: nj.Key.Filename, Line: nj.Key.Lineno, Function: nj.Key.FnName, Module: nj.Key.Module}
	n := newNode(key, nj.Category)
	n.AllocBytes = nj.Allocation
	n.AllocCount = nj.AllocationCount
	n.DeallocBytes = nj.Deallocation
	n.DeallocCount = nj.DeallocationCount

	for _, cj := range nj.Children {
		c := fromNodeJSON(cj)
		n.childIdx[c.Key] = len(n.Children)
		n.Children = append(n.Children, c)
	}

	return n
}

// Save encodes s as indented JSON and writes it to path.
func (s *Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return heapvizerrors.OutputIOFailure(path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return heapvizerrors.OutputIOFailure(path, err)
	}

	return nil
}

// LoadSnapshot reads and decodes a Snapshot from path, rejecting it if its
// FormatVersion does not satisfy CompatibleFormatRange.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, heapvizerrors.InvalidSnapshot(path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, heapvizerrors.InvalidSnapshot(path, err)
	}

	constraint, err := semver.NewConstraint(CompatibleFormatRange)
	if err != nil {
		return nil, heapvizerrors.InvalidSnapshot(path, err)
	}

	ver, err := semver.NewVersion(snap.FormatVersion)
	if err != nil {
		return nil, heapvizerrors.InvalidSnapshot(path, err)
	}

	if !constraint.Check(ver) {
		return nil, heapvizerrors.InvalidSnapshot(path, fmt.Errorf("format version %s incompatible with %s", snap.FormatVersion, CompatibleFormatRange))
	}

	return &snap, nil
}

// Tree reconstructs the call-path tree carried by the snapshot.
func (s *Snapshot) Tree() *Tree {
	return &Tree{Root: fromNodeJSON(s.Root), OverflowCount: s.OverflowCount}
}
