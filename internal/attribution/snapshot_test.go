package attribution

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func buildSampleTree() *Tree {
	paths := [][]FilteredFrame{
		{{Key: key("main.main"), Category: CategoryUser}, {Key: key("app.work"), Category: CategoryUser}},
	}
	events := []RawEvent{{Kind: KindAlloc, Size: 256}}

	return BuildTree(paths, events, 3)
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	tr := buildSampleTree()
	snap := NewSnapshot(tr)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := snap.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if loaded.FormatVersion != CurrentFormatVersion {
		t.Errorf("FormatVersion = %q, want %q", loaded.FormatVersion, CurrentFormatVersion)
	}

	if loaded.OverflowCount != tr.OverflowCount {
		t.Errorf("OverflowCount = %d, want %d", loaded.OverflowCount, tr.OverflowCount)
	}

	rebuilt := loaded.Tree()
	if rebuilt.Root.AllocBytes != tr.Root.AllocBytes {
		t.Errorf("round-tripped root AllocBytes = %d, want %d", rebuilt.Root.AllocBytes, tr.Root.AllocBytes)
	}

	if len(rebuilt.Root.Children) != 1 || rebuilt.Root.Children[0].Key.Function != "main.main" {
		t.Fatalf("round-tripped tree shape mismatch: %+v", rebuilt.Root.Children)
	}
}

// TestSnapshotJSONNodeShapeMatchesSpec locks down the on-disk node shape
// to the same nested "key" object spec.md §4.J names for the renderer's
// output (see render_test.go's TestPageNodeShapeMatchesSpec), so a saved
// snapshot and a rendered page agree on where a node's identity lives.
func TestSnapshotJSONNodeShapeMatchesSpec(t *testing.T) {
	snap := NewSnapshot(buildSampleTree())

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	root, ok := raw["root"].(map[string]interface{})
	if !ok {
		t.Fatalf("root is not an object: %v", raw["root"])
	}

	key, ok := root["key"].(map[string]interface{})
	if !ok {
		t.Fatalf(`root missing nested "key" object: %v`, root)
	}

	for _, field := range []string{"filename", "lineno", "fn_name"} {
		if _, ok := key[field]; !ok {
			t.Errorf("key missing field %q: %v", field, key)
		}
	}

	for _, field := range []string{"category", "allocation", "allocation_count", "deallocation", "deallocation_count", "children"} {
		if _, ok := root[field]; !ok {
			t.Errorf("root missing field %q: %v", field, root)
		}
	}

	for _, stale := range []string{"file", "line", "function", "alloc_bytes", "alloc_count", "dealloc_bytes", "dealloc_count"} {
		if _, ok := root[stale]; ok {
			t.Errorf("root has stale flat field %q, should be nested under key or renamed", stale)
		}
	}
}

func TestLoadSnapshotRejectsIncompatibleFormatVersion(t *testing.T) {
	tr := buildSampleTree()
	snap := NewSnapshot(tr)
	snap.FormatVersion = "2.0.0"

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := snap.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := LoadSnapshot(path); err == nil {
		t.Fatal("expected LoadSnapshot to reject format version 2.0.0 against constraint ^1.0.0")
	}
}

func TestLoadSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	if _, err := LoadSnapshot(path); err == nil {
		t.Fatal("expected LoadSnapshot to reject non-JSON content")
	}
}
