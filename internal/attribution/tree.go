package attribution

// rootKey is the sentinel identity of the synthetic root node.
var rootKey = CallSiteKey{File: "", Line: 0, Function: "<root>", Module: ""}

// Node is one node of the attribution tree. Children is insertion-ordered:
// a child created earlier always sorts earlier, which is what gives the
// rendered flamegraph its stable left-to-right layout.
type Node struct {
	Key      CallSiteKey
	Category Category
	Children []*Node

	AllocBytes   uint64
	AllocCount   uint64
	DeallocBytes uint64
	DeallocCount uint64

	childIdx map[CallSiteKey]int
}

func newNode(key CallSiteKey, cat Category) *Node {
	return &Node{Key: key, Category: cat, childIdx: make(map[CallSiteKey]int)}
}

// child returns the existing child keyed by key, creating and appending it
// (in first-seen order) if absent.
func (n *Node) child(key CallSiteKey, cat Category) *Node {
	if i, ok := n.childIdx[key]; ok {
		return n.Children[i]
	}

	c := newNode(key, cat)
	n.childIdx[key] = len(n.Children)
	n.Children = append(n.Children, c)

	return c
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Tree is the attribution tree, rooted at a synthetic node whose counters
// equal the global totals.
type Tree struct {
	Root          *Node
	OverflowCount uint64
}

// BuildTree folds filtered, categorized call paths into a tree (spec.md
// §4.I). paths[i] is the filtered root-first call path for events[i]; an
// empty path attributes directly to the synthetic root.
func BuildTree(paths [][]FilteredFrame, events []RawEvent, overflow uint64) *Tree {
	root := newNode(rootKey, "")

	for i, path := range paths {
		ev := events[i]
		n := root

		for _, fr := range path {
			n = n.child(fr.Key, fr.Category)
		}

		switch ev.Kind {
		case KindAlloc:
			n.AllocBytes += uint64(ev.Size)
			n.AllocCount++
		case KindDealloc:
			n.DeallocBytes += uint64(ev.Size)
			n.DeallocCount++
		}
	}

	sumInclusive(root)

	return &Tree{Root: root, OverflowCount: overflow}
}

// sumInclusive is the post-order pass turning each node's counters from
// "directly attributed only" into "inclusive of every descendant."
func sumInclusive(n *Node) {
	for _, c := range n.Children {
		sumInclusive(c)
		n.AllocBytes += c.AllocBytes
		n.AllocCount += c.AllocCount
		n.DeallocBytes += c.DeallocBytes
		n.DeallocCount += c.DeallocCount
	}
}
