// Package render turns an attribution.Tree into a static HTML page with
// the tree embedded as a JSON literal, and (via serve.go) exposes it over
// an optional local HTTP/3 listener. The page displays that JSON as
// indented text; the chart and syntax-highlighter scripts it links are
// loaded but do not draw a flamegraph.
package render

import (
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	"github.com/orizon-lang/heapviz/internal/attribution"
	heapvizerrors "github.com/orizon-lang/heapviz/internal/errors"
)

//go:embed assets/template.html
var pageTemplate string

const treeSubstitutionToken = "__HEAPVIZ_TREE_JSON__"

// DefaultSourceContextLines is K in spec.md §4.J's "±K lines of context"
// default: small enough that a leaf-dense flamegraph's embedded JSON
// doesn't balloon, generous enough to show the allocating statement in
// its surrounding block.
const DefaultSourceContextLines = 3

// fileContentJSON is a leaf's file_content block (spec.md §4.J): the
// source lines surrounding the attributed call site. Omitted entirely
// (encoding/json drops nil pointers given `omitempty`) when the source
// file could not be read.
type fileContentJSON struct {
	Before      []string `json:"before"`
	Highlighted string   `json:"highlighted"`
	After       []string `json:"after"`
}

// keyJSON is the nested per-node "key" object spec.md §4.J names
// verbatim: "key:{filename,lineno,fn_name,file_content?}". FileContent is
// the only field that is ever absent (non-leaves, or a leaf whose source
// could not be read).
type keyJSON struct {
	Filename    string           `json:"filename"`
	Lineno      int              `json:"lineno"`
	FnName      string           `json:"fn_name"`
	FileContent *fileContentJSON `json:"file_content,omitempty"`
}

// renderNode is the per-node JSON shape embedded into the page: exactly
// the fields spec.md §4.J lists — "key:{...}, category, allocation,
// allocation_count, deallocation, deallocation_count, children" — nested
// by children in the same left-to-right order the tree already carries.
type renderNode struct {
	Key               keyJSON      `json:"key"`
	Category          string       `json:"category"`
	Allocation        uint64       `json:"allocation"`
	AllocationCount   uint64       `json:"allocation_count"`
	Deallocation      uint64       `json:"deallocation"`
	DeallocationCount uint64       `json:"deallocation_count"`
	Children          []renderNode `json:"children"`
}

type renderDoc struct {
	OverflowCount uint64     `json:"overflow_count"`
	Root          renderNode `json:"root"`
}

// sourceProvider resolves a leaf's surrounding source lines. Page and
// WriteFile work without one (no file_content blocks); PageWithSource and
// WriteFileWithSource pass a *SourceCache.Context-shaped function so the
// renderer never has to import SourceCache's fsnotify plumbing directly.
type sourceProvider func(path string, line, k int) (*SourceContext, error)

func toRenderNode(n *attribution.Node, src sourceProvider, k int) renderNode {
	children := make([]renderNode, len(n.Children))
	for i, c := range n.Children {
		children[i] = toRenderNode(c, src, k)
	}

	rn := renderNode{
		Key: keyJSON{
			Filename: n.Key.File,
			Lineno:   n.Key.Line,
			FnName:   n.Key.Function,
		},
		Category:          string(n.Category),
		Allocation:        n.AllocBytes,
		AllocationCount:   n.AllocCount,
		Deallocation:      n.DeallocBytes,
		DeallocationCount: n.DeallocCount,
		Children:          children,
	}

	// file_content is only meaningful for leaves: an internal node's Key
	// is whatever frame happens to recur across many call paths, not a
	// single allocation site worth showing source for.
	if n.IsLeaf() && src != nil && n.Key.File != "" {
		if ctx, err := src(n.Key.File, n.Key.Line, k); err == nil {
			rn.Key.FileContent = toFileContentJSON(ctx, n.Key.Line)
		}
	}

	return rn
}

func toFileContentJSON(ctx *SourceContext, line int) *fileContentJSON {
	offset := line - ctx.StartLine
	if offset < 0 || offset >= len(ctx.Lines) {
		return &fileContentJSON{Before: ctx.Lines}
	}

	return &fileContentJSON{
		Before:      append([]string(nil), ctx.Lines[:offset]...),
		Highlighted: ctx.Lines[offset],
		After:       append([]string(nil), ctx.Lines[offset+1:]...),
	}
}

// Page renders t into a complete, self-contained HTML document: the
// static template with the tree substituted in as a JSON literal. No
// file_content blocks are attached; use PageWithSource for those.
func Page(t *attribution.Tree) (string, error) {
	return pageDoc(renderDoc{OverflowCount: t.OverflowCount, Root: toRenderNode(t.Root, nil, 0)})
}

// PageWithSource renders t the same way Page does, additionally attaching
// a file_content block (spec.md §4.J) to every leaf whose source file src
// can read, using a ±contextLines window around the attributed line.
func PageWithSource(t *attribution.Tree, src *SourceCache, contextLines int) (string, error) {
	if contextLines <= 0 {
		contextLines = DefaultSourceContextLines
	}

	var provider sourceProvider
	if src != nil {
		provider = src.Context
	}

	return pageDoc(renderDoc{OverflowCount: t.OverflowCount, Root: toRenderNode(t.Root, provider, contextLines)})
}

func pageDoc(doc renderDoc) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", heapvizerrors.NewStandardError(heapvizerrors.CategoryValidation, "RENDER_ENCODE_FAILURE", err.Error(), nil)
	}

	if !strings.Contains(pageTemplate, treeSubstitutionToken) {
		return "", heapvizerrors.NewStandardError(heapvizerrors.CategoryValidation, "TEMPLATE_MISSING_TOKEN",
			"render template is missing its tree substitution token", nil)
	}

	return strings.Replace(pageTemplate, treeSubstitutionToken, string(data), 1), nil
}

// WriteFile renders t and writes the resulting page to path.
func WriteFile(t *attribution.Tree, path string) error {
	page, err := Page(t)
	if err != nil {
		return err
	}

	return writePage(page, path)
}

// WriteFileWithSource renders t with file_content blocks attached (see
// PageWithSource) and writes the result to path.
func WriteFileWithSource(t *attribution.Tree, path string, src *SourceCache, contextLines int) error {
	page, err := PageWithSource(t, src, contextLines)
	if err != nil {
		return err
	}

	return writePage(page, path)
}

func writePage(page, path string) error {
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return heapvizerrors.OutputIOFailure(path, err)
	}

	return nil
}
