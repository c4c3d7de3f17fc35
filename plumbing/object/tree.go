// Package object holds the tree/blob/commit-adjacent data types the merge
// engine operates on, and the ObjectStore (ODB) contract spec.md §1 treats
// as an external collaborator. A small in-memory ObjectStore is provided
// for tests and for orchestrator defaults, grounded on the content-
// addressed storer pattern go-git's plumbing/storer package uses.
package object

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/coreglyph/merge3/plumbing/mode"
	"github.com/coreglyph/merge3/plumbing/oid"
)

// TreeEntry is a single named entry of a tree: spec.md §3 "Tree entry".
type TreeEntry struct {
	Path string
	Mode mode.FileMode
	OID  oid.OID
	// Size is only meaningful for blob entries; it is left zero for trees.
	Size uint64
}

// Exists reports whether the entry represents a present side (mode != 0).
func (e TreeEntry) Exists() bool {
	return e.Mode != mode.Empty
}

// Tree is an ordered mapping of name -> (mode, OID) representing a
// directory snapshot, already flattened to full slash-separated paths (the
// walker in plumbing/walker does not recurse; callers pass fully flattened
// trees, per spec.md §4.1).
type Tree struct {
	entries []TreeEntry
}

// NewTree builds a Tree from entries, sorting them into the canonical
// tree-encoding order (see Less in this package). Duplicate paths are not
// checked for; they are kept as given.
func NewTree(entries []TreeEntry) *Tree {
	cp := make([]TreeEntry, len(entries))
	copy(cp, entries)
	sort.Slice(cp, func(i, j int) bool {
		return Less(cp[i].Path, cp[j].Path)
	})
	return &Tree{entries: cp}
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// At returns the i-th entry in canonical order.
func (t *Tree) At(i int) TreeEntry {
	return t.entries[i]
}

// Entries returns a copy of every entry in canonical order, for callers
// (such as Encode) that want the whole slice rather than walking index by
// index.
func (t *Tree) Entries() []TreeEntry {
	if t == nil {
		return nil
	}
	out := make([]TreeEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Encode renders the tree as a deterministic byte sequence, one line per
// entry in canonical order: "<mode> <oid> <path>\n". Used to derive a
// content-addressed OID for a synthesized tree, the same way a real ODB
// would hash a serialized tree object.
func (t *Tree) Encode() []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries() {
		fmt.Fprintf(&buf, "%o %s %s\n", uint32(e.Mode), e.OID, e.Path)
	}
	return buf.Bytes()
}

// Less implements the canonical path comparator spec.md §4.1 requires: a
// byte-wise comparison of the path, with the caveat that a tree entry named
// X sorts as if it were "X/". This is the same comparator used to serialize
// trees, and is reused verbatim by plumbing/walker and by any test harness
// that needs to generate ordered expectations (spec.md §9 "Path
// comparator").
//
// Entries reaching this package are always fully flattened paths (the
// walker does not recurse; see spec.md §4.1), so the trailing-slash rule
// falls out of plain byte-wise comparison for free: a blob "lib.py" and a
// path "lib/x" descending from directory "lib" already differ at the byte
// immediately after "lib" ('.' = 0x2e vs '/' = 0x2f), which is exactly the
// order a literal "lib" tree entry compared as "lib/" would produce. No
// synthetic byte insertion is needed once paths are flattened.
func Less(a, b string) bool {
	return a < b
}

// Compare is the exported comparator; negative/zero/positive as a sorts
// before/equal to/after b.
func Compare(a, b string) int {
	return strings.Compare(a, b)
}

// TreeStore is the tree-graph contract the orchestrator uses to resolve a
// commit's TreeOID to a Tree (spec.md §1's "object database" external
// collaborator, extended from blob-only ObjectStore since a tree isn't raw
// content — it's already-parsed structure by the time it reaches this
// engine). Grounded on object.Commit.Tree()/object.GetTree usage
// throughout the teacher.
type TreeStore interface {
	GetTree(id oid.OID) (*Tree, error)
	// Put adds or replaces a tree, so a caller that synthesizes one (the
	// orchestrator's virtual-ancestor fold) can make it reachable by later
	// GetTree calls.
	Put(id oid.OID, t *Tree) error
}

// MemoryTreeStore is a map-backed TreeStore, used by tests and as an
// orchestrator default.
type MemoryTreeStore struct {
	trees map[oid.OID]*Tree
}

// NewMemoryTreeStore creates an empty in-memory tree store.
func NewMemoryTreeStore() *MemoryTreeStore {
	return &MemoryTreeStore{trees: map[oid.OID]*Tree{}}
}

// Put implements TreeStore.
func (s *MemoryTreeStore) Put(id oid.OID, t *Tree) error {
	s.trees[id] = t
	return nil
}

// GetTree implements TreeStore.
func (s *MemoryTreeStore) GetTree(id oid.OID) (*Tree, error) {
	t, ok := s.trees[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// IsParentOf reports whether parent is a strict prefix of child followed by
// a path separator — the directory/file shadowing test spec.md §4.2 uses
// ("df_path is a parent of cur").
func IsParentOf(parent, child string) bool {
	if len(child) <= len(parent) {
		return false
	}
	if !strings.HasPrefix(child, parent) {
		return false
	}
	return child[len(parent)] == '/'
}
