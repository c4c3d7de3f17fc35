// Package walker implements the lock-step, path-ordered N-way tree walker
// of spec.md §4.1: given N tree roots, it emits one length-N slot array per
// distinct path, in canonical tree order, and lets a three-way (or N-way)
// delta builder classify each path without worrying about iterator
// bookkeeping.
//
// Grounded on the two-tree step-lock iteration pattern visible in the
// teacher's getMergingDiff/merkletrie.DiffTree call (worktree_merge.go),
// generalized from 2-way to N-way, and on diff_tree.c's iterator-priming/
// advance loop (original_source/src/diff_tree.c) for the exact
// modified-detection tie-break.
package walker

import (
	"github.com/pkg/errors"

	"github.com/coreglyph/merge3/plumbing/object"
)

// ErrUserAborted is returned by Walk when the callback requested an abort.
// It is the "distinct error kind" spec.md §4.1/§7 calls out separately
// from propagated iterator errors.
var ErrUserAborted = errors.New("walker: aborted by callback")

// Callback is invoked once per emitted path. path is the common path of
// the slot array; slots[i] is nil if tree i has no entry at path. Returning
// true aborts the walk with ErrUserAborted.
type Callback func(path string, slots []*object.TreeEntry) (abort bool)

// Options controls what Walk emits.
type Options struct {
	// ReturnUnmodified causes Walk to invoke the callback even for paths
	// where every present entry has identical (mode, OID) — spec.md §4.1
	// step 4 / §8 option RETURN_UNMODIFIED.
	ReturnUnmodified bool
}

type iterator struct {
	tree *object.Tree
	pos  int
}

func (it *iterator) head() (object.TreeEntry, bool) {
	if it.tree == nil || it.pos >= it.tree.Len() {
		return object.TreeEntry{}, false
	}
	return it.tree.At(it.pos), true
}

func (it *iterator) advance() {
	it.pos++
}

// Walk performs the lock-step N-way walk over trees, invoking cb once per
// emitted path in strictly increasing canonical order (spec.md §8 invariant
// 1). trees may contain nil entries for a tree that is conceptually empty
// (e.g. a deleted-everywhere ancestor).
func Walk(trees []*object.Tree, opts Options, cb Callback) error {
	if len(trees) < 2 {
		return errors.New("walker: need at least 2 trees")
	}

	iters := make([]*iterator, len(trees))
	for i, t := range trees {
		iters[i] = &iterator{tree: t}
	}

	for {
		best, anyPresent := nextBestPath(iters)
		if !anyPresent {
			return nil
		}

		slots := make([]*object.TreeEntry, len(iters))
		anyAbsentAtBest := false

		for i, it := range iters {
			e, ok := it.head()
			if ok && e.Path == best {
				entry := e
				slots[i] = &entry
			} else {
				anyAbsentAtBest = true
			}
		}

		if modified(slots, anyAbsentAtBest) || opts.ReturnUnmodified {
			if cb(best, slots) {
				return ErrUserAborted
			}
		}

		for _, it := range iters {
			if e, ok := it.head(); ok && e.Path == best {
				it.advance()
			}
		}
	}
}

// nextBestPath returns the minimum path among all iterator heads under the
// canonical comparator (spec.md §4.1 step 1), and whether any iterator had
// a head at all.
func nextBestPath(iters []*iterator) (string, bool) {
	var best string
	found := false

	for _, it := range iters {
		e, ok := it.head()
		if !ok {
			continue
		}
		if !found || object.Less(e.Path, best) {
			best = e.Path
			found = true
		}
	}

	return best, found
}

// modified implements spec.md §4.1 step 3: any iterator had no entry for
// best, or any pair of present heads differ in (mode, oid) under the
// index_entry_cmp tie-break (directories with equal paths are unmodified
// for this test regardless of OID, spec.md §4.1 "Tie-break").
func modified(slots []*object.TreeEntry, anyAbsent bool) bool {
	if anyAbsent {
		return true
	}

	var first *object.TreeEntry
	for _, s := range slots {
		if s == nil {
			continue
		}
		if first == nil {
			first = s
			continue
		}
		if !entriesMatch(*first, *s) {
			return true
		}
	}
	return false
}

// entriesMatch applies index_entry_cmp: equal if both are directory-typed
// (regardless of OID), otherwise equal iff mode and OID both match.
func entriesMatch(a, b object.TreeEntry) bool {
	if a.Mode.IsDir() && b.Mode.IsDir() {
		return true
	}
	if a.Mode != b.Mode {
		return false
	}
	return a.OID.Equal(b.OID)
}
