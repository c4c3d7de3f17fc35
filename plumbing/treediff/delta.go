// Package treediff implements the three-way delta builder of spec.md §4.2:
// it wraps plumbing/walker with a callback that classifies each emitted
// triple's per-side status, conflict kind, and directory/file shadowing.
//
// Grounded on the mergeDiffType enum and compareCommitsChanges in the
// teacher's worktree_merge.go (the direct ancestor of this package's
// Conflict enum), and on diff_tree.c's process_entry bookkeeping
// (df_path/prev_path/prev_delta) for the single-linear-scan D/F detector.
package treediff

import (
	"github.com/coreglyph/merge3/plumbing/mode"
	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/walker"
)

// Status is a per-side classification of a delta (spec.md §3 "Per-side
// diff entry").
type Status int

const (
	Unmodified Status = iota
	Added
	Deleted
	Modified
	Typechange
)

func (s Status) String() string {
	switch s {
	case Unmodified:
		return "UNMODIFIED"
	case Added:
		return "ADDED"
	case Deleted:
		return "DELETED"
	case Modified:
		return "MODIFIED"
	case Typechange:
		return "TYPECHANGE"
	default:
		return "UNKNOWN"
	}
}

// Conflict is the structural conflict kind of a three-way delta (spec.md
// §3 "Three-way delta").
type Conflict int

const (
	ConflictNone Conflict = iota
	BothAdded
	BothModified
	BothDeleted
	ModifyDelete
)

// DFConflict flags directory/file shadowing (spec.md §4.2).
type DFConflict int

const (
	DFNone DFConflict = iota
	DirectoryFile
	Child
)

// SideEntry is the per-side half of a delta: the tree entry (mode == 0
// meaning absent) and its classification against the ancestor.
type SideEntry struct {
	File   object.TreeEntry
	Status Status
}

// Exists reports whether this side has a present entry.
func (s SideEntry) Exists() bool {
	return s.File.Exists()
}

// Delta is spec.md §3's "Three-way delta": the ancestor/ours/theirs triple
// plus conflict/df_conflict classification.
type Delta struct {
	Path string

	Ancestor SideEntry
	Ours     SideEntry
	Theirs   SideEntry

	Conflict   Conflict
	DFConflict DFConflict
}

// AddedOrModified is the predicate spec.md §4.2 uses for D/F shadowing:
// either side is ADDED or MODIFIED at this delta's path.
func (d *Delta) AddedOrModified() bool {
	return isAddedOrModified(d.Ours.Status) || isAddedOrModified(d.Theirs.Status)
}

func isAddedOrModified(s Status) bool {
	return s == Added || s == Modified
}

// DiffList is the ordered sequence of deltas in canonical walker order
// (spec.md §3 "Diff-list"). Go's garbage collector owns the lifetime of
// the path strings Deltas reference, which is the memory-safe equivalent
// of spec.md §9's "arena owned by the diff-list" — no manual arena is
// needed in this language, a Delta simply holds its own string.
type DiffList struct {
	Deltas []*Delta
}

// Options controls the walk underneath Build.
type Options struct {
	// ReturnUnmodified emits deltas whose three sides are all identical
	// (spec.md §8 RETURN_UNMODIFIED).
	ReturnUnmodified bool
}

// Build performs the three-way structural diff of spec.md §4.2: ancestor,
// ours and theirs trees in, an ordered DiffList with conflict/df_conflict
// classification out.
func Build(ancestor, ours, theirs *object.Tree, opts Options) (*DiffList, error) {
	dl := &DiffList{}

	var dfPath string
	dfPathSet := false
	var prevPath string
	prevPathSet := false
	var prevDelta *Delta

	err := walker.Walk(
		[]*object.Tree{ancestor, ours, theirs},
		walker.Options{ReturnUnmodified: opts.ReturnUnmodified},
		func(path string, slots []*object.TreeEntry) bool {
			d := &Delta{Path: path}
			d.Ancestor = ancestorSideEntry(slots[0])
			d.Ours = sideEntry(slots[0], slots[1])
			d.Theirs = sideEntry(slots[0], slots[2])
			d.Conflict = classifyConflict(d.Ours.Status, d.Theirs.Status)

			// D/F shadowing: single linear scan in canonical path order
			// (spec.md §4.2).
			if dfPathSet && object.IsParentOf(dfPath, path) {
				d.DFConflict = Child
			} else {
				dfPathSet = false
			}

			if prevPathSet && prevDelta.AddedOrModified() && d.AddedOrModified() && object.IsParentOf(prevPath, path) {
				d.DFConflict = Child
				prevDelta.DFConflict = DirectoryFile
				dfPath = prevPath
				dfPathSet = true
			}

			prevPath = path
			prevPathSet = true
			prevDelta = d

			dl.Deltas = append(dl.Deltas, d)
			return false
		},
	)
	if err != nil {
		return nil, err
	}

	return dl, nil
}

// ClassifySide applies spec.md §4.2's per-side status table to a single
// side against the ancestor. It is exported so an N-way structural diff
// (the octopus case of §4.6, which folds more than one "theirs" side
// through the same classification rather than the fixed three-slot Build)
// can reuse the exact same rules instead of duplicating them.
func ClassifySide(ancestorSlot, sideSlot *object.TreeEntry) SideEntry {
	return sideEntry(ancestorSlot, sideSlot)
}

// ancestorSideEntry wraps the ancestor slot as a SideEntry. The ancestor
// has no "status" of its own — it is the reference point the other two
// sides are classified against — so Status is left Unmodified by
// convention.
func ancestorSideEntry(ancestorSlot *object.TreeEntry) SideEntry {
	if ancestorSlot == nil {
		return SideEntry{Status: Unmodified}
	}
	return SideEntry{File: *ancestorSlot, Status: Unmodified}
}

// sideEntry computes the status of side against ancestor per the table in
// spec.md §4.2. ancestorSlot and sideSlot are nil when absent.
func sideEntry(ancestorSlot, sideSlot *object.TreeEntry) SideEntry {
	ancestorPresent := ancestorSlot != nil
	sidePresent := sideSlot != nil

	switch {
	case !ancestorPresent && !sidePresent:
		return SideEntry{Status: Unmodified}
	case !ancestorPresent && sidePresent:
		return SideEntry{File: *sideSlot, Status: Added}
	case ancestorPresent && !sidePresent:
		return SideEntry{Status: Deleted}
	default:
		a, s := *ancestorSlot, *sideSlot
		if !mode.SameKind(a.Mode, s.Mode) {
			return SideEntry{File: s, Status: Typechange}
		}
		if a.Mode == s.Mode && a.OID.Equal(s.OID) {
			return SideEntry{File: s, Status: Unmodified}
		}
		return SideEntry{File: s, Status: Modified}
	}
}

func classifyConflict(ours, theirs Status) Conflict {
	switch {
	case ours == Added && theirs == Added:
		return BothAdded
	case ours == Modified && theirs == Modified:
		return BothModified
	case ours == Deleted && theirs == Deleted:
		return BothDeleted
	case (ours == Modified && theirs == Deleted) || (ours == Deleted && theirs == Modified):
		return ModifyDelete
	default:
		return ConflictNone
	}
}
