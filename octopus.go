package merge3

import (
	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/treediff"
	"github.com/coreglyph/merge3/plumbing/walker"
)

// OctopusDelta is the N-way analogue of treediff.Delta: one ancestor side
// plus one SideEntry per head (ours first, then each further theirs head),
// with no conflict/df_conflict classification — spec.md §4.6 only promises
// a structural diff for octopus, not the full §4.2 conflict machinery.
type OctopusDelta struct {
	Path     string
	Ancestor treediff.SideEntry
	Sides    []treediff.SideEntry

	// Trivial is the side to apply when exactly one head changed (or none
	// did); nil when more than one head changed and resolving the delta
	// is beyond what this engine implements for octopus merges (spec.md
	// §4.6 "conflict resolution beyond trivial is not implemented").
	Trivial *treediff.SideEntry
}

func (d *OctopusDelta) resolveTrivial() {
	changedIdx := -1
	changedCount := 0
	for i, s := range d.Sides {
		if s.Status != treediff.Unmodified {
			changedCount++
			changedIdx = i
		}
	}
	switch changedCount {
	case 0:
		d.Trivial = &d.Sides[0]
	case 1:
		d.Trivial = &d.Sides[changedIdx]
	}
}

// octopusDiff builds the structural N-way diff over one ancestor and
// headTrees[0]=ours, headTrees[1:]=the further theirs heads, a direct
// consumer of plumbing/walker with N>2 (spec.md's octopus supplement), and
// resolves each delta trivially where possible.
func octopusDiff(ancestor *object.Tree, headTrees []*object.Tree, opts treediff.Options) ([]*OctopusDelta, error) {
	trees := make([]*object.Tree, 0, len(headTrees)+1)
	trees = append(trees, ancestor)
	trees = append(trees, headTrees...)

	var deltas []*OctopusDelta

	err := walker.Walk(trees, walker.Options{ReturnUnmodified: opts.ReturnUnmodified}, func(path string, slots []*object.TreeEntry) bool {
		d := &OctopusDelta{Path: path}
		d.Ancestor = treediff.ClassifySide(nil, slots[0])
		d.Ancestor.Status = treediff.Unmodified

		d.Sides = make([]treediff.SideEntry, 0, len(slots)-1)
		for _, s := range slots[1:] {
			d.Sides = append(d.Sides, treediff.ClassifySide(slots[0], s))
		}
		d.resolveTrivial()

		deltas = append(deltas, d)
		return false
	})
	if err != nil {
		return nil, err
	}

	return deltas, nil
}
