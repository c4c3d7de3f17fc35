package merge3

import (
	"github.com/coreglyph/merge3/plumbing/oid"
	"github.com/coreglyph/merge3/plumbing/treediff"
)

// Result is spec.md §3's "Merge result".
type Result struct {
	IsUpToDate    bool
	IsFastForward bool
	// FFOID is theirs.OID when IsFastForward is true, the zero OID
	// otherwise.
	FFOID oid.OID

	// Diff is nil when IsUpToDate or IsFastForward short-circuited the
	// remaining phases (spec.md §4.6).
	Diff *treediff.DiffList
	// Conflicts is every delta left unresolved after §4.4, in path order
	// (spec.md §8 invariant 5).
	Conflicts []*treediff.Delta

	// Octopus holds the structural N-way diff when the merge had more
	// than one theirs head (spec.md §4.6 "Octopus"); nil otherwise.
	Octopus []*OctopusDelta
}
