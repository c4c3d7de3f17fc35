package merge3

import "github.com/coreglyph/merge3/plumbing/filemerge"

// Options is the entire configuration surface of a merge (spec.md §8
// "Option flags"). It is a plain struct rather than a bitmask — Go has no
// need for hand-rolled bit-flag packing when the field count is this
// small — but every field below corresponds 1:1 to one of spec.md's named
// flags. The zero value is the sane default: fast-forward allowed, removed
// and automerge resolution both enabled, no favored side, diff3 output
// enabled, unmodified deltas suppressed — matching the teacher's
// `CommitOptions`/`ResetOptions` convention of a zero-value-is-default
// struct with a `Validate` normalization step.
type Options struct {
	// NoFastForward disables the fast-forward short-circuit of §4.6,
	// forcing a full merge even when ours is an ancestor of theirs
	// (spec.md §8 "Merge: NO_FASTFORWARD").
	NoFastForward bool

	// NoRemoved disables §4.4 step 2 (spec.md §8 "Resolve: NO_REMOVED").
	NoRemoved bool
	// NoAutomerge disables §4.4 step 3 (spec.md §8 "Resolve: NO_AUTOMERGE").
	NoAutomerge bool
	// Favor forces conflict hunks to resolve to one side instead of
	// recording a conflict (spec.md §8 "FAVOR_OURS, FAVOR_THEIRS").
	Favor filemerge.Favor

	// NoDiff3 skips the diff3-annotated worktree file and goes straight to
	// side files for every unresolved conflict (spec.md §8
	// "Conflict materialization: NO_DIFF3").
	NoDiff3 bool

	// ReturnUnmodified causes the structural diff to emit deltas whose
	// three sides are all identical (spec.md §8 "Walker: RETURN_UNMODIFIED").
	ReturnUnmodified bool
}

// Validate normalizes opts. No combination of these flags is currently
// invalid; the orchestrator calls it anyway ahead of every merge.
func (o *Options) Validate() error {
	return nil
}
