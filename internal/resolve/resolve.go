// Package resolve implements the conflict-resolution cascade of spec.md
// §4.4: trivial resolution, then removed-file resolution, then automerge,
// then mark-unresolved — mutating an index.Store and recording REUC rows
// as it goes.
//
// Grounded line-for-line on libgit2's merge_conflict_resolve_trivial/
// merge_conflict_resolve_removed/merge_conflict_resolve_automerge/
// merge_conflict_resolve (original_source/src/merge.c:737-960), and on the
// teacher's mergeFiles/addConflictFile (worktree_merge.go) for how an
// automerge result gets written back through an ODB and staged.
package resolve

import (
	"github.com/pkg/errors"

	"github.com/coreglyph/merge3/plumbing/filemerge"
	"github.com/coreglyph/merge3/plumbing/index"
	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/treediff"
)

// Options mirrors the "Resolve" bit-flags of spec.md §8.
type Options struct {
	// NoRemoved disables removed-file resolution (§4.4 step 2).
	NoRemoved bool
	// NoAutomerge disables automerge resolution (§4.4 step 3).
	NoAutomerge bool
	// Favor is passed through to the file merger (§4.3).
	Favor filemerge.Favor
}

// Resolver runs the cascade over a DiffList.
type Resolver struct {
	Index index.Store
	ODB   object.ObjectStore
	Opts  Options
}

// New creates a Resolver.
func New(idx index.Store, odb object.ObjectStore, opts Options) *Resolver {
	return &Resolver{Index: idx, ODB: odb, Opts: opts}
}

// Resolve walks dl.Deltas in order, applies the cascade to each, and
// returns the deltas left unresolved (in path order, spec.md §8 invariant
// 5), then flushes the index exactly once (spec.md §5).
func (r *Resolver) Resolve(dl *treediff.DiffList, ourName, theirName string) ([]*treediff.Delta, error) {
	var conflicts []*treediff.Delta

	for _, d := range dl.Deltas {
		resolved, err := r.resolveOne(d, ourName, theirName)
		if err != nil {
			return nil, err
		}
		if !resolved {
			if err := r.markUnresolved(d); err != nil {
				return nil, err
			}
			conflicts = append(conflicts, d)
		}
	}

	if err := r.Index.Flush(); err != nil {
		return nil, errors.Wrap(err, "resolve: flush index")
	}

	return conflicts, nil
}

func (r *Resolver) resolveOne(d *treediff.Delta, ourName, theirName string) (bool, error) {
	resolved, err := r.trivial(d)
	if err != nil || resolved {
		return resolved, err
	}

	resolved, err = r.removed(d)
	if err != nil || resolved {
		return resolved, err
	}

	return r.automerge(d, ourName, theirName)
}

// trivial implements spec.md §4.4 step 1 / libgit2's
// merge_conflict_resolve_trivial.
func (r *Resolver) trivial(d *treediff.Delta) (bool, error) {
	if d.DFConflict == treediff.DirectoryFile {
		return false, nil
	}

	oursChanged := d.Ours.Status != treediff.Unmodified
	theirsChanged := d.Theirs.Status != treediff.Unmodified
	oursEmpty := !d.Ours.Exists()
	theirsEmpty := !d.Theirs.Exists()
	oursTheirsDiffer := oursChanged && theirsChanged && !sameFile(d.Ours, d.Theirs)

	var result *treediff.SideEntry

	switch {
	case oursChanged && !oursEmpty && !oursTheirsDiffer:
		result = &d.Ours
	case oursChanged && oursEmpty && theirsEmpty:
		// no merge
	case oursEmpty && !theirsChanged:
		// no merge
	case !oursChanged && theirsEmpty:
		// no merge
	case oursChanged && !theirsChanged:
		result = &d.Ours
	case !oursChanged && theirsChanged:
		result = &d.Theirs
	}

	if result == nil {
		return false, nil
	}

	if err := r.apply(d, result); err != nil {
		return false, err
	}
	// Trivial resolution never writes a REUC entry (spec.md §4.4 invariant 4).
	return true, nil
}

// removed implements spec.md §4.4 step 2 / libgit2's
// merge_conflict_resolve_removed.
func (r *Resolver) removed(d *treediff.Delta) (bool, error) {
	if r.Opts.NoRemoved {
		return false, nil
	}
	if d.DFConflict == treediff.DirectoryFile {
		return false, nil
	}

	oursEmpty := !d.Ours.Exists()
	theirsEmpty := !d.Theirs.Exists()
	oursChanged := d.Ours.Status != treediff.Unmodified
	theirsChanged := d.Theirs.Status != treediff.Unmodified

	var result *treediff.SideEntry

	switch {
	case oursChanged && oursEmpty && theirsEmpty:
		result = &d.Ours
	case oursEmpty && !theirsChanged:
		result = &d.Ours
	case !oursChanged && theirsEmpty:
		result = &d.Theirs
	}

	if result == nil {
		return false, nil
	}

	if err := r.apply(d, result); err != nil {
		return false, err
	}
	if err := r.writeReuc(d); err != nil {
		return false, err
	}
	return true, nil
}

// automerge implements spec.md §4.4 step 3 / libgit2's
// merge_conflict_resolve_automerge.
func (r *Resolver) automerge(d *treediff.Delta, ourName, theirName string) (bool, error) {
	if r.Opts.NoAutomerge {
		return false, nil
	}
	if d.DFConflict == treediff.DirectoryFile {
		return false, nil
	}

	// Reject link/file conflicts. Absence counts as non-symlink, so an
	// absent ancestor still rejects a delta where either side is a
	// symlink and the other isn't (libgit2 merge_conflict_resolve_automerge,
	// merge.c:888-890, compares raw mode bits unconditionally).
	ancestorExists := d.Ancestor.Exists()
	ancestorLink := d.Ancestor.File.Mode.IsSymlink()
	if ancestorLink != d.Ours.File.Mode.IsSymlink() || ancestorLink != d.Theirs.File.Mode.IsSymlink() {
		return false, nil
	}

	if !d.Ours.Exists() || !d.Theirs.Exists() {
		return false, nil
	}

	bestPath, ok := filemerge.BestPath(ancestorExists, d.Ancestor.File.Path, d.Ours.File.Path, d.Theirs.File.Path)
	if !ok {
		return false, nil
	}

	bestMode, ok := filemerge.BestMode(ancestorExists, d.Ancestor.File.Mode, d.Ours.File.Mode, d.Theirs.File.Mode)
	if !ok {
		return false, nil
	}

	ancestorContent, err := r.readBlob(d.Ancestor)
	if err != nil {
		return false, err
	}
	oursContent, err := r.readBlob(d.Ours)
	if err != nil {
		return false, err
	}
	theirsContent, err := r.readBlob(d.Theirs)
	if err != nil {
		return false, err
	}

	res := filemerge.Merge(ancestorContent, oursContent, theirsContent, r.Opts.Favor, ourName, theirName)
	if !res.Automergeable {
		return false, nil
	}

	newOID, err := r.ODB.WriteBlob(res.Content)
	if err != nil {
		return false, errors.Wrap(err, "resolve: write automerged blob")
	}

	if err := r.Index.Upsert(index.Entry{
		Path: bestPath,
		Mode: bestMode,
		OID:  newOID,
		Size: uint64(len(res.Content)),
	}); err != nil {
		return false, errors.Wrap(err, "resolve: stage automerged entry")
	}

	if err := r.writeReuc(d); err != nil {
		return false, err
	}

	return true, nil
}

// markUnresolved implements spec.md §4.4 step 4.
func (r *Resolver) markUnresolved(d *treediff.Delta) error {
	if err := r.Index.Remove(d.Path); err != nil {
		return errors.Wrap(err, "resolve: remove ours entry before staging conflict")
	}

	var ancestor, ours, theirs *index.Entry
	if d.Ancestor.Exists() {
		ancestor = sideIndexEntry(d.Path, d.Ancestor)
	}
	if d.Ours.Exists() {
		ours = sideIndexEntry(d.Path, d.Ours)
	}
	if d.Theirs.Exists() {
		theirs = sideIndexEntry(d.Path, d.Theirs)
	}

	return errors.Wrap(r.Index.AddConflict(ancestor, ours, theirs), "resolve: stage conflict entries")
}

// apply implements spec.md §4.4.1: "Applying a resolved entry to the
// index".
func (r *Resolver) apply(d *treediff.Delta, side *treediff.SideEntry) error {
	if side == nil || !side.Exists() {
		return errors.Wrap(r.Index.Remove(d.Path), "resolve: remove deleted entry")
	}

	return errors.Wrap(r.Index.Upsert(index.Entry{
		Path: d.Path,
		Mode: side.File.Mode,
		OID:  side.File.OID,
		Size: side.File.Size,
	}), "resolve: upsert resolved entry")
}

// writeReuc builds and records spec.md §4.4.2's REUC row, encoding absence
// on a side as mode=0 and the zero OID.
func (r *Resolver) writeReuc(d *treediff.Delta) error {
	row := index.ReucEntry{Path: d.Path}

	if d.Ancestor.Exists() {
		row.AncestorMode = d.Ancestor.File.Mode
		row.AncestorOID = d.Ancestor.File.OID
	}
	if d.Ours.Exists() {
		row.OurMode = d.Ours.File.Mode
		row.OurOID = d.Ours.File.OID
	}
	if d.Theirs.Exists() {
		row.TheirMode = d.Theirs.File.Mode
		row.TheirOID = d.Theirs.File.OID
	}

	return errors.Wrap(r.Index.AddReuc(row), "resolve: write REUC entry")
}

func (r *Resolver) readBlob(side treediff.SideEntry) ([]byte, error) {
	if !side.Exists() {
		return nil, nil
	}
	content, err := r.ODB.ReadBlob(side.File.OID)
	return content, errors.Wrapf(err, "resolve: read blob for %s", side.File.Path)
}

func sideIndexEntry(path string, side treediff.SideEntry) *index.Entry {
	return &index.Entry{Path: path, Mode: side.File.Mode, OID: side.File.OID, Size: side.File.Size}
}

// sameFile compares two present-or-absent sides for (mode, oid) equality
// — "ours.file != theirs.file" in spec.md's ours_theirs_differ predicate.
func sameFile(a, b treediff.SideEntry) bool {
	if a.Exists() != b.Exists() {
		return false
	}
	if !a.Exists() {
		return true
	}
	return a.File.Mode == b.File.Mode && a.File.OID.Equal(b.File.OID)
}
