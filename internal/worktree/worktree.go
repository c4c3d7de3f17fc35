// Package worktree materializes an unresolved conflict into the working
// tree, per spec.md §4.5: either a single diff3-annotated file at the
// delta's best path, or a pair of side files (one per present side) when
// diff3 output isn't eligible or has been disabled.
//
// Grounded on the teacher's writeBothAddedConflictFile/copyFileToOurs
// (worktree_merge.go:841-939) for the create-then-populate-via-Filesystem
// pattern, and on libgit2's merge_conflict_write_diff3/
// merge_conflict_write_sides (original_source/src/merge.c:962-1093) for the
// write-diff3-then-fall-back-to-sides control flow — with the §9 pointer
// bug (a stack address that is always non-nil) corrected to a plain bool.
package worktree

import (
	"os"

	"github.com/pkg/errors"
	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/coreglyph/merge3/plumbing/filemerge"
	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/treediff"
)

// Writer materializes unresolved conflicts into a worktree filesystem.
type Writer struct {
	FS  billy.Filesystem
	ODB object.ObjectStore
	// NoDiff3 disables diff3 materialization, forcing side files always
	// (spec.md §8 NO_DIFF3).
	NoDiff3 bool
}

// New creates a Writer.
func New(fs billy.Filesystem, odb object.ObjectStore, noDiff3 bool) *Writer {
	return &Writer{FS: fs, ODB: odb, NoDiff3: noDiff3}
}

// WriteConflict materializes d, which the resolver left unresolved.
// ourName/theirName are the display names used in conflict markers and
// side-file suffixes (spec.md §4.3 "Display names", §4.5 side-file
// naming).
func (w *Writer) WriteConflict(d *treediff.Delta, ourName, theirName string) error {
	written := false

	if !w.NoDiff3 {
		ok, err := w.tryWriteDiff3(d, ourName, theirName)
		if err != nil {
			return err
		}
		written = ok
	}

	if written {
		return nil
	}

	return w.writeSideFiles(d, ourName, theirName)
}

// tryWriteDiff3 attempts the diff3-annotated single-file path. It reports
// written=false (no error) whenever the delta isn't eligible — a D/F
// conflict, a symlink/non-symlink mismatch against the ancestor, either
// side absent, or an ambiguous best path/mode — so the caller falls back to
// side files.
func (w *Writer) tryWriteDiff3(d *treediff.Delta, ourName, theirName string) (bool, error) {
	if d.DFConflict == treediff.DirectoryFile {
		return false, nil
	}

	// Absence counts as non-symlink, matching merge_conflict_resolve_automerge's
	// unconditional mode-bit comparison (merge.c:888-890).
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

	ancestorContent, err := w.readBlob(d.Ancestor)
	if err != nil {
		return false, err
	}
	oursContent, err := w.readBlob(d.Ours)
	if err != nil {
		return false, err
	}
	theirsContent, err := w.readBlob(d.Theirs)
	if err != nil {
		return false, err
	}

	// FavorNone: this writer always emits conflict markers and applies no
	// Favor policy. With automerge enabled, an eligible delta only reaches
	// it after the resolver's merge (which applies any Favor) failed; with
	// NoAutomerge set, Favor is not applied anywhere.
	res := filemerge.Merge(ancestorContent, oursContent, theirsContent, filemerge.FavorNone, ourName, theirName)

	f, err := w.FS.OpenFile(bestPath, os.O_CREATE|os.O_EXCL|os.O_TRUNC|os.O_WRONLY, os.FileMode(bestMode.Perm()))
	if err != nil {
		return false, errors.Wrapf(err, "worktree: create diff3 file %s", bestPath)
	}
	defer f.Close()

	if _, err := f.Write(res.Content); err != nil {
		return false, errors.Wrapf(err, "worktree: write diff3 file %s", bestPath)
	}

	return true, nil
}

// writeSideFiles writes one file per present side, suffixed with its
// display name (spec.md §4.5: "<path>~<branch-or-oid>"). The ancestor is
// never materialized.
func (w *Writer) writeSideFiles(d *treediff.Delta, ourName, theirName string) error {
	if d.Ours.Exists() {
		if err := w.writeSide(d.Ours, d.Path+"~"+ourName); err != nil {
			return err
		}
	}
	if d.Theirs.Exists() {
		if err := w.writeSide(d.Theirs, d.Path+"~"+theirName); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeSide(side treediff.SideEntry, path string) error {
	content, err := w.ODB.ReadBlob(side.File.OID)
	if err != nil {
		return errors.Wrapf(err, "worktree: read blob for side file %s", path)
	}

	f, err := w.FS.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(side.File.Mode.Perm()))
	if err != nil {
		return errors.Wrapf(err, "worktree: create side file %s", path)
	}
	defer f.Close()

	_, err = f.Write(content)
	return errors.Wrapf(err, "worktree: write side file %s", path)
}

func (w *Writer) readBlob(side treediff.SideEntry) ([]byte, error) {
	if !side.Exists() {
		return nil, nil
	}
	content, err := w.ODB.ReadBlob(side.File.OID)
	return content, errors.Wrapf(err, "worktree: read blob for %s", side.File.Path)
}
