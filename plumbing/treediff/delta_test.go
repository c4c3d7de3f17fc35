package treediff_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/coreglyph/merge3/plumbing/mode"
	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/oid"
	"github.com/coreglyph/merge3/plumbing/treediff"
)

func blob(path string, b byte) object.TreeEntry {
	var o oid.OID
	o[0] = b
	return object.TreeEntry{Path: path, Mode: mode.Regular, OID: o}
}

func symlink(path string, b byte) object.TreeEntry {
	var o oid.OID
	o[0] = b
	return object.TreeEntry{Path: path, Mode: mode.Symlink, OID: o}
}

func tree(entries ...object.TreeEntry) *object.Tree {
	return object.NewTree(entries)
}

func TestBuildBothAddedIdenticalContent(t *testing.T) {
	ancestor := tree()
	ours := tree(blob("new.txt", 1))
	theirs := tree(blob("new.txt", 1))

	dl, err := treediff.Build(ancestor, ours, theirs, treediff.Options{})
	require.NoError(t, err)
	require.Len(t, dl.Deltas, 1)

	d := dl.Deltas[0]
	require.Equal(t, treediff.Added, d.Ours.Status)
	require.Equal(t, treediff.Added, d.Theirs.Status)
	require.Equal(t, treediff.BothAdded, d.Conflict)
}

func TestBuildTypechangeSymlinkVsFile(t *testing.T) {
	ancestor := tree(blob("link", 1))
	ours := tree(symlink("link", 1))
	theirs := tree(blob("link", 1))

	dl, err := treediff.Build(ancestor, ours, theirs, treediff.Options{})
	require.NoError(t, err)
	require.Len(t, dl.Deltas, 1)

	d := dl.Deltas[0]
	require.Equal(t, treediff.Typechange, d.Ours.Status)
	require.Equal(t, treediff.Unmodified, d.Theirs.Status)
}

func TestBuildDirectoryFileShadowing(t *testing.T) {
	// ours adds a directory "conf" (flattened as conf/a.txt); theirs adds
	// a regular file literally named "conf" at the same path the
	// directory would occupy.
	ancestor := tree()
	ours := tree(blob("conf/a.txt", 1), blob("conf/b.txt", 2))
	theirs := tree(blob("conf", 9))

	dl, err := treediff.Build(ancestor, ours, theirs, treediff.Options{})
	require.NoError(t, err)
	require.Len(t, dl.Deltas, 3)

	// canonical order: "conf" sorts before "conf/a.txt" (the trailing
	// slash rule), so the file delta appears first.
	require.Equal(t, "conf", dl.Deltas[0].Path)
	require.Equal(t, treediff.DirectoryFile, dl.Deltas[0].DFConflict)

	require.Equal(t, "conf/a.txt", dl.Deltas[1].Path)
	require.Equal(t, treediff.Child, dl.Deltas[1].DFConflict)

	require.Equal(t, "conf/b.txt", dl.Deltas[2].Path)
	require.Equal(t, treediff.Child, dl.Deltas[2].DFConflict)
}

func TestBuildUnmodifiedOnlyEmittedWhenRequested(t *testing.T) {
	ancestor := tree(blob("same.txt", 1))
	ours := tree(blob("same.txt", 1))
	theirs := tree(blob("same.txt", 1))

	dl, err := treediff.Build(ancestor, ours, theirs, treediff.Options{})
	require.NoError(t, err)
	require.Empty(t, dl.Deltas)

	dl, err = treediff.Build(ancestor, ours, theirs, treediff.Options{ReturnUnmodified: true})
	require.NoError(t, err)
	require.Len(t, dl.Deltas, 1)
	require.Equal(t, treediff.Unmodified, dl.Deltas[0].Ours.Status)
	require.Equal(t, treediff.Unmodified, dl.Deltas[0].Theirs.Status)
}

func TestBuildModifyDelete(t *testing.T) {
	ancestor := tree(blob("f.txt", 1))
	ours := tree(blob("f.txt", 2))
	theirs := tree()

	dl, err := treediff.Build(ancestor, ours, theirs, treediff.Options{})
	require.NoError(t, err)
	require.Len(t, dl.Deltas, 1)
	require.Equal(t, treediff.Modified, dl.Deltas[0].Ours.Status)
	require.Equal(t, treediff.Deleted, dl.Deltas[0].Theirs.Status)
	require.Equal(t, treediff.ModifyDelete, dl.Deltas[0].Conflict)
}

func TestBuildMonotonicPathOrder(t *testing.T) {
	ancestor := tree()
	ours := tree(blob("z.txt", 1), blob("a.txt", 2), blob("m.txt", 3))
	theirs := tree()

	dl, err := treediff.Build(ancestor, ours, theirs, treediff.Options{})
	require.NoError(t, err)

	var paths []string
	for _, d := range dl.Deltas {
		paths = append(paths, d.Path)
	}
	if diff := cmp.Diff([]string{"a.txt", "m.txt", "z.txt"}, paths); diff != "" {
		t.Errorf("diff-list path order mismatch (-want +got):\n%s", diff)
	}
}
