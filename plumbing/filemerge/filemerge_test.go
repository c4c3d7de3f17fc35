package filemerge_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreglyph/merge3/plumbing/filemerge"
	"github.com/coreglyph/merge3/plumbing/mode"
)

func lines(s ...string) []byte {
	if len(s) == 0 {
		return nil
	}
	return []byte(strings.Join(s, "\n") + "\n")
}

func TestMergeAutomergeableNonOverlappingEdits(t *testing.T) {
	base := lines("one", "two", "three", "four", "five")
	ours := lines("ONE", "two", "three", "four", "five")
	theirs := lines("one", "two", "three", "four", "FIVE")

	res := filemerge.Merge(base, ours, theirs, filemerge.FavorNone, "HEAD", "branch")
	require.True(t, res.Automergeable)
	require.NotContains(t, string(res.Content), "<<<<<<<")
	require.Equal(t, string(lines("ONE", "two", "three", "four", "FIVE")), string(res.Content))
}

func TestMergeConflictingOverlappingEdits(t *testing.T) {
	base := lines("one", "two", "three")
	ours := lines("one", "OURS", "three")
	theirs := lines("one", "THEIRS", "three")

	res := filemerge.Merge(base, ours, theirs, filemerge.FavorNone, "HEAD", "branch")
	require.False(t, res.Automergeable)
	require.Contains(t, string(res.Content), "<<<<<<< HEAD\n")
	require.Contains(t, string(res.Content), "=======\n")
	require.Contains(t, string(res.Content), ">>>>>>> branch\n")
	require.Contains(t, string(res.Content), "OURS")
	require.Contains(t, string(res.Content), "THEIRS")
}

func TestMergeFavorOurs(t *testing.T) {
	base := lines("one", "two", "three")
	ours := lines("one", "OURS", "three")
	theirs := lines("one", "THEIRS", "three")

	res := filemerge.Merge(base, ours, theirs, filemerge.FavorOurs, "HEAD", "branch")
	require.True(t, res.Automergeable)
	require.NotContains(t, string(res.Content), "<<<<<<<")
	require.Equal(t, string(lines("one", "OURS", "three")), string(res.Content))
}

func TestMergeFavorTheirs(t *testing.T) {
	base := lines("one", "two", "three")
	ours := lines("one", "OURS", "three")
	theirs := lines("one", "THEIRS", "three")

	res := filemerge.Merge(base, ours, theirs, filemerge.FavorTheirs, "HEAD", "branch")
	require.True(t, res.Automergeable)
	require.Equal(t, string(lines("one", "THEIRS", "three")), string(res.Content))
}

func TestMergeEmptyAncestorBothAddedIdentical(t *testing.T) {
	res := filemerge.Merge(nil, lines("hello"), lines("hello"), filemerge.FavorNone, "HEAD", "branch")
	require.True(t, res.Automergeable)
	require.Equal(t, string(lines("hello")), string(res.Content))
}

func TestBestModeAmbiguous(t *testing.T) {
	_, ok := filemerge.BestMode(true, mode.Regular, mode.Executable, mode.Symlink)
	require.False(t, ok)
}

func TestBestModeOneSideChanges(t *testing.T) {
	m, ok := filemerge.BestMode(true, mode.Regular, mode.Executable, mode.Regular)
	require.True(t, ok)
	require.Equal(t, mode.Executable, m)
}

func TestBestModeNoAncestor(t *testing.T) {
	m, ok := filemerge.BestMode(false, mode.Empty, mode.Executable, mode.Regular)
	require.True(t, ok)
	require.Equal(t, mode.Executable, m)

	m, ok = filemerge.BestMode(false, mode.Empty, mode.Regular, mode.Regular)
	require.True(t, ok)
	require.Equal(t, mode.Regular, m)
}

func TestBestPathNoAncestorMismatch(t *testing.T) {
	_, ok := filemerge.BestPath(false, "", "a.txt", "b.txt")
	require.False(t, ok)

	p, ok := filemerge.BestPath(false, "", "a.txt", "a.txt")
	require.True(t, ok)
	require.Equal(t, "a.txt", p)
}
