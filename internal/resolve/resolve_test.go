package resolve_test

import (
	"encoding/binary"
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreglyph/merge3/internal/resolve"
	"github.com/coreglyph/merge3/plumbing/filemerge"
	"github.com/coreglyph/merge3/plumbing/index"
	"github.com/coreglyph/merge3/plumbing/mode"
	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/oid"
	"github.com/coreglyph/merge3/plumbing/treediff"
)

func hashFn(content []byte) oid.OID {
	h := fnv.New32a()
	_, _ = h.Write(content)
	var o oid.OID
	binary.BigEndian.PutUint32(o[:4], h.Sum32())
	return o
}

func blobEntry(odb *object.MemoryStore, path string, content []byte) object.TreeEntry {
	id := hashFn(content)
	odb.Put(id, content)
	return object.TreeEntry{Path: path, Mode: mode.Regular, OID: id, Size: uint64(len(content))}
}

func newResolver(odb *object.MemoryStore, opts resolve.Options) (*resolve.Resolver, *index.MemoryStore) {
	idx := index.NewMemoryStore()
	return resolve.New(idx, odb, opts), idx
}

func TestResolveTrivialOursChangedTheirsUnmodified(t *testing.T) {
	odb := object.NewMemoryStore(hashFn)
	base := blobEntry(odb, "f.txt", []byte("base\n"))
	ours := blobEntry(odb, "f.txt", []byte("ours\n"))

	d := &treediff.Delta{
		Path:     "f.txt",
		Ancestor: treediff.SideEntry{File: base, Status: treediff.Unmodified},
		Ours:     treediff.SideEntry{File: ours, Status: treediff.Modified},
		Theirs:   treediff.SideEntry{File: base, Status: treediff.Unmodified},
	}
	dl := &treediff.DiffList{Deltas: []*treediff.Delta{d}}

	r, idx := newResolver(odb, resolve.Options{})
	conflicts, err := r.Resolve(dl, "HEAD", "branch")
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.True(t, idx.Flushed)

	entries := idx.EntriesAt("f.txt")
	require.Len(t, entries, 1)
	require.Equal(t, index.Merged, entries[0].Stage)
	require.Equal(t, ours.OID, entries[0].OID)
	require.Empty(t, idx.Reuc())
}

func TestResolveRemovedOursDeletedTheirsUnmodified(t *testing.T) {
	odb := object.NewMemoryStore(hashFn)
	base := blobEntry(odb, "gone.txt", []byte("base\n"))

	d := &treediff.Delta{
		Path:     "gone.txt",
		Ancestor: treediff.SideEntry{File: base, Status: treediff.Unmodified},
		Ours:     treediff.SideEntry{Status: treediff.Deleted},
		Theirs:   treediff.SideEntry{File: base, Status: treediff.Unmodified},
		Conflict: treediff.ConflictNone,
	}
	dl := &treediff.DiffList{Deltas: []*treediff.Delta{d}}

	r, idx := newResolver(odb, resolve.Options{})
	conflicts, err := r.Resolve(dl, "HEAD", "branch")
	require.NoError(t, err)
	require.Empty(t, conflicts)

	require.Empty(t, idx.EntriesAt("gone.txt"))
	require.Len(t, idx.Reuc(), 1)
	require.Equal(t, "gone.txt", idx.Reuc()[0].Path)
}

func TestResolveNoRemovedFallsThroughToUnresolved(t *testing.T) {
	odb := object.NewMemoryStore(hashFn)
	base := blobEntry(odb, "gone.txt", []byte("base\n"))

	d := &treediff.Delta{
		Path:     "gone.txt",
		Ancestor: treediff.SideEntry{File: base, Status: treediff.Unmodified},
		Ours:     treediff.SideEntry{Status: treediff.Deleted},
		Theirs:   treediff.SideEntry{File: base, Status: treediff.Unmodified},
	}
	dl := &treediff.DiffList{Deltas: []*treediff.Delta{d}}

	r, idx := newResolver(odb, resolve.Options{NoRemoved: true})
	conflicts, err := r.Resolve(dl, "HEAD", "branch")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	entries := idx.EntriesAt("gone.txt")
	require.Len(t, entries, 2)
	require.Equal(t, index.AncestorStage, entries[0].Stage)
	require.Equal(t, index.TheirStage, entries[1].Stage)
}

func TestResolveAutomergeNonOverlappingEdits(t *testing.T) {
	odb := object.NewMemoryStore(hashFn)
	base := blobEntry(odb, "f.txt", []byte("one\ntwo\nthree\n"))
	ours := blobEntry(odb, "f.txt", []byte("ONE\ntwo\nthree\n"))
	theirs := blobEntry(odb, "f.txt", []byte("one\ntwo\nTHREE\n"))

	d := &treediff.Delta{
		Path:     "f.txt",
		Ancestor: treediff.SideEntry{File: base, Status: treediff.Unmodified},
		Ours:     treediff.SideEntry{File: ours, Status: treediff.Modified},
		Theirs:   treediff.SideEntry{File: theirs, Status: treediff.Modified},
		Conflict: treediff.BothModified,
	}
	dl := &treediff.DiffList{Deltas: []*treediff.Delta{d}}

	r, idx := newResolver(odb, resolve.Options{})
	conflicts, err := r.Resolve(dl, "HEAD", "branch")
	require.NoError(t, err)
	require.Empty(t, conflicts)

	entries := idx.EntriesAt("f.txt")
	require.Len(t, entries, 1)
	require.Equal(t, index.Merged, entries[0].Stage)

	merged, err := odb.ReadBlob(entries[0].OID)
	require.NoError(t, err)
	require.Equal(t, "ONE\ntwo\nTHREE\n", string(merged))
	require.Len(t, idx.Reuc(), 1)
}

func TestResolveMarkUnresolvedOnConflictingOverlap(t *testing.T) {
	odb := object.NewMemoryStore(hashFn)
	base := blobEntry(odb, "f.txt", []byte("one\ntwo\nthree\n"))
	ours := blobEntry(odb, "f.txt", []byte("one\nOURS\nthree\n"))
	theirs := blobEntry(odb, "f.txt", []byte("one\nTHEIRS\nthree\n"))

	d := &treediff.Delta{
		Path:     "f.txt",
		Ancestor: treediff.SideEntry{File: base, Status: treediff.Unmodified},
		Ours:     treediff.SideEntry{File: ours, Status: treediff.Modified},
		Theirs:   treediff.SideEntry{File: theirs, Status: treediff.Modified},
		Conflict: treediff.BothModified,
	}
	dl := &treediff.DiffList{Deltas: []*treediff.Delta{d}}

	r, idx := newResolver(odb, resolve.Options{})
	conflicts, err := r.Resolve(dl, "HEAD", "branch")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, "f.txt", conflicts[0].Path)

	entries := idx.EntriesAt("f.txt")
	require.Len(t, entries, 3)
	require.Empty(t, idx.Reuc())
}

func TestResolveFavorOursForcesAutomerge(t *testing.T) {
	odb := object.NewMemoryStore(hashFn)
	base := blobEntry(odb, "f.txt", []byte("one\ntwo\nthree\n"))
	ours := blobEntry(odb, "f.txt", []byte("one\nOURS\nthree\n"))
	theirs := blobEntry(odb, "f.txt", []byte("one\nTHEIRS\nthree\n"))

	d := &treediff.Delta{
		Path:     "f.txt",
		Ancestor: treediff.SideEntry{File: base, Status: treediff.Unmodified},
		Ours:     treediff.SideEntry{File: ours, Status: treediff.Modified},
		Theirs:   treediff.SideEntry{File: theirs, Status: treediff.Modified},
		Conflict: treediff.BothModified,
	}
	dl := &treediff.DiffList{Deltas: []*treediff.Delta{d}}

	r, idx := newResolver(odb, resolve.Options{Favor: filemerge.FavorOurs})
	conflicts, err := r.Resolve(dl, "HEAD", "branch")
	require.NoError(t, err)
	require.Empty(t, conflicts)

	entries := idx.EntriesAt("f.txt")
	require.Len(t, entries, 1)
	merged, err := odb.ReadBlob(entries[0].OID)
	require.NoError(t, err)
	require.Equal(t, "one\nOURS\nthree\n", string(merged))
}

func TestResolveDirectoryFileConflictSkipsToUnresolved(t *testing.T) {
	odb := object.NewMemoryStore(hashFn)
	ours := blobEntry(odb, "conf", []byte("data\n"))

	d := &treediff.Delta{
		Path:       "conf",
		Ancestor:   treediff.SideEntry{Status: treediff.Unmodified},
		Ours:       treediff.SideEntry{File: ours, Status: treediff.Added},
		Theirs:     treediff.SideEntry{Status: treediff.Unmodified},
		DFConflict: treediff.DirectoryFile,
	}
	dl := &treediff.DiffList{Deltas: []*treediff.Delta{d}}

	r, idx := newResolver(odb, resolve.Options{})
	conflicts, err := r.Resolve(dl, "HEAD", "branch")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	entries := idx.EntriesAt("conf")
	require.Len(t, entries, 1)
	require.Equal(t, index.OurStage, entries[0].Stage)
}
