package setup_test

import (
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-billy.v4/memfs"

	"github.com/coreglyph/merge3/internal/setup"
	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/oid"
)

func mustOID(t *testing.T, hex string) oid.OID {
	t.Helper()
	o, ok := oid.New(hex)
	require.True(t, ok)
	return o
}

func TestWriteOrigHead(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	head := object.MergeHead{OID: mustOID(t, "1111111111111111111111111111111111111111")}
	require.NoError(t, w.WriteOrigHead(head))

	f, err := fs.Open(setup.OrigHeadFile)
	require.NoError(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "1111111111111111111111111111111111111111\n", string(b))
}

func TestWriteMergeHeadMultiple(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	heads := []object.MergeHead{
		{OID: mustOID(t, "1111111111111111111111111111111111111111")},
		{OID: mustOID(t, "2222222222222222222222222222222222222222")},
	}
	require.NoError(t, w.WriteMergeHead(heads))

	f, err := fs.Open(setup.MergeHeadFile)
	require.NoError(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "1111111111111111111111111111111111111111\n2222222222222222222222222222222222222222\n", string(b))
}

func TestWriteMergeModeNoFastForward(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	require.NoError(t, w.WriteMergeMode(true))
	f, err := fs.Open(setup.MergeModeFile)
	require.NoError(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "no-ff", string(b))
}

func TestWriteMergeModeFastForwardAllowed(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	require.NoError(t, w.WriteMergeMode(false))
	f, err := fs.Open(setup.MergeModeFile)
	require.NoError(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "", string(b))
}

func TestWriteMergeMsgSingleBranch(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	heads := []object.MergeHead{{Branch: "feature", OID: mustOID(t, "1111111111111111111111111111111111111111")}}
	require.NoError(t, w.WriteMergeMsg(heads))

	f, err := fs.Open(setup.MergeMsgFile)
	require.NoError(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "Merge branch 'feature'\n", string(b))
}

func TestWriteMergeMsgMultipleBranchesGrouped(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	heads := []object.MergeHead{
		{Branch: "a", OID: mustOID(t, "1111111111111111111111111111111111111111")},
		{Branch: "b", OID: mustOID(t, "2222222222222222222222222222222222222222")},
		{Branch: "c", OID: mustOID(t, "3333333333333333333333333333333333333333")},
	}
	require.NoError(t, w.WriteMergeMsg(heads))

	f, err := fs.Open(setup.MergeMsgFile)
	require.NoError(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "Merge branches 'a', 'b' and 'c'\n", string(b))
}

func TestWriteMergeMsgRawOIDHead(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	heads := []object.MergeHead{{OID: mustOID(t, "3333333333333333333333333333333333333333")}}
	require.NoError(t, w.WriteMergeMsg(heads))

	f, err := fs.Open(setup.MergeMsgFile)
	require.NoError(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "Merge commit '3333333333333333333333333333333333333333'\n", string(b))
}

func TestWriteMergeMsgMixedBranchAndRawOID(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	heads := []object.MergeHead{
		{Branch: "a", OID: mustOID(t, "1111111111111111111111111111111111111111")},
		{OID: mustOID(t, "2222222222222222222222222222222222222222")},
	}
	require.NoError(t, w.WriteMergeMsg(heads))

	f, err := fs.Open(setup.MergeMsgFile)
	require.NoError(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "Merge branch 'a'; commit '2222222222222222222222222222222222222222'\n", string(b))
}

func TestCleanupRemovesAllFilesAndToleratesMissingOnes(t *testing.T) {
	fs := memfs.New()
	w := setup.New(fs)

	require.NoError(t, w.WriteOrigHead(object.MergeHead{OID: mustOID(t, "1111111111111111111111111111111111111111")}))
	require.NoError(t, w.WriteMergeMsg([]object.MergeHead{{Branch: "x", OID: mustOID(t, "1111111111111111111111111111111111111111")}}))
	// MERGE_HEAD and MERGE_MODE were never written.

	require.NoError(t, w.Cleanup())

	for _, name := range []string{setup.OrigHeadFile, setup.MergeHeadFile, setup.MergeModeFile, setup.MergeMsgFile} {
		_, err := fs.Stat(name)
		require.Error(t, err)
	}
}
