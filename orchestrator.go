// Package merge3 implements the core of a three-way tree-merge engine over
// a content-addressed Git-like object model: a structural diff (§4.2), a
// conflict-resolution cascade (§4.4), a worktree conflict materializer
// (§4.5), and the Orchestrator (§4.6) that ties ref resolution, the setup
// files, and checkout around them.
//
// Grounded on the teacher's Worktree.Merge/nonFastForwardMerge
// (worktree_merge.go) for call order, and on git_merge/
// merge_normalize_opts/merge_check_fastforward/merge_check_uptodate
// (original_source/src/merge.c:1222-1421) for the exact fast-forward and
// up-to-date rules.
package merge3

import (
	"github.com/pkg/errors"
	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/coreglyph/merge3/internal/mergebase"
	"github.com/coreglyph/merge3/internal/resolve"
	"github.com/coreglyph/merge3/internal/setup"
	"github.com/coreglyph/merge3/internal/worktree"
	"github.com/coreglyph/merge3/plumbing/index"
	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/oid"
	"github.com/coreglyph/merge3/plumbing/treediff"
)

// CheckoutStore materializes resolved index entries into a worktree
// (spec.md §1 "Checkout — materialize a tree/index to the worktree").
type CheckoutStore interface {
	Checkout(entries []index.Entry) error
}

// Orchestrator wires every collaborator spec.md §1 treats as external
// (commit graph, ODB, index, setup-file writer, checkout) around the core
// diff/resolve/worktree-write pipeline and exposes the single Merge entry
// point.
type Orchestrator struct {
	Commits object.CommitStore
	Trees   object.TreeStore
	ODB     object.ObjectStore
	Index   index.Store

	Worktree billy.Filesystem
	GitDir   billy.Filesystem

	Checkout CheckoutStore

	// Bare marks the repository as having no worktree; the orchestrator
	// refuses to run at all in that case (spec.md §4.6 "ensures the
	// repository is not bare").
	Bare bool

	mergeBase *mergebase.Finder
	setup     *setup.Writer
	resolver  func(opts resolve.Options) *resolve.Resolver
	conflicts *worktree.Writer
}

// New creates an Orchestrator with the default in-process collaborators
// (internal/mergebase for merge-base computation, internal/setup for the
// setup files, internal/worktree for conflict materialization and
// checkout) wired around the caller-supplied commit graph, tree store,
// ODB, and index.
func New(commits object.CommitStore, trees object.TreeStore, odb object.ObjectStore, idx index.Store, workdir, gitDir billy.Filesystem) *Orchestrator {
	o := &Orchestrator{
		Commits:  commits,
		Trees:    trees,
		ODB:      odb,
		Index:    idx,
		Worktree: workdir,
		GitDir:   gitDir,
	}
	o.Checkout = worktree.NewCheckout(workdir, odb)
	o.mergeBase = mergebase.New(commits)
	o.setup = setup.New(gitDir)
	o.conflicts = worktree.New(workdir, odb, false)
	return o
}

// merger adapts Orchestrator to mergebase.Merger, so Finder.Best/
// VirtualAncestor can collapse more than one merge base into a single
// virtual ancestor by actually 3-way-merging trees (spec.md's supplemented
// "virtual-ancestor merge-base" feature).
type merger struct {
	o *Orchestrator
}

// Merge implements mergebase.Merger: it runs the ordinary diff+resolve
// pipeline between ancestor/ours/theirs with no worktree I/O, synthesizes
// a new tree from the result (falling back to ours' side for any path the
// default resolution cascade can't settle — a virtual ancestor only needs
// to be usable, not conflict-free), and stores both the tree and a new
// commit so later merge-base lookups can find it again.
func (m *merger) Merge(ancestor, ours, theirs object.Commit) (object.Commit, error) {
	o := m.o

	ancestorTree, err := o.Trees.GetTree(ancestor.TreeOID)
	if err != nil {
		return object.Commit{}, errors.Wrap(err, "merge3: load virtual-ancestor base tree")
	}
	oursTree, err := o.Trees.GetTree(ours.TreeOID)
	if err != nil {
		return object.Commit{}, errors.Wrap(err, "merge3: load virtual-ancestor ours tree")
	}
	theirsTree, err := o.Trees.GetTree(theirs.TreeOID)
	if err != nil {
		return object.Commit{}, errors.Wrap(err, "merge3: load virtual-ancestor theirs tree")
	}

	dl, err := treediff.Build(ancestorTree, oursTree, theirsTree, treediff.Options{ReturnUnmodified: true})
	if err != nil {
		return object.Commit{}, errors.Wrap(err, "merge3: diff virtual ancestor")
	}

	scratch := index.NewMemoryStore()
	res := resolve.New(scratch, o.ODB, resolve.Options{})
	conflictDeltas, err := res.Resolve(dl, ours.OID.String(), theirs.OID.String())
	if err != nil {
		return object.Commit{}, errors.Wrap(err, "merge3: resolve virtual ancestor")
	}

	entries := scratch.MergedEntries()
	treeEntries := make([]object.TreeEntry, 0, len(entries)+len(conflictDeltas))
	for _, e := range entries {
		treeEntries = append(treeEntries, object.TreeEntry{Path: e.Path, Mode: e.Mode, OID: e.OID, Size: e.Size})
	}
	for _, d := range conflictDeltas {
		side := d.Ours
		if !side.Exists() {
			side = d.Theirs
		}
		if side.Exists() {
			treeEntries = append(treeEntries, side.File)
		}
	}

	newTree := object.NewTree(treeEntries)
	treeOID := oid.FromContent("tree", newTree.Encode())
	if err := o.Trees.Put(treeOID, newTree); err != nil {
		return object.Commit{}, errors.Wrap(err, "merge3: store virtual-ancestor tree")
	}

	when := ours.When
	if theirs.When.After(when) {
		when = theirs.When
	}

	seed := append(append([]byte{}, treeOID[:]...), append(ours.OID[:], theirs.OID[:]...)...)
	commitOID := oid.FromContent("commit", seed)

	virtual := object.Commit{
		OID:        commitOID,
		TreeOID:    treeOID,
		ParentOIDs: []oid.OID{ours.OID, theirs.OID},
		When:       when,
	}
	if err := o.Commits.Put(virtual); err != nil {
		return object.Commit{}, errors.Wrap(err, "merge3: store virtual-ancestor commit")
	}

	return virtual, nil
}

func (o *Orchestrator) base(a, b oid.OID) (object.Commit, error) {
	c, err := o.mergeBase.Best(a, b, &merger{o: o})
	if err != nil {
		if errors.Cause(err) == mergebase.ErrNoCommonAncestor || err == mergebase.ErrNoCommonAncestor {
			return object.Commit{}, newErr(KindNotFound, "merge3: no merge base")
		}
		return object.Commit{}, wrapErr(KindObjectStore, err, "merge3: compute merge base")
	}
	return c, nil
}

// Merge runs spec.md §4.6's orchestrator flow for ourHead against one or
// more theirHeads. A single theirs head runs the ordinary two-way
// pipeline (with up-to-date/fast-forward short-circuits); two or more runs
// the octopus structural diff with trivial-only resolution.
func (o *Orchestrator) Merge(ourHead object.MergeHead, theirHeads []object.MergeHead, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, wrapErr(KindInvalidInput, err, "merge3: invalid options")
	}
	if len(theirHeads) == 0 {
		return nil, newErr(KindInvalidInput, "merge3: at least one theirs head is required")
	}
	if o.Bare {
		return nil, newErr(KindInvalidInput, "merge3: repository is bare")
	}

	if len(theirHeads) == 1 {
		return o.mergeTwoWay(ourHead, theirHeads[0], opts)
	}
	return o.mergeOctopus(ourHead, theirHeads, opts)
}

func (o *Orchestrator) mergeTwoWay(ourHead, theirHead object.MergeHead, opts Options) (*Result, error) {
	if ourHead.OID.Equal(theirHead.OID) {
		return &Result{IsUpToDate: true}, nil
	}

	base, err := o.base(ourHead.OID, theirHead.OID)
	if err != nil {
		return nil, err
	}

	if !opts.NoFastForward && base.OID.Equal(ourHead.OID) {
		return &Result{IsFastForward: true, FFOID: theirHead.OID}, nil
	}

	if err := o.writeSetup(ourHead, []object.MergeHead{theirHead}, opts); err != nil {
		return nil, err
	}

	ancestorTree, err := o.loadTree(base.TreeOID, "ancestor")
	if err != nil {
		return nil, err
	}
	oursTree, err := o.loadHeadTree(ourHead, "ours")
	if err != nil {
		return nil, err
	}
	theirsTree, err := o.loadHeadTree(theirHead, "theirs")
	if err != nil {
		return nil, err
	}

	dl, err := treediff.Build(ancestorTree, oursTree, theirsTree, treediff.Options{ReturnUnmodified: opts.ReturnUnmodified})
	if err != nil {
		return nil, wrapErr(KindMergeFailed, err, "merge3: build structural diff")
	}

	res := resolve.New(o.Index, o.ODB, resolve.Options{
		NoRemoved:   opts.NoRemoved,
		NoAutomerge: opts.NoAutomerge,
		Favor:       opts.Favor,
	})
	conflicts, err := res.Resolve(dl, ourHead.DisplayName(), theirHead.DisplayName())
	if err != nil {
		return nil, wrapErr(KindIndex, err, "merge3: resolve conflicts")
	}

	if err := o.Checkout.Checkout(o.Index.MergedEntries()); err != nil {
		return nil, wrapErr(KindIO, err, "merge3: checkout index")
	}

	writer := o.conflicts
	if opts.NoDiff3 {
		writer = worktree.New(o.Worktree, o.ODB, true)
	}
	for _, d := range conflicts {
		if err := writer.WriteConflict(d, ourHead.DisplayName(), theirHead.DisplayName()); err != nil {
			return nil, wrapErr(KindIO, err, "merge3: write conflict file")
		}
	}

	return &Result{Diff: dl, Conflicts: conflicts}, nil
}

func (o *Orchestrator) mergeOctopus(ourHead object.MergeHead, theirHeads []object.MergeHead, opts Options) (*Result, error) {
	if err := o.writeSetup(ourHead, theirHeads, opts); err != nil {
		return nil, err
	}

	ancestorCommit := object.Commit{}
	heads := append([]oid.OID{ourHead.OID}, headOIDs(theirHeads)...)
	running := heads[0]
	for _, h := range heads[1:] {
		c, err := o.base(running, h)
		if err != nil {
			return nil, err
		}
		ancestorCommit = c
		running = c.OID
	}

	ancestorTree, err := o.loadTree(ancestorCommit.TreeOID, "ancestor")
	if err != nil {
		return nil, err
	}
	oursTree, err := o.loadHeadTree(ourHead, "ours")
	if err != nil {
		return nil, err
	}
	theirsTrees := make([]*object.Tree, 0, len(theirHeads))
	for _, h := range theirHeads {
		t, err := o.loadHeadTree(h, "theirs")
		if err != nil {
			return nil, err
		}
		theirsTrees = append(theirsTrees, t)
	}

	deltas, err := octopusDiff(ancestorTree, append([]*object.Tree{oursTree}, theirsTrees...), treediff.Options{ReturnUnmodified: opts.ReturnUnmodified})
	if err != nil {
		return nil, wrapErr(KindMergeFailed, err, "merge3: build octopus structural diff")
	}

	unresolved := 0
	for _, d := range deltas {
		if d.Trivial == nil {
			unresolved++
			continue
		}
		if err := applyOctopusEntry(o.Index, d.Path, d.Trivial); err != nil {
			return nil, wrapErr(KindIndex, err, "merge3: apply octopus trivial resolution")
		}
	}
	if err := o.Index.Flush(); err != nil {
		return nil, wrapErr(KindIndex, err, "merge3: flush index")
	}

	result := &Result{Octopus: deltas}

	if unresolved > 0 {
		return result, newErr(KindUnimplemented, "merge3: octopus conflict resolution beyond trivial is not implemented")
	}

	if err := o.Checkout.Checkout(o.Index.MergedEntries()); err != nil {
		return result, wrapErr(KindIO, err, "merge3: checkout index")
	}

	return result, nil
}

func applyOctopusEntry(idx index.Store, path string, side *treediff.SideEntry) error {
	if !side.Exists() {
		return idx.Remove(path)
	}
	return idx.Upsert(index.Entry{Path: path, Mode: side.File.Mode, OID: side.File.OID, Size: side.File.Size})
}

func (o *Orchestrator) writeSetup(ourHead object.MergeHead, theirHeads []object.MergeHead, opts Options) error {
	if err := o.setup.WriteOrigHead(ourHead); err != nil {
		return wrapErr(KindIO, err, "merge3: write ORIG_HEAD")
	}
	if err := o.setup.WriteMergeHead(theirHeads); err != nil {
		return wrapErr(KindIO, err, "merge3: write MERGE_HEAD")
	}
	if err := o.setup.WriteMergeMode(opts.NoFastForward); err != nil {
		return wrapErr(KindIO, err, "merge3: write MERGE_MODE")
	}
	if err := o.setup.WriteMergeMsg(theirHeads); err != nil {
		return wrapErr(KindIO, err, "merge3: write MERGE_MSG")
	}
	return nil
}

// loadTree resolves a tree OID directly (used for an already-resolved
// merge-base commit's tree).
func (o *Orchestrator) loadTree(treeOID oid.OID, which string) (*object.Tree, error) {
	t, err := o.Trees.GetTree(treeOID)
	if err != nil {
		return nil, wrapErr(KindObjectStore, err, "merge3: load "+which+" tree")
	}
	return t, nil
}

// loadHeadTree resolves a MergeHead to its commit, then its tree.
func (o *Orchestrator) loadHeadTree(h object.MergeHead, which string) (*object.Tree, error) {
	c, err := o.Commits.GetCommit(h.OID)
	if err != nil {
		return nil, wrapErr(KindObjectStore, err, "merge3: load "+which+" commit")
	}
	return o.loadTree(c.TreeOID, which)
}

func headOIDs(heads []object.MergeHead) []oid.OID {
	out := make([]oid.OID, len(heads))
	for i, h := range heads {
		out[i] = h.OID
	}
	return out
}

// Cleanup removes the four setup files written by a prior merge (spec.md
// §6/§9), independent of whether that merge succeeded, conflicted, or was
// aborted.
func (o *Orchestrator) Cleanup() error {
	return wrapErr(KindIO, o.setup.Cleanup(), "merge3: cleanup setup files")
}
