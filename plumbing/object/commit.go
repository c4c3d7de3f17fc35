package object

import (
	"time"

	"github.com/coreglyph/merge3/plumbing/oid"
)

// Commit is the minimal commit shape the merge engine needs to walk
// ancestry and resolve a tree to diff: its own OID, the OID of its root
// tree, its parents, and an author timestamp used to order a merge-base
// walk (spec.md §1's "a commit graph" external collaborator).
type Commit struct {
	OID        oid.OID
	TreeOID    oid.OID
	ParentOIDs []oid.OID
	When       time.Time
}

// CommitStore is the commit-graph contract spec.md §1 treats as an
// external collaborator: read a commit by OID. Grounded on
// object.GetCommit(Storer, Hash) used throughout the teacher's
// worktree_merge.go.
type CommitStore interface {
	GetCommit(id oid.OID) (Commit, error)
	// Put adds or replaces a commit, so a caller that synthesizes one (the
	// orchestrator's virtual-ancestor fold, mergebase.Merger) can make it
	// reachable by later GetCommit/ancestry-walk calls.
	Put(c Commit) error
}

// MemoryCommitStore is a map-backed CommitStore, used by tests and as an
// orchestrator default.
type MemoryCommitStore struct {
	commits map[oid.OID]Commit
}

// NewMemoryCommitStore creates an empty in-memory commit graph.
func NewMemoryCommitStore() *MemoryCommitStore {
	return &MemoryCommitStore{commits: map[oid.OID]Commit{}}
}

// Put implements CommitStore.
func (s *MemoryCommitStore) Put(c Commit) error {
	s.commits[c.OID] = c
	return nil
}

// GetCommit implements CommitStore.
func (s *MemoryCommitStore) GetCommit(id oid.OID) (Commit, error) {
	c, ok := s.commits[id]
	if !ok {
		return Commit{}, ErrNotFound
	}
	return c, nil
}
