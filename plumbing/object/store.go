package object

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/coreglyph/merge3/plumbing/oid"
)

// ErrNotFound is returned by an ObjectStore when an OID has no object.
var ErrNotFound = errors.New("object: not found")

// ObjectStore is the ODB contract spec.md §1 names as an external
// collaborator: read/write blobs by OID. The merge engine's core never
// assumes anything about how it is backed; this package also provides a
// MemoryStore for tests and for orchestrator defaults.
type ObjectStore interface {
	// ReadBlob returns the content of the blob stored at id.
	ReadBlob(id oid.OID) ([]byte, error)
	// WriteBlob stores content and returns its OID. Implementations must
	// be content-addressed: writing identical content twice returns the
	// same OID.
	WriteBlob(content []byte) (oid.OID, error)
}

// MemoryStore is a map-backed ObjectStore, content-addressed by the hashFn
// its caller supplies to NewMemoryStore. It exists for tests and as the
// orchestrator's default ODB — spec.md §5 notes blob reads "borrow
// ODB-owned buffers"; MemoryStore honors that by returning defensive copies
// so a caller mutating its slice cannot corrupt the store.
type MemoryStore struct {
	mu      sync.RWMutex
	hashFn  func([]byte) oid.OID
	content map[oid.OID][]byte
}

// NewMemoryStore creates an empty MemoryStore. hashFn computes the OID for
// a blob's content; tests typically pass a SHA-1 or truncated-hash
// function, matching whatever fixture OIDs they assert against.
func NewMemoryStore(hashFn func([]byte) oid.OID) *MemoryStore {
	return &MemoryStore{hashFn: hashFn, content: map[oid.OID][]byte{}}
}

// Put seeds the store with content at a caller-chosen OID, bypassing
// hashFn. Used by tests to populate fixture blobs whose OIDs are given
// literals rather than derived by hashing.
func (s *MemoryStore) Put(id oid.OID, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(content))
	copy(cp, content)
	s.content[id] = cp
}

// ReadBlob implements ObjectStore.
func (s *MemoryStore) ReadBlob(id oid.OID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.content[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "oid %s", id)
	}

	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

// WriteBlob implements ObjectStore.
func (s *MemoryStore) WriteBlob(content []byte) (oid.OID, error) {
	id := s.hashFn(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.content[id]; !ok {
		cp := make([]byte, len(content))
		copy(cp, content)
		s.content[id] = cp
	}

	return id, nil
}

// MergeHead is a reference to one side of a merge: a commit, optionally
// named by a branch (spec.md §3 "Merge head"; §6 display-name rule;
// grounded on libgit2's git_merge_head_from_ref/git_merge_head_from_oid,
// merge.c:1565-1598).
type MergeHead struct {
	// Branch is the short branch name, or "" if this head was given as a
	// raw OID (spec.md §6's "raw-OID heads" / "commit '<hex>'" case).
	Branch string
	OID    oid.OID
}

// DisplayName is the branch name if set, else the 40-hex OID — the
// fallback spec.md §4.3 "Display names" and §4.5 side-file suffixes both
// use ("else the 40-hex OID of the head").
func (h MergeHead) DisplayName() string {
	if h.Branch != "" {
		return h.Branch
	}
	return h.OID.String()
}
