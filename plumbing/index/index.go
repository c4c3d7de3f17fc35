// Package index defines the staged-index contract spec.md §1 calls an
// external collaborator ("Index store — add/remove entries, add conflict
// entries at stages 1/2/3, add REUC entries") plus a default in-memory
// implementation used by tests and by the orchestrator when the caller
// doesn't supply its own. Grounded on the stage/REUC conventions visible
// throughout the teacher's worktree_merge.go (index.Stage,
// index.AncestorMode/OurMode/TheirMode, w.addConflictFile) and on
// libgit2's merge_file_apply/merge_mark_conflict_unresolved (merge.c:656-
//735) for the exact upsert/remove/stage semantics.
package index

import (
	"sort"

	"github.com/coreglyph/merge3/plumbing/mode"
	"github.com/coreglyph/merge3/plumbing/oid"
)

// Stage is the staging slot of an index entry (spec.md §6 "Index staging
// conventions").
type Stage int

const (
	// Merged (stage 0) is a resolved entry.
	Merged Stage = 0
	// AncestorStage (stage 1) holds the common-ancestor side of a conflict.
	AncestorStage Stage = 1
	// OurStage (stage 2) holds our side of a conflict.
	OurStage Stage = 2
	// TheirStage (stage 3) holds their side of a conflict.
	TheirStage Stage = 3
)

// Entry is a single staged index entry.
type Entry struct {
	Path  string
	Mode  mode.FileMode
	OID   oid.OID
	Size  uint64
	Stage Stage
}

// ReucEntry is one row of the resolved-undo cache (spec.md §4.4.2):
// the three sides of a conflict that was resolved, recorded so the
// conflict can be re-raised on undo. Absence on a side is encoded as
// mode=0 and the zero OID, per spec.md.
type ReucEntry struct {
	Path string

	AncestorMode mode.FileMode
	OurMode      mode.FileMode
	TheirMode    mode.FileMode

	AncestorOID oid.OID
	OurOID      oid.OID
	TheirOID    oid.OID
}

// Store is the index contract: upsert/remove resolved entries, stage
// conflict entries, and record REUC rows. Implementations need not persist
// anything until Flush is called (spec.md §5: "the final index write
// flushes once at the end of the resolver").
type Store interface {
	// Upsert adds or replaces the stage-0 entry at e.Path. Any existing
	// conflict entries (stage 1/2/3) at that path are removed.
	Upsert(e Entry) error
	// Remove deletes any entry (at any stage) for path.
	Remove(path string) error
	// AddConflict stages up to three entries (ancestor/ours/theirs) for a
	// single path, one per present side, and removes any stage-0 entry at
	// that path.
	AddConflict(ancestor, ours, theirs *Entry) error
	// AddReuc appends a REUC row.
	AddReuc(r ReucEntry) error
	// Flush persists buffered mutations. It is called exactly once, at the
	// end of a successful resolve pass (spec.md §5).
	Flush() error
	// MergedEntries returns every stage-0 (resolved) entry, in path order,
	// for the orchestrator's checkout step (spec.md §4.6).
	MergedEntries() []Entry
}

// MemoryStore is an in-memory Store, used by tests and as the
// orchestrator's default when no persistent index is supplied.
type MemoryStore struct {
	// entries maps path -> entries at that path, across all stages
	// present. Flush is a no-op beyond bookkeeping since everything here
	// already "is" the persisted state; Flushed records whether Flush was
	// called, for tests asserting the "exactly once" ordering guarantee.
	entries map[string][]Entry
	reuc    []ReucEntry
	Flushed bool
}

// NewMemoryStore creates an empty in-memory index.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]Entry{}}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(e Entry) error {
	e.Stage = Merged
	s.entries[e.Path] = []Entry{e}
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(path string) error {
	delete(s.entries, path)
	return nil
}

// AddConflict implements Store.
func (s *MemoryStore) AddConflict(ancestor, ours, theirs *Entry) error {
	var staged []Entry
	if ancestor != nil {
		e := *ancestor
		e.Stage = AncestorStage
		staged = append(staged, e)
	}
	if ours != nil {
		e := *ours
		e.Stage = OurStage
		staged = append(staged, e)
	}
	if theirs != nil {
		e := *theirs
		e.Stage = TheirStage
		staged = append(staged, e)
	}
	s.entries[conflictPath(ancestor, ours, theirs)] = staged
	return nil
}

func conflictPath(ancestor, ours, theirs *Entry) string {
	for _, e := range []*Entry{ours, ancestor, theirs} {
		if e != nil {
			return e.Path
		}
	}
	return ""
}

// AddReuc implements Store.
func (s *MemoryStore) AddReuc(r ReucEntry) error {
	s.reuc = append(s.reuc, r)
	return nil
}

// Flush implements Store.
func (s *MemoryStore) Flush() error {
	s.Flushed = true
	return nil
}

// EntriesAt returns the (possibly multi-stage) entries currently staged at
// path, for test assertions.
func (s *MemoryStore) EntriesAt(path string) []Entry {
	return s.entries[path]
}

// Reuc returns the accumulated REUC rows, for test assertions.
func (s *MemoryStore) Reuc() []ReucEntry {
	return s.reuc
}

// AllPaths returns every path with at least one staged entry, in no
// particular order, for test assertions. The orchestrator's checkout step
// uses MergedEntries instead.
func (s *MemoryStore) AllPaths() []string {
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	return paths
}

// MergedEntries implements Store.
func (s *MemoryStore) MergedEntries() []Entry {
	paths := make([]string, 0, len(s.entries))
	for p, es := range s.entries {
		if len(es) == 1 && es[0].Stage == Merged {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	out := make([]Entry, 0, len(paths))
	for _, p := range paths {
		out = append(out, s.entries[p][0])
	}
	return out
}
