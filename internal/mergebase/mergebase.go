// Package mergebase implements a minimal best-common-ancestor walker over
// a commit graph, plus the virtual-ancestor fan-in technique for commits
// with more than one merge base. spec.md §1 treats "walking a commit
// graph to find a merge-base" as an external collaborator the
// orchestrator may be handed; this package is the default implementation
// behind that contract, so the orchestrator is exercisable end-to-end
// without a second repository supplying its own.
//
// Grounded on the teacher's getCommonParents (a marked-bit priority-queue
// walk, worktree_priority_queue.go + worktree_merge.go:443-479) and
// createVirtualParent (worktree_merge.go:483-515) for the recursive
// pairwise-merge fan-in when more than one merge base exists.
package mergebase

import (
	"container/heap"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/pkg/errors"

	"github.com/coreglyph/merge3/plumbing/object"
	"github.com/coreglyph/merge3/plumbing/oid"
)

// ErrNoCommonAncestor is returned when two commits share no ancestor at
// all (disjoint histories).
var ErrNoCommonAncestor = errors.New("mergebase: no common ancestor")

// Merger collapses more than one merge base into a single virtual
// ancestor commit by actually performing a 3-way merge of a running base
// against each further common ancestor in turn (spec.md's supplemented
// "virtual-ancestor merge-base" feature). The orchestrator supplies this,
// since only it has the ODB/index/resolver wiring needed to produce a new
// merged tree; mergebase itself never touches trees or blobs.
type Merger interface {
	Merge(ancestor, ours, theirs object.Commit) (object.Commit, error)
}

// Finder computes merge bases over a CommitStore.
type Finder struct {
	Commits object.CommitStore
}

// New creates a Finder.
func New(commits object.CommitStore) *Finder {
	return &Finder{Commits: commits}
}

const (
	markParent1 uint32 = 1 << iota
	markParent2
	markStale
	markResult
)

type prioritizedCommit struct {
	value object.Commit
	flags uint32
	index int
}

// priorityQueue is a heap.Interface ordered by commit timestamp, with an
// auxiliary treemap keyed by OID hex so Push's dedup-on-push check
// (merge flags into the existing entry for a commit instead of queueing
// a second one) is an O(log n) lookup instead of the teacher's O(n) scan
// of the whole queue (worktree_priority_queue.go's PriorityQueue.Push).
// Grounded on the teacher's own go.mod dependency github.com/emirpasic/gods
// (also used as an ordered heap in antgroup-hugescm's commit walkers);
// this is the ordered-map job that package exists for.
type priorityQueue struct {
	items []*prioritizedCommit
	byOID *treemap.Map
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{byOID: treemap.NewWithStringComparator()}
}

func (pq *priorityQueue) Len() int { return len(pq.items) }

// Less orders by author timestamp descending: heap.Pop must return the
// most recent unvisited commit first, matching the teacher's
// PriorityQueue.Less (priority.After).
func (pq *priorityQueue) Less(i, j int) bool {
	return pq.items[i].value.When.After(pq.items[j].value.When)
}

func (pq *priorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

// Push merges flags into an existing entry for the same commit instead of
// pushing a duplicate, matching the teacher's dedup-on-push behavior.
// byOID keeps every commit seen by the walk, including popped ones, so a
// popped commit reached again with flags it did not yet carry is queued
// again with the accumulated flags.
func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*prioritizedCommit)
	key := item.value.OID.String()

	if existing, found := pq.byOID.Get(key); found {
		e := existing.(*prioritizedCommit)
		if e.index >= 0 || e.flags&item.flags == item.flags {
			e.flags |= item.flags
			return
		}
		e.flags |= item.flags
		item = e
	}

	item.index = len(pq.items)
	pq.items = append(pq.items, item)
	pq.byOID.Put(key, item)
}

func (pq *priorityQueue) Pop() interface{} {
	n := len(pq.items)
	item := pq.items[n-1]
	item.index = -1
	pq.items = pq.items[:n-1]
	return item
}

func (pq *priorityQueue) interesting() bool {
	for _, el := range pq.items {
		if el.flags&markStale == 0 {
			return true
		}
	}
	return false
}

// commonParents walks back from a and b simultaneously, marking each
// commit with which side(s) reached it, and collects every commit reached
// by both sides that isn't downstream of another such commit (spec.md's
// "best common ancestor" — a set, since a commit graph can have more than
// one).
func (f *Finder) commonParents(a, b oid.OID) ([]object.Commit, error) {
	ac, err := f.Commits.GetCommit(a)
	if err != nil {
		return nil, errors.Wrapf(err, "mergebase: read commit %s", a)
	}
	bc, err := f.Commits.GetCommit(b)
	if err != nil {
		return nil, errors.Wrapf(err, "mergebase: read commit %s", b)
	}

	pq := newPriorityQueue()
	heap.Init(pq)
	heap.Push(pq, &prioritizedCommit{value: ac, flags: markParent1})
	heap.Push(pq, &prioritizedCommit{value: bc, flags: markParent2})

	var result []object.Commit

	for pq.interesting() {
		el := heap.Pop(pq).(*prioritizedCommit)
		flags := el.flags & (markParent1 | markParent2 | markStale)

		if flags == (markParent1 | markParent2) {
			if el.flags&markResult == 0 {
				el.flags |= markResult
				result = append(result, el.value)
			}
			flags |= markStale
		}

		for _, pid := range el.value.ParentOIDs {
			pc, err := f.Commits.GetCommit(pid)
			if err != nil {
				return nil, errors.Wrapf(err, "mergebase: read commit %s", pid)
			}
			heap.Push(pq, &prioritizedCommit{value: pc, flags: flags})
		}
	}

	return result, nil
}

// Best returns the single merge base of a and b, collapsing multiple
// merge bases into a virtual ancestor via merger when necessary.
func (f *Finder) Best(a, b oid.OID, merger Merger) (object.Commit, error) {
	parents, err := f.commonParents(a, b)
	if err != nil {
		return object.Commit{}, err
	}

	switch len(parents) {
	case 0:
		return object.Commit{}, ErrNoCommonAncestor
	case 1:
		return parents[0], nil
	default:
		heads := make([]oid.OID, len(parents))
		for i, p := range parents {
			heads[i] = p.OID
		}
		return f.VirtualAncestor(heads, merger)
	}
}

// VirtualAncestor collapses ≥2 commits that are all merge bases of some
// pair into a single commit, by folding them together pairwise: merge the
// first two (using their own, possibly-recursive, best common ancestor),
// then merge that result with the third, and so on. Grounded on
// createVirtualParent's recursion-level loop.
func (f *Finder) VirtualAncestor(heads []oid.OID, merger Merger) (object.Commit, error) {
	if len(heads) < 2 {
		return object.Commit{}, errors.Errorf("mergebase: VirtualAncestor needs at least 2 heads, got %d", len(heads))
	}

	base, err := f.Commits.GetCommit(heads[0])
	if err != nil {
		return object.Commit{}, errors.Wrapf(err, "mergebase: read commit %s", heads[0])
	}

	for i := 1; i < len(heads); i++ {
		other, err := f.Commits.GetCommit(heads[i])
		if err != nil {
			return object.Commit{}, errors.Wrapf(err, "mergebase: read commit %s", heads[i])
		}

		ancestor, err := f.Best(base.OID, other.OID, merger)
		if err != nil {
			return object.Commit{}, err
		}

		base, err = merger.Merge(ancestor, base, other)
		if err != nil {
			return object.Commit{}, errors.Wrap(err, "mergebase: fold virtual ancestor")
		}
	}

	return base, nil
}
