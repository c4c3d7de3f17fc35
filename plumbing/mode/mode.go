// Package mode defines the Git tree-entry mode constants the merge engine
// classifies entries by, and the TYPECHANGE-detecting predicates used
// everywhere spec.md asks "is this side a directory/symlink" (libgit2's
// S_ISDIR/S_ISLNK macros, merge.c:888-890).
package mode

// FileMode is the mode word attached to a tree entry.
type FileMode uint32

// The four modes the merge engine ever sees. Submodule (gitlink) mode is
// out of scope per spec.md's Non-goals.
const (
	// Empty denotes an absent entry: the "mode == 0" convention spec.md's
	// per-side diff entry uses for "this side doesn't have this path".
	Empty      FileMode = 0
	Dir        FileMode = 0040000
	Regular    FileMode = 0100644
	Executable FileMode = 0100755
	Symlink    FileMode = 0120000
)

// IsAbsent reports whether m represents "no entry at this path".
func (m FileMode) IsAbsent() bool {
	return m == Empty
}

// IsDir reports whether m is the tree/subdirectory mode.
func (m FileMode) IsDir() bool {
	return m == Dir
}

// IsSymlink reports whether m is the symlink mode.
func (m FileMode) IsSymlink() bool {
	return m == Symlink
}

// IsRegularOrExecutable reports whether m is a regular blob mode, ignoring
// the executable bit.
func (m FileMode) IsRegularOrExecutable() bool {
	return m == Regular || m == Executable
}

// Perm returns the worktree permission bits (§6: diff3 output is written
// with permissions = best-mode).
func (m FileMode) Perm() uint32 {
	switch m {
	case Executable:
		return 0755
	case Symlink:
		return 0777
	default:
		return 0644
	}
}

// SameKind reports whether two modes classify as the same "nature" for
// TYPECHANGE purposes: both directories, both symlinks, or both
// regular/executable blobs. A regular/executable difference alone is a
// MODIFIED, not a TYPECHANGE.
func SameKind(a, b FileMode) bool {
	if a.IsDir() != b.IsDir() {
		return false
	}
	if a.IsSymlink() != b.IsSymlink() {
		return false
	}
	return true
}
