package worktree

import (
	"os"

	"github.com/pkg/errors"
	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/coreglyph/merge3/plumbing/index"
	"github.com/coreglyph/merge3/plumbing/object"
)

// Checkout materializes resolved (stage-0) index entries into a worktree
// filesystem — spec.md §1's "Checkout — materialize a tree/index to the
// worktree" external collaborator. It is a default, minimal implementation:
// it writes every entry's blob content to its path and does not attempt
// the fuller job of a real checkout (pruning files no longer present,
// preserving unrelated worktree state), which spec.md scopes out of this
// engine's core.
type Checkout struct {
	FS  billy.Filesystem
	ODB object.ObjectStore
}

// NewCheckout creates a Checkout writing into fs, reading blobs from odb.
func NewCheckout(fs billy.Filesystem, odb object.ObjectStore) *Checkout {
	return &Checkout{FS: fs, ODB: odb}
}

// Checkout writes every entry's blob content to its path with permissions
// derived from its mode (spec.md §4.6 "checks out index").
func (c *Checkout) Checkout(entries []index.Entry) error {
	for _, e := range entries {
		content, err := c.ODB.ReadBlob(e.OID)
		if err != nil {
			return errors.Wrapf(err, "worktree: read blob for checkout %s", e.Path)
		}

		f, err := c.FS.OpenFile(e.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(e.Mode.Perm()))
		if err != nil {
			return errors.Wrapf(err, "worktree: create checkout file %s", e.Path)
		}

		if _, err := f.Write(content); err != nil {
			f.Close()
			return errors.Wrapf(err, "worktree: write checkout file %s", e.Path)
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "worktree: close checkout file %s", e.Path)
		}
	}
	return nil
}
