// Package setup writes and removes the merge setup files of spec.md §6:
// ORIG_HEAD, MERGE_HEAD, MERGE_MODE, MERGE_MSG.
//
// Grounded on write_orig_head/write_merge_head/write_merge_mode/
// write_merge_msg (original_source/src/merge.c:235-403) for file shape,
// content, and the branch-grouping message quirk, and on go-git's
// Storer.SetReference/RemoveReference pattern for the Go-idiomatic
// filesystem-backed read/write of these files.
package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/coreglyph/merge3/plumbing/object"
)

const fileMode = 0666

// File names, relative to the repository's git directory.
const (
	OrigHeadFile  = "ORIG_HEAD"
	MergeHeadFile = "MERGE_HEAD"
	MergeModeFile = "MERGE_MODE"
	MergeMsgFile  = "MERGE_MSG"
)

// Writer writes and removes the setup files inside a git directory.
type Writer struct {
	GitDir billy.Filesystem
}

// New creates a Writer rooted at gitDir.
func New(gitDir billy.Filesystem) *Writer {
	return &Writer{GitDir: gitDir}
}

// WriteOrigHead writes ORIG_HEAD: our_head's OID followed by a newline
// (spec.md §6 "ORIG_HEAD").
func (w *Writer) WriteOrigHead(ourHead object.MergeHead) error {
	return w.writeFile(OrigHeadFile, ourHead.OID.String()+"\n")
}

// WriteMergeHead writes MERGE_HEAD: one line per their-head OID, in order
// (spec.md §6 "MERGE_HEAD").
func (w *Writer) WriteMergeHead(theirHeads []object.MergeHead) error {
	var b strings.Builder
	for _, h := range theirHeads {
		b.WriteString(h.OID.String())
		b.WriteByte('\n')
	}
	return w.writeFile(MergeHeadFile, b.String())
}

// WriteMergeMode writes MERGE_MODE: the literal "no-ff" when the merge was
// run with NO_FASTFORWARD, else an empty file (spec.md §6 "MERGE_MODE").
func (w *Writer) WriteMergeMode(noFastForward bool) error {
	content := ""
	if noFastForward {
		content = "no-ff"
	}
	return w.writeFile(MergeModeFile, content)
}

// WriteMergeMsg writes MERGE_MSG: "Merge" followed by a description of
// theirHeads built with the branch-grouping quirk of spec.md §6 (grounded
// verbatim on write_merge_msg, merge.c:328-397): every head that carries a
// branch name, adjacent or not, is gathered into a single "branch"/
// "branches" clause joined with "," and a final "and", placed where the
// first branch head appears; heads given as a raw OID are rendered as
// "commit '<hex>'" in input order; each clause is separated from the next
// by "; ".
func (w *Writer) WriteMergeMsg(theirHeads []object.MergeHead) error {
	var b strings.Builder
	b.WriteString("Merge")

	wrote := make([]bool, len(theirHeads))

	for i := range theirHeads {
		if wrote[i] {
			continue
		}

		if theirHeads[i].Branch != "" {
			lastBranchIdx := i
			multiple := false
			for j := i + 1; j < len(theirHeads); j++ {
				if theirHeads[j].Branch != "" {
					multiple = true
					lastBranchIdx = j
				}
			}

			if i > 0 {
				b.WriteString(";")
			}
			b.WriteString(" ")
			if multiple {
				b.WriteString("branches")
			} else {
				b.WriteString("branch")
			}

			for j := i; j < len(theirHeads); j++ {
				if theirHeads[j].Branch == "" {
					continue
				}
				if j > i {
					if j == lastBranchIdx {
						b.WriteString(" and")
					} else {
						b.WriteString(",")
					}
				}
				b.WriteString(fmt.Sprintf(" '%s'", theirHeads[j].Branch))
				wrote[j] = true
			}
		} else {
			if i > 0 {
				b.WriteString(";")
			}
			b.WriteString(fmt.Sprintf(" commit '%s'", theirHeads[i].OID.String()))
			wrote[i] = true
		}
	}

	b.WriteString("\n")
	return w.writeFile(MergeMsgFile, b.String())
}

// Cleanup removes all four setup files, independently of one another
// (spec.md §6 "Cleanup"; spec.md §9's corrected behavior: the original
// implementation double-joined MERGE_HEAD's path into its own cleanup call
// and never removed MERGE_MSG at all — here each file is unlinked on its
// own, and a missing file is not an error).
func (w *Writer) Cleanup() error {
	for _, name := range []string{OrigHeadFile, MergeHeadFile, MergeModeFile, MergeMsgFile} {
		if err := w.GitDir.Remove(name); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "setup: remove %s", name)
		}
	}
	return nil
}

func (w *Writer) writeFile(name, content string) error {
	f, err := w.GitDir.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return errors.Wrapf(err, "setup: open %s", name)
	}
	defer f.Close()

	_, err = f.Write([]byte(content))
	return errors.Wrapf(err, "setup: write %s", name)
}
