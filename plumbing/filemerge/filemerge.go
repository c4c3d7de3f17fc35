// Package filemerge implements the byte-level three-way ("diff3") line
// merge of spec.md §4.3.
//
// Grounded on the teacher's diff3.go (chunk-matching via getNextMismatch/
// getNextMatch, writeChunk hunk emission, conflict markers) and
// myers_differer.go (the Myers shortest-edit-script role), but the line
// diff engine is swapped for github.com/sergi/go-diff's diffmatchpatch
// line-mode API — a dependency go-git.v4's own go.mod already carries —
// instead of reimplementing the edit-graph walk. Best-mode computation is
// grounded on libgit2's merge_filediff_best_mode (merge.c:470-491).
package filemerge

import (
	"bytes"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/coreglyph/merge3/plumbing/mode"
)

// Favor resolves a conflicting hunk in favor of one side by policy,
// instead of emitting conflict markers (spec.md §4.3 "favor").
type Favor int

const (
	FavorNone Favor = iota
	FavorOurs
	FavorTheirs
)

// Result is the outcome of a three-way file merge.
type Result struct {
	// Content is either the automerged buffer (Automergeable true) or a
	// diff3-annotated buffer with conflict markers (Automergeable false).
	Content []byte
	// Automergeable is true when Content has no unresolved conflict
	// hunks — either because there were none, or because Favor forced a
	// resolution (spec.md: "favor ... cause automergeable = true by
	// convention").
	Automergeable bool
}

// Merge runs the three-way line merge. ancestor/ours/theirs are raw blob
// bytes (nil/empty meaning an empty file, per spec.md's "Zero-length input
// is represented as empty content"). ourName/theirName are the display
// names used in conflict markers (spec.md §4.3 "Display names").
func Merge(ancestor, ours, theirs []byte, favor Favor, ourName, theirName string) Result {
	baseLines := splitLines(ancestor)
	ourLines := splitLines(ours)
	theirLines := splitLines(theirs)

	matchesOurs := lineMatches(baseLines, ourLines)
	matchesTheirs := lineMatches(baseLines, theirLines)

	m := &merger{
		base:          baseLines,
		ours:          ourLines,
		theirs:        theirLines,
		matchesOurs:   matchesOurs,
		matchesTheirs: matchesTheirs,
		favor:         favor,
		ourName:       ourName,
		theirName:     theirName,
	}

	return m.run()
}

// BestMode computes spec.md §4.3's "best mode": if the ancestor is absent,
// executable if either side is executable, else regular; else whichever
// side's mode differs from the ancestor; if both differ, ambiguous (ok =
// false).
func BestMode(ancestorPresent bool, ancestorMode, oursMode, theirsMode mode.FileMode) (mode.FileMode, bool) {
	if !ancestorPresent {
		if oursMode == mode.Executable || theirsMode == mode.Executable {
			return mode.Executable, true
		}
		return mode.Regular, true
	}

	oursDiffers := oursMode != ancestorMode
	theirsDiffers := theirsMode != ancestorMode

	switch {
	case oursDiffers && theirsDiffers:
		return mode.Empty, false
	case oursDiffers:
		return oursMode, true
	case theirsDiffers:
		return theirsMode, true
	default:
		return ancestorMode, true
	}
}

// BestPath computes spec.md §4.3's "best path". This module does not
// implement rename detection (spec.md §1 Non-goals), so a Delta's three
// sides are always keyed by the same path string by construction of
// plumbing/walker — there is never more than one candidate path to choose
// from. BestPath exists to make that explicit at the call site rather than
// have callers assume it.
func BestPath(ancestorPresent bool, ancestorPath, oursPath, theirsPath string) (string, bool) {
	if !ancestorPresent {
		if oursPath != theirsPath {
			return "", false
		}
		return oursPath, true
	}
	if oursPath == theirsPath {
		return oursPath, true
	}
	// Without rename detection, ours/theirs paths can only differ here if
	// they were never actually the same delta; guard rather than guess.
	return "", false
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	text := string(content)
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// lineMatches returns, for each index in base that has an unchanged
// counterpart in side, the corresponding index in side. It is the
// equivalent of the teacher's diff3.getMatches(diffA), computed from
// diffmatchpatch's line-mode diff instead of a hand-rolled Myers walk.
func lineMatches(base, side []string) map[int]int {
	matches := map[int]int{}

	dmp := diffmatchpatch.New()
	baseText := joinWithTrailingNewline(base)
	sideText := joinWithTrailingNewline(side)

	c1, c2, lineArray := dmp.DiffLinesToChars(baseText, sideText)
	diffs := dmp.DiffMain(c1, c2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	baseIdx, sideIdx := 0, 0
	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for k := 0; k < n; k++ {
				matches[baseIdx+k] = sideIdx + k
			}
			baseIdx += n
			sideIdx += n
		case diffmatchpatch.DiffDelete:
			baseIdx += n
		case diffmatchpatch.DiffInsert:
			sideIdx += n
		}
	}

	return matches
}

func joinWithTrailingNewline(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n")
}

// merger holds the chunking state for the diff3 algorithm, a direct port
// of the teacher's diff3 struct (diff3.go) generalized over line-index
// matches instead of a fileDiff slice.
type merger struct {
	base, ours, theirs         []string
	matchesOurs, matchesTheirs map[int]int
	favor                      Favor
	ourName, theirName         string

	conflicts int
}

func (m *merger) run() Result {
	var buf bytes.Buffer

	lineBase, lineOurs, lineTheirs := 0, 0, 0

	for {
		i := m.nextMismatch(lineBase, lineOurs, lineTheirs)

		if i == 0 {
			match, ok := m.nextMatch(lineBase)
			if ok {
				nb, no, nt := m.emitChunk(&buf, lineBase, lineOurs, lineTheirs, match.base, match.ours, match.theirs)
				lineBase, lineOurs, lineTheirs = nb, no, nt
				continue
			}
			m.emitFinalChunk(&buf, lineBase, lineOurs, lineTheirs)
			break
		}

		if i > 0 {
			nb, no, nt := m.emitChunk(&buf, lineBase, lineOurs, lineTheirs, lineBase+i, lineOurs+i, lineTheirs+i)
			lineBase, lineOurs, lineTheirs = nb, no, nt
			continue
		}

		m.emitFinalChunk(&buf, lineBase, lineOurs, lineTheirs)
		break
	}

	return Result{Content: buf.Bytes(), Automergeable: m.conflicts == 0 || m.favor != FavorNone}
}

type matchPoint struct{ base, ours, theirs int }

// nextMatch finds the next base line at or after lineBase that has a
// simultaneous match in both ours and theirs — a synchronization point the
// chunker can emit up to.
func (m *merger) nextMatch(lineBase int) (matchPoint, bool) {
	for b := lineBase; b < len(m.base); b++ {
		o, okO := m.matchesOurs[b]
		t, okT := m.matchesTheirs[b]
		if okO && okT {
			return matchPoint{base: b, ours: o, theirs: t}, true
		}
	}
	return matchPoint{}, false
}

// nextMismatch scans forward from (lineBase, lineOurs, lineTheirs) while
// both sides continue to match verbatim, returning the offset of the
// first divergence, or -1 once every side has been exhausted.
func (m *merger) nextMismatch(lineBase, lineOurs, lineTheirs int) int {
	i := 0
	for m.inBounds(i, lineBase, lineOurs, lineTheirs) &&
		m.isMatch(m.matchesOurs, lineBase, lineOurs, i) &&
		m.isMatch(m.matchesTheirs, lineBase, lineTheirs, i) {
		i++
	}

	if m.inBounds(i, lineBase, lineOurs, lineTheirs) {
		return i
	}
	return -1
}

func (m *merger) inBounds(i, lineBase, lineOurs, lineTheirs int) bool {
	return lineBase+i < len(m.base) || lineOurs+i < len(m.ours) || lineTheirs+i < len(m.theirs)
}

func (m *merger) isMatch(matches map[int]int, lineBase, offset, i int) bool {
	v, ok := matches[lineBase+i]
	if !ok {
		return false
	}
	return v == offset+i
}

func (m *merger) emitChunk(buf *bytes.Buffer, fromBase, fromOurs, fromTheirs, toBase, toOurs, toTheirs int) (int, int, int) {
	m.writeChunk(buf, fromBase, fromOurs, fromTheirs, toBase, toOurs, toTheirs)
	return toBase, toOurs, toTheirs
}

func (m *merger) emitFinalChunk(buf *bytes.Buffer, fromBase, fromOurs, fromTheirs int) {
	m.writeChunk(buf, fromBase, fromOurs, fromTheirs, len(m.base), len(m.ours), len(m.theirs))
}

// writeChunk emits one hunk spanning [from, to) of each side, a direct
// port of the teacher's diff3.writeChunk.
func (m *merger) writeChunk(buf *bytes.Buffer, fromBase, fromOurs, fromTheirs, toBase, toOurs, toTheirs int) {
	j, k := fromOurs, fromTheirs
	var blockOurs, blockTheirs []string
	var notEqlOurs, notEqlTheirs []string

	for i := fromBase; i < toBase; i++ {
		baseLine := m.base[i]

		if j < toOurs {
			ourLine := m.ours[j]
			if baseLine != ourLine {
				notEqlOurs = append(notEqlOurs, ourLine)
			}
			blockOurs = append(blockOurs, ourLine)
			j++
		}

		if k < toTheirs {
			theirLine := m.theirs[k]
			if baseLine != theirLine {
				notEqlTheirs = append(notEqlTheirs, theirLine)
			}
			blockTheirs = append(blockTheirs, theirLine)
			k++
		}
	}

	for j < toOurs {
		blockOurs = append(blockOurs, m.ours[j])
		notEqlOurs = append(notEqlOurs, m.ours[j])
		j++
	}
	for k < toTheirs {
		blockTheirs = append(blockTheirs, m.theirs[k])
		notEqlTheirs = append(notEqlTheirs, m.theirs[k])
		k++
	}

	lenBase := toBase - fromBase
	lenOurs := toOurs - fromOurs
	lenTheirs := toTheirs - fromTheirs

	eqOurs := (lenBase < 1 && lenOurs < 1) || (lenBase == lenOurs && fromOurs != toOurs && len(notEqlOurs) == 0)
	eqTheirs := (lenBase < 1 && lenTheirs < 1) || (lenBase == lenTheirs && fromTheirs != toTheirs && len(notEqlTheirs) == 0)
	bothEmpty := fromOurs >= toOurs && fromTheirs >= toTheirs

	switch {
	case eqOurs && eqTheirs:
		writeBlock(buf, blockOurs)
	case eqOurs:
		writeBlock(buf, blockTheirs)
	case eqTheirs:
		writeBlock(buf, blockOurs)
	case bothEmpty:
		// nothing to write
	case blocksEqual(blockOurs, blockTheirs):
		writeBlock(buf, blockOurs)
	case m.favor == FavorOurs:
		writeBlock(buf, blockOurs)
	case m.favor == FavorTheirs:
		writeBlock(buf, blockTheirs)
	default:
		writeConflict(buf, blockOurs, blockTheirs, m.ourName, m.theirName)
		m.conflicts++
	}
}

func writeBlock(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

func writeConflict(buf *bytes.Buffer, ours, theirs []string, ourName, theirName string) {
	if len(ours) == 0 && len(theirs) == 0 {
		return
	}

	buf.WriteString("<<<<<<< ")
	buf.WriteString(ourName)
	buf.WriteByte('\n')
	writeBlock(buf, ours)
	buf.WriteString("=======\n")
	writeBlock(buf, theirs)
	buf.WriteString(">>>>>>> ")
	buf.WriteString(theirName)
	buf.WriteByte('\n')
}

func blocksEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
