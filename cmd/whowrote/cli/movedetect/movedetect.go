// Package movedetect pairs blocks of removed lines with added hunks so AI
// attribution can follow code that was cut and pasted elsewhere.
package movedetect

import (
	"strconv"
	"strings"

	"github.com/whowrote/cli/cmd/whowrote/cli/diffparse"
	"github.com/whowrote/cli/cmd/whowrote/cli/hashing"
)

// MinBlockLines is the smallest deleted block considered a move.
const MinBlockLines = 3

// MoveMapping records that LineCount lines starting at FromPath:FromStartLine
// reappear at ToPath:ToStartLine.
type MoveMapping struct {
	FromPath      string
	FromStartLine int
	ToPath        string
	ToStartLine   int
	LineCount     int
}

// Origin is where a moved line came from.
type Origin struct {
	FromPath string
	FromLine int
}

// Index maps "path:newLine" to the line's origin.
type Index map[string]Origin

// Key builds an Index key.
func Key(path string, line int) string {
	return path + ":" + strconv.Itoa(line)
}

// Lookup returns the origin of path:line if it was moved.
func (idx Index) Lookup(path string, line int) (Origin, bool) {
	o, ok := idx[Key(path, line)]
	return o, ok
}

// Detect finds moves in a parsed diff. Each deleted block maps to at most one
// destination, the first hunk (in diff order) that matches.
func Detect(d *diffparse.Diff) []MoveMapping {
	hunks := make([]normalizedHunk, len(d.Hunks))
	for i, h := range d.Hunks {
		hunks[i] = normalize(h)
	}

	var moves []MoveMapping
	for _, block := range d.Deleted {
		if len(block.Lines) < MinBlockLines {
			continue
		}
		if m, ok := matchBlock(block, hunks); ok {
			moves = append(moves, m)
		}
	}
	return moves
}

// BuildIndex expands mappings into a per-line lookup. The first mapping to
// claim a destination line keeps it.
func BuildIndex(moves []MoveMapping) Index {
	idx := make(Index)
	for _, m := range moves {
		for i := range m.LineCount {
			k := Key(m.ToPath, m.ToStartLine+i)
			if _, taken := idx[k]; taken {
				continue
			}
			idx[k] = Origin{FromPath: m.FromPath, FromLine: m.FromStartLine + i}
		}
	}
	return idx
}

type normalizedHunk struct {
	hunk   diffparse.DiffHunk
	lines  []string
	joined string
}

func normalize(h diffparse.DiffHunk) normalizedHunk {
	lines := make([]string, len(h.Lines))
	for i, l := range h.Lines {
		lines[i] = hashing.Normalize(l.Content)
	}
	return normalizedHunk{hunk: h, lines: lines, joined: strings.Join(lines, "")}
}

func matchBlock(block diffparse.DeletedBlock, hunks []normalizedHunk) (MoveMapping, bool) {
	deleted := make([]string, len(block.Lines))
	for i, l := range block.Lines {
		deleted[i] = hashing.Normalize(l)
	}
	joined := strings.Join(deleted, "")
	if joined == "" {
		return MoveMapping{}, false
	}

	for _, h := range hunks {
		// Same content, possibly reflowed across a different number of lines.
		if h.joined == joined {
			n := len(h.lines)
			if len(deleted) < n {
				n = len(deleted)
			}
			return MoveMapping{
				FromPath:      block.Path,
				FromStartLine: block.StartLine,
				ToPath:        h.hunk.Path,
				ToStartLine:   h.hunk.StartLine,
				LineCount:     n,
			}, true
		}
		if off := indexOf(h.lines, deleted); off >= 0 {
			return MoveMapping{
				FromPath:      block.Path,
				FromStartLine: block.StartLine,
				ToPath:        h.hunk.Path,
				ToStartLine:   h.hunk.Lines[off].LineNumber,
				LineCount:     len(deleted),
			}, true
		}
	}
	return MoveMapping{}, false
}

// indexOf returns the offset of needle as a contiguous run inside haystack, or -1.
func indexOf(haystack, needle []string) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
