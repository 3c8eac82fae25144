// Package diffparse turns a commit's unified diff into the added-line hunks
// the matcher attributes and the deleted blocks the move detector pairs
// them with.
package diffparse

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/whowrote/cli/cmd/whowrote/cli/hashing"
)

// DiffLine is one added line with its position in the new file.
type DiffLine struct {
	LineNumber     int
	Content        string
	Hash           string
	HashNormalized string
}

// DiffHunk is a run of consecutive added lines in one file. Whitespace-only
// lines are kept here; consumers decide whether to skip them.
type DiffHunk struct {
	Path                  string
	StartLine             int
	EndLine               int
	Content               string
	ContentHash           string
	ContentHashNormalized string
	Lines                 []DiffLine
}

// DeletedBlock is a run of consecutive removed lines in one file, positioned
// in the old file.
type DeletedBlock struct {
	Path      string
	StartLine int
	Lines     []string
}

// Diff is the parsed form of a whole commit diff.
type Diff struct {
	Hunks   []DiffHunk
	Deleted []DeletedBlock
}

// AddedLineCount returns the number of added lines across all hunks,
// including whitespace-only ones.
func (d *Diff) AddedLineCount() int {
	n := 0
	for _, h := range d.Hunks {
		n += len(h.Lines)
	}
	return n
}

// HunksForPath returns the hunks touching path in diff order.
func (d *Diff) HunksForPath(path string) []DiffHunk {
	var out []DiffHunk
	for _, h := range d.Hunks {
		if h.Path == path {
			out = append(out, h)
		}
	}
	return out
}

type parser struct {
	out Diff

	oldPath, newPath string
	added            []DiffLine
	deleted          []string
	deletedStart     int
}

// Parse parses unified diff text as produced by `git show` / `git diff`
// with --no-renames. Quoted non-ASCII paths come back decoded.
func Parse(diff string) (*Diff, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	p := &parser{}
	for _, f := range files {
		if f.IsBinary {
			continue
		}
		p.oldPath, p.newPath = f.OldName, f.NewName
		if f.IsNew {
			p.oldPath = ""
		}
		if f.IsDelete {
			p.newPath = ""
		}
		for _, frag := range f.TextFragments {
			p.fragment(frag)
		}
	}
	return &p.out, nil
}

// fragment walks one hunk. Context and added lines advance the new-file
// counter; context and deleted lines advance the old-file counter.
func (p *parser) fragment(frag *gitdiff.TextFragment) {
	oldLine, newLine := int(frag.OldPosition), int(frag.NewPosition)

	for _, l := range frag.Lines {
		content := trimEOL(l.Line)
		switch l.Op {
		case gitdiff.OpAdd:
			p.flushDeleted()
			p.added = append(p.added, DiffLine{
				LineNumber:     newLine,
				Content:        content,
				Hash:           hashing.Hash(content),
				HashNormalized: hashing.NormalizedHash(content),
			})
			newLine++
		case gitdiff.OpDelete:
			if len(p.deleted) == 0 {
				p.deletedStart = oldLine
			}
			p.deleted = append(p.deleted, content)
			oldLine++
		case gitdiff.OpContext:
			p.flush()
			oldLine++
			newLine++
		}
	}
	p.flush()
}

func (p *parser) flush() {
	p.flushAdded()
	p.flushDeleted()
}

func (p *parser) flushAdded() {
	if len(p.added) == 0 {
		return
	}
	if p.newPath != "" {
		contents := make([]string, len(p.added))
		for i, l := range p.added {
			contents[i] = l.Content
		}
		joined := strings.Join(contents, "\n")
		p.out.Hunks = append(p.out.Hunks, DiffHunk{
			Path:                  p.newPath,
			StartLine:             p.added[0].LineNumber,
			EndLine:               p.added[len(p.added)-1].LineNumber,
			Content:               joined,
			ContentHash:           hashing.Hash(joined),
			ContentHashNormalized: hashing.NormalizedHash(joined),
			Lines:                 p.added,
		})
	}
	p.added = nil
}

func (p *parser) flushDeleted() {
	if len(p.deleted) == 0 {
		return
	}
	if p.oldPath != "" {
		p.out.Deleted = append(p.out.Deleted, DeletedBlock{
			Path:      p.oldPath,
			StartLine: p.deletedStart,
			Lines:     p.deleted,
		})
	}
	p.deleted = nil
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
