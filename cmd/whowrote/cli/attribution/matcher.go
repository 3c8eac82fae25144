package attribution

import (
	"context"
	"log/slog"
	"time"

	"github.com/whowrote/cli/cmd/whowrote/cli/diffparse"
	"github.com/whowrote/cli/cmd/whowrote/cli/hashing"
	"github.com/whowrote/cli/cmd/whowrote/cli/logging"
	"github.com/whowrote/cli/cmd/whowrote/cli/movedetect"
	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
	"github.com/whowrote/cli/cmd/whowrote/cli/pending"
)

// EditStore is the slice of the pending store the matcher needs.
type EditStore interface {
	FindByExactHash(ctx context.Context, hash, filePath string) ([]pending.Candidate, error)
	FindByNormalizedHash(ctx context.Context, hash, filePath string) ([]pending.Candidate, error)
	FindAnyEditForFile(ctx context.Context, filePath string) (*pending.Candidate, error)
	MarkMatched(ctx context.Context, ids []int64, commitSHA string, at time.Time) error
}

// MatchResult is the outcome of matching one commit's added lines.
type MatchResult struct {
	Lines          []LineAttribution
	TotalLines     int
	UnmatchedLines int
	MatchedEdits   []int64
}

// Matcher attributes added lines to pending AI edits.
type Matcher struct {
	store         EditStore
	moveDetection bool
	now           func() time.Time
}

// NewMatcher returns a matcher over store. With moveDetection off, only hash
// matches count.
func NewMatcher(store EditStore, moveDetection bool) *Matcher {
	return &Matcher{store: store, moveDetection: moveDetection, now: time.Now}
}

// Match resolves every non-blank added line in hunks: exact hash, then
// normalized hash, then move evidence. Edits that matched by hash are marked
// consumed by commitSHA in one transaction. Lookup failures count as misses.
func (m *Matcher) Match(ctx context.Context, commitSHA string, hunks []diffparse.DiffHunk, moves movedetect.Index) *MatchResult {
	res := &MatchResult{}
	consumed := make(map[int64]struct{})

	for _, h := range hunks {
		if paths.IsInfrastructurePath(h.Path) {
			continue
		}
		for _, line := range h.Lines {
			if hashing.IsBlank(line.Content) {
				continue
			}
			res.TotalLines++

			la, editID, ok := m.matchLine(ctx, h.Path, line, moves)
			if !ok {
				res.UnmatchedLines++
				continue
			}
			res.Lines = append(res.Lines, la)
			if editID != 0 {
				if _, seen := consumed[editID]; !seen {
					consumed[editID] = struct{}{}
					res.MatchedEdits = append(res.MatchedEdits, editID)
				}
			}
		}
	}

	if len(res.MatchedEdits) > 0 {
		if err := m.store.MarkMatched(ctx, res.MatchedEdits, commitSHA, m.now()); err != nil {
			logging.Debug(ctx, "marking edits matched failed",
				slog.Int("edits", len(res.MatchedEdits)),
				slog.String("error", err.Error()))
		}
	}
	return res
}

// matchLine returns the attribution for one line and the ID of the pending
// edit it consumes (0 for move matches, which only borrow file history).
func (m *Matcher) matchLine(ctx context.Context, path string, line diffparse.DiffLine, moves movedetect.Index) (LineAttribution, int64, bool) {
	la := LineAttribution{
		Path:        path,
		Line:        line.LineNumber,
		ContentHash: line.Hash,
		Content:     line.Content,
	}

	if c, ok := m.first(ctx, MatchExactHash, m.store.FindByExactHash, line.Hash, path); ok {
		return fill(la, c, MatchExactHash), c.EditID, true
	}
	if c, ok := m.first(ctx, MatchNormalizedHash, m.store.FindByNormalizedHash, line.HashNormalized, path); ok {
		return fill(la, c, MatchNormalizedHash), c.EditID, true
	}

	if !m.moveDetection || moves == nil {
		return la, 0, false
	}
	origin, ok := moves.Lookup(path, line.LineNumber)
	if !ok {
		return la, 0, false
	}
	// Any recorded AI edit to the origin file is accepted as evidence.
	c, err := m.store.FindAnyEditForFile(ctx, origin.FromPath)
	if err != nil {
		logging.Debug(ctx, "move origin lookup failed",
			slog.String("from", origin.FromPath),
			slog.String("error", err.Error()))
		return la, 0, false
	}
	if c == nil {
		return la, 0, false
	}
	return fill(la, *c, MatchMoveDetected), 0, true
}

type lookupFunc func(ctx context.Context, hash, filePath string) ([]pending.Candidate, error)

func (m *Matcher) first(ctx context.Context, kind MatchType, fn lookupFunc, hash, path string) (pending.Candidate, bool) {
	cands, err := fn(ctx, hash, path)
	if err != nil {
		logging.Debug(ctx, "pending lookup failed",
			slog.String("match_type", string(kind)),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return pending.Candidate{}, false
	}
	if len(cands) == 0 {
		return pending.Candidate{}, false
	}
	return cands[0], true
}

func fill(la LineAttribution, c pending.Candidate, mt MatchType) LineAttribution {
	la.Provider = c.Provider
	la.Model = c.Model
	la.MatchType = mt
	la.Confidence = mt.Confidence()
	return la
}
