package attribution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/whowrote/cli/cmd/whowrote/cli/diffparse"
	"github.com/whowrote/cli/cmd/whowrote/cli/logging"
	"github.com/whowrote/cli/cmd/whowrote/cli/movedetect"
)

// AttributionContext is the -U value used for the attribution diff.
const AttributionContext = 0

// MoveContext is the -U value used for the move-detection diff.
const MoveContext = 3

// DiffSource produces a commit's unified diff with the given context width.
type DiffSource interface {
	CommitDiff(ctx context.Context, sha string, contextLines int) (string, error)
}

// NoteWriter persists a note on a commit, replacing any existing one.
type NoteWriter interface {
	Write(ctx context.Context, sha string, note *Note) error
}

// Report summarizes one processed commit.
type Report struct {
	Commit         string
	TotalLines     int
	UnmatchedLines int
	Ranges         []RangeAttribution
	NoteWritten    bool
}

// Processor runs the full commit pipeline: diff, move detection, matching,
// merging and note writing.
type Processor struct {
	matcher *Matcher
	diffs   DiffSource
	notes   NoteWriter
	now     func() time.Time
}

// NewProcessor wires a processor.
func NewProcessor(store EditStore, diffs DiffSource, notes NoteWriter, moveDetection bool) *Processor {
	return &Processor{
		matcher: NewMatcher(store, moveDetection),
		diffs:   diffs,
		notes:   notes,
		now:     time.Now,
	}
}

// ProcessCommit attributes sha and writes its note. A commit with no AI
// lines gets no note, which leaves any earlier note in place. Running it
// again on the same commit is safe: consumed edits cannot match twice.
func (p *Processor) ProcessCommit(ctx context.Context, sha string) (*Report, error) {
	ctx = logging.WithCommit(ctx, sha)
	start := time.Now()

	raw, err := p.diffs.CommitDiff(ctx, sha, AttributionContext)
	if err != nil {
		return nil, fmt.Errorf("reading diff for %s: %w", sha, err)
	}
	d, err := diffparse.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing diff for %s: %w", sha, err)
	}

	var moves movedetect.Index
	if p.matcher.moveDetection {
		moves = p.moveIndex(ctx, sha)
	}

	res := p.matcher.Match(ctx, sha, d.Hunks, moves)
	report := &Report{
		Commit:         sha,
		TotalLines:     res.TotalLines,
		UnmatchedLines: res.UnmatchedLines,
		Ranges:         Merge(res.Lines),
	}

	defer logging.LogDuration(ctx, slog.LevelDebug, "commit processed", start,
		slog.Int("total_lines", report.TotalLines),
		slog.Int("unmatched_lines", report.UnmatchedLines),
		slog.Int("ranges", len(report.Ranges)))

	if len(report.Ranges) == 0 {
		return report, nil
	}
	if err := p.notes.Write(ctx, sha, NewNote(report.Ranges, p.now())); err != nil {
		return report, fmt.Errorf("writing note for %s: %w", sha, err)
	}
	report.NoteWritten = true
	return report, nil
}

// moveIndex parses the wider-context diff for moves. Failures disable move
// matching for this commit only.
func (p *Processor) moveIndex(ctx context.Context, sha string) movedetect.Index {
	raw, err := p.diffs.CommitDiff(ctx, sha, MoveContext)
	if err != nil {
		logging.Debug(ctx, "move diff unavailable", slog.String("error", err.Error()))
		return nil
	}
	d, err := diffparse.Parse(raw)
	if err != nil {
		logging.Debug(ctx, "move diff unparsable", slog.String("error", err.Error()))
		return nil
	}
	moves := movedetect.Detect(d)
	if len(moves) > 0 {
		logging.Debug(ctx, "moves detected", slog.Int("count", len(moves)))
	}
	return movedetect.BuildIndex(moves)
}
