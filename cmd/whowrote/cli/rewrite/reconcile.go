// Package rewrite carries attribution across history rewrites. After a
// squash or rebase the original commits still hold their notes; the
// reconciler finds their attributed content again in the rewritten commit's
// diff and writes a fresh note there.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/whowrote/cli/cmd/whowrote/cli/attribution"
	"github.com/whowrote/cli/cmd/whowrote/cli/diffparse"
	"github.com/whowrote/cli/cmd/whowrote/cli/gitutil"
	"github.com/whowrote/cli/cmd/whowrote/cli/logging"
	"github.com/whowrote/cli/cmd/whowrote/cli/notes"
	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
)

// NoteStore is the notes access the reconciler needs.
type NoteStore interface {
	Read(ctx context.Context, sha string) (*attribution.Note, error)
	Has(ctx context.Context, sha string) bool
	Write(ctx context.Context, sha string, note *attribution.Note) error
}

// History resolves the original commits of a squashed pull request.
type History interface {
	FetchPullHead(ctx context.Context, remote string, pr int) (string, error)
	RevList(ctx context.Context, base, head string) ([]string, error)
}

// Skip reasons reported in Outcome.Skipped.
const (
	SkipAlreadyAttributed = "commit already has a note"
	SkipMergeCommit       = "merge commit"
	SkipNoOriginalNotes   = "no original commit carries a note"
	SkipNotSquash         = "not a squash merge"
)

// Outcome summarizes one reconciliation.
type Outcome struct {
	Commit    string
	Originals int
	// Carried is the number of original ranges found again.
	Carried int
	// Lost is the number of original ranges with no match in the new commit.
	Lost    int
	Ranges  []attribution.RangeAttribution
	Written bool
	Skipped string
}

// Reconciler rebuilds notes for rewritten commits.
type Reconciler struct {
	diffs attribution.DiffSource
	notes NoteStore
	now   func() time.Time
}

// NewReconciler returns a reconciler reading diffs and notes from the given sources.
func NewReconciler(diffs attribution.DiffSource, notes NoteStore) *Reconciler {
	return &Reconciler{diffs: diffs, notes: notes, now: time.Now}
}

// original is one attributed range from a pre-rewrite commit together with
// the text it covered there.
type original struct {
	attribution.RangeAttribution
	text     string
	consumed bool
}

// Reconcile derives the note for newSHA from the notes of originals. It
// never merges with an existing note: a commit that already has one is left
// alone.
func (r *Reconciler) Reconcile(ctx context.Context, newSHA string, originals []string) (*Outcome, error) {
	ctx = logging.WithCommit(ctx, newSHA)
	out := &Outcome{Commit: newSHA, Originals: len(originals)}

	if r.notes.Has(ctx, newSHA) {
		out.Skipped = SkipAlreadyAttributed
		return out, nil
	}

	ranges := r.collect(ctx, originals)
	if len(ranges) == 0 {
		out.Skipped = SkipNoOriginalNotes
		return out, nil
	}

	raw, err := r.diffs.CommitDiff(ctx, newSHA, attribution.AttributionContext)
	if err != nil {
		return out, fmt.Errorf("reading diff for %s: %w", newSHA, err)
	}
	d, err := diffparse.Parse(raw)
	if err != nil {
		return out, fmt.Errorf("parsing diff for %s: %w", newSHA, err)
	}

	out.Ranges = resolve(d.Hunks, ranges)
	out.Carried = len(out.Ranges)
	out.Lost = len(ranges) - out.Carried

	logging.Debug(ctx, "reconciled rewritten commit",
		slog.Int("originals", len(originals)),
		slog.Int("carried", out.Carried),
		slog.Int("lost", out.Lost))

	if len(out.Ranges) == 0 {
		return out, nil
	}
	if err := r.notes.Write(ctx, newSHA, attribution.NewNote(out.Ranges, r.now())); err != nil {
		return out, fmt.Errorf("writing note for %s: %w", newSHA, err)
	}
	out.Written = true
	return out, nil
}

// ReconcileSquash handles a commit created by squash-merging a pull request:
// it fetches the PR head from remote and reconciles from the PR's commits.
func (r *Reconciler) ReconcileSquash(ctx context.Context, info gitutil.CommitInfo, remote string, h History) (*Outcome, error) {
	if info.IsMerge() {
		return &Outcome{Commit: info.SHA, Skipped: SkipMergeCommit}, nil
	}
	pr, ok := DetectSquash(info)
	if !ok || len(info.Parents) == 0 {
		return &Outcome{Commit: info.SHA, Skipped: SkipNotSquash}, nil
	}
	if r.notes.Has(ctx, info.SHA) {
		return &Outcome{Commit: info.SHA, Skipped: SkipAlreadyAttributed}, nil
	}

	head, err := h.FetchPullHead(ctx, remote, pr)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %d: %w", pr, err)
	}
	originals, err := h.RevList(ctx, info.Parents[0], head)
	if err != nil {
		return nil, fmt.Errorf("listing pull request %d commits: %w", pr, err)
	}
	return r.Reconcile(ctx, info.SHA, originals)
}

// collect gathers every range from the originals' notes along with the text
// it covered in its own commit. Originals without a readable note are skipped.
func (r *Reconciler) collect(ctx context.Context, originals []string) []*original {
	var out []*original
	for _, sha := range originals {
		note, err := r.notes.Read(ctx, sha)
		if err != nil {
			if !errors.Is(err, notes.ErrNoNote) {
				logging.Debug(ctx, "original note unreadable",
					slog.String("original", sha), slog.String("error", err.Error()))
			}
			continue
		}
		lines := r.addedLines(ctx, sha)
		for _, ra := range note.Attributions {
			out = append(out, &original{RangeAttribution: ra, text: rangeText(lines, ra)})
		}
	}
	return out
}

// addedLines indexes an original commit's added lines by path and line
// number. A diff that cannot be read leaves only exact-hash matching.
func (r *Reconciler) addedLines(ctx context.Context, sha string) map[string]map[int]string {
	raw, err := r.diffs.CommitDiff(ctx, sha, attribution.AttributionContext)
	if err != nil {
		logging.Debug(ctx, "original diff unavailable",
			slog.String("original", sha), slog.String("error", err.Error()))
		return nil
	}
	d, err := diffparse.Parse(raw)
	if err != nil {
		return nil
	}
	out := make(map[string]map[int]string)
	for _, h := range d.Hunks {
		m := out[h.Path]
		if m == nil {
			m = make(map[int]string)
			out[h.Path] = m
		}
		for _, l := range h.Lines {
			m[l.LineNumber] = l.Content
		}
	}
	return out
}

func rangeText(lines map[string]map[int]string, ra attribution.RangeAttribution) string {
	file := lines[ra.Path]
	if file == nil {
		return ""
	}
	parts := make([]string, 0, ra.EndLine-ra.StartLine+1)
	for n := ra.StartLine; n <= ra.EndLine; n++ {
		content, ok := file[n]
		if !ok {
			return ""
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n")
}

// resolve places original ranges in the new commit's hunks: an exact
// content-hash match of the whole hunk first, then trimmed containment of
// the original text, same path before other paths. Each original is used at
// most once.
func resolve(hunks []diffparse.DiffHunk, ranges []*original) []attribution.RangeAttribution {
	byHash := make(map[string][]*original)
	for _, o := range ranges {
		byHash[o.ContentHash] = append(byHash[o.ContentHash], o)
	}

	var out []attribution.RangeAttribution
	for _, h := range hunks {
		if paths.IsInfrastructurePath(h.Path) {
			continue
		}
		if o := takeExact(byHash[h.ContentHash], h.Path); o != nil {
			out = append(out, placed(o, h.Path, h.StartLine, h.EndLine))
			continue
		}
		var claimed [][2]int
		for _, o := range containmentOrder(ranges, h.Path) {
			needle := strings.TrimSpace(o.text)
			if needle == "" {
				continue
			}
			idx := strings.Index(h.Content, needle)
			if idx < 0 {
				continue
			}
			start := h.StartLine + strings.Count(h.Content[:idx], "\n")
			end := start + strings.Count(needle, "\n")
			if overlaps(claimed, start, end) {
				continue
			}
			claimed = append(claimed, [2]int{start, end})
			o.consumed = true
			out = append(out, placed(o, h.Path, start, end))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].StartLine < out[j].StartLine
	})
	return out
}

func overlaps(claimed [][2]int, start, end int) bool {
	for _, c := range claimed {
		if start <= c[1] && end >= c[0] {
			return true
		}
	}
	return false
}

func takeExact(candidates []*original, path string) *original {
	var fallback *original
	for _, o := range candidates {
		if o.consumed {
			continue
		}
		if o.Path == path {
			o.consumed = true
			return o
		}
		if fallback == nil {
			fallback = o
		}
	}
	if fallback != nil {
		fallback.consumed = true
	}
	return fallback
}

func containmentOrder(ranges []*original, path string) []*original {
	var same, other []*original
	for _, o := range ranges {
		if o.consumed {
			continue
		}
		if o.Path == path {
			same = append(same, o)
		} else {
			other = append(other, o)
		}
	}
	return append(same, other...)
}

func placed(o *original, path string, start, end int) attribution.RangeAttribution {
	ra := o.RangeAttribution
	ra.Path = path
	ra.StartLine = start
	ra.EndLine = end
	if ra.Category == "" {
		ra.Category = attribution.CategoryAIGenerated
	}
	return ra
}
