package attribution

import (
	"sort"
	"strings"

	"github.com/whowrote/cli/cmd/whowrote/cli/hashing"
)

// Merge collapses line attributions into ranges. Lines join the current
// range only when they are in the same file, directly follow its last line,
// and share provider and match type. A merged range carries the lowest
// confidence of its members and the hash of its members' joined content.
func Merge(lines []LineAttribution) []RangeAttribution {
	if len(lines) == 0 {
		return nil
	}

	sorted := make([]LineAttribution, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Line < sorted[j].Line
	})

	var (
		ranges  []RangeAttribution
		current *RangeAttribution
		content []string
	)
	closeRange := func() {
		if current == nil {
			return
		}
		current.ContentHash = hashing.Hash(strings.Join(content, "\n"))
		ranges = append(ranges, *current)
		current = nil
		content = nil
	}

	for _, l := range sorted {
		if current != nil &&
			l.Path == current.Path &&
			l.Line == current.EndLine+1 &&
			l.Provider == current.Provider &&
			l.MatchType == current.MatchType {
			current.EndLine = l.Line
			current.Confidence = min(current.Confidence, l.Confidence)
			content = append(content, l.Content)
			continue
		}
		closeRange()
		current = &RangeAttribution{
			Path:       l.Path,
			StartLine:  l.Line,
			EndLine:    l.Line,
			Category:   CategoryAIGenerated,
			Provider:   l.Provider,
			Model:      l.Model,
			Confidence: l.Confidence,
			MatchType:  l.MatchType,
		}
		content = []string{l.Content}
	}
	closeRange()
	return ranges
}
