// Package attribution decides which added lines of a commit were written by
// an AI tool and collapses the result into the ranges stored in git notes.
package attribution

import (
	"encoding/json"
	"fmt"
	"time"
)

// NoteVersion is the only attribution document version this build reads or writes.
const NoteVersion = 2

// CategoryAIGenerated is the category of every attribution the matcher emits.
const CategoryAIGenerated = "ai_generated"

// MatchType is how a line was tied to an AI edit. Its confidence is fixed.
type MatchType string

const (
	MatchExactHash      MatchType = "exact_hash"
	MatchNormalizedHash MatchType = "normalized_hash"
	MatchMoveDetected   MatchType = "move_detected"
)

var confidences = map[MatchType]float64{
	MatchExactHash:      1.0,
	MatchNormalizedHash: 0.95,
	MatchMoveDetected:   0.85,
}

// Confidence returns the fixed confidence of a match type, 0 for unknown types.
func (m MatchType) Confidence() float64 {
	return confidences[m]
}

// Valid reports whether m is one of the known match types.
func (m MatchType) Valid() bool {
	_, ok := confidences[m]
	return ok
}

// LineAttribution attributes a single line.
type LineAttribution struct {
	Path        string
	Line        int
	Provider    string
	Model       string
	Confidence  float64
	MatchType   MatchType
	ContentHash string
	// Content is the line text, kept so merged ranges can hash their content.
	Content string
}

// RangeAttribution attributes a contiguous run of lines in one file.
type RangeAttribution struct {
	Path        string
	StartLine   int
	EndLine     int
	Category    string
	Provider    string
	Model       string
	Confidence  float64
	MatchType   MatchType
	ContentHash string
}

type rangeJSON struct {
	Path        string    `json:"path"`
	StartLine   int       `json:"startLine"`
	EndLine     int       `json:"endLine"`
	Category    string    `json:"category"`
	Provider    string    `json:"provider"`
	Model       *string   `json:"model"`
	Confidence  float64   `json:"confidence"`
	MatchType   MatchType `json:"matchType"`
	ContentHash string    `json:"contentHash"`
}

// MarshalJSON writes an empty model as null.
func (r RangeAttribution) MarshalJSON() ([]byte, error) {
	out := rangeJSON{
		Path:        r.Path,
		StartLine:   r.StartLine,
		EndLine:     r.EndLine,
		Category:    r.Category,
		Provider:    r.Provider,
		Confidence:  r.Confidence,
		MatchType:   r.MatchType,
		ContentHash: r.ContentHash,
	}
	if out.Category == "" {
		out.Category = CategoryAIGenerated
	}
	if r.Model != "" {
		m := r.Model
		out.Model = &m
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding range: %w", err)
	}
	return data, nil
}

// UnmarshalJSON reads a null model as empty.
func (r *RangeAttribution) UnmarshalJSON(data []byte) error {
	var in rangeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding range: %w", err)
	}
	*r = RangeAttribution{
		Path:        in.Path,
		StartLine:   in.StartLine,
		EndLine:     in.EndLine,
		Category:    in.Category,
		Provider:    in.Provider,
		Confidence:  in.Confidence,
		MatchType:   in.MatchType,
		ContentHash: in.ContentHash,
	}
	if in.Model != nil {
		r.Model = *in.Model
	}
	return nil
}

// Note is the versioned document attached to a commit.
type Note struct {
	Version      int                `json:"version"`
	Timestamp    time.Time          `json:"timestamp"`
	Attributions []RangeAttribution `json:"attributions"`
}

// NewNote wraps ranges in a current-version note stamped with now (UTC).
func NewNote(ranges []RangeAttribution, now time.Time) *Note {
	if ranges == nil {
		ranges = []RangeAttribution{}
	}
	return &Note{
		Version:      NoteVersion,
		Timestamp:    now.UTC().Truncate(time.Millisecond),
		Attributions: ranges,
	}
}

// LineCount returns the number of lines covered by the note's ranges.
func (n *Note) LineCount() int {
	total := 0
	for _, r := range n.Attributions {
		total += r.EndLine - r.StartLine + 1
	}
	return total
}
