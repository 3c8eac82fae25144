package pending

import "time"

// EditType classifies how an edit relates to the text it replaced.
type EditType string

const (
	// EditAddition is new text with nothing replaced.
	EditAddition EditType = "addition"
	// EditModification is new text that contains the old text verbatim.
	EditModification EditType = "modification"
	// EditReplacement is everything else.
	EditReplacement EditType = "replacement"
)

// Status is the lifecycle state of a stored edit.
type Status string

const (
	StatusPending Status = "pending"
	StatusMatched Status = "matched"
)

// CapturedLine is a single non-blank line an AI tool added.
type CapturedLine struct {
	Content        string
	Hash           string
	HashNormalized string
	// LineNumber is 1-indexed in the post-edit file, 0 when unknown.
	LineNumber    int
	ContextBefore string
	ContextAfter  string
}

// CapturedEdit is one normalized edit event from an AI tool.
type CapturedEdit struct {
	ID                    int64
	Timestamp             time.Time
	Provider              string
	FilePath              string
	Model                 string
	Lines                 []CapturedLine
	Content               string
	ContentHash           string
	ContentHashNormalized string
	EditType              EditType
	OldContent            string
	SessionID             string
	ToolUseID             string
	Status                Status
	MatchedCommit         string
	MatchedAt             time.Time
}

// Candidate is a pending edit whose lines matched a lookup.
type Candidate struct {
	EditID    int64
	Provider  string
	Model     string
	FilePath  string
	Timestamp time.Time
}

// SweepResult reports how many edits a retention sweep removed and kept.
type SweepResult struct {
	Removed int
	Kept    int
}

// Stats summarizes store contents.
type Stats struct {
	Pending int
	Matched int
	Lines   int
	Oldest  time.Time
}
