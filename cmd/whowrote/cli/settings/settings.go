// Package settings loads .whowrote/settings.json with overrides from
// .whowrote/settings.local.json.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
)

// Defaults applied when a field is absent from both settings files.
const (
	DefaultRemote            = "origin"
	DefaultGitTimeoutSeconds = 10
	DefaultMatchedDays       = 7
	DefaultUnmatchedDays     = 30
)

// Retention controls how long pending-store rows survive a sweep.
type Retention struct {
	// MatchedDays is the age (by match time) after which matched edits are purged.
	MatchedDays int `json:"matched_days,omitempty"`
	// UnmatchedDays is the age (by capture time) after which pending edits are purged.
	UnmatchedDays int `json:"unmatched_days,omitempty"`
}

// Settings represents the .whowrote/settings.json configuration
type Settings struct {
	// Enabled indicates whether capture and commit hooks do any work.
	// Defaults to true.
	Enabled bool `json:"enabled"`

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	// Can be overridden by WHOWROTE_LOG_LEVEL.
	LogLevel string `json:"log_level,omitempty"`

	// NotesRef is the git notes ref attribution documents live under.
	NotesRef string `json:"notes_ref,omitempty"`

	// Remote is the remote notes are pushed to and fetched from.
	Remote string `json:"remote,omitempty"`

	// PushNotes controls whether the pre-push hook also pushes the notes ref.
	// nil means enabled.
	PushNotes *bool `json:"push_notes,omitempty"`

	// GitTimeoutSeconds bounds every git subprocess.
	GitTimeoutSeconds int `json:"git_timeout_seconds,omitempty"`

	// MoveDetection enables the move heuristic in the matcher. nil means enabled.
	MoveDetection *bool `json:"move_detection,omitempty"`

	// RedactContent scrubs secrets from stored line text. nil means enabled.
	RedactContent *bool `json:"redact_content,omitempty"`

	Retention Retention `json:"retention"`

	// Telemetry controls anonymous usage analytics.
	// nil = not configured (disabled), true = opted in, false = opted out
	Telemetry *bool `json:"telemetry,omitempty"`
}

// Load resolves the repository root from the working directory and loads
// settings from it.
func Load() (*Settings, error) {
	root, err := paths.RepoRoot()
	if err != nil {
		root = "."
	}
	return LoadFrom(root)
}

// LoadFrom loads settings.json under root, then applies settings.local.json
// overrides if present. Returns defaults if neither file exists.
func LoadFrom(root string) (*Settings, error) {
	s, err := loadFromFile(filepath.Join(root, paths.SettingsFile))
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	localData, err := os.ReadFile(filepath.Join(root, paths.LocalSettings)) //nolint:gosec // path built from constants
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading local settings file: %w", err)
		}
	} else if err := mergeJSON(s, localData); err != nil {
		return nil, fmt.Errorf("merging local settings: %w", err)
	}

	applyDefaults(s)
	return s, nil
}

func loadFromFile(filePath string) (*Settings, error) {
	s := &Settings{Enabled: true}

	data, err := os.ReadFile(filePath) //nolint:gosec // path is from caller
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	return s, nil
}

// mergeJSON applies the fields present in data on top of s.
// Absent fields keep their current value; empty strings and zero numbers are ignored.
func mergeJSON(s *Settings, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	type field struct {
		key string
		dst any
	}
	var enabled, pushNotes, moves, redact, telemetry bool
	var logLevel, notesRef, remote string
	var timeout int
	var retention Retention
	fields := []field{
		{"enabled", &enabled},
		{"log_level", &logLevel},
		{"notes_ref", &notesRef},
		{"remote", &remote},
		{"push_notes", &pushNotes},
		{"git_timeout_seconds", &timeout},
		{"move_detection", &moves},
		{"redact_content", &redact},
		{"retention", &retention},
		{"telemetry", &telemetry},
	}
	for _, f := range fields {
		msg, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(msg, f.dst); err != nil {
			return fmt.Errorf("parsing %s field: %w", f.key, err)
		}
		switch f.key {
		case "enabled":
			s.Enabled = enabled
		case "log_level":
			if logLevel != "" {
				s.LogLevel = logLevel
			}
		case "notes_ref":
			if notesRef != "" {
				s.NotesRef = notesRef
			}
		case "remote":
			if remote != "" {
				s.Remote = remote
			}
		case "push_notes":
			s.PushNotes = &pushNotes
		case "git_timeout_seconds":
			if timeout > 0 {
				s.GitTimeoutSeconds = timeout
			}
		case "move_detection":
			s.MoveDetection = &moves
		case "redact_content":
			s.RedactContent = &redact
		case "retention":
			if retention.MatchedDays > 0 {
				s.Retention.MatchedDays = retention.MatchedDays
			}
			if retention.UnmatchedDays > 0 {
				s.Retention.UnmatchedDays = retention.UnmatchedDays
			}
		case "telemetry":
			s.Telemetry = &telemetry
		}
	}
	return nil
}

func applyDefaults(s *Settings) {
	if s.NotesRef == "" {
		s.NotesRef = paths.DefaultNoteRef
	}
	if s.Remote == "" {
		s.Remote = DefaultRemote
	}
	if s.GitTimeoutSeconds <= 0 {
		s.GitTimeoutSeconds = DefaultGitTimeoutSeconds
	}
	if s.Retention.MatchedDays <= 0 {
		s.Retention.MatchedDays = DefaultMatchedDays
	}
	if s.Retention.UnmatchedDays <= 0 {
		s.Retention.UnmatchedDays = DefaultUnmatchedDays
	}
}

// GitTimeout returns the per-subprocess timeout.
func (s *Settings) GitTimeout() time.Duration {
	return time.Duration(s.GitTimeoutSeconds) * time.Second
}

// ShouldPushNotes reports whether pre-push should push the notes ref.
func (s *Settings) ShouldPushNotes() bool {
	return s.PushNotes == nil || *s.PushNotes
}

// MoveDetectionEnabled reports whether move-detected matches are allowed.
func (s *Settings) MoveDetectionEnabled() bool {
	return s.MoveDetection == nil || *s.MoveDetection
}

// RedactionEnabled reports whether stored line text is scrubbed of secrets.
func (s *Settings) RedactionEnabled() bool {
	return s.RedactContent == nil || *s.RedactContent
}

// MatchedRetention is the age after which matched edits are swept.
func (s *Settings) MatchedRetention() time.Duration {
	return time.Duration(s.Retention.MatchedDays) * 24 * time.Hour
}

// UnmatchedRetention is the age after which pending edits are swept.
func (s *Settings) UnmatchedRetention() time.Duration {
	return time.Duration(s.Retention.UnmatchedDays) * 24 * time.Hour
}
