package capture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/whowrote/cli/cmd/whowrote/cli/validation"
)

// Provider identifiers accepted by Decode.
const (
	ProviderCursor     = "cursor"
	ProviderClaudeCode = "claude-code"
	ProviderOpenCode   = "opencode"
)

// Event names each provider emits for file edits.
const (
	EventCursorAfterFileEdit = "afterFileEdit"
	EventClaudePostToolUse   = "PostToolUse"
	EventOpenCodeWrite       = "write"
	EventOpenCodeEdit        = "edit"
)

// UnknownModel is recorded when a provider does not report its model.
const UnknownModel = "unknown"

var (
	// ErrUnknownProvider is returned for a provider identifier Decode does not know.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnsupportedEvent is returned for an event that carries no file edit.
	ErrUnsupportedEvent = errors.New("unsupported event")
	// ErrPatchRequired is returned when a claude-code payload has no structured patch.
	ErrPatchRequired = errors.New("structured patch required")
	// ErrMissingFilePath is returned when a payload does not name the edited file.
	ErrMissingFilePath = errors.New("payload has no file path")
)

// Payload is one decoded provider event. The set of implementations is closed.
type Payload interface {
	Provider() string
	// File returns the edited file path as the provider reported it.
	File() string
	sealed()
}

// CursorPayload is an afterFileEdit event: a list of old/new string
// replacements applied to one file.
type CursorPayload struct {
	HookEventName  string       `json:"hook_event_name"`
	ConversationID string       `json:"conversation_id"`
	GenerationID   string       `json:"generation_id"`
	Model          string       `json:"model"`
	FilePath       string       `json:"file_path"`
	Edits          []CursorEdit `json:"edits"`
}

// CursorEdit is one replacement inside a CursorPayload.
type CursorEdit struct {
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

// Provider implements Payload.
func (*CursorPayload) Provider() string {
	return ProviderCursor
}

// File implements Payload.
func (p *CursorPayload) File() string {
	return p.FilePath
}

func (*CursorPayload) sealed() {}

// ClaudeCodePayload is a PostToolUse event for a file-writing tool.
type ClaudeCodePayload struct {
	HookEventName  string `json:"hook_event_name"`
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	ToolName       string `json:"tool_name"`
	ToolUseID      string `json:"tool_use_id"`
	ToolInput      struct {
		FilePath string `json:"file_path"`
	} `json:"tool_input"`
	ToolResponse struct {
		FilePath        string      `json:"filePath"`
		StructuredPatch []PatchHunk `json:"structuredPatch"`
	} `json:"tool_response"`
}

// PatchHunk is one hunk of a claude-code structured patch. Lines carry a
// one-character prefix: '+', '-' or ' '.
type PatchHunk struct {
	OldStart int      `json:"oldStart"`
	OldLines int      `json:"oldLines"`
	NewStart int      `json:"newStart"`
	NewLines int      `json:"newLines"`
	Lines    []string `json:"lines"`
}

// Provider implements Payload.
func (*ClaudeCodePayload) Provider() string {
	return ProviderClaudeCode
}

// File implements Payload. tool_input wins over tool_response.
func (p *ClaudeCodePayload) File() string {
	if p.ToolInput.FilePath != "" {
		return p.ToolInput.FilePath
	}
	return p.ToolResponse.FilePath
}

func (*ClaudeCodePayload) sealed() {}

// OpenCodePayload is a write or edit event carrying the whole file before
// and after the change.
type OpenCodePayload struct {
	Event     string `json:"event"`
	FilePath  string `json:"filePath"`
	Before    string `json:"before"`
	After     string `json:"after"`
	Model     string `json:"model"`
	SessionID string `json:"sessionID"`
}

// Provider implements Payload.
func (*OpenCodePayload) Provider() string {
	return ProviderOpenCode
}

// File implements Payload.
func (p *OpenCodePayload) File() string {
	return p.FilePath
}

func (*OpenCodePayload) sealed() {}

// Decode parses data as the payload of provider. event, when non-empty,
// overrides the event name embedded in the payload. Shapes that cannot
// describe a file edit are rejected.
func Decode(provider, event string, data []byte) (Payload, error) {
	switch provider {
	case ProviderCursor:
		var p CursorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s payload: %w", provider, err)
		}
		if ev := firstNonEmpty(event, p.HookEventName); ev != "" && ev != EventCursorAfterFileEdit {
			return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedEvent, provider, ev)
		}
		if p.FilePath == "" {
			return nil, ErrMissingFilePath
		}
		return &p, nil

	case ProviderClaudeCode:
		var p ClaudeCodePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s payload: %w", provider, err)
		}
		if ev := firstNonEmpty(event, p.HookEventName); ev != "" && ev != EventClaudePostToolUse {
			return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedEvent, provider, ev)
		}
		if len(p.ToolResponse.StructuredPatch) == 0 {
			return nil, ErrPatchRequired
		}
		if p.File() == "" {
			return nil, ErrMissingFilePath
		}
		if err := validation.ValidateToolUseID(p.ToolUseID); err != nil {
			return nil, fmt.Errorf("%s payload: %w", provider, err)
		}
		return &p, nil

	case ProviderOpenCode:
		var p OpenCodePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s payload: %w", provider, err)
		}
		p.Event = firstNonEmpty(event, p.Event)
		if p.Event != EventOpenCodeWrite && p.Event != EventOpenCodeEdit {
			return nil, fmt.Errorf("%w: %s %q", ErrUnsupportedEvent, provider, p.Event)
		}
		if p.FilePath == "" {
			return nil, ErrMissingFilePath
		}
		return &p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
