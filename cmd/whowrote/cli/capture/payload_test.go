package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Variants(t *testing.T) {
	t.Parallel()

	p, err := Decode(ProviderCursor, "", []byte(`{"hook_event_name":"afterFileEdit","file_path":"/r/a.go","model":"gpt-4o","edits":[{"old_string":"","new_string":"x"}]}`))
	require.NoError(t, err)
	cp, ok := p.(*CursorPayload)
	require.True(t, ok)
	assert.Equal(t, "/r/a.go", cp.File())
	assert.Len(t, cp.Edits, 1)

	p, err = Decode(ProviderClaudeCode, EventClaudePostToolUse, []byte(`{"tool_input":{"file_path":"a.go"},"tool_response":{"filePath":"b.go","structuredPatch":[{"newStart":1,"lines":["+x"]}]}}`))
	require.NoError(t, err)
	assert.Equal(t, "a.go", p.File())
	assert.Equal(t, ProviderClaudeCode, p.Provider())

	p, err = Decode(ProviderOpenCode, "edit", []byte(`{"filePath":"a.go","before":"","after":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, EventOpenCodeEdit, p.(*OpenCodePayload).Event)
}

func TestDecode_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		event    string
		data     string
		want     error
	}{
		{"unknown provider", "copilot", "", `{}`, ErrUnknownProvider},
		{"claude without patch", ProviderClaudeCode, "", `{"tool_input":{"file_path":"a.go"},"tool_response":{}}`, ErrPatchRequired},
		{"claude empty patch", ProviderClaudeCode, "", `{"tool_input":{"file_path":"a.go"},"tool_response":{"structuredPatch":[]}}`, ErrPatchRequired},
		{"claude other event", ProviderClaudeCode, "PreToolUse", `{"tool_response":{"structuredPatch":[{"lines":["+x"]}]}}`, ErrUnsupportedEvent},
		{"cursor other event", ProviderCursor, "beforeShellExecution", `{"file_path":"a.go"}`, ErrUnsupportedEvent},
		{"cursor no file", ProviderCursor, "", `{"edits":[]}`, ErrMissingFilePath},
		{"opencode read", ProviderOpenCode, "read", `{"filePath":"a.go"}`, ErrUnsupportedEvent},
		{"claude bad tool use id", ProviderClaudeCode, "", `{"tool_use_id":"../x","tool_input":{"file_path":"a.go"},"tool_response":{"structuredPatch":[{"lines":["+x"]}]}}`, nil},
		{"opencode no event", ProviderOpenCode, "", `{"filePath":"a.go"}`, ErrUnsupportedEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.provider, tt.event, []byte(tt.data))
			require.Error(t, err)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	t.Parallel()

	for _, provider := range []string{ProviderCursor, ProviderClaudeCode, ProviderOpenCode} {
		_, err := Decode(provider, "", []byte(`{not json`))
		require.Error(t, err, provider)
	}
}
