package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whowrote/cli/cmd/whowrote/cli/hashing"
	"github.com/whowrote/cli/cmd/whowrote/cli/pending"
)

var now = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

func TestNormalize_Cursor(t *testing.T) {
	t.Parallel()

	p := &CursorPayload{
		FilePath:       "/repo/a.go",
		Model:          "gpt-4o",
		ConversationID: "conv-1",
		Edits: []CursorEdit{
			{OldString: "func a() {}\n", NewString: "func a() {}\nfunc b() {}\n"},
			{OldString: "x := 1", NewString: ""},
			{OldString: "", NewString: "\n   \n"},
			{OldString: "old()", NewString: "brandNew()"},
		},
	}

	edits := Normalize(p, now)
	require.Len(t, edits, 2)

	first := edits[0]
	assert.Equal(t, ProviderCursor, first.Provider)
	assert.Equal(t, "gpt-4o", first.Model)
	assert.Equal(t, "conv-1", first.SessionID)
	assert.Equal(t, pending.EditModification, first.EditType)
	require.Len(t, first.Lines, 1)
	assert.Equal(t, "func b() {}", first.Lines[0].Content)
	assert.Equal(t, hashing.Hash("func b() {}"), first.Lines[0].Hash)
	assert.Equal(t, "func a() {}", first.Lines[0].ContextBefore)
	assert.Zero(t, first.Lines[0].LineNumber)

	assert.Equal(t, pending.EditReplacement, edits[1].EditType)
	assert.Equal(t, "brandNew()", edits[1].Content)
}

func TestNormalize_AppendAfterUnterminatedLastLine(t *testing.T) {
	t.Parallel()

	edits := Normalize(&CursorPayload{
		FilePath: "a.go",
		Edits: []CursorEdit{{
			OldString: "\treturn foo()\n}",
			NewString: "\treturn foo()\n}\n\nfunc bar() {}",
		}},
	}, now)
	require.Len(t, edits, 1)
	require.Len(t, edits[0].Lines, 1)
	assert.Equal(t, "func bar() {}", edits[0].Lines[0].Content)
	assert.Equal(t, "func bar() {}", edits[0].Content)
}

func TestLineDiff_TrailingNewlineDoesNotChangeResult(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ old, new string }{
		{"a\nb", "a\nb\nc"},
		{"a\nb\n", "a\nb\nc"},
		{"a\nb", "a\nb\nc\n"},
		{"a\nb\n", "a\nb\nc\n"},
	} {
		added := lineDiff(tc.old, tc.new)
		require.Len(t, added, 1, "%q -> %q", tc.old, tc.new)
		assert.Equal(t, "c", added[0].content)
		assert.Equal(t, 3, added[0].number)
	}
}

func TestNormalize_CursorAdditionAndUnknownModel(t *testing.T) {
	t.Parallel()

	edits := Normalize(&CursorPayload{
		FilePath: "a.go",
		Edits:    []CursorEdit{{NewString: "one\n\ntwo\n"}},
	}, now)
	require.Len(t, edits, 1)
	assert.Equal(t, UnknownModel, edits[0].Model)
	assert.Equal(t, pending.EditAddition, edits[0].EditType)
	assert.Equal(t, "one\ntwo", edits[0].Content)
	assert.Equal(t, hashing.Hash("one\ntwo"), edits[0].ContentHash)
	require.Len(t, edits[0].Lines, 2)
}

func TestNormalize_ClaudeCode(t *testing.T) {
	t.Parallel()

	p := &ClaudeCodePayload{SessionID: "s1", ToolUseID: "toolu_1"}
	p.ToolInput.FilePath = "/repo/main.go"
	p.ToolResponse.StructuredPatch = []PatchHunk{
		{
			OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 3,
			Lines: []string{" package main", "-var x = 1", "+var x = 2", "+var y = 3"},
		},
		{
			OldStart: 10, OldLines: 1, NewStart: 11, NewLines: 2,
			Lines: []string{" func main() {", "+", "-}"},
		},
	}

	edits := Normalize(p, now)
	require.Len(t, edits, 1, "hunk with only blank additions yields nothing")

	e := edits[0]
	assert.Equal(t, UnknownModel, e.Model)
	assert.Equal(t, "toolu_1", e.ToolUseID)
	assert.Equal(t, pending.EditReplacement, e.EditType)
	assert.Equal(t, "var x = 1", e.OldContent)
	require.Len(t, e.Lines, 2)
	assert.Equal(t, 2, e.Lines[0].LineNumber)
	assert.Equal(t, "package main", e.Lines[0].ContextBefore)
	assert.Equal(t, "var y = 3", e.Lines[0].ContextAfter)
	assert.Equal(t, 3, e.Lines[1].LineNumber)
}

func TestNormalize_ClaudeCodeModelFromTranscript(t *testing.T) {
	t.Parallel()

	transcript := filepath.Join(t.TempDir(), "session.jsonl")
	content := `{"type":"assistant","message":{"model":"claude-old"}}
{"type":"assistant","message":{"model":"claude-sonnet-4"}}
not json
{"type":"user","message":{"content":"thanks"}}
`
	require.NoError(t, os.WriteFile(transcript, []byte(content), 0o600))

	p := &ClaudeCodePayload{TranscriptPath: transcript}
	p.ToolInput.FilePath = "a.go"
	p.ToolResponse.StructuredPatch = []PatchHunk{{NewStart: 1, Lines: []string{"+hello"}}}

	edits := Normalize(p, now)
	require.Len(t, edits, 1)
	assert.Equal(t, "claude-sonnet-4", edits[0].Model)
	assert.Equal(t, pending.EditAddition, edits[0].EditType)
}

func TestTranscriptModel_Missing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UnknownModel, transcriptModel(""))
	assert.Equal(t, UnknownModel, transcriptModel(filepath.Join(t.TempDir(), "nope.jsonl")))
	assert.Equal(t, UnknownModel, modelFromTranscript([]byte(`{"type":"user"}`)))
}

func TestNormalize_OpenCode(t *testing.T) {
	t.Parallel()

	edits := Normalize(&OpenCodePayload{
		Event:    EventOpenCodeEdit,
		FilePath: "a.go",
		Before:   "a\nb\n",
		After:    "a\nx\nb\ny\n",
		Model:    "qwen",
	}, now)
	require.Len(t, edits, 1)
	e := edits[0]
	assert.Equal(t, "qwen", e.Model)
	assert.Equal(t, pending.EditModification, classify("a", "a\nx"))
	require.Len(t, e.Lines, 2)
	assert.Equal(t, "x", e.Lines[0].Content)
	assert.Equal(t, 2, e.Lines[0].LineNumber)
	assert.Equal(t, "y", e.Lines[1].Content)
	assert.Equal(t, 4, e.Lines[1].LineNumber)
}

func TestNormalize_OpenCodeNothingAdded(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Normalize(&OpenCodePayload{Event: "write", FilePath: "a.go", Before: "a\n", After: "a\n\n"}, now))
	assert.Empty(t, Normalize(&OpenCodePayload{Event: "write", FilePath: "a.go", Before: "a\n", After: ""}, now))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, pending.EditAddition, classify("", "x"))
	assert.Equal(t, pending.EditModification, classify("foo()", "if ok {\n\tfoo()\n}"))
	assert.Equal(t, pending.EditReplacement, classify("foo()", "bar()"))
}
