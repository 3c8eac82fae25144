package capture

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/whowrote/cli/cmd/whowrote/cli/hashing"
	"github.com/whowrote/cli/cmd/whowrote/cli/pending"
)

// addedLine is a line present in the new text but not the old one.
type addedLine struct {
	content string
	// number is 1-indexed in the new text.
	number int
	before string
	after  string
}

// Normalize converts a payload into captured edits. FilePath is left as the
// provider reported it; Run resolves it against a repository. Payloads that
// add no non-blank lines yield no edits.
func Normalize(p Payload, now time.Time) []*pending.CapturedEdit {
	switch p := p.(type) {
	case *CursorPayload:
		return normalizeCursor(p, now)
	case *ClaudeCodePayload:
		return normalizeClaudeCode(p, now)
	case *OpenCodePayload:
		return normalizeOpenCode(p, now)
	}
	return nil
}

func normalizeCursor(p *CursorPayload, now time.Time) []*pending.CapturedEdit {
	model := firstNonEmpty(p.Model, UnknownModel)
	var out []*pending.CapturedEdit
	for _, e := range p.Edits {
		if e.NewString == "" {
			continue
		}
		added := lineDiff(e.OldString, e.NewString)
		// Positions are relative to new_string, not the file.
		for i := range added {
			added[i].number = 0
		}
		edit := buildEdit(ProviderCursor, model, p.FilePath, added, e.OldString, e.NewString, now)
		if edit == nil {
			continue
		}
		edit.SessionID = p.ConversationID
		out = append(out, edit)
	}
	return out
}

func normalizeClaudeCode(p *ClaudeCodePayload, now time.Time) []*pending.CapturedEdit {
	model := transcriptModel(p.TranscriptPath)
	var out []*pending.CapturedEdit
	for _, h := range p.ToolResponse.StructuredPatch {
		added, oldText, newText := patchLines(h)
		edit := buildEdit(ProviderClaudeCode, model, p.File(), added, oldText, newText, now)
		if edit == nil {
			continue
		}
		edit.SessionID = p.SessionID
		edit.ToolUseID = p.ToolUseID
		out = append(out, edit)
	}
	return out
}

func normalizeOpenCode(p *OpenCodePayload, now time.Time) []*pending.CapturedEdit {
	if p.After == "" {
		return nil
	}
	model := firstNonEmpty(p.Model, UnknownModel)
	edit := buildEdit(ProviderOpenCode, model, p.FilePath, lineDiff(p.Before, p.After), p.Before, p.After, now)
	if edit == nil {
		return nil
	}
	edit.SessionID = p.SessionID
	return []*pending.CapturedEdit{edit}
}

// lineDiff returns the lines inserted going from oldText to newText, with
// their position and neighbours in newText.
func lineDiff(oldText, newText string) []addedLine {
	newLines := hashing.Lines(newText)
	if oldText == "" {
		out := make([]addedLine, 0, len(newLines))
		for i, l := range newLines {
			out = append(out, withContext(newLines, i, l))
		}
		return out
	}

	// A last line without "\n" is a different token from the same line
	// with one, so both sides are terminated before diffing.
	dmp := diffmatchpatch.New()
	text1, text2, lineArray := dmp.DiffLinesToChars(terminated(oldText), terminated(newText))
	diffs := dmp.DiffMain(text1, text2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out []addedLine
	cursor := 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			cursor += len(hashing.Lines(d.Text))
		case diffmatchpatch.DiffInsert:
			for _, l := range hashing.Lines(d.Text) {
				out = append(out, withContext(newLines, cursor, l))
				cursor++
			}
		case diffmatchpatch.DiffDelete:
		}
	}
	return out
}

func terminated(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func withContext(lines []string, idx int, content string) addedLine {
	a := addedLine{content: content, number: idx + 1}
	if idx > 0 && idx-1 < len(lines) {
		a.before = lines[idx-1]
	}
	if idx+1 < len(lines) {
		a.after = lines[idx+1]
	}
	return a
}

// patchLines walks a structured-patch hunk. Added lines take the running
// new-file line number, which starts at NewStart and advances on added and
// context lines.
func patchLines(h PatchHunk) (added []addedLine, oldText, newText string) {
	var newSide, oldSide []string
	type pos struct{ idx, number int }
	var positions []pos

	number := h.NewStart
	for _, raw := range h.Lines {
		prefix, content := byte(' '), raw
		if raw != "" {
			prefix, content = raw[0], raw[1:]
		}
		switch prefix {
		case '+':
			positions = append(positions, pos{idx: len(newSide), number: number})
			newSide = append(newSide, content)
			number++
		case '-':
			oldSide = append(oldSide, content)
		case '\\':
		default:
			newSide = append(newSide, content)
			number++
		}
	}

	for _, p := range positions {
		a := withContext(newSide, p.idx, newSide[p.idx])
		a.number = p.number
		added = append(added, a)
	}
	var addedText []string
	for _, a := range added {
		addedText = append(addedText, a.content)
	}
	return added, strings.Join(oldSide, "\n"), strings.Join(addedText, "\n")
}

// classify decides how new text relates to the text it replaced.
func classify(oldText, newText string) pending.EditType {
	switch {
	case strings.TrimSpace(oldText) == "":
		return pending.EditAddition
	case strings.Contains(newText, oldText):
		return pending.EditModification
	default:
		return pending.EditReplacement
	}
}

// buildEdit hashes the non-blank added lines. Returns nil when there are none.
func buildEdit(provider, model, filePath string, added []addedLine, oldText, newText string, now time.Time) *pending.CapturedEdit {
	var lines []pending.CapturedLine
	var contents []string
	for _, a := range added {
		if hashing.IsBlank(a.content) {
			continue
		}
		lines = append(lines, pending.CapturedLine{
			Content:        a.content,
			Hash:           hashing.Hash(a.content),
			HashNormalized: hashing.NormalizedHash(a.content),
			LineNumber:     a.number,
			ContextBefore:  a.before,
			ContextAfter:   a.after,
		})
		contents = append(contents, a.content)
	}
	if len(lines) == 0 {
		return nil
	}
	content := strings.Join(contents, "\n")
	return &pending.CapturedEdit{
		Timestamp:             now,
		Provider:              provider,
		FilePath:              filePath,
		Model:                 model,
		Lines:                 lines,
		Content:               content,
		ContentHash:           hashing.Hash(content),
		ContentHashNormalized: hashing.NormalizedHash(content),
		EditType:              classify(oldText, newText),
		OldContent:            oldText,
		Status:                pending.StatusPending,
	}
}
