package attribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiffs struct {
	byContext map[int]string
	err       error
}

func (f *fakeDiffs) CommitDiff(_ context.Context, _ string, contextLines int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.byContext[contextLines], nil
}

type fakeNotes struct {
	written map[string]*Note
	err     error
}

func (f *fakeNotes) Write(_ context.Context, sha string, note *Note) error {
	if f.err != nil {
		return f.err
	}
	if f.written == nil {
		f.written = make(map[string]*Note)
	}
	f.written[sha] = note
	return nil
}

const processorDiff = `diff --git a/svc/handler.go b/svc/handler.go
--- a/svc/handler.go
+++ b/svc/handler.go
@@ -4,0 +5,4 @@
+func Handle() error {
+	return process()
+}
+// written by hand
`

func TestProcessCommit_WritesMergedNote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)
	storeEdit(t, s, "cursor", "gpt-4o", "svc/handler.go", time.Now(),
		"func Handle() error {", "\treturn process()", "}")

	notes := &fakeNotes{}
	p := NewProcessor(s, &fakeDiffs{byContext: map[int]string{0: processorDiff, 3: processorDiff}}, notes, true)

	report, err := p.ProcessCommit(ctx, "deadbeef")
	require.NoError(t, err)
	assert.True(t, report.NoteWritten)
	assert.Equal(t, 4, report.TotalLines)
	assert.Equal(t, 1, report.UnmatchedLines)

	note := notes.written["deadbeef"]
	require.NotNil(t, note)
	assert.Equal(t, NoteVersion, note.Version)
	require.Len(t, note.Attributions, 1)
	r := note.Attributions[0]
	assert.Equal(t, "svc/handler.go", r.Path)
	assert.Equal(t, 5, r.StartLine)
	assert.Equal(t, 7, r.EndLine)
	assert.Equal(t, "gpt-4o", r.Model)

	// Reprocessing finds nothing new and leaves the note alone.
	notes.written = nil
	again, err := p.ProcessCommit(ctx, "deadbeef")
	require.NoError(t, err)
	assert.False(t, again.NoteWritten)
	assert.Empty(t, again.Ranges)
	assert.Nil(t, notes.written)
}

func TestProcessCommit_DiffErrorPropagates(t *testing.T) {
	t.Parallel()
	s := openStore(t)

	p := NewProcessor(s, &fakeDiffs{err: errors.New("timeout")}, &fakeNotes{}, true)
	_, err := p.ProcessCommit(context.Background(), "deadbeef")
	require.Error(t, err)
}

func TestProcessCommit_NoteWriteError(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	storeEdit(t, s, "cursor", "m", "svc/handler.go", time.Now(), "}")

	p := NewProcessor(s, &fakeDiffs{byContext: map[int]string{0: processorDiff}}, &fakeNotes{err: errors.New("locked")}, false)
	report, err := p.ProcessCommit(context.Background(), "deadbeef")
	require.Error(t, err)
	require.NotNil(t, report)
	assert.False(t, report.NoteWritten)
}
