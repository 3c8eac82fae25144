package pending

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whowrote/cli/cmd/whowrote/cli/hashing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".whowrote", "pending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newEdit(provider, filePath string, ts time.Time, lines ...string) *CapturedEdit {
	e := &CapturedEdit{
		Timestamp: ts,
		Provider:  provider,
		FilePath:  filePath,
		Model:     "test-model",
		EditType:  EditAddition,
	}
	for i, l := range lines {
		e.Lines = append(e.Lines, CapturedLine{
			Content:        l,
			Hash:           hashing.Hash(l),
			HashNormalized: hashing.NormalizedHash(l),
			LineNumber:     i + 1,
		})
	}
	content := ""
	for i, l := range lines {
		if i > 0 {
			content += "\n"
		}
		content += l
	}
	e.Content = content
	e.ContentHash = hashing.Hash(content)
	e.ContentHashNormalized = hashing.NormalizedHash(content)
	return e
}

func TestOpen_AppliesMigrations(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	// Reopening an up-to-date database is a no-op.
	s2, err := Open(s.Path())
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestInsertEdit_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	e := newEdit("cursor", "src/a.go", time.UnixMilli(1_700_000_000_000), "x := 1", "return x")
	e.SessionID = "conv-1"
	id, err := s.InsertEdit(ctx, e)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.Edit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cursor", got.Provider)
	assert.Equal(t, "src/a.go", got.FilePath)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "conv-1", got.SessionID)
	assert.Empty(t, got.ToolUseID)
	assert.Equal(t, e.Timestamp, got.Timestamp)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "return x", got.Lines[1].Content)
	assert.Equal(t, 2, got.Lines[1].LineNumber)
}

func TestInsertEdit_RejectsEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.InsertEdit(context.Background(), &CapturedEdit{Provider: "cursor", FilePath: "a.go"})
	require.Error(t, err)

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Pending)
}

func TestFindByExactHash_RanksSamePathThenBasenameThenNewest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)
	base := time.UnixMilli(1_700_000_000_000)

	other, err := s.InsertEdit(ctx, newEdit("cursor", "lib/other.go", base.Add(3*time.Minute), "shared()"))
	require.NoError(t, err)
	sameName, err := s.InsertEdit(ctx, newEdit("opencode", "pkg/util.go", base.Add(2*time.Minute), "shared()"))
	require.NoError(t, err)
	samePathOld, err := s.InsertEdit(ctx, newEdit("claude-code", "src/util.go", base, "shared()"))
	require.NoError(t, err)
	samePathNew, err := s.InsertEdit(ctx, newEdit("claude-code", "src/util.go", base.Add(time.Minute), "shared()"))
	require.NoError(t, err)

	got, err := s.FindByExactHash(ctx, hashing.Hash("shared()"), "src/util.go")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []int64{samePathNew, samePathOld, sameName, other},
		[]int64{got[0].EditID, got[1].EditID, got[2].EditID, got[3].EditID})
}

func TestFindByExactHash_OneCandidatePerEdit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.InsertEdit(ctx, newEdit("cursor", "a.go", time.Now(), "}", "}", "}"))
	require.NoError(t, err)

	got, err := s.FindByExactHash(ctx, hashing.Hash("}"), "a.go")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFindByNormalizedHash(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.InsertEdit(ctx, newEdit("cursor", "a.go", time.Now(), "if x {"))
	require.NoError(t, err)

	exact, err := s.FindByExactHash(ctx, hashing.Hash("\tif x {"), "a.go")
	require.NoError(t, err)
	assert.Empty(t, exact)

	norm, err := s.FindByNormalizedHash(ctx, hashing.NormalizedHash("\tif x {"), "a.go")
	require.NoError(t, err)
	require.Len(t, norm, 1)
	assert.Equal(t, "cursor", norm[0].Provider)
}

func TestMarkMatched_ExcludesFromLookupsAndIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.InsertEdit(ctx, newEdit("cursor", "a.go", time.Now(), "foo()"))
	require.NoError(t, err)

	first := time.UnixMilli(1_700_000_100_000)
	require.NoError(t, s.MarkMatched(ctx, []int64{id}, "abc123", first))
	require.NoError(t, s.MarkMatched(ctx, []int64{id}, "def456", first.Add(time.Hour)))

	got, err := s.FindByExactHash(ctx, hashing.Hash("foo()"), "a.go")
	require.NoError(t, err)
	assert.Empty(t, got)

	e, err := s.Edit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, e.Status)
	assert.Equal(t, "abc123", e.MatchedCommit)
	assert.Equal(t, first, e.MatchedAt)

	// Matched edits still count as history for move detection.
	hist, err := s.FindAnyEditForFile(ctx, "a.go")
	require.NoError(t, err)
	require.NotNil(t, hist)
	assert.Equal(t, id, hist.EditID)
}

func TestFindAnyEditForFile_None(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	got, err := s.FindAnyEditForFile(context.Background(), "missing.go")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)
	now := time.UnixMilli(1_800_000_000_000)
	day := 24 * time.Hour

	oldPending, err := s.InsertEdit(ctx, newEdit("cursor", "a.go", now.Add(-31*day), "a()"))
	require.NoError(t, err)
	_, err = s.InsertEdit(ctx, newEdit("cursor", "a.go", now.Add(-29*day), "b()"))
	require.NoError(t, err)
	oldMatched, err := s.InsertEdit(ctx, newEdit("cursor", "a.go", now.Add(-10*day), "c()"))
	require.NoError(t, err)
	recentMatched, err := s.InsertEdit(ctx, newEdit("cursor", "a.go", now.Add(-10*day), "d()"))
	require.NoError(t, err)

	require.NoError(t, s.MarkMatched(ctx, []int64{oldMatched}, "sha1", now.Add(-8*day)))
	require.NoError(t, s.MarkMatched(ctx, []int64{recentMatched}, "sha2", now.Add(-6*day)))

	res, err := s.Sweep(ctx, now, 7*day, 30*day)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Removed: 2, Kept: 2}, res)

	_, err = s.Edit(ctx, oldPending)
	require.Error(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.Matched)
	assert.Equal(t, 2, st.Lines, "lines of swept edits are removed with them")
}
