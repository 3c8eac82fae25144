package diffparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whowrote/cli/cmd/whowrote/cli/hashing"
)

const zeroContextDiff = `diff --git a/src/app.go b/src/app.go
index 1111111..2222222 100644
--- a/src/app.go
+++ b/src/app.go
@@ -3,0 +4,2 @@ func main() {
+	x := compute()
+	fmt.Println(x)
@@ -10,2 +11,0 @@ func helper() {
-	old := 1
-	_ = old
@@ -20 +19,3 @@ func other() {
-	return nil
+	if err != nil {
+		return err
+	}
diff --git a/README.md b/README.md
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/README.md
@@ -0,0 +1,2 @@
+# Title
+
`

func TestParse_ZeroContext(t *testing.T) {
	t.Parallel()

	d, err := Parse(zeroContextDiff)
	require.NoError(t, err)
	require.Len(t, d.Hunks, 3)

	h := d.Hunks[0]
	assert.Equal(t, "src/app.go", h.Path)
	assert.Equal(t, 4, h.StartLine)
	assert.Equal(t, 5, h.EndLine)
	assert.Equal(t, "\tx := compute()\n\tfmt.Println(x)", h.Content)
	assert.Equal(t, hashing.Hash(h.Content), h.ContentHash)
	assert.Equal(t, hashing.NormalizedHash(h.Content), h.ContentHashNormalized)
	require.Len(t, h.Lines, 2)
	assert.Equal(t, 5, h.Lines[1].LineNumber)
	assert.Equal(t, hashing.Hash("\tfmt.Println(x)"), h.Lines[1].Hash)

	h = d.Hunks[1]
	assert.Equal(t, 19, h.StartLine)
	assert.Equal(t, 21, h.EndLine)

	h = d.Hunks[2]
	assert.Equal(t, "README.md", h.Path)
	assert.Equal(t, 1, h.StartLine)
	assert.Equal(t, 2, h.EndLine)
	require.Len(t, h.Lines, 2)
	assert.Equal(t, "", h.Lines[1].Content, "blank added lines stay in the hunk")

	require.Len(t, d.Deleted, 2)
	assert.Equal(t, DeletedBlock{Path: "src/app.go", StartLine: 10, Lines: []string{"\told := 1", "\t_ = old"}}, d.Deleted[0])
	assert.Equal(t, DeletedBlock{Path: "src/app.go", StartLine: 20, Lines: []string{"\treturn nil"}}, d.Deleted[1])

	assert.Equal(t, 7, d.AddedLineCount())
	assert.Len(t, d.HunksForPath("src/app.go"), 2)
}

func TestParse_ContextLinesAdvanceBothCounters(t *testing.T) {
	t.Parallel()

	diff := `diff --git a/a.py b/a.py
--- a/a.py
+++ b/a.py
@@ -1,6 +1,7 @@
 import os
-import sys
+import re
+import json
 
 def f():
-    pass
+    return 1
 # end
`
	d, err := Parse(diff)
	require.NoError(t, err)

	require.Len(t, d.Hunks, 2)
	assert.Equal(t, 2, d.Hunks[0].StartLine)
	assert.Equal(t, 3, d.Hunks[0].EndLine)
	assert.Equal(t, 6, d.Hunks[1].StartLine)
	assert.Equal(t, "    return 1", d.Hunks[1].Content)

	require.Len(t, d.Deleted, 2)
	assert.Equal(t, 2, d.Deleted[0].StartLine)
	assert.Equal(t, 5, d.Deleted[1].StartLine)
}

func TestParse_DeletedLineThatLooksLikeHeader(t *testing.T) {
	t.Parallel()

	// An SQL comment line "-- x" shows up as "--- x" when deleted.
	diff := `diff --git a/q.sql b/q.sql
--- a/q.sql
+++ b/q.sql
@@ -1,2 +1 @@
--- comment
-SELECT 1;
+SELECT 2;
`
	d, err := Parse(diff)
	require.NoError(t, err)

	require.Len(t, d.Deleted, 1)
	assert.Equal(t, []string{"-- comment", "SELECT 1;"}, d.Deleted[0].Lines)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, "q.sql", d.Hunks[0].Path)
	assert.Equal(t, 1, d.Hunks[0].StartLine)
}

func TestParse_DeletedFile(t *testing.T) {
	t.Parallel()

	diff := `diff --git a/old.go b/old.go
deleted file mode 100644
--- a/old.go
+++ /dev/null
@@ -1,3 +0,0 @@
-a
-b
-c
`
	d, err := Parse(diff)
	require.NoError(t, err)
	assert.Empty(t, d.Hunks)
	require.Len(t, d.Deleted, 1)
	assert.Equal(t, "old.go", d.Deleted[0].Path)
	assert.Equal(t, 1, d.Deleted[0].StartLine)
}

func TestParse_NoNewlineMarker(t *testing.T) {
	t.Parallel()

	diff := `diff --git a/x b/x
--- a/x
+++ b/x
@@ -1 +1 @@
-old
\ No newline at end of file
+new
\ No newline at end of file
`
	d, err := Parse(diff)
	require.NoError(t, err)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, "new", d.Hunks[0].Content)
	require.Len(t, d.Deleted, 1)
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	d, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, d.Hunks)
	assert.Empty(t, d.Deleted)
}

func TestParse_QuotedNonASCIIPath(t *testing.T) {
	t.Parallel()

	diff := `diff --git "a/caf\303\251.go" "b/caf\303\251.go"
index 1111111..2222222 100644
--- "a/caf\303\251.go"
+++ "b/caf\303\251.go"
@@ -2 +2,2 @@
-x := 1
+x := 2
+y := 3
`
	d, err := Parse(diff)
	require.NoError(t, err)

	require.Len(t, d.Hunks, 1)
	assert.Equal(t, "café.go", d.Hunks[0].Path)
	assert.Equal(t, 2, d.Hunks[0].StartLine)
	assert.Equal(t, 3, d.Hunks[0].EndLine)
	require.Len(t, d.Deleted, 1)
	assert.Equal(t, "café.go", d.Deleted[0].Path)
}

func TestParse_BinaryFileIgnored(t *testing.T) {
	t.Parallel()

	diff := `diff --git a/logo.png b/logo.png
index 1111111..2222222 100644
Binary files a/logo.png and b/logo.png differ
`
	d, err := Parse(diff)
	require.NoError(t, err)
	assert.Empty(t, d.Hunks)
	assert.Empty(t, d.Deleted)
}
