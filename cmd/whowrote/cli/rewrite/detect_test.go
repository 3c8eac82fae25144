package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whowrote/cli/cmd/whowrote/cli/gitutil"
)

func TestDetectSquash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		info   gitutil.CommitInfo
		want   int
		wantOK bool
	}{
		{"pr suffix", gitutil.CommitInfo{Message: "Add parser (#123)\n\nbody", Parents: []string{"p"}}, 123, true},
		{"no suffix", gitutil.CommitInfo{Message: "Add parser", Parents: []string{"p"}}, 0, false},
		{"number mid subject", gitutil.CommitInfo{Message: "Fix (#12) regression", Parents: []string{"p"}}, 0, false},
		{"merge commit", gitutil.CommitInfo{Message: "Merge pull request (#5)", Parents: []string{"a", "b"}}, 0, false},
		{"suffix only in body", gitutil.CommitInfo{Message: "Subject\n\n(#9)", Parents: []string{"p"}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := DetectSquash(tt.info)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePostRewrite(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"aaaa111 bbbb222",
		"cccc333 bbbb222 extra",
		"dddd444 eeee555",
		"garbage",
		"not-a-sha ffff666",
		"",
	}, "\n")

	got := ParsePostRewrite(strings.NewReader(input))
	assert.Equal(t, []Rewrite{
		{New: "bbbb222", Originals: []string{"aaaa111", "cccc333"}},
		{New: "eeee555", Originals: []string{"dddd444"}},
	}, got)
}
