package rewrite

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/whowrote/cli/cmd/whowrote/cli/gitutil"
	"github.com/whowrote/cli/cmd/whowrote/cli/validation"
)

// prNumberPattern matches the "(#123)" suffix hosting services append to
// squash-merged commit subjects.
var prNumberPattern = regexp.MustCompile(`\(#(\d+)\)\s*$`)

// DetectSquash returns the pull request number a squash commit was created
// from. Merge commits never qualify.
func DetectSquash(info gitutil.CommitInfo) (int, bool) {
	if info.IsMerge() {
		return 0, false
	}
	m := prNumberPattern.FindStringSubmatch(info.Subject())
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Rewrite maps one rewritten commit to the commits it replaced, in the
// order git reported them.
type Rewrite struct {
	New       string
	Originals []string
}

// ParsePostRewrite reads the "<old-sha> <new-sha> [extra]" lines git feeds
// the post-rewrite hook. Squashed rebases map several old commits to one new
// commit; those are grouped. Malformed lines are skipped.
func ParsePostRewrite(r io.Reader) []Rewrite {
	var out []Rewrite
	index := make(map[string]int)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		oldSHA, newSHA := fields[0], fields[1]
		if validation.ValidateCommitSHA(oldSHA) != nil || validation.ValidateCommitSHA(newSHA) != nil {
			continue
		}
		i, ok := index[newSHA]
		if !ok {
			i = len(out)
			index[newSHA] = i
			out = append(out, Rewrite{New: newSHA})
		}
		out[i].Originals = append(out[i].Originals, oldSHA)
	}
	return out
}
