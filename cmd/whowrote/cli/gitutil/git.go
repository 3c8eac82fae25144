// Package gitutil wraps the git operations whowrote needs. Commands that
// write (notes, fetch, push) shell out to git with a timeout; reads go
// through go-git where it can answer without a subprocess.
package gitutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a git subprocess when the caller gives none.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when a git subprocess exceeds its deadline.
var ErrTimeout = errors.New("git command timed out")

// Runner executes git. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, stdin string, args ...string) (string, error)
}

// Git runs git commands inside one repository.
type Git struct {
	Dir     string
	Timeout time.Duration
}

// New returns a Git for dir with the given per-command timeout.
func New(dir string, timeout time.Duration) *Git {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Git{Dir: dir, Timeout: timeout}
}

// Run executes git with args, feeding stdin when non-empty. Hooks are never
// triggered from here, and stdin is detached otherwise so a hook context
// cannot hang waiting for input.
func (g *Git) Run(ctx context.Context, stdin string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("git %s: %w", firstArg(args), ErrTimeout)
	}
	if err != nil {
		return stdout.String(), fmt.Errorf("git %s: %w: %s", firstArg(args), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// Commands bundles the git invocations used by the pipeline.
type Commands struct {
	r Runner
}

// NewCommands wraps a runner.
func NewCommands(r Runner) *Commands {
	return &Commands{r: r}
}

// CommitDiff returns the patch of sha against its first parent with
// contextLines of context. Renames are reported as delete plus add so moved
// files are visible to move detection. Root commits diff against the empty
// tree.
func (c *Commands) CommitDiff(ctx context.Context, sha string, contextLines int) (string, error) {
	return c.r.Run(ctx, "", "show",
		"--format=",
		"--patch",
		"--first-parent",
		"--no-color",
		"--no-renames",
		"--no-ext-diff",
		"--src-prefix=a/",
		"--dst-prefix=b/",
		"-U"+strconv.Itoa(contextLines),
		sha)
}

// RevParse resolves a revision to a full SHA.
func (c *Commands) RevParse(ctx context.Context, rev string) (string, error) {
	out, err := c.r.Run(ctx, "", "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RevList returns the non-merge commits reachable from head but not from
// base, oldest first.
func (c *Commands) RevList(ctx context.Context, base, head string) ([]string, error) {
	out, err := c.r.Run(ctx, "", "rev-list", "--reverse", "--no-merges", base+".."+head)
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

// FetchPullHead fetches a pull request's head from remote and returns its SHA.
func (c *Commands) FetchPullHead(ctx context.Context, remote string, pr int) (string, error) {
	ref := "refs/pull/" + strconv.Itoa(pr) + "/head"
	if _, err := c.r.Run(ctx, "", "fetch", "--no-tags", "--quiet", remote, ref); err != nil {
		return "", err
	}
	return c.RevParse(ctx, "FETCH_HEAD")
}
