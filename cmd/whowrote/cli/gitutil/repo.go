package gitutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// OpenRepository opens the repository containing dir, following worktree
// .git files to the common directory.
func OpenRepository(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	return repo, nil
}

// CommitInfo is the commit metadata the rewrite detector inspects.
type CommitInfo struct {
	SHA     string
	Message string
	Parents []string
}

// IsMerge reports whether the commit has more than one parent.
func (c CommitInfo) IsMerge() bool {
	return len(c.Parents) > 1
}

// Subject returns the first line of the commit message.
func (c CommitInfo) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(subject)
}

// HeadSHA returns the SHA HEAD points at.
func HeadSHA(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// Commit loads commit metadata for a revision (SHA, branch, HEAD~n, ...).
func Commit(repo *git.Repository, rev string) (CommitInfo, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return CommitInfo{}, fmt.Errorf("resolving %s: %w", rev, err)
	}
	c, err := repo.CommitObject(*hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("loading commit %s: %w", hash, err)
	}
	info := CommitInfo{SHA: c.Hash.String(), Message: c.Message}
	for _, p := range c.ParentHashes {
		info.Parents = append(info.Parents, p.String())
	}
	return info, nil
}

// ErrNoWorktreeRoot is returned for bare repositories.
var ErrNoWorktreeRoot = errors.New("repository has no worktree")

// WorktreeRoot returns the top-level directory of the repository's worktree.
func WorktreeRoot(repo *git.Repository) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return "", ErrNoWorktreeRoot
		}
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}
