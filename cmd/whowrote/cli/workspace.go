package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/whowrote/cli/cmd/whowrote/cli/attribution"
	"github.com/whowrote/cli/cmd/whowrote/cli/gitutil"
	"github.com/whowrote/cli/cmd/whowrote/cli/notes"
	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
	"github.com/whowrote/cli/cmd/whowrote/cli/pending"
	"github.com/whowrote/cli/cmd/whowrote/cli/rewrite"
	"github.com/whowrote/cli/cmd/whowrote/cli/settings"
)

// workspace is everything a command needs for one tracked repository.
type workspace struct {
	root     string
	settings *settings.Settings
	repo     *git.Repository
	git      *gitutil.Git
	commands *gitutil.Commands
	notes    *notes.Repository
}

// openWorkspace opens the repository containing dir. It fails with
// paths.ErrNoDataDir when the repository has no .whowrote directory.
func openWorkspace(dir string) (*workspace, error) {
	repo, err := gitutil.OpenRepository(dir)
	if err != nil {
		return nil, err
	}
	root, err := gitutil.WorktreeRoot(repo)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(filepath.Join(root, paths.DataDir)); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w in %s", paths.ErrNoDataDir, root)
	}

	s, err := settings.LoadFrom(root)
	if err != nil {
		return nil, err
	}

	g := gitutil.New(root, s.GitTimeout())
	return &workspace{
		root:     root,
		settings: s,
		repo:     repo,
		git:      g,
		commands: gitutil.NewCommands(g),
		notes:    notes.New(repo, g, s.NotesRef),
	}, nil
}

func (w *workspace) openStore() (*pending.Store, error) {
	return pending.OpenForRepo(w.root)
}

func (w *workspace) processor(store *pending.Store) *attribution.Processor {
	return attribution.NewProcessor(store, w.commands, w.notes, w.settings.MoveDetectionEnabled())
}

func (w *workspace) reconciler() *rewrite.Reconciler {
	return rewrite.NewReconciler(w.commands, w.notes)
}

// resolve turns a revision into a full commit SHA.
func (w *workspace) resolve(rev string) (gitutil.CommitInfo, error) {
	info, err := gitutil.Commit(w.repo, rev)
	if err != nil {
		return gitutil.CommitInfo{}, fmt.Errorf("unknown revision %q: %w", rev, err)
	}
	return info, nil
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
