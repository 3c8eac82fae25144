package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/whowrote/cli/cmd/whowrote/cli/logging"
	"github.com/whowrote/cli/cmd/whowrote/cli/rewrite"
)

// maxPulledCommits bounds how many pulled commits post-merge inspects for
// squash merges.
const maxPulledCommits = 50

// gitHookContext holds common state for git hook logging.
type gitHookContext struct {
	hookName string
	ctx      context.Context
	start    time.Time
}

// newGitHookContext creates a new git hook context with logging initialized.
func newGitHookContext(cmd *cobra.Command, hookName string) *gitHookContext {
	return &gitHookContext{
		hookName: hookName,
		start:    time.Now(),
		ctx:      logging.WithComponent(hookContext(cmd), "hooks"),
	}
}

// logInvoked logs that the hook was invoked.
func (g *gitHookContext) logInvoked(extraAttrs ...any) {
	attrs := []any{
		slog.String("hook", g.hookName),
		slog.String("hook_type", "git"),
	}
	logging.Debug(g.ctx, g.hookName+" hook invoked", append(attrs, extraAttrs...)...)
}

// logCompleted logs hook completion with duration at DEBUG level.
func (g *gitHookContext) logCompleted(err error, extraAttrs ...any) {
	attrs := []any{
		slog.String("hook", g.hookName),
		slog.String("hook_type", "git"),
		slog.Bool("success", err == nil),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logging.LogDuration(g.ctx, slog.LevelDebug, g.hookName+" hook completed", g.start, append(attrs, extraAttrs...)...)
}

// workspace opens the tracked repository for a hook. Untracked or disabled
// repositories yield nil so the hook returns quietly.
func (g *gitHookContext) workspace() *workspace {
	ws, err := openWorkspace(".")
	if err != nil {
		g.logCompleted(err)
		return nil
	}
	if !ws.settings.Enabled {
		g.logCompleted(nil, slog.Bool("disabled", true))
		return nil
	}
	return ws
}

func newHooksGitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "git",
		Short:  "Git hook handlers",
		Long:   "Commands called by git hooks. They never fail the git operation that triggered them.",
		Hidden: true, // Internal command, not for direct user use
	}

	cmd.AddCommand(newHooksGitPostCommitCmd())
	cmd.AddCommand(newHooksGitPostRewriteCmd())
	cmd.AddCommand(newHooksGitPostMergeCmd())
	cmd.AddCommand(newHooksGitPrePushCmd())

	return cmd
}

func newHooksGitPostCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post-commit",
		Short: "Handle post-commit git hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := newGitHookContext(cmd, "post-commit")
			g.logInvoked()

			ws := g.workspace()
			if ws == nil {
				return nil
			}
			info, err := ws.resolve("HEAD")
			if err != nil {
				g.logCompleted(err)
				return nil
			}
			if info.IsMerge() {
				g.logCompleted(nil, slog.String("skipped", rewrite.SkipMergeCommit))
				return nil
			}

			store, err := ws.openStore()
			if err != nil {
				g.logCompleted(err)
				return nil
			}
			defer store.Close()

			report, err := ws.processor(store).ProcessCommit(g.ctx, info.SHA)
			if err != nil {
				g.logCompleted(err)
				return nil
			}
			logging.Info(logging.WithCommit(g.ctx, info.SHA), "commit attributed",
				slog.Int("total_lines", report.TotalLines),
				slog.Int("unmatched_lines", report.UnmatchedLines),
				slog.Int("ranges", len(report.Ranges)),
				slog.Bool("note_written", report.NoteWritten))
			g.logCompleted(nil)
			return nil
		},
	}
}

func newHooksGitPostRewriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post-rewrite <amend|rebase>",
		Short: "Handle post-rewrite git hook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind string
			if len(args) > 0 {
				kind = args[0]
			}

			g := newGitHookContext(cmd, "post-rewrite")
			g.logInvoked(slog.String("kind", kind))

			// Drain stdin before anything can bail out so git is never left
			// writing into a closed pipe.
			rewrites := rewrite.ParsePostRewrite(cmd.InOrStdin())

			ws := g.workspace()
			if ws == nil {
				return nil
			}

			rec := ws.reconciler()
			written := 0
			for _, rw := range rewrites {
				info, err := ws.resolve(rw.New)
				if err != nil {
					logging.Debug(g.ctx, "rewritten commit not found", slog.String("commit", rw.New))
					continue
				}
				if info.IsMerge() {
					continue
				}
				out, err := rec.Reconcile(g.ctx, info.SHA, rw.Originals)
				if err != nil {
					logging.Debug(logging.WithCommit(g.ctx, info.SHA), "reconcile failed", slog.String("error", err.Error()))
					continue
				}
				if out.Written {
					written++
				}
			}
			g.logCompleted(nil,
				slog.String("kind", kind),
				slog.Int("rewrites", len(rewrites)),
				slog.Int("notes_written", written))
			return nil
		},
	}
}

func newHooksGitPostMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post-merge [is-squash]",
		Short: "Handle post-merge git hook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := newGitHookContext(cmd, "post-merge")
			g.logInvoked()

			ws := g.workspace()
			if ws == nil {
				return nil
			}

			shas := pulledCommits(g.ctx, ws)
			rec := ws.reconciler()
			written := 0
			for _, sha := range shas {
				info, err := ws.resolve(sha)
				if err != nil {
					continue
				}
				out, err := rec.ReconcileSquash(g.ctx, info, ws.settings.Remote, ws.commands)
				if err != nil {
					logging.Debug(logging.WithCommit(g.ctx, sha), "squash reconcile failed", slog.String("error", err.Error()))
					continue
				}
				if out.Written {
					written++
				}
			}
			g.logCompleted(nil, slog.Int("commits", len(shas)), slog.Int("notes_written", written))
			return nil
		},
	}
}

// pulledCommits lists the commits a merge or pull brought in, newest last.
// Without ORIG_HEAD only HEAD is considered.
func pulledCommits(ctx context.Context, ws *workspace) []string {
	head, err := ws.commands.RevParse(ctx, "HEAD")
	if err != nil {
		return nil
	}
	orig, err := ws.commands.RevParse(ctx, "ORIG_HEAD")
	if err != nil || orig == head {
		return []string{head}
	}
	shas, err := ws.commands.RevList(ctx, orig, head)
	if err != nil || len(shas) == 0 {
		return []string{head}
	}
	if len(shas) > maxPulledCommits {
		shas = shas[len(shas)-maxPulledCommits:]
	}
	return shas
}

func newHooksGitPrePushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pre-push <remote> [url]",
		Short: "Handle pre-push git hook",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote := args[0]

			g := newGitHookContext(cmd, "pre-push")
			g.logInvoked(slog.String("remote", remote))

			ws := g.workspace()
			if ws == nil {
				return nil
			}
			if !ws.settings.ShouldPushNotes() {
				g.logCompleted(nil, slog.Bool("push_disabled", true))
				return nil
			}

			ws.notes.Stderr = cmd.ErrOrStderr()
			ws.notes.Push(g.ctx, remote)
			g.logCompleted(nil, slog.String("remote", remote))
			return nil
		},
	}
}
