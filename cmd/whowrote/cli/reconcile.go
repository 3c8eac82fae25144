package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whowrote/cli/cmd/whowrote/cli/rewrite"
)

func newReconcileCmd() *cobra.Command {
	var fromPR bool

	cmd := &cobra.Command{
		Use:   "reconcile <new-rev> [<original-rev>...]",
		Short: "Carry attribution from original commits onto a rewritten commit",
		Long: `Rebuilds the attribution note of a commit created by squash or rebase from
the notes of the commits it replaced. With --from-pr the originals are the
commits of the pull request named in the commit subject, e.g. "Add parser (#42)",
fetched from the configured remote.

A commit that already has a note is never reconciled, and notes are never
merged. If an amend itself added AI lines, the post-commit hook attributes
the amended commit first and the attribution carried by the pre-amend commit
is not added to it; running this command again cannot recover it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !fromPR && len(args) < 2 {
				return errors.New("give at least one original revision, or use --from-pr")
			}

			ws, err := openWorkspace(".")
			if err != nil {
				return err
			}
			info, err := ws.resolve(args[0])
			if err != nil {
				return err
			}

			rec := ws.reconciler()
			var out *rewrite.Outcome
			if fromPR {
				out, err = rec.ReconcileSquash(cmd.Context(), info, ws.settings.Remote, ws.commands)
			} else {
				originals := make([]string, 0, len(args)-1)
				for _, rev := range args[1:] {
					o, err := ws.resolve(rev)
					if err != nil {
						return err
					}
					originals = append(originals, o.SHA)
				}
				if info.IsMerge() {
					out = &rewrite.Outcome{Commit: info.SHA, Skipped: rewrite.SkipMergeCommit}
				} else {
					out, err = rec.Reconcile(cmd.Context(), info.SHA, originals)
				}
			}
			if err != nil {
				return fmt.Errorf("reconciling %s: %w", shortSHA(info.SHA), err)
			}

			w := cmd.OutOrStdout()
			if out.Skipped != "" {
				fmt.Fprintf(w, "%s: skipped (%s)\n", shortSHA(out.Commit), out.Skipped)
				return nil
			}
			fmt.Fprintf(w, "%s: carried %d range(s) from %d original commit(s), %d not found\n",
				shortSHA(out.Commit), out.Carried, out.Originals, out.Lost)
			if out.Written {
				printRanges(w, out.Ranges)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromPR, "from-pr", false, "Take the original commits from the pull request named in the subject")

	return cmd
}
