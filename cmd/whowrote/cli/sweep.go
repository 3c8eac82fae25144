package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNotATerminal = errors.New("refusing to prompt without a terminal; use --force")

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}

func newSweepCmd() *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired edits from the pending store",
		Long: `Deletes matched edits older than retention.matched_days (default 7) and
never-matched edits older than retention.unmatched_days (default 30).
This is the only way edits leave the pending store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace(".")
			if err != nil {
				return err
			}

			if !forceFlag {
				if !stdinIsTerminal() {
					return errNotATerminal
				}
				var confirmed bool
				form := NewAccessibleForm(
					huh.NewGroup(
						huh.NewConfirm().
							Title("Delete expired pending edits?").
							Description(fmt.Sprintf("Matched edits older than %d days and unmatched edits older than %d days.",
								ws.settings.Retention.MatchedDays, ws.settings.Retention.UnmatchedDays)).
							Value(&confirmed),
					),
				)
				if err := form.Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return fmt.Errorf("failed to get confirmation: %w", err)
				}
				if !confirmed {
					return nil
				}
			}

			store, err := ws.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.Sweep(cmd.Context(), time.Now(), ws.settings.MatchedRetention(), ws.settings.UnmatchedRetention())
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d edit(s), kept %d.\n", res.Removed, res.Kept)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Skip confirmation prompt")

	return cmd
}
