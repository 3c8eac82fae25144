package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show capture and attribution status for this repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cmd.OutOrStdout())
		},
	}
}

func runStatus(cmd *cobra.Command, w io.Writer) error {
	if _, err := paths.RepoRoot(); err != nil {
		fmt.Fprintln(w, "✕ not a git repository")
		return nil //nolint:nilerr // Not being in a git repo is a valid status, not an error
	}

	ws, err := openWorkspace(".")
	if errors.Is(err, paths.ErrNoDataDir) {
		fmt.Fprintln(w, "○ not set up (create a .whowrote directory at the repository root)")
		return nil
	}
	if err != nil {
		return err
	}

	if ws.settings.Enabled {
		fmt.Fprintln(w, "● enabled")
	} else {
		fmt.Fprintln(w, "○ disabled")
	}

	store, err := ws.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Pending edits:  %d\n", st.Pending)
	fmt.Fprintf(w, "Matched edits:  %d\n", st.Matched)
	fmt.Fprintf(w, "Captured lines: %d\n", st.Lines)
	if !st.Oldest.IsZero() {
		fmt.Fprintf(w, "Oldest pending: %s\n", st.Oldest.Local().Format("2006-01-02 15:04"))
	}

	count, err := ws.notes.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Attributed commits: %d (%s)\n", count, ws.notes.Ref())

	if head, err := ws.resolve("HEAD"); err == nil {
		if note, err := ws.notes.Read(cmd.Context(), head.SHA); err == nil {
			fmt.Fprintf(w, "HEAD %s: %d AI line(s) in %d range(s)\n", shortSHA(head.SHA), note.LineCount(), len(note.Attributions))
		} else {
			fmt.Fprintf(w, "HEAD %s: no attribution note\n", shortSHA(head.SHA))
		}
	}
	return nil
}
