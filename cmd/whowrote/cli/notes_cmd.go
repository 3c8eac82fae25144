package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whowrote/cli/cmd/whowrote/cli/notes"
)

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Inspect and sync attribution notes",
	}

	cmd.AddCommand(newNotesShowCmd())
	cmd.AddCommand(newNotesPushCmd())
	cmd.AddCommand(newNotesFetchCmd())

	return cmd
}

func newNotesShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [rev]",
		Short: "Show the attribution note of a commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := "HEAD"
			if len(args) > 0 {
				rev = args[0]
			}

			ws, err := openWorkspace(".")
			if err != nil {
				return err
			}
			info, err := ws.resolve(rev)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			note, err := ws.notes.Read(cmd.Context(), info.SHA)
			if errors.Is(err, notes.ErrNoNote) {
				fmt.Fprintf(w, "No attribution note on %s.\n", shortSHA(info.SHA))
				return nil
			}
			if err != nil {
				return err
			}

			if asJSON {
				raw, err := ws.notes.Raw(info.SHA)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(raw))
				return nil
			}

			fmt.Fprintf(w, "%s  %s  %d line(s) attributed\n",
				shortSHA(info.SHA), note.Timestamp.Format("2006-01-02 15:04:05Z07:00"), note.LineCount())
			printRanges(w, note.Attributions)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw note document")

	return cmd
}

func newNotesPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [remote]",
		Short: "Push the attribution notes ref",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(".")
			if err != nil {
				return err
			}
			remote := ws.settings.Remote
			if len(args) > 0 {
				remote = args[0]
			}
			ws.notes.Stderr = cmd.ErrOrStderr()
			ws.notes.Push(cmd.Context(), remote)
			return nil
		},
	}
}

func newNotesFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [remote]",
		Short: "Fetch and merge the attribution notes ref",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(".")
			if err != nil {
				return err
			}
			remote := ws.settings.Remote
			if len(args) > 0 {
				remote = args[0]
			}
			ws.notes.Stderr = cmd.ErrOrStderr()
			if err := ws.notes.Fetch(cmd.Context(), remote); err != nil {
				// Fetch already printed the warning.
				return NewSilentError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %s from %s.\n", ws.notes.Ref(), remote)
			return nil
		},
	}
}
