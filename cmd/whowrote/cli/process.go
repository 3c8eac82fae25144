package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/whowrote/cli/cmd/whowrote/cli/attribution"
)

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process [rev]",
		Short: "Attribute a commit's added lines to captured AI edits",
		Long: `Matches the lines a commit added against pending AI edits and writes the
attribution note. Runs automatically from the post-commit hook; running it
again on the same commit is safe, though edits consumed by the first run do
not match twice.`,
		Args: cobra.MaximumNArgs(1),
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
			if info.IsMerge() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is a merge commit; nothing to attribute.\n", shortSHA(info.SHA))
				return nil
			}

			store, err := ws.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := ws.processor(store).ProcessCommit(cmd.Context(), info.SHA)
			if err != nil {
				return fmt.Errorf("processing %s: %w", shortSHA(info.SHA), err)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printReport(w io.Writer, r *attribution.Report) {
	attributed := r.TotalLines - r.UnmatchedLines
	fmt.Fprintf(w, "%s: %d of %d added lines attributed", shortSHA(r.Commit), attributed, r.TotalLines)
	if len(r.Ranges) > 0 {
		fmt.Fprintf(w, " in %d range(s)", len(r.Ranges))
	}
	fmt.Fprintln(w)
	if !r.NoteWritten {
		fmt.Fprintln(w, "No note written.")
		return
	}
	printRanges(w, r.Ranges)
}

func printRanges(w io.Writer, ranges []attribution.RangeAttribution) {
	for _, ra := range ranges {
		model := ra.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "  %s:%d-%d  %s/%s  %s (%.2f)\n",
			ra.Path, ra.StartLine, ra.EndLine, ra.Provider, model, ra.MatchType, ra.Confidence)
	}
}
