package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/whowrote/cli/cmd/whowrote/cli/settings"
	"github.com/whowrote/cli/cmd/whowrote/cli/telemetry"
)

const gettingStarted = `

Getting Started:
  Create a .whowrote directory at the root of a git repository and point
  your editor's hooks at 'whowrote hooks capture <provider>' and your git
  hooks at 'whowrote hooks git <hook>'. Committed lines written by AI tools
  are then recorded as git notes under refs/notes/whowrote.

`

const accessibilityHelp = `
Environment Variables:
  ACCESSIBLE                  Set to any value (e.g., ACCESSIBLE=1) to use
                              plain text prompts instead of interactive TUI
                              elements, which works better with screen readers.
  WHOWROTE_LOG_LEVEL          Log level for .whowrote/logs (debug, info, warn, error).
  WHOWROTE_TELEMETRY_OPTOUT   Set to any value to disable usage telemetry.
`

// Version information (can be set at build time)
var (
	Version = "dev"
	Commit  = "unknown"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whowrote",
		Short: "Attribute committed lines to the AI tools that wrote them",
		Long:  "whowrote records AI tool edits and attaches line-level attribution to commits" + gettingStarted + accessibilityHelp,
		// Let main.go handle error printing to avoid duplication
		SilenceErrors: true,
		// Hide completion command from help but keep it functional
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			// nil telemetry preference means disabled
			var telemetryEnabled *bool
			repoEnabled := false
			if s, err := settings.Load(); err == nil {
				telemetryEnabled = s.Telemetry
				repoEnabled = s.Enabled
			}

			telemetryClient := telemetry.NewClient(Version, telemetryEnabled)
			defer telemetryClient.Close()
			telemetryClient.TrackCommand(cmd, repoEnabled)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newProcessCmd())
	cmd.AddCommand(newReconcileCmd())
	cmd.AddCommand(newNotesCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newHooksCmd())
	cmd.AddCommand(newVersionCmd())

	// Replace default help command with custom one that supports -t flag
	cmd.SetHelpCommand(NewHelpCmd(cmd))

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "whowrote %s (%s)\n", Version, Commit)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
