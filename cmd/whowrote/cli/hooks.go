package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/whowrote/cli/cmd/whowrote/cli/capture"
	"github.com/whowrote/cli/cmd/whowrote/cli/logging"
	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
	"github.com/whowrote/cli/cmd/whowrote/cli/settings"
)

func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hooks",
		Short:  "Hook handlers",
		Long:   "Commands called by editor and git hooks. These are internal and not for direct user use.",
		Hidden: true, // Internal command, not for direct user use
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			hookLogCleanup = initHookLogging()
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if hookLogCleanup != nil {
				hookLogCleanup()
			}
			return nil
		},
	}

	cmd.AddCommand(newHooksCaptureCmd())
	cmd.AddCommand(newHooksGitCmd())

	return cmd
}

// hookLogCleanup stores the cleanup function for hook logging.
// Set by PersistentPreRunE, called by PersistentPostRunE.
var hookLogCleanup func()

// initHookLogging points logging at the tracked repository containing the
// working directory, with a fresh run ID. Outside a tracked repository
// logging stays on the stderr fallback. Returns a cleanup function.
func initHookLogging() func() {
	root, err := paths.FindDataRoot(".")
	if err != nil {
		return func() {}
	}
	logging.SetLogLevelGetter(func() string {
		s, err := settings.LoadFrom(root)
		if err != nil {
			return ""
		}
		return s.LogLevel
	})
	if err := logging.InitAt(root, uuid.NewString()); err != nil {
		return func() {}
	}
	return logging.Close
}

func newHooksCaptureCmd() *cobra.Command {
	var event string

	cmd := &cobra.Command{
		Use:   "capture <provider>",
		Short: "Record an AI tool edit event read from stdin",
		Long: `Reads one edit event as JSON on stdin and records the lines it added.
Providers: cursor, claude-code, opencode. Always exits 0.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			ctx := logging.WithComponent(hookContext(cmd), "hooks")
			start := time.Now()

			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				logging.Debug(ctx, "reading capture payload failed", slog.String("error", err.Error()))
				return nil
			}
			wd, err := os.Getwd()
			if err != nil {
				wd = ""
			}

			res := capture.Run(ctx, capture.Request{
				Provider: provider,
				Event:    event,
				Payload:  data,
				Dir:      wd,
			})
			logging.LogDuration(ctx, slog.LevelDebug, "capture hook completed", start,
				slog.String("hook", "capture"),
				slog.String("provider", provider),
				slog.Bool("success", res.Err == nil),
				slog.Int("stored", res.Stored))
			return nil
		},
	}

	cmd.Flags().StringVar(&event, "event", "", "Event name, when the payload does not carry it")

	return cmd
}

func hookContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
