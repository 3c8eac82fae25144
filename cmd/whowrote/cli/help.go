package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// gitHookScripts maps each git hook to the command it should run.
var gitHookScripts = []struct{ hook, command string }{
	{"post-commit", "whowrote hooks git post-commit"},
	{"post-rewrite", `whowrote hooks git post-rewrite "$1"`},
	{"post-merge", `whowrote hooks git post-merge "$1"`},
	{"pre-push", `whowrote hooks git pre-push "$1" "$2"`},
}

// NewHelpCmd replaces cobra's help command. Hidden flags print the command
// tree (-t, with --hooks to include the hook handlers) and the git hook
// wiring (--wiring).
func NewHelpCmd(rootCmd *cobra.Command) *cobra.Command {
	var showTree, showHooks, showWiring bool

	helpCmd := &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Long: `Provides help for any whowrote subcommand.
Type '` + rootCmd.Name() + ` help [command]' for full details.`,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			switch {
			case showWiring:
				printHookWiring(w)
			case showTree:
				for _, line := range commandTree(rootCmd, showHooks) {
					fmt.Fprintln(w, line)
				}
			default:
				target, _, err := rootCmd.Find(args)
				if err != nil || target == nil {
					target = rootCmd
				}
				target.Help() //nolint:errcheck,gosec // Help() only fails on write errors to stdout
			}
		},
	}

	helpCmd.Flags().BoolVarP(&showTree, "tree", "t", false, "Show full command tree")
	helpCmd.Flags().BoolVar(&showHooks, "hooks", false, "Include hook handlers in the tree")
	helpCmd.Flags().BoolVar(&showWiring, "wiring", false, "Print the git hook scripts to install")
	for _, name := range []string{"tree", "hooks", "wiring"} {
		helpCmd.Flags().MarkHidden(name) //nolint:errcheck,gosec // flags are defined above
	}

	return helpCmd
}

// commandTree renders cmd and its subcommands as box-drawing lines.
// Hidden commands are listed only when withHidden is set, tagged "(hook)".
func commandTree(cmd *cobra.Command, withHidden bool) []string {
	lines := []string{cmd.Name()}
	var walk func(c *cobra.Command, indent string)
	walk = func(c *cobra.Command, indent string) {
		children := treeChildren(c, withHidden)
		for i, sub := range children {
			branch, next := "├── ", "│   "
			if i == len(children)-1 {
				branch, next = "└── ", "    "
			}
			var sb strings.Builder
			sb.WriteString(indent + branch + sub.Name())
			if sub.Hidden {
				sb.WriteString(" (hook)")
			}
			if sub.Short != "" {
				sb.WriteString(" - " + sub.Short)
			}
			lines = append(lines, sb.String())
			walk(sub, indent+next)
		}
	}
	walk(cmd, "")
	return lines
}

func treeChildren(cmd *cobra.Command, withHidden bool) []*cobra.Command {
	var out []*cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		if sub.Hidden && !withHidden {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func printHookWiring(w io.Writer) {
	fmt.Fprintln(w, "# Save each script under .git/hooks/<name> and make it executable.")
	for _, s := range gitHookScripts {
		fmt.Fprintf(w, "\n# .git/hooks/%s\n#!/bin/sh\n%s\n", s.hook, s.command)
	}
}
