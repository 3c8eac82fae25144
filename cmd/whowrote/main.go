package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/whowrote/cli/cmd/whowrote/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Cancel in-flight git and sqlite work on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		// Commands that already printed their failure return a SilentError
		var silent *cli.SilentError
		if !errors.As(err, &silent) {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}
