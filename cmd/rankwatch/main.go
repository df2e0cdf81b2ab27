// Command rankwatch brings a local FIFA world ranking dataset up to date with
// the ranking dates published on transfermarkt.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSnapshotsFailed) {
			fmt.Fprintln(os.Stderr, "rankwatch:", err)
		}
		stop()
		os.Exit(1)
	}
}
