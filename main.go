package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cliprelay/cli/cmd"
)

func main() {
	// Ctrl-C cancels the in-flight call; the relay records the error phase.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
