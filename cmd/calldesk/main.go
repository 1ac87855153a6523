package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/calldesk/calldesk-cli/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
