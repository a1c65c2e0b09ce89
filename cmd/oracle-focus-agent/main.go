package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pileus-cloud/agent-oci-to-umbrella/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(cmd.Execute(ctx))
}
