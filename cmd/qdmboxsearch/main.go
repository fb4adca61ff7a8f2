package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jfdurocher/qdmboxsearch/cmd/qdmboxsearch/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	stop()

	// A scan torn down by Ctrl+C is an interrupt, not a failure;
	// exit with 128+SIGINT the way shells report it.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		os.Exit(130)
	}
	os.Exit(1)
}
