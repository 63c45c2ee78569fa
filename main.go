package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bgdnvk/clanker/cmd"
)

// main wires a single cancellable context through the whole run — an
// interrupt or SIGTERM propagates to every in-flight fanout task
// cooperatively (spec.md §5), rather than killing the process mid-API-call.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[clanker] %v\n", err)
		os.Exit(1)
	}
}
