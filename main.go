// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/stepwright/stepwright/cmd"
)

// main is the entry point for the stepwright CLI.
func main() {
	// Listen for interrupt signals so an in-flight run can tear the browser
	// session down cleanly before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
