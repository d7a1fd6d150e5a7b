// Package main is the entry point for the newsloom CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/newsloom/newsloom/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(cli.Execute(ctx))
}
