// Package main is the entry point for the remoteq CLI tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/remoteq/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
