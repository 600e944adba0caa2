package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/DocMind/internal/cli"
	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
