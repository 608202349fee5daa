// Package cmd is the process entry point of the overviews binary.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/jupyter/overviews/internal/adapters/in/cli"
	"github.com/jupyter/overviews/internal/domain"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInvalidArgs = 2
)

// ExecuteCLI runs the command line and exits the process.
func ExecuteCLI(version, commit, date string) {
	if version != "" {
		cli.SetVersionInfo(version, commit, date)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()

	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, domain.ErrInvalidConfig) || errors.Is(err, domain.ErrUnsupportedEvent) {
		return exitInvalidArgs
	}
	return exitFailure
}
