// Package main is the entry point for zr, a polyglot task runner.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/zr/cmd/zr/commands"
	"go.trai.ch/zr/internal/app"
	"go.trai.ch/zr/internal/core/domain"
	_ "go.trai.ch/zr/internal/wiring"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitConfig  = 2
	exitSignal  = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return exitFailure
	}

	cli := commands.New(components)

	if err := cli.Execute(ctx); err != nil {
		return exitCodeFor(err, components)
	}
	return exitSuccess
}

// exitCodeFor maps an error returned from the CLI into the process exit
// code convention: 0 success, 1 any task failure, 2 configuration or graph
// error, 130 cancelled by signal.
func exitCodeFor(err error, components *app.Components) int {
	if errors.Is(err, context.Canceled) {
		return exitSignal
	}

	switch {
	case errors.Is(err, domain.ErrConfigNotFound),
		errors.Is(err, domain.ErrConfigReadFailed),
		errors.Is(err, domain.ErrConfigParseFailed),
		errors.Is(err, domain.ErrMissingDependency),
		errors.Is(err, domain.ErrCycleDetected),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrNoTargetsSpecified),
		errors.Is(err, domain.ErrReservedTaskName),
		errors.Is(err, domain.ErrInvalidTaskName),
		errors.Is(err, domain.ErrTaskAlreadyExists):
		components.Logger.Error(err)
		return exitConfig
	default:
		components.Logger.Error(err)
		return exitFailure
	}
}
