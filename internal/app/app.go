// Package app implements the application layer for zr.
package app

import (
	"context"
	"errors"

	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zr/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// RunOptions carries the CLI-facing run flags, translated one-to-one into
// scheduler.RunOptions by Run.
type RunOptions struct {
	Force    bool
	MaxJobs  int
	FailFast bool
	UseColor bool
	Quiet    bool
}

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
	logger       ports.Logger
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, sched *scheduler.Scheduler, log ports.Logger) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
		logger:       log,
	}
}

// Run loads the configuration from the current directory and executes the
// given target tasks through the scheduler.
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) (domain.ScheduleResult, error) {
	graph, err := a.configLoader.Load(".")
	if err != nil {
		return domain.ScheduleResult{}, zerr.Wrap(err, "failed to load configuration")
	}

	result, err := a.scheduler.Run(ctx, graph, targetNames, scheduler.RunOptions{
		MaxJobs:  opts.MaxJobs,
		Force:    opts.Force,
		FailFast: opts.FailFast,
		UseColor: opts.UseColor,
		Quiet:    opts.Quiet,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRunFailed) {
			return result, err
		}
		return result, zerr.Wrap(err, "build execution failed")
	}

	return result, nil
}
