// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/zr/internal/core/domain"
)

// Executor defines the interface for running a single task's command to
// completion, including retry, timeout and resource-sampling policy.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the given task with the specified base environment
	// (typically os.Environ(), overlaid with the task's own Environment).
	//
	// It never returns an error for an ordinary failing exit code; that is
	// reported via ExecResult.Outcome/ExitCode. Cancellation of ctx is
	// likewise reported as OutcomeCancelled with a nil error. An error return
	// means the process could not be run at all (ErrSpawnFailed).
	Execute(ctx context.Context, task *domain.Task, env []string) (domain.ExecResult, error)
}
