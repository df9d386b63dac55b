package shell

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zr/internal/core/domain"
)

type discardLogger struct{}

func (discardLogger) Info(string)  {}
func (discardLogger) Debug(string) {}
func (discardLogger) Warn(string)  {}
func (discardLogger) Error(error)  {}

func TestExecutor_Execute_Success(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{
		Name:    domain.NewInternedString("ok"),
		Command: []string{"sh", "-c", "echo hello"},
	}

	res, err := executor.Execute(context.Background(), task, os.Environ())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, 1, res.Attempts)
}

func TestExecutor_Execute_FailureExitCode(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{
		Name:    domain.NewInternedString("fail"),
		Command: []string{"sh", "-c", "exit 7"},
	}

	res, err := executor.Execute(context.Background(), task, os.Environ())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeFailed, res.Outcome)
	require.Equal(t, 7, res.ExitCode)
}

func TestExecutor_Execute_EmptyCommand(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{Name: domain.NewInternedString("empty"), Command: []string{}}

	res, err := executor.Execute(context.Background(), task, nil)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
}

func TestExecutor_Execute_RetriesUntilSuccess(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	marker := t.TempDir() + "/attempts"
	task := &domain.Task{
		Name: domain.NewInternedString("retry"),
		Command: []string{"sh", "-c",
			`n=$(cat ` + marker + ` 2>/dev/null || echo 0); n=$((n+1)); echo $n > ` + marker + `; [ "$n" -ge 3 ] && exit 0; exit 1`},
		Retry: domain.RetryPolicy{MaxAttempts: 5, BackoffMS: 10, Strategy: domain.BackoffFixed},
	}

	res, err := executor.Execute(context.Background(), task, os.Environ())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.Equal(t, 3, res.Attempts)
}

func TestExecutor_Execute_RetryExhausted(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{
		Name:    domain.NewInternedString("always-fails"),
		Command: []string{"sh", "-c", "exit 1"},
		Retry:   domain.RetryPolicy{MaxAttempts: 2, BackoffMS: 1, Strategy: domain.BackoffFixed},
	}

	res, err := executor.Execute(context.Background(), task, os.Environ())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeFailed, res.Outcome)
	require.Equal(t, 2, res.Attempts)
}

func TestExecutor_Execute_RetryNotEligibleForExitCode(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{
		Name:    domain.NewInternedString("no-retry-on-this-code"),
		Command: []string{"sh", "-c", "exit 9"},
		Retry:   domain.RetryPolicy{MaxAttempts: 5, BackoffMS: 1, OnExitCodes: []int{1, 2}},
	}

	res, err := executor.Execute(context.Background(), task, os.Environ())
	require.NoError(t, err)
	require.Equal(t, 1, res.Attempts)
	require.Equal(t, 9, res.ExitCode)
}

func TestExecutor_Execute_Timeout(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{
		Name:      domain.NewInternedString("slow"),
		Command:   []string{"sh", "-c", "sleep 5"},
		TimeoutMS: 100,
	}

	res, err := executor.Execute(context.Background(), task, os.Environ())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeTimedOut, res.Outcome)
	require.Less(t, res.Duration, 4*time.Second)
}

func TestExecutor_Execute_PipeStdioCapturesTail(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{
		Name:    domain.NewInternedString("piped"),
		Command: []string{"sh", "-c", "echo out-line; echo err-line >&2"},
		Stdio:   domain.StdioPipe,
	}

	res, err := executor.Execute(context.Background(), task, os.Environ())
	require.NoError(t, err)
	require.Contains(t, res.StdoutTail, "out-line")
	require.Contains(t, res.StderrTail, "err-line")
}

func TestExecutor_Execute_CleanEnvDropsInherited(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{
		Name:      domain.NewInternedString("clean"),
		Command:   []string{"sh", "-c", `[ -z "$ZR_TEST_MARKER" ] && exit 0 || exit 1`},
		CleanEnv:  true,
		Stdio:     domain.StdioPipe,
		Environment: map[string]string{"PATH": os.Getenv("PATH")},
	}

	t.Setenv("ZR_TEST_MARKER", "present")
	res, err := executor.Execute(context.Background(), task, os.Environ())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
}

func TestExecutor_Execute_SpawnFailure(t *testing.T) {
	executor := NewExecutor(discardLogger{}, "sh")
	task := &domain.Task{
		Name:    domain.NewInternedString("nonexistent"),
		Command: []string{"/no/such/binary/zr-does-not-exist"},
	}

	_, err := executor.Execute(context.Background(), task, os.Environ())
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrSpawnFailed)
}
