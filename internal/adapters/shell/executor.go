// Package shell provides the shell executor adapter: it spawns one task's
// command to completion under the timeout, retry, and stdio policy carried
// on the task, sampling the child's resource usage as it runs.
package shell

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	tailLimitBytes   = 16 * 1024
	sampleInterval   = 500 * time.Millisecond
	killGracePeriod  = 2 * time.Second
	spawnErrExitCode = -1
)

// Executor implements ports.Executor using os/exec, placing each child in
// its own process group so a timeout or cancellation can reliably reach
// every descendant it spawns.
type Executor struct {
	logger ports.Logger
	shell  string
}

// NewExecutor creates a new Executor. shell names the POSIX shell used to
// run string-form commands (e.g. "/bin/sh"); an empty value defaults to "sh".
func NewExecutor(logger ports.Logger, shell string) *Executor {
	if shell == "" {
		shell = "sh"
	}
	return &Executor{logger: logger, shell: shell}
}

// Execute runs task.Command to completion, retrying per task.Retry and
// enforcing task.TimeoutMS, and returns the ExecResult of the final attempt.
// Base carries the inherited environment (typically os.Environ()); it is
// used unless task.CleanEnv is set, and task.Environment is always overlaid
// on top.
func (e *Executor) Execute(ctx context.Context, task *domain.Task, base []string) (domain.ExecResult, error) {
	if len(task.Command) == 0 {
		return domain.ExecResult{Outcome: domain.OutcomeSuccess}, nil
	}

	cmdEnv := resolveEnvironment(base, task.Environment, task.CleanEnv)
	maxAttempts := task.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	start := time.Now()
	var last attemptResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return domain.ExecResult{
				Outcome:  domain.OutcomeCancelled,
				Attempts: attempt - 1,
				Duration: time.Since(start),
			}, nil
		}

		if wait := task.Retry.Backoff(attempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return domain.ExecResult{
					Outcome:  domain.OutcomeCancelled,
					Attempts: attempt - 1,
					Duration: time.Since(start),
				}, nil
			}
		}

		var err error
		last, err = e.runOnce(ctx, task, cmdEnv)
		if err != nil {
			return domain.ExecResult{}, err
		}
		last.attempt = attempt

		if last.outcome == domain.OutcomeSuccess || last.outcome == domain.OutcomeCancelled {
			break
		}
		if last.outcome == domain.OutcomeFailed && !task.Retry.ShouldRetry(last.exitCode) {
			break
		}
		if attempt == maxAttempts {
			break
		}
	}

	return domain.ExecResult{
		Outcome:        last.outcome,
		ExitCode:       last.exitCode,
		Attempts:       last.attempt,
		Duration:       time.Since(start),
		PeakRSSBytes:   last.peakRSS,
		PeakCPUPercent: last.peakCPU,
		StdoutTail:     last.stdoutTail,
		StderrTail:     last.stderrTail,
	}, nil
}

type attemptResult struct {
	outcome    domain.Outcome
	exitCode   int
	attempt    int
	peakRSS    uint64
	peakCPU    float64
	stdoutTail string
	stderrTail string
}

func (e *Executor) runOnce(ctx context.Context, task *domain.Task, cmdEnv []string) (attemptResult, error) {
	name := task.Command[0]
	var cmd *exec.Cmd
	if len(task.Command) == 1 && strings.ContainsAny(name, " \t|&;()<>$`\\\"'\n") {
		cmd = exec.Command(e.shell, "-c", name) //nolint:gosec // user-configured command
	} else {
		executable := name
		if !filepath.IsAbs(name) {
			if lp, err := lookPath(name, cmdEnv); err == nil {
				executable = lp
			}
		}
		cmd = exec.Command(executable, task.Command[1:]...) //nolint:gosec // user-configured command
		if len(cmd.Args) > 0 {
			cmd.Args[0] = name
		}
	}

	if task.WorkingDir.String() != "" {
		cmd.Dir = task.WorkingDir.String()
	}
	cmd.Env = cmdEnv
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdoutBuf, stderrBuf *tailBuffer
	switch task.EffectiveStdio() {
	case domain.StdioInherit:
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	default:
		stdoutBuf = newTailBuffer(tailLimitBytes)
		stderrBuf = newTailBuffer(tailLimitBytes)
		cmd.Stdout = stdoutBuf
		cmd.Stderr = stderrBuf
	}

	if err := cmd.Start(); err != nil {
		return attemptResult{}, zerr.With(zerr.Wrap(domain.ErrSpawnFailed, err.Error()), "task", task.Name.String())
	}

	mon := startMonitor(cmd.Process.Pid)
	defer mon.stop()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timeoutC <-chan time.Time
	if task.TimeoutMS > 0 {
		timer := time.NewTimer(time.Duration(task.TimeoutMS) * time.Millisecond)
		defer timer.Stop()
		timeoutC = timer.C
	}

	var waitErr error
	outcome := domain.OutcomeSuccess
	select {
	case waitErr = <-done:
	case <-timeoutC:
		killProcessGroup(cmd.Process.Pid, killGracePeriod)
		waitErr = <-done
		outcome = domain.OutcomeTimedOut
	case <-ctx.Done():
		killProcessGroup(cmd.Process.Pid, killGracePeriod)
		waitErr = <-done
		outcome = domain.OutcomeCancelled
	}

	peakRSS, peakCPU := mon.peaks()

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(waitErr, &exitErr); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = spawnErrExitCode
		}
		if outcome == domain.OutcomeSuccess {
			outcome = domain.OutcomeFailed
		}
	}

	res := attemptResult{
		outcome:  outcome,
		exitCode: exitCode,
		peakRSS:  peakRSS,
		peakCPU:  peakCPU,
	}
	if stdoutBuf != nil {
		res.stdoutTail = stdoutBuf.String()
	}
	if stderrBuf != nil {
		res.stderrTail = stderrBuf.String()
	}
	return res, nil
}

func asExitError(err error, target **exec.ExitError) bool {
	exitErr, ok := err.(*exec.ExitError)
	if ok {
		*target = exitErr
	}
	return ok
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if t.buf.Len() > t.limit {
		excess := t.buf.Len() - t.limit
		t.buf.Next(excess)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// resolveEnvironment builds the child's environment: base unless clean is
// set, overlaid with task-defined variables.
func resolveEnvironment(base []string, taskEnv map[string]string, clean bool) []string {
	envMap := make(map[string]string)
	if !clean {
		for _, entry := range base {
			k, v, ok := strings.Cut(entry, "=")
			if ok {
				envMap[k] = v
			}
		}
	}
	for k, v := range taskEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

// lookPath searches for an executable in the directories named by PATH in env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
