package domain

import "time"

// BackoffStrategy selects how the delay between retry attempts grows.
type BackoffStrategy string

const (
	// BackoffFixed waits the same duration before every retry attempt.
	BackoffFixed BackoffStrategy = "fixed"
	// BackoffExponential doubles the wait duration on each subsequent attempt.
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy controls how many times a failed task is re-attempted and how
// long the scheduler waits between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BackoffMS   int64
	Strategy    BackoffStrategy
	OnExitCodes []int
}

// Backoff returns the sleep duration before the given 1-indexed attempt number.
func (r RetryPolicy) Backoff(attempt int) time.Duration {
	if r.BackoffMS <= 0 || attempt <= 1 {
		return 0
	}
	base := time.Duration(r.BackoffMS) * time.Millisecond
	if r.Strategy != BackoffExponential {
		return base
	}
	d := base
	for i := 1; i < attempt-1; i++ {
		d *= 2
	}
	return d
}

// ShouldRetry reports whether a failing exit code is eligible for retry
// under this policy. An empty OnExitCodes list means "retry any failure".
func (r RetryPolicy) ShouldRetry(exitCode int) bool {
	if len(r.OnExitCodes) == 0 {
		return true
	}
	for _, code := range r.OnExitCodes {
		if code == exitCode {
			return true
		}
	}
	return false
}

// StdioPolicy controls how a task's stdout/stderr are wired.
type StdioPolicy string

const (
	// StdioInherit passes the child's stdio straight through to the host process.
	StdioInherit StdioPolicy = "inherit"
	// StdioPipe captures output; only the tail of each stream is kept, in the task's result.
	StdioPipe StdioPolicy = "pipe"
)

// CachePolicy configures whether and how a task's result may be cached.
type CachePolicy struct {
	Enabled        bool
	InputGlobs     []string
	OutputGlobs    []string
	ExtraKeyFields []string
}

// Task represents a single unit of work in the dependency graph.
// It uses InternedString for fields that are frequently repeated to save memory.
type Task struct {
	Name         InternedString
	Command      []string
	Inputs       []InternedString
	Outputs      []InternedString
	Dependencies []InternedString
	Tools        map[string]string
	Environment  map[string]string
	WorkingDir   InternedString

	CleanEnv      bool
	Condition     string
	TimeoutMS     int64
	Retry         RetryPolicy
	Cache         CachePolicy
	IgnoreFailure bool
	Stdio         StdioPolicy

	Description string
	Tags        []string
}

// EffectiveStdio returns the task's stdio policy, defaulting to Pipe when unset.
func (t *Task) EffectiveStdio() StdioPolicy {
	if t.Stdio == "" {
		return StdioPipe
	}
	return t.Stdio
}
