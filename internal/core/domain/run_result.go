package domain

import "time"

// ExecResult carries the raw outcome of one attempt (or the final attempt,
// for a retried task) made by an Executor/TaskRunner. The scheduler enriches
// it into a full RunResult with task identity and cache metadata.
type ExecResult struct {
	Outcome        Outcome
	ExitCode       int
	Attempts       int
	Duration       time.Duration
	PeakRSSBytes   uint64
	PeakCPUPercent float64
	StdoutTail     string
	StderrTail     string
}

// RunResult is the complete, user-facing record of one task's participation
// in a run.
type RunResult struct {
	TaskName    string
	Outcome     Outcome
	ExitCode    int
	Attempts    int
	Duration    time.Duration
	StartedAt   time.Time
	FinishedAt  time.Time
	PeakRSS     uint64
	PeakCPUPct  float64
	StdoutTail  string
	StderrTail  string
	Fingerprint string
}

// Failed reports whether this result should be considered a run failure for
// exit-code purposes, honoring per-task IgnoreFailure.
func (r RunResult) Failed(ignoreFailure bool) bool {
	if ignoreFailure {
		return false
	}
	return r.Outcome.PropagatesFailure()
}

// ScheduleResult aggregates every task's RunResult for one invocation of the
// scheduler, plus run-level bookkeeping.
type ScheduleResult struct {
	RunID     string
	Results   map[string]RunResult
	StartedAt time.Time
	FinishedAt time.Time
}

// OverallOutcome returns OutcomeFailed if any non-ignored task failed,
// otherwise OutcomeSuccess.
func (s ScheduleResult) OverallOutcome(ignoreFailure map[string]bool) Outcome {
	for name, res := range s.Results {
		if res.Failed(ignoreFailure[name]) {
			return OutcomeFailed
		}
	}
	return OutcomeSuccess
}

// Counts tallies results by outcome, for summary lines.
func (s ScheduleResult) Counts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, res := range s.Results {
		counts[res.Outcome]++
	}
	return counts
}
