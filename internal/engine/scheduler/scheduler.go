// Package scheduler implements level-barrier execution of a task graph:
// every task in level N completes (succeeds, is skipped, or fails) before
// any task in level N+1 starts, with up to MaxJobs tasks running
// concurrently within a level.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zerr"
)

// RunOptions configures one invocation of the scheduler.
type RunOptions struct {
	// MaxJobs bounds concurrency within a level. Zero or negative defaults
	// to runtime.NumCPU().
	MaxJobs int
	// Force bypasses the cache store entirely: every task is executed.
	Force bool
	// FailFast stops dispatching new tasks after the first failure and
	// marks remaining tasks skipped_upstream.
	FailFast bool
	// UseColor enables ANSI-colored progress output.
	UseColor bool
	// Quiet suppresses the progress line entirely (e.g. for scripted use).
	Quiet bool
}

func (o RunOptions) jobs() int {
	if o.MaxJobs > 0 {
		return o.MaxJobs
	}
	return runtime.NumCPU()
}

// Scheduler executes a task graph using level-barrier semantics.
type Scheduler struct {
	executor  ports.Executor
	cache     ports.CacheStore
	remote    ports.RemoteCache // optional; nil disables remote cache lookups
	hasher    ports.Hasher
	resolver  ports.InputResolver
	logger    ports.Logger
	condition ports.ConditionEvaluator
	history   ports.HistoryLog
	telemetry ports.Telemetry // optional; nil disables vertex recording
	verifier  ports.Verifier  // optional; nil skips the output-presence cross-check
}

// New creates a new Scheduler.
func New(
	executor ports.Executor,
	cache ports.CacheStore,
	remote ports.RemoteCache,
	hasher ports.Hasher,
	resolver ports.InputResolver,
	logger ports.Logger,
	cond ports.ConditionEvaluator,
	history ports.HistoryLog,
	telemetry ports.Telemetry,
	verifier ports.Verifier,
) *Scheduler {
	return &Scheduler{
		executor:  executor,
		cache:     cache,
		remote:    remote,
		hasher:    hasher,
		resolver:  resolver,
		logger:    logger,
		condition: cond,
		history:   history,
		telemetry: telemetry,
		verifier:  verifier,
	}
}

// Run executes the closure of targetNames (or every task, when targetNames
// contains "all") over graph, honoring opts, and returns the aggregate
// ScheduleResult. A run-level HistoryRecord is appended on return.
func (s *Scheduler) Run(
	ctx context.Context,
	graph *domain.Graph,
	targetNames []string,
	opts RunOptions,
) (domain.ScheduleResult, error) {
	if len(targetNames) == 0 {
		return domain.ScheduleResult{}, domain.ErrNoTargetsSpecified
	}

	include, err := s.resolveClosure(graph, targetNames)
	if err != nil {
		return domain.ScheduleResult{}, err
	}

	levels := graph.LevelsFor(include)

	runID := uuid.NewString()
	startedAt := time.Now()

	st := &runState{
		sched:     s,
		graph:     graph,
		opts:      opts,
		results:   make(map[string]domain.RunResult, len(include)),
		ignore:    make(map[string]bool, len(include)),
		failed:    make(map[domain.InternedString]bool),
		runID:     runID,
		progress:  newProgressLine(opts.UseColor && !opts.Quiet),
		total:     len(include),
	}

	for _, level := range levels {
		if st.cancelled.Load() {
			st.skipRemaining(level)
			continue
		}
		if err := st.runLevel(ctx, level); err != nil {
			return domain.ScheduleResult{}, err
		}
	}
	st.progress.finish()

	finishedAt := time.Now()
	result := domain.ScheduleResult{
		RunID:      runID,
		Results:    st.results,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}

	s.recordHistory(result, targetNames)

	if result.OverallOutcome(st.ignore) == domain.OutcomeFailed {
		return result, domain.ErrRunFailed
	}
	return result, nil
}

func (s *Scheduler) recordHistory(result domain.ScheduleResult, targetNames []string) {
	if s.history == nil {
		return
	}
	retryCount := 0
	for _, r := range result.Results {
		if r.Attempts > 1 {
			retryCount += r.Attempts - 1
		}
	}
	primary := "all"
	if len(targetNames) > 0 {
		primary = strings.Join(targetNames, ",")
	}
	record := domain.HistoryRecord{
		Timestamp:  result.FinishedAt,
		TaskName:   primary,
		Success:    result.OverallOutcome(nil) != domain.OutcomeFailed,
		DurationMS: result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		TaskCount:  len(result.Results),
		RetryCount: retryCount,
	}
	if err := s.history.Append(record); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to append history record: %v", err))
	}
}

func (s *Scheduler) resolveClosure(
	graph *domain.Graph,
	targetNames []string,
) (map[domain.InternedString]bool, error) {
	if slices.Contains(targetNames, "all") {
		include := make(map[domain.InternedString]bool, graph.TaskCount())
		for t := range graph.Walk() {
			include[t.Name] = true
		}
		return include, nil
	}

	targets := make([]domain.InternedString, 0, len(targetNames))
	for _, n := range targetNames {
		name := domain.NewInternedString(n)
		if _, ok := graph.GetTask(name); !ok {
			return nil, zerr.With(domain.ErrTaskNotFound, "task", n)
		}
		targets = append(targets, name)
	}
	return collectDependencyClosure(graph, targets), nil
}

func collectDependencyClosure(graph *domain.Graph, targets []domain.InternedString) map[domain.InternedString]bool {
	include := make(map[domain.InternedString]bool, len(targets))
	queue := slices.Clone(targets)
	for _, t := range targets {
		include[t] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		task, ok := graph.GetTask(cur)
		if !ok {
			continue
		}
		for _, dep := range task.Dependencies {
			if !include[dep] {
				include[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return include
}

// runState carries the mutable, run-scoped bookkeeping shared across level
// executions. Only resultsMu guards concurrent writers; cancelled is an
// atomic flag observed cooperatively by in-flight runOne calls. cancel holds
// the current level's context.CancelFunc so a FailFast failure can trip the
// errgroup context and reach every task already dispatched in the level,
// not just ones not yet started.
type runState struct {
	sched *Scheduler
	graph *domain.Graph
	opts  RunOptions
	runID string

	resultsMu sync.Mutex
	results   map[string]domain.RunResult
	ignore    map[string]bool

	failedMu sync.Mutex
	failed   map[domain.InternedString]bool

	cancelled atomic.Bool
	cancel    atomic.Pointer[context.CancelFunc]
	done      atomic.Int64
	total     int
	progress  *progressLine
}

func (st *runState) runLevel(ctx context.Context, level []domain.InternedString) error {
	levelCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	st.cancel.Store(&cancel)

	g, gctx := errgroup.WithContext(levelCtx)
	g.SetLimit(st.opts.jobs())

	for _, name := range level {
		name := name
		if st.hasFailedDependency(name) {
			st.recordSkippedUpstream(name)
			continue
		}
		g.Go(func() error {
			st.runOne(gctx, name)
			return nil
		})
	}

	return g.Wait()
}

func (st *runState) hasFailedDependency(name domain.InternedString) bool {
	task, ok := st.graph.GetTask(name)
	if !ok {
		return false
	}
	st.failedMu.Lock()
	defer st.failedMu.Unlock()
	for _, dep := range task.Dependencies {
		if st.failed[dep] {
			return true
		}
	}
	return false
}

func (st *runState) recordSkippedUpstream(name domain.InternedString) {
	st.markFailed(name)
	st.storeResult(domain.RunResult{
		TaskName:   name.String(),
		Outcome:    domain.OutcomeSkippedUpstream,
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}, false)
}

func (st *runState) skipRemaining(level []domain.InternedString) {
	for _, name := range level {
		st.recordSkippedUpstream(name)
	}
}

func (st *runState) markFailed(name domain.InternedString) {
	st.failedMu.Lock()
	defer st.failedMu.Unlock()
	st.failed[name] = true
}

func (st *runState) storeResult(res domain.RunResult, ignoreFailure bool) {
	st.resultsMu.Lock()
	st.results[res.TaskName] = res
	st.ignore[res.TaskName] = ignoreFailure
	st.resultsMu.Unlock()

	st.done.Add(1)
	st.progress.update(int(st.done.Load()), st.total, res.TaskName, res.Outcome)
}

func (st *runState) runOne(ctx context.Context, name domain.InternedString) {
	task, ok := st.graph.GetTask(name)
	if !ok {
		return
	}

	if st.cancelled.Load() || ctx.Err() != nil {
		st.storeResult(domain.RunResult{
			TaskName:   name.String(),
			Outcome:    domain.OutcomeCancelled,
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
		}, task.IgnoreFailure)
		st.markFailed(name)
		return
	}

	var vertex ports.Vertex
	if st.sched.telemetry != nil {
		var vctx context.Context
		vctx, vertex = st.sched.telemetry.Record(ctx, name.String())
		ctx = vctx
	}

	result := st.sched.runSingleTask(ctx, &task, st.opts, vertex)
	st.storeResult(result, task.IgnoreFailure)

	if result.Outcome.PropagatesFailure() && !task.IgnoreFailure {
		st.markFailed(name)
		if st.opts.FailFast {
			st.cancelled.Store(true)
			if cancel := st.cancel.Load(); cancel != nil {
				(*cancel)()
			}
		}
	}
}

// runSingleTask implements the per-task contract: cache check, condition
// check, effective environment resolution, output cleanup, execution, and
// cache population on success.
func (s *Scheduler) runSingleTask(
	ctx context.Context,
	task *domain.Task,
	opts RunOptions,
	vertex ports.Vertex,
) domain.RunResult {
	started := time.Now()
	root := s.taskRoot(task)

	resolvedInputs, err := s.resolveInputs(task, root)
	if err != nil {
		return s.failResult(task, started, err)
	}

	fingerprint, err := s.hasher.ComputeInputHash(task, task.Environment, resolvedInputs)
	if err != nil {
		return s.failResult(task, started, err)
	}

	if !opts.Force && task.Cache.Enabled {
		if hit := s.checkCache(ctx, task, root, fingerprint); hit {
			if vertex != nil {
				vertex.Cached()
			}
			return domain.RunResult{
				TaskName:    task.Name.String(),
				Outcome:     domain.OutcomeSkippedCache,
				StartedAt:   started,
				FinishedAt:  time.Now(),
				Fingerprint: fingerprint,
			}
		}
	}

	ok, err := s.condition.Evaluate(task.Condition, s.conditionContext(task))
	if err != nil {
		return s.failResult(task, started, err)
	}
	if !ok {
		if vertex != nil {
			vertex.Complete(nil)
		}
		return domain.RunResult{
			TaskName:    task.Name.String(),
			Outcome:     domain.OutcomeSkippedCondition,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			Fingerprint: fingerprint,
		}
	}

	if err := s.cleanOutputs(task, root); err != nil {
		return s.failResult(task, started, err)
	}

	if vertex != nil {
		vertex.Log(domain.LogLevelInfo, "running")
	}

	execRes, err := s.executor.Execute(ctx, task, os.Environ())
	if err != nil {
		if vertex != nil {
			vertex.Complete(err)
		}
		return s.failResult(task, started, err)
	}

	if execRes.Outcome == domain.OutcomeSuccess && task.Cache.Enabled {
		s.recordCacheHit(ctx, fingerprint)
	}

	if vertex != nil {
		if execRes.Outcome == domain.OutcomeSuccess {
			vertex.Complete(nil)
		} else {
			vertex.Complete(zerr.With(zerr.New("task failed"), "exit_code", execRes.ExitCode))
		}
	}

	return domain.RunResult{
		TaskName:    task.Name.String(),
		Outcome:     execRes.Outcome,
		ExitCode:    execRes.ExitCode,
		Attempts:    execRes.Attempts,
		Duration:    execRes.Duration,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		PeakRSS:     execRes.PeakRSSBytes,
		PeakCPUPct:  execRes.PeakCPUPercent,
		StdoutTail:  execRes.StdoutTail,
		StderrTail:  execRes.StderrTail,
		Fingerprint: fingerprint,
	}
}

func (s *Scheduler) failResult(task *domain.Task, started time.Time, err error) domain.RunResult {
	s.logger.Error(zerr.With(zerr.Wrap(err, "task failed"), "task", task.Name.String()))
	return domain.RunResult{
		TaskName:   task.Name.String(),
		Outcome:    domain.OutcomeFailed,
		ExitCode:   -1,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
}

// checkCache reports whether fingerprint has a trustworthy cache hit for
// task, checking the local store first and falling back to the remote
// cache. A marker hit is cross-checked against the task's declared outputs
// still being present on disk before being trusted; a hit whose outputs
// have since been deleted is invalidated and treated as a miss.
func (s *Scheduler) checkCache(ctx context.Context, task *domain.Task, root, key string) bool {
	hit, err := s.cache.HasHit(key)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("cache lookup failed: %v", err))
		return false
	}
	if hit {
		return s.verifyOutputsPresent(task, root, key)
	}
	if s.remote == nil {
		return false
	}
	_, found, err := s.remote.Pull(ctx, key)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("remote cache pull failed: %v", err))
		return false
	}
	if !found {
		return false
	}
	if err := s.cache.RecordHit(key); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to record local cache hit from remote: %v", err))
	}
	return s.verifyOutputsPresent(task, root, key)
}

// verifyOutputsPresent cross-checks a marker hit against the task's declared
// outputs actually being present on disk. A task with no declared outputs
// has nothing to verify and is trusted on the marker alone.
func (s *Scheduler) verifyOutputsPresent(task *domain.Task, root, key string) bool {
	if s.verifier == nil || len(task.Outputs) == 0 {
		return true
	}

	outputs := make([]string, len(task.Outputs))
	for i, out := range task.Outputs {
		outputs[i] = out.String()
	}

	ok, err := s.verifier.VerifyOutputs(root, outputs)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("output verification failed: %v", err))
		return true
	}
	if ok {
		return true
	}

	if err := s.cache.Invalidate(key); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to invalidate stale cache marker: %v", err))
	}
	return false
}

func (s *Scheduler) recordCacheHit(ctx context.Context, key string) {
	if err := s.cache.RecordHit(key); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to record cache hit: %v", err))
	}
	if s.remote == nil {
		return
	}
	if err := s.remote.Push(ctx, key, []byte(key)); err != nil {
		s.logger.Warn(fmt.Sprintf("remote cache push failed: %v", err))
	}
}

func (s *Scheduler) resolveInputs(task *domain.Task, root string) ([]string, error) {
	inputs := make([]string, len(task.Inputs))
	for i, in := range task.Inputs {
		inputs[i] = in.String()
	}
	return s.resolver.ResolveInputs(inputs, root)
}

func (s *Scheduler) taskRoot(task *domain.Task) string {
	if task.WorkingDir.String() != "" {
		return task.WorkingDir.String()
	}
	return "."
}

func (s *Scheduler) conditionContext(task *domain.Task) ports.ConditionContext {
	env := make(map[string]string, len(task.Environment))
	for k, v := range task.Environment {
		env[k] = v
	}
	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if ok {
			if _, exists := env[k]; !exists {
				env[k] = v
			}
		}
	}
	return ports.ConditionContext{
		Platform:          runtime.GOOS,
		Env:               env,
		ToolchainVersions: task.Tools,
	}
}

// cleanOutputs removes any previously produced output artifacts so a failed
// run never leaves stale files behind, guarding against an output path that
// escapes the task's working directory.
func (s *Scheduler) cleanOutputs(task *domain.Task, root string) error {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve task root")
	}

	for _, out := range task.Outputs {
		outPath := out.String()
		outAbs := outPath
		if !filepath.IsAbs(outAbs) {
			outAbs = filepath.Join(rootAbs, outPath)
		}
		outAbs, err = filepath.Abs(outAbs)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to resolve output path"), "file", outPath)
		}

		rel, err := filepath.Rel(rootAbs, outAbs)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to relate output path to root"), "file", outPath)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return zerr.With(domain.ErrOutputPathOutsideRoot, "file", outPath)
		}

		if err := os.RemoveAll(outAbs); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to clean output"), "file", outPath)
		}
	}
	return nil
}

// progressLine renders a single-line, TTY-aware progress indicator between
// task completions. It is a no-op when disabled.
type progressLine struct {
	enabled bool
	mu      sync.Mutex
}

func newProgressLine(enabled bool) *progressLine {
	if enabled && !term.IsTerminal(int(os.Stderr.Fd())) {
		enabled = false
	}
	return &progressLine{enabled: enabled}
}

func (p *progressLine) update(done, total int, taskName string, outcome domain.Outcome) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	paint := color.New(color.FgGreen)
	switch outcome {
	case domain.OutcomeFailed, domain.OutcomeTimedOut, domain.OutcomeCancelled:
		paint = color.New(color.FgRed)
	case domain.OutcomeSkippedCache, domain.OutcomeSkippedCondition, domain.OutcomeSkippedUpstream:
		paint = color.New(color.FgYellow)
	}
	fmt.Fprintf(os.Stderr, "\r\033[K%s  %s", paint.Sprintf("(%d/%d)", done, total), taskName) //nolint:errcheck
}

func (p *progressLine) finish() {
	if !p.enabled {
		return
	}
	fmt.Fprintln(os.Stderr) //nolint:errcheck
}
