package scheduler_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zr/internal/engine/scheduler"
)

// fakeExecutor runs no real process: it looks up a canned ExecResult by
// task name, defaulting to success.
type fakeExecutor struct {
	mu      sync.Mutex
	results map[string]domain.ExecResult
	calls   []string
}

func (f *fakeExecutor) Execute(_ context.Context, task *domain.Task, _ []string) (domain.ExecResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, task.Name.String())
	f.mu.Unlock()
	if res, ok := f.results[task.Name.String()]; ok {
		return res, nil
	}
	return domain.ExecResult{Outcome: domain.OutcomeSuccess, Attempts: 1}, nil
}

func (f *fakeExecutor) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fakeCacheStore struct {
	mu          sync.Mutex
	hits        map[string]bool
	invalidated []string
}

func newFakeCacheStore() *fakeCacheStore { return &fakeCacheStore{hits: make(map[string]bool)} }

func (c *fakeCacheStore) HasHit(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[key], nil
}

func (c *fakeCacheStore) RecordHit(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits[key] = true
	return nil
}

func (c *fakeCacheStore) Invalidate(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hits, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}

func (c *fakeCacheStore) ClearAll() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.hits)
	c.hits = make(map[string]bool)
	return n, nil
}

// failFastExecutor fails "fail" immediately and blocks "slow" until its
// context is cancelled, reporting OutcomeCancelled. Used to prove fail-fast
// cancellation reaches a sibling task already dispatched in the same level,
// not just ones not yet started.
type failFastExecutor struct{}

func (f *failFastExecutor) Execute(ctx context.Context, task *domain.Task, _ []string) (domain.ExecResult, error) {
	if task.Name.String() == "fail" {
		return domain.ExecResult{Outcome: domain.OutcomeFailed, ExitCode: 1, Attempts: 1}, nil
	}
	<-ctx.Done()
	return domain.ExecResult{Outcome: domain.OutcomeCancelled}, nil
}

type fakeVerifier struct {
	present bool
}

func (f fakeVerifier) VerifyOutputs(string, []string) (bool, error) {
	return f.present, nil
}

type fakeHasher struct{}

func (fakeHasher) ComputeInputHash(task *domain.Task, _ map[string]string, _ []string) (string, error) {
	return "hash-" + task.Name.String(), nil
}
func (fakeHasher) ComputeFileHash(string) (uint64, error) { return 0, nil }

type fakeResolver struct{}

func (fakeResolver) ResolveInputs(inputs []string, _ string) ([]string, error) { return inputs, nil }

type fakeLogger struct{}

func (fakeLogger) Debug(string) {}
func (fakeLogger) Info(string)  {}
func (fakeLogger) Warn(string)  {}
func (fakeLogger) Error(error)  {}

type fakeCondition struct {
	falseFor map[string]bool
}

func (f fakeCondition) Evaluate(expr string, _ ports.ConditionContext) (bool, error) {
	if f.falseFor != nil && f.falseFor[expr] {
		return false, nil
	}
	return true, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
}

func (h *fakeHistory) Append(r domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}
func (h *fakeHistory) LoadLast(int) ([]domain.HistoryRecord, error) { return h.records, nil }

func buildGraph(t *testing.T, tasks ...domain.Task) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	for i := range tasks {
		require.NoError(t, g.AddTask(&tasks[i]))
	}
	require.NoError(t, g.Validate())
	return g
}

func newTestScheduler(exec *fakeExecutor, cache ports.CacheStore, cond ports.ConditionEvaluator, hist ports.HistoryLog) *scheduler.Scheduler {
	return scheduler.New(exec, cache, nil, fakeHasher{}, fakeResolver{}, fakeLogger{}, cond, hist, nil, nil)
}

func TestScheduler_Run_SimpleSuccess(t *testing.T) {
	g := buildGraph(t, domain.Task{Name: domain.NewInternedString("build"), Command: []string{"true"}})
	exec := &fakeExecutor{}
	sched := newTestScheduler(exec, newFakeCacheStore(), fakeCondition{}, &fakeHistory{})

	result, err := sched.Run(context.Background(), g, []string{"build"}, scheduler.RunOptions{MaxJobs: 2})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, result.Results["build"].Outcome)
}

func TestScheduler_Run_RespectsLevelOrdering(t *testing.T) {
	base := domain.Task{Name: domain.NewInternedString("base"), Command: []string{"true"}}
	top := domain.Task{
		Name:         domain.NewInternedString("top"),
		Command:      []string{"true"},
		Dependencies: []domain.InternedString{base.Name},
	}
	g := buildGraph(t, base, top)
	exec := &fakeExecutor{}
	sched := newTestScheduler(exec, newFakeCacheStore(), fakeCondition{}, &fakeHistory{})

	result, err := sched.Run(context.Background(), g, []string{"top"}, scheduler.RunOptions{MaxJobs: 4})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, result.Results["base"].Outcome)
	require.Equal(t, domain.OutcomeSuccess, result.Results["top"].Outcome)
}

func TestScheduler_Run_FailurePropagatesToSkippedUpstream(t *testing.T) {
	base := domain.Task{Name: domain.NewInternedString("base"), Command: []string{"false"}}
	top := domain.Task{
		Name:         domain.NewInternedString("top"),
		Command:      []string{"true"},
		Dependencies: []domain.InternedString{base.Name},
	}
	g := buildGraph(t, base, top)
	exec := &fakeExecutor{results: map[string]domain.ExecResult{
		"base": {Outcome: domain.OutcomeFailed, ExitCode: 1, Attempts: 1},
	}}
	sched := newTestScheduler(exec, newFakeCacheStore(), fakeCondition{}, &fakeHistory{})

	result, err := sched.Run(context.Background(), g, []string{"top"}, scheduler.RunOptions{MaxJobs: 4})
	require.ErrorIs(t, err, domain.ErrRunFailed)
	require.Equal(t, domain.OutcomeFailed, result.Results["base"].Outcome)
	require.Equal(t, domain.OutcomeSkippedUpstream, result.Results["top"].Outcome)
	require.Equal(t, 0, exec.callCount("top"), "a task with a failed dependency must never be spawned")
}

func TestScheduler_Run_CacheHitSkipsExecution(t *testing.T) {
	task := domain.Task{
		Name:    domain.NewInternedString("cached"),
		Command: []string{"true"},
		Cache:   domain.CachePolicy{Enabled: true},
	}
	g := buildGraph(t, task)
	exec := &fakeExecutor{}
	cache := newFakeCacheStore()
	require.NoError(t, cache.RecordHit("hash-cached"))
	sched := newTestScheduler(exec, cache, fakeCondition{}, &fakeHistory{})

	result, err := sched.Run(context.Background(), g, []string{"cached"}, scheduler.RunOptions{MaxJobs: 1})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSkippedCache, result.Results["cached"].Outcome)
	require.Equal(t, 0, exec.callCount("cached"))
}

func TestScheduler_Run_ForceBypassesCache(t *testing.T) {
	task := domain.Task{
		Name:    domain.NewInternedString("cached"),
		Command: []string{"true"},
		Cache:   domain.CachePolicy{Enabled: true},
	}
	g := buildGraph(t, task)
	exec := &fakeExecutor{}
	cache := newFakeCacheStore()
	require.NoError(t, cache.RecordHit("hash-cached"))
	sched := newTestScheduler(exec, cache, fakeCondition{}, &fakeHistory{})

	result, err := sched.Run(context.Background(), g, []string{"cached"}, scheduler.RunOptions{MaxJobs: 1, Force: true})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, result.Results["cached"].Outcome)
	require.Equal(t, 1, exec.callCount("cached"))
}

func TestScheduler_Run_ConditionFalseSkipsAndSucceedsForDependents(t *testing.T) {
	gated := domain.Task{Name: domain.NewInternedString("gated"), Command: []string{"true"}, Condition: "skip-me"}
	dependent := domain.Task{
		Name:         domain.NewInternedString("dependent"),
		Command:      []string{"true"},
		Dependencies: []domain.InternedString{gated.Name},
	}
	g := buildGraph(t, gated, dependent)
	exec := &fakeExecutor{}
	sched := newTestScheduler(exec, newFakeCacheStore(), fakeCondition{falseFor: map[string]bool{"skip-me": true}}, &fakeHistory{})

	result, err := sched.Run(context.Background(), g, []string{"dependent"}, scheduler.RunOptions{MaxJobs: 2})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSkippedCondition, result.Results["gated"].Outcome)
	require.Equal(t, domain.OutcomeSuccess, result.Results["dependent"].Outcome)
}

func TestScheduler_Run_NoTargetsIsError(t *testing.T) {
	g := buildGraph(t, domain.Task{Name: domain.NewInternedString("a")})
	sched := newTestScheduler(&fakeExecutor{}, newFakeCacheStore(), fakeCondition{}, &fakeHistory{})

	_, err := sched.Run(context.Background(), g, nil, scheduler.RunOptions{})
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestScheduler_Run_UnknownTargetIsError(t *testing.T) {
	g := buildGraph(t, domain.Task{Name: domain.NewInternedString("a")})
	sched := newTestScheduler(&fakeExecutor{}, newFakeCacheStore(), fakeCondition{}, &fakeHistory{})

	_, err := sched.Run(context.Background(), g, []string{"does-not-exist"}, scheduler.RunOptions{})
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestScheduler_Run_AppendsHistoryRecord(t *testing.T) {
	g := buildGraph(t, domain.Task{Name: domain.NewInternedString("a"), Command: []string{"true"}})
	hist := &fakeHistory{}
	sched := newTestScheduler(&fakeExecutor{}, newFakeCacheStore(), fakeCondition{}, hist)

	_, err := sched.Run(context.Background(), g, []string{"a"}, scheduler.RunOptions{MaxJobs: 1})
	require.NoError(t, err)
	require.Len(t, hist.records, 1)
	require.True(t, hist.records[0].Success)
}

func TestScheduler_Run_FailFastCancelsInFlightSiblings(t *testing.T) {
	fail := domain.Task{Name: domain.NewInternedString("fail"), Command: []string{"false"}}
	slow := domain.Task{Name: domain.NewInternedString("slow"), Command: []string{"sleep"}}
	g := buildGraph(t, fail, slow)

	exec := &failFastExecutor{}
	sched := scheduler.New(
		exec, newFakeCacheStore(), nil, fakeHasher{}, fakeResolver{}, fakeLogger{}, fakeCondition{}, &fakeHistory{}, nil, nil,
	)

	result, err := sched.Run(context.Background(), g, []string{"all"}, scheduler.RunOptions{MaxJobs: 2, FailFast: true})
	require.ErrorIs(t, err, domain.ErrRunFailed)
	require.Equal(t, domain.OutcomeFailed, result.Results["fail"].Outcome)
	require.Equal(t, domain.OutcomeCancelled, result.Results["slow"].Outcome,
		"fail-fast must cancel a sibling already dispatched in the same level, not just skip ones not yet started")
}

func TestScheduler_Run_CacheHitWithMissingOutputIsInvalidated(t *testing.T) {
	task := domain.Task{
		Name:    domain.NewInternedString("built"),
		Command: []string{"true"},
		Cache:   domain.CachePolicy{Enabled: true},
		Outputs: domain.NewInternedStrings([]string{"dist/out.bin"}),
	}
	g := buildGraph(t, task)
	exec := &fakeExecutor{}
	cache := newFakeCacheStore()
	require.NoError(t, cache.RecordHit("hash-built"))

	sched := scheduler.New(
		exec, cache, nil, fakeHasher{}, fakeResolver{}, fakeLogger{}, fakeCondition{}, &fakeHistory{}, nil,
		fakeVerifier{present: false},
	)

	result, err := sched.Run(context.Background(), g, []string{"built"}, scheduler.RunOptions{MaxJobs: 1})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, result.Results["built"].Outcome,
		"a stale marker whose outputs vanished must be treated as a miss and re-executed")
	require.Equal(t, 1, exec.callCount("built"))

	require.Contains(t, cache.invalidated, "hash-built", "the stale marker must be invalidated, not left trusted")

	hit, err := cache.HasHit("hash-built")
	require.NoError(t, err)
	require.True(t, hit, "the successful re-execution records a fresh marker")
}

func TestScheduler_Run_CacheHitWithPresentOutputIsTrusted(t *testing.T) {
	task := domain.Task{
		Name:    domain.NewInternedString("built"),
		Command: []string{"true"},
		Cache:   domain.CachePolicy{Enabled: true},
		Outputs: domain.NewInternedStrings([]string{"dist/out.bin"}),
	}
	g := buildGraph(t, task)
	exec := &fakeExecutor{}
	cache := newFakeCacheStore()
	require.NoError(t, cache.RecordHit("hash-built"))

	sched := scheduler.New(
		exec, cache, nil, fakeHasher{}, fakeResolver{}, fakeLogger{}, fakeCondition{}, &fakeHistory{}, nil,
		fakeVerifier{present: true},
	)

	result, err := sched.Run(context.Background(), g, []string{"built"}, scheduler.RunOptions{MaxJobs: 1})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSkippedCache, result.Results["built"].Outcome)
	require.Equal(t, 0, exec.callCount("built"))
}
