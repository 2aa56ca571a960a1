package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
)

// contractTask builds a scanTask whose run function is fn
func contractTask(name string, fn func(ctx context.Context) error) *scanTask {
	return &scanTask{
		name: name,
		code: "contract " + name + " {}",
		run: func(ctx context.Context, code, n string) error {
			return fn(ctx)
		},
	}
}

// disabledTask is a task the executor must skip
type disabledTask struct {
	ran atomic.Bool
}

func (t *disabledTask) Name() string    { return "Disabled" }
func (t *disabledTask) IsEnabled() bool { return false }
func (t *disabledTask) Execute(ctx context.Context) (interface{}, error) {
	t.ran.Store(true)
	return nil, nil
}

// recordingProgress captures what the executor reports
type recordingProgress struct {
	mu           sync.Mutex
	label        string
	total        int
	increments   int
	descriptions []string
	completed    bool
}

func (r *recordingProgress) StartTask(description string, total int) domain.TaskProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.label = description
	r.total = total
	return r
}

func (r *recordingProgress) IsInteractive() bool { return false }
func (r *recordingProgress) Close()              {}

func (r *recordingProgress) Increment(n int) {
	r.mu.Lock()
	r.increments += n
	r.mu.Unlock()
}

func (r *recordingProgress) Describe(description string) {
	r.mu.Lock()
	r.descriptions = append(r.descriptions, description)
	r.mu.Unlock()
}

func (r *recordingProgress) Complete() {
	r.mu.Lock()
	r.completed = true
	r.mu.Unlock()
}

func failedNames(t *testing.T, err error) []string {
	t.Helper()
	var aggErr *AggregatedError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected *AggregatedError, got %T: %v", err, err)
	}
	names := make([]string, 0, len(aggErr.Errors))
	for _, te := range aggErr.Errors {
		names = append(names, te.TaskName)
	}
	sort.Strings(names)
	return names
}

func TestNewParallelExecutorFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.PerformanceConfig
		wantWorkers int
		wantTimeout time.Duration
	}{
		{"configured", config.PerformanceConfig{MaxGoroutines: 8, TimeoutSeconds: 120}, 8, 120 * time.Second},
		{"zero falls back", config.PerformanceConfig{}, runtime.NumCPU(), DefaultTimeout},
		{"negative falls back", config.PerformanceConfig{MaxGoroutines: -2, TimeoutSeconds: -1}, runtime.NumCPU(), DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewParallelExecutorFromConfig(&tt.cfg)
			if executor.maxConcurrency != tt.wantWorkers {
				t.Errorf("maxConcurrency = %d, want %d", executor.maxConcurrency, tt.wantWorkers)
			}
			if executor.timeout != tt.wantTimeout {
				t.Errorf("timeout = %v, want %v", executor.timeout, tt.wantTimeout)
			}
			if executor.label != defaultProgressLabel {
				t.Errorf("label = %q", executor.label)
			}
		})
	}
}

func TestExecuteRunsEveryContract(t *testing.T) {
	executor := NewParallelExecutorFromConfig(&config.PerformanceConfig{MaxGoroutines: 3})

	var ran sync.Map
	tasks := make([]domain.ExecutableTask, 0, 6)
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("C%d", i)
		tasks = append(tasks, contractTask(name, func(ctx context.Context) error {
			ran.Store(name, true)
			return nil
		}))
	}

	if err := executor.Execute(context.Background(), tasks); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i := 0; i < 6; i++ {
		if _, ok := ran.Load(fmt.Sprintf("C%d", i)); !ok {
			t.Errorf("C%d did not run", i)
		}
	}
}

func TestExecuteSkipsDisabledTasks(t *testing.T) {
	executor := NewParallelExecutorFromConfig(&config.PerformanceConfig{})
	skipped := &disabledTask{}

	var ran atomic.Bool
	tasks := []domain.ExecutableTask{
		skipped,
		contractTask("Vault", func(ctx context.Context) error {
			ran.Store(true)
			return nil
		}),
	}

	if err := executor.Execute(context.Background(), tasks); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if skipped.ran.Load() {
		t.Error("disabled task was executed")
	}
	if !ran.Load() {
		t.Error("enabled task did not run")
	}
}

func TestExecuteNoTasks(t *testing.T) {
	pm := &recordingProgress{}
	executor := NewParallelExecutorWithProgress(&config.PerformanceConfig{}, pm)

	if err := executor.Execute(context.Background(), nil); err != nil {
		t.Errorf("Execute(nil) = %v", err)
	}
	if pm.label != "" {
		t.Error("progress should not start for an empty batch")
	}
}

func TestExecuteIsolatesFailures(t *testing.T) {
	executor := NewParallelExecutorFromConfig(&config.PerformanceConfig{MaxGoroutines: 2})
	errBroken := errors.New("unterminated string")

	var ok atomic.Int32
	tasks := []domain.ExecutableTask{
		contractTask("Broken", func(ctx context.Context) error { return errBroken }),
		contractTask("Token", func(ctx context.Context) error { ok.Add(1); return nil }),
		contractTask("Vault", func(ctx context.Context) error { ok.Add(1); return nil }),
	}

	err := executor.Execute(context.Background(), tasks)
	if got := failedNames(t, err); strings.Join(got, ",") != "Broken" {
		t.Errorf("failed = %v, want [Broken]", got)
	}
	if !errors.Is(err, errBroken) {
		t.Error("aggregated error should unwrap to the task error")
	}
	if ok.Load() != 2 {
		t.Errorf("siblings completed = %d, want 2", ok.Load())
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	executor := NewParallelExecutorFromConfig(&config.PerformanceConfig{MaxGoroutines: 2})

	var ran atomic.Bool
	tasks := []domain.ExecutableTask{
		contractTask("Panicky", func(ctx context.Context) error { panic("index out of range") }),
		contractTask("Token", func(ctx context.Context) error { ran.Store(true); return nil }),
	}

	err := executor.Execute(context.Background(), tasks)

	var aggErr *AggregatedError
	if !errors.As(err, &aggErr) || len(aggErr.Errors) != 1 {
		t.Fatalf("expected one aggregated failure, got %v", err)
	}
	var panicErr PanicError
	if !errors.As(aggErr.Errors[0], &panicErr) {
		t.Fatalf("expected PanicError, got %T", aggErr.Errors[0].Err)
	}
	if panicErr.Value != "index out of range" {
		t.Errorf("panic value = %v", panicErr.Value)
	}
	if aggErr.Errors[0].TaskName != "Panicky" {
		t.Errorf("task name = %q", aggErr.Errors[0].TaskName)
	}
	if !ran.Load() {
		t.Error("sibling should still run after a panic")
	}
}

func TestExecuteRespectsConcurrencyLimit(t *testing.T) {
	const limit = 2
	executor := NewParallelExecutorFromConfig(&config.PerformanceConfig{MaxGoroutines: limit})

	var running, peak atomic.Int32
	tasks := make([]domain.ExecutableTask, 0, 8)
	for i := 0; i < 8; i++ {
		tasks = append(tasks, contractTask(fmt.Sprintf("C%d", i), func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}

	if err := executor.Execute(context.Background(), tasks); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if peak.Load() > limit {
		t.Errorf("peak concurrency = %d, limit %d", peak.Load(), limit)
	}
}

func TestExecuteTimeoutFailsUnstartedTasks(t *testing.T) {
	executor := NewParallelExecutorFromConfig(&config.PerformanceConfig{MaxGoroutines: 1, TimeoutSeconds: 1})
	executor.timeout = 20 * time.Millisecond

	tasks := []domain.ExecutableTask{
		contractTask("Slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		contractTask("Queued1", func(ctx context.Context) error { return nil }),
		contractTask("Queued2", func(ctx context.Context) error { return nil }),
	}

	start := time.Now()
	err := executor.Execute(context.Background(), tasks)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Execute took %v, deadline was not enforced", elapsed)
	}

	got := failedNames(t, err)
	want := []string{"Queued1", "Queued2", "Slow"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("failed = %v, want %v", got, want)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	executor := NewParallelExecutorFromConfig(&config.PerformanceConfig{MaxGoroutines: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	tasks := []domain.ExecutableTask{
		contractTask("A", func(ctx context.Context) error { ran.Add(1); return nil }),
		contractTask("B", func(ctx context.Context) error { ran.Add(1); return nil }),
	}

	err := executor.Execute(ctx, tasks)
	if got := failedNames(t, err); len(got) != 2 {
		t.Errorf("failed = %v, want both tasks", got)
	}
	if ran.Load() != 0 {
		t.Errorf("%d tasks ran after cancellation", ran.Load())
	}
}

func TestExecuteReportsProgress(t *testing.T) {
	pm := &recordingProgress{}
	executor := NewParallelExecutorWithProgress(&config.PerformanceConfig{MaxGoroutines: 2}, pm)
	executor.SetLabel("Scanning 2 contracts")

	tasks := []domain.ExecutableTask{
		contractTask("Token", func(ctx context.Context) error { return nil }),
		contractTask("Vault", func(ctx context.Context) error { return errors.New("boom") }),
		&disabledTask{},
	}
	_ = executor.Execute(context.Background(), tasks)

	if pm.label != "Scanning 2 contracts" {
		t.Errorf("label = %q", pm.label)
	}
	if pm.total != 2 {
		t.Errorf("total = %d, want enabled task count 2", pm.total)
	}
	if pm.increments != 2 {
		t.Errorf("increments = %d, failures count as progress too", pm.increments)
	}
	sort.Strings(pm.descriptions)
	if strings.Join(pm.descriptions, ",") != "Token,Vault" {
		t.Errorf("descriptions = %v", pm.descriptions)
	}
	if !pm.completed {
		t.Error("progress was not completed")
	}
}

func TestSetLabelIgnoresEmpty(t *testing.T) {
	executor := NewParallelExecutorFromConfig(&config.PerformanceConfig{})
	executor.SetLabel("Scanning batch")
	executor.SetLabel("")

	if executor.label != "Scanning batch" {
		t.Errorf("label = %q", executor.label)
	}
}

func TestScanTaskPassesCodeAndName(t *testing.T) {
	var gotCode, gotName string
	task := &scanTask{
		name: "Vault",
		code: "contract Vault {}",
		run: func(ctx context.Context, code, name string) error {
			gotCode, gotName = code, name
			return nil
		},
	}

	if task.Name() != "Vault" || !task.IsEnabled() {
		t.Fatalf("unexpected task identity %q enabled=%v", task.Name(), task.IsEnabled())
	}
	if _, err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotCode != "contract Vault {}" || gotName != "Vault" {
		t.Errorf("run received (%q, %q)", gotCode, gotName)
	}
}

func TestAggregatedErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		errs     []TaskError
		contains string
	}{
		{"none", nil, "no errors"},
		{"single", []TaskError{{TaskName: "Vault", Err: errors.New("bad pragma")}}, "[Vault] bad pragma"},
		{"several", []TaskError{
			{TaskName: "A", Err: errors.New("x")},
			{TaskName: "B", Err: errors.New("y")},
		}, "2 contracts failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &AggregatedError{Errors: tt.errs}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", err.Error(), tt.contains)
			}
		})
	}

	if (&AggregatedError{}).Unwrap() != nil {
		t.Error("empty AggregatedError should unwrap to nil")
	}
}
