package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
)

// DefaultTimeout bounds a batch when no timeout is configured
const DefaultTimeout = 5 * time.Minute

// TaskError is the failure of one contract scan in a batch
type TaskError struct {
	TaskName string
	Err      error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError collects every failed scan of a batch
type AggregatedError struct {
	Errors []TaskError
}

func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d contracts failed:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  %s\n", err.Error())
	}
	return sb.String()
}

// Unwrap exposes the first failure to errors.Is/As
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// PanicError reports a scan that panicked instead of returning
type PanicError struct {
	Value interface{}
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParallelExecutorImpl runs batch scans with bounded concurrency and a batch deadline
type ParallelExecutorImpl struct {
	maxConcurrency int
	timeout        time.Duration
	progress       domain.ProgressManager
	label          string
}

var _ domain.ParallelExecutor = (*ParallelExecutorImpl)(nil)

const defaultProgressLabel = "Scanning contracts"

// NewParallelExecutorFromConfig creates an executor from the performance section
func NewParallelExecutorFromConfig(cfg *config.PerformanceConfig) *ParallelExecutorImpl {
	maxConcurrency := cfg.MaxGoroutines
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &ParallelExecutorImpl{
		maxConcurrency: maxConcurrency,
		timeout:        timeout,
		label:          defaultProgressLabel,
	}
}

// NewParallelExecutorWithProgress creates an executor that reports to pm
func NewParallelExecutorWithProgress(cfg *config.PerformanceConfig, pm domain.ProgressManager) *ParallelExecutorImpl {
	executor := NewParallelExecutorFromConfig(cfg)
	executor.progress = pm
	return executor
}

// SetLabel sets the progress description; call it before Execute
func (e *ParallelExecutorImpl) SetLabel(label string) {
	if label != "" {
		e.label = label
	}
}

// Execute runs every enabled task. A failing task never stops its siblings;
// all failures come back in one AggregatedError.
func (e *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	enabled := make([]domain.ExecutableTask, 0, len(tasks))
	for _, t := range tasks {
		if t.IsEnabled() {
			enabled = append(enabled, t)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var bar domain.TaskProgress = &NoOpTaskProgress{}
	if e.progress != nil {
		bar = e.progress.StartTask(e.label, len(enabled))
	}
	defer bar.Complete()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)

	var mu sync.Mutex
	var failures []TaskError
	record := func(name string, err error) {
		mu.Lock()
		failures = append(failures, TaskError{TaskName: name, Err: err})
		mu.Unlock()
	}

	for _, t := range enabled {
		t := t
		g.Go(func() error {
			defer bar.Increment(1)

			// a task that never starts still counts as failed
			if err := gCtx.Err(); err != nil {
				record(t.Name(), err)
				return nil
			}

			bar.Describe(t.Name())
			if err := runTask(gCtx, t); err != nil {
				record(t.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return &AggregatedError{Errors: failures}
	}
	return nil
}

// runTask executes t, turning a panic into a PanicError
func runTask(ctx context.Context, t domain.ExecutableTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r}
		}
	}()
	_, err = t.Execute(ctx)
	return err
}
