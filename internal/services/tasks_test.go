package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestTaskRunnerExecutesSubmittedWork(t *testing.T) {
	runner := NewTaskRunner(8)
	defer runner.Close()

	var ran int64
	for i := 0; i < 5; i++ {
		runner.Submit("increment", func(context.Context) error {
			atomic.AddInt64(&ran, 1)
			return nil
		})
	}
	runner.Wait()

	if got := atomic.LoadInt64(&ran); got != 5 {
		t.Fatalf("expected 5 executions, got %d", got)
	}
}

func TestTaskRunnerSwallowsFailures(t *testing.T) {
	runner := NewTaskRunner(8)
	defer runner.Close()

	var after int64
	runner.Submit("fails", func(context.Context) error {
		return errors.New("boom")
	})
	runner.Submit("runs-anyway", func(context.Context) error {
		atomic.AddInt64(&after, 1)
		return nil
	})
	runner.Wait()

	if atomic.LoadInt64(&after) != 1 {
		t.Fatal("a failing task must not stop the worker")
	}
}
