package services

import (
	"context"
	"sync"
	"time"

	"github.com/courseportal/backend/pkg/logger"
)

type task struct {
	name string
	run  func(ctx context.Context) error
}

// TaskRunner executes fire-and-forget jobs off the request path. Failures are
// logged and dropped; nothing propagates back to the submitter.
type TaskRunner struct {
	queue   chan task
	wg      sync.WaitGroup
	timeout time.Duration
	once    sync.Once
}

func NewTaskRunner(bufferSize int) *TaskRunner {
	if bufferSize < 1 {
		bufferSize = 100
	}
	r := &TaskRunner{
		queue:   make(chan task, bufferSize),
		timeout: 30 * time.Second,
	}
	go r.work()
	return r
}

func (r *TaskRunner) Submit(name string, run func(ctx context.Context) error) {
	r.wg.Add(1)
	select {
	case r.queue <- task{name: name, run: run}:
	default:
		r.wg.Done()
		logger.Warn("task_queue_full", map[string]interface{}{
			"task":    name,
			"dropped": true,
		})
	}
}

func (r *TaskRunner) work() {
	for t := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := t.run(ctx); err != nil {
			logger.Warn("background_task_failed", map[string]interface{}{
				"task":  t.name,
				"error": err.Error(),
			})
		}
		cancel()
		r.wg.Done()
	}
}

// Wait blocks until every submitted task has finished.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}

func (r *TaskRunner) Close() {
	r.once.Do(func() {
		r.wg.Wait()
		close(r.queue)
	})
}
