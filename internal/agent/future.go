package agent

import (
	"context"

	"github.com/crewkit/crewkit/pkg/models"
)

// Future is a non-blocking handle to an in-flight task execution. The
// engine buffers futures in enqueue order and resolves them at flush
// barriers; Wait never returns before the execution has finished or the
// context is canceled.
type Future struct {
	done   chan struct{}
	result models.TaskResult
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve records the outcome and wakes all waiters. Must be called once.
func (f *Future) resolve(result models.TaskResult, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Wait blocks until the execution completes or ctx is canceled, then
// returns the result.
func (f *Future) Wait(ctx context.Context) (models.TaskResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return models.TaskResult{}, ctx.Err()
	}
}

// Done returns a channel closed when the execution has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}
