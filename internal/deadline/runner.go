// Package deadline enforces a hard wall-clock budget on operations whose
// underlying I/O cannot be reliably interrupted. The operation runs on its
// own goroutine; the caller blocks on a result channel with a bounded
// wait. On timeout the goroutine is abandoned, not killed: its context is
// cancelled so well-behaved HTTP calls unwind, but a call stuck in
// uncancellable I/O keeps its goroutine until it returns, at which point
// the late result is discarded. This leaks a bounded amount of work per
// timeout in exchange for a deterministic answer to the orchestrator,
// which is the right trade for a pool that must never stall on one URL.
package deadline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rotisserie/eris"
)

// Status tags the outcome of a deadline-bounded run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Outcome is the structured result of Run. Exactly one of the three
// statuses is set; Err and Stack are populated for error outcomes, and
// Err describes the budget for timeout outcomes.
type Outcome[T any] struct {
	Status  Status
	Value   T
	Err     error
	Stack   string
	Elapsed time.Duration
}

// TimedOut reports whether the budget expired before the operation finished.
func (o Outcome[T]) TimedOut() bool {
	return o.Status == StatusTimeout
}

type tagged[T any] struct {
	value T
	err   error
	stack string
}

// Run executes op with a hard wall-clock budget. The context passed to op
// is cancelled when the budget expires so cooperative callees can unwind,
// but Run returns immediately either way. Panics inside op are captured
// as error outcomes with their stack rather than crashing the worker.
func Run[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) Outcome[T] {
	start := time.Now()

	opCtx, cancel := context.WithTimeout(ctx, timeout)

	// Buffered so an abandoned goroutine's late send never blocks.
	results := make(chan tagged[T], 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				results <- tagged[T]{
					value: zero,
					err:   eris.Errorf("deadline: operation panicked: %v", r),
					stack: string(debug.Stack()),
				}
			}
		}()
		v, err := op(opCtx)
		results <- tagged[T]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		cancel()
		out := Outcome[T]{Value: res.value, Elapsed: time.Since(start)}
		if res.err != nil {
			out.Status = StatusError
			out.Err = res.err
			out.Stack = res.stack
			if out.Stack == "" {
				out.Stack = eris.ToString(res.err, true)
			}
			return out
		}
		out.Status = StatusSuccess
		return out

	case <-timer.C:
		// Abandon the worker. cancel() signals the op's context; we do not
		// wait for it to notice.
		cancel()
		var zero T
		return Outcome[T]{
			Status:  StatusTimeout,
			Value:   zero,
			Err:     fmt.Errorf("deadline: timed out after %s", timeout),
			Elapsed: time.Since(start),
		}
	}
}
