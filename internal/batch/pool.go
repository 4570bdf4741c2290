package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"scenesync/internal/model"
)

// Pool runs task specs through an executor function with bounded
// concurrency and yields results in completion order. Workers == 1
// degenerates to strictly sequential, submission-ordered execution.
type Pool struct {
	Workers  int
	Shutdown *ShutdownController

	dispatched atomic.Int64
	cancelled  atomic.Int64
}

// Run starts the workers and returns the result stream. The channel is
// closed once every dispatched task has completed. After a shutdown
// request the dispatcher stops submitting; tasks already handed to a
// worker drain to completion rather than being killed.
func (p *Pool) Run(ctx context.Context, specs []model.TaskSpec, exec func(context.Context, model.TaskSpec) model.Result) <-chan model.Result {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	p.dispatched.Store(0)
	p.cancelled.Store(0)

	jobCh := make(chan model.TaskSpec)
	results := make(chan model.Result)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for spec := range jobCh {
				results <- exec(ctx, spec)
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for i, spec := range specs {
			if p.shutdownRequested(ctx) {
				p.cancelled.Store(int64(len(specs) - i))
				return
			}
			select {
			case jobCh <- spec:
				p.dispatched.Add(1)
			case <-p.shutdownDone():
				p.cancelled.Store(int64(len(specs) - i))
				return
			case <-ctx.Done():
				p.cancelled.Store(int64(len(specs) - i))
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// Dispatched reports how many tasks were handed to workers.
func (p *Pool) Dispatched() int {
	return int(p.dispatched.Load())
}

// Cancelled reports how many tasks were never started because of a
// shutdown request.
func (p *Pool) Cancelled() int {
	return int(p.cancelled.Load())
}

func (p *Pool) shutdownRequested(ctx context.Context) bool {
	if p.Shutdown != nil && p.Shutdown.Requested() {
		return true
	}
	return ctx.Err() != nil
}

func (p *Pool) shutdownDone() <-chan struct{} {
	if p.Shutdown != nil {
		return p.Shutdown.Done()
	}
	return nil
}
