package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolStopped is returned by Do after Stop.
var ErrPoolStopped = errors.New("run pool stopped")

// job is a unit of work executed on a pool goroutine.
type job struct {
	ctx  context.Context
	fn   func(context.Context) any
	done chan jobResult
}

// jobResult holds the return value from a job.
type jobResult struct {
	value any
	err   error
}

// RunPool executes interpreter work on a fixed number of goroutines. Each
// interpreter is single-threaded; the pool bounds how many run at once.
type RunPool struct {
	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewRunPool creates a RunPool with size workers and starts them.
func NewRunPool(size int) *RunPool {
	if size <= 0 {
		size = 1
	}
	p := &RunPool{
		jobs: make(chan job),
		quit: make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.loop()
	}
	return p
}

// loop processes jobs sequentially on one worker goroutine.
func (p *RunPool) loop() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			j.done <- p.execute(j)
		case <-p.quit:
			return
		}
	}
}

// execute runs a job, recovering from panics.
func (p *RunPool) execute(j job) (result jobResult) {
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("%v", r)
		}
	}()
	result.value = j.fn(j.ctx)
	return result
}

// Do runs fn on a pool goroutine and blocks until it completes. It waits
// for a free worker until ctx is done. fn receives ctx and should stop
// early once it is cancelled.
func (p *RunPool) Do(ctx context.Context, fn func(context.Context) any) (any, error) {
	j := job{
		ctx:  ctx,
		fn:   fn,
		done: make(chan jobResult, 1),
	}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolStopped
	}
	result := <-j.done
	return result.value, result.err
}

// Stop shuts down the workers after their current jobs finish.
func (p *RunPool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
