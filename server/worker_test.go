package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPoolDo(t *testing.T) {
	p := NewRunPool(2)
	defer p.Stop()

	v, err := p.Do(context.Background(), func(context.Context) any { return 42 })
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != 42 {
		t.Errorf("Do = %v, want 42", v)
	}
}

func TestRunPoolBoundsConcurrency(t *testing.T) {
	const size = 3
	p := NewRunPool(size)
	defer p.Stop()

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Do(context.Background(), func(context.Context) any {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak > size {
		t.Errorf("peak concurrency = %d, want at most %d", peak, size)
	}
}

func TestRunPoolRecoversPanics(t *testing.T) {
	p := NewRunPool(1)
	defer p.Stop()

	_, err := p.Do(context.Background(), func(context.Context) any { panic("boom") })
	if err == nil || err.Error() != "boom" {
		t.Errorf("Do error = %v, want boom", err)
	}

	// The worker survives the panic.
	v, err := p.Do(context.Background(), func(context.Context) any { return "ok" })
	if err != nil || v != "ok" {
		t.Errorf("Do after panic = %v, %v", v, err)
	}
}

func TestRunPoolContextWhileBusy(t *testing.T) {
	p := NewRunPool(1)
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go p.Do(context.Background(), func(context.Context) any {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Do(ctx, func(context.Context) any { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do on busy pool = %v, want deadline exceeded", err)
	}
	close(release)
}

func TestRunPoolStopped(t *testing.T) {
	p := NewRunPool(1)
	p.Stop()
	p.Stop()

	_, err := p.Do(context.Background(), func(context.Context) any { return nil })
	if !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Do after Stop = %v, want ErrPoolStopped", err)
	}
}
