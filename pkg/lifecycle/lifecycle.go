// Package lifecycle coordinates startup hooks, background workers, and
// graceful shutdown for long-running services.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrStopping is returned by Go once Shutdown has begun.
var ErrStopping = errors.New("lifecycle is shutting down")

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator manages startup hooks, shutdown hooks, and tracked background
// workers. Its context is cancelled when Shutdown begins.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	startupWg  sync.WaitGroup
	shutdownWg sync.WaitGroup
	workerWg   sync.WaitGroup
	workerMu   sync.Mutex
	stopping   bool
	ready      bool
	readyMu    sync.RWMutex
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a function to run concurrently during startup.
func (c *Coordinator) OnStartup(fn func()) {
	c.startupWg.Go(fn)
}

// OnShutdown registers a function to run concurrently during shutdown.
// Shutdown hooks should block on <-c.Context().Done() before executing cleanup.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(fn)
}

// Go runs fn on a tracked worker goroutine. fn receives the coordinator
// context and must return once it is cancelled. Shutdown waits for all
// workers alongside the shutdown hooks. Once Shutdown has begun, Go does
// not run fn and returns ErrStopping.
func (c *Coordinator) Go(fn func(ctx context.Context)) error {
	c.workerMu.Lock()
	defer c.workerMu.Unlock()

	if c.stopping {
		return ErrStopping
	}
	c.workerWg.Go(func() {
		fn(c.ctx)
	})
	return nil
}

// Ready returns true after all startup hooks have completed.
func (c *Coordinator) Ready() bool {
	c.readyMu.RLock()
	defer c.readyMu.RUnlock()
	return c.ready
}

// WaitForStartup blocks until all startup hooks have completed and sets the ready flag.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.readyMu.Lock()
	c.ready = true
	c.readyMu.Unlock()
}

// Shutdown cancels the context and waits for shutdown hooks and workers to
// complete within the given timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.readyMu.Lock()
	c.ready = false
	c.readyMu.Unlock()

	c.workerMu.Lock()
	c.stopping = true
	c.cancel()
	c.workerMu.Unlock()

	done := make(chan struct{})
	go func() {
		c.shutdownWg.Wait()
		c.workerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
