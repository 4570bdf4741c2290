// Package batch is the orchestration engine: the per-scene task executor,
// the bounded worker pool, the progress tracker, and the multi-wave
// sequencer that drives remediation passes over the scene list.
package batch

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// ShutdownController is the process-wide cancellation token with
// two-stage interrupt semantics: the first interrupt requests a graceful
// stop (in-flight tasks drain, no new work starts, no further waves), the
// second terminates the process immediately. The flag is set only from
// the interrupt path and read everywhere else.
type ShutdownController struct {
	requested  atomic.Bool
	interrupts atomic.Int32
	done       chan struct{}
	closeOnce  sync.Once

	// exit is swapped in tests; defaults to os.Exit.
	exit func(code int)
	// notify is called on the first interrupt to print the resume hint.
	notify func(first bool)
}

func NewShutdownController() *ShutdownController {
	return &ShutdownController{
		done: make(chan struct{}),
		exit: os.Exit,
	}
}

// OnInterrupt sets a callback invoked on each interrupt, before any exit.
func (s *ShutdownController) OnInterrupt(fn func(first bool)) {
	s.notify = fn
}

// Install registers the SIGINT/SIGTERM handler.
func (s *ShutdownController) Install() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sigCh {
			s.RequestShutdown()
		}
	}()
}

// RequestShutdown records an interrupt. The first request flips the flag
// and returns true; the second terminates the process. Also called
// directly by the interactive dashboard, which owns the terminal and
// receives ctrl+c as a key instead of a signal.
func (s *ShutdownController) RequestShutdown() bool {
	n := s.interrupts.Add(1)
	first := n == 1
	if s.notify != nil {
		s.notify(first)
	}
	if first {
		s.requested.Store(true)
		s.closeOnce.Do(func() { close(s.done) })
		return true
	}
	s.exit(1)
	return false
}

// Requested reports whether a graceful shutdown is pending.
func (s *ShutdownController) Requested() bool {
	return s.requested.Load()
}

// Done is closed when a graceful shutdown has been requested.
func (s *ShutdownController) Done() <-chan struct{} {
	return s.done
}
