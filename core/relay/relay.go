// Package relay routes SIGINT to the foreground child or, when nothing is
// running, to the line being evaluated.
package relay

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Action is what the relay did with an interrupt.
type Action int

const (
	// Forwarded means SIGINT was sent to the foreground child.
	Forwarded Action = iota
	// Unwound means the current line's context was cancelled.
	Unwound
	// Ignored means there was neither a child nor a line to interrupt.
	Ignored
)

func (a Action) String() string {
	switch a {
	case Forwarded:
		return "forwarded"
	case Unwound:
		return "unwound"
	default:
		return "ignored"
	}
}

// Relay holds the foreground child pid, 0 when idle.
type Relay struct {
	fg atomic.Int64

	// Kill sends a signal to a process, unix.Kill when nil.
	Kill func(pid int, sig unix.Signal) error
	// OnInterrupt, if set, is called after every handled interrupt.
	OnInterrupt func(action Action, pid int)

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a relay that signals real processes.
func New() *Relay {
	return &Relay{Kill: unix.Kill}
}

// SetForeground records pid as the running foreground child.
func (r *Relay) SetForeground(pid int) {
	r.fg.Store(int64(pid))
}

// ClearForeground marks the relay idle once pid has finished. It reports
// whether an interrupt was forwarded to pid while it ran.
func (r *Relay) ClearForeground(pid int) (forwarded bool) {
	return !r.fg.CompareAndSwap(int64(pid), 0)
}

// Foreground returns the foreground child pid or 0.
func (r *Relay) Foreground() int {
	return int(r.fg.Load())
}

// LineContext derives the context a single input line runs under. An
// interrupt with no foreground child cancels it. The returned cancel func
// must be called once the line finishes.
func (r *Relay) LineContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}
}

// Interrupt handles one SIGINT.
func (r *Relay) Interrupt() Action {
	action, pid := r.interrupt()
	if r.OnInterrupt != nil {
		r.OnInterrupt(action, pid)
	}
	return action
}

func (r *Relay) interrupt() (Action, int) {
	if pid := int(r.fg.Swap(0)); pid != 0 {
		kill := r.Kill
		if kill == nil {
			kill = unix.Kill
		}
		// The child may already have exited.
		_ = kill(pid, unix.SIGINT)
		return Forwarded, pid
	}

	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return Ignored, 0
	}
	cancel()
	return Unwound, 0
}

// Start installs the SIGINT handler. The returned func uninstalls it.
func (r *Relay) Start() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigs:
				r.Interrupt()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
