// Package app runs the tracker and viewer roles on a single dispatch loop.
// Transports, the XR platform and the UI only post events; all state is
// mutated by the goroutine running Loop.Run.
package app

import (
	"context"
	"time"

	"github.com/BioHazard786/posebridge/internal/timeutil"
)

// Handler is a role driven by the loop.
type Handler interface {
	// Handle applies one event and reports whether the loop should stop.
	Handle(ev any) bool
	// Tick runs once per display refresh.
	Tick(now time.Time)
}

// Loop serialises events and refresh ticks onto one goroutine.
type Loop struct {
	clock    timeutil.Clock
	interval time.Duration
	events   chan any
	done     chan struct{}
}

// NewLoop creates a loop ticking every interval.
func NewLoop(clock timeutil.Clock, interval time.Duration) *Loop {
	return &Loop{
		clock:    clock,
		interval: interval,
		events:   make(chan any, 256),
		done:     make(chan struct{}),
	}
}

// Post queues ev. It blocks while the queue is full and reports false once
// the loop has stopped. Handlers must not call it synchronously.
func (l *Loop) Post(ev any) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- ev:
		return true
	case <-l.done:
		return false
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run dispatches until ctx is cancelled or h asks to stop.
func (l *Loop) Run(ctx context.Context, h Handler) {
	defer close(l.done)

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.events:
			if h.Handle(ev) {
				return
			}
		case now := <-ticker.C():
			h.Tick(now)
		}
	}
}
