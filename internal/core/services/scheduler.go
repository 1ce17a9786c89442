package services

import (
	"context"
	"sync"
	"time"

	"cloudslam/internal/core/ports"
)

// Scheduler is the single-threaded main update loop. Work posted from any
// goroutine runs on the next Tick, in arrival order, before the registered
// updaters. Work posted while a tick is draining runs on the following tick.
type Scheduler struct {
	mu       sync.Mutex
	pending  []func()
	draining []func()

	updaters []ports.Updater
}

var _ ports.Dispatcher = (*Scheduler)(nil)

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Post queues fn for the next tick. Safe for concurrent use.
func (s *Scheduler) Post(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

// AddUpdater registers u to run every tick. Must be called from the main
// loop or before it starts.
func (s *Scheduler) AddUpdater(u ports.Updater) {
	s.updaters = append(s.updaters, u)
}

// Tick drains queued work and then runs every updater once.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.pending, s.draining = s.draining[:0], s.pending
	s.mu.Unlock()

	for i, fn := range s.draining {
		fn()
		s.draining[i] = nil
	}

	for _, u := range s.updaters {
		u.Update()
	}
}

// Pending returns the number of queued functions.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run ticks at the given interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Tick()
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}
