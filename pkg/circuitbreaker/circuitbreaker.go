package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without calling the operation while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config controls when a breaker opens and how it probes for recovery.
// A FailureThreshold of zero disables the breaker.
type Config struct {
	FailureThreshold int
	// Cool-down before an open breaker lets one probe through.
	Timeout time.Duration
	// IsFailure decides which errors count towards the threshold. Nil
	// counts every non-nil error.
	IsFailure func(error) bool
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
	}
}

// Breaker guards one remote endpoint. Consecutive failures open it, one
// successful probe after the cool-down closes it again.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	onStateChange func(from, to State)
}

func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers a callback invoked with the breaker lock released.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	b.onStateChange = fn
	b.mu.Unlock()
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Failures returns the current run of consecutive counted failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Execute runs fn unless the breaker is open. Cancellation of ctx never
// counts as a failure.
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b == nil || b.cfg.FailureThreshold <= 0 {
		return fn(ctx)
	}
	if err := b.acquire(); err != nil {
		return zero, err
	}

	v, err := fn(ctx)
	b.release(err != nil && ctx.Err() == nil && b.counts(err))
	return v, err
}

func (b *Breaker) counts(err error) bool {
	if b.cfg.IsFailure == nil {
		return true
	}
	return b.cfg.IsFailure(err)
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	from := b.state
	state := b.currentState()
	switch {
	case state == StateOpen, state == StateHalfOpen && b.probing:
		b.mu.Unlock()
		return ErrOpen
	case state == StateHalfOpen:
		b.probing = true
	}
	b.state = state
	notify := b.transition(from, state)
	b.mu.Unlock()
	notify()
	return nil
}

func (b *Breaker) release(failed bool) {
	b.mu.Lock()
	from := b.state
	b.probing = false
	if failed {
		b.failures++
		if from == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	} else {
		b.failures = 0
		b.state = StateClosed
	}
	notify := b.transition(from, b.state)
	b.mu.Unlock()
	notify()
}

// currentState promotes an expired open state to half-open. Caller holds mu.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Timeout {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) transition(from, to State) func() {
	fn := b.onStateChange
	if from == to || fn == nil {
		return func() {}
	}
	return func() { fn(from, to) }
}
