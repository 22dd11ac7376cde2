package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling the provider while its breaker is open.
var ErrCircuitOpen = errors.New("llm: circuit breaker is open")

// CircuitState is the state of a circuit breaker.
type CircuitState int

// Circuit states. The numeric values are exported as a metric.
const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns the upper-case state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

func stateOf(s gobreaker.State) CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return CircuitOpen
	case gobreaker.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// ConsecutiveThreshold is the number of consecutive failures that opens the circuit.
	ConsecutiveThreshold int
	// Cooldown is how long the circuit stays open before a trial call is allowed.
	Cooldown time.Duration
	// WindowSize is the number of recent calls kept for the reported failure rate.
	WindowSize int
	// OnStateChange is called on every transition, with the breaker's lock
	// held. It must not call back into the breaker.
	OnStateChange func(name string, from, to CircuitState)
}

const (
	defaultConsecutiveThreshold = 3
	defaultCooldown             = 30 * time.Second
	defaultWindowSize           = 10
)

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.ConsecutiveThreshold <= 0 {
		c.ConsecutiveThreshold = defaultConsecutiveThreshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = defaultCooldown
	}
	if c.WindowSize <= 0 {
		c.WindowSize = defaultWindowSize
	}
	return c
}

// BreakerSnapshot is a point-in-time view of a breaker.
type BreakerSnapshot struct {
	State CircuitState
	// FailureRate is the percentage of failed calls in the window, or -1
	// when no call has been recorded yet.
	FailureRate     float64
	BufferedCalls   int
	FailedCalls     int
	SuccessfulCalls int
	// NotPermittedCalls counts calls rejected while the circuit was open.
	NotPermittedCalls int64
}

// callerGoneError marks a failure caused by the caller's own context.
// The breaker counts it as a success so it never trips the circuit.
type callerGoneError struct{ err error }

func (e callerGoneError) Error() string { return e.err.Error() }
func (e callerGoneError) Unwrap() error { return e.err }

// CircuitBreaker stops calls to a failing dependency for a cooldown period.
// After the cooldown a single trial call decides whether the circuit closes
// again or reopens. State handling is delegated to gobreaker; the breaker
// adds a window of recent outcomes for reporting.
type CircuitBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[string]

	mu         sync.Mutex
	windowSize int
	window     []bool
	next       int
	rejected   int64
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg = cfg.withDefaults()
	threshold := uint32(cfg.ConsecutiveThreshold)

	b := &CircuitBreaker{
		name:       name,
		windowSize: cfg.WindowSize,
		window:     make([]bool, 0, cfg.WindowSize),
	}
	b.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var gone callerGoneError
			return err == nil || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, stateOf(from), stateOf(to))
			}
		},
	})
	return b
}

// Name returns the breaker name.
func (b *CircuitBreaker) Name() string { return b.name }

// Execute runs fn unless the circuit is open, in which case it returns
// ErrCircuitOpen without calling fn. Failures after ctx is done are not
// held against the dependency.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func() (string, error)) (string, error) {
	text, err := b.cb.Execute(func() (string, error) {
		text, err := fn()
		if err != nil && ctx.Err() != nil {
			return "", callerGoneError{err: err}
		}
		b.push(err == nil)
		return text, err
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.mu.Lock()
		b.rejected++
		b.mu.Unlock()
		return "", ErrCircuitOpen
	}
	var gone callerGoneError
	if errors.As(err, &gone) {
		return "", gone.err
	}
	return text, err
}

// State returns the current state.
func (b *CircuitBreaker) State() CircuitState {
	return stateOf(b.cb.State())
}

// Snapshot returns the state and call counts of the recent window.
func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	state := b.State()

	b.mu.Lock()
	defer b.mu.Unlock()

	snap := BreakerSnapshot{
		State:             state,
		FailureRate:       -1,
		BufferedCalls:     len(b.window),
		NotPermittedCalls: b.rejected,
	}
	for _, ok := range b.window {
		if ok {
			snap.SuccessfulCalls++
		} else {
			snap.FailedCalls++
		}
	}
	if snap.BufferedCalls > 0 {
		snap.FailureRate = float64(snap.FailedCalls) * 100 / float64(snap.BufferedCalls)
	}
	return snap
}

// push adds an outcome to the ring buffer.
func (b *CircuitBreaker) push(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.window) < b.windowSize {
		b.window = append(b.window, success)
		return
	}
	b.window[b.next] = success
	b.next = (b.next + 1) % b.windowSize
}

// BreakerRegistry hands out named circuit breakers, creating them on first use.
// It is safe for concurrent use.
type BreakerRegistry struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates a registry whose breakers all use cfg.
func NewBreakerRegistry(cfg CircuitBreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		cfg:      cfg,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, r.cfg)
	r.breakers[name] = b
	return b
}

// Names returns the registered breaker names in sorted order.
func (r *BreakerRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshots returns a snapshot of every registered breaker keyed by name.
func (r *BreakerRegistry) Snapshots() map[string]BreakerSnapshot {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	out := make(map[string]BreakerSnapshot, len(breakers))
	for _, b := range breakers {
		out[b.name] = b.Snapshot()
	}
	return out
}

// BreakerCompleter guards a Completer with a circuit breaker. Rejected calls
// fail fast with ErrCircuitOpen, which the Engine turns into its usual
// fallback replies.
type BreakerCompleter struct {
	inner   Completer
	breaker *CircuitBreaker
}

// NewBreakerCompleter wraps inner with breaker.
func NewBreakerCompleter(inner Completer, breaker *CircuitBreaker) *BreakerCompleter {
	return &BreakerCompleter{inner: inner, breaker: breaker}
}

// Complete implements Completer.
func (c *BreakerCompleter) Complete(ctx context.Context, req Request) (string, error) {
	text, err := c.breaker.Execute(ctx, func() (string, error) {
		return c.inner.Complete(ctx, req)
	})
	if errors.Is(err, ErrCircuitOpen) {
		return "", fmt.Errorf("%s: %w", c.inner.Provider(), err)
	}
	return text, err
}

// Provider implements Completer.
func (c *BreakerCompleter) Provider() string { return c.inner.Provider() }

// Model implements Completer.
func (c *BreakerCompleter) Model() string { return c.inner.Model() }
