// Package resilience guards store calls with a circuit breaker so a failing
// database is answered with 503 service_unavailable instead of piling up
// requests.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/AlibekovAA/member-chat/internal/common/clock"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

type CircuitBreakerConfig struct {
	// Threshold consecutive failures open the circuit. Zero disables it.
	Threshold int32
	// Timeout bounds each call. Zero leaves the caller's deadline alone.
	Timeout time.Duration
	// ResetAfter is how long the circuit stays open before a probe call.
	ResetAfter time.Duration
	Name       string
	// IsExpected marks errors that are part of normal operation (not found,
	// duplicates) and must not count as failures.
	IsExpected func(error) bool
	Logger     *logger.Logger
	Clock      clock.Clock
}

// CircuitBreaker opens after Threshold consecutive unexpected failures.
// After ResetAfter a single probe call is let through (half-open): success
// closes the circuit, failure opens it again.
type CircuitBreaker struct {
	cfg   CircuitBreakerConfig
	clock clock.Clock

	mu       sync.Mutex
	state    State
	failures int32
	openedAt time.Time
	probing  bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &CircuitBreaker{cfg: cfg, clock: clk}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// IsOpen reports whether a call made now would be rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := cb.currentState()
	return s == StateOpen || (s == StateHalfOpen && cb.probing)
}

// currentState moves an expired open circuit to half-open. Caller holds mu.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && cb.clock.Since(cb.openedAt) >= cb.cfg.ResetAfter {
		cb.setState(StateHalfOpen)
	}
	return cb.state
}

// Call runs fn unless the circuit is open, in which case it returns
// commonerrors.ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if cb.cfg.Threshold <= 0 {
		return cb.run(ctx, fn)
	}

	if !cb.allow() {
		metrics.CircuitBreakerRejections.WithLabelValues(cb.cfg.Name).Inc()
		if cb.cfg.Logger != nil {
			cb.cfg.Logger.Warnf("circuit breaker [%s]: circuit is open, rejecting request", cb.cfg.Name)
		}
		return commonerrors.ErrCircuitOpen
	}

	err := cb.run(ctx, fn)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) run(ctx context.Context, fn func(context.Context) error) error {
	if cb.cfg.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, cb.cfg.Timeout)
	defer cancel()
	return fn(callCtx)
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) record(err error) {
	failed := err != nil && (cb.cfg.IsExpected == nil || !cb.cfg.IsExpected(err))

	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasProbe := cb.state == StateHalfOpen
	cb.probing = false

	if !failed {
		cb.failures = 0
		if wasProbe {
			cb.setState(StateClosed)
			cb.logf("circuit breaker [%s]: probe succeeded, circuit closed", cb.cfg.Name)
		}
		return
	}

	cb.failures++
	metrics.CircuitBreakerFailures.WithLabelValues(cb.cfg.Name).Inc()

	if wasProbe || cb.failures >= cb.cfg.Threshold {
		cb.openedAt = cb.clock.Now()
		if cb.state != StateOpen {
			cb.setState(StateOpen)
			cb.logf("circuit breaker [%s]: circuit opened after %d failures: %v", cb.cfg.Name, cb.failures, err)
		}
	}
}

func (cb *CircuitBreaker) setState(s State) {
	cb.state = s
	if cb.cfg.Name != "" {
		metrics.CircuitBreakerState.WithLabelValues(cb.cfg.Name).Set(float64(s))
	}
}

func (cb *CircuitBreaker) logf(format string, args ...any) {
	if cb.cfg.Logger != nil {
		cb.cfg.Logger.Warnf(format, args...)
	}
}
