package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	// CircuitClosed allows all loads through.
	CircuitClosed CircuitBreakerState = iota
	// CircuitOpen rejects loads until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen allows a limited number of probe loads.
	CircuitHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures failure thresholds and recovery timing.
type CircuitBreakerConfig struct {
	// MaxFailures before opening the circuit
	MaxFailures int
	// ResetTimeout before attempting recovery
	ResetTimeout time.Duration
	// HalfOpenMaxCalls allowed in half-open state
	HalfOpenMaxCalls int
}

// DefaultCircuitBreakerConfig returns the default breaker settings.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker protects the referential source from repeated load attempts
// while it is failing.
type CircuitBreaker struct {
	name   string
	config *CircuitBreakerConfig

	mu            sync.Mutex
	state         CircuitBreakerState
	failures      int
	lastFailure   time.Time
	halfOpenCalls int

	metrics *MetricsRecorder
	logger  *zerolog.Logger
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(name string, config *CircuitBreakerConfig, metrics *MetricsRecorder, logger *zerolog.Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &CircuitBreaker{
		name:    name,
		config:  config,
		state:   CircuitClosed,
		metrics: metrics,
		logger:  logger,
	}
}

// Allow reports whether a load may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if time.Since(cb.lastFailure) >= cb.config.ResetTimeout {
			cb.transitionTo(CircuitHalfOpen)
			cb.halfOpenCalls = 1
			return true
		}
		return false

	case CircuitHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
		return false

	default:
		return false
	}
}

// RecordSuccess notes a successful load and may close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.transitionTo(CircuitClosed)
		cb.failures = 0
		cb.halfOpenCalls = 0
	case CircuitClosed:
		cb.failures = 0
	}
}

// RecordFailure notes a failed load and may open the circuit.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch cb.state {
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
		cb.halfOpenCalls = 0
		cb.logger.Warn().
			Str("breaker", cb.name).
			Err(err).
			Msg("Circuit breaker reopened after failed probe")

	case CircuitClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.transitionTo(CircuitOpen)
			cb.logger.Error().
				Str("breaker", cb.name).
				Int("failures", cb.failures).
				Err(err).
				Msg("Circuit breaker opened")
		}
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transitionTo(CircuitClosed)
	cb.failures = 0
	cb.halfOpenCalls = 0
	cb.logger.Info().Str("breaker", cb.name).Msg("Circuit breaker manually reset")
}

// transitionTo changes state. Caller must hold cb.mu.
func (cb *CircuitBreaker) transitionTo(state CircuitBreakerState) {
	if cb.state == state {
		return
	}
	cb.state = state
	if cb.metrics != nil {
		cb.metrics.RecordBreakerState(state)
	}
}

// WarmupGate blocks requests until the initial referential load completes.
type WarmupGate struct {
	mu       sync.RWMutex
	ready    bool
	warmedCh chan struct{}
	logger   *zerolog.Logger
}

// NewWarmupGate creates a gate in the not-ready state.
func NewWarmupGate(logger *zerolog.Logger) *WarmupGate {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &WarmupGate{
		warmedCh: make(chan struct{}),
		logger:   logger,
	}
}

// Ready marks warmup as complete and releases all waiters. Idempotent.
func (g *WarmupGate) Ready() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready {
		return
	}
	g.ready = true
	close(g.warmedCh)
	g.logger.Info().Msg("Warmup gate opened")
}

// IsReady reports whether warmup has completed.
func (g *WarmupGate) IsReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}

// Wait blocks until warmup completes or ctx is cancelled.
// Returns false if the context was cancelled first.
func (g *WarmupGate) Wait(ctx context.Context) bool {
	if g.IsReady() {
		return true
	}
	select {
	case <-g.warmedCh:
		return true
	case <-ctx.Done():
		return false
	}
}
