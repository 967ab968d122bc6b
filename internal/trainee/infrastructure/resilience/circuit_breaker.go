package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is a circuit breaker's state.
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

// CircuitBreakerConfig configures one breaker, one per outbound SPI.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold uint32
	SuccessThreshold uint32
	Timeout          time.Duration
	OnStateChange    func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns sensible defaults for an SPI call.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          60 * time.Second,
	}
}

// CircuitBreaker trips after FailureThreshold consecutive failures and
// refuses calls for Timeout before probing with a single half-open request.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	consecutiveFail uint32
	halfOpenSuccess uint32
	openedAt        time.Time
}

// NewCircuitBreaker creates a new CircuitBreaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{config: config, state: StateClosed}
}

// State returns the breaker's current state, advancing Open to HalfOpen
// once Timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.Timeout {
		cb.setStateLocked(StateHalfOpen)
	}
	return cb.state
}

// ExecuteContext runs fn if the circuit allows it, recording the outcome.
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.currentStateLocked() == StateOpen {
		return fmt.Errorf("%s: %w", cb.config.Name, ErrCircuitOpen)
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.onSuccessLocked()
		return
	}
	cb.onFailureLocked()
}

func (cb *CircuitBreaker) onSuccessLocked() {
	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.config.SuccessThreshold {
			cb.setStateLocked(StateClosed)
		}
	case StateClosed:
		cb.consecutiveFail = 0
	}
}

func (cb *CircuitBreaker) onFailureLocked() {
	switch cb.state {
	case StateHalfOpen:
		cb.setStateLocked(StateOpen)
	case StateClosed:
		cb.consecutiveFail++
		if cb.consecutiveFail >= cb.config.FailureThreshold {
			cb.setStateLocked(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) setStateLocked(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	switch to {
	case StateOpen:
		cb.openedAt = time.Now()
	case StateHalfOpen:
		cb.halfOpenSuccess = 0
	case StateClosed:
		cb.consecutiveFail = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// Registry hands out one CircuitBreaker per named SPI, lazily created with
// defaultConfig's shape.
type Registry struct {
	defaultConfig CircuitBreakerConfig
	mu            sync.RWMutex
	breakers      map[string]*CircuitBreaker
}

// NewRegistry creates a new Registry.
func NewRegistry(defaultConfig CircuitBreakerConfig) *Registry {
	return &Registry{defaultConfig: defaultConfig, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the named breaker, creating it on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cfg := r.defaultConfig
	cfg.Name = name
	cb = NewCircuitBreaker(cfg)
	r.breakers[name] = cb
	return cb
}
