package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/convopilot/logging"
)

// State enumerates the circuit breaker states.
type State int

const (
	// StateClosed lets calls pass through to the dependency.
	StateClosed State = iota
	// StateOpen fails calls immediately without attempting the dependency.
	StateOpen
	// StateHalfOpen allows a single trial call to probe recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitOpenError is returned by Execute while the circuit is open and the
// reset timeout has not elapsed; the wrapped function is not invoked.
type CircuitOpenError struct {
	Operation string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s", e.Operation)
}

// Options configures a Breaker.
type Options struct {
	// FailureThreshold is the consecutive failure count that trips the
	// circuit from CLOSED to OPEN.
	FailureThreshold int
	// ResetTimeout is the cooldown after entering OPEN before a trial call is
	// allowed (OPEN -> HALF_OPEN).
	ResetTimeout time.Duration
	// OnStateChange is invoked on every transition while the breaker lock is
	// held; keep it fast and do not call back into the breaker. Optional.
	OnStateChange func(operation string, from, to State)
	// Logger receives structured diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Breaker is a circuit breaker protecting a single named external operation.
// State transitions are atomic relative to concurrent callers.
//
// Transitions:
//
//	CLOSED    -> OPEN       after FailureThreshold consecutive failures
//	OPEN      -> HALF_OPEN  once ResetTimeout has elapsed (on call or health tick)
//	HALF_OPEN -> CLOSED     on a successful trial call (failure count reset)
//	HALF_OPEN -> OPEN       on a failed trial call (timer restarts)
type Breaker struct {
	operation        string
	failureThreshold int
	resetTimeout     time.Duration
	onStateChange    func(operation string, from, to State)
	logger           logging.Logger

	mu              sync.Mutex
	state           State
	failures        int
	lastStateChange time.Time
	lastErr         error
	trialInFlight   bool
}

// NewBreaker constructs a Breaker for the named operation with optional overrides.
func NewBreaker(operation string, optFns ...func(o *Options)) *Breaker {
	opts := Options{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Breaker{
		operation:        operation,
		failureThreshold: opts.FailureThreshold,
		resetTimeout:     opts.ResetTimeout,
		onStateChange:    opts.OnStateChange,
		logger:           logging.OrDefault(opts.Logger),
		state:            StateClosed,
		lastStateChange:  time.Now(),
	}
}

// Execute runs fn under the breaker. While OPEN and within the reset timeout
// it fails fast with *CircuitOpenError without invoking fn. In HALF_OPEN only
// a single trial call is admitted; concurrent callers fail fast until the
// trial settles.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if err := b.admit(); err != nil {
		return "", err
	}

	result, err := fn(ctx)
	b.settle(err)
	if err != nil {
		return "", err
	}
	return result, nil
}

// admit decides whether a call may proceed, applying the OPEN -> HALF_OPEN
// transition when the reset timeout has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastStateChange) < b.resetTimeout {
			return &CircuitOpenError{Operation: b.operation}
		}
		b.transitionLocked(StateHalfOpen)
		b.trialInFlight = true
		return nil
	case StateHalfOpen:
		if b.trialInFlight {
			return &CircuitOpenError{Operation: b.operation}
		}
		b.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// settle records a call outcome and applies the resulting transition.
func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false

	if err == nil {
		b.failures = 0
		// Close only from HALF_OPEN. A call admitted while CLOSED can finish
		// after a concurrent failure has opened the circuit; its success must
		// not short-circuit the reset timeout and trial.
		if b.state == StateHalfOpen {
			b.transitionLocked(StateClosed)
		}
		return
	}

	b.failures++
	b.lastErr = err

	switch b.state {
	case StateHalfOpen:
		b.transitionLocked(StateOpen)
	case StateClosed:
		if b.failures >= b.failureThreshold {
			b.transitionLocked(StateOpen)
		}
	}
}

// HealthCheck applies the OPEN -> HALF_OPEN transition when the reset timeout
// has elapsed, so recovery does not depend on caller traffic.
func (b *Breaker) HealthCheck() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastStateChange) >= b.resetTimeout {
		b.transitionLocked(StateHalfOpen)
	}
}

// StartHealthChecks runs HealthCheck on the given interval until ctx is done.
func (b *Breaker) StartHealthChecks(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.HealthCheck()
			}
		}
	}()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// LastError returns the most recently recorded failure, for diagnostics.
func (b *Breaker) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Operation returns the protected operation's name.
func (b *Breaker) Operation() string { return b.operation }

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	b.lastStateChange = time.Now()
	b.logger.Info("breaker.transition", "operation", b.operation, "from", from.String(), "to", to.String(), "failures", b.failures)
	if b.onStateChange != nil {
		b.onStateChange(b.operation, from, to)
	}
}
