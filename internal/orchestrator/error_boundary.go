package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/pulse/pkg/observability"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when a protected call is rejected because its
// circuit breaker is open.
var ErrCircuitOpen = errors.New("orchestrator: circuit breaker open")

// ErrorBoundaryConfig configures the circuit breaker guarding external calls
// (intent classification, LLM conversation) that the orchestrator depends on.
type ErrorBoundaryConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultErrorBoundaryConfig returns sensible defaults: trip after 5
// consecutive failures, stay open for 30s, allow 3 probes in half-open.
func DefaultErrorBoundaryConfig() ErrorBoundaryConfig {
	return ErrorBoundaryConfig{
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// ErrorBoundary wraps named external calls with a per-name circuit breaker
// and emits metrics/logs on trips, isolating classifier/LLM flakiness from
// the rest of the orchestration state machine.
type ErrorBoundary struct {
	breakers map[string]*gobreaker.CircuitBreaker[any]
	config   ErrorBoundaryConfig
	metrics  observability.Metrics
	logger   *slog.Logger
}

// NewErrorBoundary creates an ErrorBoundary. metrics/logger default to no-op/default.
func NewErrorBoundary(config ErrorBoundaryConfig, metrics observability.Metrics, logger *slog.Logger) *ErrorBoundary {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorBoundary{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

func (b *ErrorBoundary) breaker(name string) *gobreaker.CircuitBreaker[any] {
	if cb, ok := b.breakers[name]; ok {
		return cb
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: b.config.MaxRequests,
		Interval:    b.config.Interval,
		Timeout:     b.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Info("error boundary state changed",
				"name", name, "from", from.String(), "to", to.String())
			b.metrics.Counter("orchestrator.breaker_state_change", 1,
				observability.T("name", name), observability.T("state", to.String()))
		},
	}
	cb := gobreaker.NewCircuitBreaker[any](settings)
	b.breakers[name] = cb
	return cb
}

// Call executes fn under the named circuit breaker, returning ErrCircuitOpen
// when the breaker is open instead of invoking fn.
func (b *ErrorBoundary) Call(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	start := time.Now()
	cb := b.breaker(name)
	result, err := cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	b.metrics.Timing("orchestrator.boundary_call_duration", time.Since(start), observability.T("name", name))
	if errors.Is(err, gobreaker.ErrOpenState) {
		b.metrics.Counter("orchestrator.breaker_rejected", 1, observability.T("name", name))
		return nil, ErrCircuitOpen
	}
	return result, err
}

// State returns the current breaker state string for diagnostics, or "unknown".
func (b *ErrorBoundary) State(name string) string {
	cb, ok := b.breakers[name]
	if !ok {
		return "unknown"
	}
	return cb.State().String()
}
