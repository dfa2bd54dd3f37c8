package ai

import (
	"resumatch/internal/config"
	"resumatch/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker wraps a gobreaker circuit breaker. A nil *Breaker runs calls
// directly and always reports healthy.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// AICircuitBreaker guards the generate calls of one operation.
type AICircuitBreaker = Breaker[*genai.GenerateContentResponse]

// ModelCircuitBreaker guards model availability checks.
type ModelCircuitBreaker = Breaker[*genai.Model]

// tripRule decides when a breaker opens given its rolling counts.
type tripRule func(gobreaker.Counts) bool

func ratioRule(minRequests uint32, threshold float64) tripRule {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= threshold
	}
}

func newBreaker[T any](name, operation string, cfg config.CircuitBreakerConfig, trip tripRule, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: trip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Warn("Circuit breaker state changed",
				"name", name, "operation", operation,
				"from", from.String(), "to", to.String())
		},
	})}
}

// NewAICircuitBreaker returns nil when breaking is disabled for the operation.
func NewAICircuitBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *AICircuitBreaker {
	cb := cfg.CircuitBreaker
	return newBreaker[*genai.GenerateContentResponse]("AI-"+operation, operation, cb,
		ratioRule(cb.MinRequests, cb.FailureThreshold), logger)
}

// NewModelCircuitBreaker trips more leniently than the generate breaker:
// five requests at an 80% failure rate.
func NewModelCircuitBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *ModelCircuitBreaker {
	return newBreaker[*genai.Model]("AI-Model-"+operation, operation, cfg.CircuitBreaker,
		ratioRule(5, 0.8), logger)
}

// Execute runs fn through the breaker.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats reports the breaker name, state and counts.
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports whether the breaker is closed.
func (b *Breaker[T]) IsHealthy() bool {
	return b == nil || b.cb.State() == gobreaker.StateClosed
}
