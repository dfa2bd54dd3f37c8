package ai

import (
	"errors"
	"testing"
	"time"

	"resumatch/internal/config"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

func breakerConfig(minRequests uint32, threshold float64) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "test-model",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      minRequests,
			FailureThreshold: threshold,
		},
	}
}

func TestIndependentCircuitBreakers(t *testing.T) {
	coverCB := NewAICircuitBreaker(config.OpCoverLetter, breakerConfig(3, 0.6), nil)
	chatCB := NewAICircuitBreaker(config.OpChat, breakerConfig(5, 0.7), nil)

	tests := []struct {
		name string
		cb   *AICircuitBreaker
		want string
	}{
		{"cover letter", coverCB, "AI-coverLetter"},
		{"chat", chatCB, "AI-chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := tt.cb.Stats()
			if name, _ := stats["name"].(string); name != tt.want {
				t.Errorf("Expected circuit breaker name '%s', got '%v'", tt.want, stats["name"])
			}
			if state, _ := stats["state"].(string); state != "closed" {
				t.Errorf("Expected initial state 'closed', got '%v'", stats["state"])
			}
			if enabled, _ := stats["enabled"].(bool); !enabled {
				t.Error("Circuit breaker should be enabled")
			}
			if !tt.cb.IsHealthy() {
				t.Error("Circuit breaker should be healthy initially")
			}
		})
	}

	if coverCB == chatCB {
		t.Error("Operations should get distinct circuit breakers")
	}
}

func TestCircuitBreakerTrips(t *testing.T) {
	cb := NewAICircuitBreaker(config.OpDomain, breakerConfig(2, 0.5), nil)
	boom := errors.New("boom")
	failing := func() (*genai.GenerateContentResponse, error) { return nil, boom }

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(failing); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected upstream error, got %v", i, err)
		}
	}

	if cb.IsHealthy() {
		t.Fatal("Circuit breaker should be open after repeated failures")
	}

	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState, got %v", err)
	}
	if called {
		t.Error("Open breaker should not call through")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	disabled := &config.OperationAIConfig{
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: false},
	}

	cb := NewAICircuitBreaker("disabled", disabled, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}
	if NewModelCircuitBreaker("disabled", disabled, nil) != nil {
		t.Fatal("Model circuit breaker should be nil when disabled")
	}

	// A nil breaker passes calls straight through.
	resp := &genai.GenerateContentResponse{}
	got, err := cb.Execute(func() (*genai.GenerateContentResponse, error) { return resp, nil })
	if err != nil || got != resp {
		t.Errorf("Expected pass-through result, got %v, %v", got, err)
	}
	if !cb.IsHealthy() {
		t.Error("Nil breaker should report healthy")
	}
	if enabled := cb.Stats()["enabled"]; enabled != false {
		t.Errorf("Expected enabled=false, got %v", enabled)
	}
}
