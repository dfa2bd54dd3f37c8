package ai

import (
	"context"
	"fmt"

	"resumatch/internal/config"
	"resumatch/internal/errors"
)

// Service handles AI operations for resume processing
type Service struct {
	Provider Provider
	logger   *errors.Logger
}

// NewService creates the configured provider. All operations must share
// one provider kind.
func NewService(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Service, error) {
	for _, op := range config.Operations() {
		opCfg, err := cfg.OperationConfig(op)
		if err != nil {
			return nil, err
		}
		logger.Debug("Initializing AI operation",
			"operation", op,
			"provider", opCfg.Provider,
			"model", opCfg.Model,
			"temperature", *opCfg.Temperature,
			"timeout", *opCfg.Timeout,
			"max_retries", *opCfg.MaxRetries,
			"use_system_prompts", *opCfg.UseSystemPrompts,
			"circuit_breaker", opCfg.CircuitBreaker.Enabled)

		if opCfg.Provider != "gemini" {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Unsupported AI provider: %s", opCfg.Provider), nil).
				WithContext("operation", op)
		}
	}

	provider, err := NewGeminiProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Service{Provider: provider, logger: logger}, nil
}

// GetModelInfo returns model availability for health checks.
func (s *Service) GetModelInfo(ctx context.Context) []*ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// CircuitBreakerStats returns breaker state when the provider tracks it.
func (s *Service) CircuitBreakerStats() map[string]any {
	if p, ok := s.Provider.(interface{ CircuitBreakerStats() map[string]any }); ok {
		return p.CircuitBreakerStats()
	}
	return map[string]any{}
}

// Close releases the provider.
func (s *Service) Close() error {
	return s.Provider.Close()
}
