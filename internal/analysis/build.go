package analysis

import (
	"context"

	"resumatch/internal/ai"
	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/ingest"
	"resumatch/internal/scoring"
)

// NewFromConfig wires a Service from the application config. A missing
// Gemini key disables AI in local mode instead of failing; the returned
// *ai.Service is then nil. The caller owns closing it.
func NewFromConfig(ctx context.Context, cfg *config.Config, recorder Recorder, logger *errors.Logger) (*Service, *ai.Service, error) {
	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		return nil, nil, err
	}

	aiService, err := ai.NewService(ctx, cfg, logger)
	if err != nil {
		if errors.CodeOf(err) != errors.ErrCodeMissingAPIKey || cfg.Analysis.Mode == config.ModeRemote {
			return nil, nil, err
		}
		logger.Warn("No Gemini API key configured, AI features are disabled",
			"analysis_mode", config.ModeLocal)
		aiService = nil
	}

	deps := Deps{
		Scorer:   scorer,
		Ingestor: ingest.New(cfg.Upload, logger),
		Recorder: recorder,
		Logger:   logger,
	}
	if aiService != nil {
		deps.AI = aiService.Provider
	}

	svc, err := New(cfg.Analysis, deps)
	if err != nil {
		if aiService != nil {
			_ = aiService.Close()
		}
		return nil, nil, err
	}
	return svc, aiService, nil
}

// Ingestor returns the upload handler, which may be nil.
func (s *Service) Ingestor() *ingest.Ingestor {
	return s.ingestor
}
