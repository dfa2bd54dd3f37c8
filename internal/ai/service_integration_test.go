package ai

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/types"
)

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping Gemini integration test")
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &config.Config{AI: config.AIConfig{
		Provider:         "gemini",
		Model:            model,
		Timeout:          60 * time.Second,
		APIKey:           apiKey,
		MaxRetries:       1,
		Temperature:      0.2,
		UseSystemPrompts: true,
	}}
}

func TestServiceUnsupportedProvider(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{Provider: "openai", Model: "m", Timeout: time.Second, APIKey: "k"}}

	_, err := NewService(context.Background(), cfg, errors.NewLoggerTo(io.Discard, slog.LevelInfo))
	if !errors.IsType(err, errors.ErrorTypeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestGeminiIntegration(t *testing.T) {
	cfg := integrationConfig(t)
	svc, err := NewService(context.Background(), cfg, errors.NewLogger(slog.LevelDebug))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	defer svc.Close()

	ctx := context.Background()
	resume := "Jane Doe, jane@example.com. Senior Go engineer with 7 years building Kubernetes operators and PostgreSQL-backed APIs in Berlin."

	t.Run("DetectDomain", func(t *testing.T) {
		domain, _, err := svc.Provider.DetectDomain(ctx, resume)
		if err != nil {
			t.Fatalf("DetectDomain failed: %v", err)
		}
		if domain == "" {
			t.Error("expected a domain")
		}
	})

	t.Run("ExtractMetadata", func(t *testing.T) {
		meta, _, err := svc.Provider.ExtractMetadata(ctx, resume)
		if err != nil {
			t.Fatalf("ExtractMetadata failed: %v", err)
		}
		if meta.Email == types.NotFound {
			t.Errorf("expected the email to be found, got %+v", meta)
		}
	})

	t.Run("ModelInfo", func(t *testing.T) {
		infos := svc.GetModelInfo(ctx)
		if len(infos) != 1 || !infos[0].Available {
			t.Errorf("expected one available model, got %+v", infos)
		}
	})
}
