package observability

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resumatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability = config.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "resumatch",
		SampleRate:  1.0,
		Tracing:     config.TracingConfig{Enabled: true, SampleRate: 0.25},
		Metrics:     config.MetricsConfig{Enabled: false},
		Console:     config.ConsoleConfig{Enabled: true, PrettyPrint: true},
		Prometheus:  config.PrometheusConfig{Enabled: true, Endpoint: "/metrics", Port: "9464"},
	}

	got := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "1.2.3", got.ServiceVersion)
	assert.Equal(t, 0.25, got.SampleRate)
	assert.True(t, got.ConsoleOutput)
	assert.False(t, got.Prometheus.Enabled, "metrics switched off disables the scrape endpoint")

	cfg.Observability.Tracing.Enabled = false
	assert.Zero(t, GetObservabilityConfig(cfg, "").SampleRate)

	fallback := GetObservabilityConfig(nil, "dev")
	assert.False(t, fallback.Enabled)
	assert.Equal(t, "resumatch", fallback.ServiceName)
}

func TestDisabledManagerPassesThrough(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "resumatch"}, nil, nil)
	require.NoError(t, err)
	assert.False(t, om.Enabled())

	wantErr := stderrors.New("boom")
	err = om.TrackAIOperation(context.Background(), "chat", func(context.Context) *AIOperationResult {
		return &AIOperationResult{Error: wantErr}
	})
	assert.ErrorIs(t, err, wantErr)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	om.HTTPMiddleware()(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	om.RecordBusinessMetric(context.Background(), EventJobAnalyzed, true)
	om.RecordMatchScore(context.Background(), 80, config.ModeLocal)
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestNilManagerIsSafe(t *testing.T) {
	var om *ObservabilityManager

	called := false
	err := om.TrackAIOperation(context.Background(), "chat", func(context.Context) *AIOperationResult {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)

	om.RecordSessionEvent(context.Background(), SessionCreated)
	om.RecordRateLimitHit(context.Background())
	om.RecordCertReload(context.Background(), true, time.Now().Add(time.Hour))
	assert.False(t, om.Enabled())
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestEnabledManagerRecords(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.CustomMetrics = config.CustomMetricsConfig{
		AIOperations:    config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
		BusinessMetrics: config.BusinessMetricsConfig{Enabled: true, TrackScores: true},
		Infrastructure:  config.InfrastructureMetricsConfig{Enabled: true, TrackSessions: true, TrackRateLimits: true, TrackCertReloads: true},
	}

	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName: "resumatch-test",
		Enabled:     true,
		SampleRate:  1.0,
	}, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })
	require.NotNil(t, om.metrics)

	ctx := context.Background()
	err = om.TrackAIOperation(ctx, "recommendations", func(context.Context) *AIOperationResult {
		return &AIOperationResult{TokenUsage: &TokenUsage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}}
	})
	assert.NoError(t, err)

	for _, event := range []string{EventResumeUploaded, EventJobAnalyzed, EventCoverLetter, EventCareerChatAnswer, "unknown"} {
		om.RecordBusinessMetric(ctx, event, true, attribute.String("domain", "Finance"))
	}
	om.RecordMatchScore(ctx, 72, config.ModeLocal)
	om.RecordSessionEvent(ctx, SessionCreated)
	om.RecordSessionEvent(ctx, SessionExpired)
	om.RecordRateLimitHit(ctx, attribute.String("key", "ip:127.0.0.1"))
	om.RecordCertReload(ctx, true, time.Now().Add(24*time.Hour))
}

func TestPrometheusExporterServesOwnRegistry(t *testing.T) {
	reader, mux, err := SetupPrometheusExporter(PrometheusConfig{Endpoint: "/scrape"})
	require.NoError(t, err)

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	counter, err := provider.Meter("test").Int64Counter("resumatch_test_events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scrape", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "resumatch_test_events")
}
