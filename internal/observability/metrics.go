package observability

import (
	"context"
	"fmt"
	"time"

	"resumatch/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Business events accepted by RecordBusinessMetric.
const (
	EventResumeUploaded   = "resume_uploaded"
	EventJobAnalyzed      = "job_analyzed"
	EventCoverLetter      = "cover_letter_generated"
	EventInterviewPrep    = "interview_prep_generated"
	EventSalaryInsights   = "salary_insights_generated"
	EventCareerChatAnswer = "career_chat_answered"
)

// Session lifecycle events accepted by RecordSessionEvent.
const (
	SessionCreated = "created"
	SessionDeleted = "deleted"
	SessionExpired = "expired"
)

// scoreBuckets follow the ATS status bands.
var scoreBuckets = []float64{0, 50, 70, 85, 100}

// Metrics holds the application instruments.
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	ResumesUploaded    metric.Int64Counter
	JobsAnalyzed       metric.Int64Counter
	MatchScore         metric.Int64Histogram
	DocumentsGenerated metric.Int64Counter
	ChatTurns          metric.Int64Counter

	SessionEvents  metric.Int64Counter
	ActiveSessions metric.Int64UpDownCounter

	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	RateLimitHits metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	m.AIProcessingTime, err = meter.Float64Histogram("resumatch_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"), metric.WithUnit("s"))
	check(err)
	m.AIRequestCount, err = meter.Int64Counter("resumatch_ai_requests_total",
		metric.WithDescription("Total number of AI requests"))
	check(err)
	m.AIErrorCount, err = meter.Int64Counter("resumatch_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"))
	check(err)
	m.AITokenUsage, err = meter.Int64Histogram("resumatch_ai_token_usage",
		metric.WithDescription("Token usage for AI requests (input, output, total)"), metric.WithUnit("tokens"))
	check(err)

	m.ResumesUploaded, err = meter.Int64Counter("resumatch_resumes_uploaded_total",
		metric.WithDescription("Total number of resumes uploaded and profiled"))
	check(err)
	m.JobsAnalyzed, err = meter.Int64Counter("resumatch_jobs_analyzed_total",
		metric.WithDescription("Total number of resume and job description analyses"))
	check(err)
	m.MatchScore, err = meter.Int64Histogram("resumatch_match_score",
		metric.WithDescription("Distribution of ATS match scores"),
		metric.WithExplicitBucketBoundaries(scoreBuckets...))
	check(err)
	m.DocumentsGenerated, err = meter.Int64Counter("resumatch_documents_generated_total",
		metric.WithDescription("Cover letters, interview prep sheets and salary insights generated"))
	check(err)
	m.ChatTurns, err = meter.Int64Counter("resumatch_career_chat_turns_total",
		metric.WithDescription("Total number of career chat questions answered"))
	check(err)

	m.SessionEvents, err = meter.Int64Counter("resumatch_session_events_total",
		metric.WithDescription("Session lifecycle events"))
	check(err)
	m.ActiveSessions, err = meter.Int64UpDownCounter("resumatch_sessions_active",
		metric.WithDescription("Sessions currently held in memory"))
	check(err)

	m.CertReloadCount, err = meter.Int64Counter("resumatch_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"))
	check(err)
	m.CertExpiryTime, err = meter.Float64Gauge("resumatch_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"), metric.WithUnit("s"))
	check(err)

	m.RateLimitHits, err = meter.Int64Counter("resumatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"))
	check(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to create metrics: %v", errs)
	}
	return m, nil
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperation runs fn in an "ai.<operation>" span and records its
// duration, outcome and token usage. It returns fn's error.
func (om *ObservabilityManager) TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	if om == nil || om.metrics == nil {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := om.Tracer("resumatch.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if om.aiMetricsEnabled() {
		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.Bool("success", err == nil),
		}
		if om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackDuration {
			om.metrics.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		}
		om.metrics.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			om.metrics.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		om.recordTokenUsage(ctx, result, attrs, span)
		span.SetAttributes(attrs...)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

func (om *ObservabilityManager) aiMetricsEnabled() bool {
	return om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.Enabled
}

func (om *ObservabilityManager) recordTokenUsage(ctx context.Context, result *AIOperationResult, attrs []attribute.KeyValue, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil {
		return
	}
	usage := result.TokenUsage

	// Spans always carry token counts.
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)

	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.AIOperations.TrackTokenUsage {
		return
	}
	for _, tt := range []struct {
		kind  string
		value int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		tokenAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.String("token_type", tt.kind))
		om.metrics.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
	}
}

// RecordBusinessMetric counts one business event. Unknown types are ignored.
func (om *ObservabilityManager) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if om == nil || om.metrics == nil {
		return
	}
	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.BusinessMetrics.Enabled {
		return
	}

	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	switch metricType {
	case EventResumeUploaded:
		om.metrics.ResumesUploaded.Add(ctx, 1, metric.WithAttributes(attrs...))
	case EventJobAnalyzed:
		om.metrics.JobsAnalyzed.Add(ctx, 1, metric.WithAttributes(attrs...))
	case EventCoverLetter, EventInterviewPrep, EventSalaryInsights:
		attrs = append(attrs, attribute.String("document", metricType))
		om.metrics.DocumentsGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
	case EventCareerChatAnswer:
		om.metrics.ChatTurns.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordMatchScore adds one score to the score distribution.
func (om *ObservabilityManager) RecordMatchScore(ctx context.Context, score int, mode string) {
	if om == nil || om.metrics == nil {
		return
	}
	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.BusinessMetrics.TrackScores {
		return
	}
	om.metrics.MatchScore.Record(ctx, int64(score), metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordSessionEvent counts a session lifecycle event and keeps the
// active-session count current.
func (om *ObservabilityManager) RecordSessionEvent(ctx context.Context, event string) {
	if om == nil || om.metrics == nil || !om.infrastructureEnabled(func(c config.InfrastructureMetricsConfig) bool { return c.TrackSessions }) {
		return
	}
	om.metrics.SessionEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
	switch event {
	case SessionCreated:
		om.metrics.ActiveSessions.Add(ctx, 1)
	case SessionDeleted, SessionExpired:
		om.metrics.ActiveSessions.Add(ctx, -1)
	}
}

// RecordRateLimitHit counts a rejected request.
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, attributes ...attribute.KeyValue) {
	if om == nil || om.metrics == nil || !om.infrastructureEnabled(func(c config.InfrastructureMetricsConfig) bool { return c.TrackRateLimits }) {
		return
	}
	om.metrics.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attributes...))
}

// RecordCertReload counts a certificate reload and, on success, publishes
// the time left until the new leaf expires.
func (om *ObservabilityManager) RecordCertReload(ctx context.Context, success bool, notAfter time.Time) {
	if om == nil || om.metrics == nil || !om.infrastructureEnabled(func(c config.InfrastructureMetricsConfig) bool { return c.TrackCertReloads }) {
		return
	}
	om.metrics.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	if success && !notAfter.IsZero() {
		om.metrics.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
	}
}

func (om *ObservabilityManager) infrastructureEnabled(flag func(config.InfrastructureMetricsConfig) bool) bool {
	if om.fullConfig == nil {
		return true
	}
	infra := om.fullConfig.Observability.CustomMetrics.Infrastructure
	return infra.Enabled && flag(infra)
}
