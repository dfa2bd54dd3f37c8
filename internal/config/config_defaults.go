package config

import (
	"time"

	"github.com/spf13/viper"

	"resumatch/internal/scoring"
)

type operationDefaults struct {
	timeout     time.Duration
	maxRetries  int
	temperature float32
}

// Per-operation defaults. Structured extraction runs cold; prose runs warmer.
var aiOperationDefaults = map[string]operationDefaults{
	OpAnalyze:         {75 * time.Second, 2, 0.2},
	OpDomain:          {30 * time.Second, 3, 0.1},
	OpMetadata:        {30 * time.Second, 3, 0.1},
	OpRecommendations: {60 * time.Second, 2, 0.4},
	OpSkillGaps:       {60 * time.Second, 2, 0.3},
	OpCoverLetter:     {90 * time.Second, 2, 0.7},
	OpInterviewPrep:   {90 * time.Second, 2, 0.5},
	OpSalary:          {60 * time.Second, 2, 0.3},
	OpChat:            {60 * time.Second, 2, 0.6},
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.useSystemPrompts", true)

	for op, d := range aiOperationDefaults {
		prefix := "ai." + op + "."
		v.SetDefault(prefix+"timeout", d.timeout)
		v.SetDefault(prefix+"maxRetries", d.maxRetries)
		v.SetDefault(prefix+"temperature", d.temperature)
		v.SetDefault(prefix+"useSystemPrompts", true)

		v.SetDefault(prefix+"circuitBreaker.enabled", true)
		v.SetDefault(prefix+"circuitBreaker.maxRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.interval", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.timeout", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.minRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.failureThreshold", 0.6)
	}

	sc := scoring.DefaultConfig()
	v.SetDefault("scoring.skillWeight", sc.SkillWeight)
	v.SetDefault("scoring.semanticWeight", sc.SemanticWeight)
	v.SetDefault("scoring.densityWeight", sc.DensityWeight)
	v.SetDefault("scoring.bandHigh", sc.BandHigh)
	v.SetDefault("scoring.bandMediumHigh", sc.BandMediumHigh)
	v.SetDefault("scoring.bandMediumLow", sc.BandMediumLow)
	v.SetDefault("scoring.fuzzyThreshold", sc.FuzzyThreshold)
	v.SetDefault("scoring.maxJobKeywords", sc.MaxJobKeywords)
	v.SetDefault("scoring.maxResumeKeywords", sc.MaxResumeKeywords)
	v.SetDefault("scoring.maxRecommendations", sc.MaxRecommendations)
	v.SetDefault("scoring.summarySentences", sc.SummarySentences)

	v.SetDefault("analysis.mode", ModeLocal)
	v.SetDefault("analysis.minJobWords", 10)

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.maxFileSize", 10*1024*1024)
	v.SetDefault("upload.allowedExtensions", []string{".pdf", ".docx"})

	v.SetDefault("session.historyTurns", 7)
	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("session.cleanupInterval", 10*time.Minute)

	v.SetDefault("jobFetch.timeout", 20*time.Second)
	v.SetDefault("jobFetch.userAgent", "Mozilla/5.0 (compatible; resumatch/1.0)")
	v.SetDefault("jobFetch.maxBodyBytes", 5*1024*1024)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second) // AI calls are slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 11*1024*1024) // one upload plus form overhead

	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.cipherSuites", []string{})
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.insecureSkipVerify", false)
	v.SetDefault("server.tls.serverName", "")
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.debounceDelay", time.Second)

	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.idleEviction", 10*time.Minute)

	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumatch")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackModelInfo", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackScores", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackCertReloads", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackSessions", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
