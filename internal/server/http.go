package server

import (
	"time"

	"resumatch/internal/ai"
	"resumatch/internal/analysis"
	"resumatch/internal/config"
	resumatchErrors "resumatch/internal/errors"
	"resumatch/internal/observability"
	"resumatch/internal/session"
	"resumatch/internal/watch"
)

// SessionRequest carries the session id for endpoints without other input.
// The X-Session-ID header wins over the body field.
type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

// RateRequest represents the request body for the rate_resumes endpoint
type RateRequest struct {
	SessionID      string `json:"sessionId"`
	JobRequirement string `json:"jobRequirement" validate:"required"`
}

// CoverLetterRequest represents the request body for the generate_cover_letter endpoint
type CoverLetterRequest struct {
	SessionID      string `json:"sessionId"`
	JobRequirement string `json:"jobRequirement" validate:"required"`
	CompanyName    string `json:"companyName" validate:"max=200"`
}

// InterviewPrepRequest represents the request body for the interview_prep endpoint
type InterviewPrepRequest struct {
	SessionID      string `json:"sessionId"`
	JobRequirement string `json:"jobRequirement"`
}

// SalaryRequest represents the request body for the salary_insights endpoint
type SalaryRequest struct {
	SessionID string `json:"sessionId"`
	Location  string `json:"location" validate:"max=200"`
}

// ChatRequest represents the request body for the career_roadmap endpoint
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query" validate:"required"`
}

// NormalizeRequest represents the request body for the normalize endpoint
type NormalizeRequest struct {
	Text string `json:"text"`
	Kind string `json:"kind" validate:"omitempty,oneof=text salary"`
}

// ScoreRequest represents the request body for the score endpoint
type ScoreRequest struct {
	ResumeText     string `json:"resumeText" validate:"required"`
	JobDescription string `json:"jobDescription" validate:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Certificate management
	CertificateManager *CertificateManager

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *resumatchErrors.Logger

	analysis      *analysis.Service
	aiService     *ai.Service
	sessions      *session.Store
	observability *observability.ObservabilityManager
	promptWatcher *watch.FileWatcher
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFrom builds a ServerConfig from the server section.
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct.
// Services are created when the server starts.
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *resumatchErrors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			cfg.RateLimit.IdleEviction,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}
