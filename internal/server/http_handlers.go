package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"time"

	resumatchErrors "resumatch/internal/errors"

	"github.com/go-playground/validator/v10"
)

const (
	sessionHeader         = "X-Session-ID"
	certCriticalThreshold = 24 * time.Hour
	certWarningThreshold  = 7 * 24 * time.Hour
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// healthHandler reports service health including AI model and certificate status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":        "healthy",
		"service":       "resumatch",
		"version":       s.Version,
		"analysis_mode": s.analysis.Mode(),
	}

	healthy := true
	if s.aiService != nil {
		models := s.checkAIModelsHealth(r.Context())
		response["ai_models"] = models
		response["circuit_breakers"] = s.aiService.CircuitBreakerStats()
		for _, model := range models {
			if available, _ := model["available"].(bool); !available {
				healthy = false
			}
		}
	} else {
		response["ai_models"] = map[string]any{"enabled": false}
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if certHealthy, _ := certStatus["healthy"].(bool); !certHealthy {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, response)
}

// checkAIModelsHealth asks the provider for each configured model under the
// configured timeout.
func (s *Server) checkAIModelsHealth(ctx context.Context) []map[string]any {
	timeout := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout
	if timeout <= 0 {
		timeout = s.AppConfig.Observability.HealthCheck.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var models []map[string]any
	for _, info := range s.aiService.GetModelInfo(ctx) {
		model := map[string]any{
			"name":       info.Name,
			"available":  info.Available,
			"operations": info.Operations,
		}
		if info.Error != "" {
			model["error"] = info.Error
		}
		models = append(models, model)
	}
	return models
}

// checkCertificateHealth reports time to expiry of the served certificate.
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	certStatus := make(map[string]any)
	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= certCriticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= certWarningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}
	certStatus["auto_reload"] = s.CertificateManager.Stats()
	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumatch",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    len(s.APIKeys),
		},
		"analysis": map[string]any{
			"mode":       s.analysis.Mode(),
			"ai_enabled": s.analysis.AIEnabled(),
		},
		"sessions": s.sessions.Stats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest decodes a JSON body into v and validates its struct tags.
// An empty body leaves v untouched.
func parseJSONRequest(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return validateRequest(v)
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return resumatchErrors.NewValidationError(resumatchErrors.ErrCodeInvalidRequest,
			"Content-Type must be application/json", err)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return resumatchErrors.NewValidationError(resumatchErrors.ErrCodeFileTooLarge,
				fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return resumatchErrors.NewIOError(resumatchErrors.ErrCodeFileNotReadable, "Failed to read request body", err)
	}

	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return resumatchErrors.NewValidationError(resumatchErrors.ErrCodeInvalidRequest, "Invalid JSON body", err)
		}
	}
	return validateRequest(v)
}

// validateRequest turns the first failed struct tag into an
// insufficient-input or validation error naming the JSON field.
func validateRequest(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return resumatchErrors.NewValidationError(resumatchErrors.ErrCodeInvalidRequest, "Invalid request", err)
	}
	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return resumatchErrors.NewInsufficientInputError(fe.Field(), fmt.Sprintf("Missing %s", fe.Field()))
	}
	return resumatchErrors.NewValidationError(resumatchErrors.ErrCodeInvalidRequest,
		fmt.Sprintf("Invalid %s (%s)", fe.Field(), fe.Tag()), err).
		WithContext("field", fe.Field())
}

// sessionID prefers the X-Session-ID header over the id from the body or query.
func sessionID(r *http.Request, fromBody string) string {
	if id := strings.TrimSpace(r.Header.Get(sessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(fromBody)
}

// statusFor maps an error kind to its HTTP status, with the message that
// is safe to show. Server-side failures get a generic message.
func statusFor(err error) (int, string, string) {
	var appErr *resumatchErrors.AppError
	message := ""
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	switch resumatchErrors.TypeOf(err) {
	case resumatchErrors.ErrorTypeInsufficientInput:
		return http.StatusBadRequest, "Insufficient input", message
	case resumatchErrors.ErrorTypeValidation:
		return http.StatusBadRequest, "Invalid request", message
	case resumatchErrors.ErrorTypeNotFound:
		return http.StatusNotFound, "Not found", message
	case resumatchErrors.ErrorTypeIncompleteResponse:
		return http.StatusBadGateway, "Incomplete response", "The AI service returned an incomplete result"
	case resumatchErrors.ErrorTypeUpstreamUnavailable:
		return http.StatusServiceUnavailable, "Service unavailable", "The AI service is unavailable, try again later"
	default:
		return http.StatusInternalServerError, "Internal error", "The request could not be processed"
	}
}

// writeError logs err and writes the mapped error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, label, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	} else {
		s.Logger.Debug("Request rejected", "endpoint", r.URL.Path, "status", status, "error", err.Error())
	}
	writeErrorResponse(w, label, message, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.LogError(err, "Failed to encode response")
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
