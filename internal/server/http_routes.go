package server

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	requestLimit := s.requestSizeLimitMiddleware()
	protected := func(handler http.HandlerFunc, methods ...string) http.HandlerFunc {
		return allowMethods(rateLimit(s.authMiddleware(requestLimit(handler))), methods...)
	}

	mux.HandleFunc("/health", allowMethods(s.healthHandler, http.MethodGet))
	mux.HandleFunc("/stats", allowMethods(s.statsHandler, http.MethodGet))

	mux.HandleFunc("/upload", protected(s.uploadHandler, http.MethodPost))
	mux.HandleFunc("/delete", protected(s.deleteHandler, http.MethodPost))
	mux.HandleFunc("/rate_resumes", protected(s.rateHandler, http.MethodPost))
	mux.HandleFunc("/generate_cover_letter", protected(s.coverLetterHandler, http.MethodPost))
	mux.HandleFunc("/interview_prep", protected(s.interviewPrepHandler, http.MethodPost))
	mux.HandleFunc("/salary_insights", protected(s.salaryHandler, http.MethodGet, http.MethodPost))
	mux.HandleFunc("/career_roadmap", protected(s.careerRoadmapHandler, http.MethodPost))
	mux.HandleFunc("/normalize", protected(s.normalizeHandler, http.MethodPost))
	mux.HandleFunc("/score", protected(s.scoreHandler, http.MethodPost))

	return mux
}

// allowMethods rejects requests whose method is not listed.
func allowMethods(next http.HandlerFunc, methods ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(methods, r.Method) {
			w.Header().Set("Allow", strings.Join(methods, ", "))
			writeErrorResponse(w, "Method not allowed", "", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.validAPIKey(apiKey) {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// validAPIKey compares against every configured key in constant time.
func (s *Server) validAPIKey(apiKey string) bool {
	valid := false
	for key := range s.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			valid = true
		}
	}
	return valid
}

// requestAPIKey reads X-API-Key, then an Authorization Bearer token.
func requestAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
