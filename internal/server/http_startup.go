package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resumatch/internal/analysis"
	"resumatch/internal/observability"
	"resumatch/internal/session"
	"resumatch/internal/types"
	"resumatch/internal/watch"
)

const (
	shutdownTimeout              = 30 * time.Second
	observabilityShutdownTimeout = 5 * time.Second
)

// Start starts the HTTP server with all configured components and blocks
// until ctx is canceled, a shutdown signal arrives or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.initializeObservability(); err != nil {
		return err
	}
	defer s.shutdownObservability()

	if err := s.initializeServices(ctx); err != nil {
		return err
	}
	defer s.closeServices()

	httpServer := s.setupHTTPServer()
	if err := s.configureTLS(httpServer); err != nil {
		return err
	}
	s.startPromptWatcher()

	s.displayServerInfo()

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() error {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)
	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	s.observability = om
	return nil
}

func (s *Server) shutdownObservability() {
	ctx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
	defer cancel()
	if err := s.observability.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// initializeServices creates the analysis service and the session store.
func (s *Server) initializeServices(ctx context.Context) error {
	svc, aiService, err := analysis.NewFromConfig(ctx, s.AppConfig, s.observability, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}
	s.analysis = svc
	s.aiService = aiService
	s.sessions = session.NewStore(s.AppConfig.Session, s.Logger, s.expireSession)
	return nil
}

// expireSession drops the stored upload of a session evicted for idleness.
func (s *Server) expireSession(sess types.SessionContext, storedPath string) {
	s.removeUpload(storedPath)
	s.observability.RecordSessionEvent(context.Background(), observability.SessionExpired)
	s.Logger.Info("Session expired", "session_id", sess.ID)
}

func (s *Server) closeServices() {
	if s.sessions != nil {
		s.sessions.Close()
	}
	if s.aiService != nil {
		if err := s.aiService.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close AI service")
		}
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	handler := s.observability.HTTPMiddleware()(s.setupRoutes())
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startPromptWatcher reloads prompt override files when they change. A
// failed reload keeps the previous prompts.
func (s *Server) startPromptWatcher() {
	files := s.AppConfig.PromptFiles()
	if len(files) == 0 {
		return
	}
	w := watch.New("prompts", files, 0, func() {
		if err := s.AppConfig.LoadPrompts(); err != nil {
			s.Logger.LogError(err, "Failed to reload prompt files, keeping previous prompts")
			return
		}
		s.Logger.Info("Prompt files reloaded", "prompts", s.AppConfig.Prompts().Count())
	}, s.Logger)
	if err := w.Start(); err != nil {
		s.Logger.LogError(err, "Failed to watch prompt files")
		return
	}
	s.promptWatcher = w
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// certificates come from TLSConfig.GetCertificate
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.stopBackground()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.stopBackground()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// stopBackground stops the watchers and the rate limiter cleanup.
func (s *Server) stopBackground() {
	if s.CertificateManager != nil {
		if err := s.CertificateManager.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate manager")
		}
	}
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
}
