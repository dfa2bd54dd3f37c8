package cli

import (
	"fmt"

	"resumatch/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for resume sessions, scoring and AI assistance.

Available endpoints:
- POST /upload: Upload a resume (multipart field "file"), returns a session id
- POST /delete: Delete a session and its stored upload
- POST /rate_resumes: ATS analysis of the session's resume against a job
- POST /generate_cover_letter: Cover letter for a job
- POST /interview_prep: Interview questions and talking points
- GET|POST /salary_insights: Salary range for the resume's field
- POST /career_roadmap: Career advice chat
- POST /normalize: Normalize AI text for display
- POST /score: Score resume text against a job description
- GET /health: Health check endpoint
- GET /stats: Server, session and rate limiting statistics

Send the session id in the X-Session-ID header or the sessionId field.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

var serveFlags struct {
	port, host, tlsMode, certFile, keyFile, caFile string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.tlsMode, "tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.caFile, "ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	// Config is loaded before cobra parses flags, so overrides apply here.
	overrides := []struct {
		value string
		dst   *string
	}{
		{serveFlags.port, &cfg.Server.Port},
		{serveFlags.host, &cfg.Server.Host},
		{serveFlags.tlsMode, &cfg.Server.TLS.Mode},
		{serveFlags.certFile, &cfg.Server.TLS.CertFile},
		{serveFlags.keyFile, &cfg.Server.TLS.KeyFile},
		{serveFlags.caFile, &cfg.Server.TLS.CAFile},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.dst = o.value
		}
	}

	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	return server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), logger).Start(cmd.Context())
}
