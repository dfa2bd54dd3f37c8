package server

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"resumatch/internal/ingest"
)

var endpointSummaries = [][3]string{
	{"GET", "/health", "Health check"},
	{"GET", "/stats", "Server statistics"},
	{"POST", "/upload", "Upload a resume (multipart 'file'), returns a session id"},
	{"POST", "/delete", "Delete the session and its upload"},
	{"POST", "/rate_resumes", "ATS match report for a job requirement"},
	{"POST", "/generate_cover_letter", "Cover letter for a job requirement"},
	{"POST", "/interview_prep", "Interview questions and talking points"},
	{"GET", "/salary_insights", "Salary range for the resume's domain"},
	{"POST", "/career_roadmap", "Career advice chat"},
	{"POST", "/normalize", "Normalize AI text for display"},
	{"POST", "/score", "Score resume text against a job description"},
}

func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

// writeServerInfo prints the endpoint table followed by a settings summary.
func (s *Server) writeServerInfo(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Available endpoints:")
	for _, e := range endpointSummaries {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", e[0], e[1], e[2])
	}
	fmt.Fprintln(tw)

	for _, row := range s.settingsSummary() {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	_ = tw.Flush()

	if len(s.APIKeys) == 0 {
		fmt.Fprintln(out, "WARNING: API endpoints are publicly accessible!")
	} else {
		fmt.Fprintln(out, "Include 'X-API-Key: <your-key>' header in requests to the resume endpoints")
	}
}

func (s *Server) settingsSummary() [][2]string {
	rows := [][2]string{{"Analysis", s.analysisSummary()}}

	if len(s.APIKeys) > 0 {
		rows = append(rows, [2]string{"API authentication", fmt.Sprintf("ENABLED (%d keys configured)", len(s.APIKeys))})
	} else {
		rows = append(rows, [2]string{"API authentication", "DISABLED (no API keys configured)"})
	}

	if s.MaxRequestSize > 0 {
		rows = append(rows, [2]string{"Request size limit", ingest.FormatFileSize(s.MaxRequestSize)})
	} else {
		rows = append(rows, [2]string{"Request size limit", "DISABLED"})
	}

	rows = append(rows, [2]string{"Rate limiting", s.rateLimitSummary()})

	if s.AppConfig != nil {
		up := s.AppConfig.Upload
		rows = append(rows,
			[2]string{"Uploads", fmt.Sprintf("%s (max %s, %s)", up.Dir,
				ingest.FormatFileSize(up.MaxFileSize), strings.Join(up.AllowedExtensions, " "))},
			[2]string{"Chat history", fmt.Sprintf("%d turns", s.AppConfig.Session.HistoryTurns)},
		)
	}
	return rows
}

func (s *Server) analysisSummary() string {
	if s.analysis == nil {
		return "not initialized"
	}
	if !s.analysis.AIEnabled() {
		return s.analysis.Mode() + ", AI features DISABLED (no Gemini API key)"
	}
	return s.analysis.Mode() + ", AI features enabled"
}

func (s *Server) rateLimitSummary() string {
	if s.RateLimit == nil || !s.RateLimit.Enabled {
		return "DISABLED"
	}
	var scopes []string
	if s.RateLimit.ByAPIKey {
		scopes = append(scopes, "per API key")
	}
	if s.RateLimit.ByIP {
		scopes = append(scopes, "per IP")
	}
	summary := fmt.Sprintf("ENABLED (%d requests/min, burst %d)", s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	if len(scopes) > 0 {
		summary += ", " + strings.Join(scopes, " and ")
	}
	return summary
}
