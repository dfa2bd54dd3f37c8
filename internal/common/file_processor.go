package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/ingest"
	"resumatch/internal/jobpost"
)

// InputReader loads the resume and job description a command works on.
type InputReader struct {
	fetch  config.JobFetchConfig
	logger *errors.Logger
}

// NewInputReader creates a reader that fetches job postings with fetch.
func NewInputReader(fetch config.JobFetchConfig, logger *errors.Logger) *InputReader {
	return &InputReader{fetch: fetch, logger: logger}
}

// Resume extracts the text of a resume file (PDF, DOCX or plain text).
func (r *InputReader) Resume(path string) (string, error) {
	text, err := ingest.ReadFile(path)
	if err != nil {
		return "", err
	}
	r.logger.Debug("Resume loaded", "file", path, "chars", len(text))
	return text, nil
}

// Job reads the job description from path or downloads it from url.
// Exactly one of them must be set.
func (r *InputReader) Job(ctx context.Context, path, url string) (string, error) {
	switch {
	case path != "" && url != "":
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Give either a job description file or --job-url, not both", nil)
	case url != "":
		text, err := jobpost.Fetch(ctx, url, r.fetch)
		if err != nil {
			return "", err
		}
		r.logger.Info("Job posting fetched", "url", url, "chars", len(text))
		return text, nil
	case path != "":
		return ingest.ReadFile(path)
	default:
		return "", errors.NewInsufficientInputError("jobDescription",
			"A job description file or --job-url is required")
	}
}

// WriteFile writes content, creating the parent directory when needed.
func WriteFile(filename, content string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}
	if err := os.WriteFile(filename, []byte(content), 0o600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}
