// Package jobpost fetches a job posting page and reduces it to the text
// of its description.
package jobpost

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"resumatch/internal/config"
	"resumatch/internal/errors"

	"github.com/PuerkitoBio/goquery"
)

const noiseSelector = "nav, footer, header, script, style, noscript, form, iframe, svg, .ad, .ads, .advertisement, .sidebar, .cookie-banner, .popup"

// descriptionSelectors are tried in order; the first match wins.
var descriptionSelectors = []string{
	".job-description",
	"#job-description",
	".jobsearch-JobComponent-description",
	".description__text",
	".posting-content",
	".job-details",
	".job-content",
	"[data-testid='job-description']",
	"main",
	"article",
	"#content",
	".content",
}

// Fetch downloads url and returns the job description text.
func Fetch(ctx context.Context, rawURL string, cfg config.JobFetchConfig) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid job posting URL: %q", rawURL), err)
	}

	client := &http.Client{Timeout: cfg.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeFetchFailed, "Failed to create request", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeFetchFailed,
			fmt.Sprintf("Failed to fetch %s", parsed.Host), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewNetworkError(errors.ErrCodeFetchFailed,
			fmt.Sprintf("Fetching %s returned HTTP %d", parsed.Host, resp.StatusCode), nil).
			WithContext("status", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if cfg.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, cfg.MaxBodyBytes)
	}

	text, err := ExtractDescription(body)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.NewInsufficientInputError("jobUrl",
			fmt.Sprintf("No job description text found at %s", parsed.Host))
	}
	return text, nil
}

var spaceRun = regexp.MustCompile(`\s+`)

// ExtractDescription removes page chrome and returns the text of the first
// description-like element, or of the whole body.
func ExtractDescription(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeTextExtraction, "Failed to parse job posting HTML", err)
	}

	doc.Find(noiseSelector).Remove()

	content := doc.Find("body")
	for _, selector := range descriptionSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	// Block elements would otherwise run their words together.
	content.Find("p, li, br, h1, h2, h3, h4, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return strings.TrimSpace(spaceRun.ReplaceAllString(content.Text(), " ")), nil
}
