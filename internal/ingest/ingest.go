// Package ingest turns uploaded resume files into clean plain text and
// keeps the stored copies under the upload directory.
package ingest

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"resumatch/internal/config"
	"resumatch/internal/errors"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var textExtensions = []string{".txt", ".md", ".markdown", ".text"}

// Ingestor validates, extracts and stores uploaded resumes.
type Ingestor struct {
	dir     string
	maxSize int64
	allowed []string
	logger  *errors.Logger
}

// New creates an Ingestor for the upload section of the config.
func New(cfg config.UploadConfig, logger *errors.Logger) *Ingestor {
	allowed := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed = append(allowed, strings.ToLower(ext))
	}
	return &Ingestor{
		dir:     cfg.Dir,
		maxSize: cfg.MaxFileSize,
		allowed: allowed,
		logger:  logger,
	}
}

// Extract checks the extension and size of an upload and returns its
// cleaned text.
func (i *Ingestor) Extract(filename string, data []byte) (string, error) {
	ext := Extension(filename)
	if !slices.Contains(i.allowed, ext) {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFile,
			fmt.Sprintf("Unsupported file type %q (allowed: %s)", ext, strings.Join(i.allowed, ", ")), nil)
	}
	if int64(len(data)) > i.maxSize {
		return "", errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File is %s, the limit is %s", FormatFileSize(int64(len(data))), FormatFileSize(i.maxSize)), nil)
	}
	return ExtractText(filename, data)
}

// Store writes data under the upload dir with a collision-free name and
// returns the path.
func (i *Ingestor) Store(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(i.dir, 0o750); err != nil {
		return "", errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create upload directory: %s", i.dir), err)
	}
	path := filepath.Join(i.dir, StoredName(filename))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", path), err)
	}
	if i.logger != nil {
		i.logger.Debug("Stored upload", "path", path, "size", len(data))
	}
	return path, nil
}

// Remove deletes a stored upload. A missing file is not an error.
func (i *Ingestor) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("FILE_DELETE_FAILED",
			fmt.Sprintf("Cannot delete file: %s", path), err)
	}
	return nil
}

// ReadFile reads a local resume or job file of any supported kind,
// including plain text.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "filename cannot be empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", path), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot access file: %s", path), err)
	}
	if info.IsDir() {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Path is a directory, not a file: %s", path), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}
	return ExtractText(path, data)
}

// ExtractText dispatches on the file extension.
func ExtractText(filename string, data []byte) (string, error) {
	var (
		raw string
		err error
	)
	switch ext := Extension(filename); {
	case ext == ".pdf":
		raw, err = extractPDF(data)
	case ext == ".docx":
		raw, err = extractDocx(data)
	case slices.Contains(textExtensions, ext):
		raw = string(data)
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFile,
			fmt.Sprintf("Unsupported file type: %q", ext), nil)
	}
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeTextExtraction,
			fmt.Sprintf("Could not extract text from %s", filepath.Base(filename)), err)
	}

	text := Clean(raw)
	if text == "" {
		return "", errors.NewInsufficientInputError("file",
			fmt.Sprintf("could not extract text from %s", filepath.Base(filename)))
	}
	return text, nil
}

// extractPDF concatenates the plain text of every non-null page in order.
// The pdf reader panics on some malformed files.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var b strings.Builder
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", n, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}

var (
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// extractDocx returns the document body with the WordprocessingML tags removed.
func extractDocx(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, " ")
	return html.UnescapeString(content), nil
}

// Clean drops private-use runes (icon fonts in PDFs land in U+F000-U+F8FF)
// and collapses whitespace.
func Clean(text string) string {
	text = strings.Map(func(r rune) rune {
		if r >= 0xF000 && r <= 0xF8FF {
			return -1
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// Extension returns the lowercase extension of filename.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client-supplied name to a safe base name.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// StoredName prefixes the sanitized name with a random hex id.
func StoredName(original string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id + "_" + SanitizeFilename(original)
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
