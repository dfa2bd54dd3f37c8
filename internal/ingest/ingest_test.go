package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumatch/internal/config"
	"resumatch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testIngestor(t *testing.T) *Ingestor {
	return New(config.UploadConfig{
		Dir:               t.TempDir(),
		MaxFileSize:       1024,
		AllowedExtensions: []string{".PDF", ".docx"},
	}, nil)
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p><w:p><w:r><w:t>Go &amp; Kubernetes</w:t></w:r></w:p>`)

	text, err := testIngestor(t).Extract("resume.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe Go & Kubernetes", text)
}

func TestExtractRejects(t *testing.T) {
	ing := testIngestor(t)

	tests := []struct {
		name     string
		filename string
		data     []byte
		wantType errors.ErrorType
		wantCode string
	}{
		{"unsupported extension", "resume.exe", []byte("MZ"), errors.ErrorTypeValidation, errors.ErrCodeUnsupportedFile},
		{"text not allowed for uploads", "resume.txt", []byte("hello"), errors.ErrorTypeValidation, errors.ErrCodeUnsupportedFile},
		{"too large", "resume.pdf", bytes.Repeat([]byte("x"), 2048), errors.ErrorTypeValidation, errors.ErrCodeFileTooLarge},
		{"not a pdf", "resume.pdf", []byte("definitely not a pdf"), errors.ErrorTypeIO, errors.ErrCodeTextExtraction},
		{"not a docx", "resume.docx", []byte("plain bytes"), errors.ErrorTypeIO, errors.ErrCodeTextExtraction},
		{"empty docx body", "resume.docx", buildDocx(t, `<w:p></w:p>`), errors.ErrorTypeInsufficientInput, errors.ErrCodeInsufficientInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ing.Extract(tt.filename, tt.data)
			require.Error(t, err)
			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "  Go\n\n\tdeveloper   with\r\nAWS ", "Go developer with AWS"},
		{"drops private use icons", "\uf0b7 Python \uf0e0 jane@example.com", "Python jane@example.com"},
		{"drops control runes", "Go\x00lang\x07", "Golang"},
		{"keeps accents", "Zoë Müller", "Zoë Müller"},
		{"empty", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Resume (final).pdf", "My_Resume_final.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\jane\cv.docx`, "cv.docx"},
		{".hidden.pdf", "hidden.pdf"},
		{"???", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestStoreAndRemove(t *testing.T) {
	ing := testIngestor(t)

	path, err := ing.Store("My CV.pdf", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, ing.dir, filepath.Dir(path))

	base := filepath.Base(path)
	id, name, ok := strings.Cut(base, "_")
	require.True(t, ok)
	assert.Len(t, id, 32)
	assert.Equal(t, "My_CV.pdf", name)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	require.NoError(t, ing.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, ing.Remove(path), "removing twice is fine")
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "job.md")
	require.NoError(t, os.WriteFile(txt, []byte("# Backend Engineer\n\nGo, SQL"), 0o600))

	text, err := ReadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, "# Backend Engineer Go, SQL", text)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))

	_, err = ReadFile(dir)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "10.0 MB", FormatFileSize(10<<20))
}
