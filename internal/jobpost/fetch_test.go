package jobpost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postingHTML = `<html><head><title>Backend Engineer</title><style>.x{}</style></head>
<body>
<nav>Home Jobs About</nav>
<header>Acme Careers</header>
<div class="job-description">
  <h2>Backend Engineer</h2>
  <p>We need Go and PostgreSQL experience.</p>
  <ul><li>Kubernetes</li><li>AWS</li></ul>
  <script>track()</script>
</div>
<footer>© Acme</footer>
</body></html>`

func testFetchConfig() config.JobFetchConfig {
	return config.JobFetchConfig{Timeout: 5 * time.Second, UserAgent: "resumatch-test", MaxBodyBytes: 1 << 20}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "description selector",
			html: postingHTML,
			want: "Backend Engineer We need Go and PostgreSQL experience. Kubernetes AWS",
		},
		{
			name: "falls back to body",
			html: `<html><body><nav>menu</nav><p>Senior data analyst, SQL and Tableau.</p></body></html>`,
			want: "Senior data analyst, SQL and Tableau.",
		},
		{
			name: "main beats body",
			html: `<html><body><div>promo</div><main><p>Nurse, ICU</p></main></body></html>`,
			want: "Nurse, ICU",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractDescription(strings.NewReader(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetch(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/job":
			_, _ = w.Write([]byte(postingHTML))
		case "/empty":
			_, _ = w.Write([]byte(`<html><body><script>x()</script></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	text, err := Fetch(context.Background(), srv.URL+"/job", testFetchConfig())
	require.NoError(t, err)
	assert.Contains(t, text, "PostgreSQL")
	assert.NotContains(t, text, "Acme Careers")
	assert.Equal(t, "resumatch-test", gotAgent)

	_, err = Fetch(context.Background(), srv.URL+"/missing", testFetchConfig())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))

	_, err = Fetch(context.Background(), srv.URL+"/empty", testFetchConfig())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInsufficientInput))
}

func TestFetchRejectsBadURLs(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com/job", "not a url", "https://"} {
		t.Run(u, func(t *testing.T) {
			_, err := Fetch(context.Background(), u, testFetchConfig())
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
}
