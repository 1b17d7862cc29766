package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-analyzer/pkg/utils"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestFetcher(maxPageSize int64) *HTTPFetcher {
	return NewHTTPFetcher(&http.Client{Timeout: 30 * time.Second}, 10*time.Second, maxPageSize, testLogger())
}

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Sample Docs</title>
  <meta name="description" content="A sample documentation page">
  <meta name="keywords" content="docs, sample, test">
  <meta property="og:title" content="Sample Docs OG">
  <meta property="og:type" content="article">
  <meta name="robots" content="index,follow">
</head>
<body>
  <h1>Getting Started</h1>
  <p>Welcome to the sample documentation.</p>
  <a href="/guide">Guide</a>
  <a href="/guide">Guide duplicate</a>
  <a href="https://other.example/ref">External reference</a>
  <a href="#section">Skip fragment</a>
  <a href="mailto:team@example.com">Skip mailto</a>
  <a href="javascript:void(0)">Skip javascript</a>
</body>
</html>`

func TestFetch_ExtractsContentAndStructure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, samplePage)
	}))
	t.Cleanup(server.Close)

	fetcher := newTestFetcher(1 << 20)
	page, err := fetcher.Fetch(context.Background(), server.URL, "test-agent/1.0")
	require.NoError(t, err)
	require.NotNil(t, page)

	assert.Equal(t, "Getting Started", page.Title)
	assert.Contains(t, page.Content, "Getting Started")
	assert.Contains(t, page.Content, "Welcome to the sample documentation")
	assert.Contains(t, page.HTML, "<h1>Getting Started</h1>")

	assert.Equal(t, "Sample Docs", page.Metadata["title"])
	assert.Equal(t, "A sample documentation page", page.Metadata["description"])
	assert.Equal(t, "docs, sample, test", page.Metadata["keywords"])
	assert.Equal(t, "Sample Docs OG", page.Metadata["og:title"])
	assert.Equal(t, "article", page.Metadata["og:type"])
	assert.NotContains(t, page.Metadata, "robots")

	// Fragment, mailto, javascript links skipped; duplicate collapsed
	require.Len(t, page.Links, 2)
	assert.Equal(t, server.URL+"/guide", page.Links[0].URL)
	assert.True(t, page.Links[0].Internal)
	assert.Equal(t, "https://other.example/ref", page.Links[1].URL)
	assert.False(t, page.Links[1].Internal)
}

func TestFetch_TitleFallsBackToTitleTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head><title>Only A Title</title></head><body><p>no headings here</p></body></html>`)
	}))
	t.Cleanup(server.Close)

	fetcher := newTestFetcher(1 << 20)
	page, err := fetcher.Fetch(context.Background(), server.URL, "ua")
	require.NoError(t, err)
	assert.Equal(t, "Only A Title", page.Title)
}

func TestFetch_TitleDefaultWhenNothingFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><p>bare paragraph</p></body></html>`)
	}))
	t.Cleanup(server.Close)

	fetcher := newTestFetcher(1 << 20)
	page, err := fetcher.Fetch(context.Background(), server.URL, "ua")
	require.NoError(t, err)
	assert.Equal(t, "Website Content", page.Title)
}

func TestFetch_HTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		sentinel   error
	}{
		{"404 not found", http.StatusNotFound, utils.ErrClientHTTPError},
		{"403 forbidden", http.StatusForbidden, utils.ErrClientHTTPError},
		{"500 server error", http.StatusInternalServerError, utils.ErrServerHTTPError},
		{"503 unavailable", http.StatusServiceUnavailable, utils.ErrServerHTTPError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			t.Cleanup(server.Close)

			fetcher := newTestFetcher(1 << 20)
			page, err := fetcher.Fetch(context.Background(), server.URL, "ua")
			assert.Nil(t, page)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestFetch_OversizedPageRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>"+strings.Repeat("x", 4096)+"</body></html>")
	}))
	t.Cleanup(server.Close)

	fetcher := newTestFetcher(1024)
	page, err := fetcher.Fetch(context.Background(), server.URL, "ua")
	assert.Nil(t, page)
	assert.ErrorIs(t, err, utils.ErrResponseBodyRead)
}

func TestFetch_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fetcher := newTestFetcher(1 << 20)
	start := time.Now()
	_, err := fetcher.Fetch(ctx, server.URL, "ua")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetch_FollowsRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		io.WriteString(w, `<html><head><title>Final</title></head><body><h1>Final</h1><a href="/next">n</a></body></html>`)
	}))
	t.Cleanup(server.Close)

	fetcher := newTestFetcher(1 << 20)
	page, err := fetcher.Fetch(context.Background(), server.URL+"/old", "ua")
	require.NoError(t, err)

	// Final URL reflects the redirect target and link resolution uses it
	assert.Equal(t, server.URL+"/new", page.URL)
	require.Len(t, page.Links, 1)
	assert.Equal(t, server.URL+"/next", page.Links[0].URL)
}
