package parse

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase scheme and host", "HTTP://EXAMPLE.COM/Path", "http://example.com/Path"},
		{"strip default http port", "http://example.com:80/page", "http://example.com/page"},
		{"strip default https port", "https://example.com:443/page", "https://example.com/page"},
		{"keep non-default port", "http://example.com:8080/page", "http://example.com:8080/page"},
		{"empty path becomes root", "http://example.com", "http://example.com/"},
		{"root path unchanged", "http://example.com/", "http://example.com/"},
		{"strip trailing slash", "http://example.com/docs/", "http://example.com/docs"},
		{"strip fragment", "http://example.com/page#section", "http://example.com/page"},
		{"strip query", "http://example.com/page?q=1&v=2", "http://example.com/page"},
		{"path case preserved", "http://example.com/Docs/API", "http://example.com/Docs/API"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, NormalizeURL(u))
		})
	}
}

func TestNormalizeURL_NilInput(t *testing.T) {
	assert.Equal(t, "", NormalizeURL(nil))
}

func TestNormalizeURL_DoesNotMutateInput(t *testing.T) {
	u, err := url.Parse("HTTP://Example.COM/docs/?q=1#frag")
	require.NoError(t, err)

	NormalizeURL(u)

	assert.Equal(t, "HTTP", u.Scheme)
	assert.Equal(t, "Example.COM", u.Host)
	assert.Equal(t, "q=1", u.RawQuery)
	assert.Equal(t, "frag", u.Fragment)
}

func TestNormalizeURL_EquivalentFormsCollapse(t *testing.T) {
	// Different spellings of the same resource must normalize identically
	forms := []string{
		"http://example.com/docs",
		"http://EXAMPLE.com/docs",
		"http://example.com:80/docs",
		"http://example.com/docs/",
		"http://example.com/docs?utm=x",
		"http://example.com/docs#top",
	}

	var first string
	for i, raw := range forms {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		got := NormalizeURL(u)
		if i == 0 {
			first = got
			continue
		}
		assert.Equal(t, first, got, "form %q diverged", raw)
	}
}

func TestParseAndNormalize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		expectErr bool
	}{
		{"valid http", "http://example.com/page", "http://example.com/page", false},
		{"valid https", "https://example.com", "https://example.com/", false},
		{"missing scheme", "example.com/page", "", true},
		{"unsupported scheme", "ftp://example.com/file", "", true},
		{"javascript scheme", "javascript:void(0)", "", true},
		{"missing host", "http:///path", "", true},
		{"empty string", "", "", true},
		{"garbage", "://not a url", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, parsed, err := ParseAndNormalize(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, parsed)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, parsed)
			assert.Equal(t, tt.expected, normalized)
		})
	}
}
