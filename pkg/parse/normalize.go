package parse

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL for deduplication and storage.
// It lowercases the scheme and host, removes default ports (80 for http,
// 443 for https), removes trailing slashes from paths (unless root "/"),
// ensures an empty path becomes "/", and strips fragments and query strings.
// Does not modify the input *url.URL.
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	// Work on a copy
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	// Remove default ports
	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil { // Host included a port
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = normalized.Path[:len(normalized.Path)-1]
	}

	normalized.Fragment = ""
	normalized.RawQuery = ""

	return normalized.String()
}

// ParseAndNormalize parses a URL string using the stricter
// url.ParseRequestURI (requiring a scheme) and then normalizes it.
// Returns the normalized string, the parsed URL, and any parse error.
func ParseAndNormalize(urlStr string) (string, *url.URL, error) {
	parsed, err := url.ParseRequestURI(urlStr)
	if err != nil {
		return "", nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", nil, &url.Error{Op: "parse", URL: urlStr, Err: errUnsupportedScheme}
	}
	if parsed.Hostname() == "" {
		return "", nil, &url.Error{Op: "parse", URL: urlStr, Err: errMissingHost}
	}
	return NormalizeURL(parsed), parsed, nil
}

var (
	errUnsupportedScheme = errString("unsupported scheme (want http or https)")
	errMissingHost       = errString("missing host")
)

type errString string

func (e errString) Error() string { return string(e) }
