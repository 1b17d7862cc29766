package utils

import (
	"context"
	"errors"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrInvalidRequest   = errors.New("invalid crawl request")          // Input error: rejected before any fetch
	ErrClientHTTPError  = errors.New("client HTTP error (4xx)")        // Wraps original error/status
	ErrServerHTTPError  = errors.New("server HTTP error (5xx)")        // Wraps original error/status
	ErrOtherHTTPError   = errors.New("other HTTP error (non-2xx)")     // Wraps original error/status
	ErrParsing          = errors.New("parsing error")                  // Wraps specific parsing error (HTML, URL)
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrResponseBodyRead = errors.New("failed to read response body")
	ErrConversion       = errors.New("failed to convert HTML to markdown")
	ErrDatabase         = errors.New("database error") // Wraps badger errors
	ErrConfigValidation = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "Input_Invalid"
	case errors.Is(err, ErrClientHTTPError):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403 ") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 429 ") {
			return "HTTP_429"
		}
		return "HTTP_4xx"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrParsing):
		if strings.Contains(err.Error(), "URL") {
			return "Content_ParsingURL"
		}
		return "Content_ParsingHTML"
	case errors.Is(err, ErrConversion):
		return "Content_Markdown"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Network_Timeout"
	}

	// Network errors without custom sentinels
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") || strings.Contains(lowerErrMsg, "deadline exceeded") {
		return "Network_Timeout"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate") {
		return "Network_TLS"
	}
	if strings.Contains(lowerErrMsg, "reset by peer") {
		return "Network_ConnectionReset"
	}

	return "Unknown"
}
