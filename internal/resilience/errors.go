package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/sells-group/research-orchestrator/internal/model"
)

// Error tags a failure with its boundary classification. Collaborator
// adapters (API clients, precheck) populate Kind when the failure shape is
// known, so the core decides retry-vs-fail from the tag instead of parsing
// message text.
type Error struct {
	Kind       model.ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a classification and optional HTTP status code.
func NewError(kind model.ErrorKind, err error, statusCode int) *Error {
	return &Error{Kind: kind, StatusCode: statusCode, Err: err}
}

// NewTransientError wraps an error that is safe to retry (429, 5xx,
// network timeout).
func NewTransientError(err error, statusCode int) *Error {
	kind := model.KindTransient
	if statusCode == 429 {
		kind = model.KindRateLimited
	}
	return &Error{Kind: kind, StatusCode: statusCode, Err: err}
}

// Kind extracts the classification from an error chain, falling back to
// KindOther for unclassified non-nil errors.
func Kind(err error) model.ErrorKind {
	if err == nil {
		return model.KindNone
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if IsTransient(err) {
		return model.KindTransient
	}
	return model.KindOther
}

// StatusCode extracts the HTTP status code from an error chain, or 0.
func StatusCode(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

// rateLimitPhrases are the documented message fragments the upstream APIs
// use for rate-limit-shaped failures. Substring matching on prose is not a
// robust contract, but it is the contract those APIs actually offer; the
// tagged Error type above is preferred wherever the adapter can classify.
var rateLimitPhrases = []string{
	"rate limit",
	"too many requests",
	"429",
	"throttl",
	"quota exceeded",
	"too frequent",
	"timeout",
}

// IsTransient reports whether err is safe to retry: an explicitly tagged
// transient/rate-limited Error, a network-level timeout or connection
// failure, or prose matching a known rate-limit phrase.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case model.KindTransient, model.KindRateLimited, model.KindTimeout:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status code indicates a
// server-side condition that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
