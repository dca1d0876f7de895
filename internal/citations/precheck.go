package citations

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sells-group/research-orchestrator/internal/model"
)

// difficultDomains are known to block automated access or sit behind
// auth/paywalls. They are flagged but not hard-failed: the downstream
// scraper has special-case handling some of these respond to.
var difficultDomains = []string{
	"linkedin.com", "facebook.com", "instagram.com",
	"jstor.org", "springer.com", "sciencedirect.com",
	"pdfs.semanticscholar.org",
	"drive.google.com", "docs.google.com",
}

// precheckUserAgent is a realistic browser identity; bare Go UA strings
// get blocked outright by a long tail of sites.
const precheckUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// PrecheckResult is the classified outcome of a reachability probe.
// Probe never returns a Go error; every failure mode maps to a Result so
// the pool can fold it straight into its accounting.
type PrecheckResult struct {
	Reachable   bool
	StatusCode  int // 0 when no HTTP response was obtained
	ContentType string
	Message     string
	Kind        model.ErrorKind
	// Warning marks reachable-but-risky results (difficult domain, PDF).
	Warning bool
}

// Prechecker probes a URL for basic reachability before expensive scraping.
type Prechecker interface {
	Probe(ctx context.Context, rawURL string, timeout time.Duration) PrecheckResult
}

// HTTPPrechecker issues a HEAD request with a short timeout.
type HTTPPrechecker struct {
	client *http.Client
}

// NewPrechecker builds a prechecker with its own transport; redirects are
// followed up to the stdlib's limit of 10, and loops surface as a
// distinct "too many redirects" message.
func NewPrechecker() *HTTPPrechecker {
	return &HTTPPrechecker{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// Probe validates the URL shape, flags difficult domains, then issues a
// lightweight HEAD request and classifies the result by status code range
// and content type.
func (p *HTTPPrechecker) Probe(ctx context.Context, rawURL string, timeout time.Duration) PrecheckResult {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return PrecheckResult{
			Message: "invalid URL format",
			Kind:    model.KindValidation,
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return PrecheckResult{
			Message: "unsupported protocol: " + parsed.Scheme,
			Kind:    model.KindValidation,
		}
	}

	host := strings.ToLower(parsed.Host)
	for _, d := range difficultDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return PrecheckResult{
				Reachable: true,
				Warning:   true,
				Message:   "potentially difficult domain " + d,
			}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return PrecheckResult{
			Message: "URL parsing error",
			Kind:    model.KindValidation,
		}
	}
	req.Header.Set("User-Agent", precheckUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return classifyNetworkError(err)
	}
	defer resp.Body.Close()

	return classifyResponse(resp.StatusCode, resp.Header.Get("Content-Type"))
}

func classifyResponse(status int, contentType string) PrecheckResult {
	res := PrecheckResult{StatusCode: status, ContentType: contentType}
	ctLower := strings.ToLower(contentType)

	switch {
	case status >= 200 && status < 300:
		switch {
		case strings.Contains(ctLower, "pdf"):
			res.Reachable = true
			res.Warning = true
			res.Message = "PDF content (may be difficult to process)"
		case strings.Contains(ctLower, "application/") && !strings.Contains(ctLower, "json"):
			res.Message = "binary content type: " + contentType
			res.Kind = model.KindContentExtraction
		default:
			res.Reachable = true
			res.Message = "URL appears accessible"
		}
	case status >= 300 && status < 400:
		// The client already followed redirects; a 3xx here means the
		// chain never resolved, which we don't untangle.
		res.Message = "redirection error"
		res.Kind = model.KindOther
	case status == http.StatusForbidden:
		res.Message = "access forbidden (403)"
		res.Kind = model.KindForbidden
	case status == http.StatusNotFound:
		res.Message = "page not found (404)"
		res.Kind = model.KindNotFound
	case status == http.StatusTooManyRequests:
		res.Message = "rate limited (429)"
		res.Kind = model.KindRateLimited
	default:
		res.Message = "HTTP error"
		res.Kind = model.KindOther
	}
	return res
}

// classifyNetworkError maps transport failures to distinct messages so
// the failure-category report can tell a timeout from a TLS problem.
func classifyNetworkError(err error) PrecheckResult {
	msg := strings.ToLower(err.Error())

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout(),
		errors.Is(err, context.DeadlineExceeded):
		return PrecheckResult{Message: "connection timeout", Kind: model.KindTimeout}
	case strings.Contains(msg, "stopped after"): // net/http redirect limit
		return PrecheckResult{Message: "too many redirects", Kind: model.KindOther}
	case isTLSError(err) || strings.Contains(msg, "certificate"):
		return PrecheckResult{Message: "SSL certificate error", Kind: model.KindOther}
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "connection reset"):
		return PrecheckResult{Message: "connection error", Kind: model.KindTransient}
	default:
		return PrecheckResult{Message: "request error: " + err.Error(), Kind: model.KindOther}
	}
}

func isTLSError(err error) bool {
	var (
		recordErr tls.RecordHeaderError
		certErr   *tls.CertificateVerificationError
	)
	return errors.As(err, &recordErr) || errors.As(err, &certErr)
}
