package shopify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrNotFound marks a resource absent on the platform. Never retried.
	ErrNotFound = errors.New("shopify: resource not found")

	// ErrCredentialsMissing marks a call made without a usable shop domain
	// or access token. Fails fast, distinct from platform errors.
	ErrCredentialsMissing = errors.New("shopify: shop credentials missing")

	// ErrPaginationLoop marks a paginated listing that returned the same
	// continuation cursor twice.
	ErrPaginationLoop = errors.New("shopify: pagination cursor repeated")
)

// APIError carries status and body for non-2xx Shopify responses so callers
// can decide whether the failure is transient.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify api error: %s %s status=%d body=%s",
		e.Method, e.Path, e.StatusCode, bodySnippet(e.Body))
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}

// IsRetryable classifies an error from a catalog call: 429, 5xx and network
// timeouts retry; everything else propagates to the caller.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
