package dropship

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// defaultTimeoutSeconds is used when a descriptor carries no timeout
const defaultTimeoutSeconds = 30

// maxResponseSize caps provider response bodies (10MB)
const maxResponseSize = 10 * 1024 * 1024

// rateLimitedTransport throttles outbound calls to one provider. Vendor
// APIs enforce per-account quotas; waiting respects the request context so
// a fan-out timeout still bounds the call.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// newHTTPClient builds the per-adapter HTTP client with the provider
// timeout and a conservative outbound rate limit.
func newHTTPClient(timeoutSeconds int, rps float64) *http.Client {
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}
	if rps <= 0 {
		rps = 5
	}
	return &http.Client{
		Timeout: time.Duration(timeoutSeconds) * time.Second,
		Transport: &rateLimitedTransport{
			limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
			base:    http.DefaultTransport,
		},
	}
}
