package payment

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/shopspring/decimal"
)

const (
	// defaultTimeoutSeconds is the HTTP timeout when none is configured
	defaultTimeoutSeconds = 30
	// maxResponseSize caps processor response bodies at 10MB
	maxResponseSize = 10 * 1024 * 1024
)

// rateLimitedTransport throttles outbound requests so burst traffic cannot
// trip a processor's rate limiter.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// parseCryptoAmount parses a processor amount string, returning zero on
// garbage rather than failing the whole charge.
func parseCryptoAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// newHTTPClient builds the shared throttled client for a processor
func newHTTPClient(timeoutSeconds int, rps float64) *http.Client {
	return &http.Client{
		Timeout: time.Duration(timeoutSeconds) * time.Second,
		Transport: &rateLimitedTransport{
			limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
			base:    http.DefaultTransport,
		},
	}
}
