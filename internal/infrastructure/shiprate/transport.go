package shiprate

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/shopspring/decimal"
)

const (
	// defaultTimeoutSeconds is the HTTP timeout when none is configured
	defaultTimeoutSeconds = 30
	// maxResponseSize caps provider response bodies at 10MB
	maxResponseSize = 10 * 1024 * 1024
)

// rateLimitedTransport throttles outbound requests so burst traffic cannot
// trip a provider's rate limiter.
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

// newHTTPClient builds the shared throttled client for a rate provider
func newHTTPClient(timeoutSeconds int, rps float64) *http.Client {
	return &http.Client{
		Timeout: time.Duration(timeoutSeconds) * time.Second,
		Transport: &rateLimitedTransport{
			limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
			base:    http.DefaultTransport,
		},
	}
}

// parseDecimal parses a provider amount string, returning zero on garbage
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// floatToDecimal converts a provider float amount to decimal
func floatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// gramsToOunces converts a gram weight to ounces for imperial-unit APIs
func gramsToOunces(grams decimal.Decimal) decimal.Decimal {
	return grams.Div(decimal.NewFromFloat(28.3495)).Round(2)
}

// cmToInches converts a centimeter dimension to inches for imperial-unit APIs
func cmToInches(cm decimal.Decimal) decimal.Decimal {
	return cm.Div(decimal.NewFromFloat(2.54)).Round(2)
}
