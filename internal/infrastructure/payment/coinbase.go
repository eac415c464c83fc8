package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/creatorcommerce/backend/internal/domain/payment"
)

// CoinbaseProductionAPIURL is the production Commerce API endpoint
const CoinbaseProductionAPIURL = "https://api.commerce.coinbase.com"

// coinbaseAPIVersion pins the Commerce API behavior
const coinbaseAPIVersion = "2018-03-22"

// Errors for Coinbase Commerce configuration
var ErrCoinbaseMissingAPIKey = errors.New("coinbase: API key is required")

// CoinbaseConfig holds configuration for the Coinbase Commerce API
type CoinbaseConfig struct {
	// APIKey is sent in the X-CC-Api-Key header
	APIKey string
	// APIBaseURL is the base URL for the Commerce API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the Coinbase Commerce configuration
func (c *CoinbaseConfig) Validate() error {
	if c.APIKey == "" {
		return ErrCoinbaseMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = CoinbaseProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// CoinbaseProcessor implements the CryptoProcessor interface for Coinbase
// Commerce hosted charges.
type CoinbaseProcessor struct {
	config     *CoinbaseConfig
	httpClient *http.Client
}

// NewCoinbaseProcessor creates a new Coinbase Commerce processor
func NewCoinbaseProcessor(config *CoinbaseConfig) (*CoinbaseProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CoinbaseProcessor{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// Name returns the processor key used for dispatch
func (p *CoinbaseProcessor) Name() string { return "coinbase" }

type coinbaseCharge struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	HostedURL string    `json:"hosted_url"`
	CreatedAt time.Time `json:"created_at"`
	Timeline  []struct {
		Status string `json:"status"`
	} `json:"timeline"`
}

type coinbaseEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePayment creates a hosted charge for the intent
func (p *CoinbaseProcessor) CreatePayment(ctx context.Context, intent *payment.Intent, opts payment.CryptoOptions) (*payment.CryptoCharge, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"name":         "Order " + intent.OrderID,
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   intent.Amount.String(),
			"currency": intent.Currency,
		},
		"metadata": intent.Metadata,
	}
	if opts.SuccessURL != "" {
		payload["redirect_url"] = opts.SuccessURL
	}
	if opts.CancelURL != "" {
		payload["cancel_url"] = opts.CancelURL
	}

	data, err := p.doRequest(ctx, http.MethodPost, "/charges", payload)
	if err != nil {
		return nil, err
	}

	var charge coinbaseCharge
	if err := json.Unmarshal(data, &charge); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}

	return &payment.CryptoCharge{
		ProcessorID: p.Name(),
		ChargeID:    charge.Code,
		Status:      mapCoinbaseStatus(latestTimelineStatus(charge)),
		HostedURL:   charge.HostedURL,
		PayCurrency: opts.PayCurrency,
		CreatedAt:   charge.CreatedAt,
	}, nil
}

// GetStatus reads back the status of a charge by its code
func (p *CoinbaseProcessor) GetStatus(ctx context.Context, chargeID string) (payment.ChargeStatus, error) {
	data, err := p.doRequest(ctx, http.MethodGet, "/charges/"+url.PathEscape(chargeID), nil)
	if err != nil {
		return "", err
	}

	var charge coinbaseCharge
	if err := json.Unmarshal(data, &charge); err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}
	return mapCoinbaseStatus(latestTimelineStatus(charge)), nil
}

// doRequest performs an HTTP request against the Commerce API and unwraps
// the {data, error} envelope.
func (p *CoinbaseProcessor) doRequest(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("coinbase: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("coinbase: failed to create request: %w", err)
	}
	req.Header.Set("X-CC-Api-Key", p.config.APIKey)
	req.Header.Set("X-CC-Version", coinbaseAPIVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("coinbase: failed to read response: %w", err)
	}

	var envelope coinbaseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, payment.ErrChargeNotFound
	}
	if resp.StatusCode >= 400 || envelope.Error != nil {
		msg := http.StatusText(resp.StatusCode)
		if envelope.Error != nil {
			msg = envelope.Error.Message
		}
		return nil, fmt.Errorf("%w: coinbase: %s", payment.ErrProcessorRequestFailed, msg)
	}
	return envelope.Data, nil
}

// latestTimelineStatus returns the newest timeline entry; charges always
// carry at least a NEW entry, but an empty timeline maps to pending.
func latestTimelineStatus(charge coinbaseCharge) string {
	if len(charge.Timeline) == 0 {
		return "NEW"
	}
	return charge.Timeline[len(charge.Timeline)-1].Status
}

// mapCoinbaseStatus maps Commerce timeline states to normalized statuses
func mapCoinbaseStatus(status string) payment.ChargeStatus {
	switch status {
	case "COMPLETED", "RESOLVED":
		return payment.ChargeStatusConfirmed
	case "EXPIRED":
		return payment.ChargeStatusExpired
	case "CANCELED", "UNRESOLVED":
		return payment.ChargeStatusFailed
	case "REFUNDED":
		return payment.ChargeStatusRefunded
	default:
		return payment.ChargeStatusPending
	}
}

// Ensure CoinbaseProcessor implements the CryptoProcessor interface
var _ payment.CryptoProcessor = (*CoinbaseProcessor)(nil)
