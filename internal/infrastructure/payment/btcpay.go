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
	"strconv"
	"time"

	"github.com/creatorcommerce/backend/internal/domain/payment"
)

// Errors for BTCPay configuration
var (
	ErrBTCPayMissingAPIKey  = errors.New("btcpay: API key is required")
	ErrBTCPayMissingStoreID = errors.New("btcpay: store ID is required")
	ErrBTCPayMissingBaseURL = errors.New("btcpay: server base URL is required")
)

// BTCPayConfig holds configuration for a BTCPay Server instance. BTCPay is
// self-hosted, so the base URL is always explicit.
type BTCPayConfig struct {
	// APIKey is the Greenfield API key
	APIKey string
	// StoreID scopes invoice operations to one store
	StoreID string
	// APIBaseURL is the server root (e.g. https://pay.example.com)
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the BTCPay configuration
func (c *BTCPayConfig) Validate() error {
	if c.APIKey == "" {
		return ErrBTCPayMissingAPIKey
	}
	if c.StoreID == "" {
		return ErrBTCPayMissingStoreID
	}
	if c.APIBaseURL == "" {
		return ErrBTCPayMissingBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// BTCPayProcessor implements the CryptoProcessor interface against the
// BTCPay Server Greenfield API.
type BTCPayProcessor struct {
	config     *BTCPayConfig
	httpClient *http.Client
}

// NewBTCPayProcessor creates a new BTCPay processor
func NewBTCPayProcessor(config *BTCPayConfig) (*BTCPayProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &BTCPayProcessor{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// Name returns the processor key used for dispatch
func (p *BTCPayProcessor) Name() string { return "btcpay" }

type btcpayInvoice struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	CheckoutLink string `json:"checkoutLink"`
	CreatedTime  int64  `json:"createdTime"`
}

// CreatePayment creates a Greenfield invoice for the intent
func (p *BTCPayProcessor) CreatePayment(ctx context.Context, intent *payment.Intent, opts payment.CryptoOptions) (*payment.CryptoCharge, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	metadata := map[string]any{"orderId": intent.OrderID}
	if opts.BuyerEmail != "" {
		metadata["buyerEmail"] = opts.BuyerEmail
	}
	payload := map[string]any{
		"amount":   intent.Amount.String(),
		"currency": intent.Currency,
		"metadata": metadata,
	}
	if opts.SuccessURL != "" {
		payload["checkout"] = map[string]any{"redirectURL": opts.SuccessURL}
	}

	data, err := p.doRequest(ctx, http.MethodPost, p.storePath("/invoices"), payload)
	if err != nil {
		return nil, err
	}

	var invoice btcpayInvoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}

	return &payment.CryptoCharge{
		ProcessorID: p.Name(),
		ChargeID:    invoice.ID,
		Status:      mapBTCPayStatus(invoice.Status),
		HostedURL:   invoice.CheckoutLink,
		PayCurrency: opts.PayCurrency,
		CreatedAt:   time.Unix(invoice.CreatedTime, 0).UTC(),
	}, nil
}

// GetStatus reads back the status of an invoice
func (p *BTCPayProcessor) GetStatus(ctx context.Context, chargeID string) (payment.ChargeStatus, error) {
	data, err := p.doRequest(ctx, http.MethodGet, p.storePath("/invoices/"+url.PathEscape(chargeID)), nil)
	if err != nil {
		return "", err
	}

	var invoice btcpayInvoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}
	return mapBTCPayStatus(invoice.Status), nil
}

func (p *BTCPayProcessor) storePath(suffix string) string {
	return "/api/v1/stores/" + url.PathEscape(p.config.StoreID) + suffix
}

// doRequest performs an HTTP request against the Greenfield API
func (p *BTCPayProcessor) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("btcpay: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("btcpay: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+p.config.APIKey)
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
		return nil, fmt.Errorf("btcpay: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, payment.ErrChargeNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: btcpay: HTTP %s", payment.ErrProcessorRequestFailed,
			strconv.Itoa(resp.StatusCode))
	}
	return body, nil
}

// mapBTCPayStatus maps Greenfield invoice states to normalized statuses
func mapBTCPayStatus(status string) payment.ChargeStatus {
	switch status {
	case "Settled":
		return payment.ChargeStatusConfirmed
	case "Expired":
		return payment.ChargeStatusExpired
	case "Invalid":
		return payment.ChargeStatusFailed
	default:
		// New and Processing invoices are still pending settlement.
		return payment.ChargeStatusPending
	}
}

// Ensure BTCPayProcessor implements the CryptoProcessor interface
var _ payment.CryptoProcessor = (*BTCPayProcessor)(nil)
