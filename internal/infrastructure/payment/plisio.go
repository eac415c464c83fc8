package payment

import (
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

// PlisioProductionAPIURL is the production API endpoint
const PlisioProductionAPIURL = "https://plisio.net/api/v1"

// Errors for Plisio configuration
var ErrPlisioMissingAPIKey = errors.New("plisio: API key is required")

// PlisioConfig holds configuration for the Plisio API
type PlisioConfig struct {
	// APIKey is sent as the api_key query parameter
	APIKey string
	// APIBaseURL is the base URL for the Plisio API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the Plisio configuration
func (c *PlisioConfig) Validate() error {
	if c.APIKey == "" {
		return ErrPlisioMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = PlisioProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// PlisioProcessor implements the CryptoProcessor interface against the
// Plisio white-label invoice API. Plisio is query-authenticated: every
// call carries the api_key parameter.
type PlisioProcessor struct {
	config     *PlisioConfig
	httpClient *http.Client
}

// NewPlisioProcessor creates a new Plisio processor
func NewPlisioProcessor(config *PlisioConfig) (*PlisioProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PlisioProcessor{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// Name returns the processor key used for dispatch
func (p *PlisioProcessor) Name() string { return "plisio" }

type plisioEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type plisioInvoice struct {
	TxnID         string `json:"txn_id"`
	InvoiceURL    string `json:"invoice_url"`
	WalletHash    string `json:"wallet_hash"`
	InvoiceAmount string `json:"invoice_total_sum"`
	Status        string `json:"status"`
}

type plisioError struct {
	Message string `json:"message"`
}

// CreatePayment creates a white-label invoice for the intent
func (p *PlisioProcessor) CreatePayment(ctx context.Context, intent *payment.Intent, opts payment.CryptoOptions) (*payment.CryptoCharge, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{
		"source_currency": {intent.Currency},
		"source_amount":   {intent.Amount.String()},
		"order_number":    {intent.OrderID},
		"order_name":      {"Order " + intent.OrderID},
	}
	if opts.PayCurrency != "" {
		query.Set("currency", opts.PayCurrency)
	}
	if opts.CallbackURL != "" {
		query.Set("callback_url", opts.CallbackURL)
	}
	if opts.BuyerEmail != "" {
		query.Set("email", opts.BuyerEmail)
	}

	data, err := p.doRequest(ctx, "/invoices/new", query)
	if err != nil {
		return nil, err
	}

	var invoice plisioInvoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}

	return &payment.CryptoCharge{
		ProcessorID: p.Name(),
		ChargeID:    invoice.TxnID,
		Status:      mapPlisioStatus(invoice.Status),
		HostedURL:   invoice.InvoiceURL,
		PayAddress:  invoice.WalletHash,
		PayCurrency: opts.PayCurrency,
		PayAmount:   parseCryptoAmount(invoice.InvoiceAmount),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// GetStatus reads back the status of an invoice operation
func (p *PlisioProcessor) GetStatus(ctx context.Context, chargeID string) (payment.ChargeStatus, error) {
	data, err := p.doRequest(ctx, "/operations/"+url.PathEscape(chargeID), url.Values{})
	if err != nil {
		return "", err
	}

	var invoice plisioInvoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}
	return mapPlisioStatus(invoice.Status), nil
}

// doRequest performs a query-authenticated GET and unwraps the
// {status, data} envelope.
func (p *PlisioProcessor) doRequest(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	query.Set("api_key", p.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.APIBaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("plisio: failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("plisio: failed to read response: %w", err)
	}

	var envelope plisioEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, payment.ErrChargeNotFound
	}
	if resp.StatusCode >= 400 || envelope.Status != "success" {
		var e plisioError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(envelope.Data, &e) == nil && e.Message != "" {
			msg = e.Message
		}
		return nil, fmt.Errorf("%w: plisio: %s", payment.ErrProcessorRequestFailed, msg)
	}
	return envelope.Data, nil
}

// mapPlisioStatus maps Plisio invoice states to normalized statuses
func mapPlisioStatus(status string) payment.ChargeStatus {
	switch status {
	case "completed", "mismatch":
		return payment.ChargeStatusConfirmed
	case "expired":
		return payment.ChargeStatusExpired
	case "error", "cancelled":
		return payment.ChargeStatusFailed
	default:
		// new and pending invoices await payment.
		return payment.ChargeStatusPending
	}
}

// Ensure PlisioProcessor implements the CryptoProcessor interface
var _ payment.CryptoProcessor = (*PlisioProcessor)(nil)
