package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/creatorcommerce/backend/internal/domain/payment"
)

// CoinPaymentsProductionAPIURL is the production API endpoint
const CoinPaymentsProductionAPIURL = "https://www.coinpayments.net/api.php"

// Errors for CoinPayments configuration
var (
	ErrCoinPaymentsMissingPublicKey  = errors.New("coinpayments: public key is required")
	ErrCoinPaymentsMissingPrivateKey = errors.New("coinpayments: private key is required")
)

// CoinPaymentsConfig holds configuration for the CoinPayments API
type CoinPaymentsConfig struct {
	// PublicKey identifies the merchant
	PublicKey string
	// PrivateKey signs every request body with HMAC-SHA512
	PrivateKey string
	// APIBaseURL is the API endpoint
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the CoinPayments configuration
func (c *CoinPaymentsConfig) Validate() error {
	if c.PublicKey == "" {
		return ErrCoinPaymentsMissingPublicKey
	}
	if c.PrivateKey == "" {
		return ErrCoinPaymentsMissingPrivateKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = CoinPaymentsProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// CoinPaymentsProcessor implements the CryptoProcessor interface against
// the CoinPayments command API. Every call is a form POST whose body is
// signed with HMAC-SHA512 in the HMAC header.
type CoinPaymentsProcessor struct {
	config     *CoinPaymentsConfig
	httpClient *http.Client
}

// NewCoinPaymentsProcessor creates a new CoinPayments processor
func NewCoinPaymentsProcessor(config *CoinPaymentsConfig) (*CoinPaymentsProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CoinPaymentsProcessor{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// Name returns the processor key used for dispatch
func (p *CoinPaymentsProcessor) Name() string { return "coinpayments" }

type coinpaymentsEnvelope struct {
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

type coinpaymentsTxn struct {
	TxnID       string `json:"txn_id"`
	Address     string `json:"address"`
	Amount      string `json:"amount"`
	CheckoutURL string `json:"checkout_url"`
	StatusURL   string `json:"status_url"`
}

type coinpaymentsTxInfo struct {
	Status     int    `json:"status"`
	StatusText string `json:"status_text"`
}

// CreatePayment creates a crypto transaction for the intent
func (p *CoinPaymentsProcessor) CreatePayment(ctx context.Context, intent *payment.Intent, opts payment.CryptoOptions) (*payment.CryptoCharge, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	form := url.Values{
		"cmd":       {"create_transaction"},
		"amount":    {intent.Amount.String()},
		"currency1": {intent.Currency},
		"currency2": {opts.PayCurrency},
		"item_name": {"Order " + intent.OrderID},
	}
	if opts.BuyerEmail != "" {
		form.Set("buyer_email", opts.BuyerEmail)
	}
	if opts.CallbackURL != "" {
		form.Set("ipn_url", opts.CallbackURL)
	}
	if opts.SuccessURL != "" {
		form.Set("success_url", opts.SuccessURL)
	}
	if opts.CancelURL != "" {
		form.Set("cancel_url", opts.CancelURL)
	}

	result, err := p.doCommand(ctx, form)
	if err != nil {
		return nil, err
	}

	var txn coinpaymentsTxn
	if err := json.Unmarshal(result, &txn); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}

	return &payment.CryptoCharge{
		ProcessorID: p.Name(),
		ChargeID:    txn.TxnID,
		Status:      payment.ChargeStatusPending,
		HostedURL:   txn.CheckoutURL,
		PayAddress:  txn.Address,
		PayCurrency: opts.PayCurrency,
		PayAmount:   parseCryptoAmount(txn.Amount),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// GetStatus reads back the status of a transaction
func (p *CoinPaymentsProcessor) GetStatus(ctx context.Context, chargeID string) (payment.ChargeStatus, error) {
	result, err := p.doCommand(ctx, url.Values{
		"cmd":  {"get_tx_info"},
		"txid": {chargeID},
	})
	if err != nil {
		return "", err
	}

	var info coinpaymentsTxInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}
	return mapCoinPaymentsStatus(info.Status), nil
}

// doCommand signs and posts a command, unwrapping the {error, result}
// envelope. The envelope reports "ok" rather than an empty error on
// success.
func (p *CoinPaymentsProcessor) doCommand(ctx context.Context, form url.Values) (json.RawMessage, error) {
	form.Set("version", "1")
	form.Set("key", p.config.PublicKey)
	encoded := form.Encode()

	mac := hmac.New(sha512.New, []byte(p.config.PrivateKey))
	mac.Write([]byte(encoded))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIBaseURL, strings.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("coinpayments: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HMAC", hex.EncodeToString(mac.Sum(nil)))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("coinpayments: failed to read response: %w", err)
	}

	var envelope coinpaymentsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorRequestFailed, err)
	}
	if envelope.Error != "ok" {
		return nil, fmt.Errorf("%w: coinpayments: %s", payment.ErrProcessorRequestFailed, envelope.Error)
	}
	return envelope.Result, nil
}

// mapCoinPaymentsStatus maps the numeric transaction status. Negative is
// failure, 0 is waiting, >=100 is complete, anything between is an
// intermediate confirmation state.
func mapCoinPaymentsStatus(status int) payment.ChargeStatus {
	switch {
	case status >= 100:
		return payment.ChargeStatusConfirmed
	case status < 0:
		return payment.ChargeStatusFailed
	default:
		return payment.ChargeStatusPending
	}
}

// Ensure CoinPaymentsProcessor implements the CryptoProcessor interface
var _ payment.CryptoProcessor = (*CoinPaymentsProcessor)(nil)
