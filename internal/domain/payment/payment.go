package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Payment Errors
// ---------------------------------------------------------------------------

var (
	ErrProcessorNotConfigured = errors.New("payment: processor not configured")
	ErrUnknownProcessor       = errors.New("payment: unknown processor")
	ErrProcessorUnavailable   = errors.New("payment: processor temporarily unavailable")
	ErrProcessorRequestFailed = errors.New("payment: processor request failed")
	ErrInvalidIntent          = errors.New("payment: invalid payment intent")
	ErrChargeNotFound         = errors.New("payment: charge not found")
)

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// Intent describes one payment attempt. Intents are created per attempt and
// never retried automatically by this layer.
type Intent struct {
	// Amount is the charge amount
	Amount decimal.Decimal
	// Currency is the ISO currency code (fiat) or numeric code for
	// link-based processors
	Currency string
	// OrderID is the caller's order reference
	OrderID string
	// ProcessorID selects the processor for manager dispatch
	ProcessorID string
	// Metadata is passed through to the processor where supported
	Metadata map[string]string
}

// Validate validates the intent
func (i *Intent) Validate() error {
	if i.Amount.IsZero() || i.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidIntent)
	}
	if i.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidIntent)
	}
	if i.OrderID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidIntent)
	}
	return nil
}

// CryptoOptions is the generic option bag the manager translates into each
// processor's specific parameters
type CryptoOptions struct {
	// PayCurrency is the target crypto asset (e.g. "BTC")
	PayCurrency string
	// CallbackURL receives the processor's IPN callbacks
	CallbackURL string
	// SuccessURL is where the buyer lands after paying
	SuccessURL string
	// CancelURL is where the buyer lands after aborting
	CancelURL string
	// BuyerEmail is the buyer's email where the processor requires one
	BuyerEmail string
}

// ChargeStatus is the normalized state of a crypto charge
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "PENDING"
	ChargeStatusConfirmed ChargeStatus = "CONFIRMED"
	ChargeStatusFailed    ChargeStatus = "FAILED"
	ChargeStatusExpired   ChargeStatus = "EXPIRED"
	ChargeStatusRefunded  ChargeStatus = "REFUNDED"
)

// CryptoCharge is the provider artifact returned by charge/invoice creation
type CryptoCharge struct {
	// ProcessorID identifies the processor that created the charge
	ProcessorID string
	// ChargeID is the charge/invoice id on the processor
	ChargeID string
	// Status is the normalized charge status
	Status ChargeStatus
	// HostedURL is the processor-hosted checkout page
	HostedURL string
	// PayAddress is the on-chain deposit address, when exposed
	PayAddress string
	// PayCurrency is the crypto asset the buyer pays in
	PayCurrency string
	// PayAmount is the amount due in PayCurrency, when exposed
	PayAmount decimal.Decimal
	// CreatedAt is the charge creation time
	CreatedAt time.Time
}

// Link is the artifact returned by link-based fiat processors: a signed
// redirect URL rather than an API-side charge.
type Link struct {
	// ProcessorID identifies the processor
	ProcessorID string
	// URL is the signed payment-form URL
	URL string
	// Digest is the form digest embedded in the URL
	Digest string
}

// ---------------------------------------------------------------------------
// Processor Port Interfaces
// ---------------------------------------------------------------------------

// CryptoProcessor is the port implemented by each invoice/charge-oriented
// cryptocurrency processor.
type CryptoProcessor interface {
	// Name returns the processor key used for manager dispatch
	Name() string

	// CreatePayment creates a charge/invoice for the intent
	CreatePayment(ctx context.Context, intent *Intent, opts CryptoOptions) (*CryptoCharge, error)

	// GetStatus reads back the status of an existing charge
	GetStatus(ctx context.Context, chargeID string) (ChargeStatus, error)
}
