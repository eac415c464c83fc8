package webhook

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Webhook Errors
// ---------------------------------------------------------------------------

var (
	// ErrSignatureVerificationFailed means the inbound event failed its
	// integrity check. Always fatal to that webhook; never retried and
	// never downgraded to a best-effort success.
	ErrSignatureVerificationFailed = errors.New("webhook: signature verification failed")
	// ErrUnknownProvider means no verifier is registered for the provider id
	ErrUnknownProvider = errors.New("webhook: unknown provider")
	// ErrMalformedPayload means the payload could not be decoded at all
	ErrMalformedPayload = errors.New("webhook: malformed payload")
	// ErrMissingSignature means the request carried no signature to verify
	ErrMissingSignature = errors.New("webhook: missing signature")
)

// ---------------------------------------------------------------------------
// EventType
// ---------------------------------------------------------------------------

// EventType is the fixed enumeration of normalized payment/order events.
// Provider-specific codes that match nothing map to EventTypeUnknown and
// are never silently dropped.
type EventType string

const (
	EventTypeSaleSuccess    EventType = "sale-success"
	EventTypeSaleFailure    EventType = "sale-failure"
	EventTypeRenewalSuccess EventType = "renewal-success"
	EventTypeRenewalFailure EventType = "renewal-failure"
	EventTypeCancellation   EventType = "cancellation"
	EventTypeChargeback     EventType = "chargeback"
	EventTypeRefund         EventType = "refund"
	EventTypeReactivation   EventType = "reactivation"
	EventTypeExpiration     EventType = "expiration"
	EventTypeUnknown        EventType = "unknown"
)

// IsValid returns true if the type is part of the enumeration
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeSaleSuccess, EventTypeSaleFailure, EventTypeRenewalSuccess,
		EventTypeRenewalFailure, EventTypeCancellation, EventTypeChargeback,
		EventTypeRefund, EventTypeReactivation, EventTypeExpiration, EventTypeUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of EventType
func (t EventType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// Event
// ---------------------------------------------------------------------------

// Event is the canonical shape every verified provider webhook is
// normalized into.
type Event struct {
	// ProviderID identifies the originating provider
	ProviderID string
	// Type is the normalized event type
	Type EventType
	// ExternalTransactionID is the provider's transaction id
	ExternalTransactionID string
	// ExternalSubscriptionID is the provider's subscription id, when any
	ExternalSubscriptionID string
	// Amount is the event amount, nil when the provider reports none
	Amount *decimal.Decimal
	// Currency is the event currency, when any
	Currency string
	// CustomerEmail is the customer email, when any
	CustomerEmail string
	// RawPayload is the decoded payload, preserved unmodified
	RawPayload map[string]any
}
