package dto

import (
	"github.com/shopspring/decimal"

	"github.com/creatorcommerce/backend/internal/domain/payment"
	"github.com/creatorcommerce/backend/internal/domain/webhook"
)

func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// PaymentLinkRequest builds a signed single-billing payment link
type PaymentLinkRequest struct {
	Amount     float64           `json:"amount" binding:"required,gt=0"`
	Currency   string            `json:"currency" binding:"required,currencycode"`
	OrderID    string            `json:"order_id" binding:"required"`
	PeriodDays int               `json:"period_days" binding:"required,min=1"`
	Metadata   map[string]string `json:"metadata"`
}

// ToIntent converts to a domain payment intent
func (r *PaymentLinkRequest) ToIntent(processorID string) *payment.Intent {
	return &payment.Intent{
		Amount:      toDecimal(r.Amount),
		Currency:    r.Currency,
		OrderID:     r.OrderID,
		ProcessorID: processorID,
		Metadata:    r.Metadata,
	}
}

// SubscriptionLinkRequest builds a signed recurring-billing payment link
type SubscriptionLinkRequest struct {
	InitialAmount       float64           `json:"initial_amount" binding:"required,gt=0"`
	InitialPeriodDays   int               `json:"initial_period_days" binding:"required,min=1"`
	RecurringAmount     float64           `json:"recurring_amount" binding:"required,gt=0"`
	RecurringPeriodDays int               `json:"recurring_period_days" binding:"required,min=1"`
	Rebills             int               `json:"rebills" binding:"omitempty,min=0,max=99"`
	Currency            string            `json:"currency" binding:"required,currencycode"`
	OrderID             string            `json:"order_id" binding:"required"`
	Metadata            map[string]string `json:"metadata"`
}

// ToIntent converts the initial billing terms to a domain payment intent
func (r *SubscriptionLinkRequest) ToIntent(processorID string) *payment.Intent {
	return &payment.Intent{
		Amount:      toDecimal(r.InitialAmount),
		Currency:    r.Currency,
		OrderID:     r.OrderID,
		ProcessorID: processorID,
		Metadata:    r.Metadata,
	}
}

// ExtendSubscriptionRequest adds billing days to an active subscription
type ExtendSubscriptionRequest struct {
	Days int `json:"days" binding:"required,min=1"`
}

// CryptoChargeRequest creates a charge/invoice with one crypto processor
type CryptoChargeRequest struct {
	Processor   string            `json:"processor" binding:"required"`
	Amount      float64           `json:"amount" binding:"required,gt=0"`
	Currency    string            `json:"currency" binding:"required,currencycode"`
	OrderID     string            `json:"order_id" binding:"required"`
	PayCurrency string            `json:"pay_currency"`
	CallbackURL string            `json:"callback_url" binding:"omitempty,url"`
	SuccessURL  string            `json:"success_url" binding:"omitempty,url"`
	CancelURL   string            `json:"cancel_url" binding:"omitempty,url"`
	BuyerEmail  string            `json:"buyer_email" binding:"omitempty,email"`
	Metadata    map[string]string `json:"metadata"`
}

// ToIntent converts to a domain payment intent
func (r *CryptoChargeRequest) ToIntent() *payment.Intent {
	return &payment.Intent{
		Amount:      toDecimal(r.Amount),
		Currency:    r.Currency,
		OrderID:     r.OrderID,
		ProcessorID: r.Processor,
		Metadata:    r.Metadata,
	}
}

// ToOptions converts to the processor option bag
func (r *CryptoChargeRequest) ToOptions() payment.CryptoOptions {
	return payment.CryptoOptions{
		PayCurrency: r.PayCurrency,
		CallbackURL: r.CallbackURL,
		SuccessURL:  r.SuccessURL,
		CancelURL:   r.CancelURL,
		BuyerEmail:  r.BuyerEmail,
	}
}

// CryptoChargeResponse is a created charge in API shape
type CryptoChargeResponse struct {
	ProcessorID string `json:"processor_id"`
	ChargeID    string `json:"charge_id"`
	Status      string `json:"status"`
	HostedURL   string `json:"hosted_url,omitempty"`
	PayAddress  string `json:"pay_address,omitempty"`
	PayCurrency string `json:"pay_currency,omitempty"`
	PayAmount   string `json:"pay_amount,omitempty"`
}

// FromCryptoCharge converts a domain charge to API shape
func FromCryptoCharge(c *payment.CryptoCharge) CryptoChargeResponse {
	resp := CryptoChargeResponse{
		ProcessorID: c.ProcessorID,
		ChargeID:    c.ChargeID,
		Status:      string(c.Status),
		HostedURL:   c.HostedURL,
		PayAddress:  c.PayAddress,
		PayCurrency: c.PayCurrency,
	}
	if !c.PayAmount.IsZero() {
		resp.PayAmount = c.PayAmount.String()
	}
	return resp
}

// WebhookEventResponse is a verified, normalized webhook event in API shape
type WebhookEventResponse struct {
	ProviderID             string `json:"provider_id"`
	Type                   string `json:"type"`
	ExternalTransactionID  string `json:"external_transaction_id"`
	ExternalSubscriptionID string `json:"external_subscription_id,omitempty"`
	Amount                 string `json:"amount,omitempty"`
	Currency               string `json:"currency,omitempty"`
	CustomerEmail          string `json:"customer_email,omitempty"`
	Duplicate              bool   `json:"duplicate"`
}

// FromWebhookEvent converts a domain event to API shape
func FromWebhookEvent(e *webhook.Event, duplicate bool) WebhookEventResponse {
	resp := WebhookEventResponse{
		ProviderID:             e.ProviderID,
		Type:                   string(e.Type),
		ExternalTransactionID:  e.ExternalTransactionID,
		ExternalSubscriptionID: e.ExternalSubscriptionID,
		Currency:               e.Currency,
		CustomerEmail:          e.CustomerEmail,
		Duplicate:              duplicate,
	}
	if e.Amount != nil {
		resp.Amount = e.Amount.String()
	}
	return resp
}
