package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/creatorcommerce/backend/internal/domain/webhook"
)

// Parsers convert verified raw payloads into normalized events. Unknown
// provider codes map to EventTypeUnknown; they are surfaced, not dropped,
// so new provider states never vanish silently.

func parseCoinbaseEvent(payload []byte) (*webhook.Event, error) {
	var body struct {
		Event struct {
			Type string `json:"type"`
			Data struct {
				Code    string `json:"code"`
				Pricing struct {
					Local struct {
						Amount   string `json:"amount"`
						Currency string `json:"currency"`
					} `json:"local"`
				} `json:"pricing"`
			} `json:"data"`
		} `json:"event"`
	}
	raw, err := decodeRaw(payload, &body)
	if err != nil {
		return nil, err
	}

	event := &webhook.Event{
		ProviderID:            "coinbase",
		Type:                  mapCoinbaseEventType(body.Event.Type),
		ExternalTransactionID: body.Event.Data.Code,
		Currency:              body.Event.Data.Pricing.Local.Currency,
		RawPayload:            raw,
	}
	setAmount(event, body.Event.Data.Pricing.Local.Amount)
	return event, nil
}

func mapCoinbaseEventType(t string) webhook.EventType {
	switch t {
	case "charge:confirmed", "charge:resolved":
		return webhook.EventTypeSaleSuccess
	case "charge:failed":
		return webhook.EventTypeSaleFailure
	default:
		return webhook.EventTypeUnknown
	}
}

func parseBTCPayEvent(payload []byte) (*webhook.Event, error) {
	var body struct {
		Type      string `json:"type"`
		InvoiceID string `json:"invoiceId"`
		Metadata  struct {
			BuyerEmail string `json:"buyerEmail"`
		} `json:"metadata"`
	}
	raw, err := decodeRaw(payload, &body)
	if err != nil {
		return nil, err
	}

	return &webhook.Event{
		ProviderID:            "btcpay",
		Type:                  mapBTCPayEventType(body.Type),
		ExternalTransactionID: body.InvoiceID,
		CustomerEmail:         body.Metadata.BuyerEmail,
		RawPayload:            raw,
	}, nil
}

func mapBTCPayEventType(t string) webhook.EventType {
	switch t {
	case "InvoiceSettled", "InvoicePaymentSettled":
		return webhook.EventTypeSaleSuccess
	case "InvoiceInvalid":
		return webhook.EventTypeSaleFailure
	case "InvoiceExpired":
		return webhook.EventTypeExpiration
	default:
		return webhook.EventTypeUnknown
	}
}

// parseCoinPaymentsEvent handles the form-encoded IPN body. The numeric
// status field carries the outcome: >=100 complete, <0 failed, anything
// else still pending.
func parseCoinPaymentsEvent(payload []byte) (*webhook.Event, error) {
	fields, err := parseFormFields(payload)
	if err != nil {
		return nil, err
	}

	event := &webhook.Event{
		ProviderID:            "coinpayments",
		Type:                  webhook.EventTypeUnknown,
		ExternalTransactionID: fields["txn_id"],
		Currency:              fields["currency1"],
		CustomerEmail:         fields["email"],
		RawPayload:            fieldsToRaw(fields),
	}
	setAmount(event, fields["amount1"])

	if status, err := strconv.Atoi(fields["status"]); err == nil {
		switch {
		case status >= 100:
			event.Type = webhook.EventTypeSaleSuccess
		case status < 0:
			event.Type = webhook.EventTypeSaleFailure
		}
	}
	return event, nil
}

func parsePlisioEvent(payload []byte) (*webhook.Event, error) {
	var body struct {
		TxnID    string `json:"txn_id"`
		Status   string `json:"status"`
		Currency string `json:"currency"`
		Email    string `json:"email"`
	}
	raw, err := decodeRaw(payload, &body)
	if err != nil {
		return nil, err
	}

	event := &webhook.Event{
		ProviderID:            "plisio",
		Type:                  mapPlisioEventType(body.Status),
		ExternalTransactionID: body.TxnID,
		Currency:              body.Currency,
		CustomerEmail:         body.Email,
		RawPayload:            raw,
	}
	// Plisio serializes the amount as a bare JSON number or a string
	// depending on the invoice source, so it is read from the raw map.
	setAmount(event, rawAmount(raw["amount"]))
	return event, nil
}

func mapPlisioEventType(status string) webhook.EventType {
	switch status {
	case "completed", "mismatch":
		return webhook.EventTypeSaleSuccess
	case "error", "cancelled":
		return webhook.EventTypeSaleFailure
	case "expired":
		return webhook.EventTypeExpiration
	default:
		return webhook.EventTypeUnknown
	}
}

// parseCCBillEvent normalizes a verified background post. The legacy form
// channel carries no event-name field, so the type is inferred from which
// fields the post carries; anything unrecognized stays unknown.
func parseCCBillEvent(fields map[string]string) *webhook.Event {
	event := &webhook.Event{
		ProviderID:             "ccbill",
		Type:                   inferCCBillEventType(fields),
		ExternalTransactionID:  fields["transactionId"],
		ExternalSubscriptionID: fields["subscriptionId"],
		Currency:               fields["currencyCode"],
		CustomerEmail:          fields["email"],
		RawPayload:             fieldsToRaw(fields),
	}
	if amount := fields["initialPrice"]; amount != "" {
		setAmount(event, amount)
	} else {
		setAmount(event, fields["billedAmount"])
	}
	return event
}

func inferCCBillEventType(fields map[string]string) webhook.EventType {
	switch {
	case fields["reasonForDecline"] != "" || fields["failureCode"] != "":
		if fields["recurringPrice"] != "" {
			return webhook.EventTypeRenewalFailure
		}
		return webhook.EventTypeSaleFailure
	case fields["chargebackDate"] != "":
		return webhook.EventTypeChargeback
	case fields["refundDate"] != "":
		return webhook.EventTypeRefund
	case fields["cancelDate"] != "":
		return webhook.EventTypeCancellation
	case fields["expireDate"] != "":
		return webhook.EventTypeExpiration
	case fields["reactivationDate"] != "":
		return webhook.EventTypeReactivation
	case fields["renewalDate"] != "":
		return webhook.EventTypeRenewalSuccess
	case fields["initialPrice"] != "":
		return webhook.EventTypeSaleSuccess
	default:
		return webhook.EventTypeUnknown
	}
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// decodeRaw unmarshals the payload twice: once into the typed shape and
// once into the raw map preserved on the event.
func decodeRaw(payload []byte, typed any) (map[string]any, error) {
	if err := json.Unmarshal(payload, typed); err != nil {
		return nil, fmt.Errorf("%w: %v", webhook.ErrMalformedPayload, err)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", webhook.ErrMalformedPayload, err)
	}
	return raw, nil
}

// rawAmount renders a raw-map amount value, tolerating both quoted and
// bare-number serializations.
func rawAmount(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case json.Number:
		return a.String()
	default:
		return ""
	}
}

func fieldsToRaw(fields map[string]string) map[string]any {
	raw := make(map[string]any, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	return raw
}

// setAmount attaches a parsed amount to the event, leaving it nil when the
// provider sent nothing usable.
func setAmount(event *webhook.Event, amount string) {
	if amount == "" {
		return
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return
	}
	event.Amount = &d
}
