package webhook

import (
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/creatorcommerce/backend/internal/domain/webhook"
)

// Signature header names per provider
const (
	coinbaseSignatureHeader     = "X-CC-Webhook-Signature"
	btcpaySignatureHeader       = "BTCPay-Sig"
	coinpaymentsSignatureHeader = "HMAC"
)

// Verifier authenticates and normalizes inbound provider webhooks. Each
// provider id maps to one verification scheme and one payload shape; the
// secret for each provider is selected at composition time (webhook
// secret, IPN secret, API key or form salt depending on the provider).
type Verifier struct {
	secrets map[string]string
	log     *zap.Logger
}

// NewVerifier creates a verifier over the given provider secrets
func NewVerifier(secrets map[string]string, log *zap.Logger) *Verifier {
	return &Verifier{secrets: secrets, log: log}
}

// VerifyAndNormalize authenticates the raw webhook and converts it into a
// normalized event. Verification failure is fatal: no event is returned
// and the caller must reject the delivery.
func (v *Verifier) VerifyAndNormalize(providerID string, headers http.Header, payload []byte) (*webhook.Event, error) {
	secret, ok := v.secrets[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", webhook.ErrUnknownProvider, providerID)
	}

	var event *webhook.Event
	var err error

	switch providerID {
	case "coinbase":
		if err = v.verifyHeader(headers, coinbaseSignatureHeader, secret, payload, VerifyHMACSHA256); err == nil {
			event, err = parseCoinbaseEvent(payload)
		}
	case "btcpay":
		if err = v.verifyHeader(headers, btcpaySignatureHeader, secret, payload, VerifyHMACSHA256Prefixed); err == nil {
			event, err = parseBTCPayEvent(payload)
		}
	case "coinpayments":
		if err = v.verifyHeader(headers, coinpaymentsSignatureHeader, secret, payload, VerifyHMACSHA512); err == nil {
			event, err = parseCoinPaymentsEvent(payload)
		}
	case "plisio":
		if err = VerifySortedJSONHMACSHA1(secret, payload); err == nil {
			event, err = parsePlisioEvent(payload)
		}
	case "ccbill":
		var fields map[string]string
		if fields, err = parseFormFields(payload); err == nil {
			if err = VerifyCCBillDigest(secret, fields); err == nil {
				event = parseCCBillEvent(fields)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", webhook.ErrUnknownProvider, providerID)
	}

	if err != nil {
		v.log.Warn("webhook rejected",
			zap.String("provider", providerID),
			zap.Error(err))
		return nil, err
	}

	v.log.Info("webhook verified",
		zap.String("provider", providerID),
		zap.String("event_type", event.Type.String()),
		zap.String("transaction_id", event.ExternalTransactionID))
	return event, nil
}

// verifyHeader pulls the named signature header and runs the scheme
func (v *Verifier) verifyHeader(headers http.Header, name, secret string, payload []byte, verify func(string, []byte, string) error) error {
	signature := headers.Get(name)
	if signature == "" {
		return webhook.ErrMissingSignature
	}
	return verify(secret, payload, signature)
}

// parseFormFields decodes a form-encoded payload into a flat field map
func parseFormFields(payload []byte) (map[string]string, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", webhook.ErrMalformedPayload, err)
	}
	fields := make(map[string]string, len(values))
	for key := range values {
		fields[key] = values.Get(key)
	}
	return fields, nil
}
