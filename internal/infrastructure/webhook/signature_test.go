package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/creatorcommerce/backend/internal/domain/webhook"
)

func TestVerifyHMACSHA256(t *testing.T) {
	payload := []byte(`{"event":{"type":"charge:confirmed","data":{"code":"CB1","pricing":{"local":{"amount":"25.00","currency":"USD"}}}}}`)
	signature := "e46d3a34e798cedbad0e5943a8ad45f1e4bead35d96553b0e1b89ced4619f520"

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, VerifyHMACSHA256("whsec", payload, signature))
	})

	t.Run("flipped payload byte fails", func(t *testing.T) {
		tampered := append([]byte(nil), payload...)
		tampered[10] ^= 0x01
		assert.ErrorIs(t, VerifyHMACSHA256("whsec", tampered, signature),
			webhook.ErrSignatureVerificationFailed)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		assert.ErrorIs(t, VerifyHMACSHA256("other", payload, signature),
			webhook.ErrSignatureVerificationFailed)
	})

	t.Run("non-hex signature fails", func(t *testing.T) {
		assert.ErrorIs(t, VerifyHMACSHA256("whsec", payload, "zz-not-hex"),
			webhook.ErrSignatureVerificationFailed)
	})
}

func TestVerifyHMACSHA256Prefixed(t *testing.T) {
	payload := []byte(`{"type":"InvoiceSettled","invoiceId":"inv-1","metadata":{"buyerEmail":"b@x.com"}}`)
	signature := "sha256=ee62ff305aa3a8029f6804f93717ac0ff34580119f98c3f892e8de3d37a819d6"

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, VerifyHMACSHA256Prefixed("btcsec", payload, signature))
	})

	t.Run("missing prefix fails", func(t *testing.T) {
		bare := signature[len("sha256="):]
		assert.ErrorIs(t, VerifyHMACSHA256Prefixed("btcsec", payload, bare),
			webhook.ErrSignatureVerificationFailed)
	})
}

func TestVerifyHMACSHA512(t *testing.T) {
	payload := []byte("amount1=25.00&currency1=USD&email=b%40x.com&status=100&txn_id=CPGE1")
	signature := "faff26e4f0cab0ffb3371c90fe445bbcb5f35d0bcc5bce1486e606bb49eba48e39152dafc3958cac763446e0290654468b5d3ca9dcc1e7fe0ea2c14bc3a5822f"

	assert.NoError(t, VerifyHMACSHA512("ipnsec", payload, signature))
	assert.ErrorIs(t, VerifyHMACSHA512("wrong", payload, signature),
		webhook.ErrSignatureVerificationFailed)
}

func TestVerifySortedJSONHMACSHA1(t *testing.T) {
	// The signature covers the canonical re-serialization: verify_hash
	// removed, keys sorted, numbers verbatim.
	payload := []byte(`{"txn_id":"pl-1","status":"completed","currency":"USD","amount":10.5,"verify_hash":"b736f84d3154cca63b1d439aedef6c0d7db63893"}`)

	t.Run("valid regardless of key order", func(t *testing.T) {
		assert.NoError(t, VerifySortedJSONHMACSHA1("plkey", payload))
	})

	t.Run("tampered field fails", func(t *testing.T) {
		tampered := []byte(`{"txn_id":"pl-1","status":"completed","currency":"USD","amount":11.5,"verify_hash":"b736f84d3154cca63b1d439aedef6c0d7db63893"}`)
		assert.ErrorIs(t, VerifySortedJSONHMACSHA1("plkey", tampered),
			webhook.ErrSignatureVerificationFailed)
	})

	t.Run("missing verify_hash", func(t *testing.T) {
		assert.ErrorIs(t, VerifySortedJSONHMACSHA1("plkey", []byte(`{"txn_id":"pl-1"}`)),
			webhook.ErrMissingSignature)
	})

	t.Run("malformed payload", func(t *testing.T) {
		assert.ErrorIs(t, VerifySortedJSONHMACSHA1("plkey", []byte("not json")),
			webhook.ErrMalformedPayload)
	})
}

func TestVerifyCCBillDigest(t *testing.T) {
	t.Run("new sale form", func(t *testing.T) {
		fields := map[string]string{
			"subscriptionId": "sub123",
			"initialPrice":   "19.99",
			"initialPeriod":  "30",
			"currencyCode":   "840",
			"responseDigest": "dea7442c9dbc99ae5af068921b468bd5",
		}
		assert.NoError(t, VerifyCCBillDigest("salty", fields))
	})

	t.Run("other event form", func(t *testing.T) {
		fields := map[string]string{
			"subscriptionId": "sub123",
			"currencyCode":   "840",
			"responseDigest": "9b3a2c090f97ad1b8ec9cea201fdc830",
		}
		assert.NoError(t, VerifyCCBillDigest("salty", fields))
	})

	t.Run("wrong salt fails", func(t *testing.T) {
		fields := map[string]string{
			"subscriptionId": "sub123",
			"currencyCode":   "840",
			"responseDigest": "9b3a2c090f97ad1b8ec9cea201fdc830",
		}
		assert.ErrorIs(t, VerifyCCBillDigest("wrong", fields),
			webhook.ErrSignatureVerificationFailed)
	})

	t.Run("missing digest", func(t *testing.T) {
		assert.ErrorIs(t, VerifyCCBillDigest("salty", map[string]string{"subscriptionId": "sub123"}),
			webhook.ErrMissingSignature)
	})
}
