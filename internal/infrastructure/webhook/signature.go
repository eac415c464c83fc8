package webhook

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/creatorcommerce/backend/internal/domain/webhook"
)

// All comparisons in this file are constant-time. A plain == on hex
// strings leaks timing information about how much of the signature an
// attacker got right.

// VerifyHMACSHA256 checks a hex HMAC-SHA256 signature over the raw payload
func VerifyHMACSHA256(secret string, payload []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return compareHex(mac.Sum(nil), signature)
}

// VerifyHMACSHA256Prefixed checks a "sha256="-prefixed hex signature over
// the raw payload.
func VerifyHMACSHA256Prefixed(secret string, payload []byte, signature string) error {
	trimmed, found := strings.CutPrefix(signature, "sha256=")
	if !found {
		return fmt.Errorf("%w: missing sha256= prefix", webhook.ErrSignatureVerificationFailed)
	}
	return VerifyHMACSHA256(secret, payload, trimmed)
}

// VerifyHMACSHA512 checks a hex HMAC-SHA512 signature over the raw payload
func VerifyHMACSHA512(secret string, payload []byte, signature string) error {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return compareHex(mac.Sum(nil), signature)
}

// VerifySortedJSONHMACSHA1 checks a signature computed over the payload's
// canonical re-serialization: the verify_hash field is removed, the
// remaining object is re-marshaled with lexicographically sorted keys, and
// the result is HMAC-SHA1 signed. Numbers must round-trip verbatim, so
// decoding uses json.Number rather than float64.
func VerifySortedJSONHMACSHA1(secret string, payload []byte) error {
	decoder := json.NewDecoder(strings.NewReader(string(payload)))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return fmt.Errorf("%w: %v", webhook.ErrMalformedPayload, err)
	}

	signature, ok := fields["verify_hash"].(string)
	if !ok || signature == "" {
		return webhook.ErrMissingSignature
	}
	delete(fields, "verify_hash")

	// json.Marshal emits map keys in sorted order, which is exactly the
	// canonical form the provider signs.
	canonical, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", webhook.ErrMalformedPayload, err)
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(canonical)
	return compareHex(mac.Sum(nil), signature)
}

// VerifyCCBillDigest reconstructs the MD5 response digest from the event
// fields and compares it against the transmitted one. New-sale events sign
// subscriptionId + price + period + currency + salt; every other event
// signs subscriptionId + currency + salt. Which form applies is decided by
// field presence, not event name, matching the form processor's behavior.
func VerifyCCBillDigest(salt string, fields map[string]string) error {
	signature := fields["responseDigest"]
	if signature == "" {
		return webhook.ErrMissingSignature
	}

	subscriptionID := fields["subscriptionId"]
	currency := fields["currencyCode"]

	var sum [md5.Size]byte
	if price, ok := fields["initialPrice"]; ok && fields["initialPeriod"] != "" {
		sum = md5.Sum([]byte(subscriptionID + price + fields["initialPeriod"] + currency + salt))
	} else {
		sum = md5.Sum([]byte(subscriptionID + currency + salt))
	}
	return compareHex(sum[:], signature)
}

// compareHex decodes the transmitted hex signature and compares digests in
// constant time.
func compareHex(expected []byte, signature string) error {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", webhook.ErrSignatureVerificationFailed)
	}
	if subtle.ConstantTimeCompare(expected, provided) != 1 {
		return webhook.ErrSignatureVerificationFailed
	}
	return nil
}
