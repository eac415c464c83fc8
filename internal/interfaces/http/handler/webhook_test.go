package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/creatorcommerce/backend/internal/infrastructure/cache"
	webhookinfra "github.com/creatorcommerce/backend/internal/infrastructure/webhook"
	"github.com/creatorcommerce/backend/internal/interfaces/http/dto"
)

const coinbaseTestSecret = "whsec"

func newWebhookRouter(t *testing.T) (*gin.Engine, *cache.MemoryDedupStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	verifier := webhookinfra.NewVerifier(map[string]string{
		"coinbase": coinbaseTestSecret,
	}, log)
	dedup := cache.NewMemoryDedupStore()
	t.Cleanup(func() { _ = dedup.Close() })

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewWebhookHandler(verifier, dedup, time.Hour, log).RegisterRoutes(api)
	return engine, dedup
}

func coinbasePayload(code string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"event": map[string]any{
			"type": "charge:confirmed",
			"data": map[string]any{
				"code": code,
				"pricing": map[string]any{
					"local": map[string]any{"amount": "25.00", "currency": "USD"},
				},
			},
		},
	})
	return payload
}

func signCoinbase(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(engine *gin.Engine, provider string, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/"+provider, bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-CC-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhookReceiveVerifiesAndNormalizes(t *testing.T) {
	engine, _ := newWebhookRouter(t)

	payload := coinbasePayload("CB1")
	w := postWebhook(engine, "coinbase", payload, signCoinbase(coinbaseTestSecret, payload))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                     `json:"success"`
		Data    dto.WebhookEventResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "coinbase", resp.Data.ProviderID)
	assert.Equal(t, "sale-success", resp.Data.Type)
	assert.Equal(t, "CB1", resp.Data.ExternalTransactionID)
	assert.Equal(t, "25", resp.Data.Amount)
	assert.Equal(t, "USD", resp.Data.Currency)
	assert.False(t, resp.Data.Duplicate)
}

func TestWebhookReceiveRejectsBadSignature(t *testing.T) {
	engine, _ := newWebhookRouter(t)

	payload := coinbasePayload("CB1")
	w := postWebhook(engine, "coinbase", payload, signCoinbase("wrong-secret", payload))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SIGNATURE_INVALID")
}

func TestWebhookReceiveRejectsMissingSignature(t *testing.T) {
	engine, _ := newWebhookRouter(t)

	w := postWebhook(engine, "coinbase", coinbasePayload("CB1"), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SIGNATURE_MISSING")
}

func TestWebhookReceiveUnknownProvider(t *testing.T) {
	engine, _ := newWebhookRouter(t)

	w := postWebhook(engine, "stripe", []byte(`{}`), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "PROVIDER_NOT_FOUND")
}

func TestWebhookReceiveAcknowledgesReplay(t *testing.T) {
	engine, _ := newWebhookRouter(t)

	payload := coinbasePayload("CB-replay")
	signature := signCoinbase(coinbaseTestSecret, payload)

	first := postWebhook(engine, "coinbase", payload, signature)
	require.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(engine, "coinbase", payload, signature)
	require.Equal(t, http.StatusOK, second.Code)

	var resp struct {
		Data dto.WebhookEventResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Duplicate)
}

func TestWebhookReceiveDistinctTransactionsNotDeduplicated(t *testing.T) {
	engine, _ := newWebhookRouter(t)

	for _, code := range []string{"CB-a", "CB-b"} {
		payload := coinbasePayload(code)
		w := postWebhook(engine, "coinbase", payload, signCoinbase(coinbaseTestSecret, payload))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data dto.WebhookEventResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Data.Duplicate, "transaction %s", code)
	}
}
