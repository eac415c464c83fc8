package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/creatorcommerce/backend/internal/domain/webhook"
	webhookinfra "github.com/creatorcommerce/backend/internal/infrastructure/webhook"
	"github.com/creatorcommerce/backend/internal/interfaces/http/dto"
)

// maxWebhookBody caps inbound webhook payloads at 1MB
const maxWebhookBody = 1 << 20

// WebhookHandler receives provider callbacks, verifies their signatures,
// normalizes them and suppresses replays through the dedup store.
type WebhookHandler struct {
	verifier *webhookinfra.Verifier
	dedup    webhook.DedupStore
	dedupTTL time.Duration
	log      *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(verifier *webhookinfra.Verifier, dedup webhook.DedupStore, dedupTTL time.Duration, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		dedup:    dedup,
		dedupTTL: dedupTTL,
		log:      log,
	}
}

// RegisterRoutes registers the webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/:provider", h.Receive)
}

// Receive verifies and normalizes one provider callback. Verification
// failures are rejected; replays of an already-processed transaction are
// acknowledged without reprocessing so providers stop retrying.
func (h *WebhookHandler) Receive(c *gin.Context) {
	providerID := c.Param("provider")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("UNREADABLE_BODY", "could not read request body"))
		return
	}

	event, err := h.verifier.VerifyAndNormalize(providerID, c.Request.Header, payload)
	if err != nil {
		status, code := classifyWebhookError(err)
		c.JSON(status, dto.NewErrorResponse(code, err.Error()))
		return
	}

	duplicate := false
	if event.ExternalTransactionID != "" {
		deliveryID := event.ProviderID + ":" + event.ExternalTransactionID
		first, err := h.dedup.MarkProcessed(c.Request.Context(), deliveryID, h.dedupTTL)
		if err != nil {
			// Fail open: a broken dedup store must not drop verified events.
			h.log.Warn("webhook dedup store unavailable",
				zap.String("provider", providerID),
				zap.Error(err))
		} else if !first {
			duplicate = true
			h.log.Info("duplicate webhook acknowledged",
				zap.String("provider", providerID),
				zap.String("transaction_id", event.ExternalTransactionID))
		}
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromWebhookEvent(event, duplicate)))
}

func classifyWebhookError(err error) (int, string) {
	switch {
	case errors.Is(err, webhook.ErrSignatureVerificationFailed):
		return http.StatusUnauthorized, "SIGNATURE_INVALID"
	case errors.Is(err, webhook.ErrMissingSignature):
		return http.StatusUnauthorized, "SIGNATURE_MISSING"
	case errors.Is(err, webhook.ErrUnknownProvider):
		return http.StatusNotFound, "PROVIDER_NOT_FOUND"
	case errors.Is(err, webhook.ErrMalformedPayload):
		return http.StatusBadRequest, "MALFORMED_PAYLOAD"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
