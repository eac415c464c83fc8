package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	paymentinfra "github.com/creatorcommerce/backend/internal/infrastructure/payment"
	"github.com/creatorcommerce/backend/internal/interfaces/http/dto"
)

// PaymentHandler exposes the payment endpoints: signed CCBill payment links
// and crypto charge creation/lookup across the registered processors.
// Either dependency may be nil when its provider family is not configured;
// the affected endpoints then answer 404.
type PaymentHandler struct {
	ccbill *paymentinfra.CCBillProcessor
	crypto *paymentinfra.CryptoPaymentManager
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(ccbill *paymentinfra.CCBillProcessor, crypto *paymentinfra.CryptoPaymentManager) *PaymentHandler {
	return &PaymentHandler{ccbill: ccbill, crypto: crypto}
}

// RegisterRoutes registers the payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("/ccbill/link", h.CreatePaymentLink)
		payments.POST("/ccbill/subscription-link", h.CreateSubscriptionLink)
		payments.DELETE("/ccbill/subscriptions/:id", h.CancelSubscription)
		payments.POST("/ccbill/subscriptions/:id/extend", h.ExtendSubscription)
		payments.POST("/crypto/charges", h.CreateCryptoCharge)
		payments.GET("/crypto/charges/:processor/:id", h.GetCryptoChargeStatus)
		payments.GET("/crypto/processors", h.ListCryptoProcessors)
	}
}

// CreatePaymentLink builds a signed single-billing payment form URL
func (h *PaymentHandler) CreatePaymentLink(c *gin.Context) {
	if h.ccbill == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("PROVIDER_NOT_FOUND", "ccbill is not configured"))
		return
	}

	var req dto.PaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	link, err := h.ccbill.PaymentLink(req.ToIntent("ccbill"), req.PeriodDays)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(gin.H{
		"processor_id": link.ProcessorID,
		"url":          link.URL,
	}))
}

// CreateSubscriptionLink builds a signed recurring-billing payment form URL
func (h *PaymentHandler) CreateSubscriptionLink(c *gin.Context) {
	if h.ccbill == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("PROVIDER_NOT_FOUND", "ccbill is not configured"))
		return
	}

	var req dto.SubscriptionLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rebills := req.Rebills
	if rebills == 0 {
		rebills = paymentinfra.RebillsInfinite
	}
	link, err := h.ccbill.SubscriptionLink(
		req.ToIntent("ccbill"),
		req.InitialPeriodDays,
		decimal.NewFromFloat(req.RecurringAmount),
		req.RecurringPeriodDays,
		rebills,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(gin.H{
		"processor_id": link.ProcessorID,
		"url":          link.URL,
	}))
}

// CancelSubscription cancels a recurring subscription through the
// management API
func (h *PaymentHandler) CancelSubscription(c *gin.Context) {
	if h.ccbill == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("PROVIDER_NOT_FOUND", "ccbill is not configured"))
		return
	}

	subscriptionID := c.Param("id")
	if err := h.ccbill.CancelSubscription(c.Request.Context(), subscriptionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"subscription_id": subscriptionID,
		"cancelled":       true,
	}))
}

// ExtendSubscription adds billing days to an active subscription through
// the management API
func (h *PaymentHandler) ExtendSubscription(c *gin.Context) {
	if h.ccbill == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("PROVIDER_NOT_FOUND", "ccbill is not configured"))
		return
	}

	var req dto.ExtendSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	subscriptionID := c.Param("id")
	if err := h.ccbill.ExtendSubscription(c.Request.Context(), subscriptionID, req.Days); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"subscription_id": subscriptionID,
		"extended_days":   req.Days,
	}))
}

// CreateCryptoCharge creates a charge/invoice with the requested processor
func (h *PaymentHandler) CreateCryptoCharge(c *gin.Context) {
	if h.crypto == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("PROVIDER_NOT_FOUND", "no crypto processors configured"))
		return
	}

	var req dto.CryptoChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	charge, err := h.crypto.CreatePayment(c.Request.Context(), req.ToIntent(), req.ToOptions())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromCryptoCharge(charge)))
}

// GetCryptoChargeStatus reads back a charge's normalized status
func (h *PaymentHandler) GetCryptoChargeStatus(c *gin.Context) {
	if h.crypto == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("PROVIDER_NOT_FOUND", "no crypto processors configured"))
		return
	}

	status, err := h.crypto.GetStatus(c.Request.Context(), c.Param("processor"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"processor_id": c.Param("processor"),
		"charge_id":    c.Param("id"),
		"status":       string(status),
	}))
}

// ListCryptoProcessors lists the registered crypto processor names
func (h *PaymentHandler) ListCryptoProcessors(c *gin.Context) {
	if h.crypto == nil {
		c.JSON(http.StatusOK, dto.NewSuccessResponse([]string{}))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(h.crypto.Processors()))
}
