package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creatorcommerce/backend/internal/domain/payment"
	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
	"github.com/creatorcommerce/backend/internal/interfaces/http/dto"
)

// respondError maps a domain error onto the right HTTP status and writes
// the standard error envelope.
func respondError(c *gin.Context, err error) {
	status, code := classifyError(err)
	c.JSON(status, dto.NewErrorResponse(code, err.Error()))
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, vendor.ErrOrderInvalidRequest),
		errors.Is(err, payment.ErrInvalidIntent),
		errors.Is(err, shipping.ErrInvalidParcel):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, vendor.ErrVendorNotConfigured),
		errors.Is(err, payment.ErrProcessorNotConfigured),
		errors.Is(err, payment.ErrUnknownProcessor):
		return http.StatusNotFound, "PROVIDER_NOT_FOUND"
	case errors.Is(err, vendor.ErrVendorNotEnabled):
		return http.StatusConflict, "PROVIDER_DISABLED"
	case errors.Is(err, vendor.ErrNoEligibleVendor),
		errors.Is(err, shipping.ErrNoRates):
		return http.StatusUnprocessableEntity, "NO_ELIGIBLE_PROVIDER"
	case errors.Is(err, vendor.ErrOrderNotFound),
		errors.Is(err, payment.ErrChargeNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, vendor.ErrVendorAuthFailed):
		return http.StatusBadGateway, "PROVIDER_AUTH_FAILED"
	case errors.Is(err, vendor.ErrVendorUnavailable),
		errors.Is(err, payment.ErrProcessorUnavailable),
		errors.Is(err, shipping.ErrProviderUnavailable):
		return http.StatusBadGateway, "PROVIDER_UNAVAILABLE"
	case errors.Is(err, payment.ErrProcessorRequestFailed),
		errors.Is(err, shipping.ErrProviderRequestFailed),
		errors.Is(err, vendor.ErrVendorInvalidResponse):
		return http.StatusBadGateway, "PROVIDER_ERROR"
	default:
		var adapterErr *vendor.AdapterError
		if errors.As(err, &adapterErr) {
			return http.StatusBadGateway, "PROVIDER_ERROR"
		}
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondBindError writes the validation failure from request binding
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse("VALIDATION_ERROR", err.Error()))
}
