package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creatorcommerce/backend/internal/application/vendorops"
	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/interfaces/http/dto"
)

// VendorHandler exposes the vendor integration endpoints: catalog search,
// order routing and shipping-rate aggregation.
type VendorHandler struct {
	manager *vendorops.Manager
}

// NewVendorHandler creates a new VendorHandler
func NewVendorHandler(manager *vendorops.Manager) *VendorHandler {
	return &VendorHandler{manager: manager}
}

// RegisterRoutes registers the vendor routes
func (h *VendorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	vendors := rg.Group("/vendors")
	{
		vendors.GET("/products", h.SearchProducts)
		vendors.POST("/orders", h.CreateOrder)
		vendors.GET("/orders/:vendor/:id", h.GetOrderStatus)
		vendors.POST("/best", h.SelectVendor)
		vendors.GET("/health", h.Health)
	}
	rates := rg.Group("/shipping")
	{
		rates.POST("/rates", h.GetRates)
	}
}

// searchVendorResult is one vendor's slice of a search response
type searchVendorResult struct {
	VendorID string                `json:"vendor_id"`
	Products []dto.ProductResponse `json:"products"`
	Error    string                `json:"error,omitempty"`
}

// providerRatesResult is one provider's slice of a rates response
type providerRatesResult struct {
	ProviderID string                  `json:"provider_id"`
	Rates      []dto.RateQuoteResponse `json:"rates"`
	Error      string                  `json:"error,omitempty"`
}

// SearchProducts fans the catalog query out to the enabled vendors, or to
// the requested subset when ?vendors= is present. Per-vendor failures
// surface in the payload; only a bad query fails the call.
func (h *VendorHandler) SearchProducts(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	results := h.manager.SearchProducts(c.Request.Context(), req.ToFilter(), req.Vendors)

	out := make([]searchVendorResult, 0, len(results))
	for _, r := range results {
		vr := searchVendorResult{
			VendorID: r.VendorID,
			Products: make([]dto.ProductResponse, 0, len(r.Products)),
		}
		for _, p := range r.Products {
			vr.Products = append(vr.Products, dto.FromProduct(p))
		}
		if r.Err != nil {
			vr.Error = r.Err.Error()
		}
		out = append(out, vr)
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(out))
}

// CreateOrder validates, routes and places an order with one vendor
func (h *VendorHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.manager.CreateOrder(c.Request.Context(), req.ToOrderRequest())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(gin.H{
		"vendor_id":         result.VendorID,
		"external_order_id": result.ExternalOrderID,
		"status":            string(result.Status),
	}))
}

// SelectVendor runs the routing rule for an order without placing it,
// answering which vendor a CreateOrder call would pick.
func (h *VendorHandler) SelectVendor(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	adapter, err := h.manager.SelectBestVendor(req.ToOrderRequest())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"vendor_id": adapter.VendorID(),
		"kind":      adapter.Kind().String(),
	}))
}

// GetOrderStatus reads an order's status back from its vendor
func (h *VendorHandler) GetOrderStatus(c *gin.Context) {
	vendorID := c.Param("vendor")
	externalOrderID := c.Param("id")

	status, err := h.manager.GetOrderStatus(c.Request.Context(), vendorID, externalOrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"vendor_id":         vendorID,
		"external_order_id": externalOrderID,
		"status":            string(status),
	}))
}

// GetRates aggregates shipping rates across the enabled providers. With
// cheapest=true the response carries only the lowest matching rate.
func (h *VendorHandler) GetRates(c *gin.Context) {
	var req dto.RatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	from := req.From.ToShippingAddress()
	to := req.To.ToShippingAddress()
	parcel := req.Parcel.ToParcel()
	if err := parcel.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if req.Cheapest {
		best, err := h.manager.GetCheapestRate(c.Request.Context(), from, to, parcel, req.Carriers, req.Services)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromRateQuote(*best)))
		return
	}

	results := h.manager.GetShippingRates(c.Request.Context(), from, to, parcel)
	if len(results) == 0 {
		respondError(c, shipping.ErrNoRates)
		return
	}
	out := make([]providerRatesResult, 0, len(results))
	for _, r := range results {
		pr := providerRatesResult{
			ProviderID: r.ProviderID,
			Rates:      make([]dto.RateQuoteResponse, 0, len(r.Quotes)),
		}
		for _, q := range r.Quotes {
			pr.Rates = append(pr.Rates, dto.FromRateQuote(q))
		}
		if r.Err != nil {
			pr.Error = r.Err.Error()
		}
		out = append(out, pr)
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(out))
}

// Health reports the probe state of every configured provider
func (h *VendorHandler) Health(c *gin.Context) {
	statuses := h.manager.HealthCheck(c.Request.Context())

	out := make([]gin.H, 0, len(statuses))
	for _, s := range statuses {
		entry := gin.H{
			"provider_id": s.ProviderID,
			"kind":        string(s.Kind),
			"state":       string(s.State),
		}
		if s.Message != "" {
			entry["message"] = s.Message
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(out))
}
