package dropship

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
)

// PrintifyProductionAPIURL is the production API endpoint
const PrintifyProductionAPIURL = "https://api.printify.com/v1"

// Errors for Printify configuration
var (
	ErrPrintifyMissingToken  = errors.New("printify: API token is required")
	ErrPrintifyMissingShopID = errors.New("printify: shop ID is required")
)

// PrintifyConfig holds configuration for the Printify API
type PrintifyConfig struct {
	// APIToken is the personal access token
	APIToken string
	// ShopID scopes order operations to one shop
	ShopID string
	// APIBaseURL is the base URL for the Printify API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the Printify configuration
func (c *PrintifyConfig) Validate() error {
	if c.APIToken == "" {
		return ErrPrintifyMissingToken
	}
	if c.ShopID == "" {
		return ErrPrintifyMissingShopID
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = PrintifyProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// PrintifyAdapter implements the vendor Adapter interface for Printify,
// a print-on-demand network with bearer-token REST auth and shop-scoped
// order endpoints.
type PrintifyAdapter struct {
	config     *PrintifyConfig
	httpClient *http.Client
}

// NewPrintifyAdapter creates a new Printify adapter
func NewPrintifyAdapter(config *PrintifyConfig) (*PrintifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PrintifyAdapter{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// VendorID returns the vendor identifier this adapter handles
func (a *PrintifyAdapter) VendorID() string { return "printify" }

// Kind returns the vendor family
func (a *PrintifyAdapter) Kind() vendor.Kind { return vendor.KindPOD }

// ---------------------------------------------------------------------------
// Response shapes
// ---------------------------------------------------------------------------

type printifyBlueprint struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Images      []string `json:"images"`
}

type printifyOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type printifyShippingResponse struct {
	Standard int64 `json:"standard"`
	Express  int64 `json:"express"`
}

// ---------------------------------------------------------------------------
// Adapter operations
// ---------------------------------------------------------------------------

// ListCatalog lists Printify catalog blueprints, normalized. Printify
// reports title/images; blueprints carry no price, so UnitPrice stays zero
// rather than being inferred.
func (a *PrintifyAdapter) ListCatalog(ctx context.Context, filter vendor.CatalogFilter) ([]vendor.NormalizedProduct, error) {
	filter.Normalize()

	body, err := a.doRequest(ctx, http.MethodGet, "/catalog/blueprints.json", nil)
	if err != nil {
		return nil, err
	}

	var blueprints []printifyBlueprint
	if err := json.Unmarshal(body, &blueprints); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	products := make([]vendor.NormalizedProduct, 0, len(blueprints))
	for _, bp := range blueprints {
		if filter.Query != "" && !containsFold(bp.Title, filter.Query) {
			continue
		}
		p := vendor.NormalizedProduct{
			VendorID:    a.VendorID(),
			ExternalID:  strconv.FormatInt(bp.ID, 10),
			Name:        bp.Title,
			Description: bp.Description,
			Category:    bp.Brand,
		}
		if len(bp.Images) > 0 {
			p.ImageURL = bp.Images[0]
		}
		products = append(products, p)
	}
	return products, nil
}

// CreateOrder places an order in the configured Printify shop
func (a *PrintifyAdapter) CreateOrder(ctx context.Context, req *vendor.OrderRequest) (*vendor.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, map[string]any{
			"sku":      li.SKU,
			"quantity": li.Quantity,
		})
	}
	payload := map[string]any{
		"external_id": req.Reference,
		"line_items":  items,
		"address_to": map[string]string{
			"first_name": req.ShippingAddress.Name,
			"email":      req.ShippingAddress.Email,
			"phone":      req.ShippingAddress.Phone,
			"country":    req.ShippingAddress.CountryCode,
			"region":     req.ShippingAddress.State,
			"city":       req.ShippingAddress.City,
			"address1":   req.ShippingAddress.Line1,
			"address2":   req.ShippingAddress.Line2,
			"zip":        req.ShippingAddress.PostalCode,
		},
	}

	body, err := a.doRequest(ctx, http.MethodPost, a.shopPath("/orders.json"), payload)
	if err != nil {
		return nil, err
	}

	var order printifyOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	return &vendor.OrderResult{
		VendorID:        a.VendorID(),
		ExternalOrderID: order.ID,
		Status:          mapPrintifyOrderStatus(order.Status),
	}, nil
}

// GetOrderStatus reads back the status of a Printify order
func (a *PrintifyAdapter) GetOrderStatus(ctx context.Context, externalOrderID string) (vendor.OrderStatus, error) {
	body, err := a.doRequest(ctx, http.MethodGet, a.shopPath("/orders/"+url.PathEscape(externalOrderID)+".json"), nil)
	if err != nil {
		return "", err
	}

	var order printifyOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return "", fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	return mapPrintifyOrderStatus(order.Status), nil
}

// ShippingEstimate quotes Printify shipping for a cart. Printify reports
// flat standard/express costs in cents.
func (a *PrintifyAdapter) ShippingEstimate(ctx context.Context, addr vendor.Address, items []vendor.LineItem) ([]shipping.RateQuote, error) {
	reqItems := make([]map[string]any, 0, len(items))
	for _, li := range items {
		reqItems = append(reqItems, map[string]any{
			"sku":      li.SKU,
			"quantity": li.Quantity,
		})
	}
	payload := map[string]any{
		"line_items": reqItems,
		"address_to": map[string]string{
			"country": addr.CountryCode,
			"region":  addr.State,
			"city":    addr.City,
			"zip":     addr.PostalCode,
		},
	}

	body, err := a.doRequest(ctx, http.MethodPost, a.shopPath("/orders/shipping.json"), payload)
	if err != nil {
		return nil, err
	}

	var rates printifyShippingResponse
	if err := json.Unmarshal(body, &rates); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	quotes := make([]shipping.RateQuote, 0, 2)
	if rates.Standard > 0 {
		quotes = append(quotes, shipping.RateQuote{
			ProviderID: a.VendorID(),
			Carrier:    "printify",
			Service:    "standard",
			Amount:     centsToDecimal(rates.Standard),
			Currency:   "USD",
		})
	}
	if rates.Express > 0 {
		quotes = append(quotes, shipping.RateQuote{
			ProviderID: a.VendorID(),
			Carrier:    "printify",
			Service:    "express",
			Amount:     centsToDecimal(rates.Express),
			Currency:   "USD",
		})
	}
	return quotes, nil
}

// Ping lists the account shops as a cheap side-effect-free probe
func (a *PrintifyAdapter) Ping(ctx context.Context) error {
	_, err := a.doRequest(ctx, http.MethodGet, "/shops.json", nil)
	return err
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (a *PrintifyAdapter) shopPath(suffix string) string {
	return "/shops/" + url.PathEscape(a.config.ShopID) + suffix
}

// doRequest performs an HTTP request against the Printify API
func (a *PrintifyAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("printify: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("printify: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("printify: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := extractErrorMessage(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, vendor.NewAdapterError(a.VendorID(), resp.StatusCode, msg)
	}
	return body, nil
}

// extractErrorMessage pulls a provider error message out of a JSON body
func extractErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// mapPrintifyOrderStatus maps Printify order states to normalized statuses
func mapPrintifyOrderStatus(status string) vendor.OrderStatus {
	switch status {
	case "pending", "on-hold":
		return vendor.OrderStatusPending
	case "in-production", "sending-to-production":
		return vendor.OrderStatusInProgress
	case "fulfilled", "partially-fulfilled":
		return vendor.OrderStatusShipped
	case "delivered":
		return vendor.OrderStatusDelivered
	case "canceled":
		return vendor.OrderStatusCancelled
	default:
		return vendor.OrderStatusPending
	}
}

// Ensure PrintifyAdapter implements the vendor Adapter interface
var _ vendor.Adapter = (*PrintifyAdapter)(nil)
