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

	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
)

// GelatoProductionAPIURL is the production order API endpoint
const GelatoProductionAPIURL = "https://order.gelatoapis.com/v4"

// Errors for Gelato configuration
var ErrGelatoMissingAPIKey = errors.New("gelato: API key is required")

// GelatoConfig holds configuration for the Gelato API
type GelatoConfig struct {
	// APIKey is sent in the X-API-KEY header
	APIKey string
	// APIBaseURL is the base URL for the Gelato API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the Gelato configuration
func (c *GelatoConfig) Validate() error {
	if c.APIKey == "" {
		return ErrGelatoMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = GelatoProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// GelatoAdapter implements the vendor Adapter interface for Gelato, a
// print-on-demand network authenticated via a custom API-key header.
type GelatoAdapter struct {
	config     *GelatoConfig
	httpClient *http.Client
}

// NewGelatoAdapter creates a new Gelato adapter
func NewGelatoAdapter(config *GelatoConfig) (*GelatoAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &GelatoAdapter{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// VendorID returns the vendor identifier this adapter handles
func (a *GelatoAdapter) VendorID() string { return "gelato" }

// Kind returns the vendor family
func (a *GelatoAdapter) Kind() vendor.Kind { return vendor.KindPOD }

// ---------------------------------------------------------------------------
// Response shapes
// ---------------------------------------------------------------------------

type gelatoProduct struct {
	ProductUID  string `json:"productUid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PreviewURL  string `json:"previewUrl"`
	Category    string `json:"category"`
}

type gelatoProductList struct {
	Products []gelatoProduct `json:"products"`
}

type gelatoOrder struct {
	ID            string `json:"id"`
	FulfillStatus string `json:"fulfillmentStatus"`
}

type gelatoQuote struct {
	ShipmentMethodName string `json:"shipmentMethodName"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	MinDeliveryDays    int    `json:"minDeliveryDays"`
}

type gelatoQuoteResponse struct {
	Quotes []gelatoQuote `json:"quotes"`
}

// ---------------------------------------------------------------------------
// Adapter operations
// ---------------------------------------------------------------------------

// ListCatalog lists the Gelato product catalog, normalized
func (a *GelatoAdapter) ListCatalog(ctx context.Context, filter vendor.CatalogFilter) ([]vendor.NormalizedProduct, error) {
	filter.Normalize()

	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	path := "/products"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	body, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list gelatoProductList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	products := make([]vendor.NormalizedProduct, 0, len(list.Products))
	for _, item := range list.Products {
		if filter.Query != "" && !containsFold(item.Title, filter.Query) {
			continue
		}
		// Gelato catalog entries carry no list price; left absent.
		products = append(products, vendor.NormalizedProduct{
			VendorID:    a.VendorID(),
			ExternalID:  item.ProductUID,
			Name:        item.Title,
			Description: item.Description,
			ImageURL:    item.PreviewURL,
			Category:    item.Category,
		})
	}
	return products, nil
}

// CreateOrder places a fulfillment order with Gelato
func (a *GelatoAdapter) CreateOrder(ctx context.Context, req *vendor.OrderRequest) (*vendor.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, map[string]any{
			"productUid": li.SKU,
			"quantity":   li.Quantity,
		})
	}
	payload := map[string]any{
		"orderType":        "order",
		"orderReferenceId": req.Reference,
		"items":            items,
		"shippingAddress": map[string]string{
			"name":         req.ShippingAddress.Name,
			"addressLine1": req.ShippingAddress.Line1,
			"addressLine2": req.ShippingAddress.Line2,
			"city":         req.ShippingAddress.City,
			"state":        req.ShippingAddress.State,
			"postCode":     req.ShippingAddress.PostalCode,
			"country":      req.ShippingAddress.CountryCode,
			"email":        req.ShippingAddress.Email,
			"phone":        req.ShippingAddress.Phone,
		},
	}

	body, err := a.doRequest(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		return nil, err
	}

	var order gelatoOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	return &vendor.OrderResult{
		VendorID:        a.VendorID(),
		ExternalOrderID: order.ID,
		Status:          mapGelatoOrderStatus(order.FulfillStatus),
	}, nil
}

// GetOrderStatus reads back the status of a Gelato order
func (a *GelatoAdapter) GetOrderStatus(ctx context.Context, externalOrderID string) (vendor.OrderStatus, error) {
	body, err := a.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(externalOrderID), nil)
	if err != nil {
		return "", err
	}

	var order gelatoOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return "", fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	return mapGelatoOrderStatus(order.FulfillStatus), nil
}

// ShippingEstimate quotes Gelato shipment methods for a cart
func (a *GelatoAdapter) ShippingEstimate(ctx context.Context, addr vendor.Address, items []vendor.LineItem) ([]shipping.RateQuote, error) {
	reqItems := make([]map[string]any, 0, len(items))
	for _, li := range items {
		reqItems = append(reqItems, map[string]any{
			"productUid": li.SKU,
			"quantity":   li.Quantity,
		})
	}
	payload := map[string]any{
		"items": reqItems,
		"recipient": map[string]string{
			"city":     addr.City,
			"postCode": addr.PostalCode,
			"country":  addr.CountryCode,
		},
	}

	body, err := a.doRequest(ctx, http.MethodPost, "/orders:quote", payload)
	if err != nil {
		return nil, err
	}

	var resp gelatoQuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	quotes := make([]shipping.RateQuote, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		quote := shipping.RateQuote{
			ProviderID: a.VendorID(),
			Carrier:    "gelato",
			Service:    q.ShipmentMethodName,
			Amount:     parseDecimal(q.Amount),
			Currency:   q.Currency,
		}
		if q.MinDeliveryDays > 0 {
			days := q.MinDeliveryDays
			quote.ETADays = &days
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// Ping is unsupported: Gelato exposes no cheap side-effect-free endpoint,
// so health checks report the provider as configured without a live call.
func (a *GelatoAdapter) Ping(ctx context.Context) error {
	return vendor.ErrUnsupportedOperation
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doRequest performs an HTTP request against the Gelato API
func (a *GelatoAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("gelato: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("gelato: failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", a.config.APIKey)
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
		return nil, fmt.Errorf("gelato: failed to read response: %w", err)
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

// mapGelatoOrderStatus maps Gelato fulfillment states to normalized statuses
func mapGelatoOrderStatus(status string) vendor.OrderStatus {
	switch status {
	case "created", "passed":
		return vendor.OrderStatusConfirmed
	case "printing", "in_production":
		return vendor.OrderStatusInProgress
	case "shipped":
		return vendor.OrderStatusShipped
	case "delivered":
		return vendor.OrderStatusDelivered
	case "canceled":
		return vendor.OrderStatusCancelled
	case "failed":
		return vendor.OrderStatusFailed
	default:
		return vendor.OrderStatusPending
	}
}

// Ensure GelatoAdapter implements the vendor Adapter interface
var _ vendor.Adapter = (*GelatoAdapter)(nil)
