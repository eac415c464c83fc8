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

	"github.com/shopspring/decimal"

	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
)

// PrintfulProductionAPIURL is the production API endpoint
const PrintfulProductionAPIURL = "https://api.printful.com"

// Errors for Printful configuration
var ErrPrintfulMissingToken = errors.New("printful: API token is required")

// PrintfulConfig holds configuration for the Printful API
type PrintfulConfig struct {
	// APIToken is the private bearer token
	APIToken string
	// APIBaseURL is the base URL for the Printful API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the Printful configuration
func (c *PrintfulConfig) Validate() error {
	if c.APIToken == "" {
		return ErrPrintfulMissingToken
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = PrintfulProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// PrintfulAdapter implements the vendor Adapter interface for Printful,
// a print-on-demand fulfillment provider with bearer-token REST auth.
type PrintfulAdapter struct {
	config     *PrintfulConfig
	httpClient *http.Client
}

// NewPrintfulAdapter creates a new Printful adapter
func NewPrintfulAdapter(config *PrintfulConfig) (*PrintfulAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PrintfulAdapter{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// VendorID returns the vendor identifier this adapter handles
func (a *PrintfulAdapter) VendorID() string { return "printful" }

// Kind returns the vendor family
func (a *PrintfulAdapter) Kind() vendor.Kind { return vendor.KindPOD }

// ---------------------------------------------------------------------------
// Response envelopes
// ---------------------------------------------------------------------------

type printfulEnvelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

type printfulProduct struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	TypeName    string `json:"type_name"`
	Price       string `json:"price"`
}

type printfulOrder struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type printfulRate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Rate     string `json:"rate"`
	Currency string `json:"currency"`
	MinDays  int    `json:"minDeliveryDays"`
}

// ---------------------------------------------------------------------------
// Adapter operations
// ---------------------------------------------------------------------------

// ListCatalog lists the Printful product catalog, normalized. Printful
// reports name/image/price fields; anything unmapped stays absent.
func (a *PrintfulAdapter) ListCatalog(ctx context.Context, filter vendor.CatalogFilter) ([]vendor.NormalizedProduct, error) {
	filter.Normalize()

	query := url.Values{}
	if filter.Category != "" {
		query.Set("category_id", filter.Category)
	}
	path := "/products"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	result, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var items []printfulProduct
	if err := json.Unmarshal(result, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	products := make([]vendor.NormalizedProduct, 0, len(items))
	for _, item := range items {
		if filter.Query != "" && !containsFold(item.Name, filter.Query) {
			continue
		}
		products = append(products, vendor.NormalizedProduct{
			VendorID:    a.VendorID(),
			ExternalID:  strconv.FormatInt(item.ID, 10),
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   parseDecimal(item.Price),
			ImageURL:    item.Image,
			Category:    item.TypeName,
		})
	}
	return products, nil
}

// CreateOrder places a fulfillment order with Printful
func (a *PrintfulAdapter) CreateOrder(ctx context.Context, req *vendor.OrderRequest) (*vendor.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, map[string]any{
			"external_variant_id": li.SKU,
			"quantity":            li.Quantity,
		})
	}
	body := map[string]any{
		"external_id": req.Reference,
		"recipient": map[string]string{
			"name":         req.ShippingAddress.Name,
			"address1":     req.ShippingAddress.Line1,
			"address2":     req.ShippingAddress.Line2,
			"city":         req.ShippingAddress.City,
			"state_code":   req.ShippingAddress.State,
			"country_code": req.ShippingAddress.CountryCode,
			"zip":          req.ShippingAddress.PostalCode,
			"phone":        req.ShippingAddress.Phone,
			"email":        req.ShippingAddress.Email,
		},
		"items": items,
	}

	result, err := a.doRequest(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return nil, err
	}

	var order printfulOrder
	if err := json.Unmarshal(result, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	return &vendor.OrderResult{
		VendorID:        a.VendorID(),
		ExternalOrderID: strconv.FormatInt(order.ID, 10),
		Status:          mapPrintfulOrderStatus(order.Status),
	}, nil
}

// GetOrderStatus reads back the status of a Printful order
func (a *PrintfulAdapter) GetOrderStatus(ctx context.Context, externalOrderID string) (vendor.OrderStatus, error) {
	result, err := a.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(externalOrderID), nil)
	if err != nil {
		return "", err
	}

	var order printfulOrder
	if err := json.Unmarshal(result, &order); err != nil {
		return "", fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	return mapPrintfulOrderStatus(order.Status), nil
}

// ShippingEstimate quotes Printful's shipping options for a cart
func (a *PrintfulAdapter) ShippingEstimate(ctx context.Context, addr vendor.Address, items []vendor.LineItem) ([]shipping.RateQuote, error) {
	reqItems := make([]map[string]any, 0, len(items))
	for _, li := range items {
		reqItems = append(reqItems, map[string]any{
			"external_variant_id": li.SKU,
			"quantity":            li.Quantity,
		})
	}
	body := map[string]any{
		"recipient": map[string]string{
			"address1":     addr.Line1,
			"city":         addr.City,
			"state_code":   addr.State,
			"country_code": addr.CountryCode,
			"zip":          addr.PostalCode,
		},
		"items": reqItems,
	}

	result, err := a.doRequest(ctx, http.MethodPost, "/shipping/rates", body)
	if err != nil {
		return nil, err
	}

	var rates []printfulRate
	if err := json.Unmarshal(result, &rates); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	quotes := make([]shipping.RateQuote, 0, len(rates))
	for _, r := range rates {
		quote := shipping.RateQuote{
			ProviderID: a.VendorID(),
			Carrier:    "printful",
			Service:    r.Name,
			Amount:     parseDecimal(r.Rate),
			Currency:   r.Currency,
		}
		if r.MinDays > 0 {
			days := r.MinDays
			quote.ETADays = &days
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// Ping lists the account stores as a cheap side-effect-free probe
func (a *PrintfulAdapter) Ping(ctx context.Context) error {
	_, err := a.doRequest(ctx, http.MethodGet, "/stores", nil)
	return err
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doRequest performs an HTTP request against the Printful API and unwraps
// the {code, result, error} envelope.
func (a *PrintfulAdapter) doRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("printful: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("printful: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("printful: failed to read response: %w", err)
	}

	var envelope printfulEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		if resp.StatusCode >= 400 {
			return nil, vendor.NewAdapterError(a.VendorID(), resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	if resp.StatusCode >= 400 || envelope.Code >= 400 {
		msg := envelope.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, vendor.NewAdapterError(a.VendorID(), resp.StatusCode, msg)
	}

	return envelope.Result, nil
}

// mapPrintfulOrderStatus maps Printful order states to normalized statuses
func mapPrintfulOrderStatus(status string) vendor.OrderStatus {
	switch status {
	case "draft", "pending":
		return vendor.OrderStatusPending
	case "inprocess", "onhold":
		return vendor.OrderStatusInProgress
	case "fulfilled":
		return vendor.OrderStatusShipped
	case "canceled":
		return vendor.OrderStatusCancelled
	case "failed":
		return vendor.OrderStatusFailed
	default:
		return vendor.OrderStatusPending
	}
}

// parseDecimal parses a provider price string, returning zero on garbage
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Ensure PrintfulAdapter implements the vendor Adapter interface
var _ vendor.Adapter = (*PrintfulAdapter)(nil)
