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
	"sync"
	"time"

	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
)

// CJProductionAPIURL is the production API endpoint
const CJProductionAPIURL = "https://developers.cjdropshipping.com/api2.0/v1"

// Errors for CJDropshipping configuration
var (
	ErrCJMissingEmail    = errors.New("cjdropshipping: account email is required")
	ErrCJMissingPassword = errors.New("cjdropshipping: API password is required")
)

// CJConfig holds configuration for the CJDropshipping API
type CJConfig struct {
	// Email is the account email used for token exchange
	Email string
	// Password is the long-lived API password
	Password string
	// APIBaseURL is the base URL for the CJ API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the CJDropshipping configuration
func (c *CJConfig) Validate() error {
	if c.Email == "" {
		return ErrCJMissingEmail
	}
	if c.Password == "" {
		return ErrCJMissingPassword
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = CJProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// CJAdapter implements the vendor Adapter interface for CJDropshipping.
// CJ uses a login-then-token scheme: the long-lived email+password pair is
// exchanged for a short-lived access token which the adapter caches and
// refreshes at most once per failed call. The refresh is guarded so
// concurrent callers never trigger duplicate authentications.
type CJAdapter struct {
	config     *CJConfig
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewCJAdapter creates a new CJDropshipping adapter
func NewCJAdapter(config *CJConfig) (*CJAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CJAdapter{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 2),
	}, nil
}

// VendorID returns the vendor identifier this adapter handles
func (a *CJAdapter) VendorID() string { return "cjdropshipping" }

// Kind returns the vendor family
func (a *CJAdapter) Kind() vendor.Kind { return vendor.KindDropship }

// ---------------------------------------------------------------------------
// Response shapes
// ---------------------------------------------------------------------------

type cjEnvelope struct {
	Code    int             `json:"code"`
	Result  bool            `json:"result"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type cjAuthData struct {
	AccessToken       string `json:"accessToken"`
	AccessTokenExpiry string `json:"accessTokenExpiryDate"`
}

type cjProduct struct {
	PID           string `json:"pid"`
	ProductNameEn string `json:"productNameEn"`
	ProductImage  string `json:"productImage"`
	SellPrice     string `json:"sellPrice"`
	CategoryName  string `json:"categoryName"`
	Description   string `json:"description"`
}

type cjProductList struct {
	List  []cjProduct `json:"list"`
	Total int         `json:"total"`
}

type cjOrderData struct {
	OrderID     string `json:"orderId"`
	OrderStatus string `json:"orderStatus"`
}

type cjFreightOption struct {
	LogisticName string  `json:"logisticName"`
	LogisticFee  float64 `json:"logisticPrice"`
	Currency     string  `json:"currency"`
	AgingDays    string  `json:"logisticAging"`
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// token returns a valid cached access token, authenticating when the cache
// is empty or expired. The mutex makes the refresh single-flight.
func (a *CJAdapter) token(ctx context.Context, forceRefresh bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !forceRefresh && a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	payload, err := json.Marshal(map[string]string{
		"email":    a.config.Email,
		"password": a.config.Password,
	})
	if err != nil {
		return "", fmt.Errorf("cjdropshipping: failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.APIBaseURL+"/authentication/getAccessToken", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("cjdropshipping: failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vendor.ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("cjdropshipping: failed to read auth response: %w", err)
	}

	var envelope cjEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	if resp.StatusCode >= 400 || !envelope.Result {
		return "", fmt.Errorf("%w: %s", vendor.ErrVendorAuthFailed, envelope.Message)
	}

	var auth cjAuthData
	if err := json.Unmarshal(envelope.Data, &auth); err != nil {
		return "", fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	if auth.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", vendor.ErrVendorAuthFailed)
	}

	a.accessToken = auth.AccessToken
	a.tokenExpiry = parseCJExpiry(auth.AccessTokenExpiry)
	return a.accessToken, nil
}

// parseCJExpiry parses the token expiry timestamp, falling back to a short
// lifetime so an unparseable value forces an early refresh instead of a
// stale token.
func parseCJExpiry(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.UTC); err == nil {
		return t
	}
	return time.Now().Add(10 * time.Minute)
}

// ---------------------------------------------------------------------------
// Adapter operations
// ---------------------------------------------------------------------------

// ListCatalog lists the CJ product catalog, normalized. CJ reports
// productNameEn/sellPrice/productImage field names.
func (a *CJAdapter) ListCatalog(ctx context.Context, filter vendor.CatalogFilter) ([]vendor.NormalizedProduct, error) {
	filter.Normalize()

	query := url.Values{
		"pageNum":  {strconv.Itoa(filter.Page)},
		"pageSize": {strconv.Itoa(filter.PageSize)},
	}
	if filter.Query != "" {
		query.Set("productNameEn", filter.Query)
	}
	if filter.Category != "" {
		query.Set("categoryKeyword", filter.Category)
	}

	data, err := a.doAuthed(ctx, http.MethodGet, "/product/list?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var list cjProductList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	products := make([]vendor.NormalizedProduct, 0, len(list.List))
	for _, item := range list.List {
		products = append(products, vendor.NormalizedProduct{
			VendorID:    a.VendorID(),
			ExternalID:  item.PID,
			Name:        item.ProductNameEn,
			Description: item.Description,
			UnitPrice:   parseDecimal(item.SellPrice),
			ImageURL:    item.ProductImage,
			Category:    item.CategoryName,
		})
	}
	return products, nil
}

// CreateOrder places a dropship order with CJ
func (a *CJAdapter) CreateOrder(ctx context.Context, req *vendor.OrderRequest) (*vendor.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, map[string]any{
			"vid":      li.SKU,
			"quantity": li.Quantity,
		})
	}
	payload := map[string]any{
		"orderNumber":          req.Reference,
		"shippingCustomerName": req.ShippingAddress.Name,
		"shippingAddress":      req.ShippingAddress.Line1,
		"shippingAddress2":     req.ShippingAddress.Line2,
		"shippingCity":         req.ShippingAddress.City,
		"shippingProvince":     req.ShippingAddress.State,
		"shippingZip":          req.ShippingAddress.PostalCode,
		"shippingCountryCode":  req.ShippingAddress.CountryCode,
		"shippingPhone":        req.ShippingAddress.Phone,
		"products":             items,
	}

	data, err := a.doAuthed(ctx, http.MethodPost, "/shopping/order/createOrder", payload)
	if err != nil {
		return nil, err
	}

	var order cjOrderData
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	return &vendor.OrderResult{
		VendorID:        a.VendorID(),
		ExternalOrderID: order.OrderID,
		Status:          mapCJOrderStatus(order.OrderStatus),
	}, nil
}

// GetOrderStatus reads back the status of a CJ order
func (a *CJAdapter) GetOrderStatus(ctx context.Context, externalOrderID string) (vendor.OrderStatus, error) {
	query := url.Values{"orderId": {externalOrderID}}
	data, err := a.doAuthed(ctx, http.MethodGet, "/shopping/order/getOrderDetail?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	var order cjOrderData
	if err := json.Unmarshal(data, &order); err != nil {
		return "", fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	return mapCJOrderStatus(order.OrderStatus), nil
}

// ShippingEstimate quotes CJ logistics options for a cart
func (a *CJAdapter) ShippingEstimate(ctx context.Context, addr vendor.Address, items []vendor.LineItem) ([]shipping.RateQuote, error) {
	products := make([]map[string]any, 0, len(items))
	for _, li := range items {
		products = append(products, map[string]any{
			"vid":      li.SKU,
			"quantity": li.Quantity,
		})
	}
	payload := map[string]any{
		"startCountryCode": "CN",
		"endCountryCode":   addr.CountryCode,
		"city":             addr.City,
		"zip":              addr.PostalCode,
		"products":         products,
	}

	data, err := a.doAuthed(ctx, http.MethodPost, "/logistic/freightCalculate", payload)
	if err != nil {
		return nil, err
	}

	var options []cjFreightOption
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}

	quotes := make([]shipping.RateQuote, 0, len(options))
	for _, opt := range options {
		quote := shipping.RateQuote{
			ProviderID: a.VendorID(),
			Carrier:    "cjpacket",
			Service:    opt.LogisticName,
			Amount:     floatToDecimal(opt.LogisticFee),
			Currency:   currencyOrDefault(opt.Currency, "USD"),
		}
		if days, ok := parseAgingDays(opt.AgingDays); ok {
			quote.ETADays = &days
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// Ping fetches the account settings as a cheap side-effect-free probe
func (a *CJAdapter) Ping(ctx context.Context) error {
	_, err := a.doAuthed(ctx, http.MethodGet, "/setting/get", nil)
	return err
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doAuthed performs an authenticated request. On a 401 the cached token is
// refreshed once and the call replayed; a second failure propagates.
func (a *CJAdapter) doAuthed(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	token, err := a.token(ctx, false)
	if err != nil {
		return nil, err
	}

	data, status, err := a.doRequest(ctx, method, path, payload, token)
	if status == http.StatusUnauthorized {
		// Single re-auth attempt, then propagate.
		token, err = a.token(ctx, true)
		if err != nil {
			return nil, err
		}
		data, _, err = a.doRequest(ctx, method, path, payload, token)
	}
	return data, err
}

func (a *CJAdapter) doRequest(ctx context.Context, method, path string, payload any, token string) (json.RawMessage, int, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("cjdropshipping: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("cjdropshipping: failed to create request: %w", err)
	}
	req.Header.Set("CJ-Access-Token", token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", vendor.ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("cjdropshipping: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, resp.StatusCode, vendor.NewAdapterError(a.VendorID(), resp.StatusCode, "access token rejected")
	}

	var envelope cjEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode >= 400 {
			return nil, resp.StatusCode, vendor.NewAdapterError(a.VendorID(), resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	if resp.StatusCode >= 400 || !envelope.Result {
		return nil, resp.StatusCode, vendor.NewAdapterError(a.VendorID(), resp.StatusCode, envelope.Message)
	}
	return envelope.Data, resp.StatusCode, nil
}

// mapCJOrderStatus maps CJ order states to normalized statuses
func mapCJOrderStatus(status string) vendor.OrderStatus {
	switch status {
	case "CREATED", "UNPAID":
		return vendor.OrderStatusPending
	case "IN_CART", "TRADE_SUCCESS":
		return vendor.OrderStatusConfirmed
	case "PROCESSING":
		return vendor.OrderStatusInProgress
	case "SHIPPED":
		return vendor.OrderStatusShipped
	case "DELIVERED":
		return vendor.OrderStatusDelivered
	case "CANCELLED":
		return vendor.OrderStatusCancelled
	default:
		return vendor.OrderStatusPending
	}
}

// Ensure CJAdapter implements the vendor Adapter interface
var _ vendor.Adapter = (*CJAdapter)(nil)
