package dropship

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
)

// AliExpressProductionAPIURL is the production gateway endpoint
const AliExpressProductionAPIURL = "https://api-sg.aliexpress.com/sync"

// Errors for AliExpress configuration
var (
	ErrAliExpressMissingAppKey    = errors.New("aliexpress: app key is required")
	ErrAliExpressMissingAppSecret = errors.New("aliexpress: app secret is required")
)

// AliExpressConfig holds configuration for the AliExpress dropshipping API
type AliExpressConfig struct {
	// AppKey is the application key from the open platform
	AppKey string
	// AppSecret is the application secret used for request signing
	AppSecret string
	// SessionKey is the seller's access token, when required
	SessionKey string
	// APIBaseURL is the gateway endpoint
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the AliExpress configuration
func (c *AliExpressConfig) Validate() error {
	if c.AppKey == "" {
		return ErrAliExpressMissingAppKey
	}
	if c.AppSecret == "" {
		return ErrAliExpressMissingAppSecret
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = AliExpressProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// signParams generates the gateway signature for a request.
// NOTE: MD5 is required by the gateway's legacy signing specification;
// it is cryptographically weak but necessary for API compatibility.
// The sign string is secret + key1value1key2value2... + secret with the
// parameter keys sorted lexicographically, digested to uppercase hex.
// Any other ordering produces a signature the gateway rejects.
func signParams(secret string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(secret)
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(params[k])
	}
	builder.WriteString(secret)

	hash := md5.Sum([]byte(builder.String()))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

// AliExpressAdapter implements the vendor Adapter interface for the
// AliExpress dropshipping open platform, which uses signed query
// parameters instead of header auth.
type AliExpressAdapter struct {
	config     *AliExpressConfig
	httpClient *http.Client
}

// NewAliExpressAdapter creates a new AliExpress adapter
func NewAliExpressAdapter(config *AliExpressConfig) (*AliExpressAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AliExpressAdapter{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// VendorID returns the vendor identifier this adapter handles
func (a *AliExpressAdapter) VendorID() string { return "aliexpress" }

// Kind returns the vendor family
func (a *AliExpressAdapter) Kind() vendor.Kind { return vendor.KindDropship }

// ---------------------------------------------------------------------------
// Response shapes
// ---------------------------------------------------------------------------

type aliexpressErrorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type aliexpressProduct struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Thumbnail string `json:"thumbnail"`
	Category  string `json:"category_name"`
}

type aliexpressFeedResponse struct {
	Result struct {
		Products []aliexpressProduct `json:"products"`
	} `json:"aliexpress_ds_recommend_feed_get_response"`
	ErrorResponse *aliexpressErrorResponse `json:"error_response"`
}

type aliexpressOrderResponse struct {
	Result struct {
		OrderID int64  `json:"order_id"`
		Status  string `json:"order_status"`
	} `json:"result"`
	ErrorResponse *aliexpressErrorResponse `json:"error_response"`
}

type aliexpressFreightResponse struct {
	Result struct {
		Options []struct {
			ServiceName  string `json:"service_name"`
			Freight      string `json:"freight_amount"`
			Currency     string `json:"currency"`
			DeliveryDays int    `json:"estimated_delivery_days"`
		} `json:"freight_options"`
	} `json:"result"`
	ErrorResponse *aliexpressErrorResponse `json:"error_response"`
}

// ---------------------------------------------------------------------------
// Adapter operations
// ---------------------------------------------------------------------------

// ListCatalog pulls the dropshipping recommendation feed, normalized.
// AliExpress reports title/price/thumbnail field names.
func (a *AliExpressAdapter) ListCatalog(ctx context.Context, filter vendor.CatalogFilter) ([]vendor.NormalizedProduct, error) {
	filter.Normalize()

	params := map[string]string{
		"method":    "aliexpress.ds.recommend.feed.get",
		"page_no":   strconv.Itoa(filter.Page),
		"page_size": strconv.Itoa(filter.PageSize),
	}
	if filter.Query != "" {
		params["keywords"] = filter.Query
	}
	if filter.Category != "" {
		params["category_id"] = filter.Category
	}

	body, err := a.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp aliexpressFeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	if resp.ErrorResponse != nil {
		return nil, vendor.NewAdapterError(a.VendorID(), 0,
			resp.ErrorResponse.Code+" - "+resp.ErrorResponse.Msg)
	}

	products := make([]vendor.NormalizedProduct, 0, len(resp.Result.Products))
	for _, item := range resp.Result.Products {
		products = append(products, vendor.NormalizedProduct{
			VendorID:   a.VendorID(),
			ExternalID: strconv.FormatInt(item.ProductID, 10),
			Name:       item.Title,
			UnitPrice:  parseDecimal(item.Price),
			ImageURL:   item.Thumbnail,
			Category:   item.Category,
		})
	}
	return products, nil
}

// CreateOrder places a dropshipping order
func (a *AliExpressAdapter) CreateOrder(ctx context.Context, req *vendor.OrderRequest) (*vendor.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, map[string]any{
			"sku_attr": li.SKU,
			"quantity": li.Quantity,
		})
	}
	paramJSON, err := json.Marshal(map[string]any{
		"out_order_id": req.Reference,
		"logistics_address": map[string]string{
			"contact_person": req.ShippingAddress.Name,
			"address":        req.ShippingAddress.Line1,
			"address2":       req.ShippingAddress.Line2,
			"city":           req.ShippingAddress.City,
			"province":       req.ShippingAddress.State,
			"zip":            req.ShippingAddress.PostalCode,
			"country":        req.ShippingAddress.CountryCode,
			"mobile_no":      req.ShippingAddress.Phone,
		},
		"product_items": items,
	})
	if err != nil {
		return nil, fmt.Errorf("aliexpress: failed to marshal order: %w", err)
	}

	body, err := a.doRequest(ctx, map[string]string{
		"method": "aliexpress.ds.order.create",
		"param_place_order_request4_open_api_d_t_o": string(paramJSON),
	})
	if err != nil {
		return nil, err
	}

	var resp aliexpressOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	if resp.ErrorResponse != nil {
		return nil, vendor.NewAdapterError(a.VendorID(), 0,
			resp.ErrorResponse.Code+" - "+resp.ErrorResponse.Msg)
	}

	return &vendor.OrderResult{
		VendorID:        a.VendorID(),
		ExternalOrderID: strconv.FormatInt(resp.Result.OrderID, 10),
		Status:          mapAliExpressOrderStatus(resp.Result.Status),
	}, nil
}

// GetOrderStatus reads back the status of an AliExpress order
func (a *AliExpressAdapter) GetOrderStatus(ctx context.Context, externalOrderID string) (vendor.OrderStatus, error) {
	body, err := a.doRequest(ctx, map[string]string{
		"method":   "aliexpress.ds.order.get",
		"order_id": externalOrderID,
	})
	if err != nil {
		return "", err
	}

	var resp aliexpressOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	if resp.ErrorResponse != nil {
		return "", vendor.NewAdapterError(a.VendorID(), 0,
			resp.ErrorResponse.Code+" - "+resp.ErrorResponse.Msg)
	}
	return mapAliExpressOrderStatus(resp.Result.Status), nil
}

// ShippingEstimate quotes freight options for a cart
func (a *AliExpressAdapter) ShippingEstimate(ctx context.Context, addr vendor.Address, items []vendor.LineItem) ([]shipping.RateQuote, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no line items", vendor.ErrOrderInvalidRequest)
	}

	body, err := a.doRequest(ctx, map[string]string{
		"method":       "aliexpress.logistics.buyer.freight.calculate",
		"sku_attr":     items[0].SKU,
		"quantity":     strconv.Itoa(items[0].Quantity),
		"country_code": addr.CountryCode,
		"city_code":    addr.City,
	})
	if err != nil {
		return nil, err
	}

	var resp aliexpressFreightResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorInvalidResponse, err)
	}
	if resp.ErrorResponse != nil {
		return nil, vendor.NewAdapterError(a.VendorID(), 0,
			resp.ErrorResponse.Code+" - "+resp.ErrorResponse.Msg)
	}

	quotes := make([]shipping.RateQuote, 0, len(resp.Result.Options))
	for _, opt := range resp.Result.Options {
		quote := shipping.RateQuote{
			ProviderID: a.VendorID(),
			Carrier:    "aliexpress",
			Service:    opt.ServiceName,
			Amount:     parseDecimal(opt.Freight),
			Currency:   currencyOrDefault(opt.Currency, "USD"),
		}
		if opt.DeliveryDays > 0 {
			days := opt.DeliveryDays
			quote.ETADays = &days
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// Ping is unsupported: every gateway method is a billable business call,
// so health checks report the provider as configured without a live call.
func (a *AliExpressAdapter) Ping(ctx context.Context) error {
	return vendor.ErrUnsupportedOperation
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doRequest performs a signed gateway request. Common parameters and the
// signature are added to the caller's method parameters.
func (a *AliExpressAdapter) doRequest(ctx context.Context, params map[string]string) ([]byte, error) {
	params["app_key"] = a.config.AppKey
	if a.config.SessionKey != "" {
		params["session"] = a.config.SessionKey
	}
	params["timestamp"] = time.Now().UTC().Format("2006-01-02 15:04:05")
	params["format"] = "json"
	params["v"] = "2.0"
	params["sign_method"] = "md5"
	params["sign"] = signParams(a.config.AppSecret, params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIBaseURL,
		strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("aliexpress: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("aliexpress: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, vendor.NewAdapterError(a.VendorID(), resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return body, nil
}

// mapAliExpressOrderStatus maps gateway order states to normalized statuses
func mapAliExpressOrderStatus(status string) vendor.OrderStatus {
	switch status {
	case "PLACE_ORDER_SUCCESS", "WAIT_BUYER_ACCEPT_GOODS":
		return vendor.OrderStatusConfirmed
	case "IN_ISSUE", "IN_FROZEN":
		return vendor.OrderStatusInProgress
	case "SELLER_PART_SEND_GOODS", "WAIT_SELLER_SEND_GOODS":
		return vendor.OrderStatusInProgress
	case "SELLER_SEND_GOODS":
		return vendor.OrderStatusShipped
	case "FINISH":
		return vendor.OrderStatusDelivered
	case "IN_CANCEL", "CANCEL":
		return vendor.OrderStatusCancelled
	default:
		return vendor.OrderStatusPending
	}
}

// Ensure AliExpressAdapter implements the vendor Adapter interface
var _ vendor.Adapter = (*AliExpressAdapter)(nil)
