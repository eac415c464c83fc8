package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/creatorcommerce/backend/internal/application/vendorops"
	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
	"github.com/creatorcommerce/backend/internal/infrastructure/config"
	"github.com/creatorcommerce/backend/internal/infrastructure/registry"
)

type stubAdapter struct {
	id       string
	kind     vendor.Kind
	products []vendor.NormalizedProduct
}

func (s *stubAdapter) VendorID() string  { return s.id }
func (s *stubAdapter) Kind() vendor.Kind { return s.kind }

func (s *stubAdapter) ListCatalog(ctx context.Context, filter vendor.CatalogFilter) ([]vendor.NormalizedProduct, error) {
	return s.products, nil
}

func (s *stubAdapter) CreateOrder(ctx context.Context, req *vendor.OrderRequest) (*vendor.OrderResult, error) {
	return &vendor.OrderResult{
		VendorID:        s.id,
		ExternalOrderID: "ext-42",
		Status:          vendor.OrderStatusConfirmed,
	}, nil
}

func (s *stubAdapter) GetOrderStatus(ctx context.Context, externalOrderID string) (vendor.OrderStatus, error) {
	return vendor.OrderStatusShipped, nil
}

func (s *stubAdapter) ShippingEstimate(ctx context.Context, addr vendor.Address, items []vendor.LineItem) ([]shipping.RateQuote, error) {
	return nil, vendor.ErrUnsupportedOperation
}

func (s *stubAdapter) Ping(ctx context.Context) error { return nil }

func newVendorRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	reg := registry.New(map[string]config.ProviderConfig{
		"printful": {
			Kind:        "pod",
			Enabled:     true,
			Credentials: map[string]string{"api_token": "tok"},
			Priority:    10,
		},
	}, log)

	adapter := &stubAdapter{
		id:   "printful",
		kind: vendor.KindPOD,
		products: []vendor.NormalizedProduct{
			{
				VendorID:   "printful",
				ExternalID: "71",
				Name:       "Classic Tee",
				UnitPrice:  decimal.RequireFromString("12.95"),
			},
		},
	}
	manager := vendorops.NewManager(reg, []vendor.Adapter{adapter}, nil, vendorops.Options{}, log)

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewVendorHandler(manager).RegisterRoutes(api)
	return engine
}

func TestSearchProductsReturnsPerVendorResults(t *testing.T) {
	engine := newVendorRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/products?q=tee", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			VendorID string `json:"vendor_id"`
			Products []struct {
				ExternalID string `json:"external_id"`
				Name       string `json:"name"`
				UnitPrice  string `json:"unit_price"`
			} `json:"products"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "printful", resp.Data[0].VendorID)
	require.Len(t, resp.Data[0].Products, 1)
	assert.Equal(t, "71", resp.Data[0].Products[0].ExternalID)
	assert.Equal(t, "12.95", resp.Data[0].Products[0].UnitPrice)
}

func TestSearchProductsVendorSubsetQuery(t *testing.T) {
	engine := newVendorRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/products?vendors=printful&vendors=nosuch", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			VendorID string `json:"vendor_id"`
			Error    string `json:"error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)

	byVendor := map[string]string{}
	for _, r := range resp.Data {
		byVendor[r.VendorID] = r.Error
	}
	assert.Empty(t, byVendor["printful"])
	assert.NotEmpty(t, byVendor["nosuch"])
}

func TestCreateOrderPlacesWithRoutedVendor(t *testing.T) {
	engine := newVendorRouter(t)

	body, _ := json.Marshal(map[string]any{
		"reference": "ord-1",
		"shipping_address": map[string]any{
			"line1":        "1 Main St",
			"city":         "Springfield",
			"country_code": "US",
		},
		"line_items": []map[string]any{
			{"sku": "TEE-M", "quantity": 2, "product_type": "pod"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendors/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"external_order_id":"ext-42"`)
	assert.Contains(t, w.Body.String(), `"vendor_id":"printful"`)
}

func TestCreateOrderRejectsMissingLineItems(t *testing.T) {
	engine := newVendorRouter(t)

	body, _ := json.Marshal(map[string]any{
		"reference": "ord-2",
		"shipping_address": map[string]any{
			"line1":        "1 Main St",
			"city":         "Springfield",
			"country_code": "US",
		},
		"line_items": []map[string]any{},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendors/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestSelectVendorDoesNotPlaceOrder(t *testing.T) {
	engine := newVendorRouter(t)

	body, _ := json.Marshal(map[string]any{
		"reference": "ord-sel",
		"shipping_address": map[string]any{
			"line1":        "1 Main St",
			"city":         "Springfield",
			"country_code": "US",
		},
		"line_items": []map[string]any{
			{"sku": "TEE-M", "quantity": 1, "product_type": "pod"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendors/best", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"vendor_id":"printful"`)
	assert.Contains(t, w.Body.String(), `"kind":"pod"`)
}

func TestGetOrderStatus(t *testing.T) {
	engine := newVendorRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/orders/printful/ext-42", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"SHIPPED"`)
}

func TestGetOrderStatusUnknownVendor(t *testing.T) {
	engine := newVendorRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/orders/nosuch/ext-1", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "PROVIDER_NOT_FOUND")
}

type stubRateProvider struct {
	id     string
	quotes []shipping.RateQuote
	err    error
}

func (s *stubRateProvider) ProviderID() string { return s.id }

func (s *stubRateProvider) GetRates(ctx context.Context, from, to shipping.Address, parcel shipping.Parcel) ([]shipping.RateQuote, error) {
	return s.quotes, s.err
}

func ratesBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"from": map[string]any{
			"line1": "1 Main St", "city": "Springfield", "country_code": "US",
		},
		"to": map[string]any{
			"line1": "2 Side St", "city": "Shelbyville", "country_code": "US",
		},
		"parcel": map[string]any{"weight_g": 500},
	})
	require.NoError(t, err)
	return body
}

func TestGetRatesReportsPerProviderErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	reg := registry.New(map[string]config.ProviderConfig{
		"easypost": {Kind: "shipping", Enabled: true, Credentials: map[string]string{"api_key": "k"}},
		"shippo":   {Kind: "shipping", Enabled: true, Credentials: map[string]string{"api_token": "t"}},
	}, log)

	providers := []shipping.RateProvider{
		&stubRateProvider{id: "easypost", quotes: []shipping.RateQuote{{
			ProviderID: "easypost", Carrier: "USPS", Service: "Priority",
			Amount: decimal.RequireFromString("8.15"), Currency: "USD",
		}}},
		&stubRateProvider{id: "shippo", err: shipping.ErrProviderUnavailable},
	}
	manager := vendorops.NewManager(reg, nil, providers, vendorops.Options{}, log)

	engine := gin.New()
	NewVendorHandler(manager).RegisterRoutes(engine.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipping/rates", bytes.NewReader(ratesBody(t)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			ProviderID string `json:"provider_id"`
			Rates      []struct {
				Amount string `json:"amount"`
			} `json:"rates"`
			Error string `json:"error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)

	byProvider := map[string]struct {
		rates int
		err   string
	}{}
	for _, r := range resp.Data {
		byProvider[r.ProviderID] = struct {
			rates int
			err   string
		}{rates: len(r.Rates), err: r.Error}
	}
	assert.Equal(t, 1, byProvider["easypost"].rates)
	assert.Empty(t, byProvider["easypost"].err)
	assert.Equal(t, 0, byProvider["shippo"].rates)
	assert.NotEmpty(t, byProvider["shippo"].err)
}

func TestGetRatesWithoutProviders(t *testing.T) {
	engine := newVendorRouter(t)

	body, _ := json.Marshal(map[string]any{
		"from": map[string]any{
			"line1": "1 Main St", "city": "Springfield", "country_code": "US",
		},
		"to": map[string]any{
			"line1": "2 Side St", "city": "Shelbyville", "country_code": "US",
		},
		"parcel": map[string]any{"weight_g": 500},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipping/rates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "NO_ELIGIBLE_PROVIDER")
}

func TestVendorHealth(t *testing.T) {
	engine := newVendorRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"provider_id":"printful"`)
	assert.Contains(t, w.Body.String(), `"state":"ok"`)
}
