package shiprate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorcommerce/backend/internal/domain/shipping"
)

var (
	testFrom = shipping.Address{
		Name: "Warehouse", Street1: "100 Dock Rd", City: "Newark",
		State: "NJ", Zip: "07102", CountryCode: "US",
	}
	testTo = shipping.Address{
		Name: "Ada", Street1: "1 Main St", City: "Austin",
		State: "TX", Zip: "78701", CountryCode: "US",
	}
	testParcel = shipping.Parcel{
		LengthCm: decimal.NewFromInt(30),
		WidthCm:  decimal.NewFromInt(20),
		HeightCm: decimal.NewFromInt(10),
		WeightG:  decimal.NewFromInt(500),
	}
)

func TestEasyPostGetRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ep-key", user)
		assert.Equal(t, "/shipments", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		shipment := payload["shipment"].(map[string]any)
		parcel := shipment["parcel"].(map[string]any)
		// 500 g is 17.64 oz, 30 cm is 11.81 in.
		assert.Equal(t, "17.64", parcel["weight"])
		assert.Equal(t, "11.81", parcel["length"])

		w.Write([]byte(`{"id": "shp_1", "rates": [
			{"carrier": "USPS", "service": "Priority", "rate": "8.15", "currency": "USD", "delivery_days": 2},
			{"carrier": "UPS", "service": "Ground", "rate": "11.42", "currency": "USD", "delivery_days": 4}
		]}`))
	}))
	defer server.Close()

	provider, err := NewEasyPostProvider(&EasyPostConfig{APIKey: "ep-key", APIBaseURL: server.URL})
	require.NoError(t, err)

	quotes, err := provider.GetRates(context.Background(), testFrom, testTo, testParcel)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "easypost", quotes[0].ProviderID)
	assert.Equal(t, "USPS", quotes[0].Carrier)
	assert.Equal(t, "Priority", quotes[0].Service)
	assert.Equal(t, "8.15", quotes[0].Amount.String())
	require.NotNil(t, quotes[0].ETADays)
	assert.Equal(t, 2, *quotes[0].ETADays)
}

func TestEasyPostRejectsInvalidParcel(t *testing.T) {
	provider, err := NewEasyPostProvider(&EasyPostConfig{APIKey: "ep-key"})
	require.NoError(t, err)

	_, err = provider.GetRates(context.Background(), testFrom, testTo, shipping.Parcel{})
	assert.ErrorIs(t, err, shipping.ErrInvalidParcel)
}

func TestEasyPostErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": {"message": "Invalid destination zip"}}`))
	}))
	defer server.Close()

	provider, err := NewEasyPostProvider(&EasyPostConfig{APIKey: "ep-key", APIBaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.GetRates(context.Background(), testFrom, testTo, testParcel)
	require.ErrorIs(t, err, shipping.ErrProviderRequestFailed)
	assert.Contains(t, err.Error(), "Invalid destination zip")
}

func TestShippoGetRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ShippoToken sp-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/shipments", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, false, payload["async"])

		w.Write([]byte(`{"status": "SUCCESS", "rates": [
			{"provider": "USPS", "servicelevel": {"name": "Priority Mail"}, "amount": "7.90", "currency": "USD", "estimated_days": 2}
		]}`))
	}))
	defer server.Close()

	provider, err := NewShippoProvider(&ShippoConfig{APIToken: "sp-token", APIBaseURL: server.URL})
	require.NoError(t, err)

	quotes, err := provider.GetRates(context.Background(), testFrom, testTo, testParcel)
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	assert.Equal(t, "shippo", quotes[0].ProviderID)
	assert.Equal(t, "USPS", quotes[0].Carrier)
	assert.Equal(t, "Priority Mail", quotes[0].Service)
	assert.Equal(t, "7.9", quotes[0].Amount.String())
}

func TestShippoShipmentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ERROR", "rates": []}`))
	}))
	defer server.Close()

	provider, err := NewShippoProvider(&ShippoConfig{APIToken: "sp-token", APIBaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.GetRates(context.Background(), testFrom, testTo, testParcel)
	assert.ErrorIs(t, err, shipping.ErrProviderRequestFailed)
}

func TestShipEngineGetRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "se-key", r.Header.Get("API-Key"))
		assert.Equal(t, "/rates", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		opts := payload["rate_options"].(map[string]any)
		assert.Len(t, opts["carrier_ids"], 1)

		w.Write([]byte(`{"rate_response": {"rates": [
			{"carrier_friendly_name": "FedEx", "service_type": "FedEx Ground", "shipping_amount": {"amount": 9.33, "currency": "usd"}, "delivery_days": 3}
		]}}`))
	}))
	defer server.Close()

	provider, err := NewShipEngineProvider(&ShipEngineConfig{
		APIKey:     "se-key",
		CarrierIDs: []string{"se-123456"},
		APIBaseURL: server.URL,
	})
	require.NoError(t, err)

	quotes, err := provider.GetRates(context.Background(), testFrom, testTo, testParcel)
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	assert.Equal(t, "shipengine", quotes[0].ProviderID)
	assert.Equal(t, "FedEx", quotes[0].Carrier)
	assert.Equal(t, "9.33", quotes[0].Amount.String())
	require.NotNil(t, quotes[0].ETADays)
	assert.Equal(t, 3, *quotes[0].ETADays)
}

func TestShipEngineErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors": [{"message": "carrier_id is invalid"}]}`))
	}))
	defer server.Close()

	provider, err := NewShipEngineProvider(&ShipEngineConfig{APIKey: "se-key", APIBaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.GetRates(context.Background(), testFrom, testTo, testParcel)
	require.ErrorIs(t, err, shipping.ErrProviderRequestFailed)
	assert.Contains(t, err.Error(), "carrier_id is invalid")
}

func TestConfigValidation(t *testing.T) {
	t.Run("easypost missing key", func(t *testing.T) {
		_, err := NewEasyPostProvider(&EasyPostConfig{})
		assert.ErrorIs(t, err, ErrEasyPostMissingAPIKey)
	})
	t.Run("shippo missing token", func(t *testing.T) {
		_, err := NewShippoProvider(&ShippoConfig{})
		assert.ErrorIs(t, err, ErrShippoMissingToken)
	})
	t.Run("shipengine missing key", func(t *testing.T) {
		_, err := NewShipEngineProvider(&ShipEngineConfig{})
		assert.ErrorIs(t, err, ErrShipEngineMissingAPIKey)
	})
}

func TestUnitConversions(t *testing.T) {
	assert.Equal(t, "17.64", gramsToOunces(decimal.NewFromInt(500)).String())
	assert.Equal(t, "11.81", cmToInches(decimal.NewFromInt(30)).String())
}
