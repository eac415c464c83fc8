package shiprate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/creatorcommerce/backend/internal/domain/shipping"
)

// ShipEngineProductionAPIURL is the production API endpoint
const ShipEngineProductionAPIURL = "https://api.shipengine.com/v1"

// Errors for ShipEngine configuration
var ErrShipEngineMissingAPIKey = errors.New("shipengine: API key is required")

// ShipEngineConfig holds configuration for the ShipEngine API
type ShipEngineConfig struct {
	// APIKey is sent in the API-Key header
	APIKey string
	// CarrierIDs restricts quoting to these connected carriers; when empty
	// the account's defaults apply
	CarrierIDs []string
	// APIBaseURL is the base URL for the ShipEngine API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the ShipEngine configuration
func (c *ShipEngineConfig) Validate() error {
	if c.APIKey == "" {
		return ErrShipEngineMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = ShipEngineProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// ShipEngineProvider implements the shipping RateProvider interface. Rates
// come from the dedicated /rates endpoint rather than shipment creation.
// Weights go out in grams, dimensions in centimeters.
type ShipEngineProvider struct {
	config     *ShipEngineConfig
	httpClient *http.Client
}

// NewShipEngineProvider creates a new ShipEngine rate provider
func NewShipEngineProvider(config *ShipEngineConfig) (*ShipEngineProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShipEngineProvider{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// ProviderID returns the provider identifier this adapter handles
func (p *ShipEngineProvider) ProviderID() string { return "shipengine" }

type shipengineRate struct {
	CarrierFriendlyName string `json:"carrier_friendly_name"`
	ServiceType         string `json:"service_type"`
	ShippingAmount      struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"shipping_amount"`
	DeliveryDays *int `json:"delivery_days"`
}

type shipengineRateResponse struct {
	RateResponse struct {
		Rates []shipengineRate `json:"rates"`
	} `json:"rate_response"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GetRates quotes the shipment against the configured carriers, normalized
func (p *ShipEngineProvider) GetRates(ctx context.Context, from, to shipping.Address, parcel shipping.Parcel) ([]shipping.RateQuote, error) {
	if err := parcel.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"rate_options": map[string]any{
			"carrier_ids": p.config.CarrierIDs,
		},
		"shipment": map[string]any{
			"ship_from": shipengineAddress(from),
			"ship_to":   shipengineAddress(to),
			"packages": []map[string]any{{
				"weight": map[string]any{
					"value": parcel.WeightG,
					"unit":  "gram",
				},
				"dimensions": map[string]any{
					"length": parcel.LengthCm,
					"width":  parcel.WidthCm,
					"height": parcel.HeightCm,
					"unit":   "centimeter",
				},
			}},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("shipengine: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIBaseURL+"/rates", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("shipengine: failed to create request: %w", err)
	}
	req.Header.Set("API-Key", p.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shipengine: failed to read response: %w", err)
	}

	var rateResp shipengineRateResponse
	if err := json.Unmarshal(body, &rateResp); err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderRequestFailed, err)
	}
	if resp.StatusCode >= 400 {
		msg := http.StatusText(resp.StatusCode)
		if len(rateResp.Errors) > 0 {
			msg = rateResp.Errors[0].Message
		}
		return nil, fmt.Errorf("%w: shipengine: %s", shipping.ErrProviderRequestFailed, msg)
	}

	quotes := make([]shipping.RateQuote, 0, len(rateResp.RateResponse.Rates))
	for _, r := range rateResp.RateResponse.Rates {
		quotes = append(quotes, shipping.RateQuote{
			ProviderID: p.ProviderID(),
			Carrier:    r.CarrierFriendlyName,
			Service:    r.ServiceType,
			Amount:     floatToDecimal(r.ShippingAmount.Amount),
			Currency:   r.ShippingAmount.Currency,
			ETADays:    r.DeliveryDays,
		})
	}
	return quotes, nil
}

func shipengineAddress(a shipping.Address) map[string]string {
	return map[string]string{
		"name":           a.Name,
		"address_line1":  a.Street1,
		"address_line2":  a.Street2,
		"city_locality":  a.City,
		"state_province": a.State,
		"postal_code":    a.Zip,
		"country_code":   a.CountryCode,
		"phone":          a.Phone,
	}
}

// Ensure ShipEngineProvider implements the shipping RateProvider interface
var _ shipping.RateProvider = (*ShipEngineProvider)(nil)
