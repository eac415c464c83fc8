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

// ShippoProductionAPIURL is the production API endpoint
const ShippoProductionAPIURL = "https://api.goshippo.com"

// Errors for Shippo configuration
var ErrShippoMissingToken = errors.New("shippo: API token is required")

// ShippoConfig holds configuration for the Shippo API
type ShippoConfig struct {
	// APIToken is sent as "ShippoToken <token>" in the Authorization header
	APIToken string
	// APIBaseURL is the base URL for the Shippo API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the Shippo configuration
func (c *ShippoConfig) Validate() error {
	if c.APIToken == "" {
		return ErrShippoMissingToken
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = ShippoProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// ShippoProvider implements the shipping RateProvider interface. Shipments
// are created synchronously (async=false) so the rates come back on the
// creation response. Weights go out in grams, dimensions in centimeters.
type ShippoProvider struct {
	config     *ShippoConfig
	httpClient *http.Client
}

// NewShippoProvider creates a new Shippo rate provider
func NewShippoProvider(config *ShippoConfig) (*ShippoProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShippoProvider{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// ProviderID returns the provider identifier this adapter handles
func (p *ShippoProvider) ProviderID() string { return "shippo" }

type shippoRate struct {
	Provider     string `json:"provider"`
	ServiceLevel struct {
		Name string `json:"name"`
	} `json:"servicelevel"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	EstimatedDays *int   `json:"estimated_days"`
}

type shippoShipment struct {
	Status   string          `json:"status"`
	Rates    []shippoRate    `json:"rates"`
	Messages json.RawMessage `json:"messages"`
}

// GetRates creates a synchronous shipment and returns its rates, normalized
func (p *ShippoProvider) GetRates(ctx context.Context, from, to shipping.Address, parcel shipping.Parcel) ([]shipping.RateQuote, error) {
	if err := parcel.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"address_from": shippoAddress(from),
		"address_to":   shippoAddress(to),
		"parcels": []map[string]any{{
			"length":        parcel.LengthCm,
			"width":         parcel.WidthCm,
			"height":        parcel.HeightCm,
			"distance_unit": "cm",
			"weight":        parcel.WeightG,
			"mass_unit":     "g",
		}},
		"async": false,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("shippo: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIBaseURL+"/shipments", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("shippo: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "ShippoToken "+p.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shippo: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: shippo: HTTP %d", shipping.ErrProviderRequestFailed, resp.StatusCode)
	}

	var shipment shippoShipment
	if err := json.Unmarshal(body, &shipment); err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderRequestFailed, err)
	}
	if shipment.Status == "ERROR" {
		return nil, fmt.Errorf("%w: shippo: shipment status ERROR", shipping.ErrProviderRequestFailed)
	}

	quotes := make([]shipping.RateQuote, 0, len(shipment.Rates))
	for _, r := range shipment.Rates {
		quotes = append(quotes, shipping.RateQuote{
			ProviderID: p.ProviderID(),
			Carrier:    r.Provider,
			Service:    r.ServiceLevel.Name,
			Amount:     parseDecimal(r.Amount),
			Currency:   r.Currency,
			ETADays:    r.EstimatedDays,
		})
	}
	return quotes, nil
}

func shippoAddress(a shipping.Address) map[string]string {
	return map[string]string{
		"name":    a.Name,
		"street1": a.Street1,
		"street2": a.Street2,
		"city":    a.City,
		"state":   a.State,
		"zip":     a.Zip,
		"country": a.CountryCode,
		"phone":   a.Phone,
	}
}

// Ensure ShippoProvider implements the shipping RateProvider interface
var _ shipping.RateProvider = (*ShippoProvider)(nil)
