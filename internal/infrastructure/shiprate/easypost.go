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

// EasyPostProductionAPIURL is the production API endpoint
const EasyPostProductionAPIURL = "https://api.easypost.com/v2"

// Errors for EasyPost configuration
var ErrEasyPostMissingAPIKey = errors.New("easypost: API key is required")

// EasyPostConfig holds configuration for the EasyPost API
type EasyPostConfig struct {
	// APIKey is the secret key, sent as the basic-auth username
	APIKey string
	// APIBaseURL is the base URL for the EasyPost API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the EasyPost configuration
func (c *EasyPostConfig) Validate() error {
	if c.APIKey == "" {
		return ErrEasyPostMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = EasyPostProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// EasyPostProvider implements the shipping RateProvider interface. Quoting
// creates a shipment resource; EasyPost attaches the carrier rates to the
// creation response. Weights go out in ounces, dimensions in inches.
type EasyPostProvider struct {
	config     *EasyPostConfig
	httpClient *http.Client
}

// NewEasyPostProvider creates a new EasyPost rate provider
func NewEasyPostProvider(config *EasyPostConfig) (*EasyPostProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EasyPostProvider{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// ProviderID returns the provider identifier this adapter handles
func (p *EasyPostProvider) ProviderID() string { return "easypost" }

type easypostRate struct {
	Carrier      string `json:"carrier"`
	Service      string `json:"service"`
	Rate         string `json:"rate"`
	Currency     string `json:"currency"`
	DeliveryDays *int   `json:"delivery_days"`
}

type easypostShipment struct {
	ID    string         `json:"id"`
	Rates []easypostRate `json:"rates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GetRates creates a shipment and returns its attached rates, normalized
func (p *EasyPostProvider) GetRates(ctx context.Context, from, to shipping.Address, parcel shipping.Parcel) ([]shipping.RateQuote, error) {
	if err := parcel.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"shipment": map[string]any{
			"from_address": easypostAddress(from),
			"to_address":   easypostAddress(to),
			"parcel": map[string]any{
				"length": cmToInches(parcel.LengthCm),
				"width":  cmToInches(parcel.WidthCm),
				"height": cmToInches(parcel.HeightCm),
				"weight": gramsToOunces(parcel.WeightG),
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("easypost: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIBaseURL+"/shipments", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("easypost: failed to create request: %w", err)
	}
	req.SetBasicAuth(p.config.APIKey, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("easypost: failed to read response: %w", err)
	}

	var shipment easypostShipment
	if err := json.Unmarshal(body, &shipment); err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderRequestFailed, err)
	}
	if resp.StatusCode >= 400 {
		msg := http.StatusText(resp.StatusCode)
		if shipment.Error != nil && shipment.Error.Message != "" {
			msg = shipment.Error.Message
		}
		return nil, fmt.Errorf("%w: easypost: %s", shipping.ErrProviderRequestFailed, msg)
	}

	quotes := make([]shipping.RateQuote, 0, len(shipment.Rates))
	for _, r := range shipment.Rates {
		quotes = append(quotes, shipping.RateQuote{
			ProviderID: p.ProviderID(),
			Carrier:    r.Carrier,
			Service:    r.Service,
			Amount:     parseDecimal(r.Rate),
			Currency:   r.Currency,
			ETADays:    r.DeliveryDays,
		})
	}
	return quotes, nil
}

func easypostAddress(a shipping.Address) map[string]string {
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

// Ensure EasyPostProvider implements the shipping RateProvider interface
var _ shipping.RateProvider = (*EasyPostProvider)(nil)
