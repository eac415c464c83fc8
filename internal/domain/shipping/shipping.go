package shipping

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Shipping Errors
// ---------------------------------------------------------------------------

var (
	ErrProviderNotConfigured = errors.New("shipping: provider not configured")
	ErrProviderUnavailable   = errors.New("shipping: provider temporarily unavailable")
	ErrProviderRequestFailed = errors.New("shipping: provider request failed")
	ErrInvalidParcel         = errors.New("shipping: invalid parcel dimensions")
	ErrNoRates               = errors.New("shipping: no rates returned")
)

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// Address is a shipment origin or destination
type Address struct {
	Name        string
	Street1     string
	Street2     string
	City        string
	State       string
	Zip         string
	CountryCode string
	Phone       string
}

// Parcel describes the package being quoted. Dimensions are centimeters,
// weight is grams; adapters convert to their provider's units.
type Parcel struct {
	LengthCm decimal.Decimal
	WidthCm  decimal.Decimal
	HeightCm decimal.Decimal
	WeightG  decimal.Decimal
}

// Validate validates the parcel
func (p *Parcel) Validate() error {
	if p.WeightG.IsZero() || p.WeightG.IsNegative() {
		return ErrInvalidParcel
	}
	return nil
}

// RateQuote is one normalized shipping rate
type RateQuote struct {
	// ProviderID identifies the rate provider the quote came from
	ProviderID string
	// Carrier is the carrier name (e.g. "USPS")
	Carrier string
	// Service is the carrier service level (e.g. "Priority")
	Service string
	// Amount is the quoted price
	Amount decimal.Decimal
	// Currency is the quote currency
	Currency string
	// ETADays is the estimated delivery time, nil when the provider
	// does not report one
	ETADays *int
}

// ---------------------------------------------------------------------------
// RateProvider Port Interface
// ---------------------------------------------------------------------------

// RateProvider is the port implemented by each carrier-aggregation provider.
// A rate request creates a shipment resource with the backing API and reads
// back the rates attached to the response.
type RateProvider interface {
	// ProviderID returns the provider identifier this adapter handles
	ProviderID() string

	// GetRates quotes the given shipment across the provider's carriers
	GetRates(ctx context.Context, from, to Address, parcel Parcel) ([]RateQuote, error)
}

// ---------------------------------------------------------------------------
// Rate Selection
// ---------------------------------------------------------------------------

// LowestRate applies the optional carrier/service allow-lists and returns
// the quote with the minimum amount. Ties are broken by first-seen order so
// selection is deterministic. Returns ErrNoRates when nothing matches.
func LowestRate(quotes []RateQuote, carriers, services []string) (*RateQuote, error) {
	carrierSet := toSet(carriers)
	serviceSet := toSet(services)

	var best *RateQuote
	for i := range quotes {
		q := &quotes[i]
		if len(carrierSet) > 0 && !carrierSet[q.Carrier] {
			continue
		}
		if len(serviceSet) > 0 && !serviceSet[q.Service] {
			continue
		}
		// Strictly-less keeps the first-seen quote on ties.
		if best == nil || q.Amount.LessThan(best.Amount) {
			best = q
		}
	}
	if best == nil {
		return nil, ErrNoRates
	}
	return best, nil
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
