package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quote(provider, carrier, service, amount string) RateQuote {
	return RateQuote{
		ProviderID: provider,
		Carrier:    carrier,
		Service:    service,
		Amount:     decimal.RequireFromString(amount),
		Currency:   "USD",
	}
}

func TestLowestRate(t *testing.T) {
	quotes := []RateQuote{
		quote("easypost", "USPS", "Priority", "8.15"),
		quote("shippo", "USPS", "Priority Mail", "7.90"),
		quote("easypost", "UPS", "Ground", "11.42"),
		quote("shipengine", "FedEx", "FedEx Ground", "9.33"),
	}

	t.Run("picks the global minimum", func(t *testing.T) {
		best, err := LowestRate(quotes, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "shippo", best.ProviderID)
		assert.Equal(t, "7.9", best.Amount.String())
	})

	t.Run("carrier allow-list filters", func(t *testing.T) {
		best, err := LowestRate(quotes, []string{"UPS", "FedEx"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "FedEx", best.Carrier)
	})

	t.Run("service allow-list filters", func(t *testing.T) {
		best, err := LowestRate(quotes, nil, []string{"Ground"})
		require.NoError(t, err)
		assert.Equal(t, "UPS", best.Carrier)
	})

	t.Run("both lists must match", func(t *testing.T) {
		_, err := LowestRate(quotes, []string{"USPS"}, []string{"Ground"})
		assert.ErrorIs(t, err, ErrNoRates)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := LowestRate(nil, nil, nil)
		assert.ErrorIs(t, err, ErrNoRates)
	})

	t.Run("ties keep first-seen order", func(t *testing.T) {
		tied := []RateQuote{
			quote("easypost", "USPS", "Priority", "5.00"),
			quote("shippo", "USPS", "Priority Mail", "5.00"),
		}
		best, err := LowestRate(tied, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "easypost", best.ProviderID)
	})
}

func TestParcelValidate(t *testing.T) {
	t.Run("zero weight rejected", func(t *testing.T) {
		p := Parcel{LengthCm: decimal.NewFromInt(10)}
		assert.ErrorIs(t, p.Validate(), ErrInvalidParcel)
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		p := Parcel{WeightG: decimal.NewFromInt(-5)}
		assert.ErrorIs(t, p.Validate(), ErrInvalidParcel)
	})

	t.Run("positive weight accepted", func(t *testing.T) {
		p := Parcel{WeightG: decimal.NewFromInt(100)}
		assert.NoError(t, p.Validate())
	})
}
