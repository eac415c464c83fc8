package dropship

import (
	"strings"

	"github.com/shopspring/decimal"
)

// containsFold reports whether s contains substr, case-insensitively.
// Used for client-side filtering by vendors without a search parameter.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// centsToDecimal converts a minor-unit integer amount to a decimal amount
func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// floatToDecimal converts a provider float amount to decimal
func floatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// currencyOrDefault returns the currency code, or fallback when empty
func currencyOrDefault(currency, fallback string) string {
	if currency == "" {
		return fallback
	}
	return currency
}

// parseAgingDays extracts the lower bound of a "10-15" style delivery
// window. Returns false when the value carries no leading number.
func parseAgingDays(aging string) (int, bool) {
	digits := 0
	for digits < len(aging) && aging[digits] >= '0' && aging[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	days := 0
	for _, c := range aging[:digits] {
		days = days*10 + int(c-'0')
	}
	return days, true
}
