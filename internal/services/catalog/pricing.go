package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tastymeals/internal/models"
)

var hundred = decimal.NewFromInt(100)

// DiscountedPrice applies a percentage discount to a list price,
// rounded to two decimal places.
func DiscountedPrice(price, discountPercentage decimal.Decimal) decimal.Decimal {
	factor := hundred.Sub(discountPercentage).Div(hundred)
	return price.Mul(factor).Round(2)
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, models.ErrValidation)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("price must not be negative: %w", models.ErrValidation)
	}
	return price, nil
}

func parsePercentage(raw string) (decimal.Decimal, error) {
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid discount percentage %q: %w", raw, models.ErrValidation)
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("discount percentage must be between 0 and 100: %w", models.ErrValidation)
	}
	return pct, nil
}
