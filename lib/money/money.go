package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Placeholder is emitted for absent amounts so output tables keep a
// stable column count.
const Placeholder = "-"

var amountRegex = regexp.MustCompile(`([\d.,]+)`)

// Parse extracts a monetary amount from a raw value as rendered by a
// storefront: a bare number, or a string with currency noise like
// "$1,234.50 MXN". Returns nil when no amount can be found.
func Parse(v any) *decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return nil
	case float64:
		d := decimal.NewFromFloat(x)
		return &d
	case float32:
		d := decimal.NewFromFloat32(x)
		return &d
	case int:
		d := decimal.NewFromInt(int64(x))
		return &d
	case int64:
		d := decimal.NewFromInt(x)
		return &d
	case decimal.Decimal:
		return &x
	case string:
		return parseString(x)
	default:
		return nil
	}
}

func parseString(s string) *decimal.Decimal {
	m := amountRegex.FindString(s)
	if m == "" {
		return nil
	}
	m = strings.ReplaceAll(m, ",", "")
	d, err := decimal.NewFromString(m)
	if err != nil {
		return nil
	}
	return &d
}

// Format renders an amount with exactly two decimal places, or the
// placeholder token when the amount is absent.
func Format(d *decimal.Decimal) string {
	if d == nil {
		return Placeholder
	}
	return d.StringFixed(2)
}
