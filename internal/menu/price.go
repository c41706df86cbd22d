package menu

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "US$",
	"GBP": "GBP",
	"MXN": "MXN",
	"COP": "COP",
	"ARS": "ARS",
}

// FormatPrice renders amount the way the public menu shows it: two decimals,
// dot thousands separator, comma decimal separator, trailing symbol
// ("1.234,50 €").
func FormatPrice(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code
	}

	neg := amount.IsNegative()
	fixed := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	b.WriteString(" ")
	b.WriteString(symbol)
	return b.String()
}
