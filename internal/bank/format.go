package bank

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders an amount for display, e.g. "-$1,234.50". Only the
// whole-dollar part goes through the locale printer, so cents stay exact.
func FormatUSD(amount decimal.Decimal) string {
	cents := amount.Round(2)
	abs := cents.Abs()
	whole := abs.Truncate(0)
	frac := strings.TrimPrefix(abs.Sub(whole).StringFixed(2), "0")

	s := usdPrinter.Sprintf("$%d", whole.IntPart()) + frac
	if cents.IsNegative() {
		return "-" + s
	}
	return s
}
