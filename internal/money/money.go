package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// printer renders numbers with en-US grouping, matching the display
// locale of the web UI.
var printer = message.NewPrinter(language.AmericanEnglish)

// symbols maps ISO 4217 codes to their display symbol. Codes not listed
// here are rendered as a code prefix, e.g. "CHF 12.00".
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"INR": "₹",
	"KRW": "₩",
	"CAD": "CA$",
	"AUD": "A$",
}

// Format renders a monetary amount with two fraction digits and locale
// grouping, e.g. Format(1234.5, "USD") == "$1,234.50".
func Format(amount float64, code string) string {
	n := number.Decimal(amount,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	)
	if sym, ok := symbols[code]; ok {
		return printer.Sprintf("%s%v", sym, n)
	}
	return printer.Sprintf("%s %v", code, n)
}
