// utils/format.go
package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatNumber renders a value with thousands separators and two decimals,
// e.g. 1234567.891 → "1,234,567.89".
func FormatNumber(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2), number.MinFractionDigits(2)))
}

// FormatAsCurrency renders a USD amount, e.g. 20000 → "$20,000.00".
func FormatAsCurrency(v float64) string {
	return "$" + FormatNumber(v)
}
