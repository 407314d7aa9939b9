// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents everywhere; decimal.Decimal is only used
// at the edges, when reading user input and when rendering.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var amountPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// maxCents keeps any parsed amount well inside int64 once summed.
const maxCents = int64(1) << 53

// ParseAmount converts user input to Money with half-up rounding on cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Zero is a
// valid amount; signs, exponents and grouping separators are not.
//
// Examples:
//
//	ParseAmount("12,34")  -> 1234
//	ParseAmount("12.345") -> 1235
//	ParseAmount("0")      -> 0
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if !amountPattern.MatchString(s) {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount as a decimal with two places.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with a dot separator and two decimals, e.g. "15.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Euros returns the euro value as a float64 for chart payloads.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}

// Add returns m+o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Format renders the amount with two decimals using the locale's separators.
// Only the euro part goes through the locale printer, as an integer, so
// cents are exact at any size.
func (m Money) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	sign, cents := "", m.Cents
	if cents < 0 {
		sign, cents = "-", -cents
	}
	whole := p.Sprintf("%v", number.Decimal(cents/100))
	return fmt.Sprintf("%s%s%s%02d", sign, whole, decimalSeparator(p), cents%100)
}

// decimalSeparator asks the printer how it writes one and a half.
func decimalSeparator(p *message.Printer) string {
	sep := strings.Trim(p.Sprintf("%v", number.Decimal(1.5, number.Scale(1))), "0123456789")
	if sep == "" {
		return "."
	}
	return sep
}

// FormatEuro is Format prefixed with the euro sign, as shown in the UI.
func (m Money) FormatEuro(tag language.Tag) string {
	return "€ " + m.Format(tag)
}
