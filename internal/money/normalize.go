// Package money recognizes monetary expressions in free text and normalizes
// them into a single reporting unit (Indian rupees, crore).
package money

import (
	"fmt"
	"math"
	"strings"
)

// ReportingScale is the number of rupees in one reporting unit (one crore).
const ReportingScale = 10_000_000

// ReportingSuffix is appended to every formatted Value.
const ReportingSuffix = "Cr"

// Value is a non-negative amount expressed in crore of Indian rupees.
type Value float64

// String formats v with two decimals and the reporting suffix, e.g. "12.00 Cr".
func (v Value) String() string {
	return fmt.Sprintf("%.2f %s", float64(v), ReportingSuffix)
}

// Rounded returns v rounded to the two decimals shown by String.
func (v Value) Rounded() Value {
	return Value(math.Round(float64(v)*100) / 100)
}

// Currency is a 3-letter ISO code.
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// Rates converts one unit of a currency into rupees.
var Rates = map[Currency]float64{
	INR: 1,
	USD: 83,
	EUR: 90,
	GBP: 105,
}

var currencyAliases = map[string]Currency{
	"₹":   INR,
	"rs":  INR,
	"rs.": INR,
	"inr": INR,
	"$":   USD,
	"usd": USD,
	"€":   EUR,
	"eur": EUR,
	"£":   GBP,
	"gbp": GBP,
}

// unitFactors maps magnitude words to their numeric factor.
var unitFactors = map[string]float64{
	"thousand": 1_000,
	"lakh":     100_000,
	"lakhs":    100_000,
	"million":  1_000_000,
	"mn":       1_000_000,
	"m":        1_000_000,
	"cr":       10_000_000,
	"crore":    10_000_000,
	"crores":   10_000_000,
	"billion":  1_000_000_000,
	"bn":       1_000_000_000,
}

// ParseCurrency resolves a currency symbol, code or alias. Unknown or empty
// tokens resolve to INR.
func ParseCurrency(token string) Currency {
	t := strings.ToLower(strings.TrimSpace(token))
	if c, ok := currencyAliases[t]; ok {
		return c
	}
	return INR
}

// UnitFactor returns the multiplier for a magnitude word, or 1 when the word
// is empty or unknown.
func UnitFactor(unit string) float64 {
	if f, ok := unitFactors[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return f
	}
	return 1
}

// Normalize converts amount, scaled by unit and priced in currency, into
// the reporting unit. Unknown unit or currency tokens count as absent.
func Normalize(amount float64, unit, currency string) Value {
	rate := Rates[ParseCurrency(currency)]
	return Value(amount * UnitFactor(unit) * rate / ReportingScale)
}
