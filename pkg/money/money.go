// Package money provides parsing and formatting helpers for Brazilian-real
// amounts as they appear in payer documents ("1.234,56", "R$ 480,00").
// All amounts are carried as shopspring decimals with 2-digit scale so that
// tolerance comparisons stay exact.
package money

import (
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// currency symbols stripped before numeric parsing
var symbols = []string{"R$", "$", "€", "£"}

// ParseBRL parses a Brazilian-formatted monetary string into a decimal.
// Accepted inputs: "1.234,56", "R$ 1.234,56", "480,00", "1234.56".
// When a decimal comma is present, dots are treated as thousands
// separators; otherwise a single dot is taken as the decimal separator.
func ParseBRL(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	for _, sym := range symbols {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	if strings.Contains(cleaned, ",") {
		// European convention: 1.234,56
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Round(2), nil
}

// NormalizeBRL parses like ParseBRL but never fails: unparsable input and
// negative amounts (a negative parse is always a layout artifact, not a
// real value) normalize to zero with ok=false so the caller can surface a
// warning instead of aborting a whole table or document load.
func NormalizeBRL(s string) (decimal.Decimal, bool) {
	d, err := ParseBRL(s)
	if err != nil {
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// FormatBRL renders a decimal amount in the payer display convention.
func FormatBRL(d decimal.Decimal) string {
	return gomoney.New(Cents(d), gomoney.BRL).Display()
}

// Cents returns the amount in centavos, the integer form used for joins
// and summing without float drift.
func Cents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}
