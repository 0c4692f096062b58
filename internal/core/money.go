// Package core holds the domain model shared by the engine packages.
//
// Monetary values are decimal.Decimal throughout: exact fixed-point
// arithmetic, no float drift. Rounding happens in exactly one place
// (currency conversion) and is never re-derived afterwards.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied amount string into a decimal.
//
// It accepts both dot (12.34) and comma (12,34) separators and rejects
// non-positive values. Precision beyond two decimal places is kept as
// entered; rounding is the converter's job.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// One is the identity exchange rate.
var One = decimal.NewFromInt(1)
