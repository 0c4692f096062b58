// Package currency applies point-in-time exchange rates to amounts.
//
// Rates come from the caller through RateSource; nothing here fetches
// or caches rates on its own.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// RateSource supplies the source->target rate for a currency pair.
// Implementations return core.ErrRateUnavailable (possibly wrapped)
// when the pair is unknown.
type RateSource interface {
	Rate(from, to string) (decimal.Decimal, error)
}

// Conversion is the outcome of applying a rate once. Both fields are
// stored immutably on the transaction; the amount is never re-derived
// from the rate at read time.
type Conversion struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
}

// Convert applies the source->target rate to amount.
//
// The identity pair returns the amount untouched with rate 1, byte for
// byte. Anything else is amount*rate rounded half-to-even at two
// decimal places, exactly once.
func Convert(amount decimal.Decimal, from, to string, rates RateSource) (Conversion, error) {
	from = normalize(from)
	to = normalize(to)
	if from == to {
		return Conversion{Amount: amount, Rate: core.One}, nil
	}

	rate, err := rates.Rate(from, to)
	if err != nil {
		return Conversion{}, fmt.Errorf("rate %s->%s: %w", from, to, err)
	}
	if rate.Sign() <= 0 {
		return Conversion{}, fmt.Errorf("rate %s->%s: non-positive rate %s: %w", from, to, rate, core.ErrRateUnavailable)
	}

	return Conversion{
		Amount: amount.Mul(rate).RoundBank(2),
		Rate:   rate,
	}, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
