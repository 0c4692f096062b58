package currency

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Table is a thread-safe in-memory RateSource. It holds whatever the
// operator configured; pairs it does not know are unavailable rather
// than derived.
type Table struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

func NewTable() *Table {
	return &Table{rates: make(map[string]decimal.Decimal)}
}

// Set registers the source->target rate, replacing any previous value.
func (t *Table) Set(from, to string, rate decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rates[pairKey(from, to)] = rate
}

// Rate implements RateSource.
func (t *Table) Rate(from, to string) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rate, ok := t.rates[pairKey(from, to)]
	if !ok {
		return decimal.Zero, core.ErrRateUnavailable
	}
	return rate, nil
}

// ParseTable builds a Table from a compact configuration string such as
// "USD:EUR=0.92,EUR:GBP=0.85". Whitespace around entries is ignored;
// an empty string yields an empty table.
func ParseTable(s string) (*Table, error) {
	t := NewTable()
	s = strings.TrimSpace(s)
	if s == "" {
		return t, nil
	}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pair, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("rate entry %q: missing '='", entry)
		}
		from, to, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("rate entry %q: pair must be FROM:TO", entry)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || rate.Sign() <= 0 {
			return nil, fmt.Errorf("rate entry %q: invalid rate %q", entry, value)
		}
		t.Set(from, to, rate)
	}
	return t, nil
}

func pairKey(from, to string) string {
	return normalize(from) + ":" + normalize(to)
}
