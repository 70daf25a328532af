package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Pair identifies a directed conversion, e.g. {From: "USD", To: "EUR"}.
type Pair struct {
	From string
	To   string
}

// RateTable holds conversion rates. It is immutable after construction and
// safe for concurrent lookups.
type RateTable struct {
	base  string
	rates map[Pair]decimal.Decimal
}

// NewRateTable builds a table. Pairs to and from base allow cross rates
// between any two currencies quoted against it.
func NewRateTable(base string, rates map[Pair]decimal.Decimal) *RateTable {
	t := &RateTable{base: base, rates: make(map[Pair]decimal.Decimal, len(rates))}
	for p, r := range rates {
		if r.IsPositive() {
			t.rates[p] = r
		}
	}

	return t
}

// DefaultRates returns the built-in table quoted against USD.
func DefaultRates() *RateTable {
	quotes := map[string]string{
		"EUR": "0.92",
		"GBP": "0.79",
		"JPY": "149.50",
		"CAD": "1.36",
		"AUD": "1.53",
		"CHF": "0.88",
		"CNY": "7.24",
		"INR": "83.12",
		"MXN": "17.15",
		"BRL": "4.97",
		"ZAR": "18.62",
		"SGD": "1.34",
		"HKD": "7.82",
		"NZD": "1.64",
		"SEK": "10.45",
		"NOK": "10.55",
		"DKK": "6.87",
		"AED": "3.6725",
		"SAR": "3.75",
	}

	rates := make(map[Pair]decimal.Decimal, len(quotes))
	for code, q := range quotes {
		rates[Pair{From: "USD", To: code}] = decimal.RequireFromString(q)
	}

	return NewRateTable("USD", rates)
}

// Merge returns a new table with overrides applied on top of t.
func (t *RateTable) Merge(overrides map[Pair]decimal.Decimal) *RateTable {
	merged := make(map[Pair]decimal.Decimal, len(t.rates)+len(overrides))
	for p, r := range t.rates {
		merged[p] = r
	}

	for p, r := range overrides {
		merged[p] = r
	}

	return NewRateTable(t.base, merged)
}

// Lookup finds the multiplier converting from into to: a direct entry, then
// an inverted entry, then a cross rate through the base currency.
func (t *RateTable) Lookup(from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	if r, ok := t.pair(from, to); ok {
		return r, nil
	}

	if from != t.base && to != t.base {
		fromBase, okFrom := t.pair(t.base, from)
		toBase, okTo := t.pair(t.base, to)

		if okFrom && okTo {
			return toBase.Div(fromBase), nil
		}
	}

	return decimal.Zero, fmt.Errorf("%w: no rate for %s/%s", ErrUnsupportedCurrency, from, to)
}

func (t *RateTable) pair(from, to string) (decimal.Decimal, bool) {
	if r, ok := t.rates[Pair{From: from, To: to}]; ok {
		return r, true
	}

	if r, ok := t.rates[Pair{From: to, To: from}]; ok {
		return decimal.NewFromInt(1).Div(r), true
	}

	return decimal.Zero, false
}
