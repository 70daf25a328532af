// Package currency converts amounts between ISO 4217 currency codes and
// manages each company's default currency.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Currency is an entry of the supported set.
type Currency struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// supported is ordered the way it is presented to users.
var supported = []Currency{
	{Code: "USD", Name: "US Dollar"},
	{Code: "EUR", Name: "Euro"},
	{Code: "GBP", Name: "British Pound"},
	{Code: "JPY", Name: "Japanese Yen"},
	{Code: "CAD", Name: "Canadian Dollar"},
	{Code: "AUD", Name: "Australian Dollar"},
	{Code: "CHF", Name: "Swiss Franc"},
	{Code: "CNY", Name: "Chinese Yuan"},
	{Code: "INR", Name: "Indian Rupee"},
	{Code: "MXN", Name: "Mexican Peso"},
	{Code: "BRL", Name: "Brazilian Real"},
	{Code: "ZAR", Name: "South African Rand"},
	{Code: "SGD", Name: "Singapore Dollar"},
	{Code: "HKD", Name: "Hong Kong Dollar"},
	{Code: "NZD", Name: "New Zealand Dollar"},
	{Code: "SEK", Name: "Swedish Krona"},
	{Code: "NOK", Name: "Norwegian Krone"},
	{Code: "DKK", Name: "Danish Krone"},
	{Code: "AED", Name: "UAE Dirham"},
	{Code: "SAR", Name: "Saudi Riyal"},
}

var supportedSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(supported))
	for _, c := range supported {
		m[c.Code] = struct{}{}
	}

	return m
}()

// Supported returns a copy of the supported currencies in display order.
func Supported() []Currency {
	out := make([]Currency, len(supported))
	copy(out, supported)

	return out
}

// Normalize upper-cases and trims a code and checks it against the supported set.
func Normalize(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := supportedSet[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}

	return c, nil
}

// Codes validates codes against the supported set for packages that take the
// check as a dependency.
type Codes struct{}

func (Codes) Normalize(code string) (string, error) { return Normalize(code) }

// fraction is the number of minor-unit digits for code, e.g. 2 for USD, 0 for JPY.
func fraction(code string) int32 {
	if cur := money.GetCurrency(code); cur != nil {
		return int32(cur.Fraction)
	}

	return 2
}
