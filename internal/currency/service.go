package currency

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/cache"
	"github.com/MrJamesThe3rd/erpledger/internal/company"
)

type Service struct {
	rates     *RateTable
	companies company.Repository
	cache     *cache.Cache
}

func NewService(rates *RateTable, companies company.Repository, c *cache.Cache) *Service {
	return &Service{rates: rates, companies: companies, cache: c}
}

// Conversion is the detailed result of a conversion request.
type Conversion struct {
	OriginalAmount  decimal.Decimal
	ConvertedAmount decimal.Decimal
	FromCurrency    string
	ToCurrency      string
	ExchangeRate    decimal.Decimal
}

// Convert converts amount from one currency to another. Identical codes
// return amount untouched; otherwise the result is rounded to the target
// currency's minor unit.
func (s *Service) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, err := Normalize(from)
	if err != nil {
		return decimal.Zero, err
	}

	to, err = Normalize(to)
	if err != nil {
		return decimal.Zero, err
	}

	if from == to {
		return amount, nil
	}

	rate, err := s.rates.Lookup(from, to)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(rate).Round(fraction(to)), nil
}

// Rate returns the multiplier converting from into to.
func (s *Service) Rate(from, to string) (decimal.Decimal, error) {
	from, err := Normalize(from)
	if err != nil {
		return decimal.Zero, err
	}

	to, err = Normalize(to)
	if err != nil {
		return decimal.Zero, err
	}

	return s.rates.Lookup(from, to)
}

// ConvertDetailed converts and reports the effective rate. For a zero amount
// the effective rate is undefined, so the table rate is reported instead.
func (s *Service) ConvertDetailed(amount decimal.Decimal, from, to string) (*Conversion, error) {
	converted, err := s.Convert(amount, from, to)
	if err != nil {
		return nil, err
	}

	conv := &Conversion{
		OriginalAmount:  amount,
		ConvertedAmount: converted,
	}

	conv.FromCurrency, _ = Normalize(from)
	conv.ToCurrency, _ = Normalize(to)

	if amount.IsZero() {
		conv.ExchangeRate, err = s.Rate(from, to)
		if err != nil {
			return nil, err
		}

		return conv, nil
	}

	conv.ExchangeRate = converted.DivRound(amount, 6)

	return conv, nil
}

func (s *Service) Supported() []Currency {
	return Supported()
}

func defaultCurrencyKey(companyID uuid.UUID) string {
	return "currency:default:" + companyID.String()
}

func (s *Service) DefaultCurrency(ctx context.Context, companyID uuid.UUID) (string, error) {
	key := defaultCurrencyKey(companyID)
	if v, ok := s.cache.Get(key); ok {
		return v.(string), nil
	}

	c, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return "", fmt.Errorf("getting company: %w", err)
	}

	s.cache.Set(key, c.DefaultCurrency)

	return c.DefaultCurrency, nil
}

// SetDefaultCurrency is idempotent: setting the current value again is a no-op write.
func (s *Service) SetDefaultCurrency(ctx context.Context, companyID uuid.UUID, code string) (string, error) {
	code, err := Normalize(code)
	if err != nil {
		return "", err
	}

	if err := s.companies.UpdateDefaultCurrency(ctx, companyID, code); err != nil {
		return "", fmt.Errorf("updating company currency: %w", err)
	}

	s.cache.Set(defaultCurrencyKey(companyID), code)

	return code, nil
}
