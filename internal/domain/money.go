package domain

import (
	"fmt"
	"strings"
)

// Currency is one of the currencies an agency handles.
type Currency string

const (
	CurrencyVES Currency = "VES"
	CurrencyUSD Currency = "USD"
)

// ParseCurrency validates a currency code.
func ParseCurrency(raw string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(raw))) {
	case CurrencyVES, "BS":
		return CurrencyVES, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	default:
		return "", fmt.Errorf("%w: unknown currency %q", ErrValidation, raw)
	}
}

// Amounts holds one value per currency in minor units.
type Amounts struct {
	VES int64 `json:"ves"`
	USD int64 `json:"usd"`
}

// Add returns a+b.
func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{VES: a.VES + b.VES, USD: a.USD + b.USD}
}

// Sub returns a-b.
func (a Amounts) Sub(b Amounts) Amounts {
	return Amounts{VES: a.VES - b.VES, USD: a.USD - b.USD}
}

// Get returns the amount for currency c.
func (a Amounts) Get(c Currency) int64 {
	if c == CurrencyUSD {
		return a.USD
	}
	return a.VES
}

// With returns a copy with amount added to currency c.
func (a Amounts) With(c Currency, amount int64) Amounts {
	if c == CurrencyUSD {
		a.USD += amount
	} else {
		a.VES += amount
	}
	return a
}

// IsZero reports whether both currencies are zero.
func (a Amounts) IsZero() bool {
	return a.VES == 0 && a.USD == 0
}
