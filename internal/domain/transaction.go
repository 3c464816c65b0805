package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionKind classifies a movement recorded by a cashier.
type TransactionKind string

const (
	KindSale          TransactionKind = "sale"
	KindPrize         TransactionKind = "prize"
	KindExpense       TransactionKind = "expense"
	KindMobilePayment TransactionKind = "mobile_payment"
)

// ParseTransactionKind validates a kind.
func ParseTransactionKind(raw string) (TransactionKind, error) {
	switch TransactionKind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindSale:
		return KindSale, nil
	case KindPrize:
		return KindPrize, nil
	case KindExpense:
		return KindExpense, nil
	case KindMobilePayment:
		return KindMobilePayment, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, raw)
	}
}

// Transaction is a single sale, prize payout, expense or mobile-payment receipt.
type Transaction struct {
	ID           string
	AgencyID     string
	UserID       string
	CuadreID     string
	Kind         TransactionKind
	BusinessDate time.Time
	Currency     Currency
	Amount       int64
	SystemCode   string
	Reference    string
	Description  string
	CreatedAt    time.Time
}

// Validate checks the fields each kind requires.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.AgencyID) == "" {
		return fmt.Errorf("%w: agency_id is required", ErrValidation)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if t.BusinessDate.IsZero() {
		return fmt.Errorf("%w: business_date is required", ErrValidation)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrValidation)
	}
	switch t.Kind {
	case KindSale, KindPrize:
		if strings.TrimSpace(t.SystemCode) == "" {
			return fmt.Errorf("%w: system_code is required for %s", ErrValidation, t.Kind)
		}
	case KindMobilePayment:
		if strings.TrimSpace(t.Reference) == "" {
			return fmt.Errorf("%w: reference is required for mobile payments", ErrValidation)
		}
	case KindExpense:
		if strings.TrimSpace(t.Description) == "" {
			return fmt.Errorf("%w: description is required for expenses", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, t.Kind)
	}
	return nil
}

// BusinessDay truncates t to its calendar date in UTC.
func BusinessDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseBusinessDate parses a YYYY-MM-DD date.
func ParseBusinessDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, raw)
	}
	return parsed, nil
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	day := BusinessDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
