package domain

import (
	"time"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
)

// Cuadre is the daily cash reconciliation of one cashier at one agency.
type Cuadre struct {
	ID             string
	AgencyID       string
	UserID         string
	BusinessDate   time.Time
	Sales          Amounts
	Prizes         Amounts
	Expenses       Amounts
	MobilePayments Amounts
	Closing        *Amounts
	ClosedAt       *time.Time

	Status       review.Status
	ReviewedBy   string
	ReviewedAt   *time.Time
	Observations review.Note

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expected is the cash that should be in the drawer: sales less prizes, expenses and
// payments received by mobile transfer.
func (c Cuadre) Expected() Amounts {
	return c.Sales.Sub(c.Prizes).Sub(c.Expenses).Sub(c.MobilePayments)
}

// Difference is declared minus expected; nil until closing cash is declared.
func (c Cuadre) Difference() *Amounts {
	if c.Closing == nil {
		return nil
	}
	diff := c.Closing.Sub(c.Expected())
	return &diff
}

// Snapshot exposes the review fields.
func (c Cuadre) Snapshot() review.Snapshot {
	return review.Snapshot{
		Status:       c.Status,
		ReviewedBy:   c.ReviewedBy,
		ReviewedAt:   c.ReviewedAt,
		Observations: c.Observations,
	}
}

// Locked reports whether the cuadre no longer accepts changes.
func (c Cuadre) Locked() bool {
	return c.Status == review.StatusApproved
}

// CuadreFilter narrows cuadre listings.
type CuadreFilter struct {
	AgencyID string
	UserID   string
	Status   *review.Status
	From     time.Time
	To       time.Time
}

// Cursor is the keyset pagination token for cuadre listings.
type Cursor struct {
	BusinessDate time.Time
	ID           string
}

// ReviewDecision is the persisted outcome of an approve or reject.
type ReviewDecision struct {
	CuadreID     string
	From         review.Status
	To           review.Status
	ReviewedBy   string
	ReviewedAt   time.Time
	Observations review.Note
}

// SystemTotal aggregates sales and prizes for one lottery system.
type SystemTotal struct {
	SystemCode string
	Sales      Amounts
	Prizes     Amounts
}

// SystemCommission is the commission earned on one lottery system.
type SystemCommission struct {
	SystemTotal
	Rate       *CommissionRate
	Commission Amounts
}

// WeeklySummary rolls up the daily cuadres of an agency for one week.
type WeeklySummary struct {
	AgencyID       string
	WeekStart      time.Time
	WeekEnd        time.Time
	Days           int
	Pending        int
	Approved       int
	Rejected       int
	Sales          Amounts
	Prizes         Amounts
	Expenses       Amounts
	MobilePayments Amounts
	Expected       Amounts
	Systems        []SystemCommission
	Commission     Amounts
}
