package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is a back-office profile. Credentials live with the external auth provider.
type User struct {
	ID        string
	Email     string
	FullName  string
	Role      Role
	AgencyID  string
	Active    bool
	CreatedAt time.Time
}

// Validate checks the profile fields.
func (u User) Validate() error {
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if strings.TrimSpace(u.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if u.Role == RoleTaquillera && strings.TrimSpace(u.AgencyID) == "" {
		return fmt.Errorf("%w: agency_id is required for taquilleras", ErrValidation)
	}
	return nil
}

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10000

// CommissionRate is the agency commission on one lottery system, in basis points.
type CommissionRate struct {
	SystemCode string
	SalesBps   int
	PrizesBps  int
	UpdatedBy  string
	UpdatedAt  time.Time
}

// Validate checks the rate bounds.
func (r CommissionRate) Validate() error {
	if strings.TrimSpace(r.SystemCode) == "" {
		return fmt.Errorf("%w: system_code is required", ErrValidation)
	}
	if r.SalesBps < 0 || r.SalesBps > MaxBasisPoints || r.PrizesBps < 0 || r.PrizesBps > MaxBasisPoints {
		return fmt.Errorf("%w: rates must be between 0 and %d basis points", ErrValidation, MaxBasisPoints)
	}
	return nil
}

// Apply computes the commission earned on t.
func (r CommissionRate) Apply(t SystemTotal) Amounts {
	return Amounts{
		VES: t.Sales.VES*int64(r.SalesBps)/MaxBasisPoints + t.Prizes.VES*int64(r.PrizesBps)/MaxBasisPoints,
		USD: t.Sales.USD*int64(r.SalesBps)/MaxBasisPoints + t.Prizes.USD*int64(r.PrizesBps)/MaxBasisPoints,
	}
}

// SyncRequest asks the external sync workflow to run.
type SyncRequest struct {
	ID          string
	RequestedBy string
	Reason      string
	RequestedAt time.Time
}
