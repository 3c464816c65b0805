package api

import (
	"time"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
)

// CuadreView exposes a cuadre with its computed totals and review badge.
type CuadreView struct {
	CuadreID       string          `json:"cuadre_id"`
	AgencyID       string          `json:"agency_id"`
	UserID         string          `json:"user_id"`
	BusinessDate   string          `json:"business_date"`
	Sales          domain.Amounts  `json:"sales"`
	Prizes         domain.Amounts  `json:"prizes"`
	Expenses       domain.Amounts  `json:"expenses"`
	MobilePayments domain.Amounts  `json:"mobile_payments"`
	Expected       domain.Amounts  `json:"expected"`
	Closing        *domain.Amounts `json:"closing,omitempty"`
	Difference     *domain.Amounts `json:"difference,omitempty"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	Status         string          `json:"status"`
	Badge          review.Badge    `json:"badge"`
	ReviewedBy     *string         `json:"reviewed_by"`
	ReviewedAt     *time.Time      `json:"reviewed_at"`
	// Observations is null when absent, "" when stored empty.
	Observations   review.Note `json:"observations"`
	OfferedActions []string    `json:"offered_actions"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func toCuadreView(c domain.Cuadre, viewer domain.Actor) CuadreView {
	view := CuadreView{
		CuadreID:       c.ID,
		AgencyID:       c.AgencyID,
		UserID:         c.UserID,
		BusinessDate:   c.BusinessDate.Format(time.DateOnly),
		Sales:          c.Sales,
		Prizes:         c.Prizes,
		Expenses:       c.Expenses,
		MobilePayments: c.MobilePayments,
		Expected:       c.Expected(),
		Closing:        c.Closing,
		Difference:     c.Difference(),
		ClosedAt:       c.ClosedAt,
		Status:         string(c.Status),
		Badge:          review.BadgeFor(c.Status),
		ReviewedAt:     c.ReviewedAt,
		Observations:   c.Observations,
		OfferedActions: make([]string, 0, 2),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.ReviewedBy != "" {
		reviewer := c.ReviewedBy
		view.ReviewedBy = &reviewer
	}
	offered := review.NewSession(c.Snapshot(), nil, !viewer.Role.CanReview()).Offered()
	for _, action := range offered {
		view.OfferedActions = append(view.OfferedActions, string(action))
	}
	return view
}

// ListCuadresResponse packages list results.
type ListCuadresResponse struct {
	Items      []CuadreView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// TransactionView exposes a recorded movement.
type TransactionView struct {
	TransactionID string    `json:"transaction_id"`
	CuadreID      string    `json:"cuadre_id"`
	AgencyID      string    `json:"agency_id"`
	UserID        string    `json:"user_id"`
	Kind          string    `json:"kind"`
	BusinessDate  string    `json:"business_date"`
	Currency      string    `json:"currency"`
	Amount        int64     `json:"amount"`
	SystemCode    string    `json:"system_code,omitempty"`
	Reference     string    `json:"reference,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTransactionView(t domain.Transaction) TransactionView {
	return TransactionView{
		TransactionID: t.ID,
		CuadreID:      t.CuadreID,
		AgencyID:      t.AgencyID,
		UserID:        t.UserID,
		Kind:          string(t.Kind),
		BusinessDate:  t.BusinessDate.Format(time.DateOnly),
		Currency:      string(t.Currency),
		Amount:        t.Amount,
		SystemCode:    t.SystemCode,
		Reference:     t.Reference,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
}

// RecordTransactionResponse describes the response body for POST /v1/transactions.
type RecordTransactionResponse struct {
	Transaction TransactionView `json:"transaction"`
	Cuadre      CuadreView      `json:"cuadre"`
	Replay      bool            `json:"idempotent_replay"`
}

// UserView exposes a back-office profile.
type UserView struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	AgencyID  string    `json:"agency_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u domain.User) UserView {
	return UserView{
		UserID:    u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		AgencyID:  u.AgencyID,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

// CommissionRateView exposes a system's commission rate.
type CommissionRateView struct {
	SystemCode string    `json:"system_code"`
	SalesBps   int       `json:"sales_bps"`
	PrizesBps  int       `json:"prizes_bps"`
	UpdatedBy  string    `json:"updated_by"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toCommissionRateView(r domain.CommissionRate) CommissionRateView {
	return CommissionRateView{
		SystemCode: r.SystemCode,
		SalesBps:   r.SalesBps,
		PrizesBps:  r.PrizesBps,
		UpdatedBy:  r.UpdatedBy,
		UpdatedAt:  r.UpdatedAt,
	}
}

// SystemCommissionView is one row of the weekly commission breakdown.
type SystemCommissionView struct {
	SystemCode string              `json:"system_code"`
	Sales      domain.Amounts      `json:"sales"`
	Prizes     domain.Amounts      `json:"prizes"`
	Rate       *CommissionRateView `json:"rate"`
	Commission domain.Amounts      `json:"commission"`
}

// WeeklySummaryView exposes the weekly rollup of an agency.
type WeeklySummaryView struct {
	AgencyID       string                 `json:"agency_id"`
	WeekStart      string                 `json:"week_start"`
	WeekEnd        string                 `json:"week_end"`
	Days           int                    `json:"days"`
	Pending        int                    `json:"pending"`
	Approved       int                    `json:"approved"`
	Rejected       int                    `json:"rejected"`
	Sales          domain.Amounts         `json:"sales"`
	Prizes         domain.Amounts         `json:"prizes"`
	Expenses       domain.Amounts         `json:"expenses"`
	MobilePayments domain.Amounts         `json:"mobile_payments"`
	Expected       domain.Amounts         `json:"expected"`
	Systems        []SystemCommissionView `json:"systems"`
	Commission     domain.Amounts         `json:"commission"`
}

func toWeeklySummaryView(s domain.WeeklySummary) WeeklySummaryView {
	view := WeeklySummaryView{
		AgencyID:       s.AgencyID,
		WeekStart:      s.WeekStart.Format(time.DateOnly),
		WeekEnd:        s.WeekEnd.Format(time.DateOnly),
		Days:           s.Days,
		Pending:        s.Pending,
		Approved:       s.Approved,
		Rejected:       s.Rejected,
		Sales:          s.Sales,
		Prizes:         s.Prizes,
		Expenses:       s.Expenses,
		MobilePayments: s.MobilePayments,
		Expected:       s.Expected,
		Systems:        make([]SystemCommissionView, 0, len(s.Systems)),
		Commission:     s.Commission,
	}
	for _, sys := range s.Systems {
		entry := SystemCommissionView{
			SystemCode: sys.SystemCode,
			Sales:      sys.Sales,
			Prizes:     sys.Prizes,
			Commission: sys.Commission,
		}
		if sys.Rate != nil {
			rate := toCommissionRateView(*sys.Rate)
			entry.Rate = &rate
		}
		view.Systems = append(view.Systems, entry)
	}
	return view
}

// DashboardView is the role-specific landing payload.
type DashboardView struct {
	Kind            string               `json:"kind"`
	Today           string               `json:"today"`
	Cuadres         []CuadreView         `json:"cuadres"`
	PendingReviews  int                  `json:"pending_reviews"`
	Users           []UserView           `json:"users,omitempty"`
	CommissionRates []CommissionRateView `json:"commission_rates,omitempty"`
}

func toDashboardView(d domain.Dashboard, viewer domain.Actor) DashboardView {
	view := DashboardView{
		Kind:           string(d.Kind),
		Today:          d.Today.Format(time.DateOnly),
		Cuadres:        make([]CuadreView, 0, len(d.Cuadres)),
		PendingReviews: d.PendingReviews,
	}
	for _, c := range d.Cuadres {
		view.Cuadres = append(view.Cuadres, toCuadreView(c, viewer))
	}
	for _, u := range d.Users {
		view.Users = append(view.Users, toUserView(u))
	}
	for _, r := range d.CommissionRates {
		view.CommissionRates = append(view.CommissionRates, toCommissionRateView(r))
	}
	return view
}

// SyncRequestView acknowledges a queued sync.
type SyncRequestView struct {
	RequestID   string    `json:"request_id"`
	RequestedBy string    `json:"requested_by"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}
