// Package domain defines the business logic for the cuadres service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/observability"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
)

var (
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownRole is returned for roles outside the known set.
	ErrUnknownRole = errors.New("unknown role")
	// ErrForbidden is returned when the actor's role does not allow the operation.
	ErrForbidden = errors.New("operation not allowed for role")
	// ErrCuadreNotFound is returned when a cuadre cannot be located.
	ErrCuadreNotFound = errors.New("cuadre not found")
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrCuadreLocked is returned when changing an approved cuadre.
	ErrCuadreLocked = errors.New("cuadre already approved")
	// ErrInvalidTransition is returned when the cuadre is already in the requested status,
	// or changed underneath the caller.
	ErrInvalidTransition = errors.New("invalid review transition")
	// ErrDuplicateUser is returned when the email or id is already registered.
	ErrDuplicateUser = errors.New("user already exists")
)

// TransactionRepository persists cashier movements and the cuadres they roll into.
type TransactionRepository interface {
	FindTransactionByIdempotency(ctx context.Context, userID, idempotencyKey string) (*Transaction, error)
	// RecordTransaction stores txn, creating the daily cuadre when missing and refreshing its
	// totals. It returns ErrCuadreLocked when the cuadre is approved.
	RecordTransaction(ctx context.Context, txn Transaction, idempotencyKey string) (*Cuadre, error)
	ListTransactions(ctx context.Context, agencyID string, date time.Time) ([]Transaction, error)
}

// CuadreRepository reads cuadres and applies review decisions.
type CuadreRepository interface {
	GetCuadre(ctx context.Context, id string) (*Cuadre, error)
	ListCuadres(ctx context.Context, filter CuadreFilter, cursor *Cursor, limit int) ([]Cuadre, *Cursor, error)
	CountCuadres(ctx context.Context, filter CuadreFilter) (int, error)
	DeclareClosing(ctx context.Context, id string, closing Amounts, at time.Time) (*Cuadre, error)
	// ApplyReview moves the cuadre from decision.From to decision.To. It returns
	// ErrInvalidTransition when the stored status is no longer decision.From.
	ApplyReview(ctx context.Context, decision ReviewDecision) (*Cuadre, error)
	// SystemTotals aggregates sales and prizes per system for the filter's agency, date range
	// and, when set, cashier. Status is ignored.
	SystemTotals(ctx context.Context, filter CuadreFilter) ([]SystemTotal, error)
}

// AdminRepository manages users, commission rates and sync requests.
type AdminRepository interface {
	CreateUser(ctx context.Context, user User) error
	ListUsers(ctx context.Context) ([]User, error)
	SetUserActive(ctx context.Context, id string, active bool) (*User, error)
	UpsertCommissionRate(ctx context.Context, rate CommissionRate) error
	ListCommissionRates(ctx context.Context) ([]CommissionRate, error)
	EnqueueSync(ctx context.Context, req SyncRequest) error
}

// Repository captures persistence operations.
type Repository interface {
	TransactionRepository
	CuadreRepository
	AdminRepository
}

// Service orchestrates cuadre workflows.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// RecordTransactionInput captures the payload from the API layer.
type RecordTransactionInput struct {
	AgencyID       string
	Kind           TransactionKind
	BusinessDate   time.Time
	Currency       Currency
	Amount         int64
	SystemCode     string
	Reference      string
	Description    string
	IdempotencyKey string
}

// RecordTransaction stores a movement for the calling cashier. The bool result reports an
// idempotent replay.
func (s *Service) RecordTransaction(ctx context.Context, actor Actor, input RecordTransactionInput) (*Transaction, *Cuadre, bool, error) {
	if actor.Role == RoleTaquillera && input.AgencyID != actor.AgencyID {
		return nil, nil, false, fmt.Errorf("%w: cashiers record only for their agency", ErrForbidden)
	}

	if input.IdempotencyKey != "" {
		existing, err := s.repo.FindTransactionByIdempotency(ctx, actor.UserID, input.IdempotencyKey)
		if err != nil {
			return nil, nil, false, err
		}
		if existing != nil {
			cuadre, err := s.repo.GetCuadre(ctx, existing.CuadreID)
			if err != nil {
				return nil, nil, false, err
			}
			return existing, cuadre, true, nil
		}
	}

	txn := Transaction{
		ID:           uuid.NewString(),
		AgencyID:     input.AgencyID,
		UserID:       actor.UserID,
		Kind:         input.Kind,
		BusinessDate: BusinessDay(input.BusinessDate),
		Currency:     input.Currency,
		Amount:       input.Amount,
		SystemCode:   strings.TrimSpace(input.SystemCode),
		Reference:    strings.TrimSpace(input.Reference),
		Description:  strings.TrimSpace(input.Description),
		CreatedAt:    s.now(),
	}
	if err := txn.Validate(); err != nil {
		return nil, nil, false, err
	}

	cuadre, err := s.repo.RecordTransaction(ctx, txn, input.IdempotencyKey)
	if err != nil {
		return nil, nil, false, err
	}
	txn.CuadreID = cuadre.ID
	observability.RecordTransaction(string(txn.Kind), string(txn.Currency))
	return &txn, cuadre, false, nil
}

// ListTransactions returns an agency's movements for one business date.
func (s *Service) ListTransactions(ctx context.Context, actor Actor, agencyID string, date time.Time) ([]Transaction, error) {
	if actor.Role == RoleTaquillera && agencyID != actor.AgencyID {
		return nil, ErrForbidden
	}
	return s.repo.ListTransactions(ctx, agencyID, BusinessDay(date))
}

// GetCuadre fetches by ID. Cashiers only see their own cuadres.
func (s *Service) GetCuadre(ctx context.Context, actor Actor, id string) (*Cuadre, error) {
	cuadre, err := s.repo.GetCuadre(ctx, id)
	if err != nil {
		return nil, err
	}
	if cuadre == nil {
		return nil, ErrCuadreNotFound
	}
	if actor.Role == RoleTaquillera && cuadre.UserID != actor.UserID {
		return nil, ErrCuadreNotFound
	}
	return cuadre, nil
}

// ListCuadres fetches cuadres with cursor pagination.
func (s *Service) ListCuadres(ctx context.Context, actor Actor, filter CuadreFilter, cursor *Cursor, limit int) ([]Cuadre, *Cursor, error) {
	if actor.Role == RoleTaquillera {
		filter.UserID = actor.UserID
	}
	return s.repo.ListCuadres(ctx, filter, cursor, limit)
}

// DeclareClosing records the counted cash for a cuadre.
func (s *Service) DeclareClosing(ctx context.Context, actor Actor, id string, closing Amounts) (*Cuadre, error) {
	if closing.VES < 0 || closing.USD < 0 {
		return nil, fmt.Errorf("%w: closing cash cannot be negative", ErrValidation)
	}
	cuadre, err := s.GetCuadre(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if cuadre.Locked() {
		return nil, ErrCuadreLocked
	}
	return s.repo.DeclareClosing(ctx, id, closing, s.now())
}

// ApproveCuadre records an approval. Blank observations are stored as absent.
func (s *Service) ApproveCuadre(ctx context.Context, actor Actor, id string, observations review.Note) (*Cuadre, error) {
	return s.applyReview(ctx, actor, id, nil, review.ActionApprove, observations.ForwardApproval())
}

// RejectCuadre records a rejection. Observations are mandatory.
func (s *Service) RejectCuadre(ctx context.Context, actor Actor, id string, observations review.Note) (*Cuadre, error) {
	if !observations.HasText() {
		return nil, review.ErrObservationsRequired
	}
	return s.applyReview(ctx, actor, id, nil, review.ActionReject, observations)
}

// applyReview moves the cuadre to the action's target. When expected is set the decision is
// taken against that status, so a cuadre reviewed by someone else in the meantime is refused.
func (s *Service) applyReview(ctx context.Context, actor Actor, id string, expected *review.Status, action review.Action, observations review.Note) (*Cuadre, error) {
	if !actor.Role.CanReview() {
		return nil, ErrForbidden
	}
	current, err := s.repo.GetCuadre(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrCuadreNotFound
	}

	from := current.Status
	if expected != nil {
		if current.Status != *expected {
			return nil, fmt.Errorf("%w: cuadre is %s, expected %s", ErrInvalidTransition, current.Status, *expected)
		}
		from = *expected
	}
	if action == review.ActionReject && !observations.HasText() {
		return nil, review.ErrObservationsRequired
	}

	target := action.Target()
	if from == target {
		return nil, fmt.Errorf("%w: cuadre already %s", ErrInvalidTransition, target)
	}

	decision := ReviewDecision{
		CuadreID:     id,
		From:         from,
		To:           target,
		ReviewedBy:   actor.UserID,
		ReviewedAt:   s.now(),
		Observations: observations,
	}
	at := decision.ReviewedAt
	if err := (review.Snapshot{Status: target, ReviewedBy: decision.ReviewedBy, ReviewedAt: &at, Observations: observations}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	updated, err := s.repo.ApplyReview(ctx, decision)
	if err != nil {
		return nil, err
	}
	observability.RecordReview(string(target))
	return updated, nil
}

// Reviewer binds a cuadre and actor to the review.Reviewer contract. Decisions are taken
// against expected, the status the session was opened on.
func (s *Service) Reviewer(actor Actor, id string, expected review.Status) review.Reviewer {
	return review.ReviewerFuncs{
		ApproveFunc: func(ctx context.Context, observations review.Note) error {
			_, err := s.applyReview(ctx, actor, id, &expected, review.ActionApprove, observations.ForwardApproval())
			return err
		},
		RejectFunc: func(ctx context.Context, observations review.Note) error {
			_, err := s.applyReview(ctx, actor, id, &expected, review.ActionReject, observations)
			return err
		},
	}
}

// WeeklySummary rolls up an agency's week starting on the Monday containing weekOf.
func (s *Service) WeeklySummary(ctx context.Context, actor Actor, agencyID string, weekOf time.Time) (*WeeklySummary, error) {
	if actor.Role == RoleTaquillera && agencyID != actor.AgencyID {
		return nil, ErrForbidden
	}
	start := WeekStart(weekOf)
	end := start.AddDate(0, 0, 6)

	filter := CuadreFilter{AgencyID: agencyID, From: start, To: end}
	if actor.Role == RoleTaquillera {
		filter.UserID = actor.UserID
	}

	summary := &WeeklySummary{AgencyID: agencyID, WeekStart: start, WeekEnd: end}
	var cursor *Cursor
	for {
		page, next, err := s.repo.ListCuadres(ctx, filter, cursor, 100)
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			summary.Days++
			switch c.Status {
			case review.StatusApproved:
				summary.Approved++
			case review.StatusRejected:
				summary.Rejected++
			default:
				summary.Pending++
			}
			summary.Sales = summary.Sales.Add(c.Sales)
			summary.Prizes = summary.Prizes.Add(c.Prizes)
			summary.Expenses = summary.Expenses.Add(c.Expenses)
			summary.MobilePayments = summary.MobilePayments.Add(c.MobilePayments)
		}
		if next == nil {
			break
		}
		cursor = next
	}
	summary.Expected = summary.Sales.Sub(summary.Prizes).Sub(summary.Expenses).Sub(summary.MobilePayments)

	totals, err := s.repo.SystemTotals(ctx, filter)
	if err != nil {
		return nil, err
	}
	rates, err := s.repo.ListCommissionRates(ctx)
	if err != nil {
		return nil, err
	}
	bySystem := make(map[string]CommissionRate, len(rates))
	for _, r := range rates {
		bySystem[r.SystemCode] = r
	}

	sort.Slice(totals, func(i, j int) bool { return totals[i].SystemCode < totals[j].SystemCode })
	for _, total := range totals {
		entry := SystemCommission{SystemTotal: total}
		if rate, ok := bySystem[total.SystemCode]; ok {
			entry.Rate = &rate
			entry.Commission = rate.Apply(total)
			summary.Commission = summary.Commission.Add(entry.Commission)
		}
		summary.Systems = append(summary.Systems, entry)
	}
	return summary, nil
}

// dashboardPageSize bounds the cuadres listed on a dashboard.
const dashboardPageSize = 50

// Dashboard is the role-specific landing payload. PendingReviews counts every pending cuadre;
// Cuadres holds at most one page of them.
type Dashboard struct {
	Kind            DashboardKind
	Today           time.Time
	Cuadres         []Cuadre
	PendingReviews  int
	Users           []User
	CommissionRates []CommissionRate
}

// Dashboard builds the landing data for actor's role.
func (s *Service) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	kind, err := DashboardFor(actor.Role)
	if err != nil {
		return nil, err
	}
	today := BusinessDay(s.now())
	dash := &Dashboard{Kind: kind, Today: today}
	pendingStatus := review.StatusPending

	switch kind {
	case DashboardCashier:
		dash.Cuadres, _, err = s.repo.ListCuadres(ctx, CuadreFilter{UserID: actor.UserID, From: today.AddDate(0, 0, -6), To: today}, nil, 7)
		if err != nil {
			return nil, err
		}
	case DashboardSupervisor:
		pending := CuadreFilter{Status: &pendingStatus}
		dash.Cuadres, _, err = s.repo.ListCuadres(ctx, pending, nil, dashboardPageSize)
		if err != nil {
			return nil, err
		}
		if dash.PendingReviews, err = s.repo.CountCuadres(ctx, pending); err != nil {
			return nil, err
		}
	case DashboardAdmin:
		if dash.Users, err = s.repo.ListUsers(ctx); err != nil {
			return nil, err
		}
		if dash.CommissionRates, err = s.repo.ListCommissionRates(ctx); err != nil {
			return nil, err
		}
		if dash.PendingReviews, err = s.repo.CountCuadres(ctx, CuadreFilter{Status: &pendingStatus}); err != nil {
			return nil, err
		}
	}
	return dash, nil
}

// CreateUserInput captures a new profile.
type CreateUserInput struct {
	ID       string
	Email    string
	FullName string
	Role     Role
	AgencyID string
}

// CreateUser registers a profile. Administrators only.
func (s *Service) CreateUser(ctx context.Context, actor Actor, input CreateUserInput) (*User, error) {
	if !actor.Role.CanManage() {
		return nil, ErrForbidden
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	user := User{
		ID:        id,
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		FullName:  strings.TrimSpace(input.FullName),
		Role:      input.Role,
		AgencyID:  strings.TrimSpace(input.AgencyID),
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every profile. Administrators only.
func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]User, error) {
	if !actor.Role.CanManage() {
		return nil, ErrForbidden
	}
	return s.repo.ListUsers(ctx)
}

// SetUserActive enables or disables a profile. Administrators only.
func (s *Service) SetUserActive(ctx context.Context, actor Actor, id string, active bool) (*User, error) {
	if !actor.Role.CanManage() {
		return nil, ErrForbidden
	}
	user, err := s.repo.SetUserActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SetCommissionRate creates or replaces a system's rate. Administrators only.
func (s *Service) SetCommissionRate(ctx context.Context, actor Actor, systemCode string, salesBps, prizesBps int) (*CommissionRate, error) {
	if !actor.Role.CanManage() {
		return nil, ErrForbidden
	}
	rate := CommissionRate{
		SystemCode: strings.ToUpper(strings.TrimSpace(systemCode)),
		SalesBps:   salesBps,
		PrizesBps:  prizesBps,
		UpdatedBy:  actor.UserID,
		UpdatedAt:  s.now(),
	}
	if err := rate.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertCommissionRate(ctx, rate); err != nil {
		return nil, err
	}
	return &rate, nil
}

// ListCommissionRates returns every configured rate.
func (s *Service) ListCommissionRates(ctx context.Context, actor Actor) ([]CommissionRate, error) {
	if !actor.Role.CanReview() {
		return nil, ErrForbidden
	}
	return s.repo.ListCommissionRates(ctx)
}

// RequestSync enqueues a run of the external sync workflow.
func (s *Service) RequestSync(ctx context.Context, actor Actor, reason string) (*SyncRequest, error) {
	if !actor.Role.CanReview() {
		return nil, ErrForbidden
	}
	req := SyncRequest{
		ID:          uuid.NewString(),
		RequestedBy: actor.UserID,
		Reason:      strings.TrimSpace(reason),
		RequestedAt: s.now(),
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}
	if err := s.repo.EnqueueSync(ctx, req); err != nil {
		return nil, err
	}
	observability.RecordSyncRequested(req.Reason)
	return &req, nil
}
