// Package memory provides an in-process domain.Repository for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
)

// Repository stores everything in maps guarded by a single lock.
type Repository struct {
	mu           sync.RWMutex
	transactions map[string]domain.Transaction
	idempotency  map[string]string
	cuadres      map[string]domain.Cuadre
	users        map[string]domain.User
	rates        map[string]domain.CommissionRate
	syncs        []domain.SyncRequest
	reviews      []domain.ReviewDecision
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		transactions: make(map[string]domain.Transaction),
		idempotency:  make(map[string]string),
		cuadres:      make(map[string]domain.Cuadre),
		users:        make(map[string]domain.User),
		rates:        make(map[string]domain.CommissionRate),
	}
}

func idempotencyKey(userID, key string) string {
	return userID + "|" + key
}

// FindTransactionByIdempotency implements domain.TransactionRepository.
func (r *Repository) FindTransactionByIdempotency(_ context.Context, userID, key string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idempotency[idempotencyKey(userID, key)]
	if !ok {
		return nil, nil
	}
	txn := r.transactions[id]
	return &txn, nil
}

// RecordTransaction implements domain.TransactionRepository.
func (r *Repository) RecordTransaction(_ context.Context, txn domain.Transaction, key string) (*domain.Cuadre, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cuadre, found := r.findCuadreLocked(txn.AgencyID, txn.UserID, txn.BusinessDate)
	if found && cuadre.Locked() {
		return nil, domain.ErrCuadreLocked
	}
	if !found {
		cuadre = domain.Cuadre{
			ID:           uuid.NewString(),
			AgencyID:     txn.AgencyID,
			UserID:       txn.UserID,
			BusinessDate: txn.BusinessDate,
			Status:       review.StatusPending,
			CreatedAt:    txn.CreatedAt,
		}
	}

	switch txn.Kind {
	case domain.KindSale:
		cuadre.Sales = cuadre.Sales.With(txn.Currency, txn.Amount)
	case domain.KindPrize:
		cuadre.Prizes = cuadre.Prizes.With(txn.Currency, txn.Amount)
	case domain.KindExpense:
		cuadre.Expenses = cuadre.Expenses.With(txn.Currency, txn.Amount)
	case domain.KindMobilePayment:
		cuadre.MobilePayments = cuadre.MobilePayments.With(txn.Currency, txn.Amount)
	}
	cuadre.UpdatedAt = txn.CreatedAt
	r.cuadres[cuadre.ID] = cuadre

	txn.CuadreID = cuadre.ID
	r.transactions[txn.ID] = txn
	if key != "" {
		r.idempotency[idempotencyKey(txn.UserID, key)] = txn.ID
	}
	return &cuadre, nil
}

func (r *Repository) findCuadreLocked(agencyID, userID string, date time.Time) (domain.Cuadre, bool) {
	for _, c := range r.cuadres {
		if c.AgencyID == agencyID && c.UserID == userID && c.BusinessDate.Equal(date) {
			return c, true
		}
	}
	return domain.Cuadre{}, false
}

// ListTransactions implements domain.TransactionRepository.
func (r *Repository) ListTransactions(_ context.Context, agencyID string, date time.Time) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Transaction, 0)
	for _, txn := range r.transactions {
		if txn.AgencyID == agencyID && txn.BusinessDate.Equal(date) {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetCuadre implements domain.CuadreRepository.
func (r *Repository) GetCuadre(_ context.Context, id string) (*domain.Cuadre, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cuadres[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// ListCuadres implements domain.CuadreRepository, newest business date first.
func (r *Repository) ListCuadres(_ context.Context, filter domain.CuadreFilter, cursor *domain.Cursor, limit int) ([]domain.Cuadre, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]domain.Cuadre, 0)
	for _, c := range r.cuadres {
		if !matchesFilter(c, filter) {
			continue
		}
		if cursor != nil && !before(c, *cursor) {
			continue
		}
		matches = append(matches, c)
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].BusinessDate.Equal(matches[j].BusinessDate) {
			return matches[i].BusinessDate.After(matches[j].BusinessDate)
		}
		return matches[i].ID > matches[j].ID
	})

	if limit <= 0 || limit > len(matches) {
		return matches, nil, nil
	}
	page := matches[:limit]
	var next *domain.Cursor
	if len(matches) > limit {
		last := page[len(page)-1]
		next = &domain.Cursor{BusinessDate: last.BusinessDate, ID: last.ID}
	}
	return page, next, nil
}

func before(c domain.Cuadre, cursor domain.Cursor) bool {
	if c.BusinessDate.Equal(cursor.BusinessDate) {
		return c.ID < cursor.ID
	}
	return c.BusinessDate.Before(cursor.BusinessDate)
}

// DeclareClosing implements domain.CuadreRepository.
func (r *Repository) DeclareClosing(_ context.Context, id string, closing domain.Amounts, at time.Time) (*domain.Cuadre, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuadres[id]
	if !ok {
		return nil, domain.ErrCuadreNotFound
	}
	if c.Locked() {
		return nil, domain.ErrCuadreLocked
	}
	c.Closing = &closing
	c.ClosedAt = &at
	c.UpdatedAt = at
	r.cuadres[id] = c
	return &c, nil
}

// ApplyReview implements domain.CuadreRepository.
func (r *Repository) ApplyReview(_ context.Context, d domain.ReviewDecision) (*domain.Cuadre, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuadres[d.CuadreID]
	if !ok {
		return nil, domain.ErrCuadreNotFound
	}
	if c.Status != d.From {
		return nil, domain.ErrInvalidTransition
	}
	at := d.ReviewedAt
	c.Status = d.To
	c.ReviewedBy = d.ReviewedBy
	c.ReviewedAt = &at
	c.Observations = d.Observations
	c.UpdatedAt = at
	r.cuadres[c.ID] = c
	r.reviews = append(r.reviews, d)
	return &c, nil
}

// CountCuadres implements domain.CuadreRepository.
func (r *Repository) CountCuadres(_ context.Context, filter domain.CuadreFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, c := range r.cuadres {
		if matchesFilter(c, filter) {
			count++
		}
	}
	return count, nil
}

func matchesFilter(c domain.Cuadre, filter domain.CuadreFilter) bool {
	switch {
	case filter.AgencyID != "" && c.AgencyID != filter.AgencyID:
		return false
	case filter.UserID != "" && c.UserID != filter.UserID:
		return false
	case filter.Status != nil && c.Status != *filter.Status:
		return false
	case !filter.From.IsZero() && c.BusinessDate.Before(filter.From):
		return false
	case !filter.To.IsZero() && c.BusinessDate.After(filter.To):
		return false
	}
	return true
}

// SystemTotals implements domain.CuadreRepository.
func (r *Repository) SystemTotals(_ context.Context, filter domain.CuadreFilter) ([]domain.SystemTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bySystem := make(map[string]*domain.SystemTotal)
	for _, txn := range r.transactions {
		if txn.AgencyID != filter.AgencyID || (filter.UserID != "" && txn.UserID != filter.UserID) {
			continue
		}
		if (!filter.From.IsZero() && txn.BusinessDate.Before(filter.From)) || (!filter.To.IsZero() && txn.BusinessDate.After(filter.To)) {
			continue
		}
		if txn.Kind != domain.KindSale && txn.Kind != domain.KindPrize {
			continue
		}
		total, ok := bySystem[txn.SystemCode]
		if !ok {
			total = &domain.SystemTotal{SystemCode: txn.SystemCode}
			bySystem[txn.SystemCode] = total
		}
		if txn.Kind == domain.KindSale {
			total.Sales = total.Sales.With(txn.Currency, txn.Amount)
		} else {
			total.Prizes = total.Prizes.With(txn.Currency, txn.Amount)
		}
	}
	out := make([]domain.SystemTotal, 0, len(bySystem))
	for _, total := range bySystem {
		out = append(out, *total)
	}
	return out, nil
}

// CreateUser implements domain.AdminRepository.
func (r *Repository) CreateUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.ID == user.ID || strings.EqualFold(existing.Email, user.Email) {
			return domain.ErrDuplicateUser
		}
	}
	r.users[user.ID] = user
	return nil
}

// ListUsers implements domain.AdminRepository.
func (r *Repository) ListUsers(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// SetUserActive implements domain.AdminRepository.
func (r *Repository) SetUserActive(_ context.Context, id string, active bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u.Active = active
	r.users[id] = u
	return &u, nil
}

// UpsertCommissionRate implements domain.AdminRepository.
func (r *Repository) UpsertCommissionRate(_ context.Context, rate domain.CommissionRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates[rate.SystemCode] = rate
	return nil
}

// ListCommissionRates implements domain.AdminRepository.
func (r *Repository) ListCommissionRates(_ context.Context) ([]domain.CommissionRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.CommissionRate, 0, len(r.rates))
	for _, rate := range r.rates {
		out = append(out, rate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SystemCode < out[j].SystemCode })
	return out, nil
}

// EnqueueSync implements domain.AdminRepository.
func (r *Repository) EnqueueSync(_ context.Context, req domain.SyncRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs = append(r.syncs, req)
	return nil
}

// SyncRequests returns the enqueued sync requests.
func (r *Repository) SyncRequests() []domain.SyncRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.SyncRequest(nil), r.syncs...)
}

// Reviews returns the applied review decisions in order.
func (r *Repository) Reviews() []domain.ReviewDecision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ReviewDecision(nil), r.reviews...)
}
