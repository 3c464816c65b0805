package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/events"
)

const userColumns = `user_id, email, full_name, role, agency_id, active, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u        domain.User
		role     string
		agencyID *string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &role, &agencyID, &u.Active, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.AgencyID = derefString(agencyID)
	return u, nil
}

// CreateUser stores a back-office profile.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (user_id, email, full_name, role, agency_id, active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, stmt,
		user.ID,
		user.Email,
		user.FullName,
		string(user.Role),
		nullIfEmpty(user.AgencyID),
		user.Active,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateUser
	}
	return err
}

// ListUsers returns all profiles ordered by email.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// SetUserActive toggles a profile; it returns nil when the user does not exist.
func (r *Repository) SetUserActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET active=$2 WHERE user_id=$1 RETURNING `+userColumns, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// UpsertCommissionRate creates or replaces the rate for a lottery system.
func (r *Repository) UpsertCommissionRate(ctx context.Context, rate domain.CommissionRate) error {
	const stmt = `INSERT INTO commission_rates (system_code, sales_bps, prizes_bps, updated_by, updated_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (system_code) DO UPDATE
        SET sales_bps=EXCLUDED.sales_bps, prizes_bps=EXCLUDED.prizes_bps, updated_by=EXCLUDED.updated_by, updated_at=EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, stmt, rate.SystemCode, rate.SalesBps, rate.PrizesBps, rate.UpdatedBy, rate.UpdatedAt)
	return err
}

// ListCommissionRates returns every configured rate ordered by system code.
func (r *Repository) ListCommissionRates(ctx context.Context) ([]domain.CommissionRate, error) {
	rows, err := r.pool.Query(ctx, `SELECT system_code, sales_bps, prizes_bps, updated_by, updated_at FROM commission_rates ORDER BY system_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.CommissionRate, 0)
	for rows.Next() {
		var rate domain.CommissionRate
		if err := rows.Scan(&rate.SystemCode, &rate.SalesBps, &rate.PrizesBps, &rate.UpdatedBy, &rate.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, rate)
	}
	return results, rows.Err()
}

// EnqueueSync records the request and its outbox event atomically.
func (r *Repository) EnqueueSync(ctx context.Context, req domain.SyncRequest) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `INSERT INTO sync_requests (request_id, requested_by, reason, requested_at) VALUES ($1,$2,$3,$4)`,
		req.ID, req.RequestedBy, req.Reason, req.RequestedAt); err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, events.TypeSyncRequested, req.ID, "", events.SyncRequested{
		RequestID:   req.ID,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
		RequestedAt: req.RequestedAt,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
