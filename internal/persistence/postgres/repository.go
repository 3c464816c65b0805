package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/events"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
)

// Repository provides Postgres-backed persistence for cuadres, transactions and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ domain.Repository = (*Repository)(nil)

const cuadreColumns = `cuadre_id, agency_id, user_id, business_date,
        sales_ves, sales_usd, prizes_ves, prizes_usd, expenses_ves, expenses_usd, mobile_payments_ves, mobile_payments_usd,
        closing_ves, closing_usd, closed_at, status, reviewed_by, reviewed_at, observations, created_at, updated_at`

const transactionColumns = `transaction_id, cuadre_id, agency_id, user_id, kind, business_date, currency, amount,
        system_code, reference, description, created_at`

func scanCuadre(row pgx.Row) (domain.Cuadre, error) {
	var (
		c                        domain.Cuadre
		closingVES, closingUSD   *int64
		status, reviewedBy, note *string
	)
	err := row.Scan(
		&c.ID, &c.AgencyID, &c.UserID, &c.BusinessDate,
		&c.Sales.VES, &c.Sales.USD, &c.Prizes.VES, &c.Prizes.USD,
		&c.Expenses.VES, &c.Expenses.USD, &c.MobilePayments.VES, &c.MobilePayments.USD,
		&closingVES, &closingUSD, &c.ClosedAt, &status, &reviewedBy, &c.ReviewedAt, &note,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Cuadre{}, err
	}
	if closingVES != nil || closingUSD != nil {
		c.Closing = &domain.Amounts{VES: derefInt(closingVES), USD: derefInt(closingUSD)}
	}
	c.Status = review.ParseStatusPtr(status)
	if reviewedBy != nil {
		c.ReviewedBy = *reviewedBy
	}
	c.Observations = review.NoteFromPtr(note)
	return c, nil
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		t                                   domain.Transaction
		kind, currency                      string
		systemCode, reference, description *string
	)
	err := row.Scan(&t.ID, &t.CuadreID, &t.AgencyID, &t.UserID, &kind, &t.BusinessDate, &currency, &t.Amount,
		&systemCode, &reference, &description, &t.CreatedAt)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Kind = domain.TransactionKind(kind)
	t.Currency = domain.Currency(currency)
	t.SystemCode = derefString(systemCode)
	t.Reference = derefString(reference)
	t.Description = derefString(description)
	return t, nil
}

// FindTransactionByIdempotency checks if a transaction already exists for the supplied idempotency key.
func (r *Repository) FindTransactionByIdempotency(ctx context.Context, userID, idempotencyKey string) (*domain.Transaction, error) {
	if idempotencyKey == "" {
		return nil, nil
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id=$1 AND idempotency_key=$2`
	txn, err := scanTransaction(r.pool.QueryRow(ctx, query, userID, idempotencyKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// RecordTransaction persists the transaction, refreshes the daily cuadre totals and records
// the outbox event inside a single transaction.
func (r *Repository) RecordTransaction(ctx context.Context, txn domain.Transaction, idempotencyKey string) (_ *domain.Cuadre, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const ensureCuadre = `INSERT INTO cuadres (cuadre_id, agency_id, user_id, business_date, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$5)
        ON CONFLICT (agency_id, user_id, business_date) DO NOTHING`
	if _, err = tx.Exec(ctx, ensureCuadre, uuid.NewString(), txn.AgencyID, txn.UserID, txn.BusinessDate, txn.CreatedAt); err != nil {
		return nil, err
	}

	var (
		cuadreID string
		status   *string
	)
	err = tx.QueryRow(ctx, `SELECT cuadre_id, status FROM cuadres WHERE agency_id=$1 AND user_id=$2 AND business_date=$3 FOR UPDATE`,
		txn.AgencyID, txn.UserID, txn.BusinessDate).Scan(&cuadreID, &status)
	if err != nil {
		return nil, err
	}
	if review.ParseStatusPtr(status) == review.StatusApproved {
		err = domain.ErrCuadreLocked
		return nil, err
	}
	txn.CuadreID = cuadreID

	const insertTransaction = `INSERT INTO transactions (transaction_id, cuadre_id, agency_id, user_id, kind, business_date, currency, amount,
        system_code, reference, description, idempotency_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err = tx.Exec(ctx, insertTransaction,
		txn.ID,
		txn.CuadreID,
		txn.AgencyID,
		txn.UserID,
		string(txn.Kind),
		txn.BusinessDate,
		string(txn.Currency),
		txn.Amount,
		nullIfEmpty(txn.SystemCode),
		nullIfEmpty(txn.Reference),
		nullIfEmpty(txn.Description),
		nullIfEmpty(idempotencyKey),
		txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	const refreshTotals = `UPDATE cuadres SET
            sales_ves = t.s_ves, sales_usd = t.s_usd,
            prizes_ves = t.p_ves, prizes_usd = t.p_usd,
            expenses_ves = t.e_ves, expenses_usd = t.e_usd,
            mobile_payments_ves = t.m_ves, mobile_payments_usd = t.m_usd,
            updated_at = $2
        FROM (SELECT
            COALESCE(SUM(amount) FILTER (WHERE kind='sale' AND currency='VES'), 0)::BIGINT AS s_ves,
            COALESCE(SUM(amount) FILTER (WHERE kind='sale' AND currency='USD'), 0)::BIGINT AS s_usd,
            COALESCE(SUM(amount) FILTER (WHERE kind='prize' AND currency='VES'), 0)::BIGINT AS p_ves,
            COALESCE(SUM(amount) FILTER (WHERE kind='prize' AND currency='USD'), 0)::BIGINT AS p_usd,
            COALESCE(SUM(amount) FILTER (WHERE kind='expense' AND currency='VES'), 0)::BIGINT AS e_ves,
            COALESCE(SUM(amount) FILTER (WHERE kind='expense' AND currency='USD'), 0)::BIGINT AS e_usd,
            COALESCE(SUM(amount) FILTER (WHERE kind='mobile_payment' AND currency='VES'), 0)::BIGINT AS m_ves,
            COALESCE(SUM(amount) FILTER (WHERE kind='mobile_payment' AND currency='USD'), 0)::BIGINT AS m_usd
            FROM transactions WHERE cuadre_id=$1) t
        WHERE cuadre_id=$1
        RETURNING ` + cuadreColumns
	cuadre, err := scanCuadre(tx.QueryRow(ctx, refreshTotals, txn.CuadreID, txn.CreatedAt))
	if err != nil {
		return nil, err
	}

	if err = r.insertOutbox(ctx, tx, events.TypeTransactionRecorded, cuadre.ID, txn.ID, events.TransactionRecorded{
		TransactionID: txn.ID,
		CuadreID:      txn.CuadreID,
		AgencyID:      txn.AgencyID,
		UserID:        txn.UserID,
		Kind:          string(txn.Kind),
		BusinessDate:  txn.BusinessDate.Format(time.DateOnly),
		Currency:      string(txn.Currency),
		Amount:        txn.Amount,
		SystemCode:    txn.SystemCode,
		RecordedAt:    txn.CreatedAt,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &cuadre, nil
}

// ListTransactions returns the agency's transactions for one business date in recording order.
func (r *Repository) ListTransactions(ctx context.Context, agencyID string, date time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE agency_id=$1 AND business_date=$2 ORDER BY created_at, transaction_id`
	rows, err := r.pool.Query(ctx, query, agencyID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, txn)
	}
	return results, rows.Err()
}

// GetCuadre retrieves a cuadre by ID.
func (r *Repository) GetCuadre(ctx context.Context, id string) (*domain.Cuadre, error) {
	query := `SELECT ` + cuadreColumns + ` FROM cuadres WHERE cuadre_id=$1`
	cuadre, err := scanCuadre(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, nil
		}
		return nil, err
	}
	return &cuadre, nil
}

// ListCuadres returns cuadres ordered by business date, newest first.
func (r *Repository) ListCuadres(ctx context.Context, filter domain.CuadreFilter, cursor *domain.Cursor, limit int) ([]domain.Cuadre, *domain.Cursor, error) {
	clauses, args := cuadreFilterClauses(filter)
	if cursor != nil {
		args = append(args, cursor.BusinessDate, cursor.ID)
		clauses = append(clauses, fmt.Sprintf("(business_date, cuadre_id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	query := `SELECT ` + cuadreColumns + ` FROM cuadres`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY business_date DESC, cuadre_id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.Cuadre, 0, max(limit, 0))
	for rows.Next() {
		cuadre, err := scanCuadre(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, cuadre)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{BusinessDate: last.BusinessDate, ID: last.ID}
	}
	return results, nextCursor, nil
}

// DeclareClosing stores the cash the cashier counted at close of day.
func (r *Repository) DeclareClosing(ctx context.Context, id string, closing domain.Amounts, at time.Time) (*domain.Cuadre, error) {
	query := `UPDATE cuadres SET closing_ves=$2, closing_usd=$3, closed_at=$4, updated_at=$4
        WHERE cuadre_id=$1 AND status IS DISTINCT FROM 'approved'
        RETURNING ` + cuadreColumns
	cuadre, err := scanCuadre(r.pool.QueryRow(ctx, query, id, closing.VES, closing.USD, at))
	if err == nil {
		return &cuadre, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	existing, err := r.GetCuadre(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrCuadreNotFound
	}
	return nil, domain.ErrCuadreLocked
}

// ApplyReview moves the cuadre between review statuses only if it is still in decision.From,
// and records the outbox event in the same transaction.
func (r *Repository) ApplyReview(ctx context.Context, decision domain.ReviewDecision) (_ *domain.Cuadre, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	query := `UPDATE cuadres SET status=$2, reviewed_by=$3, reviewed_at=$4, observations=$5, updated_at=$4
        WHERE cuadre_id=$1 AND COALESCE(status, 'pending')=$6
        RETURNING ` + cuadreColumns
	cuadre, err := scanCuadre(tx.QueryRow(ctx, query,
		decision.CuadreID,
		string(decision.To),
		decision.ReviewedBy,
		decision.ReviewedAt,
		decision.Observations.Ptr(),
		string(decision.From),
	))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		var exists bool
		if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cuadres WHERE cuadre_id=$1)`, decision.CuadreID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			err = domain.ErrCuadreNotFound
			return nil, err
		}
		err = domain.ErrInvalidTransition
		return nil, err
	}

	dedupe := fmt.Sprintf("%s:%s", decision.ReviewedAt.UTC().Format(time.RFC3339Nano), decision.To)
	if err = r.insertOutbox(ctx, tx, events.TypeCuadreReviewed, cuadre.ID, dedupe, events.CuadreReviewed{
		CuadreID:     cuadre.ID,
		AgencyID:     cuadre.AgencyID,
		UserID:       cuadre.UserID,
		BusinessDate: cuadre.BusinessDate.Format(time.DateOnly),
		FromStatus:   string(decision.From),
		Status:       string(decision.To),
		ReviewedBy:   decision.ReviewedBy,
		ReviewedAt:   decision.ReviewedAt,
		Observations: decision.Observations.Ptr(),
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &cuadre, nil
}

// CountCuadres counts the cuadres matching filter.
func (r *Repository) CountCuadres(ctx context.Context, filter domain.CuadreFilter) (int, error) {
	clauses, args := cuadreFilterClauses(filter)
	query := `SELECT COUNT(*) FROM cuadres`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func cuadreFilterClauses(filter domain.CuadreFilter) ([]string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.AgencyID != "" {
		add("agency_id=$%d", filter.AgencyID)
	}
	if filter.UserID != "" {
		add("user_id=$%d", filter.UserID)
	}
	if filter.Status != nil {
		add("COALESCE(status, 'pending')=$%d", string(*filter.Status))
	}
	if !filter.From.IsZero() {
		add("business_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("business_date <= $%d", filter.To)
	}
	return clauses, args
}

// SystemTotals aggregates sales and prizes per lottery system over an inclusive date range.
func (r *Repository) SystemTotals(ctx context.Context, filter domain.CuadreFilter) ([]domain.SystemTotal, error) {
	const query = `SELECT COALESCE(system_code, ''),
            COALESCE(SUM(amount) FILTER (WHERE kind='sale' AND currency='VES'), 0)::BIGINT,
            COALESCE(SUM(amount) FILTER (WHERE kind='sale' AND currency='USD'), 0)::BIGINT,
            COALESCE(SUM(amount) FILTER (WHERE kind='prize' AND currency='VES'), 0)::BIGINT,
            COALESCE(SUM(amount) FILTER (WHERE kind='prize' AND currency='USD'), 0)::BIGINT
        FROM transactions
        WHERE agency_id=$1 AND business_date BETWEEN $2 AND $3 AND kind IN ('sale', 'prize')
            AND ($4 = '' OR user_id = $4)
        GROUP BY 1 ORDER BY 1`
	rows, err := r.pool.Query(ctx, query, filter.AgencyID, filter.From, filter.To, filter.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.SystemTotal, 0)
	for rows.Next() {
		var total domain.SystemTotal
		if err := rows.Scan(&total.SystemCode, &total.Sales.VES, &total.Sales.USD, &total.Prizes.VES, &total.Prizes.USD); err != nil {
			return nil, err
		}
		results = append(results, total)
	}
	return results, rows.Err()
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, eventType, aggregateID, dedupeSuffix string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	desc, ok := events.Lookup(eventType)
	keyFn, hasKey := partitionKeys[eventType]
	if !ok || !hasKey {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	dedupeKey := fmt.Sprintf("%s:%s:%s", aggregateID, eventType, dedupeSuffix)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		desc.AggregateType,
		aggregateID,
		eventType,
		desc.Topic,
		desc.Subject(),
		keyFn(payload),
		body,
		dedupeKey,
	)
	return err
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// partitionKeys derives the Kafka key per event type. Review and transaction events for one
// cuadre share a key.
var partitionKeys = map[string]func(payload interface{}) string{
	events.TypeTransactionRecorded: func(p interface{}) string {
		return p.(events.TransactionRecorded).CuadreID
	},
	events.TypeCuadreReviewed: func(p interface{}) string {
		return p.(events.CuadreReviewed).CuadreID
	},
	events.TypeSyncRequested: func(p interface{}) string {
		return p.(events.SyncRequested).RequestID
	},
}
