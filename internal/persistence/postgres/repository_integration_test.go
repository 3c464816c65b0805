//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/persistence/postgres"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/testsupport"
)

func newTransaction(kind domain.TransactionKind, currency domain.Currency, amount int64, date time.Time) domain.Transaction {
	return domain.Transaction{
		ID:           uuid.NewString(),
		AgencyID:     "agencia-centro",
		UserID:       "taq-1",
		Kind:         kind,
		BusinessDate: date,
		Currency:     currency,
		Amount:       amount,
		SystemCode:   "LOTTO",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestRepositoryRollsTransactionsIntoCuadre(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)
	repo := postgres.NewRepository(pool)
	date := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	sale := newTransaction(domain.KindSale, domain.CurrencyVES, 150000, date)
	cuadre, err := repo.RecordTransaction(ctx, sale, "key-1")
	require.NoError(t, err)
	require.Equal(t, int64(150000), cuadre.Sales.VES)
	require.Equal(t, review.StatusPending, cuadre.Status)

	prize := newTransaction(domain.KindPrize, domain.CurrencyVES, 50000, date)
	cuadre2, err := repo.RecordTransaction(ctx, prize, "")
	require.NoError(t, err)
	require.Equal(t, cuadre.ID, cuadre2.ID)
	require.Equal(t, domain.Amounts{VES: 100000}, cuadre2.Expected())

	replay, err := repo.FindTransactionByIdempotency(ctx, "taq-1", "key-1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	require.Equal(t, sale.ID, replay.ID)

	totals, err := repo.SystemTotals(ctx, domain.CuadreFilter{AgencyID: "agencia-centro", From: date, To: date})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	require.Equal(t, int64(50000), totals[0].Prizes.VES)

	totals, err = repo.SystemTotals(ctx, domain.CuadreFilter{AgencyID: "agencia-centro", UserID: "taq-2", From: date, To: date})
	require.NoError(t, err)
	require.Empty(t, totals)

	var outboxRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type='transaction.recorded'`).Scan(&outboxRows))
	require.Equal(t, 2, outboxRows)
}

func TestRepositoryReviewIsConditional(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)
	repo := postgres.NewRepository(pool)
	date := time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)

	cuadre, err := repo.RecordTransaction(ctx, newTransaction(domain.KindSale, domain.CurrencyUSD, 2000, date), "")
	require.NoError(t, err)

	reviewedAt := time.Now().UTC().Truncate(time.Microsecond)
	rejected, err := repo.ApplyReview(ctx, domain.ReviewDecision{
		CuadreID:     cuadre.ID,
		From:         review.StatusPending,
		To:           review.StatusRejected,
		ReviewedBy:   "enc-1",
		ReviewedAt:   reviewedAt,
		Observations: review.NoteText("falta efectivo"),
	})
	require.NoError(t, err)
	require.Equal(t, review.StatusRejected, rejected.Status)
	require.Equal(t, "falta efectivo", rejected.Observations.Text())
	require.Equal(t, "enc-1", rejected.ReviewedBy)

	_, err = repo.ApplyReview(ctx, domain.ReviewDecision{
		CuadreID:   cuadre.ID,
		From:       review.StatusPending,
		To:         review.StatusApproved,
		ReviewedBy: "enc-1",
		ReviewedAt: reviewedAt,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	approved, err := repo.ApplyReview(ctx, domain.ReviewDecision{
		CuadreID:     cuadre.ID,
		From:         review.StatusRejected,
		To:           review.StatusApproved,
		ReviewedBy:   "enc-2",
		ReviewedAt:   reviewedAt.Add(time.Minute),
		Observations: review.NoteAbsent(),
	})
	require.NoError(t, err)
	require.True(t, approved.Observations.IsAbsent())

	_, err = repo.RecordTransaction(ctx, newTransaction(domain.KindSale, domain.CurrencyUSD, 100, date), "")
	require.ErrorIs(t, err, domain.ErrCuadreLocked)

	_, err = repo.DeclareClosing(ctx, cuadre.ID, domain.Amounts{USD: 2000}, time.Now().UTC())
	require.ErrorIs(t, err, domain.ErrCuadreLocked)

	_, err = repo.ApplyReview(ctx, domain.ReviewDecision{CuadreID: uuid.NewString(), From: review.StatusPending, To: review.StatusApproved, ReviewedBy: "x", ReviewedAt: reviewedAt})
	require.ErrorIs(t, err, domain.ErrCuadreNotFound)
}

func TestRepositoryListCuadresPaginates(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)
	repo := postgres.NewRepository(pool)

	base := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repo.RecordTransaction(ctx, newTransaction(domain.KindSale, domain.CurrencyVES, 1000, base.AddDate(0, 0, i)), "")
		require.NoError(t, err)
	}

	pending := review.StatusPending
	page, next, err := repo.ListCuadres(ctx, domain.CuadreFilter{AgencyID: "agencia-centro", Status: &pending}, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.True(t, page[0].BusinessDate.After(page[1].BusinessDate))
	require.NotNil(t, next)

	rest, _, err := repo.ListCuadres(ctx, domain.CuadreFilter{AgencyID: "agencia-centro"}, next, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.True(t, rest[0].BusinessDate.Equal(base))
}

func TestRepositoryAdministration(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)
	repo := postgres.NewRepository(pool)

	user := domain.User{ID: "u-1", Email: "taq@agencia.com", FullName: "Ana", Role: domain.RoleTaquillera, AgencyID: "agencia-centro", Active: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateUser(ctx, user))
	require.ErrorIs(t, repo.CreateUser(ctx, user), domain.ErrDuplicateUser)

	updated, err := repo.SetUserActive(ctx, "u-1", false)
	require.NoError(t, err)
	require.False(t, updated.Active)
	missing, err := repo.SetUserActive(ctx, "nobody", false)
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.UpsertCommissionRate(ctx, domain.CommissionRate{SystemCode: "LOTTO", SalesBps: 1000, UpdatedBy: "admin", UpdatedAt: time.Now().UTC()}))
	require.NoError(t, repo.UpsertCommissionRate(ctx, domain.CommissionRate{SystemCode: "LOTTO", SalesBps: 1200, UpdatedBy: "admin", UpdatedAt: time.Now().UTC()}))
	rates, err := repo.ListCommissionRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.Equal(t, 1200, rates[0].SalesBps)

	require.NoError(t, repo.EnqueueSync(ctx, domain.SyncRequest{ID: uuid.NewString(), RequestedBy: "admin", Reason: "manual", RequestedAt: time.Now().UTC()}))
	var outboxRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE topic='sync_requests'`).Scan(&outboxRows))
	require.Equal(t, 1, outboxRows)
}
