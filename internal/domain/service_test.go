package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/persistence/memory"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
)

var (
	cashier    = domain.Actor{UserID: "taq-1", Role: domain.RoleTaquillera, AgencyID: "agencia-centro"}
	supervisor = domain.Actor{UserID: "enc-1", Role: domain.RoleEncargada}
	admin      = domain.Actor{UserID: "adm-1", Role: domain.RoleAdministrador}
	monday     = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
)

func recordSale(t *testing.T, svc *domain.Service, date time.Time, amount int64, system string) *domain.Cuadre {
	t.Helper()
	_, cuadre, replay, err := svc.RecordTransaction(context.Background(), cashier, domain.RecordTransactionInput{
		AgencyID:     cashier.AgencyID,
		Kind:         domain.KindSale,
		BusinessDate: date,
		Currency:     domain.CurrencyVES,
		Amount:       amount,
		SystemCode:   system,
	})
	require.NoError(t, err)
	require.False(t, replay)
	return cuadre
}

func TestRecordTransactionCreatesPendingCuadre(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())

	cuadre := recordSale(t, svc, monday.Add(15*time.Hour), 150000, "LOTTO")
	require.Equal(t, review.StatusPending, cuadre.Status)
	require.Equal(t, monday, cuadre.BusinessDate)
	require.Equal(t, int64(150000), cuadre.Sales.VES)

	again := recordSale(t, svc, monday, 50000, "LOTTO")
	require.Equal(t, cuadre.ID, again.ID)
	require.Equal(t, int64(200000), again.Sales.VES)
}

func TestRecordTransactionIdempotentReplay(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	input := domain.RecordTransactionInput{
		AgencyID:       cashier.AgencyID,
		Kind:           domain.KindExpense,
		BusinessDate:   monday,
		Currency:       domain.CurrencyUSD,
		Amount:         500,
		Description:    "agua potable",
		IdempotencyKey: "form-1",
	}

	first, _, replay, err := svc.RecordTransaction(context.Background(), cashier, input)
	require.NoError(t, err)
	require.False(t, replay)

	second, cuadre, replay, err := svc.RecordTransaction(context.Background(), cashier, input)
	require.NoError(t, err)
	require.True(t, replay)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, int64(500), cuadre.Expenses.USD)
}

func TestRecordTransactionValidation(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	ctx := context.Background()

	_, _, _, err := svc.RecordTransaction(ctx, cashier, domain.RecordTransactionInput{
		AgencyID: cashier.AgencyID, Kind: domain.KindSale, BusinessDate: monday, Currency: domain.CurrencyVES, Amount: 100,
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, _, _, err = svc.RecordTransaction(ctx, cashier, domain.RecordTransactionInput{
		AgencyID: "otra-agencia", Kind: domain.KindSale, BusinessDate: monday, Currency: domain.CurrencyVES, Amount: 100, SystemCode: "X",
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, _, _, err = svc.RecordTransaction(ctx, cashier, domain.RecordTransactionInput{
		AgencyID: cashier.AgencyID, Kind: domain.KindMobilePayment, BusinessDate: monday, Currency: domain.CurrencyVES, Amount: 0, Reference: "0102",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestApproveStoresReviewerAndAbsentNote(t *testing.T) {
	repo := memory.NewRepository()
	svc := domain.NewService(repo)
	cuadre := recordSale(t, svc, monday, 1000, "LOTTO")

	approved, err := svc.ApproveCuadre(context.Background(), supervisor, cuadre.ID, review.NoteText("   "))
	require.NoError(t, err)
	require.Equal(t, review.StatusApproved, approved.Status)
	require.Equal(t, supervisor.UserID, approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
	require.True(t, approved.Observations.IsAbsent())
	require.NoError(t, approved.Snapshot().Validate())

	_, err = svc.ApproveCuadre(context.Background(), supervisor, cuadre.ID, review.NoteAbsent())
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, _, _, err = svc.RecordTransaction(context.Background(), cashier, domain.RecordTransactionInput{
		AgencyID: cashier.AgencyID, Kind: domain.KindSale, BusinessDate: monday, Currency: domain.CurrencyVES, Amount: 1, SystemCode: "LOTTO",
	})
	require.ErrorIs(t, err, domain.ErrCuadreLocked)
}

func TestRejectRequiresObservations(t *testing.T) {
	repo := memory.NewRepository()
	svc := domain.NewService(repo)
	cuadre := recordSale(t, svc, monday, 1000, "LOTTO")

	_, err := svc.RejectCuadre(context.Background(), supervisor, cuadre.ID, review.NoteEmpty())
	require.ErrorIs(t, err, review.ErrObservationsRequired)
	require.Empty(t, repo.Reviews())

	rejected, err := svc.RejectCuadre(context.Background(), supervisor, cuadre.ID, review.NoteText("faltante de caja"))
	require.NoError(t, err)
	require.Equal(t, review.StatusRejected, rejected.Status)
	require.Equal(t, "faltante de caja", rejected.Observations.Text())

	approved, err := svc.ApproveCuadre(context.Background(), admin, cuadre.ID, review.NoteText("corregido"))
	require.NoError(t, err)
	require.Equal(t, review.StatusApproved, approved.Status)
	require.Len(t, repo.Reviews(), 2)
}

func TestCashierCannotReview(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	cuadre := recordSale(t, svc, monday, 1000, "LOTTO")

	_, err := svc.ApproveCuadre(context.Background(), cashier, cuadre.ID, review.NoteAbsent())
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.ApproveCuadre(context.Background(), supervisor, "missing", review.NoteAbsent())
	require.ErrorIs(t, err, domain.ErrCuadreNotFound)
}

func TestReviewerAdapterFeedsSession(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	cuadre := recordSale(t, svc, monday, 1000, "LOTTO")

	session := review.NewSession(cuadre.Snapshot(), svc.Reviewer(supervisor, cuadre.ID, cuadre.Status), false)
	require.NoError(t, session.Open(review.ActionReject))
	require.NoError(t, session.SetNote("sobrante sin justificar"))
	require.NoError(t, session.Confirm(context.Background()))

	stored, err := svc.GetCuadre(context.Background(), supervisor, cuadre.ID)
	require.NoError(t, err)
	require.Equal(t, review.StatusRejected, stored.Status)

	denied := review.NewSession(stored.Snapshot(), svc.Reviewer(cashier, cuadre.ID, stored.Status), false)
	require.NoError(t, denied.Open(review.ActionApprove))
	err = denied.Confirm(context.Background())
	require.ErrorIs(t, err, review.ErrReviewFailed)
	require.True(t, errors.Is(err, domain.ErrForbidden))
	require.Equal(t, review.StateChoosing, denied.State())
}

func TestStaleReviewerDecisionIsRefused(t *testing.T) {
	repo := memory.NewRepository()
	svc := domain.NewService(repo)
	ctx := context.Background()
	cuadre := recordSale(t, svc, monday, 1000, "LOTTO")
	other := domain.Actor{UserID: "enc-2", Role: domain.RoleEncargada}

	approving := review.NewSession(cuadre.Snapshot(), svc.Reviewer(supervisor, cuadre.ID, cuadre.Status), false)
	rejecting := review.NewSession(cuadre.Snapshot(), svc.Reviewer(other, cuadre.ID, cuadre.Status), false)

	require.NoError(t, approving.Open(review.ActionApprove))
	require.NoError(t, rejecting.Open(review.ActionReject))
	require.NoError(t, rejecting.SetNote("faltante en caja"))

	require.NoError(t, approving.Confirm(ctx))
	err := rejecting.Confirm(ctx)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.Equal(t, review.StateChoosing, rejecting.State())
	require.Equal(t, "faltante en caja", rejecting.Note())

	stored, err := svc.GetCuadre(ctx, supervisor, cuadre.ID)
	require.NoError(t, err)
	require.Equal(t, review.StatusApproved, stored.Status)
	require.Equal(t, supervisor.UserID, stored.ReviewedBy)
}

func TestDeclareClosingComputesDifference(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	ctx := context.Background()
	cuadre := recordSale(t, svc, monday, 10000, "LOTTO")
	_, _, _, err := svc.RecordTransaction(ctx, cashier, domain.RecordTransactionInput{
		AgencyID: cashier.AgencyID, Kind: domain.KindPrize, BusinessDate: monday, Currency: domain.CurrencyVES, Amount: 2000, SystemCode: "LOTTO",
	})
	require.NoError(t, err)
	_, _, _, err = svc.RecordTransaction(ctx, cashier, domain.RecordTransactionInput{
		AgencyID: cashier.AgencyID, Kind: domain.KindMobilePayment, BusinessDate: monday, Currency: domain.CurrencyVES, Amount: 3000, Reference: "0134-998",
	})
	require.NoError(t, err)

	closed, err := svc.DeclareClosing(ctx, cashier, cuadre.ID, domain.Amounts{VES: 4500})
	require.NoError(t, err)
	require.Equal(t, domain.Amounts{VES: 5000}, closed.Expected())
	require.Equal(t, &domain.Amounts{VES: -500}, closed.Difference())

	_, err = svc.DeclareClosing(ctx, cashier, cuadre.ID, domain.Amounts{VES: -1})
	require.ErrorIs(t, err, domain.ErrValidation)

	other := domain.Actor{UserID: "taq-2", Role: domain.RoleTaquillera, AgencyID: cashier.AgencyID}
	_, err = svc.DeclareClosing(ctx, other, cuadre.ID, domain.Amounts{VES: 1})
	require.ErrorIs(t, err, domain.ErrCuadreNotFound)
}

func TestWeeklySummaryAppliesCommissions(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	ctx := context.Background()

	recordSale(t, svc, monday, 100000, "LOTTO")
	recordSale(t, svc, monday.AddDate(0, 0, 2), 50000, "LOTTO")
	recordSale(t, svc, monday.AddDate(0, 0, 3), 20000, "TRIPLE")
	recordSale(t, svc, monday.AddDate(0, 0, 7), 99999, "LOTTO")

	_, err := svc.SetCommissionRate(ctx, admin, "lotto", 1000, 0)
	require.NoError(t, err)

	summary, err := svc.WeeklySummary(ctx, supervisor, cashier.AgencyID, monday.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Equal(t, monday, summary.WeekStart)
	require.Equal(t, 3, summary.Days)
	require.Equal(t, 3, summary.Pending)
	require.Equal(t, int64(170000), summary.Sales.VES)
	require.Len(t, summary.Systems, 2)
	require.Equal(t, "LOTTO", summary.Systems[0].SystemCode)
	require.Equal(t, int64(15000), summary.Systems[0].Commission.VES)
	require.Nil(t, summary.Systems[1].Rate)
	require.Equal(t, int64(15000), summary.Commission.VES)
}

func TestWeeklySummaryForCashierCountsOnlyTheirSales(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	ctx := context.Background()
	colleague := domain.Actor{UserID: "taq-2", Role: domain.RoleTaquillera, AgencyID: cashier.AgencyID}

	recordSale(t, svc, monday, 100000, "LOTTO")
	_, _, _, err := svc.RecordTransaction(ctx, colleague, domain.RecordTransactionInput{
		AgencyID: colleague.AgencyID, Kind: domain.KindSale, BusinessDate: monday, Currency: domain.CurrencyVES, Amount: 400000, SystemCode: "LOTTO",
	})
	require.NoError(t, err)
	_, err = svc.SetCommissionRate(ctx, admin, "LOTTO", 1000, 0)
	require.NoError(t, err)

	own, err := svc.WeeklySummary(ctx, cashier, cashier.AgencyID, monday)
	require.NoError(t, err)
	require.Equal(t, int64(100000), own.Sales.VES)
	require.Len(t, own.Systems, 1)
	require.Equal(t, int64(100000), own.Systems[0].Sales.VES)
	require.Equal(t, int64(10000), own.Commission.VES)

	agency, err := svc.WeeklySummary(ctx, supervisor, cashier.AgencyID, monday)
	require.NoError(t, err)
	require.Equal(t, int64(500000), agency.Sales.VES)
	require.Equal(t, int64(500000), agency.Systems[0].Sales.VES)
	require.Equal(t, int64(50000), agency.Commission.VES)
}

func TestDashboardDispatchByRole(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	ctx := context.Background()

	dash, err := svc.Dashboard(ctx, cashier)
	require.NoError(t, err)
	require.Equal(t, domain.DashboardCashier, dash.Kind)

	dash, err = svc.Dashboard(ctx, supervisor)
	require.NoError(t, err)
	require.Equal(t, domain.DashboardSupervisor, dash.Kind)

	dash, err = svc.Dashboard(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, domain.DashboardAdmin, dash.Kind)

	_, err = svc.Dashboard(ctx, domain.Actor{UserID: "x", Role: domain.Role("gerente")})
	require.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestDashboardCountsEveryPendingReview(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	ctx := context.Background()
	for day := 0; day < 55; day++ {
		recordSale(t, svc, monday.AddDate(0, 0, day), 1000, "LOTTO")
	}

	dash, err := svc.Dashboard(ctx, supervisor)
	require.NoError(t, err)
	require.Equal(t, 55, dash.PendingReviews)
	require.Len(t, dash.Cuadres, 50)

	dash, err = svc.Dashboard(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 55, dash.PendingReviews)
}

func TestUserAdministration(t *testing.T) {
	svc := domain.NewService(memory.NewRepository())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, supervisor, domain.CreateUserInput{Email: "a@b.com", FullName: "Ana", Role: domain.RoleTaquillera, AgencyID: "a"})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.CreateUser(ctx, admin, domain.CreateUserInput{Email: "a@b.com", FullName: "Ana", Role: domain.RoleTaquillera})
	require.ErrorIs(t, err, domain.ErrValidation)

	user, err := svc.CreateUser(ctx, admin, domain.CreateUserInput{Email: "Ana@Agencia.com", FullName: "Ana", Role: domain.RoleTaquillera, AgencyID: "a"})
	require.NoError(t, err)
	require.Equal(t, "ana@agencia.com", user.Email)
	require.True(t, user.Active)

	_, err = svc.CreateUser(ctx, admin, domain.CreateUserInput{Email: "ana@agencia.com", FullName: "Ana 2", Role: domain.RoleEncargada})
	require.ErrorIs(t, err, domain.ErrDuplicateUser)

	disabled, err := svc.SetUserActive(ctx, admin, user.ID, false)
	require.NoError(t, err)
	require.False(t, disabled.Active)

	_, err = svc.SetUserActive(ctx, admin, "missing", false)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRequestSync(t *testing.T) {
	repo := memory.NewRepository()
	svc := domain.NewService(repo)

	_, err := svc.RequestSync(context.Background(), cashier, "")
	require.ErrorIs(t, err, domain.ErrForbidden)

	req, err := svc.RequestSync(context.Background(), supervisor, "")
	require.NoError(t, err)
	require.Equal(t, "manual", req.Reason)
	require.Len(t, repo.SyncRequests(), 1)
}
