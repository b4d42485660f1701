package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/repository"
)

var minWithdrawal = domain.FromPounds(100).Amount

func newRequestFixture(t *testing.T, balancePounds int64) (*repository.MemoryStore, *RequestService, uuid.UUID) {
	t.Helper()

	store := repository.NewMemoryStore()
	svc := NewRequestService(store, minWithdrawal)
	userID := seedAccount(t, store, domain.FromPounds(balancePounds).Amount)
	return store, svc, userID
}

func withdrawalInput(userID uuid.UUID, pounds int64) CreateRequestInput {
	return CreateRequestInput{
		UserID:       userID,
		AmountMicros: domain.FromPounds(pounds).Amount,
		Method:       domain.MethodVodafoneCash,
		Contact:      "01012345678",
	}
}

func TestCreateWithdrawalHoldsFunds(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 500)
	ctx := context.Background()

	req, err := svc.CreateWithdrawal(ctx, withdrawalInput(userID, 200))
	require.NoError(t, err)
	require.Equal(t, domain.RequestPending, req.Status)
	require.Equal(t, domain.RequestWithdrawal, req.Kind)

	// Funds move out at creation, not at approval.
	require.Equal(t, domain.FromPounds(300).Amount, balanceOf(t, store, userID))
	require.Equal(t, domain.FromPounds(500).Amount, totalMoney(t, store, userID))
}

func TestCreateWithdrawalBelowMinimum(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 500)

	_, err := svc.CreateWithdrawal(context.Background(), withdrawalInput(userID, 99))
	require.ErrorIs(t, err, models.ErrBelowMinimum)
	require.Equal(t, domain.FromPounds(500).Amount, balanceOf(t, store, userID))
}

func TestCreateWithdrawalInsufficientFunds(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 150)
	ctx := context.Background()

	_, err := svc.CreateWithdrawal(ctx, withdrawalInput(userID, 200))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	// The failed unit left nothing behind.
	require.Equal(t, domain.FromPounds(150).Amount, balanceOf(t, store, userID))
	requests, err := svc.ListByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, requests)
}

func TestApproveWithdrawalDoesNotDebitAgain(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 500)
	ctx := context.Background()
	adminID := uuid.New()

	req, err := svc.CreateWithdrawal(ctx, withdrawalInput(userID, 200))
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, adminID, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RequestCompleted, approved.Status)
	require.NotNil(t, approved.ResolvedAt)

	// Approval is a status flip; the hold from creation already paid it.
	require.Equal(t, domain.FromPounds(300).Amount, balanceOf(t, store, userID))
}

func TestRejectWithdrawalRefunds(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 500)
	ctx := context.Background()

	req, err := svc.CreateWithdrawal(ctx, withdrawalInput(userID, 200))
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, uuid.New(), req.ID, "wallet number unreachable")
	require.NoError(t, err)
	require.Equal(t, domain.RequestRejected, rejected.Status)
	require.Equal(t, "wallet number unreachable", rejected.Reason)

	require.Equal(t, domain.FromPounds(500).Amount, balanceOf(t, store, userID))
}

func TestSuspendKeepsHoldAndStaysResolvable(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 500)
	ctx := context.Background()
	adminID := uuid.New()

	req, err := svc.CreateWithdrawal(ctx, withdrawalInput(userID, 200))
	require.NoError(t, err)

	suspended, err := svc.Suspend(ctx, adminID, req.ID, "identity check pending")
	require.NoError(t, err)
	require.Equal(t, domain.RequestSuspended, suspended.Status)
	require.Equal(t, domain.FromPounds(300).Amount, balanceOf(t, store, userID))

	// A suspended request can still be rejected, refunding the hold.
	rejected, err := svc.Reject(ctx, adminID, req.ID, "identity check failed")
	require.NoError(t, err)
	require.Equal(t, domain.RequestRejected, rejected.Status)
	require.Equal(t, domain.FromPounds(500).Amount, balanceOf(t, store, userID))
}

func TestSuspendRequiresReason(t *testing.T) {
	_, svc, userID := newRequestFixture(t, 500)
	ctx := context.Background()

	req, err := svc.CreateWithdrawal(ctx, withdrawalInput(userID, 200))
	require.NoError(t, err)

	_, err = svc.Suspend(ctx, uuid.New(), req.ID, "  ")
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestDepositCreditsOnlyOnApproval(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 0)
	ctx := context.Background()

	in := withdrawalInput(userID, 250)
	req, err := svc.CreateDeposit(ctx, in)
	require.NoError(t, err)
	require.Equal(t, domain.RequestDeposit, req.Kind)

	// Nothing is held for a deposit before review.
	require.Equal(t, int64(0), balanceOf(t, store, userID))

	approved, err := svc.Approve(ctx, uuid.New(), req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RequestCompleted, approved.Status)
	require.Equal(t, domain.FromPounds(250).Amount, balanceOf(t, store, userID))
}

func TestRejectDepositMovesNoMoney(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 0)
	ctx := context.Background()

	req, err := svc.CreateDeposit(ctx, withdrawalInput(userID, 250))
	require.NoError(t, err)

	_, err = svc.Reject(ctx, uuid.New(), req.ID, "no matching wallet transfer")
	require.NoError(t, err)
	require.Equal(t, int64(0), balanceOf(t, store, userID))
}

func TestSecondResolutionFails(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 0)
	ctx := context.Background()
	adminID := uuid.New()

	req, err := svc.CreateDeposit(ctx, withdrawalInput(userID, 250))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, adminID, req.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, adminID, req.ID)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
	_, err = svc.Reject(ctx, adminID, req.ID, "late")
	require.ErrorIs(t, err, models.ErrAlreadyResolved)

	// The deposit was credited exactly once.
	require.Equal(t, domain.FromPounds(250).Amount, balanceOf(t, store, userID))
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	store, svc, userID := newRequestFixture(t, 0)
	ctx := context.Background()

	req, err := svc.CreateDeposit(ctx, withdrawalInput(userID, 250))
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(ctx, uuid.New(), req.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, models.ErrAlreadyResolved)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, domain.FromPounds(250).Amount, balanceOf(t, store, userID))
}

func TestCreateRequestValidation(t *testing.T) {
	_, svc, userID := newRequestFixture(t, 500)
	ctx := context.Background()

	in := withdrawalInput(userID, 200)
	in.AmountMicros = 0
	_, err := svc.CreateDeposit(ctx, in)
	require.ErrorIs(t, err, models.ErrValidation)

	in = withdrawalInput(userID, 200)
	in.Contact = ""
	_, err = svc.CreateWithdrawal(ctx, in)
	require.ErrorIs(t, err, models.ErrValidation)

	in = withdrawalInput(userID, 200)
	in.Method = "paypal"
	_, err = svc.CreateDeposit(ctx, in)
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestDepositContactOptional(t *testing.T) {
	_, svc, userID := newRequestFixture(t, 500)
	ctx := context.Background()

	in := withdrawalInput(userID, 200)
	in.Contact = ""
	req, err := svc.CreateDeposit(ctx, in)
	require.NoError(t, err)
	require.Equal(t, domain.RequestPending, req.Status)
	require.Empty(t, req.Contact)
}

func TestListRequestsFilters(t *testing.T) {
	_, svc, userID := newRequestFixture(t, 1000)
	ctx := context.Background()

	_, err := svc.CreateDeposit(ctx, withdrawalInput(userID, 100))
	require.NoError(t, err)
	w, err := svc.CreateWithdrawal(ctx, withdrawalInput(userID, 200))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, uuid.New(), w.ID)
	require.NoError(t, err)

	pending, err := svc.List(ctx, repository.ListRequestsParams{Status: domain.RequestPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.RequestDeposit, pending[0].Kind)

	withdrawals, err := svc.List(ctx, repository.ListRequestsParams{Kind: domain.RequestWithdrawal})
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.Equal(t, domain.RequestCompleted, withdrawals[0].Status)
}
