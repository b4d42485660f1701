package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/repository"
)

func newEscrowFixture(t *testing.T) (*repository.MemoryStore, *EscrowService, uuid.UUID, uuid.UUID) {
	t.Helper()

	store := repository.NewMemoryStore()
	svc := NewEscrowService(store)
	sender := seedAccount(t, store, domain.FromPounds(500).Amount)
	recipient := seedAccount(t, store, domain.FromPounds(100).Amount)
	return store, svc, sender, recipient
}

func giftInput(sender, recipient uuid.UUID, pounds int64) InitiateTransferInput {
	return InitiateTransferInput{
		Kind:         domain.TransferGift,
		SenderID:     sender,
		RecipientID:  recipient,
		AmountMicros: domain.FromPounds(pounds).Amount,
	}
}

func TestInitiateHoldsSenderFunds(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	tr, err := svc.Initiate(ctx, giftInput(sender, recipient, 200))
	require.NoError(t, err)
	require.Equal(t, domain.TransferPending, tr.Status)

	// Sender pays at initiation; the recipient sees nothing yet.
	require.Equal(t, domain.FromPounds(300).Amount, balanceOf(t, store, sender))
	require.Equal(t, domain.FromPounds(100).Amount, balanceOf(t, store, recipient))
	require.Equal(t, domain.FromPounds(600).Amount, totalMoney(t, store, sender, recipient))
}

func TestInitiateInsufficientFunds(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	_, err := svc.Initiate(ctx, giftInput(sender, recipient, 600))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
	require.Equal(t, domain.FromPounds(500).Amount, balanceOf(t, store, sender))

	transfers, err := svc.ListByUser(ctx, sender, 10, 0)
	require.NoError(t, err)
	require.Empty(t, transfers)
}

func TestInitiateValidation(t *testing.T) {
	_, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	_, err := svc.Initiate(ctx, giftInput(sender, sender, 100))
	require.ErrorIs(t, err, models.ErrValidation)

	in := giftInput(sender, recipient, 100)
	in.AmountMicros = -5
	_, err = svc.Initiate(ctx, in)
	require.ErrorIs(t, err, models.ErrValidation)

	due := time.Now().Add(30 * 24 * time.Hour)
	in = giftInput(sender, recipient, 100)
	in.DueDate = &due
	_, err = svc.Initiate(ctx, in)
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Initiate(ctx, giftInput(sender, uuid.New(), 100))
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestAcceptGiftCreditsRecipient(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	tr, err := svc.Initiate(ctx, giftInput(sender, recipient, 200))
	require.NoError(t, err)

	accepted, err := svc.Resolve(ctx, recipient, tr.ID, domain.ResolveAccept)
	require.NoError(t, err)
	require.Equal(t, domain.TransferAccepted, accepted.Status)
	require.NotNil(t, accepted.ResolvedAt)

	require.Equal(t, domain.FromPounds(300).Amount, balanceOf(t, store, sender))
	require.Equal(t, domain.FromPounds(300).Amount, balanceOf(t, store, recipient))
	require.Equal(t, domain.FromPounds(600).Amount, totalMoney(t, store, sender, recipient))

	// Gifts never create loan records.
	loans, err := svc.ListLoansByUser(ctx, recipient)
	require.NoError(t, err)
	require.Empty(t, loans)
}

func TestRejectRefundsSender(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	tr, err := svc.Initiate(ctx, giftInput(sender, recipient, 200))
	require.NoError(t, err)

	rejected, err := svc.Resolve(ctx, recipient, tr.ID, domain.ResolveReject)
	require.NoError(t, err)
	require.Equal(t, domain.TransferRejected, rejected.Status)

	require.Equal(t, domain.FromPounds(500).Amount, balanceOf(t, store, sender))
	require.Equal(t, domain.FromPounds(100).Amount, balanceOf(t, store, recipient))
}

func TestOnlyRecipientMayResolve(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	tr, err := svc.Initiate(ctx, giftInput(sender, recipient, 200))
	require.NoError(t, err)

	// Neither the sender nor a bystander can resolve.
	_, err = svc.Resolve(ctx, sender, tr.ID, domain.ResolveAccept)
	require.ErrorIs(t, err, models.ErrNotAuthorized)
	_, err = svc.Resolve(ctx, uuid.New(), tr.ID, domain.ResolveAccept)
	require.ErrorIs(t, err, models.ErrNotAuthorized)

	require.Equal(t, domain.FromPounds(100).Amount, balanceOf(t, store, recipient))

	got, err := svc.GetTransfer(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TransferPending, got.Status)
}

func TestSecondResolveFails(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	tr, err := svc.Initiate(ctx, giftInput(sender, recipient, 200))
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, recipient, tr.ID, domain.ResolveAccept)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, recipient, tr.ID, domain.ResolveAccept)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
	_, err = svc.Resolve(ctx, recipient, tr.ID, domain.ResolveReject)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)

	// Credited exactly once, never refunded on top.
	require.Equal(t, domain.FromPounds(300).Amount, balanceOf(t, store, sender))
	require.Equal(t, domain.FromPounds(300).Amount, balanceOf(t, store, recipient))
}

func TestAcceptLoanCreatesActiveLoan(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	due := time.Now().Add(14 * 24 * time.Hour).UTC()
	in := InitiateTransferInput{
		Kind:         domain.TransferLoan,
		SenderID:     sender,
		RecipientID:  recipient,
		AmountMicros: domain.FromPounds(150).Amount,
		DueDate:      &due,
	}
	tr, err := svc.Initiate(ctx, in)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, recipient, tr.ID, domain.ResolveAccept)
	require.NoError(t, err)

	loans, err := svc.ListLoansByUser(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	loan := loans[0]
	require.Equal(t, tr.ID, loan.TransferID)
	require.Equal(t, sender, loan.LenderID)
	require.Equal(t, recipient, loan.BorrowerID)
	require.Equal(t, domain.FromPounds(150).Amount, loan.Amount)
	require.Equal(t, domain.LoanActive, loan.Status)
	require.NotNil(t, loan.DueDate)

	// The lender sees the same loan.
	lenderLoans, err := svc.ListLoansByUser(ctx, sender)
	require.NoError(t, err)
	require.Len(t, lenderLoans, 1)

	require.Equal(t, domain.FromPounds(350).Amount, balanceOf(t, store, sender))
	require.Equal(t, domain.FromPounds(250).Amount, balanceOf(t, store, recipient))
}

func TestLoanRequiresDueDate(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	_, err := svc.Initiate(ctx, InitiateTransferInput{
		Kind:         domain.TransferLoan,
		SenderID:     sender,
		RecipientID:  recipient,
		AmountMicros: domain.FromPounds(150).Amount,
	})
	require.ErrorIs(t, err, models.ErrValidation)

	// Nothing was held: the sender keeps the full opening balance.
	require.Equal(t, domain.FromPounds(500).Amount, balanceOf(t, store, sender))

	transfers, err := svc.ListByUser(ctx, sender, 10, 0)
	require.NoError(t, err)
	require.Empty(t, transfers)
}

func TestRejectedLoanCreatesNoLoan(t *testing.T) {
	_, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	due := time.Now().Add(7 * 24 * time.Hour).UTC()
	tr, err := svc.Initiate(ctx, InitiateTransferInput{
		Kind:         domain.TransferLoan,
		SenderID:     sender,
		RecipientID:  recipient,
		AmountMicros: domain.FromPounds(150).Amount,
		DueDate:      &due,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, recipient, tr.ID, domain.ResolveReject)
	require.NoError(t, err)

	loans, err := svc.ListLoansByUser(ctx, recipient)
	require.NoError(t, err)
	require.Empty(t, loans)
}

func TestConcurrentResolveSettlesOnce(t *testing.T) {
	store, svc, sender, recipient := newEscrowFixture(t)
	ctx := context.Background()

	tr, err := svc.Initiate(ctx, giftInput(sender, recipient, 200))
	require.NoError(t, err)

	actions := []domain.ResolveAction{
		domain.ResolveAccept, domain.ResolveReject,
		domain.ResolveAccept, domain.ResolveReject,
	}
	errs := make([]error, len(actions))
	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func(i int, action domain.ResolveAction) {
			defer wg.Done()
			_, errs[i] = svc.Resolve(ctx, recipient, tr.ID, action)
		}(i, action)
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

	// Whichever decision won, the total is conserved and the amount was
	// credited exactly once.
	require.Equal(t, domain.FromPounds(600).Amount, totalMoney(t, store, sender, recipient))
}
