package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/repository"
)

func newWorkflowFixture(t *testing.T) (*repository.MemoryStore, *Workflow, *captureSink) {
	t.Helper()

	store := repository.NewMemoryStore()
	sink := &captureSink{}
	wf := NewWorkflow(store, NewRequestService(store, minWithdrawal), NewEscrowService(store), sink)
	return store, wf, sink
}

func TestWorkflowWithdrawalNotifications(t *testing.T) {
	store, wf, sink := newWorkflowFixture(t)
	ctx := context.Background()
	userID := seedAccount(t, store, domain.FromPounds(500).Amount)
	adminID := uuid.New()

	req, err := wf.SubmitWithdrawal(ctx, withdrawalInput(userID, 200))
	require.NoError(t, err)

	_, err = wf.ApproveRequest(ctx, adminID, req.ID)
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, "withdrawal_created", events[0].Kind)
	assert.Equal(t, userID, events[0].RecipientID)
	assert.Equal(t, req.ID, events[0].EntityID)
	assert.Contains(t, events[0].Message, "200.00 EGP")
	assert.Equal(t, "withdrawal_approved", events[1].Kind)
	assert.Equal(t, userID, events[1].RecipientID)
}

func TestWorkflowRejectNotificationCarriesReason(t *testing.T) {
	store, wf, sink := newWorkflowFixture(t)
	ctx := context.Background()
	userID := seedAccount(t, store, 0)

	req, err := wf.SubmitDeposit(ctx, withdrawalInput(userID, 250))
	require.NoError(t, err)

	_, err = wf.RejectRequest(ctx, uuid.New(), req.ID, "no matching wallet transfer")
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, "deposit_rejected", events[1].Kind)
	assert.Contains(t, events[1].Message, "no matching wallet transfer")
}

func TestWorkflowTransferEnrichment(t *testing.T) {
	store, wf, sink := newWorkflowFixture(t)
	ctx := context.Background()
	sender := seedAccount(t, store, domain.FromPounds(500).Amount)
	recipient := seedAccount(t, store, 0)

	require.NoError(t, store.Queries().UpsertProfile(ctx, &models.Profile{
		UserID:      sender,
		DisplayName: "Ramses",
		PhotoURL:    "https://cdn.example.com/ramses.png",
	}))

	tr, err := wf.SendTransfer(ctx, giftInput(sender, recipient, 200))
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "gift_received", events[0].Kind)
	assert.Equal(t, recipient, events[0].RecipientID)
	assert.Equal(t, "Ramses", events[0].SenderName)
	assert.Equal(t, "https://cdn.example.com/ramses.png", events[0].SenderPhoto)

	_, err = wf.ResolveTransfer(ctx, recipient, tr.ID, domain.ResolveAccept)
	require.NoError(t, err)

	events = sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, "gift_accepted", events[1].Kind)
	assert.Equal(t, sender, events[1].RecipientID)
	// The resolution event is enriched with the resolver's profile,
	// which is absent here.
	assert.Empty(t, events[1].SenderName)
}

func TestWorkflowErrorsPassThroughWithoutEvents(t *testing.T) {
	store, wf, sink := newWorkflowFixture(t)
	ctx := context.Background()
	userID := seedAccount(t, store, domain.FromPounds(50).Amount)

	_, err := wf.SubmitWithdrawal(ctx, withdrawalInput(userID, 200))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	_, err = wf.SubmitWithdrawal(ctx, withdrawalInput(userID, 10))
	require.ErrorIs(t, err, models.ErrBelowMinimum)

	require.Empty(t, sink.all())
}
