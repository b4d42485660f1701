package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/notify"
	"github.com/pharaohsclub/treasury/internal/repository"
)

func seedAccount(t *testing.T, store *repository.MemoryStore, balance int64) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	account := &models.Account{UserID: userID, Balance: balance}
	require.NoError(t, store.Queries().CreateAccount(context.Background(), account))
	return userID
}

func balanceOf(t *testing.T, store *repository.MemoryStore, userID uuid.UUID) int64 {
	t.Helper()

	account, err := store.Queries().GetAccount(context.Background(), userID)
	require.NoError(t, err)
	return account.Balance
}

// totalMoney sums spendable balances plus every amount currently held by
// an unresolved withdrawal or transfer. The system never creates or
// destroys money on its own, so this stays constant across gift and
// loan flows and across withdrawal rejections.
func totalMoney(t *testing.T, store *repository.MemoryStore, users ...uuid.UUID) int64 {
	t.Helper()

	ctx := context.Background()
	queries := store.Queries()
	var total int64
	for _, userID := range users {
		total += balanceOf(t, store, userID)
	}
	withdrawalHeld, err := queries.SumPendingWithdrawalHeld(ctx)
	require.NoError(t, err)
	transferHeld, err := queries.SumPendingTransferHeld(ctx)
	require.NoError(t, err)
	return total + withdrawalHeld + transferHeld
}

// captureSink records emitted events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *captureSink) Emit(_ context.Context, ev notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *captureSink) all() []notify.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Event(nil), s.events...)
}
