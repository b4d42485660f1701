package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/repository"
)

func TestProvisionIsRepeatable(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewAccountService(store)
	ledger := NewLedger()
	ctx := context.Background()
	userID := uuid.New()

	account, err := svc.Provision(ctx, userID, "Cleo", "")
	require.NoError(t, err)
	require.Equal(t, int64(0), account.Balance)

	require.NoError(t, ledger.Credit(ctx, store.Queries(), userID, domain.FromPounds(75).Amount))

	// Re-provisioning refreshes the profile but keeps the balance.
	_, err = svc.Provision(ctx, userID, "Cleopatra", "https://cdn.example.com/cleo.png")
	require.NoError(t, err)
	require.Equal(t, domain.FromPounds(75).Amount, balanceOf(t, store, userID))

	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "Cleopatra", profile.DisplayName)
}
