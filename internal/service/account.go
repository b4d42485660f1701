package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/repository"
)

// AccountService provisions accounts and serves balance and profile
// reads. Balances are never written here; only the ledger mutates them.
type AccountService struct {
	store QueryStore
}

func NewAccountService(store QueryStore) *AccountService {
	return &AccountService{store: store}
}

// Provision creates a zero-balance account with its directory profile.
// Calling it again for the same user refreshes the profile and leaves
// the existing balance untouched.
func (s *AccountService) Provision(ctx context.Context, userID uuid.UUID, displayName, photoURL string) (*models.Account, error) {
	var account *models.Account
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		existing, err := q.GetAccount(ctx, userID)
		switch {
		case err == nil:
			account = existing
		case errors.Is(err, models.ErrNotFound):
			account = &models.Account{UserID: userID}
			if err := q.CreateAccount(ctx, account); err != nil {
				return err
			}
		default:
			return err
		}

		if strings.TrimSpace(displayName) == "" {
			return nil
		}
		return q.UpsertProfile(ctx, &models.Profile{
			UserID:      userID,
			DisplayName: strings.TrimSpace(displayName),
			PhotoURL:    strings.TrimSpace(photoURL),
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetBalance returns the account with its current balance.
func (s *AccountService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return s.store.Queries().GetAccount(ctx, userID)
}

// GetProfile returns the user's directory profile.
func (s *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return s.store.Queries().GetProfile(ctx, userID)
}
