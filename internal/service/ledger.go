package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/repository"
)

// Ledger performs the only balance mutations in the system. Both
// operations run against the caller's query handle so that a credit or
// debit always commits or rolls back with the status write that
// motivated it.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Credit adds amount to the account balance.
func (l *Ledger) Credit(ctx context.Context, q repository.Querier, userID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive, got %d", models.ErrValidation, amount)
	}
	rows, err := q.CreditBalance(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", userID, err)
	}
	if rows == 0 {
		return fmt.Errorf("credit %s: %w", userID, models.ErrNotFound)
	}
	return requireExactlyOne(rows, "credit balance")
}

// Debit subtracts amount from the account balance. The check and the
// write are one conditional statement, so two racing debits can never
// both succeed against the same funds.
func (l *Ledger) Debit(ctx context.Context, q repository.Querier, userID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit amount must be positive, got %d", models.ErrValidation, amount)
	}
	rows, err := q.DebitBalance(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", userID, err)
	}
	if rows == 1 {
		return nil
	}

	// Zero rows is either a missing account or not enough balance.
	if _, err := q.GetAccount(ctx, userID); err != nil {
		return fmt.Errorf("debit %s: %w", userID, err)
	}
	return models.ErrInsufficientFunds
}
