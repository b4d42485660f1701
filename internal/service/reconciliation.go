package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pharaohsclub/treasury/internal/observability"
)

// ReconciliationService verifies balance integrity invariants.
type ReconciliationService struct {
	store QueryStore
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run checks that no account balance is negative and reports the totals
// currently held by unresolved withdrawals and transfers. The checks are
// read-only; a violation is alerted, never auto-corrected.
func (s *ReconciliationService) Run(ctx context.Context) error {
	queries := s.store.Queries()

	minBalance, err := queries.MinAccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("run min balance query: %w", err)
	}
	if minBalance < 0 {
		observability.IncrementConservationViolation("negative_balance")
		zap.L().Error("CRITICAL: negative account balance detected", zap.Int64("min_balance", minBalance))
		return nil
	}

	withdrawalHeld, err := queries.SumPendingWithdrawalHeld(ctx)
	if err != nil {
		return fmt.Errorf("run withdrawal hold query: %w", err)
	}
	transferHeld, err := queries.SumPendingTransferHeld(ctx)
	if err != nil {
		return fmt.Errorf("run transfer hold query: %w", err)
	}
	if withdrawalHeld < 0 || transferHeld < 0 {
		observability.IncrementConservationViolation("negative_hold")
		zap.L().Error("CRITICAL: negative held amount detected",
			zap.Int64("withdrawal_held", withdrawalHeld),
			zap.Int64("transfer_held", transferHeld),
		)
		return nil
	}

	zap.L().Info("balances consistent",
		zap.Int64("withdrawal_held", withdrawalHeld),
		zap.Int64("transfer_held", transferHeld),
	)
	return nil
}
