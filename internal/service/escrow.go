package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/repository"
)

// EscrowService moves money between peers through a held middle state.
// The sender is debited when the transfer is initiated and the amount is
// credited exactly once: to the recipient on accept, back to the sender
// on reject.
type EscrowService struct {
	store  QueryStore
	ledger *Ledger
	audit  *AuditService
}

func NewEscrowService(store QueryStore) *EscrowService {
	return &EscrowService{
		store:  store,
		ledger: NewLedger(),
		audit:  NewAuditService(),
	}
}

// InitiateTransferInput holds the parameters of a new gift or loan.
// DueDate is required for loans, rejected for gifts, and informational
// either way.
type InitiateTransferInput struct {
	Kind         domain.TransferKind
	SenderID     uuid.UUID
	RecipientID  uuid.UUID
	AmountMicros int64
	DueDate      *time.Time
}

func (in InitiateTransferInput) validate() error {
	if in.AmountMicros <= 0 {
		return fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if in.SenderID == in.RecipientID {
		return fmt.Errorf("%w: sender and recipient must differ", models.ErrValidation)
	}
	if _, err := domain.ParseTransferKind(string(in.Kind)); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if in.Kind == domain.TransferGift && in.DueDate != nil {
		return fmt.Errorf("%w: due date applies to loans only", models.ErrValidation)
	}
	if in.Kind == domain.TransferLoan && in.DueDate == nil {
		return fmt.Errorf("%w: loan requires a due date", models.ErrValidation)
	}
	return nil
}

// Initiate debits the sender and records a pending transfer holding the
// amount until the recipient resolves it.
func (s *EscrowService) Initiate(ctx context.Context, in InitiateTransferInput) (*models.EscrowTransfer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tr := &models.EscrowTransfer{
		ID:          uuid.New(),
		Kind:        in.Kind,
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		Amount:      in.AmountMicros,
		Status:      domain.TransferPending,
		DueDate:     in.DueDate,
	}
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetAccount(ctx, in.RecipientID); err != nil {
			return fmt.Errorf("recipient account: %w", err)
		}
		if err := s.ledger.Debit(ctx, q, in.SenderID, in.AmountMicros); err != nil {
			return err
		}
		if err := q.InsertTransfer(ctx, tr); err != nil {
			return err
		}
		action := strings.ToLower(string(in.Kind)) + "_initiated"
		return s.audit.Write(ctx, q, "transfer", tr.ID, &in.SenderID, action, "", string(domain.TransferPending))
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// Resolve applies the recipient's accept or reject decision. Only the
// recipient may resolve, and only once: a second resolve of either kind
// fails with ErrAlreadyResolved and moves no money.
func (s *EscrowService) Resolve(ctx context.Context, resolverID, transferID uuid.UUID, action domain.ResolveAction) (*models.EscrowTransfer, error) {
	if _, err := domain.ParseResolveAction(string(action)); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	var out *models.EscrowTransfer
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		tr, err := q.GetTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		if tr.RecipientID != resolverID {
			return models.ErrNotAuthorized
		}

		next := domain.TransferAccepted
		if action == domain.ResolveReject {
			next = domain.TransferRejected
		}

		rows, err := q.UpdateTransferStatus(ctx, repository.UpdateTransferStatusParams{
			ID:       transferID,
			Status:   next,
			Expected: []domain.TransferStatus{domain.TransferPending},
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return models.ErrAlreadyResolved
		}

		if next == domain.TransferAccepted {
			if err := s.ledger.Credit(ctx, q, tr.RecipientID, tr.Amount); err != nil {
				return err
			}
			if tr.Kind == domain.TransferLoan {
				loan := &models.Loan{
					ID:         uuid.New(),
					TransferID: tr.ID,
					LenderID:   tr.SenderID,
					BorrowerID: tr.RecipientID,
					Amount:     tr.Amount,
					DueDate:    tr.DueDate,
					Status:     domain.LoanActive,
				}
				if err := q.InsertLoan(ctx, loan); err != nil {
					return err
				}
			}
		} else {
			if err := s.ledger.Credit(ctx, q, tr.SenderID, tr.Amount); err != nil {
				return err
			}
		}

		auditAction := strings.ToLower(string(tr.Kind) + "_" + string(next))
		if err := s.audit.Write(ctx, q, "transfer", transferID, &resolverID, auditAction, string(domain.TransferPending), string(next)); err != nil {
			return err
		}

		out, err = q.GetTransfer(ctx, transferID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransfer fetches one transfer by ID.
func (s *EscrowService) GetTransfer(ctx context.Context, transferID uuid.UUID) (*models.EscrowTransfer, error) {
	return s.store.Queries().GetTransfer(ctx, transferID)
}

// ListByUser returns transfers the user sent or received, newest first.
func (s *EscrowService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.EscrowTransfer, error) {
	return s.store.Queries().ListTransfersByUser(ctx, userID, clampLimit(limit), max(offset, 0))
}

// ListLoansByUser returns loans where the user is lender or borrower.
func (s *EscrowService) ListLoansByUser(ctx context.Context, userID uuid.UUID) ([]models.Loan, error) {
	return s.store.Queries().ListLoansByUser(ctx, userID)
}
