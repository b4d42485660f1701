package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/repository"
)

// RequestService owns the deposit and withdrawal request lifecycle.
//
// A withdrawal debits the user at creation so the requested funds are
// held for the whole review; approval is a status change only. A deposit
// touches no balance until an admin completes it.
type RequestService struct {
	store         QueryStore
	ledger        *Ledger
	audit         *AuditService
	minWithdrawal int64
}

func NewRequestService(store QueryStore, minWithdrawal int64) *RequestService {
	return &RequestService{
		store:         store,
		ledger:        NewLedger(),
		audit:         NewAuditService(),
		minWithdrawal: minWithdrawal,
	}
}

// CreateRequestInput holds the user-supplied parameters of a deposit or
// withdrawal request. Contact is the mobile wallet number the admin uses
// to move the real money.
type CreateRequestInput struct {
	UserID       uuid.UUID
	AmountMicros int64
	Method       domain.PaymentMethod
	Contact      string
}

func (in CreateRequestInput) validate(kind domain.RequestKind) error {
	if in.AmountMicros <= 0 {
		return fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if _, err := domain.ParsePaymentMethod(string(in.Method)); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	// Withdrawals need a payout destination. Deposits do not: the
	// operator publishes the wallet to pay into.
	if kind == domain.RequestWithdrawal && strings.TrimSpace(in.Contact) == "" {
		return fmt.Errorf("%w: contact is required", models.ErrValidation)
	}
	return nil
}

// CreateDeposit records a pending deposit request. No balance changes
// until an admin approves it.
func (s *RequestService) CreateDeposit(ctx context.Context, in CreateRequestInput) (*models.TransactionRequest, error) {
	if err := in.validate(domain.RequestDeposit); err != nil {
		return nil, err
	}

	req := &models.TransactionRequest{
		ID:      uuid.New(),
		UserID:  in.UserID,
		Kind:    domain.RequestDeposit,
		Amount:  in.AmountMicros,
		Method:  in.Method,
		Contact: strings.TrimSpace(in.Contact),
		Status:  domain.RequestPending,
	}
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetAccount(ctx, in.UserID); err != nil {
			return fmt.Errorf("deposit account: %w", err)
		}
		if err := q.InsertRequest(ctx, req); err != nil {
			return err
		}
		return s.audit.Write(ctx, q, "request", req.ID, &in.UserID, "deposit_created", "", string(domain.RequestPending))
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CreateWithdrawal records a pending withdrawal request and debits the
// amount immediately, holding it until the request is resolved.
func (s *RequestService) CreateWithdrawal(ctx context.Context, in CreateRequestInput) (*models.TransactionRequest, error) {
	if err := in.validate(domain.RequestWithdrawal); err != nil {
		return nil, err
	}
	if in.AmountMicros < s.minWithdrawal {
		return nil, fmt.Errorf("%w: minimum is %s", models.ErrBelowMinimum, domain.NewMoney(s.minWithdrawal))
	}

	req := &models.TransactionRequest{
		ID:      uuid.New(),
		UserID:  in.UserID,
		Kind:    domain.RequestWithdrawal,
		Amount:  in.AmountMicros,
		Method:  in.Method,
		Contact: strings.TrimSpace(in.Contact),
		Status:  domain.RequestPending,
	}
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		if err := s.ledger.Debit(ctx, q, in.UserID, in.AmountMicros); err != nil {
			return err
		}
		if err := q.InsertRequest(ctx, req); err != nil {
			return err
		}
		return s.audit.Write(ctx, q, "request", req.ID, &in.UserID, "withdrawal_created", "", string(domain.RequestPending))
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Approve completes a pending or suspended request. A deposit credits
// the user here; a withdrawal was already debited at creation and must
// not be debited again, so approval is the status flip alone.
func (s *RequestService) Approve(ctx context.Context, actorID, requestID uuid.UUID) (*models.TransactionRequest, error) {
	return s.resolve(ctx, actorID, requestID, domain.RequestCompleted, "")
}

// Reject declines a pending or suspended request. A held withdrawal is
// credited back in the same unit; a rejected deposit moves no money.
func (s *RequestService) Reject(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.TransactionRequest, error) {
	return s.resolve(ctx, actorID, requestID, domain.RequestRejected, reason)
}

func (s *RequestService) resolve(ctx context.Context, actorID, requestID uuid.UUID, next domain.RequestStatus, reason string) (*models.TransactionRequest, error) {
	var out *models.TransactionRequest
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		req, err := q.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}

		rows, err := q.UpdateRequestStatus(ctx, repository.UpdateRequestStatusParams{
			ID:       requestID,
			Status:   next,
			Reason:   reason,
			Resolved: true,
			Expected: expectedBefore(next),
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return models.ErrAlreadyResolved
		}

		switch {
		case next == domain.RequestCompleted && req.Kind == domain.RequestDeposit:
			if err := s.ledger.Credit(ctx, q, req.UserID, req.Amount); err != nil {
				return err
			}
		case next == domain.RequestRejected && req.Kind == domain.RequestWithdrawal:
			if err := s.ledger.Credit(ctx, q, req.UserID, req.Amount); err != nil {
				return err
			}
		}

		action := strings.ToLower(string(req.Kind)) + "_" + strings.ToLower(string(next))
		if err := s.audit.Write(ctx, q, "request", requestID, &actorID, action, string(req.Status), string(next)); err != nil {
			return err
		}

		out, err = q.GetRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Suspend parks a pending request with a reason. The held withdrawal
// funds stay held; the admin resolves the request later with Approve or
// Reject.
func (s *RequestService) Suspend(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.TransactionRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: suspension reason is required", models.ErrValidation)
	}

	var out *models.TransactionRequest
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		req, err := q.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}

		rows, err := q.UpdateRequestStatus(ctx, repository.UpdateRequestStatusParams{
			ID:       requestID,
			Status:   domain.RequestSuspended,
			Reason:   reason,
			Expected: expectedBefore(domain.RequestSuspended),
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return models.ErrAlreadyResolved
		}

		action := strings.ToLower(string(req.Kind)) + "_suspended"
		if err := s.audit.Write(ctx, q, "request", requestID, &actorID, action, string(req.Status), string(domain.RequestSuspended)); err != nil {
			return err
		}

		out, err = q.GetRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetRequest fetches one request by ID.
func (s *RequestService) GetRequest(ctx context.Context, requestID uuid.UUID) (*models.TransactionRequest, error) {
	return s.store.Queries().GetRequest(ctx, requestID)
}

// ListByUser returns the user's own requests, newest first.
func (s *RequestService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.TransactionRequest, error) {
	limit = clampLimit(limit)
	return s.store.Queries().ListRequestsByUser(ctx, userID, limit, max(offset, 0))
}

// List returns the admin review queue, optionally filtered by kind and
// status.
func (s *RequestService) List(ctx context.Context, p repository.ListRequestsParams) ([]models.TransactionRequest, error) {
	p.Limit = clampLimit(p.Limit)
	p.Offset = max(p.Offset, 0)
	return s.store.Queries().ListRequests(ctx, p)
}

func clampLimit(limit int32) int32 {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
