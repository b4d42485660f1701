package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
)

// Querier is the primitive query set shared by the Postgres store and the
// in-memory store. Every balance mutation and every conditional status
// write is a single call here so that services can compose them inside
// one RunInTx unit.
type Querier interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error)

	// CreditBalance adds amount to the balance and reports rows affected
	// (0 means the account does not exist).
	CreditBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	// DebitBalance subtracts amount only where balance >= amount and
	// reports rows affected (0 means missing account or insufficient
	// funds; the caller distinguishes via GetAccount).
	DebitBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)

	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error

	InsertRequest(ctx context.Context, req *models.TransactionRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.TransactionRequest, error)
	ListRequestsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.TransactionRequest, error)
	ListRequests(ctx context.Context, p ListRequestsParams) ([]models.TransactionRequest, error)
	// UpdateRequestStatus performs the compare-and-swap status write and
	// reports rows affected (0 means the precondition failed).
	UpdateRequestStatus(ctx context.Context, p UpdateRequestStatusParams) (int64, error)

	InsertTransfer(ctx context.Context, tr *models.EscrowTransfer) error
	GetTransfer(ctx context.Context, id uuid.UUID) (*models.EscrowTransfer, error)
	ListTransfersByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.EscrowTransfer, error)
	UpdateTransferStatus(ctx context.Context, p UpdateTransferStatusParams) (int64, error)

	InsertLoan(ctx context.Context, loan *models.Loan) error
	ListLoansByUser(ctx context.Context, userID uuid.UUID) ([]models.Loan, error)

	InsertAuditLog(ctx context.Context, p AuditLogParams) error

	// Reconciliation reads.
	MinAccountBalance(ctx context.Context) (int64, error)
	SumPendingWithdrawalHeld(ctx context.Context) (int64, error)
	SumPendingTransferHeld(ctx context.Context) (int64, error)
}

// Store provides access to the query set and transaction scoping.
type Store interface {
	Queries() Querier
	// RunInTx executes fn as one all-or-nothing unit. Infrastructure
	// failures of begin/commit are reported as ErrTransactionAborted.
	RunInTx(ctx context.Context, fn func(q Querier) error) error
}

// ListRequestsParams filters the admin request listing.
type ListRequestsParams struct {
	Kind   domain.RequestKind   // "" matches all kinds
	Status domain.RequestStatus // "" matches all statuses
	Limit  int32
	Offset int32
}

// UpdateRequestStatusParams is a conditional status write: the update
// applies only while the current status is one of Expected.
type UpdateRequestStatusParams struct {
	ID       uuid.UUID
	Status   domain.RequestStatus
	Reason   string
	Resolved bool // stamps resolved_at
	Expected []domain.RequestStatus
}

// UpdateTransferStatusParams is the transfer counterpart; Expected is
// always {PENDING} in practice but kept explicit for symmetry.
type UpdateTransferStatusParams struct {
	ID       uuid.UUID
	Status   domain.TransferStatus
	Expected []domain.TransferStatus
}

// AuditLogParams records one immutable state-transition entry.
type AuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  string
	NextState  string
	OccurredAt time.Time
}
