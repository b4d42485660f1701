package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/domain"
)

// Account holds a user's spendable balance in EGP micros.
// The balance is only ever changed through ledger credits and debits;
// callers never write it directly.
type Account struct {
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the read-only display metadata kept by the directory store.
// It is consulted only to enrich notification payloads.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
}

// TransactionRequest is an admin-reviewed deposit or withdrawal.
// A withdrawal holds its funds (already debited) from creation;
// a deposit holds nothing until it is completed.
type TransactionRequest struct {
	ID         uuid.UUID            `json:"id"`
	UserID     uuid.UUID            `json:"user_id"`
	Kind       domain.RequestKind   `json:"kind"`
	Amount     int64                `json:"amount"`
	Method     domain.PaymentMethod `json:"method"`
	Contact    string               `json:"contact"`
	Status     domain.RequestStatus `json:"status"`
	Reason     string               `json:"reason,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	ResolvedAt *time.Time           `json:"resolved_at,omitempty"`
}

// EscrowTransfer is a peer gift or loan. The amount is debited from the
// sender at initiation and conserved: it is credited exactly once, to the
// recipient on accept or back to the sender on reject.
type EscrowTransfer struct {
	ID          uuid.UUID             `json:"id"`
	Kind        domain.TransferKind   `json:"kind"`
	SenderID    uuid.UUID             `json:"sender_id"`
	RecipientID uuid.UUID             `json:"recipient_id"`
	Amount      int64                 `json:"amount"`
	Status      domain.TransferStatus `json:"status"`
	DueDate     *time.Time            `json:"due_date,omitempty"` // loans only, informational
	CreatedAt   time.Time             `json:"created_at"`
	ResolvedAt  *time.Time            `json:"resolved_at,omitempty"`
}

// Loan is created when a LOAN transfer is accepted. This service only
// ever creates loans in ACTIVE state.
type Loan struct {
	ID         uuid.UUID         `json:"id"`
	TransferID uuid.UUID         `json:"transfer_id"`
	LenderID   uuid.UUID         `json:"lender_id"`
	BorrowerID uuid.UUID         `json:"borrower_id"`
	Amount     int64             `json:"amount"`
	DueDate    *time.Time        `json:"due_date,omitempty"`
	Status     domain.LoanStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}
