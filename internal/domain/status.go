package domain

import (
	"fmt"
	"strings"
)

// RequestKind distinguishes the two admin-reviewed request flows.
type RequestKind string

const (
	RequestDeposit    RequestKind = "DEPOSIT"
	RequestWithdrawal RequestKind = "WITHDRAWAL"
)

// ParseRequestKind rejects anything outside the closed set.
func ParseRequestKind(s string) (RequestKind, error) {
	switch k := RequestKind(normalize(s)); k {
	case RequestDeposit, RequestWithdrawal:
		return k, nil
	default:
		return "", fmt.Errorf("unknown request kind: %q", s)
	}
}

// RequestStatus is the lifecycle state of a deposit/withdrawal request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestCompleted RequestStatus = "COMPLETED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestSuspended RequestStatus = "SUSPENDED"
)

func ParseRequestStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(normalize(s)); st {
	case RequestPending, RequestCompleted, RequestRejected, RequestSuspended:
		return st, nil
	default:
		return "", fmt.Errorf("unknown request status: %q", s)
	}
}

// Terminal reports whether no further transition is permitted.
// Suspended is resumable and therefore not terminal.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestRejected
}

// TransferKind distinguishes peer gifts from peer loans.
type TransferKind string

const (
	TransferGift TransferKind = "GIFT"
	TransferLoan TransferKind = "LOAN"
)

func ParseTransferKind(s string) (TransferKind, error) {
	switch k := TransferKind(normalize(s)); k {
	case TransferGift, TransferLoan:
		return k, nil
	default:
		return "", fmt.Errorf("unknown transfer kind: %q", s)
	}
}

// TransferStatus is the lifecycle state of an escrowed transfer.
type TransferStatus string

const (
	TransferPending  TransferStatus = "PENDING"
	TransferAccepted TransferStatus = "ACCEPTED"
	TransferRejected TransferStatus = "REJECTED"
)

func ParseTransferStatus(s string) (TransferStatus, error) {
	switch st := TransferStatus(normalize(s)); st {
	case TransferPending, TransferAccepted, TransferRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown transfer status: %q", s)
	}
}

func (s TransferStatus) Terminal() bool {
	return s == TransferAccepted || s == TransferRejected
}

// ResolveAction is the recipient's decision on a pending transfer.
type ResolveAction string

const (
	ResolveAccept ResolveAction = "ACCEPT"
	ResolveReject ResolveAction = "REJECT"
)

func ParseResolveAction(s string) (ResolveAction, error) {
	switch a := ResolveAction(normalize(s)); a {
	case ResolveAccept, ResolveReject:
		return a, nil
	default:
		return "", fmt.Errorf("unknown resolve action: %q", s)
	}
}

// LoanStatus tracks a loan created from an accepted LOAN transfer.
// Nothing in this service moves a loan out of ACTIVE; settlement and
// default handling live in a separate back-office process.
type LoanStatus string

const (
	LoanActive    LoanStatus = "ACTIVE"
	LoanSettled   LoanStatus = "SETTLED"
	LoanDefaulted LoanStatus = "DEFAULTED"
)

func ParseLoanStatus(s string) (LoanStatus, error) {
	switch st := LoanStatus(normalize(s)); st {
	case LoanActive, LoanSettled, LoanDefaulted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown loan status: %q", s)
	}
}

// PaymentMethod is the mobile wallet used for deposits and withdrawals.
type PaymentMethod string

const (
	MethodVodafoneCash PaymentMethod = "VODAFONE_CASH"
	MethodEtisalatCash PaymentMethod = "ETISALAT_CASH"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(normalize(s)); m {
	case MethodVodafoneCash, MethodEtisalatCash:
		return m, nil
	default:
		return "", fmt.Errorf("unknown payment method: %q", s)
	}
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
