package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
	"github.com/pharaohsclub/treasury/internal/notify"
	"github.com/pharaohsclub/treasury/internal/observability"
)

// Workflow is the single entry point handlers use for money movements.
// It routes each call to the request or escrow service, counts the
// outcome, and emits the user-facing notification after the money side
// has committed. Notification delivery is best effort and never affects
// the result of the operation itself.
type Workflow struct {
	store    QueryStore
	requests *RequestService
	escrow   *EscrowService
	sink     notify.Sink
}

func NewWorkflow(store QueryStore, requests *RequestService, escrow *EscrowService, sink notify.Sink) *Workflow {
	if sink == nil {
		sink = notify.NopSink{}
	}
	return &Workflow{
		store:    store,
		requests: requests,
		escrow:   escrow,
		sink:     sink,
	}
}

// SubmitDeposit records a deposit request for admin review.
func (w *Workflow) SubmitDeposit(ctx context.Context, in CreateRequestInput) (*models.TransactionRequest, error) {
	req, err := w.requests.CreateDeposit(ctx, in)
	if err != nil {
		observability.IncrementWorkflowOperation("deposit_submit", outcomeOf(err))
		return nil, err
	}
	observability.IncrementWorkflowOperation("deposit_submit", "ok")
	w.emit(ctx, notify.Event{
		RecipientID: req.UserID,
		Kind:        "deposit_created",
		Message:     fmt.Sprintf("Your deposit request of %s was received and is under review", domain.NewMoney(req.Amount)),
		EntityID:    req.ID,
		Amount:      domain.NewMoney(req.Amount).String(),
	})
	return req, nil
}

// SubmitWithdrawal records a withdrawal request and holds its funds.
func (w *Workflow) SubmitWithdrawal(ctx context.Context, in CreateRequestInput) (*models.TransactionRequest, error) {
	req, err := w.requests.CreateWithdrawal(ctx, in)
	if err != nil {
		observability.IncrementWorkflowOperation("withdrawal_submit", outcomeOf(err))
		return nil, err
	}
	observability.IncrementWorkflowOperation("withdrawal_submit", "ok")
	w.emit(ctx, notify.Event{
		RecipientID: req.UserID,
		Kind:        "withdrawal_created",
		Message:     fmt.Sprintf("Your withdrawal request of %s was received and is under review", domain.NewMoney(req.Amount)),
		EntityID:    req.ID,
		Amount:      domain.NewMoney(req.Amount).String(),
	})
	return req, nil
}

// ApproveRequest completes a request on behalf of an admin.
func (w *Workflow) ApproveRequest(ctx context.Context, actorID, requestID uuid.UUID) (*models.TransactionRequest, error) {
	req, err := w.requests.Approve(ctx, actorID, requestID)
	if err != nil {
		observability.IncrementWorkflowOperation("request_approve", outcomeOf(err))
		return nil, err
	}
	observability.IncrementWorkflowOperation("request_approve", "ok")
	w.emitRequestResolved(ctx, req, "approved")
	return req, nil
}

// RejectRequest declines a request; a held withdrawal is refunded.
func (w *Workflow) RejectRequest(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.TransactionRequest, error) {
	req, err := w.requests.Reject(ctx, actorID, requestID, reason)
	if err != nil {
		observability.IncrementWorkflowOperation("request_reject", outcomeOf(err))
		return nil, err
	}
	observability.IncrementWorkflowOperation("request_reject", "ok")
	w.emitRequestResolved(ctx, req, "rejected")
	return req, nil
}

// SuspendRequest parks a request with a reason pending investigation.
func (w *Workflow) SuspendRequest(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.TransactionRequest, error) {
	req, err := w.requests.Suspend(ctx, actorID, requestID, reason)
	if err != nil {
		observability.IncrementWorkflowOperation("request_suspend", outcomeOf(err))
		return nil, err
	}
	observability.IncrementWorkflowOperation("request_suspend", "ok")
	w.emit(ctx, notify.Event{
		RecipientID: req.UserID,
		Kind:        "request_suspended",
		Message:     fmt.Sprintf("Your %s request of %s was suspended: %s", lower(string(req.Kind)), domain.NewMoney(req.Amount), req.Reason),
		EntityID:    req.ID,
		Amount:      domain.NewMoney(req.Amount).String(),
	})
	return req, nil
}

// SendTransfer initiates a gift or loan and notifies the recipient with
// the sender's display profile when one exists.
func (w *Workflow) SendTransfer(ctx context.Context, in InitiateTransferInput) (*models.EscrowTransfer, error) {
	tr, err := w.escrow.Initiate(ctx, in)
	if err != nil {
		observability.IncrementWorkflowOperation("transfer_send", outcomeOf(err))
		return nil, err
	}
	observability.IncrementWorkflowOperation("transfer_send", "ok")

	ev := notify.Event{
		RecipientID: tr.RecipientID,
		Kind:        lower(string(tr.Kind)) + "_received",
		Message:     fmt.Sprintf("You received a %s offer of %s", lower(string(tr.Kind)), domain.NewMoney(tr.Amount)),
		EntityID:    tr.ID,
		Amount:      domain.NewMoney(tr.Amount).String(),
	}
	w.enrichSender(ctx, &ev, tr.SenderID)
	w.emit(ctx, ev)
	return tr, nil
}

// ResolveTransfer applies the recipient's decision and notifies the
// sender of the outcome.
func (w *Workflow) ResolveTransfer(ctx context.Context, resolverID, transferID uuid.UUID, action domain.ResolveAction) (*models.EscrowTransfer, error) {
	tr, err := w.escrow.Resolve(ctx, resolverID, transferID, action)
	if err != nil {
		observability.IncrementWorkflowOperation("transfer_resolve", outcomeOf(err))
		return nil, err
	}
	observability.IncrementWorkflowOperation("transfer_resolve", "ok")

	verb := "accepted"
	if tr.Status == domain.TransferRejected {
		verb = "declined"
	}
	ev := notify.Event{
		RecipientID: tr.SenderID,
		Kind:        lower(string(tr.Kind) + "_" + string(tr.Status)),
		Message:     fmt.Sprintf("Your %s of %s was %s", lower(string(tr.Kind)), domain.NewMoney(tr.Amount), verb),
		EntityID:    tr.ID,
		Amount:      domain.NewMoney(tr.Amount).String(),
	}
	w.enrichSender(ctx, &ev, tr.RecipientID)
	w.emit(ctx, ev)
	return tr, nil
}

func (w *Workflow) emitRequestResolved(ctx context.Context, req *models.TransactionRequest, verb string) {
	msg := fmt.Sprintf("Your %s request of %s was %s", lower(string(req.Kind)), domain.NewMoney(req.Amount), verb)
	if verb == "rejected" && req.Reason != "" {
		msg += ": " + req.Reason
	}
	w.emit(ctx, notify.Event{
		RecipientID: req.UserID,
		Kind:        lower(string(req.Kind)) + "_" + verb,
		Message:     msg,
		EntityID:    req.ID,
		Amount:      domain.NewMoney(req.Amount).String(),
	})
}

// enrichSender attaches the counterparty's display profile. A missing
// profile is not an error; the event just goes out unenriched.
func (w *Workflow) enrichSender(ctx context.Context, ev *notify.Event, userID uuid.UUID) {
	profile, err := w.store.Queries().GetProfile(ctx, userID)
	if err != nil {
		return
	}
	ev.SenderName = profile.DisplayName
	ev.SenderPhoto = profile.PhotoURL
}

func (w *Workflow) emit(ctx context.Context, ev notify.Event) {
	if err := w.sink.Emit(ctx, ev); err != nil {
		observability.IncrementNotificationEmit("error")
		zap.L().Warn("notification emit failed",
			zap.Error(err),
			zap.String("kind", ev.Kind),
			zap.String("recipient_id", ev.RecipientID.String()),
		)
		return
	}
	observability.IncrementNotificationEmit("ok")
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isAny(err, models.ErrBelowMinimum, models.ErrValidation):
		return "validation"
	case isAny(err, models.ErrInsufficientFunds):
		return "insufficient_funds"
	case isAny(err, models.ErrAlreadyResolved):
		return "already_resolved"
	case isAny(err, models.ErrNotAuthorized):
		return "not_authorized"
	case isAny(err, models.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
