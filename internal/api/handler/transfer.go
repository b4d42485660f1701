package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/service"
)

// TransferHandler serves peer gift and loan transfers.
type TransferHandler struct {
	workflow *service.Workflow
	escrow   *service.EscrowService
}

func NewTransferHandler(workflow *service.Workflow, escrow *service.EscrowService) *TransferHandler {
	return &TransferHandler{workflow: workflow, escrow: escrow}
}

type createTransferPayload struct {
	Kind         string     `json:"kind"`
	RecipientID  string     `json:"recipient_id"`
	AmountMicros int64      `json:"amount_micros"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

// Create initiates a transfer from the caller to the named recipient.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var payload createTransferPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	kind, err := domain.ParseTransferKind(payload.Kind)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-kind", err.Error())
		return
	}
	recipientID, err := uuid.Parse(payload.RecipientID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-recipient-id", "Invalid recipient_id")
		return
	}

	tr, err := h.workflow.SendTransfer(r.Context(), service.InitiateTransferInput{
		Kind:         kind,
		SenderID:     actorID,
		RecipientID:  recipientID,
		AmountMicros: payload.AmountMicros,
		DueDate:      payload.DueDate,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, tr)
}

type resolveTransferPayload struct {
	Action string `json:"action"`
}

// Resolve applies the caller's accept or reject decision to a pending
// transfer.
func (h *TransferHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	transferID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid transfer ID")
		return
	}

	var payload resolveTransferPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	action, err := domain.ParseResolveAction(payload.Action)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-action", err.Error())
		return
	}

	tr, err := h.workflow.ResolveTransfer(r.Context(), actorID, transferID, action)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tr)
}

// ListMine returns transfers the caller sent or received.
func (h *TransferHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	limit, offset := parsePagination(r)
	transfers, err := h.escrow.ListByUser(r.Context(), actorID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, transfers)
}

// Get returns one transfer; only its two parties may read it.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	transferID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid transfer ID")
		return
	}

	tr, err := h.escrow.GetTransfer(r.Context(), transferID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !isAdmin && tr.SenderID != actorID && tr.RecipientID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}
	RespondJSON(w, http.StatusOK, tr)
}
