package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/repository"
	"github.com/pharaohsclub/treasury/internal/service"
)

// RequestHandler serves deposit/withdrawal submission for users and the
// review queue actions for admins.
type RequestHandler struct {
	workflow *service.Workflow
	requests *service.RequestService
}

func NewRequestHandler(workflow *service.Workflow, requests *service.RequestService) *RequestHandler {
	return &RequestHandler{workflow: workflow, requests: requests}
}

type createRequestPayload struct {
	AmountMicros int64  `json:"amount_micros"`
	Method       string `json:"method"`
	Contact      string `json:"contact"`
}

func (h *RequestHandler) decodeCreate(w http.ResponseWriter, r *http.Request) (service.CreateRequestInput, bool) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return service.CreateRequestInput{}, false
	}

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return service.CreateRequestInput{}, false
	}

	method, err := domain.ParsePaymentMethod(payload.Method)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-method", err.Error())
		return service.CreateRequestInput{}, false
	}

	return service.CreateRequestInput{
		UserID:       actorID,
		AmountMicros: payload.AmountMicros,
		Method:       method,
		Contact:      payload.Contact,
	}, true
}

// CreateDeposit submits a deposit request for review.
func (h *RequestHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}
	req, err := h.workflow.SubmitDeposit(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, req)
}

// CreateWithdrawal submits a withdrawal request; the amount is held
// immediately.
func (h *RequestHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}
	req, err := h.workflow.SubmitWithdrawal(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, req)
}

// ListMine returns the caller's own requests.
func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	limit, offset := parsePagination(r)
	requests, err := h.requests.ListByUser(r.Context(), actorID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, requests)
}

// Get returns one request; users may only read their own.
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid request ID")
		return
	}

	req, err := h.requests.GetRequest(r.Context(), requestID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !isAdmin && req.UserID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}
	RespondJSON(w, http.StatusOK, req)
}

// List returns the admin review queue with optional kind and status
// filters.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	params := repository.ListRequestsParams{}
	if v := r.URL.Query().Get("kind"); v != "" {
		kind, err := domain.ParseRequestKind(v)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-kind", err.Error())
			return
		}
		params.Kind = kind
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := domain.ParseRequestStatus(v)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-status", err.Error())
			return
		}
		params.Status = status
	}
	params.Limit, params.Offset = parsePagination(r)

	requests, err := h.requests.List(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, requests)
}

type resolveRequestPayload struct {
	Reason string `json:"reason"`
}

// Approve completes a request.
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actorID, requestID, ok := h.adminTarget(w, r)
	if !ok {
		return
	}
	req, err := h.workflow.ApproveRequest(r.Context(), actorID, requestID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, req)
}

// Reject declines a request, refunding a held withdrawal.
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actorID, requestID, ok := h.adminTarget(w, r)
	if !ok {
		return
	}
	var payload resolveRequestPayload
	_ = json.NewDecoder(r.Body).Decode(&payload)

	req, err := h.workflow.RejectRequest(r.Context(), actorID, requestID, payload.Reason)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, req)
}

// Suspend parks a pending request with a reason.
func (h *RequestHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	actorID, requestID, ok := h.adminTarget(w, r)
	if !ok {
		return
	}
	var payload resolveRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	req, err := h.workflow.SuspendRequest(r.Context(), actorID, requestID, payload.Reason)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, req)
}

func (h *RequestHandler) adminTarget(w http.ResponseWriter, r *http.Request) (actorID, requestID uuid.UUID, ok bool) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	requestID, err = uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid request ID")
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, requestID, true
}
