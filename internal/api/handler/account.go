package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/service"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Provision creates the caller's account on first login and refreshes
// the directory profile on later calls. Admins may provision on behalf
// of another user.
func (h *AccountHandler) Provision(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var payload struct {
		UserID      string `json:"user_id,omitempty"`
		DisplayName string `json:"display_name"`
		PhotoURL    string `json:"photo_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	userID := actorID
	if payload.UserID != "" {
		userID, err = uuid.Parse(payload.UserID)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user_id")
			return
		}
		if !isAdmin && userID != actorID {
			RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
			return
		}
	}

	account, err := h.svc.Provision(r.Context(), userID, payload.DisplayName, payload.PhotoURL)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, account)
}

// GetBalance returns the caller's account; admins may read any account.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	userID := actorID
	if idStr := chi.URLParam(r, "id"); idStr != "" && idStr != "me" {
		userID, err = uuid.Parse(idStr)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid account ID")
			return
		}
	}
	if !isAdmin && userID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	account, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, account)
}

// GetProfile returns a user's public directory profile.
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user ID")
		return
	}
	profile, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, profile)
}
