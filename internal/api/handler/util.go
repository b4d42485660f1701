package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/pharaohsclub/treasury/internal/api/middleware"
	"github.com/pharaohsclub/treasury/internal/api/problem"
	"github.com/pharaohsclub/treasury/internal/models"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (uuid.UUID, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, false, errors.New("missing user in auth context")
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid user_id in auth context")
	}

	return actorID, middleware.UserRoleFromContext(r.Context()) == "admin", nil
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrBelowMinimum):
		RespondError(w, r, http.StatusBadRequest, "request/below-minimum", err.Error())
	case errors.Is(err, models.ErrValidation):
		RespondError(w, r, http.StatusBadRequest, "request/validation", err.Error())
	case errors.Is(err, models.ErrInsufficientFunds):
		RespondError(w, r, http.StatusBadRequest, "funds/insufficient", "insufficient funds")
	case errors.Is(err, models.ErrAlreadyResolved):
		RespondError(w, r, http.StatusConflict, "workflow/already-resolved", "already resolved")
	case errors.Is(err, models.ErrNotAuthorized):
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
	case errors.Is(err, models.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "not found")
	default:
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		RespondError(w, r, http.StatusInternalServerError, "internal/transaction-aborted", "unexpected server error")
	}
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}

func parsePagination(r *http.Request) (limit, offset int32) {
	q := r.URL.Query()
	if n, err := strconv.ParseInt(q.Get("limit"), 10, 32); err == nil {
		limit = int32(n)
	}
	if n, err := strconv.ParseInt(q.Get("offset"), 10, 32); err == nil {
		offset = int32(n)
	}
	return limit, offset
}
