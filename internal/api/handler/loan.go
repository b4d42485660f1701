package handler

import (
	"net/http"

	"github.com/pharaohsclub/treasury/internal/service"
)

// LoanHandler serves read access to loans created from accepted loan
// transfers.
type LoanHandler struct {
	escrow *service.EscrowService
}

func NewLoanHandler(escrow *service.EscrowService) *LoanHandler {
	return &LoanHandler{escrow: escrow}
}

// ListMine returns loans where the caller is lender or borrower.
func (h *LoanHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	loans, err := h.escrow.ListLoansByUser(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, loans)
}
