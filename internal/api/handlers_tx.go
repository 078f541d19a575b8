package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"vault-position-lab/internal/chainsync"
)

// ConfirmResponse reports a confirmed transaction.
type ConfirmResponse struct {
	Signature string `json:"signature"`
	Slot      int64  `json:"slot"`
	Confirmed bool   `json:"confirmed"`
}

// handleConfirm handles POST /transactions/{signature}/confirm. A confirmed
// transaction advances the block signal, which refreshes watched sessions.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sig := mux.Vars(r)["signature"]

	slot, ok, err := s.opts.Confirmer.ConfirmTransaction(r.Context(), sig)
	switch {
	case errors.Is(err, chainsync.ErrTransactionFailed):
		respondError(w, http.StatusUnprocessableEntity, ErrCodeTransactionFailed, err.Error())
		return
	case err != nil:
		s.logger.Printf("confirm %s: %v", sig, err)
		respondError(w, http.StatusBadGateway, ErrCodeUnavailable, "Failed to look up transaction")
		return
	case !ok:
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Transaction not found")
		return
	}

	respondJSON(w, http.StatusOK, ConfirmResponse{Signature: sig, Slot: slot, Confirmed: true})
}
