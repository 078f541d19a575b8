package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"vault-position-lab/internal/deposit"
	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/period"
	"vault-position-lab/internal/position"
)

// VaultResponse is the augmented vault with its derived limits.
type VaultResponse struct {
	Vault               *domain.Vault   `json:"vault"`
	TradeFiDepositLimit decimal.Decimal `json:"tradeFiDepositLimit"`
	MinimumDeposit      decimal.Decimal `json:"minimumDeposit"`
	Degraded            []string        `json:"degraded,omitempty"`
}

// handleGetVault handles GET /vaults/{vault}?account=
func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	vaultID := mux.Vars(r)["vault"]
	account := r.URL.Query().Get("account")

	v, aug, err := s.opts.Aggregator.Vault(r.Context(), vaultID, account)
	if err != nil {
		s.respondLookupError(w, "vault", err)
		return
	}

	respondJSON(w, http.StatusOK, VaultResponse{
		Vault:               v,
		TradeFiDepositLimit: aug.TradeFiDepositLimit,
		MinimumDeposit:      aug.MinimumDeposit,
		Degraded:            aug.Degraded,
	})
}

// PeriodResponse carries the periods and the phase they imply.
type PeriodResponse struct {
	VaultID string         `json:"vaultId"`
	Periods domain.Periods `json:"periods"`
	Phase   *domain.Phase  `json:"phase,omitempty"`
	Now     int64          `json:"now"`
}

// handleGetPeriod handles GET /vaults/{vault}/period
func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	vaultID := mux.Vars(r)["vault"]

	p, err := s.opts.Periods.Periods(r.Context(), s.opts.Registry.VaultIndex(vaultID))
	if err != nil {
		s.logger.Printf("periods %s: %v", vaultID, err)
		respondError(w, http.StatusBadGateway, ErrCodeUnavailable, "Failed to read vault periods")
		return
	}

	now := s.opts.Now().Unix()
	resp := PeriodResponse{VaultID: vaultID, Periods: p, Now: now}
	if phase, ok := period.PhaseOf(p, now); ok {
		resp.Phase = &phase
	}
	respondJSON(w, http.StatusOK, resp)
}

// DepositRequest is the body of POST /vaults/{vault}/deposit/validate.
// WalletBalance is in raw token units.
type DepositRequest struct {
	Account       string `json:"account"`
	Amount        string `json:"amount"`
	WalletBalance string `json:"walletBalance"`
}

// DepositResponse reports the form state for an amount.
type DepositResponse struct {
	Valid        bool            `json:"valid"`
	Message      string          `json:"message,omitempty"`
	LimitMessage string          `json:"limitMessage,omitempty"`
	MaxDeposit   decimal.Decimal `json:"maxDeposit"`
	Quote        *deposit.Quote  `json:"quote,omitempty"`
}

// handleValidateDeposit handles POST /vaults/{vault}/deposit/validate
func (s *Server) handleValidateDeposit(w http.ResponseWriter, r *http.Request) {
	vaultID := mux.Vars(r)["vault"]

	var req DepositRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body")
		return
	}
	wallet := decimal.Zero
	if req.WalletBalance != "" {
		var err error
		if wallet, err = decimal.NewFromString(req.WalletBalance); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "walletBalance must be a decimal string")
			return
		}
	}

	v, _, err := s.opts.Aggregator.Vault(r.Context(), vaultID, req.Account)
	if err != nil {
		s.respondLookupError(w, "vault", err)
		return
	}

	form := s.opts.Form
	resp := DepositResponse{
		Message:    form.Validate(req.Amount, wallet, v),
		MaxDeposit: form.MaxDeposit(wallet, v),
	}
	resp.Valid = resp.Message == ""
	if amount, err := decimal.NewFromString(req.Amount); err == nil {
		resp.LimitMessage = form.LimitExceeded(amount, v)
		if resp.Valid {
			if q, err := form.Quote(amount, v); err == nil {
				resp.Quote = &q
			} else {
				s.logger.Printf("quote %s: %v", vaultID, err)
			}
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondLookupError maps lookup failures to 404 or 502.
func (s *Server) respondLookupError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, position.ErrVaultNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	s.logger.Printf("%s lookup: %v", what, err)
	respondError(w, http.StatusBadGateway, ErrCodeUnavailable, "Failed to load "+what)
}
