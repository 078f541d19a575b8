package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"vault-position-lab/internal/cache"
	"vault-position-lab/internal/domain"
)

// handleGetPosition handles GET /accounts/{account}/vaults/{vault}/position.
// The view is served from the cache for the current slot when present.
func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, vaultID := vars["account"], vars["vault"]
	slot := s.opts.Signal.Last()

	if s.opts.Cache != nil {
		v, err := s.opts.Cache.Get(r.Context(), account, vaultID, slot)
		switch {
		case err == nil:
			w.Header().Set("X-Cache", "HIT")
			respondJSON(w, http.StatusOK, v)
			return
		case !errors.Is(err, cache.ErrMiss):
			s.logger.Printf("cache get %s/%s: %v", account, vaultID, err)
		}
	}

	v, err := s.opts.Aggregator.Aggregate(r.Context(), account, vaultID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.respondLookupError(w, "position", err)
		return
	}
	v.Slot = slot

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Put(r.Context(), v); err != nil {
			s.logger.Printf("cache put %s/%s: %v", account, vaultID, err)
		}
		w.Header().Set("X-Cache", "MISS")
	}
	respondJSON(w, http.StatusOK, v)
}

// WatchResponse acknowledges a watch request.
type WatchResponse struct {
	Account    string `json:"account"`
	VaultID    string `json:"vaultId"`
	Created    bool   `json:"created"`
	Generation uint64 `json:"generation"`
}

// handleWatch handles POST /accounts/{account}/vaults/{vault}/watch
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, vaultID := vars["account"], vars["vault"]

	session, created := s.opts.Watcher.Watch(account, vaultID)
	if session == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Server is shutting down")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	respondJSON(w, status, WatchResponse{
		Account:    account,
		VaultID:    vaultID,
		Created:    created,
		Generation: session.Generation(),
	})
}

// handleUnwatch handles DELETE /accounts/{account}/vaults/{vault}/watch.
// The session is stopped and its cached views are dropped.
func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, vaultID := vars["account"], vars["vault"]

	if !s.opts.Watcher.Unwatch(account, vaultID) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Pair is not watched")
		return
	}
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(r.Context(), account, vaultID); err != nil {
			s.logger.Printf("cache invalidate %s/%s: %v", account, vaultID, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// SnapshotResponse is a stored snapshot.
type SnapshotResponse struct {
	VaultID         string          `json:"vaultId"`
	Slot            int64           `json:"slot"`
	BalanceShares   decimal.Decimal `json:"balanceShares"`
	BalancePosition decimal.Decimal `json:"balancePosition"`
	BalanceEarned   string          `json:"balanceEarned"`
	Phase           *string         `json:"phase,omitempty"`
	CapturedAt      int64           `json:"capturedAt"`
}

// handleGetSnapshots handles GET /accounts/{account}/snapshots
func (s *Server) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	snaps, err := s.opts.Snapshots.ListByAccount(r.Context(), account)
	if err != nil {
		s.logger.Printf("list snapshots %s: %v", account, err)
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to list snapshots")
		return
	}

	out := make([]SnapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snapshotResponse(snap))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account":   account,
		"snapshots": out,
	})
}

func snapshotResponse(snap *domain.PositionSnapshot) SnapshotResponse {
	return SnapshotResponse{
		VaultID:         snap.VaultID,
		Slot:            snap.Slot,
		BalanceShares:   snap.BalanceShares,
		BalancePosition: snap.BalancePosition,
		BalanceEarned:   snap.BalanceEarned,
		Phase:           snap.Phase,
		CapturedAt:      snap.CapturedAt,
	}
}

// handleGetTotals handles GET /accounts/{account}/totals
func (s *Server) handleGetTotals(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	positions, err := s.opts.Aggregator.Positions(r.Context(), account)
	if err != nil {
		s.logger.Printf("positions %s: %v", account, err)
		respondError(w, http.StatusBadGateway, ErrCodeUnavailable, "Failed to load positions")
		return
	}
	totals, err := s.opts.Aggregator.Totals(r.Context(), account, positions)
	if err != nil {
		s.logger.Printf("totals %s: %v", account, err)
		respondError(w, http.StatusBadGateway, ErrCodeUnavailable, "Failed to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, totals)
}
