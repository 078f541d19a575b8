// Package api exposes position views, vault data and deposit checks over HTTP.
package api

import (
	"context"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"vault-position-lab/internal/chainsync"
	"vault-position-lab/internal/config"
	"vault-position-lab/internal/deposit"
	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/observability"
	"vault-position-lab/internal/position"
	"vault-position-lab/internal/storage"
)

// Service interfaces for dependency injection and testing

// Aggregator builds vaults, views and totals.
type Aggregator interface {
	Vault(ctx context.Context, vaultID, account string) (*domain.Vault, position.Augmentation, error)
	Aggregate(ctx context.Context, account, vaultID string) (*domain.PositionView, error)
	Positions(ctx context.Context, account string) ([]domain.VaultPosition, error)
	Totals(ctx context.Context, account string, positions []domain.VaultPosition) (domain.Totals, error)
}

// PeriodSource reads trade-finance periods by vault index.
type PeriodSource interface {
	Periods(ctx context.Context, index uint64) (domain.Periods, error)
}

// Watcher starts and stops background sessions.
type Watcher interface {
	Watch(account, vaultID string) (*position.Session, bool)
	Unwatch(account, vaultID string) bool
}

// Confirmer looks up the slot of a submitted transaction.
type Confirmer interface {
	ConfirmTransaction(ctx context.Context, signature string) (int64, bool, error)
}

// ViewCache stores views keyed by slot.
type ViewCache interface {
	Get(ctx context.Context, account, vaultID string, slot int64) (*domain.PositionView, error)
	Put(ctx context.Context, v *domain.PositionView) error
	Invalidate(ctx context.Context, account, vaultID string) error
	Ping(ctx context.Context) error
}

// Options wires the server. Cache is optional.
type Options struct {
	Config     config.ServerConfig
	Registry   *config.Registry
	Aggregator Aggregator
	Periods    PeriodSource
	Watcher    Watcher
	Confirmer  Confirmer
	Cache      ViewCache
	Snapshots  storage.PositionSnapshotStore
	Form       *deposit.Form
	Signal     *chainsync.Signal
	Now        func() time.Time
	Logger     *log.Logger
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	opts       Options
	logger     *log.Logger
}

// NewServer creates a new API server instance.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Signal == nil {
		opts.Signal = chainsync.NewSignal()
	}
	if opts.Form == nil && opts.Registry != nil {
		opts.Form = deposit.NewForm(deposit.Options{
			MinimumDeposit:     opts.Registry.MinimumDeposit,
			MaxPersonalDeposit: opts.Registry.MaxPersonalDeposit,
		})
	}

	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
		logger: opts.Logger,
	}
	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	var limiter *rate.Limiter
	if rps := s.opts.Config.RateLimit; rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
	}

	// Order matters: rejected requests are still logged and counted.
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(recoveryMiddleware(s.logger))
	s.router.Use(rateLimitMiddleware(limiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.opts.Config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.Config.ReadTimeout,
		WriteTimeout: s.opts.Config.WriteTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/vaults/{vault}", s.handleGetVault).Methods(http.MethodGet)
	s.router.HandleFunc("/vaults/{vault}/period", s.handleGetPeriod).Methods(http.MethodGet)
	s.router.HandleFunc("/vaults/{vault}/deposit/validate", s.handleValidateDeposit).Methods(http.MethodPost)

	s.router.HandleFunc("/accounts/{account}/vaults/{vault}/position", s.handleGetPosition).Methods(http.MethodGet)
	s.router.HandleFunc("/accounts/{account}/vaults/{vault}/watch", s.handleWatch).Methods(http.MethodPost)
	s.router.HandleFunc("/accounts/{account}/vaults/{vault}/watch", s.handleUnwatch).Methods(http.MethodDelete)
	s.router.HandleFunc("/accounts/{account}/snapshots", s.handleGetSnapshots).Methods(http.MethodGet)
	s.router.HandleFunc("/accounts/{account}/totals", s.handleGetTotals).Methods(http.MethodGet)

	s.router.HandleFunc("/transactions/{signature}/confirm", s.handleConfirm).Methods(http.MethodPost)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests. A configured cache that does
// not answer marks the service degraded; positions are still served.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "healthy",
		"service": "vault-position-lab",
		"slot":    s.opts.Signal.Last(),
	}
	if s.opts.Cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := s.opts.Cache.Ping(ctx); err != nil {
			s.logger.Printf("cache ping: %v", err)
			body["status"] = "degraded"
			body["cache"] = "unavailable"
		} else {
			body["cache"] = "ok"
		}
	}
	respondJSON(w, http.StatusOK, body)
}

const healthPingTimeout = 2 * time.Second

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Printf("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
