package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/pharaohsclub/treasury/internal/api/handler"
	"github.com/pharaohsclub/treasury/internal/api/middleware"
	"github.com/pharaohsclub/treasury/internal/api/spec"
	"github.com/pharaohsclub/treasury/internal/config"
	"github.com/pharaohsclub/treasury/internal/service"
)

// Router wires handlers, middleware and services into the HTTP surface.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	health    *handler.HealthHandler
	idemStore middleware.IdempotencyStore

	accounts  *handler.AccountHandler
	requests  *handler.RequestHandler
	transfers *handler.TransferHandler
	loans     *handler.LoanHandler
}

// Deps carries everything the router needs. The services are built on
// the Store interface, so tests can pass in-memory implementations.
type Deps struct {
	Cfg       *config.Config
	Logger    *zap.Logger
	Health    *handler.HealthHandler
	IdemStore middleware.IdempotencyStore

	Workflow *service.Workflow
	Requests *service.RequestService
	Escrow   *service.EscrowService
	Accounts *service.AccountService
}

func NewRouter(d Deps) *Router {
	middleware.SetJWTSecret(d.Cfg.JWTSecret)
	middleware.SetJWTValidation(d.Cfg.JWTIssuer, d.Cfg.JWTAudience)

	return &Router{
		cfg:       d.Cfg,
		logger:    d.Logger,
		health:    d.Health,
		idemStore: d.IdemStore,
		accounts:  handler.NewAccountHandler(d.Accounts),
		requests:  handler.NewRequestHandler(d.Workflow, d.Requests),
		transfers: handler.NewTransferHandler(d.Workflow, d.Escrow),
		loans:     handler.NewLoanHandler(d.Escrow),
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/healthz", api.health.Live)
		r.Get("/readyz", api.health.Ready)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	})

	// Authenticated user routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Post("/v1/accounts", api.accounts.Provision)
		r.Get("/v1/accounts/me", api.accounts.GetBalance)
		r.Get("/v1/accounts/{id}", api.accounts.GetBalance)
		r.Get("/v1/profiles/{id}", api.accounts.GetProfile)

		r.With(idem).Post("/v1/requests/deposit", api.requests.CreateDeposit)
		r.With(idem).Post("/v1/requests/withdrawal", api.requests.CreateWithdrawal)
		r.Get("/v1/requests", api.requests.ListMine)
		r.Get("/v1/requests/{id}", api.requests.Get)

		r.With(idem).Post("/v1/transfers", api.transfers.Create)
		r.Post("/v1/transfers/{id}/resolve", api.transfers.Resolve)
		r.Get("/v1/transfers", api.transfers.ListMine)
		r.Get("/v1/transfers/{id}", api.transfers.Get)

		r.Get("/v1/loans", api.loans.ListMine)
	})

	// Admin review queue
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.RequireRole("admin"))
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/admin/requests", api.requests.List)
		r.Post("/v1/admin/requests/{id}/approve", api.requests.Approve)
		r.Post("/v1/admin/requests/{id}/reject", api.requests.Reject)
		r.Post("/v1/admin/requests/{id}/suspend", api.requests.Suspend)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.RespondError(w, r, http.StatusNotFound, "resource/not-found", "route not found")
	})

	return r
}
