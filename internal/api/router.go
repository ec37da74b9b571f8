package api

import (
	"github.com/agoralabs/marketplace-settlement/internal/api/handler"
	"github.com/agoralabs/marketplace-settlement/internal/api/middleware"
	"github.com/agoralabs/marketplace-settlement/internal/api/spec"
	"github.com/agoralabs/marketplace-settlement/internal/catalog"
	"github.com/agoralabs/marketplace-settlement/internal/config"
	"github.com/agoralabs/marketplace-settlement/internal/escrow"
	"github.com/agoralabs/marketplace-settlement/internal/idempotency"
	"github.com/agoralabs/marketplace-settlement/internal/identity"
	"github.com/agoralabs/marketplace-settlement/internal/ledger"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/agoralabs/marketplace-settlement/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Escrow   *escrow.Engine
	Catalog  *catalog.Service
	Identity *identity.Service
	Tokens   *token.Registry
	Ledger   *ledger.Ledger
}

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	redis     redis.Cmdable
	store     repository.Store
	idemStore *idempotency.Store
	services  Services
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, redisClient redis.Cmdable, store repository.Store, idemStore *idempotency.Store, services Services) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		store:     store,
		idemStore: idemStore,
		services:  services,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	authHandler := handler.NewAuthHandler(api.services.Identity, api.cfg.AuthorityAddress)
	profileHandler := handler.NewProfileHandler(api.services.Identity)
	itemHandler := handler.NewItemHandler(api.services.Catalog, api.services.Escrow)
	escrowHandler := handler.NewEscrowHandler(api.services.Escrow)
	reviewHandler := handler.NewReviewHandler(api.services.Identity)
	accountHandler := handler.NewAccountHandler(api.store, api.services.Ledger)
	adminHandler := handler.NewAdminHandler(api.services.Tokens, api.services.Identity)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	// Operational endpoints
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Post("/v1/auth/login", authHandler.Login)
		r.Get("/v1/items", itemHandler.List)
		r.Get("/v1/items/{itemID}", itemHandler.Get)
		r.Get("/v1/profiles/{address}", profileHandler.Get)
		r.Get("/v1/profiles/{address}/reviews", profileHandler.Reviews)
		r.Get("/v1/tokens", adminHandler.ListTokens)
		r.Get("/v1/moderator-fee", adminHandler.GetModeratorFeeCeiling)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Put("/v1/profiles", profileHandler.Save)

		r.Post("/v1/items", itemHandler.Create)
		r.Put("/v1/items/{itemID}", itemHandler.Update)
		r.Delete("/v1/items/{itemID}", itemHandler.Delete)

		// Fund-moving operations require an Idempotency-Key.
		r.With(idem).Post("/v1/items/{itemID}/buy", itemHandler.Buy)
		r.With(idem).Post("/v1/items/{itemID}/buy-escrow", itemHandler.BuyEscrow)

		r.Get("/v1/escrow/{itemID}", escrowHandler.Get)
		r.With(idem).Post("/v1/escrow/{itemID}/approve", escrowHandler.Approve)
		r.With(idem).Post("/v1/escrow/{itemID}/dispute", escrowHandler.Dispute)
		r.With(idem).Post("/v1/escrow/{itemID}/resolve", escrowHandler.Resolve)

		r.Post("/v1/reviews", reviewHandler.Create)

		r.Get("/v1/accounts/balance", accountHandler.Balance)
		r.With(idem).Post("/v1/accounts/deposit", accountHandler.Deposit)
		r.Get("/v1/accounts/statement", accountHandler.Statement)

		// Authority-only routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Post("/v1/admin/tokens", adminHandler.RegisterToken)
			r.Put("/v1/admin/moderator-fee", adminHandler.SetModeratorFeeCeiling)
		})
	})

	return r
}
