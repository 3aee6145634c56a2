package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/danhlc/poslite/internal/adapter/http/handler"
	"github.com/danhlc/poslite/internal/adapter/http/middleware"
	"github.com/danhlc/poslite/internal/infrastructure/metrics"
	"github.com/danhlc/poslite/internal/usecase"
)

// RouterConfig holds dependencies for the router. Optional dependencies are
// skipped when nil.
type RouterConfig struct {
	CustomerHandler *handler.CustomerHandler
	CatalogHandler  *handler.CatalogHandler
	LedgerHandler   *handler.LedgerHandler
	HealthHandler   *handler.HealthHandler

	Logger           zerolog.Logger
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.Actor)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			if cfg.Metrics != nil {
				idempotency.WithMetrics(cfg.Metrics)
			}
			r.Use(idempotency.Wrap)
		}

		r.Get("/normalize", handler.Normalize)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", cfg.CustomerHandler.Search)
			r.Post("/", cfg.CustomerHandler.Create)
			r.Post("/bulk-delete", cfg.CustomerHandler.BulkDelete)
			r.Get("/{id}", cfg.CustomerHandler.Get)
			r.Put("/{id}", cfg.CustomerHandler.Update)
			r.Post("/{id}/activate", cfg.CustomerHandler.Activate)
			r.Post("/{id}/deactivate", cfg.CustomerHandler.Deactivate)

			r.Get("/{id}/balance", cfg.LedgerHandler.GetBalance)
			r.Get("/{id}/ledger", cfg.LedgerHandler.ListEntries)
			r.Get("/{id}/ledger/verify", cfg.LedgerHandler.Verify)
			r.Post("/{id}/adjustments", cfg.LedgerHandler.RecordAdjustment)
			r.Post("/{id}/invoices", cfg.LedgerHandler.PostInvoice)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", cfg.CatalogHandler.SearchCategories)
			r.Post("/", cfg.CatalogHandler.CreateCategory)
			r.Post("/bulk-delete", cfg.CatalogHandler.BulkDeleteCategories)
			r.Put("/{id}", cfg.CatalogHandler.UpdateCategory)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", cfg.CatalogHandler.SearchProducts)
			r.Post("/", cfg.CatalogHandler.CreateProduct)
			r.Post("/bulk-delete", cfg.CatalogHandler.BulkDeleteProducts)
			r.Put("/{id}", cfg.CatalogHandler.UpdateProduct)
		})
	})

	return r
}
