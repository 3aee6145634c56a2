package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/danhlc/poslite/internal/adapter/http"
	"github.com/danhlc/poslite/internal/adapter/http/handler"
	"github.com/danhlc/poslite/internal/adapter/http/middleware"
	redisRepo "github.com/danhlc/poslite/internal/adapter/repository/redis"
	"github.com/danhlc/poslite/internal/app"
	"github.com/danhlc/poslite/internal/infrastructure/config"
	"github.com/danhlc/poslite/internal/infrastructure/logger"
	"github.com/danhlc/poslite/internal/infrastructure/metrics"
	"github.com/danhlc/poslite/internal/infrastructure/redis"
)

const visitorIdleTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

// server owns the HTTP listener and everything it closes on shutdown.
type server struct {
	cfg         *config.Config
	logger      zerolog.Logger
	store       *app.Store
	redisClient *goredis.Client
	rateLimiter *middleware.RateLimiter
	httpServer  *http.Server
}

func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", store.Driver).Msg("database ready")

	s := &server{cfg: cfg, logger: logger, store: store}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	services := app.NewServices(store, logger, m)

	checks := []handler.HealthCheck{{Name: "database", Ping: store.Ping}}

	var idempotencyStore *redisRepo.IdempotencyStore
	if cfg.RedisURL != "" {
		s.redisClient, err = redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		idempotencyStore = redisRepo.NewIdempotencyStore(s.redisClient)
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: redis.Ping(s.redisClient)})
		logger.Info().Msg("connected to redis")
	} else {
		logger.Warn().Msg("REDIS_URL not set, Idempotency-Key handling disabled")
	}

	if cfg.HTTPRateLimitRPS > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.HTTPRateLimitRPS, cfg.HTTPRateLimitBurst).WithMetrics(m)
	}

	routerCfg := httpAdapter.RouterConfig{
		CustomerHandler: handler.NewCustomerHandler(services.Customers),
		CatalogHandler:  handler.NewCatalogHandler(services.Catalog),
		LedgerHandler:   handler.NewLedgerHandler(services.Ledger),
		HealthHandler:   handler.NewHealthHandler(checks...),
		Logger:          logger,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		RateLimiter:     s.rateLimiter,
		Metrics:         m,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}
	// A typed nil would pass the router's nil check.
	if idempotencyStore != nil {
		routerCfg.IdempotencyStore = idempotencyStore
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return s, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *server) Run(ctx context.Context) error {
	if s.rateLimiter != nil {
		go s.evictVisitors(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("port", s.cfg.HTTPPort).Msg("starting server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *server) evictVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rateLimiter.Cleanup(visitorIdleTimeout); n > 0 {
				s.logger.Debug().Int("evicted", n).Msg("rate limiter visitors evicted")
			}
		}
	}
}

// Close releases the database and Redis connections.
func (s *server) Close() {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	s.store.Close()
}
