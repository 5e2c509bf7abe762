// Package app wires the API server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/shelfsafe/internal/dashboard"
	"github.com/xenking/shelfsafe/internal/handler"
	"github.com/xenking/shelfsafe/internal/storage/mongodb"
	"github.com/xenking/shelfsafe/pkg/health"
	"github.com/xenking/shelfsafe/pkg/httpmiddleware"
)

// Run connects to MongoDB, serves the API and shuts down gracefully once ctx
// is cancelled. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("database", cfg.Database),
	)

	store, err := mongodb.Connect(ctx, mongodb.Options{
		URI:            cfg.MongoURI,
		Database:       cfg.Database,
		Timeout:        cfg.QueryTimeout,
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "connect mongodb")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			lg.Warn("Close mongodb", zap.Error(err))
		}
	}()

	// A failed first ping is logged, not fatal: the API answers 503 until the
	// database is reachable.
	if err := store.Ping(ctx); err != nil {
		lg.Warn("MongoDB not reachable yet", zap.Error(err))
	}

	h, probes, err := NewHandler(ctx, lg, store, cfg, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	probes.Start(ctx, 10*time.Second)
	probes.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.QueryTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           h,
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		probes.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		probes.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// NewHandler builds the full HTTP stack over store: probes, API routes and
// the middleware chain. The returned registry is not started.
func NewHandler(
	ctx context.Context,
	lg *zap.Logger,
	store *mongodb.Store,
	cfg *Config,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (http.Handler, *health.Registry, error) {
	probes := health.New(lg.Named("health"))
	probes.Register("mongodb", health.Readiness, health.Ping(store), health.WithTimeout(5*time.Second))
	probes.Register("goroutines", health.Liveness, health.GoroutineLimit(10000))
	probes.Register("gc", health.Liveness, health.GCPauseLimit(time.Second))

	repo := mongodb.NewRepository(store)
	snapshots, err := dashboard.NewService(repo, dashboard.Config{
		EntityType: cfg.AttachmentEntityType,
	}, mp)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create dashboard service")
	}

	chain, err := middlewares(ctx, lg, cfg, tp, mp)
	if err != nil {
		return nil, nil, err
	}
	router := chi.NewRouter()
	router.Use(chain...)
	probes.RegisterRoutes(router)
	handler.NewHandler(repo, snapshots).RegisterRoutes(router)
	return router, probes, nil
}

// middlewares returns the chain applied to every route, outermost first.
// Request ids and the request logger come first so that recovered panics and
// rejected requests are still logged and tagged.
func middlewares(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) ([]func(http.Handler) http.Handler, error) {
	proxies, err := httpmiddleware.ParseProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return nil, errors.Wrap(err, "trusted proxies")
	}
	return []func(http.Handler) http.Handler{
		chimiddleware.StripSlashes,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins: cfg.CORS.Origins,
			Headers: []string{"Content-Type", httpmiddleware.RequestIDHeader},
			MaxAge:  86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
			KeyFunc: httpmiddleware.ForwardedClientIP(proxies),
		}),
		httpmiddleware.Instrument("shelfsafe-api", tp, mp),
		httpmiddleware.LogRequests(),
	}, nil
}
