package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/appconfig"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/engine"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the database schema before serving")
	return cmd
}

func serve(parent context.Context, cfg appconfig.Config, migrate bool) error {
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext(parent)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := openPool(ctx, cfg, migrate, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := storage.NewPostgresStore(pool)

	connector, closeConnector, err := newConnector(cfg)
	if err != nil {
		return err
	}
	defer closeConnector()
	mirror := calendar.NewMirror(connector, store, logger, cfg.Mirror)
	// The mirror outlives the signal so bookings accepted while the HTTP server drains are still
	// queued; it is stopped, and waited on, before the connector is closed.
	mirrorCtx, stopMirror := context.WithCancel(context.WithoutCancel(ctx))
	mirrorDone := make(chan struct{})
	go func() {
		defer close(mirrorDone)
		mirror.Run(mirrorCtx)
	}()
	defer func() {
		stopMirror()
		<-mirrorDone
		logger.Info("calendar mirror stopped")
	}()

	eng := engine.New(store, mirror, logger)
	bookingHandler := handlers.NewBookingHandler(eng, logger, cfg.Location, cfg.Defaults)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if p, ok := connector.(calendar.Pinger); ok {
		// Mirroring is best effort, so an unreachable calendar never takes the service out of rotation.
		checks = append(checks, runtime.ReadyCheck{Name: "calendar", Check: p.Ping, Optional: true})
	}

	publicLimit := httpx.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow).Middleware()
	if cfg.RedisURL != "" {
		rdb, err := httpx.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		publicLimit = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, cfg.RateLimitWindow, "rl:"+cfg.Service).Middleware(logger, true)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb), Optional: true})
	}
	protect := auth.RequireRole(cfg.AuthJWTSecret, "owner", "admin")
	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; owner routes are unauthenticated")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/api/v1/public/slots", publicLimit(http.HandlerFunc(bookingHandler.Slots)))
	mux.Handle("/api/v1/public/book", publicLimit(http.HandlerFunc(bookingHandler.Create)))
	mux.Handle("GET /api/v1/bookings", protect(http.HandlerFunc(bookingHandler.List)))
	mux.Handle("GET /api/v1/bookings/{id}", protect(http.HandlerFunc(bookingHandler.Get)))
	mux.Handle("POST /api/v1/bookings/transition", protect(http.HandlerFunc(bookingHandler.Transition)))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.CORSOrigins, MaxAge: 10 * time.Minute}),
		httpx.WithBodyLimit(cfg.BodyLimitBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.GRPCPort != "" {
		if err := startHealthServer(ctx, cfg, logger); err != nil {
			return err
		}
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "calendar_connector", connector.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

func newConnector(cfg appconfig.Config) (calendar.Connector, func(), error) {
	switch cfg.Connector {
	case appconfig.ConnectorCalDAV:
		c, err := calendar.NewCalDAVConnector(cfg.CalDAV)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	case appconfig.ConnectorKafka:
		c, err := calendar.NewKafkaConnector(cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		return calendar.NoopConnector{}, func() {}, nil
	}
}

func startHealthServer(ctx context.Context, cfg appconfig.Config, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	hs := grpcx.NewHealthServer(logger)
	hs.SetServing("", true)
	hs.SetServing(cfg.Service, true)
	go func() {
		if err := hs.Serve(ctx, lis); err != nil {
			logger.Error("grpc health server error", "err", err)
		}
	}()
	return nil
}
