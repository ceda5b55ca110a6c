package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payu-gateway/internal/checkout"
	"payu-gateway/internal/config"
	"payu-gateway/internal/db"
	"payu-gateway/internal/logger"
	"payu-gateway/internal/middleware"
	"payu-gateway/internal/notification"
	"payu-gateway/internal/payu"
	"payu-gateway/internal/webhook"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = listenAndServe
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	router, err := newServer(cfg, database)
	if err != nil {
		return err
	}

	addr := ":" + cfg.AppPort
	logger.L().Info("PayU gateway listening", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
	return startServerFunc(addr, router)
}

func newServer(cfg *config.Config, database *sql.DB) (http.Handler, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required for merchant endpoints")
	}

	opts := []payu.Option{payu.WithBaseURL(cfg.PayUBaseURL)}
	if loc, err := time.LoadLocation(cfg.PayUTimezone); err == nil {
		opts = append(opts, payu.WithLocation(loc))
	} else {
		logger.L().Warn("Unknown PAYU_TIMEZONE, using default", zap.String("timezone", cfg.PayUTimezone), zap.Error(err))
	}

	client, err := payu.NewClient(cfg.PayU(), opts...)
	if err != nil {
		return nil, err
	}

	repo := notification.NewRepository(database)
	checkoutHandler := checkout.NewHandler(client, repo)
	webhookHandler := webhook.NewWebhookHandler(client, repo, logStatus)

	return setupRouter(
		checkoutHandler,
		webhookHandler.PaymentWebhookHandler,
		webhookHandler.Metrics.Handler(),
		[]byte(cfg.JWTSecret),
	), nil
}

// logStatus is the default listener: the verified status is only logged.
// Shops hook order fulfilment in here.
func logStatus(ctx context.Context, sessionID string, status *payu.PaymentStatus) error {
	logger.FromCtx(ctx).Info("PayU payment status received",
		zap.String("session_id", sessionID),
		zap.String("order_id", status.OrderID()),
		zap.Stringer("status", status.Status()),
		zap.Bool("final", status.Status().IsFinal()),
	)
	return nil
}

func setupRouter(checkoutHandler *checkout.Handler, webhookHandler, metricsHandler http.HandlerFunc, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.With(middleware.RateLimitMiddleware).Post("/webhook/payu", webhookHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtSecret))
		r.Use(middleware.RateLimitMiddleware)
		r.Route("/payments", checkoutHandler.Routes)
		r.Get("/metrics", metricsHandler)
	})

	return r
}

func listenAndServe(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.L().Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
