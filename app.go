package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"payments-authorizenet/config"
	"payments-authorizenet/database"
	"payments-authorizenet/handlers"
	"payments-authorizenet/logger"
	"payments-authorizenet/middleware"
	"payments-authorizenet/queue"
	"payments-authorizenet/services/auth"
	"payments-authorizenet/services/payment"
	"payments-authorizenet/services/payment/authorizenet"
	"payments-authorizenet/worker"
)

// app holds the long-lived dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *database.Connection
	queue    *queue.Queue
	provider *payment.AuthorizeNetProvider
}

func loadConfig() (*config.Config, *slog.Logger) {
	// Bootstrap logger so config loading can log before LOG_* are known.
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout)
	cfg := config.Load()
	log := logger.Init(cfg.Logger.Level, cfg.Logger.Format, os.Stdout)
	return cfg, log
}

func newApp() (*app, error) {
	cfg, log := loadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	jobQueue, err := queue.NewQueue(cfg.Redis.URL, queue.DefaultQueueName)
	if err != nil {
		db.Close()
		return nil, err
	}

	provider := payment.NewAuthorizeNetProvider(
		cfg.AuthNet.APILoginID,
		cfg.AuthNet.TransactionKey,
		cfg.AuthNet.IsLive,
		cfg.AuthNet.IsRecurring,
		db,
		payment.WithClientOptions(authorizenet.WithTimeout(cfg.AuthNet.Timeout)),
	)

	log.Info("dependencies ready",
		"gateway", provider.Endpoint(),
		"recurring", cfg.AuthNet.IsRecurring,
	)

	return &app{cfg: cfg, log: log, db: db, queue: jobQueue, provider: provider}, nil
}

func (a *app) newWorker() *worker.Worker {
	return worker.NewWorker(a.queue, a.db, a.provider)
}

func (a *app) router() http.Handler {
	jwtService := auth.NewJWTService(a.cfg.Internal.JWTSecret, a.cfg.Internal.Issuer)
	sessionStore := sessions.NewCookieStore([]byte(a.cfg.Server.SessionSecret))
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Secure = a.cfg.AuthNet.IsLive
	limiter := middleware.NewRateLimiter(a.queue.Client())

	return handlers.NewRouter(handlers.Routes{
		Payments:     handlers.NewPaymentHandler(a.db, a.provider, sessionStore),
		Internal:     handlers.NewInternalHandler(a.db, a.queue, a.cfg.Server.BaseURL),
		Health:       handlers.NewHealthHandler(a.db, a.queue),
		InternalAuth: middleware.InternalAuth(jwtService),
		Middleware:   []mux.MiddlewareFunc{limiter.Middleware()},
	})
}

func (a *app) close() {
	if err := a.queue.Close(); err != nil {
		a.log.Warn("failed to close redis", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close database", "error", err)
	}
}
