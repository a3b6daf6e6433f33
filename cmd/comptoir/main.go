package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/comptoir/comptoir/internal/accounts"
	"github.com/comptoir/comptoir/internal/app"
	"github.com/comptoir/comptoir/internal/auth"
	"github.com/comptoir/comptoir/internal/billing"
	"github.com/comptoir/comptoir/internal/catalog"
	"github.com/comptoir/comptoir/internal/identity"
	"github.com/comptoir/comptoir/internal/notify"
	"github.com/comptoir/comptoir/internal/payments"
	"github.com/comptoir/comptoir/internal/platform/db"
	"github.com/comptoir/comptoir/internal/shared"
	"github.com/comptoir/comptoir/internal/stock"
	"github.com/comptoir/comptoir/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	locker := shared.NewAccountLocker(redislock.New(redisClient), cfg.AccountLockTTL)

	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	identities := identity.NewRepository(pool)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	guard := auth.NewMiddleware(tokens)
	authService := auth.NewService(identities, tokens)
	authHandler := auth.NewHandler(logger, authService)

	notifyRepo := notify.NewRepository(pool)
	dispatcher := notify.NewDispatcher(logger, notifyRepo, identities, queue)
	notifyService := notify.NewService(logger, notifyRepo, queue)
	notifyHandler := notify.NewHandler(logger, notifyService, guard)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, dispatcher)
	catalogHandler := catalog.NewHandler(logger, catalogService, guard)

	stockService := stock.NewService(stock.NewStore(pool))
	stockHandler := stock.NewHandler(logger, stockService)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(logger, billingRepo, dispatcher, locker)
	billingHandler := billing.NewHandler(logger, billingService, guard)

	paymentsRepo := payments.NewRepository(pool)
	paymentsService := payments.NewService(logger, paymentsRepo, locker)
	paymentsHandler := payments.NewHandler(logger, paymentsService, guard)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(logger, accountsRepo, locker)
	accountsHandler := accounts.NewHandler(logger, accountsService, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Guard:           guard,
		AuthHandler:     authHandler,
		CatalogHandler:  catalogHandler,
		StockHandler:    stockHandler,
		BillingHandler:  billingHandler,
		PaymentsHandler: paymentsHandler,
		AccountsHandler: accountsHandler,
		NotifyHandler:   notifyHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
