package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/payout-ledger/internal/config"
	"github.com/ignatzorin/payout-ledger/internal/db"
	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	httpHandlers "github.com/ignatzorin/payout-ledger/internal/http/handlers"
	httpRouter "github.com/ignatzorin/payout-ledger/internal/http/router"
	"github.com/ignatzorin/payout-ledger/internal/logger"
	"github.com/ignatzorin/payout-ledger/internal/repository"
	"github.com/ignatzorin/payout-ledger/internal/repository/memory"
	"github.com/ignatzorin/payout-ledger/internal/service"
	"github.com/ignatzorin/payout-ledger/internal/ws"
)

// stores groups the backends selected by STORAGE_DRIVER.
type stores struct {
	wallets  domainrepo.WalletReader
	txs      domainrepo.TransactionReader
	appender domainrepo.TransactionAppender
	ledger   domainrepo.LedgerStore
	entities domainrepo.EntityFetcher
	users    domainrepo.UserDirectory
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: load config: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	var (
		dbConn *sqlx.DB
		st     stores
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		mem := memory.NewStore()
		memory.SeedDemo(mem, time.Now())
		st = stores{wallets: mem, txs: mem, appender: mem, ledger: mem, entities: mem, users: mem}
		logger.Log.Warn("main: using the in-memory store, data is lost on restart")
	default:
		dbConn, err = db.NewPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
		if err != nil {
			logger.Log.Fatalf("main: connect database: %v", err)
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			logger.Log.Fatalf("main: migrations: %v", err)
		}

		txRepo := repository.NewTransactionRepository(dbConn)
		st = stores{
			wallets:  repository.NewWalletRepository(dbConn),
			txs:      txRepo,
			appender: txRepo,
			ledger:   repository.NewLedgerRepository(dbConn),
			entities: repository.NewEntityRepository(dbConn),
			users:    repository.NewUserRepository(dbConn),
		}
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	cache := service.NewCacheService(time.Minute)
	defer cache.Close()
	users := service.NewCachedUserDirectory(st.users, cache, cfg.UserCacheTTL)

	hub := ws.NewHub()
	go hub.Run(ctx)

	resolver := service.NewEntityResolver(st.entities, cfg.ResolverBatchSize, cfg.ResolverConcurrency)
	engine := service.NewApprovalEngine(st.ledger, service.WithRetry(cfg.ApprovalMaxRetries, cfg.ApprovalRetryBackoff))
	workflow := service.NewApprovalWorkflow(st.wallets, st.txs, users, resolver, engine, ws.NewLedgerNotifier(hub))
	auditor := service.NewLedgerAuditor(st.wallets, st.txs)
	intake := service.NewEarningIntake(st.wallets, st.appender)

	approvalHandler := httpHandlers.NewApprovalHandler(workflow, st.wallets, auditor, intake)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, hub)

	engineHTTP := httpRouter.SetupRouter(cfg, approvalHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engineHTTP,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: http server shutdown")
		}
	}()

	logger.Log.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"env":     cfg.Env,
		"storage": cfg.StorageDriver,
	}).Info("main: http server started")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: http server: %v", err)
	}
}

func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Error("main: close database")
	}
}
