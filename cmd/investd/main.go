// Package main runs the investment platform server: REST API, storage and
// the accrual scheduler.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/mctcapital/invest_layer/internal/app"
	"github.com/mctcapital/invest_layer/internal/app/httpapi"
	"github.com/mctcapital/invest_layer/internal/app/storage/postgres"
	"github.com/mctcapital/invest_layer/internal/config"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/invest_layer.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("investd").WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	stores, closeDB, err := buildStores(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to initialise storage")
		os.Exit(1)
	}
	if closeDB != nil {
		defer closeDB()
	}

	application, err := app.New(stores, app.Options{
		AccrualSchedule:      cfg.Accrual.Schedule,
		WithdrawalFeePercent: &cfg.Ledger.WithdrawalFeePercent,
	}, log)
	if err != nil {
		log.WithError(err).Error("failed to build application")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start services")
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           httpapi.NewHandler(application),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown failed")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown failed")
	}
	log.Info("shutdown complete")
}

// buildStores opens the configured storage backend. An empty DSN selects the
// in-memory store, which is enough for local development.
func buildStores(cfg config.Config, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured; using in-memory storage")
		return app.Stores{}, nil, nil
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return app.Stores{}, nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return app.Stores{}, nil, err
	}

	if err := postgres.Migrate(db); err != nil {
		db.Close()
		return app.Stores{}, nil, err
	}

	store := postgres.New(db)
	log.Info("postgres storage initialised")
	return app.Stores{
		Accounts:    store,
		Packages:    store,
		Investments: store,
		Ledger:      store,
		Balances:    store,
		Stats:       store,
	}, func() { db.Close() }, nil
}
