package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/R3E-Network/valuation_engine/internal/app"
	"github.com/R3E-Network/valuation_engine/internal/app/httpapi"
	"github.com/R3E-Network/valuation_engine/internal/app/metrics"
	"github.com/R3E-Network/valuation_engine/internal/app/storage/postgres"
	"github.com/R3E-Network/valuation_engine/internal/config"
	"github.com/R3E-Network/valuation_engine/internal/platform/migrations"
	"github.com/R3E-Network/valuation_engine/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "valuationd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		Component: "valuationd",
	})

	stores, db, err := buildStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("configure stores: %w", err)
	}
	if db != nil {
		defer db.Close()
	} else {
		log.Warn("DATABASE_DSN not set; using in-memory stores")
	}

	application, err := app.New(ctx, stores, cfg.EngineParams(), log)
	if err != nil {
		return err
	}
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewHandler(application))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           metrics.InstrumentHandler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	return application.Stop(shutdownCtx)
}

func buildStores(ctx context.Context, cfg *config.Config) (app.Stores, *sql.DB, error) {
	if cfg.Database.DSN == "" {
		return app.Stores{}, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{
		Oracles:     store,
		Submissions: store,
		Valuations:  store,
		Params:      store,
	}, db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
