package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"termomaz/backup"
	"termomaz/config"
	"termomaz/invoice"
	"termomaz/loader"
	"termomaz/logger"
	"termomaz/metrics"
	"termomaz/middleware"
	"termomaz/order"
	"termomaz/pos"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	seed := flag.Bool("seed", false, "load demo data when the database is empty")
	migrateOnly := flag.Bool("migrate-only", false, "apply migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zl, err := logger.New(cfg.Log.Env)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	zl.Info("connecting to database", zap.String("driver", cfg.Database.Driver))
	dbConn, err := openDB(cfg.Database)
	if err != nil {
		zl.Fatal("db open error", zap.Error(err))
	}
	defer dbConn.Close()

	if err := loader.Migrate(dbConn); err != nil {
		zl.Fatal("database migration failed", zap.Error(err))
	}
	if *migrateOnly {
		zl.Info("migrations applied, exiting")
		return
	}

	orders := order.NewConfiguredService()
	if *seed || cfg.Database.SeedOnEmpty {
		if _, err := loader.Seed(dbConn, orders); err != nil {
			zl.Fatal("seed failed", zap.Error(err))
		}
	}

	backups := backup.NewConfiguredManager(dbConn)
	scheduler, err := backups.Start(cfg.Backup.Schedule)
	if err != nil {
		zl.Fatal("backup scheduler error", zap.Error(err))
	}

	router := mux.NewRouter()
	SetupRoutes(router, deps{
		db:       dbConn,
		orders:   orders,
		register: pos.NewRegister(orders),
		printer:  invoice.ConfiguredPrinter{},
		backups:  backups,
	})

	stop := make(chan struct{})
	router.Use(middleware.RequestID, middleware.Logging, middleware.Recover, metrics.InstrumentHandler)
	// Rate limit and credentials follow the current config.
	limiter := middleware.NewConfiguredRateLimiter()
	limiter.StartCleanup(time.Minute, stop)
	router.Use(limiter.Handler, middleware.BasicAuth)
	if cfg.Auth.Enabled() {
		zl.Info("basic auth enabled for write requests", zap.String("user", cfg.Auth.AdminUser))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Invoice PDFs launch a browser.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zl.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server start error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down")

	close(stop)
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}

// openDB opens the configured database. SQLite gets WAL, a busy timeout and foreign keys.
func openDB(c config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := c.DSN
	if c.Driver == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(c.Driver, dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", c.Driver, err)
	}
	if c.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}
