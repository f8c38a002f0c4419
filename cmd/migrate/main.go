// migrate applies the embedded schema migrations under an advisory lock.
//
// Usage: go run ./cmd/migrate [--seed-demo]
package main

import (
	"context"
	"log"
	"time"

	"maintenance-ledger/internal/config"
	"maintenance-ledger/internal/db"
	"maintenance-ledger/internal/observability"
	"maintenance-ledger/migrations"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	seedDemo := pflag.Bool("seed-demo", false, "restore the demo tenant after migrating (dev only)")
	pflag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.Logger, false)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Fatal("connect failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("all migrations processed")

	if *seedDemo {
		if cfg.Server.AppEnv == "production" {
			logger.Fatal("refusing to seed demo data in production")
		}
		if err := db.SeedDemo(ctx, pool); err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
		logger.Info("demo data restored", zap.String("tenant_id", db.DemoTenantID))
	}
}
