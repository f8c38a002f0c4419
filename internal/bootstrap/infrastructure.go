// Package bootstrap builds the long-lived resources shared by the commands.
package bootstrap

import (
	"context"
	"fmt"

	"maintenance-ledger/internal/app"
	"maintenance-ledger/internal/config"
	"maintenance-ledger/internal/core"
	"maintenance-ledger/internal/db"
	"maintenance-ledger/internal/events"
	"maintenance-ledger/internal/observability"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Infrastructure holds expensive-to-create singleton resources.
type Infrastructure struct {
	Config  *config.Config
	Logger  *zap.Logger
	Pool    *pgxpool.Pool
	Ledger  core.PartsLedger
	Service app.ApplicationService

	tracerProvider trace.TracerProvider
	publisher      *events.KafkaPublisher
	shutdowns      []func(context.Context) error
}

// New sets up telemetry, the logger, the database pool and the ledger. Telemetry setup
// failures are logged and the process continues without export.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{Config: cfg}

	logShutdown, logErr := observability.SetupLoggingSDK(ctx, cfg.Otel)
	tp, traceShutdown, traceErr := observability.SetupTracingSDK(ctx, cfg.Otel)
	infra.tracerProvider = tp
	infra.shutdowns = append(infra.shutdowns, traceShutdown, logShutdown)

	// Error returns from here on release what was already set up.
	fail := func(err error) (*Infrastructure, error) {
		infra.Shutdown(ctx)
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.Otel.Enabled() && logErr == nil)
	if err != nil {
		return fail(fmt.Errorf("failed to build logger: %w", err))
	}
	infra.Logger = logger
	if logErr != nil {
		logger.Error("failed to set up OpenTelemetry logging", zap.Error(logErr))
	}
	if traceErr != nil {
		logger.Error("failed to set up OpenTelemetry tracing", zap.Error(traceErr))
	}

	isolation, err := db.ParseIsolation(cfg.Ledger.Isolation)
	if err != nil {
		return fail(err)
	}
	pool, err := db.NewPool(ctx, cfg.Postgres.URL)
	if err != nil {
		return fail(err)
	}
	infra.Pool = pool
	store := db.NewStore(pool, db.WithIsolation(isolation))

	var publisher core.MovementPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		writer, err := events.NewKafkaWriter(cfg.Kafka, tp)
		if err != nil {
			logger.Error("movement events disabled", zap.Error(err))
		} else {
			infra.publisher = events.NewKafkaPublisher(writer)
			publisher = infra.publisher
			logger.Info("publishing movement events",
				zap.Strings("brokers", cfg.Kafka.Brokers),
				zap.String("topic", cfg.Kafka.Topic))
		}
	}

	infra.Ledger = core.NewPartsLedger(store, store,
		core.WithLogger(logger.Named("parts_ledger")),
		core.WithTracer(tp.Tracer("maintenance-ledger/core")),
		core.WithPublisher(publisher),
		core.WithMaxRetries(cfg.Ledger.MaxRetries),
	)
	infra.Service = app.NewAppService(infra.Ledger, pool)
	return infra, nil
}

// Shutdown closes the publisher and the pool, then flushes telemetry. It is safe on a
// partially built Infrastructure.
func (infra *Infrastructure) Shutdown(ctx context.Context) {
	if infra.Logger == nil {
		infra.Logger = zap.NewNop()
	}
	if infra.publisher != nil {
		if err := infra.publisher.Close(); err != nil {
			infra.Logger.Error("failed to close movement publisher", zap.Error(err))
		}
	}
	if infra.Pool != nil {
		infra.Pool.Close()
	}
	if err := observability.Shutdown(ctx, infra.shutdowns...); err != nil {
		infra.Logger.Error("failed to shut down telemetry", zap.Error(err))
	}
	_ = infra.Logger.Sync()
}
