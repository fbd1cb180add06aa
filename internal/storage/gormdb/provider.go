package gormdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	_ "github.com/lib/pq"
	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/shaibs3/orginsights/internal/storage/shared"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// Provider implements the storage boundary on top of GORM. The same code
// serves postgres and sqlite; only the dialector differs.
type Provider struct {
	db      *gorm.DB
	logger  *zap.Logger
	cb      *gobreaker.CircuitBreaker
	metrics *shared.Metrics
	now     func() time.Time
}

func NewPostgresProvider(config shared.DbProviderConfig, logger *zap.Logger, meter metric.Meter) (*Provider, error) {
	pgLogger := logger.Named("postgres")

	connStr := config.String("conn_str")
	if connStr == "" {
		return nil, fmt.Errorf("conn_str is required for Postgres provider")
	}
	pgLogger.Info("initializing Postgres provider")

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		pgLogger.Error("failed to open Postgres connection", zap.Error(err))
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		pgLogger.Error("failed to ping Postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(pgLogger))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}
	return newProvider(gormDB, "PostgresDB", pgLogger, meter)
}

func NewSqliteProvider(config shared.DbProviderConfig, logger *zap.Logger, meter metric.Meter) (*Provider, error) {
	path := config.String("path")
	if path == "" {
		return nil, fmt.Errorf("path is required for sqlite provider")
	}
	return openSqlite(path, "SqliteDB", logger.Named("sqlite"), meter)
}

// NewMemoryProvider opens a private in-memory sqlite database. It lives on a
// single connection and disappears with it.
func NewMemoryProvider(logger *zap.Logger, meter metric.Meter) (*Provider, error) {
	return openSqlite(":memory:", "MemoryDB", logger.Named("memory"), meter)
}

func openSqlite(path, name string, logger *zap.Logger, meter metric.Meter) (*Provider, error) {
	logger.Info("initializing sqlite provider", zap.String("path", path))

	gormDB, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// sqlite serializes writers anyway, and an in-memory database is per connection
	sqlDB.SetMaxOpenConns(1)

	if err := gormDB.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return newProvider(gormDB, name, logger, meter)
}

func newProvider(gormDB *gorm.DB, name string, logger *zap.Logger, meter metric.Meter) (*Provider, error) {
	if err := gormDB.AutoMigrate(db_model.Models()...); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}

	metrics, err := shared.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage metrics: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, shared.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	logger.Info("storage provider initialized successfully")
	return &Provider{
		db:      gormDB,
		logger:  logger,
		cb:      cb,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func gormConfig(logger *zap.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// read runs a query inside the circuit breaker and retries it with backoff.
// Not-found results and an open breaker are returned immediately.
func (p *Provider) read(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	start := p.now()
	err := retry.Do(
		func() error {
			_, err := p.cb.Execute(func() (interface{}, error) {
				return nil, fn(p.db.WithContext(ctx))
			})
			return err
		},
		retry.Attempts(3),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("retrying "+operation, zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	p.metrics.Record(ctx, operation, start, err)
	return err
}

// write runs fn once inside the circuit breaker. Writes are never retried.
func (p *Provider) write(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	start := p.now()
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, fn(p.db.WithContext(ctx))
	})
	p.metrics.Record(ctx, operation, start, err)
	return err
}

func retryable(err error) bool {
	return !errors.Is(err, shared.ErrNotFound) &&
		!errors.Is(err, gobreaker.ErrOpenState) &&
		!errors.Is(err, gobreaker.ErrTooManyRequests) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (p *Provider) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (p *Provider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	p.logger.Info("closing storage provider")
	return sqlDB.Close()
}
