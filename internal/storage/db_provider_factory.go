package storage

import (
	"encoding/json"
	"fmt"

	"github.com/shaibs3/orginsights/internal/storage/gormdb"
	"github.com/shaibs3/orginsights/internal/storage/shared"
	"github.com/shaibs3/orginsights/internal/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ProviderFactory defines the interface for creating database providers
type ProviderFactory interface {
	CreateProvider(configJSON string) (DbProvider, error)
}

// DbProviderFactory builds a DbProvider from its JSON configuration
type DbProviderFactory struct {
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
}

func NewDbProviderFactory(logger *zap.Logger, tel *telemetry.Telemetry) *DbProviderFactory {
	return &DbProviderFactory{
		logger:    logger.Named("factory"),
		telemetry: tel,
	}
}

func (f *DbProviderFactory) CreateProvider(configJSON string) (DbProvider, error) {
	var config shared.DbProviderConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("failed to parse database configuration JSON: %w", err)
	}

	f.logger.Info("creating database provider", zap.String("db_type", config.DbType.String()))

	if !config.DbType.IsValid() {
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}

	var meter metric.Meter
	if f.telemetry != nil {
		meter = f.telemetry.Meter
	}

	switch config.DbType {
	case shared.DbTypePostgres:
		return gormdb.NewPostgresProvider(config, f.logger, meter)
	case shared.DbTypeSqlite:
		return gormdb.NewSqliteProvider(config, f.logger, meter)
	case shared.DbTypeMemory:
		f.logger.Info("using in-memory sqlite for storage")
		return gormdb.NewMemoryProvider(f.logger, meter)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}
}
