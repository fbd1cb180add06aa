package storage

import "github.com/shaibs3/orginsights/internal/storage/shared"

// Re-export shared types for convenience
type DbType = shared.DbType
type DbProviderConfig = shared.DbProviderConfig

const (
	DbTypePostgres = shared.DbTypePostgres
	DbTypeSqlite   = shared.DbTypeSqlite
	DbTypeMemory   = shared.DbTypeMemory
)

var (
	ErrNotFound  = shared.ErrNotFound
	ErrReconcile = shared.ErrReconcile
)
