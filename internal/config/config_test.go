package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(zap.NewNop())

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, 10, cfg.DefaultPageSize)
	require.Equal(t, 50, cfg.MaxPageSize)
	require.Equal(t, 25, cfg.MaxPostsPageSize)
	require.Equal(t, "https://www.linkedin.com/company", cfg.ScraperBaseURL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("MAX_PAGE_SIZE", "20")
	t.Setenv("DATABASE_URL", "postgres://localhost/orgs")

	cfg := Load(zap.NewNop())

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 90*time.Second, cfg.CacheTTL)
	require.Equal(t, 20, cfg.MaxPageSize)
	require.Equal(t, "postgres://localhost/orgs", cfg.DatabaseURL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_SIZE", "0")
	t.Setenv("MAX_PAGE_SIZE", "-3")
	t.Setenv("DEFAULT_PAGE_SIZE", "500")

	cfg := Load(zap.NewNop())

	require.Equal(t, 1024, cfg.CacheSize)
	require.Equal(t, 50, cfg.MaxPageSize)
	require.Equal(t, 10, cfg.DefaultPageSize)
}
