package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the process configuration
type Config struct {
	Environment string
	LogLevel    string
	Port        string

	// DBConfig is the provider JSON understood by the storage factory.
	// DatabaseURL is a postgres shorthand used when DBConfig is empty.
	DBConfig    string
	DatabaseURL string

	CacheTTL  time.Duration
	CacheSize int

	ScraperBaseURL   string
	ScraperTimeout   time.Duration
	ScraperUserAgent string

	DefaultPageSize  int
	MaxPageSize      int
	MaxPostsPageSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", "8080")
	v.SetDefault("db_config", "")
	v.SetDefault("database_url", "")
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("cache_size", 1024)
	v.SetDefault("scraper_base_url", "https://www.linkedin.com/company")
	v.SetDefault("scraper_timeout", 30*time.Second)
	v.SetDefault("scraper_user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	v.SetDefault("default_page_size", 10)
	v.SetDefault("max_page_size", 50)
	v.SetDefault("max_posts_page_size", 25)
	v.SetDefault("read_timeout", 15*time.Second)
	// scrapes render three pages, keep the write deadline well above the fetch timeout
	v.SetDefault("write_timeout", 120*time.Second)
	v.SetDefault("shutdown_timeout", 30*time.Second)
}

// Load reads configuration from the environment, optionally seeded by a .env
// file in the working directory. Durations need a unit ("300s", "5m").
func Load(logger *zap.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Environment:      v.GetString("environment"),
		LogLevel:         v.GetString("log_level"),
		Port:             v.GetString("port"),
		DBConfig:         v.GetString("db_config"),
		DatabaseURL:      v.GetString("database_url"),
		CacheTTL:         v.GetDuration("cache_ttl"),
		CacheSize:        v.GetInt("cache_size"),
		ScraperBaseURL:   v.GetString("scraper_base_url"),
		ScraperTimeout:   v.GetDuration("scraper_timeout"),
		ScraperUserAgent: v.GetString("scraper_user_agent"),
		DefaultPageSize:  v.GetInt("default_page_size"),
		MaxPageSize:      v.GetInt("max_page_size"),
		MaxPostsPageSize: v.GetInt("max_posts_page_size"),
		ReadTimeout:      v.GetDuration("read_timeout"),
		WriteTimeout:     v.GetDuration("write_timeout"),
		ShutdownTimeout:  v.GetDuration("shutdown_timeout"),
	}
	cfg.normalize(logger)

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("port", cfg.Port),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("cache_size", cfg.CacheSize),
		zap.String("scraper_base_url", cfg.ScraperBaseURL),
	)
	return cfg
}

// normalize replaces unusable values with their defaults
func (c *Config) normalize(logger *zap.Logger) {
	if c.CacheTTL <= 0 {
		logger.Warn("invalid CACHE_TTL, using default", zap.Duration("cache_ttl", c.CacheTTL))
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheSize < 1 {
		logger.Warn("invalid CACHE_SIZE, using default", zap.Int("cache_size", c.CacheSize))
		c.CacheSize = 1024
	}
	if c.MaxPageSize < 1 {
		c.MaxPageSize = 50
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = min(10, c.MaxPageSize)
	}
	if c.MaxPostsPageSize < 1 {
		c.MaxPostsPageSize = 25
	}
	if c.ScraperTimeout <= 0 {
		c.ScraperTimeout = 30 * time.Second
	}
}
