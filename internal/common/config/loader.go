package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overrides, e.g. config.production.yaml
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "match-engine"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Database.Postgres.PoolSize == 0 {
		cfg.Database.Postgres.PoolSize = 10
	}
	if cfg.Database.Postgres.MaxOverflow == 0 {
		cfg.Database.Postgres.MaxOverflow = 20
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.Timeout == 0 {
		cfg.Embedder.Timeout = 30000
	}
	if cfg.Matching.ChunkSize == 0 {
		cfg.Matching.ChunkSize = 50
	}
	if cfg.Matching.PoolWorkers == 0 {
		cfg.Matching.PoolWorkers = 4
	}
	if cfg.Matching.TopN == 0 {
		cfg.Matching.TopN = 10
	}
	if cfg.Matching.MinFeedback == 0 {
		cfg.Matching.MinFeedback = 3
	}
	if cfg.Matching.CacheTTL == 0 {
		cfg.Matching.CacheTTL = 3600
	}
	if cfg.Matching.CacheMaxItems == 0 {
		cfg.Matching.CacheMaxItems = 1024
	}
	if cfg.Matching.CulturalTTL == 0 {
		cfg.Matching.CulturalTTL = 600
	}
	if cfg.Matching.AlgoVersion == "" {
		cfg.Matching.AlgoVersion = "v2.1-ml"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Embedder.BaseURL == "" {
		return fmt.Errorf("embedder.base_url is required")
	}
	if cfg.Matching.ChunkSize < 1 {
		return fmt.Errorf("matching.chunk_size must be positive")
	}
	if cfg.Matching.PoolWorkers < 1 {
		return fmt.Errorf("matching.pool_workers must be positive")
	}
	return nil
}
