package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// The application is local-first: every path defaults to a subdirectory of
// DATA_DIR so a fresh checkout works without any configuration at all.
type Config struct {
	Env      string `mapstructure:"APP_ENV"` // development | production
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Storage
	DataDir string `mapstructure:"DATA_DIR"`
	DBPath  string `mapstructure:"DB_PATH"`

	// PDF exports
	PDFStoragePath string `mapstructure:"PDF_STORAGE_PATH"`

	// Backup
	BackupIntervalMinutes int `mapstructure:"BACKUP_INTERVAL_MINUTES"`
	BackupKeepLast        int `mapstructure:"BACKUP_KEEP_LAST"`

	// Business
	VATRate int `mapstructure:"VAT_RATE"` // integer percent applied to new invoices
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("DB_PATH", "")
	viper.SetDefault("PDF_STORAGE_PATH", "")
	viper.SetDefault("BACKUP_INTERVAL_MINUTES", 30)
	viper.SetDefault("BACKUP_KEEP_LAST", 10)
	viper.SetDefault("VAT_RATE", 20)

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "ha_autos.db")
	}
	if cfg.PDFStoragePath == "" {
		cfg.PDFStoragePath = filepath.Join(cfg.DataDir, "exports")
	}
	return cfg, nil
}
