// Package config provides unified configuration loading for the converter.
// Supports YAML files, .env files, and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the converter.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Credentials   CredentialsConfig   `yaml:"credentials"`
	Blobs         BlobsConfig         `yaml:"blobs"`
	Conversion    ConversionConfig    `yaml:"conversion"`
	OCR           OCRConfig           `yaml:"ocr"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host" env:"SERVER_HOST"`
	Port             int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// AuthConfig holds token and password settings.
type AuthConfig struct {
	SigningKey        string        `yaml:"signing_key" env:"AUTH_SIGNING_KEY"`
	Issuer            string        `yaml:"issuer" env:"AUTH_ISSUER"`
	TokenTTL          time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
	BcryptCost        int           `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST"`
	MinPasswordLength int           `yaml:"min_password_length"`
}

// CredentialsConfig selects and configures the credential store.
type CredentialsConfig struct {
	Driver   string         `yaml:"driver" env:"CREDENTIALS_DRIVER"` // file, sqlite or postgres
	File     FileConfig     `yaml:"file"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// FileConfig holds settings for the single-document credential store.
type FileConfig struct {
	Path string `yaml:"path" env:"CREDENTIALS_FILE"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path" env:"SQLITE_PATH"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn" env:"POSTGRES_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// BlobsConfig selects and configures artifact byte storage.
type BlobsConfig struct {
	Driver      string      `yaml:"driver" env:"BLOBS_DRIVER"` // disk, redis or memory
	Dir         string      `yaml:"dir" env:"BLOBS_DIR"`
	Compression string      `yaml:"compression" env:"BLOBS_COMPRESSION"` // none or zstd
	Redis       RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// SweepGraceMargin is added to the conversion timeout to give the minimum
// age an unreferenced blob must reach before a sweep may delete it.
const SweepGraceMargin = 5 * time.Minute

// ConversionConfig holds pipeline settings.
type ConversionConfig struct {
	Timeout         time.Duration `yaml:"timeout" env:"CONVERSION_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	LocatorPrefix   string        `yaml:"locator_prefix"`
	SweepGraceAfter time.Duration `yaml:"sweep_grace_after"`
}

// MinSweepGrace is the smallest sweep grace period that cannot catch a
// conversion between writing its blob and recording its reference.
func (c ConversionConfig) MinSweepGrace() time.Duration {
	return c.Timeout + SweepGraceMargin
}

// OCRConfig holds settings for the unauthenticated image path.
type OCRConfig struct {
	Enabled       bool          `yaml:"enabled" env:"OCR_ENABLED"`
	TesseractPath string        `yaml:"tesseract_path" env:"TESSERACT_PATH"`
	Language      string        `yaml:"language"`
	MaxImageBytes int64         `yaml:"max_image_bytes"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		cfg.resolvePaths(path)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             5000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   90 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Auth: AuthConfig{
			Issuer:            "doc-converter",
			TokenTTL:          time.Hour,
			BcryptCost:        10,
			MinPasswordLength: 8,
		},
		Credentials: CredentialsConfig{
			Driver: "file",
			File: FileConfig{
				Path: "data/identities.json",
			},
			SQLite: SQLiteConfig{
				Path:         "data/identities.db",
				MaxOpenConns: 4,
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Blobs: BlobsConfig{
			Driver:      "disk",
			Dir:         "data/artifacts",
			Compression: "none",
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "dc:",
			},
		},
		Conversion: ConversionConfig{
			Timeout:         60 * time.Second,
			MaxUploadBytes:  50 * 1024 * 1024,
			LocatorPrefix:   "/api/v1/artifacts",
			SweepGraceAfter: time.Hour,
		},
		OCR: OCRConfig{
			Enabled:       false,
			TesseractPath: "tesseract",
			Language:      "eng",
			MaxImageBytes: 5 * 1024 * 1024,
			Timeout:       60 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "doc-converter",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return fmt.Errorf("auth signing key is required")
	}
	if len(c.Auth.SigningKey) < 32 {
		return fmt.Errorf("auth signing key must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}

	switch c.Credentials.Driver {
	case "file":
		if c.Credentials.File.Path == "" {
			return fmt.Errorf("credentials file path is required")
		}
	case "sqlite":
		if c.Credentials.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if c.Credentials.Postgres.DSN == "" {
			return fmt.Errorf("postgres dsn is required")
		}
	default:
		return fmt.Errorf("invalid credentials driver: %s", c.Credentials.Driver)
	}

	switch c.Blobs.Driver {
	case "disk":
		if c.Blobs.Dir == "" {
			return fmt.Errorf("blobs dir is required")
		}
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid blobs driver: %s", c.Blobs.Driver)
	}

	if c.Blobs.Compression != "none" && c.Blobs.Compression != "zstd" {
		return fmt.Errorf("invalid blobs compression: %s", c.Blobs.Compression)
	}

	if c.Conversion.Timeout <= 0 {
		return fmt.Errorf("conversion timeout must be positive")
	}
	if floor := c.Conversion.MinSweepGrace(); c.Conversion.SweepGraceAfter < floor {
		return fmt.Errorf("sweep grace must be at least %s (conversion timeout plus %s)", floor, SweepGraceMargin)
	}

	return nil
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Credentials.Driver = "sqlite"
			cfg.Credentials.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Credentials.Driver = "postgres"
			cfg.Credentials.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Blobs.Driver = "redis"
		cfg.Blobs.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	return nil
}

// resolvePaths makes relative storage paths relative to the config file.
func (c *Config) resolvePaths(configPath string) {
	c.Credentials.File.Path = ResolveRelativePath(configPath, c.Credentials.File.Path)
	c.Credentials.SQLite.Path = ResolveRelativePath(configPath, c.Credentials.SQLite.Path)
	c.Blobs.Dir = ResolveRelativePath(configPath, c.Blobs.Dir)
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if targetPath == "" || filepath.IsAbs(targetPath) || strings.HasPrefix(targetPath, ":") {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
