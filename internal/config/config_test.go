package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "converter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAMLAndRelativePaths(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
auth:
  signing_key: "`+testKey+`"
  token_ttl: 30m
credentials:
  driver: file
  file:
    path: state/identities.json
blobs:
  driver: disk
  dir: state/blobs
  compression: zstd
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "state/identities.json"), cfg.Credentials.File.Path)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "state/blobs"), cfg.Blobs.Dir)
	assert.Equal(t, "zstd", cfg.Blobs.Compression)
	// untouched defaults survive
	assert.Equal(t, "doc-converter", cfg.Auth.Issuer)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", testKey)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DATABASE_URL", "sqlite:/var/lib/converter/ids.db")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Credentials.Driver)
	assert.Equal(t, "/var/lib/converter/ids.db", cfg.Credentials.SQLite.Path)
	assert.Equal(t, "redis", cfg.Blobs.Driver)
	assert.Equal(t, "cache:6379", cfg.Blobs.Redis.Addr)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoad_MissingSigningKey(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing key")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"short key", func(c *Config) { c.Auth.SigningKey = "short" }, "at least 32 bytes"},
		{"bad credentials driver", func(c *Config) { c.Credentials.Driver = "mongo" }, "invalid credentials driver"},
		{"postgres without dsn", func(c *Config) { c.Credentials.Driver = "postgres" }, "postgres dsn"},
		{"bad blobs driver", func(c *Config) { c.Blobs.Driver = "s3" }, "invalid blobs driver"},
		{"bad compression", func(c *Config) { c.Blobs.Compression = "lz4" }, "invalid blobs compression"},
		{"zero timeout", func(c *Config) { c.Conversion.Timeout = 0 }, "conversion timeout"},
		{"zero sweep grace", func(c *Config) { c.Conversion.SweepGraceAfter = 0 }, "sweep grace"},
		{"negative sweep grace", func(c *Config) { c.Conversion.SweepGraceAfter = -time.Hour }, "sweep grace"},
		{"sweep grace below timeout", func(c *Config) {
			c.Conversion.Timeout = 10 * time.Minute
			c.Conversion.SweepGraceAfter = 10 * time.Minute
		}, "sweep grace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Auth.SigningKey = testKey
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMinSweepGrace(t *testing.T) {
	c := ConversionConfig{Timeout: time.Minute}
	assert.Equal(t, time.Minute+SweepGraceMargin, c.MinSweepGrace())

	cfg := DefaultConfig()
	cfg.Auth.SigningKey = testKey
	cfg.Conversion.SweepGraceAfter = cfg.Conversion.MinSweepGrace()
	assert.NoError(t, cfg.Validate())
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, "/abs/x", ResolveRelativePath("/etc/c.yaml", "/abs/x"))
	assert.Equal(t, "/etc/x", ResolveRelativePath("/etc/c.yaml", "x"))
	assert.Equal(t, ":memory:", ResolveRelativePath("/etc/c.yaml", ":memory:"))
}
