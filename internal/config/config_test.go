package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/featurevote/internal/config"
)

const validSecret = "0123456789abcdef0123456789abcdef"

var configKeys = []string{
	"PORT", "LOG_LEVEL", "HTTP_READ_HEADER_TIMEOUT", "HTTP_READ_TIMEOUT",
	"HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"DATABASE_DRIVER", "DATABASE_PATH", "DATABASE_URL", "DB_MAX_CONNS",
	"JWT_SECRET", "ACCESS_TOKEN_TTL", "PASSWORD_HASHER", "BCRYPT_COST",
	"CORS_ALLOWED_ORIGINS", "LOGIN_RATE_PER_SEC", "LOGIN_BURST",
}

// clearEnv blanks every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", validSecret)

	cfg := config.Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, config.DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "featurevote.db", cfg.DatabasePath)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "bcrypt", cfg.PasswordHasher)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 1.0, cfg.LoginRatePerSec)
	assert.Equal(t, 10.0, cfg.LoginBurst)
	assert.Equal(t, 15*time.Second, cfg.WriteTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/featurevote")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("PASSWORD_HASHER", "argon2id")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := config.Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, config.DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "argon2id", cfg.PasswordHasher)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET environment variable is required"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32 bytes"},
		{"bcrypt cost too low", map[string]string{"BCRYPT_COST": "3"}, "BCRYPT_COST"},
		{"bcrypt cost too high", map[string]string{"BCRYPT_COST": "15"}, "BCRYPT_COST"},
		{"bcrypt cost not a number", map[string]string{"BCRYPT_COST": "twelve"}, "invalid BCRYPT_COST"},
		{"unknown hasher", map[string]string{"PASSWORD_HASHER": "md5"}, "PASSWORD_HASHER"},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mysql"}, "DATABASE_DRIVER"},
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"bad duration", map[string]string{"ACCESS_TOKEN_TTL": "soon"}, "invalid ACCESS_TOKEN_TTL"},
		{"negative duration", map[string]string{"HTTP_READ_TIMEOUT": "-1s"}, "invalid HTTP_READ_TIMEOUT"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "invalid LOG_LEVEL"},
		{"zero burst", map[string]string{"LOGIN_BURST": "0"}, "LOGIN_BURST"},
		{"zero conns", map[string]string{"DB_MAX_CONNS": "0"}, "DB_MAX_CONNS"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", validSecret)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			err := config.Load().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// Unset rather than blank so godotenv may fill them.
	os.Unsetenv("PORT")
	os.Unsetenv("JWT_SECRET")

	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"PORT=7070",
		"JWT_SECRET=" + validSecret,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, config.LoadDotEnv(path))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("JWT_SECRET")
	})

	cfg := config.Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
