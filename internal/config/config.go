// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	minJWTSecretLen = 32
	minBcryptCost   = 4
	maxBcryptCost   = 14
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	Port     string
	LogLevel slog.Level

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	DatabaseDriver string
	DatabasePath   string
	DatabaseURL    string
	DBMaxConns     int32

	JWTSecret      string
	AccessTokenTTL time.Duration
	PasswordHasher string
	BcryptCost     int

	CORSAllowedOrigins []string

	LoginRatePerSec float64
	LoginBurst      float64

	// Parse problems are collected here and reported by Validate.
	errs []error
}

// LoadDotEnv seeds the environment from path if it exists. Variables that
// are already set win over the file.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads Config from environment variables with defaults.
func Load() Config {
	var c Config
	c.Port = envString("PORT", "8080")
	c.LogLevel = c.envLevel("LOG_LEVEL", slog.LevelInfo)

	c.ReadHeaderTimeout = c.envDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	c.ReadTimeout = c.envDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	c.WriteTimeout = c.envDuration("HTTP_WRITE_TIMEOUT", 15*time.Second)
	c.IdleTimeout = c.envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	c.ShutdownTimeout = c.envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	c.DatabaseDriver = strings.ToLower(envString("DATABASE_DRIVER", DriverSQLite))
	c.DatabasePath = envString("DATABASE_PATH", "featurevote.db")
	c.DatabaseURL = envString("DATABASE_URL", "")
	c.DBMaxConns = int32(c.envInt("DB_MAX_CONNS", 10))

	c.JWTSecret = os.Getenv("JWT_SECRET")
	c.AccessTokenTTL = c.envDuration("ACCESS_TOKEN_TTL", 30*time.Minute)
	c.PasswordHasher = strings.ToLower(envString("PASSWORD_HASHER", "bcrypt"))
	c.BcryptCost = c.envInt("BCRYPT_COST", 12)

	c.CORSAllowedOrigins = envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	c.LoginRatePerSec = c.envFloat("LOGIN_RATE_PER_SEC", 1)
	c.LoginBurst = c.envFloat("LOGIN_BURST", 10)
	return c
}

// Validate returns the first configuration problem, or nil.
func (c Config) Validate() error {
	if len(c.errs) > 0 {
		return c.errs[0]
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes for HMAC-SHA256 security", minJWTSecretLen)
	}
	if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", minBcryptCost, maxBcryptCost, c.BcryptCost)
	}
	switch c.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("PASSWORD_HASHER must be bcrypt or argon2id, got %q", c.PasswordHasher)
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.DBMaxConns <= 0 {
		return errors.New("DB_MAX_CONNS must be positive")
	}
	if c.LoginRatePerSec < 0 {
		return errors.New("LOGIN_RATE_PER_SEC must not be negative")
	}
	if c.LoginBurst < 1 {
		return errors.New("LOGIN_BURST must be at least 1")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func (c *Config) envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return f
}

func (c *Config) envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		c.errs = append(c.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return d
}

func (c *Config) envLevel(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		c.errs = append(c.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return level
}
