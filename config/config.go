package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every process-level setting. Values come from the environment
// once at startup; request handlers receive the struct explicitly instead of
// reading env vars themselves.
type Config struct {
	ListenAddr       string
	SecretKey        []byte
	AdminUser        string
	AdminPass        string
	AccessTokenTTL   time.Duration
	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
}

// Load reads configuration from environment variables, falling back to
// development defaults. SECRET_KEY and ADMIN_PASSWORD have no default and
// must be set.
func Load() (*Config, error) {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		return nil, fmt.Errorf("SECRET_KEY must be set")
	}
	adminPass := os.Getenv("ADMIN_PASSWORD")
	if adminPass == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD must be set")
	}

	ttlMinutes := 30
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %q", v)
		}
		ttlMinutes = n
	}

	port := 5432
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_PORT: %q", v)
		}
		port = n
	}

	return &Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		SecretKey:        []byte(secret),
		AdminUser:        getenv("ADMIN_USER", "admin"),
		AdminPass:        adminPass,
		AccessTokenTTL:   time.Duration(ttlMinutes) * time.Minute,
		DatabaseHost:     getenv("DATABASE_HOST", "localhost"),
		DatabasePort:     port,
		DatabaseUser:     getenv("POSTGRES_USER", "postgres"),
		DatabasePassword: os.Getenv("POSTGRES_PASSWORD"),
		DatabaseName:     getenv("POSTGRES_DB", "ledger"),
	}, nil
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUser, c.DatabasePassword, c.DatabaseName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
