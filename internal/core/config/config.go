package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/duplicates"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OEM       OEMConfig
	Duplicate DuplicateConfig
	Session   SessionConfig
	JWTSecret string
}

type AppConfig struct {
	Env  string
	Host string
}

func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DatabaseConfig struct {
	URL           string
	MigrationsDir string
}

// RedisConfig is optional. Without an address locks stay in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type OEMConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type DuplicateConfig struct {
	WindowHours      int
	AllowDuplicates  bool
	AlertOnDuplicate bool
	ExcludedParts    []string
}

func (d DuplicateConfig) Policy() duplicates.Policy {
	return duplicates.Policy{
		WindowHours:      d.WindowHours,
		AllowDuplicates:  d.AllowDuplicates,
		AlertOnDuplicate: d.AlertOnDuplicate,
		ExcludedParts:    d.ExcludedParts,
	}
}

type SessionConfig struct {
	TTL         time.Duration
	LockTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_HOST", ":8080")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("OEM_TIMEOUT", 30*time.Second)
	v.SetDefault("DUPLICATE_WINDOW_HOURS", 24)
	v.SetDefault("ALLOW_DUPLICATES", false)
	v.SetDefault("ALERT_ON_DUPLICATE", false)
	v.SetDefault("DUPLICATE_EXCLUDED_PARTS", "")
	v.SetDefault("SESSION_TTL", 12*time.Hour)
	v.SetDefault("LOCK_TIMEOUT", 10*time.Second)
}

// Load reads .env (system variables win) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("APP_ENV"),
			Host: v.GetString("APP_HOST"),
		},
		Database: DatabaseConfig{
			URL:           v.GetString("DATABASE_URL"),
			MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		OEM: OEMConfig{
			BaseURL:      v.GetString("OEM_BASE_URL"),
			TokenURL:     v.GetString("OEM_TOKEN_URL"),
			ClientID:     v.GetString("OEM_CLIENT_ID"),
			ClientSecret: v.GetString("OEM_CLIENT_SECRET"),
			Timeout:      v.GetDuration("OEM_TIMEOUT"),
		},
		Duplicate: DuplicateConfig{
			WindowHours:      v.GetInt("DUPLICATE_WINDOW_HOURS"),
			AllowDuplicates:  v.GetBool("ALLOW_DUPLICATES"),
			AlertOnDuplicate: v.GetBool("ALERT_ON_DUPLICATE"),
			ExcludedParts:    splitList(v.GetString("DUPLICATE_EXCLUDED_PARTS")),
		},
		Session: SessionConfig{
			TTL:         v.GetDuration("SESSION_TTL"),
			LockTimeout: v.GetDuration("LOCK_TIMEOUT"),
		},
		JWTSecret: v.GetString("JWT_SECRET"),
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.OEM.BaseURL == "" {
		errs = append(errs, errors.New("OEM_BASE_URL is not set"))
	}
	if c.Duplicate.WindowHours < 0 {
		errs = append(errs, fmt.Errorf("DUPLICATE_WINDOW_HOURS must not be negative, got %d", c.Duplicate.WindowHours))
	}
	if c.Session.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("LOCK_TIMEOUT must be positive, got %s", c.Session.LockTimeout))
	}
	return errors.Join(errs...)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
