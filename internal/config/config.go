package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"ERP Ledger"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"erpledger"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		JWTSecret      string   `envconfig:"AUTH_JWT_SECRET" required:"true"`
		Issuer         string   `envconfig:"AUTH_ISSUER" default:"erp"`
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	Cache struct {
		Capacity int           `envconfig:"CACHE_CAPACITY" default:"500"`
		TTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	}

	Currency struct {
		RatesFile string `envconfig:"CURRENCY_RATES_FILE"`
	}

	Budget struct {
		AlertThreshold decimal.Decimal `envconfig:"BUDGET_ALERT_THRESHOLD" default:"90"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET must not be empty")
	}

	if cfg.Cache.Capacity <= 0 {
		return nil, fmt.Errorf("CACHE_CAPACITY must be positive, got %d", cfg.Cache.Capacity)
	}

	if !cfg.Budget.AlertThreshold.IsPositive() {
		return nil, fmt.Errorf("BUDGET_ALERT_THRESHOLD must be positive, got %s", cfg.Budget.AlertThreshold)
	}

	return &cfg, nil
}
