package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type Config struct {
	ServerPort         string `envconfig:"SERVER_PORT" default:"8080"`
	FirebaseProject    string `envconfig:"FIREBASE_PROJECT_ID"`
	ServiceAccountJSON string `envconfig:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	ServiceAccountPath string `envconfig:"FIREBASE_SERVICE_ACCOUNT_PATH"`
	Environment        string `envconfig:"ENVIRONMENT" default:"production"`
	StoreDriver        string `envconfig:"STORE_DRIVER" default:"firestore"`
	RedisURL           string `envconfig:"REDIS_URL"`

	AllowedEmailDomain    string `envconfig:"ALLOWED_EMAIL_DOMAIN" default:".edu"`
	OfferPricePropagation bool   `envconfig:"OFFER_PRICE_PROPAGATION" default:"true"`

	RateLimitPerMinute int  `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	RateLimitBurst     int  `envconfig:"RATE_LIMIT_BURST" default:"10"`
	MetricsEnabled     bool `envconfig:"METRICS_ENABLED" default:"true"`

	PushEnabled bool `envconfig:"PUSH_ENABLED" default:"false"`
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch cfg.StoreDriver {
	case StoreFirestore:
		if cfg.FirebaseProject == "" {
			return nil, fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the firestore store")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
