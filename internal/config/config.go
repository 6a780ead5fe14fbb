package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application configuration.
var Module = fx.Provide(Load)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	Addr        string
	StaticDir   string

	OTLPEndpoint string

	CatalogPath string

	Billing BillingConfig
}

// BillingConfig configures access to the external billing vendor.
type BillingConfig struct {
	APIKey         string
	PublishableKey string
	WebhookSecret  string
	BaseURL        string
	RequestTimeout time.Duration
	RetryAttempts  int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "subgate"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		Addr:         getenv("HTTP_ADDR", ":4242"),
		StaticDir:    getenv("STATIC_DIR", ""),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		CatalogPath:  getenv("CATALOG_PATH", ""),
		Billing: BillingConfig{
			APIKey:         strings.TrimSpace(getenv("BILLING_SECRET_KEY", os.Getenv("STRIPE_SECRET_KEY"))),
			PublishableKey: strings.TrimSpace(getenv("BILLING_PUBLISHABLE_KEY", os.Getenv("STRIPE_PUBLISHABLE_KEY"))),
			WebhookSecret:  strings.TrimSpace(getenv("BILLING_WEBHOOK_SECRET", os.Getenv("STRIPE_WEBHOOK_SECRET"))),
			BaseURL:        getenv("BILLING_API_BASE_URL", "https://api.stripe.com"),
			RequestTimeout: getenvDuration("BILLING_REQUEST_TIMEOUT", 12*time.Second),
			RetryAttempts:  getenvInt("BILLING_RETRY_ATTEMPTS", 1),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
