// Package config handles loading and validation of service configuration.
// Supports both development (env vars, .env) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
)

// Config holds all service configuration.
// Environment determines whether store secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	SecretName string

	// Storefront behaviour
	MinClientVersion string
	DefaultCurrency  string
	CurrencyPlaces   int

	// Bundle fallback store. An empty DatabasePath keeps records in memory.
	DatabasePath    string
	BundleRetention time.Duration

	// Events. No brokers means events are dropped.
	KafkaBrokers []string
	KafkaTopic   string

	// ChromeTLS presents a browser TLS fingerprint to upstreams behind bot protection.
	ChromeTLS bool

	// Store secrets (loaded from Secret Manager in production)
	Store StoreConfig
}

// StoreConfig contains the upstream credentials.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type StoreConfig struct {
	StoreURL       string `json:"store_url"`
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`

	MyFatoorahAPIKey string `json:"myfatoorah_api_key,omitempty"`
	MyFatoorahURL    string `json:"myfatoorah_url,omitempty"`

	// SyncSecret guards the refund and payment sync endpoints.
	// Empty leaves them open, which validation only allows outside production.
	SyncSecret string `json:"sync_secret,omitempty"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Outside production a .env file in the working directory is loaded first;
// variables already set in the environment win.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	retention, err := durationEnv("BUNDLE_RETENTION", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	places, err := intEnv("CURRENCY_PLACES", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:             envOrDefault("PORT", "8080"),
		Environment:      envOrDefault("ENVIRONMENT", "development"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		GCPProject:       os.Getenv("GCP_PROJECT"),
		SecretName:       envOrDefault("SECRET_NAME", "storefront-proxy"),
		MinClientVersion: os.Getenv("MIN_CLIENT_VERSION"),
		DefaultCurrency:  strings.ToUpper(envOrDefault("DEFAULT_CURRENCY", "KWD")),
		CurrencyPlaces:   places,
		DatabasePath:     os.Getenv("DATABASE_PATH"),
		BundleRetention:  retention,
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       envOrDefault("KAFKA_TOPIC", "storefront.orders"),
		ChromeTLS:        os.Getenv("CHROME_TLS") == "true",
	}

	if cfg.IsProduction() {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port             string      `json:"port"`
		Environment      string      `json:"environment"`
		LogLevel         string      `json:"log_level"`
		MinClientVersion string      `json:"min_client_version"`
		DefaultCurrency  string      `json:"default_currency"`
		CurrencyPlaces   int         `json:"currency_places"`
		DatabasePath     string      `json:"database_path"`
		BundleRetention  string      `json:"bundle_retention"`
		KafkaBrokers     []string    `json:"kafka_brokers"`
		KafkaTopic       string      `json:"kafka_topic"`
		ChromeTLS        bool        `json:"chrome_tls"`
		Store            StoreConfig `json:"store"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	retention := 30 * 24 * time.Hour
	if fileConfig.BundleRetention != "" {
		retention, err = time.ParseDuration(fileConfig.BundleRetention)
		if err != nil {
			return nil, fmt.Errorf("invalid bundle_retention: %w", err)
		}
	}

	cfg := &Config{
		Port:             withDefault(fileConfig.Port, "8080"),
		Environment:      withDefault(fileConfig.Environment, "development"),
		LogLevel:         withDefault(fileConfig.LogLevel, "info"),
		MinClientVersion: fileConfig.MinClientVersion,
		DefaultCurrency:  strings.ToUpper(withDefault(fileConfig.DefaultCurrency, "KWD")),
		CurrencyPlaces:   fileConfig.CurrencyPlaces,
		DatabasePath:     fileConfig.DatabasePath,
		BundleRetention:  retention,
		KafkaBrokers:     fileConfig.KafkaBrokers,
		KafkaTopic:       withDefault(fileConfig.KafkaTopic, "storefront.orders"),
		ChromeTLS:        fileConfig.ChromeTLS,
		Store:            fileConfig.Store,
	}
	if cfg.CurrencyPlaces <= 0 {
		cfg.CurrencyPlaces = 3
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches store credentials from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{name}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretName)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads store credentials from individual environment variables.
func (c *Config) loadFromEnv() {
	c.Store = StoreConfig{
		StoreURL:         os.Getenv("WC_STORE_URL"),
		ConsumerKey:      os.Getenv("WC_CONSUMER_KEY"),
		ConsumerSecret:   os.Getenv("WC_CONSUMER_SECRET"),
		MyFatoorahAPIKey: os.Getenv("MYFATOORAH_API_KEY"),
		MyFatoorahURL:    os.Getenv("MYFATOORAH_URL"),
		SyncSecret:       os.Getenv("SYNC_SECRET"),
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Store.StoreURL == "" {
		return fmt.Errorf("store_url is required")
	}
	u, err := url.Parse(c.Store.StoreURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid store_url %q", c.Store.StoreURL)
	}
	if c.Store.ConsumerKey == "" {
		return fmt.Errorf("consumer_key is required")
	}
	if c.Store.ConsumerSecret == "" {
		return fmt.Errorf("consumer_secret is required")
	}
	if c.IsProduction() && c.PaymentsEnabled() && c.Store.SyncSecret == "" {
		return fmt.Errorf("sync_secret is required in production when payments are enabled")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("kafka_topic is required when brokers are set")
	}
	return nil
}

// PaymentsEnabled reports whether the MyFatoorah routes can be served.
func (c *Config) PaymentsEnabled() bool {
	return c.Store.MyFatoorahAPIKey != ""
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func durationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, val)
	}
	return n, nil
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
