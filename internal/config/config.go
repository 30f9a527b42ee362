package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// ProviderConfig describes the upstream SMM panel.
type ProviderConfig struct {
	URL             string
	APIKey          string
	Timeout         time.Duration
	AsyncCompletion bool
}

// AppConfig is the typed view over viper settings used at startup.
type AppConfig struct {
	Port            string
	JWTSecret       string
	JWTExpiry       time.Duration
	AdminSecret     string
	Provider        ProviderConfig
	PricingCacheTTL time.Duration
	DispatchLease   time.Duration
	VaultMasterKey  string
	VaultSalt       string
	PollerInterval  time.Duration
	TracingEndpoint string
	ServiceName     string
}

var envBindings = map[string]string{
	"database.host":             "DATABASE_HOST",
	"database.port":             "DATABASE_PORT",
	"database.user":             "DATABASE_USER",
	"database.password":         "DATABASE_PASSWORD",
	"database.name":             "DATABASE_NAME",
	"database.ssl_mode":         "DATABASE_SSL_MODE",
	"redis.host":                "REDIS_HOST",
	"redis.port":                "REDIS_PORT",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"server.port":               "PORT",
	"jwt.secret_key":            "JWT_SECRET_KEY",
	"jwt.expiry_hours":          "JWT_EXPIRY_HOURS",
	"admin.secret":              "ADMIN_SECRET",
	"provider.url":              "PROVIDER_URL",
	"provider.key":              "PROVIDER_KEY",
	"provider.timeout":          "PROVIDER_TIMEOUT",
	"provider.async_completion": "PROVIDER_ASYNC_COMPLETION",
	"pricing.cache_ttl":         "PRICING_CACHE_TTL",
	"orders.dispatch_lease":     "ORDERS_DISPATCH_LEASE",
	"vault.master_key":          "VAULT_MASTER_KEY",
	"vault.salt":                "VAULT_SALT",
	"poller.interval":           "POLLER_INTERVAL",
	"tracing.endpoint":          "OTEL_EXPORTER_OTLP_ENDPOINT",
	"tracing.service_name":      "SERVICE_NAME",
}

// Init reads .env (if present) and binds the environment overrides.
func Init(path string) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}
}

// Load applies defaults and returns the application settings.
func Load() *AppConfig {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("jwt.expiry_hours", 24*30)
	viper.SetDefault("provider.timeout", 15*time.Second)
	viper.SetDefault("provider.async_completion", false)
	viper.SetDefault("pricing.cache_ttl", 12*time.Hour)
	viper.SetDefault("orders.dispatch_lease", 2*time.Minute)
	viper.SetDefault("poller.interval", time.Minute)
	viper.SetDefault("tracing.service_name", "wallet-engine")

	return &AppConfig{
		Port:        viper.GetString("server.port"),
		JWTSecret:   viper.GetString("jwt.secret_key"),
		JWTExpiry:   time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour,
		AdminSecret: viper.GetString("admin.secret"),
		Provider: ProviderConfig{
			URL:             viper.GetString("provider.url"),
			APIKey:          viper.GetString("provider.key"),
			Timeout:         viper.GetDuration("provider.timeout"),
			AsyncCompletion: viper.GetBool("provider.async_completion"),
		},
		PricingCacheTTL: viper.GetDuration("pricing.cache_ttl"),
		DispatchLease:   viper.GetDuration("orders.dispatch_lease"),
		VaultMasterKey:  viper.GetString("vault.master_key"),
		VaultSalt:       viper.GetString("vault.salt"),
		PollerInterval:  viper.GetDuration("poller.interval"),
		TracingEndpoint: viper.GetString("tracing.endpoint"),
		ServiceName:     viper.GetString("tracing.service_name"),
	}
}
