package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Routing   RoutingConfig
	Providers map[string]ProviderConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// RedisConfig holds Redis connection settings for the webhook
// idempotency store. Leaving Host empty selects the in-memory store.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RoutingConfig holds vendor-manager routing settings
type RoutingConfig struct {
	// ProviderTimeout bounds each provider call during fan-out operations
	ProviderTimeout time.Duration
	// DefaultDropshipVendor receives orders no POD vendor can take
	DefaultDropshipVendor string
	// WebhookDedupTTL is how long webhook transaction ids are remembered
	WebhookDedupTTL time.Duration
}

// ProviderConfig is the raw per-provider descriptor as it appears under
// [providers.<id>] in the config file. The credential registry turns it
// into an immutable vendor.ProviderDescriptor.
type ProviderConfig struct {
	Kind                string            `mapstructure:"kind"`
	Enabled             bool              `mapstructure:"enabled"`
	Credentials         map[string]string `mapstructure:"credentials"`
	SupportedCategories []string          `mapstructure:"supported_categories"`
	SupportedCountries  []string          `mapstructure:"supported_countries"`
	Priority            int               `mapstructure:"priority"`
	AvgProcessingDays   int               `mapstructure:"avg_processing_days"`
	BaseURL             string            `mapstructure:"base_url"`
	TimeoutSeconds      int               `mapstructure:"timeout_seconds"`
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with CREATOR_ prefix (e.g. CREATOR_REDIS_HOST)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CREATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Routing: RoutingConfig{
			ProviderTimeout:       v.GetDuration("routing.provider_timeout"),
			DefaultDropshipVendor: v.GetString("routing.default_dropship_vendor"),
			WebhookDedupTTL:       v.GetDuration("routing.webhook_dedup_ttl"),
		},
		Providers: make(map[string]ProviderConfig),
	}

	if err := v.UnmarshalKey("providers", &cfg.Providers); err != nil {
		return nil, fmt.Errorf("error parsing provider descriptors: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "creator-commerce")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("routing.provider_timeout", 12*time.Second)
	v.SetDefault("routing.default_dropship_vendor", "cjdropshipping")
	v.SetDefault("routing.webhook_dedup_ttl", 24*time.Hour)
}

// RedisAddr returns the host:port address, or "" when Redis is not configured
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
