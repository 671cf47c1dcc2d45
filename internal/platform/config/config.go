// Package config loads service configuration from file and environment via
// viper, with validated defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the route cache service.
type Config struct {
	Cache         CacheConfig         `mapstructure:"cache"`
	DynamoDB      DynamoDBConfig      `mapstructure:"dynamodb"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Router        RouterConfig        `mapstructure:"router"`
	Warmer        WarmerConfig        `mapstructure:"warmer"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	HTTP          HTTPConfig          `mapstructure:"http"`
}

// CacheConfig governs the route cache store behavior.
type CacheConfig struct {
	// Backend selects the durable store: "dynamodb" or "redis".
	Backend string `mapstructure:"backend"`

	// TTL is how long a stored route stays servable.
	TTL time.Duration `mapstructure:"ttl"`

	// QueryTimeout bounds a single backend call.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// DynamoDBConfig holds the DynamoDB backend settings.
type DynamoDBConfig struct {
	TableName string `mapstructure:"table_name"`
	Endpoint  string `mapstructure:"endpoint"` // optional, for LocalStack
}

// RedisConfig holds the Redis backend settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RouterConfig points at the upstream route computation service.
type RouterConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WarmerConfig governs the cache warmer loop.
type WarmerConfig struct {
	// Interval is how often a full warm cycle runs.
	Interval time.Duration `mapstructure:"interval"`

	// Concurrency bounds the route computations in flight per cycle.
	Concurrency int `mapstructure:"concurrency"`

	// Protocols is the protocol set warmed routes are computed over.
	Protocols []string `mapstructure:"protocols"`
}

// AWSConfig holds shared AWS settings.
type AWSConfig struct {
	Region        string `mapstructure:"region"`
	AlertTopicARN string `mapstructure:"alert_topic_arn"`
}

// ObservabilityConfig holds logging, metrics and tracing settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings. The scrape endpoint is served on
// the shared HTTP port.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TracingConfig holds tracing settings.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HTTPConfig holds HTTP server settings for long-running commands.
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// Load reads configuration from the given file (or the default search path)
// and the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine when env vars carry the config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.backend", "dynamodb")
	v.SetDefault("cache.ttl", "2m")
	v.SetDefault("cache.query_timeout", "150ms")

	v.SetDefault("dynamodb.table_name", "cached-routes")
	v.SetDefault("dynamodb.endpoint", "")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("router.url", "http://localhost:8081/quote")
	v.SetDefault("router.timeout", "5s")

	v.SetDefault("warmer.interval", "30s")
	v.SetDefault("warmer.concurrency", 4)
	v.SetDefault("warmer.protocols", []string{"uniswap_v3", "sushiswap"})

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.alert_topic_arn", "")

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")

	v.SetDefault("http.port", 8080)
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "dynamodb":
		if c.DynamoDB.TableName == "" {
			return fmt.Errorf("dynamodb table name is required")
		}
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Cache.QueryTimeout <= 0 {
		return fmt.Errorf("cache query timeout must be positive")
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("AWS region is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Observability.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Observability.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Observability.Logging.Format)
	}

	return nil
}
