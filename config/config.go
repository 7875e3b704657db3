package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the aggregation proxy. It is built once
// at startup and passed by reference into every component; nothing reads the
// environment after that.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Membit    MembitConfig    `mapstructure:"membit"`
	Flowise   FlowiseConfig   `mapstructure:"flowise"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MembitConfig contains the social-analytics API settings. A missing APIKey
// is a valid state: proxy endpoints answer 500 per request instead of the
// process refusing to start.
type MembitConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FlowiseConfig contains the chat backend settings. The API key is optional;
// when present it doubles as the secondary auth scheme for the 401 fallback.
type FlowiseConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenAIConfig contains the chat-completion provider settings. A missing
// APIKey downgrades predictions to the rule-based fallback.
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	CompletionModel string        `mapstructure:"completion_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// CacheConfig selects and tunes the query cache backend.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`
	Sweep   time.Duration `mapstructure:"sweep"` // 0 disables the janitor
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("cache.redis.host required when cache.backend is redis")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("cache.redis.port required when cache.backend is redis")
	}
	return nil
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func (c CacheConfig) Validate() error {
	switch c.Backend {
	case "", "memory":
	case "redis":
		return c.Redis.Validate()
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Backend)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0")
	}
	return nil
}

// LoadConfig loads config from an optional file plus PULSE_* environment
// variables. The file is optional because most deployments configure the
// proxy purely through the environment.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	// credential keys get empty defaults so AutomaticEnv can populate them
	// through Unmarshal even without a config file
	viper.SetDefault("membit.api_key", "")
	viper.SetDefault("flowise.url", "")
	viper.SetDefault("flowise.api_key", "")
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("cache.redis.host", "")
	viper.SetDefault("cache.redis.port", "")
	viper.SetDefault("cache.redis.password", "")
	viper.SetDefault("server.address", ":8787")
	viper.SetDefault("server.request_timeout", 60*time.Second)
	viper.SetDefault("membit.base_url", "https://api.membit.ai/v1")
	viper.SetDefault("membit.timeout", 20*time.Second)
	viper.SetDefault("flowise.timeout", 60*time.Second)
	viper.SetDefault("openai.completion_model", "gpt-3.5-turbo")
	viper.SetDefault("openai.temperature", 0.2)
	viper.SetDefault("openai.max_tokens", 800)
	viper.SetDefault("openai.timeout", 45*time.Second)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttl", 30*time.Second)
	viper.SetDefault("cache.sweep", 5*time.Minute)
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // PULSE_MEMBIT_API_KEY, PULSE_OPENAI_API_KEY, ...

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("fatal error config file: %w", err)
	}
	if err := config.Cache.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
