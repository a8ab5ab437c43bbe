package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Models     ModelsConfig     `mapstructure:"models"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
	UI         UIConfig         `mapstructure:"ui"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ModelsConfig lists OpenAI-compatible providers the chat page may talk to
// directly when the responder is "endpoint".
type ModelsConfig struct {
	Default   string          `mapstructure:"default"`
	Endpoints []ModelEndpoint `mapstructure:"endpoints"`
}

type ModelEndpoint struct {
	Name        string      `mapstructure:"name" json:"name"`
	DisplayName string      `mapstructure:"display_name" json:"display_name,omitempty"`
	BaseURL     string      `mapstructure:"base_url" json:"base_url"`
	APIKey      string      `mapstructure:"api_key" json:"api_key,omitempty"`
	Models      []ModelInfo `mapstructure:"models" json:"models,omitempty"`
}

type ModelInfo struct {
	ID        string `mapstructure:"id" json:"id"`
	Name      string `mapstructure:"name" json:"name,omitempty"`
	MaxTokens int    `mapstructure:"max_tokens" json:"max_tokens,omitempty"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type MemoryConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type ChatConfig struct {
	// Responder selects how character replies are produced: backend, endpoint or canned.
	Responder      string        `mapstructure:"responder"`
	Provider       string        `mapstructure:"provider"`
	MaxInputLength int           `mapstructure:"max_input_length"`
	ReplyDelay     time.Duration `mapstructure:"reply_delay"`
	LoginDelay     time.Duration `mapstructure:"login_delay"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

type UIConfig struct {
	StatusDuration time.Duration `mapstructure:"status_duration"`
}

// setDefaults registers the values used when no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("models.default", "gpt-3.5-turbo")
	v.SetDefault("models.endpoints", []map[string]interface{}{
		{
			"name":         "openai",
			"display_name": "OpenAI",
			"base_url":     "https://api.openai.com/v1",
			"models": []map[string]interface{}{
				{"id": "gpt-3.5-turbo", "name": "GPT-3.5 Turbo", "max_tokens": 512},
				{"id": "gpt-4o-mini", "name": "GPT-4o mini", "max_tokens": 512},
			},
		},
		{
			"name":         "openrouter",
			"display_name": "OpenRouter",
			"base_url":     "https://openrouter.ai/api/v1",
			"models": []map[string]interface{}{
				{"id": "openrouter/auto", "name": "Auto", "max_tokens": 512},
			},
		},
	})

	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.sqlite.path", defaultDataPath("charchat.db"))
	v.SetDefault("storage.memory.cleanup_interval", 10*time.Minute)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.key_prefix", "charchat:")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_size", 500)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("chat.responder", "backend")
	v.SetDefault("chat.provider", "openrouter")
	v.SetDefault("chat.max_input_length", 4096)
	v.SetDefault("chat.reply_delay", time.Second)
	v.SetDefault("chat.login_delay", time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.file.path", defaultDataPath("logs/charchat.log"))
	v.SetDefault("logging.file.max_size", 10)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)

	v.SetDefault("monitoring.metrics.enabled", false)
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")

	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.languages", []string{"en", "id"})

	v.SetDefault("ui.status_duration", 3*time.Second)
}

func defaultDataPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "charchat", name)
}

// LoadConfig loads configuration from file and environment variables.
// An empty path or a missing file falls back to defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("charchat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.redis.db", "REDIS_DB")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handle Redis address special case
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Storage.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	// Provider keys from the environment fill endpoints that have none configured
	for i := range config.Models.Endpoints {
		endpoint := &config.Models.Endpoints[i]
		if endpoint.APIKey != "" {
			continue
		}
		envName := strings.ToUpper(strings.ReplaceAll(endpoint.Name, "-", "_")) + "_API_KEY"
		endpoint.APIKey = os.Getenv(envName)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	switch cfg.Storage.Type {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	switch cfg.Chat.Responder {
	case "backend", "endpoint", "canned":
	default:
		return fmt.Errorf("unsupported chat responder: %s", cfg.Chat.Responder)
	}
	if cfg.Chat.MaxInputLength <= 0 {
		return fmt.Errorf("chat max input length must be positive")
	}
	return nil
}

// EndpointByName returns the configured provider endpoint with the given name.
func (c *Config) EndpointByName(name string) (*ModelEndpoint, bool) {
	for i := range c.Models.Endpoints {
		if c.Models.Endpoints[i].Name == name {
			return &c.Models.Endpoints[i], true
		}
	}
	return nil, false
}
