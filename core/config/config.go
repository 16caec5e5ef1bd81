package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// DatabaseConfig holds connection settings for the postgres keyed store.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// RedisConfig holds settings for the optional redis cache backend.
type RedisConfig struct {
	Host     string `yaml:"host" envconfig:"REDIS_HOST"`
	Port     int    `yaml:"port" envconfig:"REDIS_PORT"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// Addr returns the host:port pair for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ProviderConfig describes the upstream timetable endpoint.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"PROVIDER_BASE_URL"`
	Token   string `yaml:"token" envconfig:"PROVIDER_TOKEN"`
	// RequestDelayMS is a fixed pause applied before every outbound call.
	// The provider holds an informal limit of roughly one call per 2s.
	RequestDelayMS int `yaml:"request_delay_ms" envconfig:"PROVIDER_REQUEST_DELAY_MS"`
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"PROVIDER_TIMEOUT_SECONDS"`
}

// RequestDelay returns the configured inter-request pause.
func (p ProviderConfig) RequestDelay() time.Duration {
	return time.Duration(p.RequestDelayMS) * time.Millisecond
}

// Timeout returns the bound on a single provider call.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CacheConfig controls TTLs and the storage backend for cached lookups.
type CacheConfig struct {
	// Backend selects the keyed store: "postgres" or "redis".
	Backend             string `yaml:"backend" envconfig:"CACHE_BACKEND"`
	IdentityTTLMinutes  int    `yaml:"identity_ttl_minutes" envconfig:"CACHE_IDENTITY_TTL_MINUTES"`
	TimetableTTLMinutes int    `yaml:"timetable_ttl_minutes" envconfig:"CACHE_TIMETABLE_TTL_MINUTES"`
	NegativeTTLMinutes  int    `yaml:"negative_ttl_minutes" envconfig:"CACHE_NEGATIVE_TTL_MINUTES"`
	// SweepSpec is a cron expression for purging expired rows; empty disables the sweep.
	SweepSpec string `yaml:"sweep_spec" envconfig:"CACHE_SWEEP_SPEC"`
}

// IdentityTTL returns the TTL for cached group/lecturer lookups.
func (c CacheConfig) IdentityTTL() time.Duration {
	return time.Duration(c.IdentityTTLMinutes) * time.Minute
}

// TimetableTTL returns the TTL for cached timetables.
func (c CacheConfig) TimetableTTL() time.Duration {
	return time.Duration(c.TimetableTTLMinutes) * time.Minute
}

// NegativeTTL returns the TTL for cached not-found lookups.
func (c CacheConfig) NegativeTTL() time.Duration {
	return time.Duration(c.NegativeTTLMinutes) * time.Minute
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Dir     string `yaml:"dir"`
	BotFile string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds settings for per-user inbound rate limiting.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	// CacheBackendPostgres keeps cache entries in the relational store.
	CacheBackendPostgres = "postgres"
	// CacheBackendRedis keeps cache entries in redis with native expiry.
	CacheBackendRedis = "redis"
)

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Provider  ProviderConfig  `yaml:"provider"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills in defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		cfg.Provider.BaseURL = "https://www.asu.ru/timetable"
	}
	cfg.Provider.BaseURL = strings.TrimRight(cfg.Provider.BaseURL, "/")
	if cfg.Provider.Token == "" {
		return fmt.Errorf("provider token is required")
	}
	if cfg.Provider.RequestDelayMS < 0 {
		return fmt.Errorf("provider.request_delay_ms must be >= 0")
	}
	if cfg.Provider.RequestDelayMS == 0 {
		cfg.Provider.RequestDelayMS = 2000
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		cfg.Provider.TimeoutSeconds = 15
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if backend == "" {
		backend = CacheBackendPostgres
	}
	switch backend {
	case CacheBackendPostgres:
	case CacheBackendRedis:
		if strings.TrimSpace(cfg.Redis.Host) == "" {
			return fmt.Errorf("redis.host is required when cache.backend is 'redis'")
		}
		if cfg.Redis.Port <= 0 {
			return fmt.Errorf("redis.port must be > 0 when cache.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid cache.backend %q; allowed: postgres, redis", cfg.Cache.Backend)
	}
	cfg.Cache.Backend = backend

	// Identity resolution is stable, timetables change more often.
	if cfg.Cache.IdentityTTLMinutes <= 0 {
		cfg.Cache.IdentityTTLMinutes = 24 * 60
	}
	if cfg.Cache.TimetableTTLMinutes <= 0 {
		cfg.Cache.TimetableTTLMinutes = 60
	}
	if cfg.Cache.NegativeTTLMinutes <= 0 {
		cfg.Cache.NegativeTTLMinutes = 60
	}

	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 10
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
