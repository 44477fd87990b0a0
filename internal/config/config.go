// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"telegram-translation-bot/internal/domain"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | webhook
	Username string  `yaml:"username"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

type WebhookConfig struct {
	PublicURL    string        `yaml:"public_url"` // registered with Telegram when set
	Path         string        `yaml:"path"`
	SecretToken  string        `yaml:"secret_token"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	RetryAfter   time.Duration `yaml:"retry_after"` // hinted to Telegram on overload
}

type IngestConfig struct {
	QueueSize   int           `yaml:"queue_size"`
	PollTimeout int           `yaml:"poll_timeout"` // long-poll seconds
	PollBackoff time.Duration `yaml:"poll_backoff"` // pause while the queue is full
	DedupWindow time.Duration `yaml:"dedup_window"`
	Webhook     WebhookConfig `yaml:"webhook"`
}

type DispatchConfig struct {
	Workers        int           `yaml:"workers"`
	ChatBacklog    int           `yaml:"chat_backlog"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffCap     time.Duration `yaml:"backoff_cap"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	IdleLaneTTL    time.Duration `yaml:"idle_lane_ttl"`
}

type TranslationConfig struct {
	Providers       []string      `yaml:"providers"` // configured fallback candidates
	DefaultTargets  []string      `yaml:"default_targets"`
	CallTimeout     time.Duration `yaml:"call_timeout"` // per provider call
	ConcurrentLimit int           `yaml:"concurrent_limit"`
	HealthHalfLife  time.Duration `yaml:"health_half_life"`

	DeepLKey      string `yaml:"deepl_key"`
	LibreURL      string `yaml:"libre_url"`
	LibreKey      string `yaml:"libre_key"`
	MyMemoryEmail string `yaml:"mymemory_email"`
	OpenAIKey     string `yaml:"openai_key"`
	OpenAIModel   string `yaml:"openai_model"`
	GeminiKey     string `yaml:"gemini_key"`
	GeminiURL     string `yaml:"gemini_url"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type JanitorConfig struct {
	Interval        time.Duration `yaml:"interval"`
	LedgerRetention time.Duration `yaml:"ledger_retention"`
	SessionIdle     time.Duration `yaml:"session_idle"`
}

type I18nConfig struct {
	DefaultLocale string `yaml:"default_locale"`
}

type Config struct {
	Bot         BotConfig         `yaml:"bot"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Translation TranslationConfig `yaml:"translation"`
	Log         LogConfig         `yaml:"log"`
	HTTP        HTTPConfig        `yaml:"http"`
	Admin       AdminConfig       `yaml:"admin"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Janitor     JanitorConfig     `yaml:"janitor"`
	I18n        I18nConfig        `yaml:"i18n"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load reads and validates the YAML config at path. Flag parsing stays in
// main so tests can call Load directly.
func Load(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation. Dev runs may skip the token and get the noop
	// bot adapter instead.
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Bot.Mode != "polling" && cfg.Bot.Mode != "webhook" {
		return nil, fmt.Errorf("bot.mode must be polling or webhook, got %q", cfg.Bot.Mode)
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Admin.Port > 0 && cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required when admin.port is set")
	}
	for _, lang := range cfg.Translation.DefaultTargets {
		if !domain.IsSupportedLang(lang) {
			return nil, fmt.Errorf("translation.default_targets: unsupported language %q", lang)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Ingest.QueueSize <= 0 {
		cfg.Ingest.QueueSize = 256
	}
	if cfg.Ingest.PollTimeout <= 0 {
		cfg.Ingest.PollTimeout = 50
	}
	if cfg.Ingest.PollBackoff <= 0 {
		cfg.Ingest.PollBackoff = time.Second
	}
	if cfg.Ingest.DedupWindow <= 0 {
		cfg.Ingest.DedupWindow = 10 * time.Minute
	}
	if cfg.Ingest.Webhook.Path == "" {
		cfg.Ingest.Webhook.Path = "/telegram/webhook"
	}
	if cfg.Ingest.Webhook.MaxBodyBytes <= 0 {
		cfg.Ingest.Webhook.MaxBodyBytes = 1 << 20
	}
	if cfg.Ingest.Webhook.RetryAfter <= 0 {
		cfg.Ingest.Webhook.RetryAfter = time.Second
	}
	if cfg.Dispatch.Workers <= 0 {
		cfg.Dispatch.Workers = 8
	}
	if cfg.Dispatch.ChatBacklog <= 0 {
		cfg.Dispatch.ChatBacklog = 16
	}
	if cfg.Dispatch.MaxAttempts <= 0 {
		cfg.Dispatch.MaxAttempts = 4
	}
	if cfg.Dispatch.BackoffBase <= 0 {
		cfg.Dispatch.BackoffBase = 500 * time.Millisecond
	}
	if cfg.Dispatch.BackoffCap <= 0 {
		cfg.Dispatch.BackoffCap = 30 * time.Second
	}
	if cfg.Dispatch.RequestTimeout <= 0 {
		cfg.Dispatch.RequestTimeout = 2 * time.Minute
	}
	if cfg.Dispatch.IdleLaneTTL <= 0 {
		cfg.Dispatch.IdleLaneTTL = 5 * time.Minute
	}
	if len(cfg.Translation.Providers) == 0 {
		cfg.Translation.Providers = []string{"libretranslate", "mymemory"}
	}
	if len(cfg.Translation.DefaultTargets) == 0 {
		cfg.Translation.DefaultTargets = []string{"en"}
	}
	if cfg.Translation.CallTimeout <= 0 {
		cfg.Translation.CallTimeout = 10 * time.Second
	}
	if cfg.Translation.ConcurrentLimit <= 0 {
		cfg.Translation.ConcurrentLimit = 16
	}
	if cfg.Translation.HealthHalfLife <= 0 {
		cfg.Translation.HealthHalfLife = 5 * time.Minute
	}
	if cfg.Translation.LibreURL == "" {
		cfg.Translation.LibreURL = "https://libretranslate.com"
	}
	if cfg.Translation.OpenAIModel == "" {
		cfg.Translation.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 5
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = 15 * time.Second
	}
	if cfg.Janitor.Interval <= 0 {
		cfg.Janitor.Interval = 10 * time.Minute
	}
	if cfg.Janitor.LedgerRetention <= 0 {
		cfg.Janitor.LedgerRetention = 24 * time.Hour
	}
	if cfg.Janitor.SessionIdle <= 0 {
		cfg.Janitor.SessionIdle = 30 * 24 * time.Hour
	}
	if cfg.I18n.DefaultLocale == "" {
		cfg.I18n.DefaultLocale = "en"
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
