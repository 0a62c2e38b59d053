package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
	"github.com/8nevil8/telegram-channel-monitor/internal/usecase"
)

// Config holds all configuration for the application
type Config struct {
	Server            ServerConfig          `mapstructure:"server"`
	Telegram          TelegramConfig        `mapstructure:"telegram"`
	Channels          []string              `mapstructure:"channels"`
	Matching          domain.MatchingConfig `mapstructure:"matching"`
	Products          []domain.Product      `mapstructure:"products"`
	PricePatterns     []domain.PricePattern `mapstructure:"price_patterns"`
	PriceNumberFormat domain.NumberFormat   `mapstructure:"price_number_format"`
	Monitoring        MonitoringConfig      `mapstructure:"monitoring"`
	Notifications     NotificationConfig    `mapstructure:"notifications"`
	RateLimit         RateLimitConfig       `mapstructure:"ratelimit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TelegramConfig holds Bot API configuration
type TelegramConfig struct {
	BotToken    string        `mapstructure:"bot_token"`
	BaseURL     string        `mapstructure:"base_url"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// MonitoringConfig holds message-processing settings
type MonitoringConfig struct {
	MaxAgeDays    int           `mapstructure:"max_age_days"`
	HistoryLimit  int           `mapstructure:"history_limit"`
	SaveMatches   bool          `mapstructure:"save_matches"`
	DatabasePath  string        `mapstructure:"database_path"`
	DedupeTTL     time.Duration `mapstructure:"dedupe_ttl"`
	RetentionDays int           `mapstructure:"retention_days"`
	DebugLogging  bool          `mapstructure:"debug_logging"`
}

// NotificationConfig holds outbound alert settings
type NotificationConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ChatID          string `mapstructure:"chat_id"`
	IncludeLink     bool   `mapstructure:"include_link"`
	IncludeKeywords bool   `mapstructure:"include_keywords"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP    int     `mapstructure:"per_ip"`   // HTTP requests per minute per client IP
	Telegram float64 `mapstructure:"telegram"` // outbound Telegram messages per second
}

// Load loads configuration from config.yaml and MONITOR_* environment
// variables. Env vars override the file; the file is optional.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/telegram-channel-monitor/")

	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Telegram defaults. The empty defaults register the keys with viper so
	// env-only deployments can set them without a config file.
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", "30s")
	v.SetDefault("channels", []string{})

	// Matching defaults mirror the historical behavior: case-insensitive
	// substring matching with regex rules enabled.
	v.SetDefault("matching.case_sensitive", false)
	v.SetDefault("matching.whole_word", false)
	v.SetDefault("matching.regex_enabled", true)

	// Price extraction defaults
	v.SetDefault("price_patterns", usecase.DefaultPricePatterns())

	// Monitoring defaults
	v.SetDefault("monitoring.max_age_days", 0) // 0 disables age filtering
	v.SetDefault("monitoring.history_limit", 100)
	v.SetDefault("monitoring.save_matches", true)
	v.SetDefault("monitoring.database_path", "data/matches.db")
	v.SetDefault("monitoring.dedupe_ttl", "24h")
	v.SetDefault("monitoring.retention_days", 90) // 0 keeps matches forever

	// Notification defaults
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.chat_id", "")
	v.SetDefault("notifications.include_link", true)
	v.SetDefault("notifications.include_keywords", true)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.telegram", 2.0)
}

// validate checks structural invariants. Malformed regex rules are not
// checked here: the matcher disables those per rule at compile time so one
// bad pattern never blocks the rest of the configuration.
func validate(config *Config) error {
	if config.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required (set MONITOR_TELEGRAM_BOT_TOKEN)")
	}

	if len(config.Channels) == 0 {
		return fmt.Errorf("at least one channel must be configured")
	}

	seen := make(map[string]bool, len(config.Products))
	for i, p := range config.Products {
		if p.Name == "" {
			return fmt.Errorf("product %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("product %q: duplicate name", p.Name)
		}
		seen[p.Name] = true

		if len(p.Keywords) == 0 {
			return fmt.Errorf("product %q: at least one keyword is required", p.Name)
		}
		if r := p.PriceRange; r != nil && r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("product %q: price range min %.2f exceeds max %.2f", p.Name, *r.Min, *r.Max)
		}
	}

	return nil
}
