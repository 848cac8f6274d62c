package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	API      APIConfig      `mapstructure:"api"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedConfig holds the trade feed connection and in-memory view settings
type FeedConfig struct {
	URL              string        `mapstructure:"url"` // empty = wait for an explicit connect
	Capacity         int           `mapstructure:"capacity"`
	HighlightDelay   time.Duration `mapstructure:"highlight_delay"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReadLimit        int64         `mapstructure:"read_limit"`
}

// APIConfig holds the HTTP command surface settings
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// ArchiveConfig holds the optional SQLite trade archive settings
type ArchiveConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	DBPath         string        `mapstructure:"db_path"`
	MaxTrades      int           `mapstructure:"max_trades"`
	RotateInterval time.Duration `mapstructure:"rotate_interval"`
}

// TelegramConfig holds Telegram alert configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputFile string `mapstructure:"output_file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("TRADESTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Feed defaults
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.capacity", 500)
	v.SetDefault("feed.highlight_delay", "1500ms")
	v.SetDefault("feed.handshake_timeout", "10s")
	v.SetDefault("feed.read_limit", 64*1024)

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.addr", ":8081")

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.db_path", "")
	v.SetDefault("archive.max_trades", 100000)
	v.SetDefault("archive.rotate_interval", "1m")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 7)
	v.SetDefault("logging.compress", false)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Feed config
	if c.Feed.URL != "" {
		u, err := url.Parse(c.Feed.URL)
		if err != nil {
			return fmt.Errorf("feed.url is not a valid URL: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("feed.url must use the ws or wss scheme")
		}
	}
	if c.Feed.Capacity < 1 {
		return fmt.Errorf("feed.capacity must be at least 1")
	}
	if c.Feed.HighlightDelay <= 0 {
		return fmt.Errorf("feed.highlight_delay must be positive")
	}
	if c.Feed.HandshakeTimeout <= 0 {
		return fmt.Errorf("feed.handshake_timeout must be positive")
	}
	if c.Feed.ReadLimit < 1024 {
		return fmt.Errorf("feed.read_limit must be at least 1024 bytes")
	}

	// Validate API config
	if c.API.Enabled && c.API.Addr == "" {
		return fmt.Errorf("api.addr is required when api is enabled")
	}

	// Validate Archive config
	if c.Archive.Enabled {
		if c.Archive.MaxTrades < 1 {
			return fmt.Errorf("archive.max_trades must be at least 1")
		}
		if c.Archive.RotateInterval < time.Second {
			return fmt.Errorf("archive.rotate_interval must be at least 1 second")
		}
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
