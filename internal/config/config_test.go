package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
feed:
  url: "ws://localhost:8080"
  capacity: 250
  highlight_delay: 2s

api:
  addr: ":9090"

archive:
  enabled: true
  db_path: "./data/test.db"
  max_trades: 5000

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

logging:
  level: "debug"
  format: "text"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.URL != "ws://localhost:8080" {
		t.Errorf("Unexpected feed url: %q", cfg.Feed.URL)
	}
	if cfg.Feed.Capacity != 250 {
		t.Errorf("Unexpected capacity: %d", cfg.Feed.Capacity)
	}
	if cfg.Feed.HighlightDelay != 2*time.Second {
		t.Errorf("Unexpected highlight delay: %v", cfg.Feed.HighlightDelay)
	}
	// Not in the file, so the default applies
	if cfg.Feed.HandshakeTimeout != 10*time.Second {
		t.Errorf("Unexpected handshake timeout: %v", cfg.Feed.HandshakeTimeout)
	}
	if cfg.Archive.MaxTrades != 5000 {
		t.Errorf("Unexpected archive max trades: %d", cfg.Archive.MaxTrades)
	}
	if !cfg.API.Enabled || cfg.API.Addr != ":9090" {
		t.Errorf("Unexpected api config: %+v", cfg.API)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.Capacity != 500 {
		t.Errorf("default capacity = %d, want 500", cfg.Feed.Capacity)
	}
	if cfg.Feed.HighlightDelay != 1500*time.Millisecond {
		t.Errorf("default highlight delay = %v, want 1.5s", cfg.Feed.HighlightDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRADESTREAM_FEED_CAPACITY", "42")
	t.Setenv("TRADESTREAM_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.Capacity != 42 {
		t.Errorf("capacity = %d, want 42 from env", cfg.Feed.Capacity)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging level = %q, want warn from env", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func validConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			URL:              "ws://localhost:8080",
			Capacity:         500,
			HighlightDelay:   1500 * time.Millisecond,
			HandshakeTimeout: 10 * time.Second,
			ReadLimit:        64 * 1024,
		},
		API: APIConfig{Enabled: true, Addr: ":8081"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty feed url is allowed",
			mutate:  func(c *Config) { c.Feed.URL = "" },
			wantErr: false,
		},
		{
			name:    "http scheme",
			mutate:  func(c *Config) { c.Feed.URL = "http://localhost:8080" },
			wantErr: true,
		},
		{
			name:    "zero capacity",
			mutate:  func(c *Config) { c.Feed.Capacity = 0 },
			wantErr: true,
		},
		{
			name:    "zero highlight delay",
			mutate:  func(c *Config) { c.Feed.HighlightDelay = 0 },
			wantErr: true,
		},
		{
			name:    "tiny read limit",
			mutate:  func(c *Config) { c.Feed.ReadLimit = 10 },
			wantErr: true,
		},
		{
			name:    "api enabled without addr",
			mutate:  func(c *Config) { c.API.Addr = "" },
			wantErr: true,
		},
		{
			name: "archive enabled with zero cap",
			mutate: func(c *Config) {
				c.Archive = ArchiveConfig{Enabled: true, RotateInterval: time.Minute}
			},
			wantErr: true,
		},
		{
			name: "missing telegram token when enabled",
			mutate: func(c *Config) {
				c.Telegram = TelegramConfig{Enabled: true, ChatID: "1"}
			},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
