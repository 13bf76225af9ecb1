package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Signalboard SignalboardConfig `yaml:"signalboard"`
	Logging     LoggingConfig     `yaml:"logging"`
	Feeds       FeedsConfig       `yaml:"feeds"`
	Engine      EngineConfig      `yaml:"engine"`
	Calendar    CalendarConfig    `yaml:"calendar"`
	Commands    CommandsConfig    `yaml:"commands"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type SignalboardConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// FeedConfig describes one logical live feed. The URL may carry a
// "{broker}" or "{symbol}" placeholder filled in at connect time.
type FeedConfig struct {
	URL            string        `yaml:"url"`
	AutoReconnect  bool          `yaml:"auto_reconnect"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type FeedsConfig struct {
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	Analysis     FeedConfig    `yaml:"analysis"`
	Brokers      FeedConfig    `yaml:"brokers"`
	BrokerDetail FeedConfig    `yaml:"broker_detail"`
	Symbol       FeedConfig    `yaml:"symbol"`
}

type EngineConfig struct {
	// FrameInterval coalesces chart rebuilds under bursts of ticks.
	FrameInterval    time.Duration `yaml:"frame_interval"`
	DefaultSymbol    string        `yaml:"default_symbol"`
	DefaultTimeframe string        `yaml:"default_timeframe"`
}

type CalendarConfig struct {
	URL               string        `yaml:"url"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"`
	SoonWindowMinutes int           `yaml:"soon_window_minutes"`
}

type CommandsConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Token             string        `yaml:"token"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type DashboardConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Address        string `yaml:"address"`
	LogHistory     int    `yaml:"log_history"`
	MetricsHistory int    `yaml:"metrics_history"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Feeds: FeedsConfig{
			DialTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			FrameInterval: 16 * time.Millisecond,
		},
		Calendar: CalendarConfig{
			RefreshInterval:   5 * time.Minute,
			SoonWindowMinutes: 30,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// The command credential normally comes from the environment rather
	// than the config file.
	if v := os.Getenv("SIGNALBOARD_TOKEN"); v != "" {
		config.Commands.Token = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Signalboard.Name == "" {
		return fmt.Errorf("signalboard.name is required")
	}

	if cfg.Signalboard.Version == "" {
		return fmt.Errorf("signalboard.version is required")
	}

	if cfg.Feeds.Analysis.URL == "" {
		return fmt.Errorf("feeds.analysis.url is required")
	}

	if cfg.Feeds.BrokerDetail.URL != "" && !strings.Contains(cfg.Feeds.BrokerDetail.URL, "{broker}") {
		return fmt.Errorf("feeds.broker_detail.url must contain a {broker} placeholder")
	}

	if cfg.Feeds.Symbol.URL != "" && !strings.Contains(cfg.Feeds.Symbol.URL, "{symbol}") {
		return fmt.Errorf("feeds.symbol.url must contain a {symbol} placeholder")
	}

	if cfg.Engine.FrameInterval <= 0 {
		return fmt.Errorf("engine.frame_interval must be greater than 0")
	}

	if cfg.Calendar.SoonWindowMinutes < 0 {
		return fmt.Errorf("calendar.soon_window_minutes must not be negative")
	}

	for _, feed := range []struct {
		name string
		cfg  FeedConfig
	}{
		{"analysis", cfg.Feeds.Analysis},
		{"brokers", cfg.Feeds.Brokers},
		{"broker_detail", cfg.Feeds.BrokerDetail},
		{"symbol", cfg.Feeds.Symbol},
	} {
		if feed.cfg.AutoReconnect && feed.cfg.ReconnectDelay <= 0 {
			return fmt.Errorf("feeds.%s.reconnect_delay must be greater than 0 when auto_reconnect is set", feed.name)
		}
	}

	return nil
}
