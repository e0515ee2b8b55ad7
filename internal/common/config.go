package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Dispatcher  DispatcherConfig `toml:"dispatcher"`
	Research    ResearchConfig   `toml:"research"`
	Resolver    ResolverConfig   `toml:"resolver"`
	Decision    DecisionConfig   `toml:"decision"`
	Lifecycle   LifecycleConfig  `toml:"lifecycle"`
	Notify      NotifyConfig     `toml:"notify"`
	Logging     LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// DispatcherConfig controls the job dispatcher poll loop and concurrency caps.
type DispatcherConfig struct {
	PollInterval     string         `toml:"poll_interval"`     // e.g. "5s" - how often the dispatcher ticks
	MaxTotal         int            `toml:"max_total"`         // Global cap on concurrently running jobs
	MaxConcurrent    map[string]int `toml:"max_concurrent"`    // Per entity category caps (builder, community, home, agent)
	StaleTimeout     string         `toml:"stale_timeout"`     // Running jobs older than this are requeued
	WatchdogSchedule string         `toml:"watchdog_schedule"` // Cron schedule for the stale-job watchdog
	ClaimBatch       int            `toml:"claim_batch"`       // Max pending jobs examined per tick
}

// ResearchConfig configures the knowledge service providers.
type ResearchConfig struct {
	Provider  string       `toml:"provider"`   // "claude" or "gemini"
	MaxTokens int          `toml:"max_tokens"` // Max output size per research request
	Timeout   string       `toml:"timeout"`    // e.g. "3m" - knowledge service call timeout
	RateLimit float64      `toml:"rate_limit"` // Requests per second to the provider
	RateBurst int          `toml:"rate_burst"`
	Claude    ClaudeConfig `toml:"claude"`
	Gemini    GeminiConfig `toml:"gemini"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ResolverConfig configures identity resolution.
type ResolverConfig struct {
	FuzzyThreshold float64 `toml:"fuzzy_threshold"` // Minimum name similarity ratio for tier-4 matches
}

// DecisionConfig configures the auto-approval engine thresholds.
type DecisionConfig struct {
	ApproveThreshold float64 `toml:"approve_threshold"` // Confidence strictly above this auto-approves
	DenyThreshold    float64 `toml:"deny_threshold"`    // Confidence strictly below this auto-denies
}

// LifecycleConfig configures entity lifecycle tracking.
type LifecycleConfig struct {
	GraceDays     int    `toml:"grace_days"`     // Days an unseen entity stays active before deactivation
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule for the grace-period sweep
}

type NotifyConfig struct {
	WebhookURL string `toml:"webhook_url"` // Empty disables webhook delivery
	Timeout    string `toml:"timeout"`     // e.g. "10s"
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/prospectus",
			},
		},
		Dispatcher: DispatcherConfig{
			PollInterval: "5s",
			MaxTotal:     8,
			MaxConcurrent: map[string]int{
				"builder":   3,
				"community": 2,
				"home":      3,
				"agent":     2,
			},
			StaleTimeout:     "30m",
			WatchdogSchedule: "*/10 * * * *",
			ClaimBatch:       50,
		},
		Research: ResearchConfig{
			Provider:  "claude",
			MaxTokens: 8192,
			Timeout:   "3m",
			RateLimit: 0.5,
			RateBurst: 1,
			Claude: ClaudeConfig{
				Model:       "claude-sonnet-4-20250514",
				Temperature: 0.2,
			},
			Gemini: GeminiConfig{
				Model:       "gemini-2.5-flash",
				Temperature: 0.2,
			},
		},
		Resolver: ResolverConfig{
			FuzzyThreshold: 0.85,
		},
		Decision: DecisionConfig{
			ApproveThreshold: 0.90,
			DenyThreshold:    0.75,
		},
		Lifecycle: LifecycleConfig{
			GraceDays:     60,
			SweepSchedule: "0 3 * * *",
		},
		Notify: NotifyConfig{
			Timeout: "10s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration with the defaults -> file(s) -> env
// override chain. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies PROSPECTUS_* environment variables over the
// loaded configuration. Only operationally sensitive values are exposed.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PROSPECTUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("PROSPECTUS_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("PROSPECTUS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.Research.Claude.APIKey == "" {
		config.Research.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.Research.Gemini.APIKey == "" {
		config.Research.Gemini.APIKey = v
	}
	if v := os.Getenv("PROSPECTUS_WEBHOOK_URL"); v != "" {
		config.Notify.WebhookURL = v
	}
}

// Validate checks configuration values that would otherwise fail at an
// awkward point deep in startup.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Dispatcher.PollInterval); err != nil {
		return fmt.Errorf("invalid dispatcher.poll_interval %q: %w", c.Dispatcher.PollInterval, err)
	}
	if _, err := time.ParseDuration(c.Dispatcher.StaleTimeout); err != nil {
		return fmt.Errorf("invalid dispatcher.stale_timeout %q: %w", c.Dispatcher.StaleTimeout, err)
	}
	if _, err := time.ParseDuration(c.Research.Timeout); err != nil {
		return fmt.Errorf("invalid research.timeout %q: %w", c.Research.Timeout, err)
	}
	if c.Dispatcher.MaxTotal < 1 {
		return fmt.Errorf("dispatcher.max_total must be at least 1")
	}
	for category, limit := range c.Dispatcher.MaxConcurrent {
		if limit < 0 {
			return fmt.Errorf("dispatcher.max_concurrent[%s] cannot be negative", category)
		}
	}
	if c.Decision.DenyThreshold > c.Decision.ApproveThreshold {
		return fmt.Errorf("decision.deny_threshold cannot exceed decision.approve_threshold")
	}
	if c.Lifecycle.GraceDays < 1 {
		return fmt.Errorf("lifecycle.grace_days must be at least 1")
	}
	return nil
}

// PollInterval returns the parsed dispatcher poll interval.
func (c *DispatcherConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// StaleTimeoutDuration returns the parsed stale-job timeout.
func (c *DispatcherConfig) StaleTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.StaleTimeout)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// CategoryLimit returns the concurrency cap for an entity category.
// Categories without an explicit cap fall back to the global limit.
func (c *DispatcherConfig) CategoryLimit(category string) int {
	if limit, ok := c.MaxConcurrent[category]; ok {
		return limit
	}
	return c.MaxTotal
}

// TimeoutDuration returns the parsed research call timeout.
func (c *ResearchConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 3 * time.Minute
	}
	return d
}

// TimeoutDuration returns the parsed notification delivery timeout.
func (c *NotifyConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GraceWindow returns the grace period as a duration.
func (c *LifecycleConfig) GraceWindow() time.Duration {
	return time.Duration(c.GraceDays) * 24 * time.Hour
}
