// Package config loads the daemon configuration: defaults, an optional YAML
// file, then EMBER_* environment overrides, in that order.
package config

import (
	"encoding/base64"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/remind"
	"github.com/emberloop/ember/schedule"
)

type (
	// Config is the full daemon configuration.
	Config struct {
		// DefaultTimezone is the IANA zone used when a goal carries none.
		DefaultTimezone string `yaml:"defaultTimezone"`

		Redis      Redis      `yaml:"redis"`
		Encryption Encryption `yaml:"encryption"`
		LLM        LLM        `yaml:"llm"`
		Reminders  Reminders  `yaml:"reminders"`
		Archive    Archive    `yaml:"archive"`
		Dispatch   Dispatch   `yaml:"dispatch"`

		// MasteryThreshold is the consecutive-pass bar for skills.
		MasteryThreshold int `yaml:"masteryThreshold"`
		// DrillDays is how many daily drills are scheduled per skill.
		DrillDays int `yaml:"drillDays"`
	}

	// Redis locates the KV backend.
	Redis struct {
		// URL is a redis:// connection string.
		URL string `yaml:"url"`
	}

	// Encryption configures the store's AEAD envelope cipher. An empty key
	// disables encryption at rest (payloads stay integrity-hashed).
	Encryption struct {
		// KeyID names the active key.
		KeyID string `yaml:"keyId"`
		// KeyVersion tracks rotation.
		KeyVersion int `yaml:"keyVersion"`
		// Key is the base64-encoded 32-byte AES-256 key.
		Key string `yaml:"key"`
	}

	// LLM selects and tunes the curriculum provider.
	LLM struct {
		// Provider is one of "anthropic", "openai", "bedrock", or "" to run
		// without curriculum generation.
		Provider string `yaml:"provider"`
		// APIKey authenticates anthropic and openai. Bedrock uses the
		// ambient AWS credential chain.
		APIKey string `yaml:"apiKey"`
		// Model overrides the provider default model.
		Model string `yaml:"model"`
		// Region is the AWS region for bedrock.
		Region string `yaml:"region"`
		// Temperature is the sampling temperature for generation.
		Temperature float64 `yaml:"temperature"`
		// TokensPerMinute budgets the adaptive rate limiter.
		TokensPerMinute float64 `yaml:"tokensPerMinute"`
	}

	// Reminders is the stock reminder policy applied to new goals.
	Reminders struct {
		Enabled            bool     `yaml:"enabled"`
		FirstHour          int      `yaml:"firstHour"`
		LastHour           int      `yaml:"lastHour"`
		IntervalHours      int      `yaml:"intervalHours"`
		MaxPerDay          int      `yaml:"maxPerDay"`
		ShrinkOnEscalation bool     `yaml:"shrinkOnEscalation"`
		Channels           []string `yaml:"channels"`
	}

	// Archive locates the optional curriculum archive.
	Archive struct {
		// MongoURI enables the durable archive when set; empty keeps the
		// in-memory twin.
		MongoURI string `yaml:"mongoUri"`
		// Database defaults to "ember".
		Database string `yaml:"database"`
	}

	// Dispatch paces the reminder dispatcher.
	Dispatch struct {
		// TickInterval is the dispatch loop period.
		TickInterval time.Duration `yaml:"tickInterval"`
		// Distributed elects one dispatching node per tick via a pulse pool
		// when true; false runs a process-local ticker.
		Distributed bool `yaml:"distributed"`
		// PoolName names the pulse pool nodes join.
		PoolName string `yaml:"poolName"`
	}
)

// Default returns the stock configuration.
func Default() Config {
	return Config{
		DefaultTimezone: schedule.DefaultTimezone,
		Redis:           Redis{URL: "redis://localhost:6379"},
		Encryption:      Encryption{KeyID: "primary", KeyVersion: 1},
		LLM: LLM{
			Temperature:     0.7,
			TokensPerMinute: 60000,
		},
		Reminders: Reminders{
			Enabled:            true,
			FirstHour:          remind.DefaultFirstHour,
			LastHour:           remind.DefaultLastHour,
			IntervalHours:      remind.DefaultIntervalHours,
			MaxPerDay:          remind.DefaultMaxPerDay,
			ShrinkOnEscalation: true,
			Channels:           []string{string(domain.ChannelPush)},
		},
		Archive: Archive{Database: "ember"},
		Dispatch: Dispatch{
			TickInterval: remind.DefaultTickInterval,
			PoolName:     "ember:dispatch",
		},
		MasteryThreshold: domain.DefaultMasteryThreshold,
		DrillDays:        domain.DefaultMasteryThreshold,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// when path is non-empty, then environment overrides. The result is
// validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, domain.WrapError(domain.KindValidation, err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, domain.WrapError(domain.KindValidation, err, "parse config file %s", path)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Redis.URL, "EMBER_REDIS_URL")
	setString(&c.Encryption.Key, "EMBER_ENCRYPTION_KEY")
	setString(&c.Encryption.KeyID, "EMBER_ENCRYPTION_KEY_ID")
	setString(&c.LLM.Provider, "EMBER_LLM_PROVIDER")
	setString(&c.LLM.APIKey, "EMBER_LLM_API_KEY")
	setString(&c.LLM.Model, "EMBER_LLM_MODEL")
	setString(&c.LLM.Region, "EMBER_LLM_REGION")
	setString(&c.DefaultTimezone, "EMBER_DEFAULT_TIMEZONE")
	setString(&c.Archive.MongoURI, "EMBER_MONGO_URI")
	setString(&c.Archive.Database, "EMBER_MONGO_DATABASE")
	setInt(&c.MasteryThreshold, "EMBER_MASTERY_THRESHOLD")
	setInt(&c.DrillDays, "EMBER_DRILL_DAYS")
	if v, ok := os.LookupEnv("EMBER_DISPATCH_DISTRIBUTED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Dispatch.Distributed = b
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.Redis.URL == "" {
		return domain.NewError(domain.KindValidation, "redis url is required")
	}
	if c.DefaultTimezone == "" {
		return domain.NewError(domain.KindValidation, "default timezone is required")
	}
	if c.Encryption.Key != "" {
		key, err := base64.StdEncoding.DecodeString(c.Encryption.Key)
		if err != nil {
			return domain.WrapError(domain.KindValidation, err, "encryption key must be base64")
		}
		if len(key) != 32 {
			return domain.NewError(domain.KindValidation, "encryption key must decode to 32 bytes, got %d", len(key))
		}
		if c.Encryption.KeyID == "" {
			return domain.NewError(domain.KindValidation, "encryption key id is required when a key is set")
		}
	}
	switch c.LLM.Provider {
	case "", "anthropic", "openai", "bedrock":
	default:
		return domain.NewError(domain.KindValidation, "unknown llm provider %q", c.LLM.Provider)
	}
	switch {
	case c.Reminders.FirstHour < 0 || c.Reminders.FirstHour > 23:
		return domain.NewError(domain.KindValidation, "reminders.firstHour must be in [0,23], got %d", c.Reminders.FirstHour)
	case c.Reminders.LastHour < 0 || c.Reminders.LastHour > 23:
		return domain.NewError(domain.KindValidation, "reminders.lastHour must be in [0,23], got %d", c.Reminders.LastHour)
	case c.Reminders.LastHour < c.Reminders.FirstHour:
		return domain.NewError(domain.KindValidation, "reminders.lastHour %d precedes firstHour %d", c.Reminders.LastHour, c.Reminders.FirstHour)
	case c.Reminders.IntervalHours < 1:
		return domain.NewError(domain.KindValidation, "reminders.intervalHours must be >= 1, got %d", c.Reminders.IntervalHours)
	}
	for _, ch := range c.Reminders.Channels {
		switch domain.ReminderChannel(ch) {
		case domain.ChannelPush, domain.ChannelEmail, domain.ChannelSMS:
		default:
			return domain.NewError(domain.KindValidation, "unknown reminder channel %q", ch)
		}
	}
	if c.MasteryThreshold < 1 {
		return domain.NewError(domain.KindValidation, "masteryThreshold must be >= 1, got %d", c.MasteryThreshold)
	}
	if c.DrillDays < 1 {
		return domain.NewError(domain.KindValidation, "drillDays must be >= 1, got %d", c.DrillDays)
	}
	if c.Dispatch.TickInterval < time.Second {
		return domain.NewError(domain.KindValidation, "dispatch.tickInterval must be >= 1s, got %s", c.Dispatch.TickInterval)
	}
	return nil
}

// ReminderConfig converts the policy section into the remind package's form.
func (c Config) ReminderConfig() remind.Config {
	channels := make([]domain.ReminderChannel, 0, len(c.Reminders.Channels))
	for _, ch := range c.Reminders.Channels {
		channels = append(channels, domain.ReminderChannel(ch))
	}
	return remind.Config{
		Enabled:            c.Reminders.Enabled,
		Timezone:           c.DefaultTimezone,
		FirstHour:          c.Reminders.FirstHour,
		LastHour:           c.Reminders.LastHour,
		IntervalHours:      c.Reminders.IntervalHours,
		MaxPerDay:          c.Reminders.MaxPerDay,
		ShrinkOnEscalation: c.Reminders.ShrinkOnEscalation,
		Channels:           channels,
	}
}
