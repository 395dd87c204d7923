package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/remind"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "UTC", cfg.DefaultTimezone)
	require.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	require.Equal(t, remind.DefaultFirstHour, cfg.Reminders.FirstHour)
	require.Equal(t, remind.DefaultMaxPerDay, cfg.Reminders.MaxPerDay)
	require.True(t, cfg.Reminders.Enabled)
	require.Equal(t, domain.DefaultMasteryThreshold, cfg.MasteryThreshold)
	require.Equal(t, time.Minute, cfg.Dispatch.TickInterval)
	require.Empty(t, cfg.LLM.Provider, "curriculum generation is off by default")
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
defaultTimezone: America/New_York
redis:
  url: redis://cache:6379/2
llm:
  provider: anthropic
  model: claude-sonnet-4-20250514
reminders:
  enabled: true
  firstHour: 8
  lastHour: 18
  intervalHours: 5
  maxPerDay: 3
  channels: [push, email]
drillDays: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "America/New_York", cfg.DefaultTimezone)
	require.Equal(t, "redis://cache:6379/2", cfg.Redis.URL)
	require.Equal(t, "anthropic", cfg.LLM.Provider)
	require.Equal(t, 8, cfg.Reminders.FirstHour)
	require.Equal(t, 5, cfg.DrillDays)
	require.Equal(t, domain.DefaultMasteryThreshold, cfg.MasteryThreshold, "unset keys keep defaults")

	rc := cfg.ReminderConfig()
	require.Equal(t, "America/New_York", rc.Timezone)
	require.Equal(t, []domain.ReminderChannel{domain.ChannelPush, domain.ChannelEmail}, rc.Channels)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  url: redis://file:6379\n"), 0o600))

	t.Setenv("EMBER_REDIS_URL", "redis://env:6379")
	t.Setenv("EMBER_LLM_PROVIDER", "openai")
	t.Setenv("EMBER_DEFAULT_TIMEZONE", "Asia/Tokyo")
	t.Setenv("EMBER_DRILL_DAYS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "redis://env:6379", cfg.Redis.URL)
	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, "Asia/Tokyo", cfg.DefaultTimezone)
	require.Equal(t, 7, cfg.DrillDays)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestValidateEncryptionKey(t *testing.T) {
	cfg := Default()
	cfg.Encryption.Key = "not base64!!"
	require.True(t, domain.IsKind(cfg.Validate(), domain.KindValidation))

	cfg.Encryption.Key = base64.StdEncoding.EncodeToString(make([]byte, 16))
	err := cfg.Validate()
	require.True(t, domain.IsKind(err, domain.KindValidation))
	require.Contains(t, err.Error(), "32 bytes")

	cfg.Encryption.Key = base64.StdEncoding.EncodeToString(make([]byte, 32))
	require.NoError(t, cfg.Validate())

	cfg.Encryption.KeyID = ""
	require.True(t, domain.IsKind(cfg.Validate(), domain.KindValidation))
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }},
		{"bad hour", func(c *Config) { c.Reminders.FirstHour = 24 }},
		{"inverted hours", func(c *Config) { c.Reminders.FirstHour = 18; c.Reminders.LastHour = 9 }},
		{"zero interval", func(c *Config) { c.Reminders.IntervalHours = 0 }},
		{"unknown channel", func(c *Config) { c.Reminders.Channels = []string{"carrier_pigeon"} }},
		{"zero mastery", func(c *Config) { c.MasteryThreshold = 0 }},
		{"subsecond tick", func(c *Config) { c.Dispatch.TickInterval = 100 * time.Millisecond }},
		{"empty redis url", func(c *Config) { c.Redis.URL = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.True(t, domain.IsKind(cfg.Validate(), domain.KindValidation))
		})
	}
}
