// Package config loads bot configuration from the environment, with an
// optional YAML overlay file for deployments that prefer a config file to
// a pile of env vars. File values win over env values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all tunables for the bot process.
type Config struct {
	BotToken string `env:"BOT_TOKEN"`
	DBPath   string `env:"TASKPIN_DB" envDefault:"tasks.db"`

	LogLevel string `env:"TASKPIN_LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"TASKPIN_LOG_JSON" envDefault:"false"`

	// RefreshDelay is the debounce window for pinned-summary rewrites.
	RefreshDelay time.Duration `env:"TASKPIN_REFRESH_DELAY" envDefault:"700ms"`
	// RetryMargin is added on top of the wait the platform asks for
	// when it rate-limits us.
	RetryMargin time.Duration `env:"TASKPIN_RETRY_MARGIN" envDefault:"1s"`

	// Anti-spam intervals. Events arriving faster than this per
	// chat+user are dropped, not queued.
	MessageThrottle  time.Duration `env:"TASKPIN_MESSAGE_THROTTLE" envDefault:"800ms"`
	CallbackThrottle time.Duration `env:"TASKPIN_CALLBACK_THROTTLE" envDefault:"500ms"`

	// PreviewLength bounds the task body preview in the pinned summary.
	PreviewLength int `env:"TASKPIN_PREVIEW_LENGTH" envDefault:"60"`

	// ResetWindow is how long a /reset confirmation stays valid.
	ResetWindow time.Duration `env:"TASKPIN_RESET_WINDOW" envDefault:"30s"`

	// DigestCron, when set, schedules a period-stats digest to every
	// known chat (standard 5-field cron expression). Empty disables.
	DigestCron string `env:"TASKPIN_DIGEST_CRON"`
}

// fileOverlay is the YAML shape of the config file. Every field is
// optional; durations are written as strings ("700ms", "1s") and parsed
// here, since the YAML decoder has no native duration support.
type fileOverlay struct {
	BotToken *string `yaml:"bot_token"`
	DBPath   *string `yaml:"db_path"`

	LogLevel *string `yaml:"log_level"`
	LogJSON  *bool   `yaml:"log_json"`

	RefreshDelay     *string `yaml:"refresh_delay"`
	RetryMargin      *string `yaml:"retry_margin"`
	MessageThrottle  *string `yaml:"message_throttle"`
	CallbackThrottle *string `yaml:"callback_throttle"`
	PreviewLength    *int    `yaml:"preview_length"`
	ResetWindow      *string `yaml:"reset_window"`
	DigestCron       *string `yaml:"digest_cron"`
}

// Load builds the configuration from env vars, then applies the YAML file
// named by TASKPIN_CONFIG if one is set.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if path := os.Getenv("TASKPIN_CONFIG"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = 60
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var ov fileOverlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&cfg.BotToken, ov.BotToken)
	setString(&cfg.DBPath, ov.DBPath)
	setString(&cfg.LogLevel, ov.LogLevel)
	setString(&cfg.DigestCron, ov.DigestCron)
	if ov.LogJSON != nil {
		cfg.LogJSON = *ov.LogJSON
	}
	if ov.PreviewLength != nil {
		cfg.PreviewLength = *ov.PreviewLength
	}

	setDuration := func(dst *time.Duration, src *string, key string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, key, err)
		}
		*dst = d
		return nil
	}
	for _, f := range []struct {
		dst *time.Duration
		src *string
		key string
	}{
		{&cfg.RefreshDelay, ov.RefreshDelay, "refresh_delay"},
		{&cfg.RetryMargin, ov.RetryMargin, "retry_margin"},
		{&cfg.MessageThrottle, ov.MessageThrottle, "message_throttle"},
		{&cfg.CallbackThrottle, ov.CallbackThrottle, "callback_throttle"},
		{&cfg.ResetWindow, ov.ResetWindow, "reset_window"},
	} {
		if err := setDuration(f.dst, f.src, f.key); err != nil {
			return err
		}
	}
	return nil
}
