package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TASKPIN_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "tasks.db" {
		t.Errorf("DBPath = %q, want tasks.db", cfg.DBPath)
	}
	if cfg.RefreshDelay != 700*time.Millisecond {
		t.Errorf("RefreshDelay = %s, want 700ms", cfg.RefreshDelay)
	}
	if cfg.MessageThrottle != 800*time.Millisecond || cfg.CallbackThrottle != 500*time.Millisecond {
		t.Errorf("throttles = %s/%s, want 800ms/500ms", cfg.MessageThrottle, cfg.CallbackThrottle)
	}
	if cfg.PreviewLength != 60 {
		t.Errorf("PreviewLength = %d, want 60", cfg.PreviewLength)
	}
	if cfg.ResetWindow != 30*time.Second {
		t.Errorf("ResetWindow = %s, want 30s", cfg.ResetWindow)
	}
	if cfg.LogLevel != "info" || cfg.LogJSON {
		t.Errorf("log defaults = %q/%v, want info/false", cfg.LogLevel, cfg.LogJSON)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("TASKPIN_CONFIG", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load must fail without BOT_TOKEN")
	}
}

func TestLoadFileOverridesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TASKPIN_REFRESH_DELAY", "2s")

	path := filepath.Join(t.TempDir(), "taskpin.yaml")
	data := "refresh_delay: 250ms\ndigest_cron: \"0 9 * * *\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKPIN_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshDelay != 250*time.Millisecond {
		t.Errorf("RefreshDelay = %s, file value must win over env", cfg.RefreshDelay)
	}
	if cfg.DigestCron != "0 9 * * *" {
		t.Errorf("DigestCron = %q, want the file value", cfg.DigestCron)
	}
	// Token still comes from the environment.
	if cfg.BotToken != "123:abc" {
		t.Errorf("BotToken = %q", cfg.BotToken)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TASKPIN_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load must surface a missing config file")
	}
}
