package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"speakeasy/internal/content"
)

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q): %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("restore Chdir(%q): %v", wd, err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TTS.Type != "auto" {
		t.Errorf("tts.type = %q, want auto", cfg.TTS.Type)
	}
	if cfg.Fetch.Timeout != content.DefaultTimeout {
		t.Errorf("fetch.timeout = %v, want %v", cfg.Fetch.Timeout, content.DefaultTimeout)
	}
	if cfg.Fetch.UserAgent != content.DefaultUserAgent {
		t.Errorf("fetch.user_agent = %q", cfg.Fetch.UserAgent)
	}
	if !cfg.Cache.Enabled || cfg.Cache.MaxAge != 24*time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.SettingsDir == "" || cfg.Cache.Dir == "" || cfg.TTS.CacheDir == "" || cfg.OutputDir == "" {
		t.Errorf("paths not resolved: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	chdir(t, dir)
	file := filepath.Join(dir, "speakeasy.yaml")
	yaml := `
tts:
  type: mock
fetch:
  timeout: 5s
cache:
  enabled: false
output_dir: /srv/audio
log:
  level: debug
`
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SPEAKEASY_FETCH_USER_AGENT", "test-agent")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TTS.Type != "mock" {
		t.Errorf("tts.type = %q, want mock", cfg.TTS.Type)
	}
	if cfg.Fetch.Timeout != 5*time.Second {
		t.Errorf("fetch.timeout = %v, want 5s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.UserAgent != "test-agent" {
		t.Errorf("fetch.user_agent = %q, want env override", cfg.Fetch.UserAgent)
	}
	if cfg.Cache.Enabled {
		t.Error("cache.enabled = true, want false")
	}
	if cfg.OutputDir != "/srv/audio" {
		t.Errorf("output_dir = %q", cfg.OutputDir)
	}

	if err := cfg.ConfigureLogging(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { logrus.SetLevel(logrus.InfoLevel) })
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("log level = %v, want debug", logrus.GetLevel())
	}
}

func TestConfigureLoggingRejectsBadLevel(t *testing.T) {
	var cfg Config
	cfg.Log.Level = "loud"
	if err := cfg.ConfigureLogging(); err == nil {
		t.Error("ConfigureLogging accepted level \"loud\"")
	}
}
