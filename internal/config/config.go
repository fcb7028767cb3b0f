// Package config loads application configuration from speakeasy.yaml,
// SPEAKEASY_* environment variables and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"speakeasy/internal/content"
)

const appName = "speakeasy"

type Config struct {
	TTS struct {
		Type     string `mapstructure:"type"`
		Voice    string `mapstructure:"voice"`
		CacheDir string `mapstructure:"cache_dir"`
	} `mapstructure:"tts"`
	Fetch struct {
		Timeout   time.Duration `mapstructure:"timeout"`
		UserAgent string        `mapstructure:"user_agent"`
	} `mapstructure:"fetch"`
	Cache struct {
		Enabled bool          `mapstructure:"enabled"`
		MaxAge  time.Duration `mapstructure:"max_age"`
		Dir     string        `mapstructure:"dir"`
	} `mapstructure:"cache"`
	Log struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`
	SettingsDir string `mapstructure:"settings_dir"`
	OutputDir   string `mapstructure:"output_dir"`
}

func SetDefaults() {
	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "default")
	viper.SetDefault("tts.cache_dir", "")
	viper.SetDefault("fetch.timeout", content.DefaultTimeout)
	viper.SetDefault("fetch.user_agent", content.DefaultUserAgent)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_age", 24*time.Hour)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.json", false)
	viper.SetDefault("settings_dir", "")
	viper.SetDefault("output_dir", "")
}

// Load reads configuration. An empty configFile searches the user config
// directories and the working directory for speakeasy.yaml; a missing file
// is not an error.
func Load(configFile string) (*Config, error) {
	// .env is optional; it usually carries GOOGLE_APPLICATION_CREDENTIALS
	_ = godotenv.Load()

	SetDefaults()
	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	scope := gap.NewScope(gap.User, appName)
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		dirs, err := scope.ConfigDirs()
		if err == nil {
			for _, dir := range dirs {
				viper.AddConfigPath(dir)
			}
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(appName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.fillPaths(scope); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fillPaths resolves per-user directories left empty in the config.
func (c *Config) fillPaths(scope *gap.Scope) error {
	if c.SettingsDir == "" {
		dirs, err := scope.ConfigDirs()
		if err != nil || len(dirs) == 0 {
			return fmt.Errorf("could not find configuration directory: %v", err)
		}
		c.SettingsDir = dirs[0]
	}

	if c.Cache.Dir == "" || c.TTS.CacheDir == "" {
		cacheDir, err := scope.CacheDir()
		if err != nil {
			return fmt.Errorf("could not find cache directory: %w", err)
		}
		if c.Cache.Dir == "" {
			c.Cache.Dir = filepath.Join(cacheDir, "pages")
		}
		if c.TTS.CacheDir == "" {
			c.TTS.CacheDir = filepath.Join(cacheDir, "audio")
		}
	}

	if c.OutputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.OutputDir = filepath.Join(home, "Documents", "Speakeasy")
	}
	return nil
}

// ConfigureLogging applies the log level and format.
func (c *Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	logrus.SetLevel(level)

	if c.Log.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stderr)
	return nil
}
