// Package config loads firewatch runtime configuration.
//
// Values resolve in order: command-line flags, FIREWATCH_* environment
// variables, settings persisted in the SQLite store, built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/ayusman/firewatch/internal/alarm"
	"github.com/ayusman/firewatch/internal/capture"
)

// EnvPrefix is the prefix for environment overrides, e.g. FIREWATCH_WATCH_DIR.
const EnvPrefix = "FIREWATCH"

// Configuration keys. They double as persisted setting names.
const (
	KeyWatchDir    = "watch_dir"
	KeyCameraIndex = "camera_index"
	KeySoundPath   = "sound_path"
	KeyHeadless    = "headless"
	KeyListen      = "listen"
	KeyTray        = "tray"
	KeyLogLevel    = "log_level"
	KeyLogJSON     = "log_json"
	KeyDataDir     = "data_dir"
)

// DatabaseName is the settings database file inside DataDir.
const DatabaseName = "firewatch.db"

// Config represents the application configuration.
type Config struct {
	WatchDir    string `mapstructure:"watch_dir"`
	CameraIndex int    `mapstructure:"camera_index"`
	SoundPath   string `mapstructure:"sound_path"`
	Headless    bool   `mapstructure:"headless"`
	Listen      string `mapstructure:"listen"`
	Tray        bool   `mapstructure:"tray"`
	LogLevel    string `mapstructure:"log_level"`
	LogJSON     bool   `mapstructure:"log_json"`
	DataDir     string `mapstructure:"data_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return Config{
		WatchDir:    filepath.Join(home, "Videos", "DroneFeed"),
		CameraIndex: capture.DefaultCameraIndex,
		SoundPath:   alarm.DefaultSoundPath,
		LogLevel:    "info",
		DataDir:     filepath.Join(home, ".firewatch"),
	}
}

// Keys returns every configuration key, sorted.
func Keys() []string {
	keys := []string{
		KeyWatchDir, KeyCameraIndex, KeySoundPath, KeyHeadless, KeyListen,
		KeyTray, KeyLogLevel, KeyLogJSON, KeyDataDir,
	}
	sort.Strings(keys)
	return keys
}

// IsKey reports whether key names a configuration value.
func IsKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Persistable reports whether key may be stored in the settings database.
// The data directory locates the database itself, so it cannot live inside it.
func Persistable(key string) bool {
	return IsKey(key) && key != KeyDataDir
}

// ValidateSetting checks that value decodes for key before it is persisted.
func ValidateSetting(key, value string) error {
	if !Persistable(key) {
		return fmt.Errorf("unknown setting %q", key)
	}

	switch key {
	case KeyCameraIndex:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if n < 0 {
			return fmt.Errorf("%s must not be negative, got %d", key, n)
		}
	case KeyHeadless, KeyTray, KeyLogJSON:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case KeyWatchDir, KeySoundPath:
		if value == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}
	return nil
}

// Setup prepares v with defaults and environment binding. Persisted settings
// replace the built-in defaults; unknown keys are ignored.
func Setup(v *viper.Viper, persisted map[string]string) {
	d := Default()
	v.SetDefault(KeyWatchDir, d.WatchDir)
	v.SetDefault(KeyCameraIndex, d.CameraIndex)
	v.SetDefault(KeySoundPath, d.SoundPath)
	v.SetDefault(KeyHeadless, d.Headless)
	v.SetDefault(KeyListen, d.Listen)
	v.SetDefault(KeyTray, d.Tray)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogJSON, d.LogJSON)
	v.SetDefault(KeyDataDir, d.DataDir)

	for key, value := range persisted {
		if Persistable(key) {
			v.SetDefault(key, value)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load decodes the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.WatchDir = expandHome(cfg.WatchDir)
	cfg.DataDir = expandHome(cfg.DataDir)

	if cfg.CameraIndex < 0 {
		return Config{}, fmt.Errorf("camera_index must not be negative, got %d", cfg.CameraIndex)
	}

	return cfg, nil
}

// DatabasePath returns the settings database location for dataDir.
func DatabasePath(dataDir string) string {
	return filepath.Join(expandHome(dataDir), DatabaseName)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
