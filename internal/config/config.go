// Package config loads handsign settings from a TOML file and HANDSIGN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Camera     CameraConfig     `mapstructure:"camera"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Log        LogConfig        `mapstructure:"log"`
	Tray       TrayConfig       `mapstructure:"tray"`
}

// CameraConfig holds capture device settings.
type CameraConfig struct {
	Device int  `mapstructure:"device"`
	Width  int  `mapstructure:"width"`
	Height int  `mapstructure:"height"`
	FPS    int  `mapstructure:"fps"`
	Mirror bool `mapstructure:"mirror"`
}

// DetectorConfig holds hand detection thresholds.
type DetectorConfig struct {
	MaxHands              int     `mapstructure:"max_hands"`
	MinConfidence         float64 `mapstructure:"min_confidence"`
	MinTrackingConfidence float64 `mapstructure:"min_tracking_confidence"`
}

// ClassifierConfig points at the backend classification service.
type ClassifierConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

// ServerConfig holds the preview server settings.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

// StoreConfig holds the sqlite journal location.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// TrayConfig toggles the desktop tray menu.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DataDir returns the per-user data directory (~/.handsign).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".handsign"
	}
	return filepath.Join(home, ".handsign")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 15)
	v.SetDefault("camera.mirror", true)

	v.SetDefault("detector.max_hands", 1)
	v.SetDefault("detector.min_confidence", 0.6)
	v.SetDefault("detector.min_tracking_confidence", 0.6)

	v.SetDefault("classifier.base_url", "http://localhost:5000")
	v.SetDefault("classifier.timeout", 5*time.Second)
	v.SetDefault("classifier.interval", 200*time.Millisecond)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "")

	v.SetDefault("store.path", filepath.Join(DataDir(), "handsign.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("tray.enabled", false)
}

// Default returns the built-in settings without reading any file or environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		panic(fmt.Sprintf("config: bad defaults: %v", err))
	}
	return c
}

// Load reads configuration from file and env. Env var overrides use prefix HANDSIGN_,
// e.g. HANDSIGN_CLASSIFIER_BASE_URL. An explicit path may be given via HANDSIGN_CONFIG.
func Load() (Config, error) {
	return LoadFile(os.Getenv("HANDSIGN_CONFIG"))
}

// LoadFile is Load with an explicit config file path. An empty path searches
// ~/.handsign/config.toml and ./config.toml; a missing file is not an error.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DataDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("HANDSIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges that would otherwise fail deep inside the pipeline.
func (c Config) Validate() error {
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Classifier.BaseURL == "" {
		return fmt.Errorf("classifier.base_url is required")
	}
	if c.Classifier.Interval < 0 {
		return fmt.Errorf("classifier.interval must not be negative, got %s", c.Classifier.Interval)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be between 0 and 1, got %f", c.Detector.MinConfidence)
	}
	return nil
}
