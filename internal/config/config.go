// Package config holds the scenesync run configuration: defaults, an
// optional YAML file, environment variables, then flags, each layer
// overriding the previous.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"scenesync/internal/model"
)

// DefaultFileName is looked up in the working directory when no -config
// flag is given.
const DefaultFileName = "scenesync.yaml"

// Config defines configuration for the scenesync CLI.
type Config struct {
	DownloadDir    string        `yaml:"download_dir"`
	SceneList      string        `yaml:"scene_list"`
	Assets         []string      `yaml:"assets"`
	Subsample      int           `yaml:"subsample"`
	Workers        int           `yaml:"workers"`
	Command        string        `yaml:"command"`
	AssetTimeout   time.Duration `yaml:"asset_timeout"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	LogFile        string        `yaml:"log_file"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		DownloadDir:  "./data",
		SceneList:    "raw_train_val_splits.csv",
		Assets:       model.DefaultAssets(),
		Subsample:    10,
		Workers:      runtime.NumCPU(),
		Command:      "download_data",
		AssetTimeout: 15 * time.Minute,
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	DownloadDir    string   `yaml:"download_dir"`
	SceneList      string   `yaml:"scene_list"`
	Assets         []string `yaml:"assets"`
	Subsample      int      `yaml:"subsample"`
	Workers        int      `yaml:"workers"`
	Command        string   `yaml:"command"`
	AssetTimeout   string   `yaml:"asset_timeout"`
	UpdateInterval string   `yaml:"update_interval"`
	LogFile        string   `yaml:"log_file"`
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.DownloadDir != "" {
		cfg.DownloadDir = yc.DownloadDir
	}
	if yc.SceneList != "" {
		cfg.SceneList = yc.SceneList
	}
	if len(yc.Assets) > 0 {
		cfg.Assets = yc.Assets
	}
	if yc.Subsample != 0 {
		cfg.Subsample = yc.Subsample
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.Command != "" {
		cfg.Command = yc.Command
	}
	if yc.AssetTimeout != "" {
		d, err := time.ParseDuration(yc.AssetTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse asset_timeout: %w", err)
		}
		cfg.AssetTimeout = d
	}
	if yc.UpdateInterval != "" {
		d, err := time.ParseDuration(yc.UpdateInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parse update_interval: %w", err)
		}
		cfg.UpdateInterval = d
	}
	if yc.LogFile != "" {
		cfg.LogFile = yc.LogFile
	}

	return cfg, nil
}

// Load resolves the config: an explicit path must exist, otherwise the
// default file is used when present and silently skipped when not.
func Load(path string) (Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return LoadFromFile(DefaultFileName)
	}
	return Default(), nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the SCENESYNC_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("SCENESYNC_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("SCENESYNC_SCENE_LIST"); v != "" {
		c.SceneList = v
	}
	if v := os.Getenv("SCENESYNC_ASSETS"); v != "" {
		c.Assets = SplitAssets(v)
	}
	if v := os.Getenv("SCENESYNC_SUBSAMPLE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SCENESYNC_SUBSAMPLE: %w", err)
		}
		c.Subsample = n
	}
	if v := os.Getenv("SCENESYNC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SCENESYNC_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("SCENESYNC_COMMAND"); v != "" {
		c.Command = v
	}
	if v := os.Getenv("SCENESYNC_ASSET_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SCENESYNC_ASSET_TIMEOUT: %w", err)
		}
		c.AssetTimeout = d
	}
	if v := os.Getenv("SCENESYNC_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DownloadDir == "" {
		return errors.New("config: download_dir is required")
	}
	if c.SceneList == "" {
		return errors.New("config: scene_list is required")
	}
	if len(c.Assets) == 0 {
		return errors.New("config: at least one asset is required")
	}
	if c.Subsample < 1 {
		return errors.New("config: subsample must be >= 1")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.Command == "" {
		return errors.New("config: command is required")
	}
	if c.AssetTimeout <= 0 {
		return errors.New("config: asset_timeout must be positive")
	}
	return nil
}

// SplitAssets parses a comma-separated asset list.
func SplitAssets(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
