package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const (
	appName  = "ingest"
	fileName = "config.json"
)

// Config holds all application configuration
type Config struct {
	Destination string        `mapstructure:"destination"` // default target when a volume has no marker
	Watch       WatchConfig   `mapstructure:"watch"`
	Logging     LoggingConfig `mapstructure:"logging"`
	History     HistoryConfig `mapstructure:"history"`
}

type WatchConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	MountRoots []string      `mapstructure:"mount_roots"` // only volumes below these roots are watched
}

type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			Interval:   5 * time.Second,
			MountRoots: defaultMountRoots(),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataDir(), "ingest.log"),
			Level: "INFO",
		},
		History: HistoryConfig{
			Path: filepath.Join(defaultDataDir(), "history.db"),
		},
	}
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
	return filepath.Join(dir, appName)
}

func defaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName)
	}
}

func defaultMountRoots() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{"/media", "/run/media", "/mnt"}
	case "darwin":
		return []string{"/Volumes"}
	default:
		return nil
	}
}

// Load reads config.json from dir, then applies INGEST_* environment overrides.
// A missing file is not an error.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	cfg := Default()

	v := viper.New()
	v.SetDefault("destination", cfg.Destination)
	v.SetDefault("watch.interval", cfg.Watch.Interval)
	v.SetDefault("watch.mount_roots", cfg.Watch.MountRoots)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("history.path", cfg.History.Path)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes every key of cfg to dir/config.json.
func Save(dir string, cfg *Config) error {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("destination", cfg.Destination)
	v.Set("watch.interval", cfg.Watch.Interval.String())
	v.Set("watch.mount_roots", cfg.Watch.MountRoots)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("history.path", cfg.History.Path)

	if err := v.WriteConfigAs(filepath.Join(dir, fileName)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Watch.Interval <= 0 {
		return errors.New("watch.interval must be positive")
	}
	return nil
}

// Shared guards a Config that the UI may edit while the watcher reads it.
type Shared struct {
	mu  sync.RWMutex
	dir string
	cfg Config
}

func NewShared(dir string, cfg *Config) *Shared {
	return &Shared{dir: dir, cfg: *cfg}
}

func (s *Shared) Destination() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Destination
}

// SetDestination updates the default destination and persists the config.
func (s *Shared) SetDestination(dest string) error {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return errors.New("destination must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg
	next.Destination = dest
	if err := Save(s.dir, &next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

func (s *Shared) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}
