package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort        = 7788
	defaultReadyMarker = "HTTP server listening on "
)

// WindowConfig controls the main browser window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Debug  bool   `yaml:"debug"`
}

// Config is the launcher configuration. Zero values are filled from defaults.
type Config struct {
	Port         int          `yaml:"port"`
	Collector    string       `yaml:"collector"`
	Tracker      string       `yaml:"tracker"`
	ReadyMarker  string       `yaml:"ready_marker"`
	ServerPath   string       `yaml:"server_path"`
	KeepAlive    *bool        `yaml:"keep_alive"`
	AllowedHosts []string     `yaml:"allowed_hosts"`
	LogLevel     string       `yaml:"log_level"`
	Window       WindowConfig `yaml:"window"`

	// Dev is set from the command line only.
	Dev bool `yaml:"-"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	keepAlive := runtime.GOOS == "darwin"
	return Config{
		Port:         defaultPort,
		Collector:    "collector.store.samos.io:6688",
		Tracker:      "tracker.store.samos.io:6677",
		ReadyMarker:  defaultReadyMarker,
		KeepAlive:    &keepAlive,
		AllowedHosts: []string{"*.store.samos.io", "*.samos.io"},
		LogLevel:     "info",
		Window: WindowConfig{
			Title:  "Samos ME",
			Width:  1200,
			Height: 900,
		},
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "samos-shell", "config.yaml")
}

// LoadConfig reads path and merges it over the defaults. A missing file is not
// an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.merge(file)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.Collector != "" {
		c.Collector = o.Collector
	}
	if o.Tracker != "" {
		c.Tracker = o.Tracker
	}
	if o.ReadyMarker != "" {
		c.ReadyMarker = o.ReadyMarker
	}
	if o.ServerPath != "" {
		c.ServerPath = o.ServerPath
	}
	if o.KeepAlive != nil {
		c.KeepAlive = o.KeepAlive
	}
	if len(o.AllowedHosts) > 0 {
		c.AllowedHosts = o.AllowedHosts
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Window.Title != "" {
		c.Window.Title = o.Window.Title
	}
	if o.Window.Width != 0 {
		c.Window.Width = o.Window.Width
	}
	if o.Window.Height != 0 {
		c.Window.Height = o.Window.Height
	}
	c.Window.Debug = c.Window.Debug || o.Window.Debug
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ReadyMarker == "" {
		return errors.New("ready_marker must not be empty")
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}

// KeepAliveWithoutWindows reports whether the app keeps running after the
// last window closes.
func (c Config) KeepAliveWithoutWindows() bool {
	return c.KeepAlive != nil && *c.KeepAlive
}

// DefaultURL is the server's start page.
func (c Config) DefaultURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/", c.Port)
}

// FileManageURL is the server's file manager page.
func (c Config) FileManageURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/disk.html", c.Port)
}
