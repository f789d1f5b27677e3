package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL          = "http://127.0.0.1:5000"
	DefaultLogLevel        = "info"
	DefaultHistoryFileName = ".phylo-history.db"
	DefaultHTTPTimeout     = 10 * time.Minute
	DefaultRenderWidth     = 1200
	DefaultRenderHeight    = 500

	configFileName = ".phylo.toml"

	configDirEnvKey          = "PHYLO_CONFIG_DIR"
	trustProjectConfigEnvKey = "PHYLO_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "PHYLO_API_URL"
	historyEnvKey            = "PHYLO_HISTORY"
	downloadDirEnvKey        = "PHYLO_DOWNLOAD_DIR"
)

// RenderConfig sizes the drawing canvas.
type RenderConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Config defines runtime configuration for phylo.
type Config struct {
	APIURL                   string       `toml:"api_url"`
	LogLevel                 string       `toml:"log_level"`
	HistoryPath              string       `toml:"history_path"`
	DownloadDir              string       `toml:"download_dir"`
	HTTPTimeout              string       `toml:"http_timeout"`
	Render                   RenderConfig `toml:"render"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Render: RenderConfig{
			Width:  DefaultRenderWidth,
			Height: DefaultRenderHeight,
		},
	}
}

// Timeout returns the configured per-request timeout, or the default when
// unset or invalid. Bare integers are seconds.
func (c *Config) Timeout() time.Duration {
	value := strings.TrimSpace(c.HTTPTimeout)
	if value == "" {
		return DefaultHTTPTimeout
	}
	if d, err := parseDuration(value); err == nil {
		return d
	}
	return DefaultHTTPTimeout
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"log_level",
	"history_path",
	"download_dir",
	"http_timeout",
	"render.width",
	"render.height",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "log_level":
		return c.LogLevel, nil
	case "history_path":
		return c.HistoryPath, nil
	case "download_dir":
		return c.DownloadDir, nil
	case "http_timeout":
		return c.Timeout().String(), nil
	case "render.width":
		return strconv.Itoa(c.Render.Width), nil
	case "render.height":
		return strconv.Itoa(c.Render.Height), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if historyPath := os.Getenv(historyEnvKey); historyPath != "" {
		cfg.HistoryPath = historyPath
	}
	if downloadDir := os.Getenv(downloadDirEnvKey); downloadDir != "" {
		cfg.DownloadDir = downloadDir
	}

	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.HistoryPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.HistoryPath = filepath.Join(home, DefaultHistoryFileName)
		}
	}
	if c.DownloadDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.DownloadDir = cwd
		}
	}
	if c.Render.Width <= 0 {
		c.Render.Width = DefaultRenderWidth
	}
	if c.Render.Height <= 0 {
		c.Render.Height = DefaultRenderHeight
	}
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "render.width", "render.height":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "http_timeout":
		if _, err := parseDuration(value); err != nil {
			return nil, fmt.Errorf("%s must be a positive duration (e.g. 90s, 5m)", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func parseDuration(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", value)
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}
