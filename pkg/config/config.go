// Package config provides configuration management for gmm.
// It handles loading, validating and saving the YAML settings file, and
// applies GMM_* environment overrides on top of it.
package config

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Storage
	DownloadPath string `yaml:"download_path"`
	DatabasePath string `yaml:"database_path"`

	// Catalog and network
	CatalogURL     string        `yaml:"catalog_url"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"` // 0 disables the timeout
	UserAgent      string        `yaml:"user_agent"`
	MaxConcurrency int           `yaml:"max_concurrency"`

	// Installation
	AutoExtract     bool   `yaml:"auto_extract"`
	PostInstallHook string `yaml:"post_install_hook,omitempty"`

	// Presentation
	Theme    string `yaml:"theme"`    // light, dark, system
	Language string `yaml:"language"` // zh-CN, en-US, es-ES, fr-FR, ja-JP

	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for catalog and download requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxConcurrency is the default number of parallel installs.
	DefaultMaxConcurrency = 3

	// DefaultUserAgent identifies gmm to the catalog.
	DefaultUserAgent = "gmm/1.0"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

var (
	validThemes     = []string{"light", "dark", "system"}
	validLanguages  = []string{"zh-CN", "en-US", "es-ES", "fr-FR", "ja-JP"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			DownloadPath:   fsutil.GetDownloadsDir(),
			DatabasePath:   fsutil.GetDatabasePath(),
			HTTPTimeout:    DefaultHTTPTimeout,
			UserAgent:      DefaultUserAgent,
			MaxConcurrency: DefaultMaxConcurrency,
			AutoExtract:    true,
			Theme:          "system",
			Language:       "en-US",
			LogLevel:       "info",
			LogFormat:      "text",
		},
	}
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return fsutil.GetConfigPath()
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, configError("load", errors.ErrEmptyConfigPath, "")
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader. Keys absent
// from the document keep their default values.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, configError("parse", errors.ErrConfigParse, err.Error())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the configuration to path through a temporary file and
// a rename.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return configError("save", errors.ErrEmptyConfigPath, "")
	}

	if err := fsutil.EnsureFileDir(path); err != nil {
		return configError("save", errors.ErrConfigDirectory, err.Error())
	}

	tempPath := path + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeDefault)
	if err != nil {
		return configError("save", errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return configError("save", errors.ErrConfigEncode, err.Error())
	}
	_ = encoder.Close()

	if err := file.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.E(errors.IO, "save config", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.E(errors.IO, "save config", err)
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, configError("marshal", errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return configError("validate", errors.ErrConfigValidation, "configuration is nil")
	}
	s := c.Settings

	if s.HTTPTimeout < 0 {
		return configError("validate", errors.ErrConfigValidation, "http_timeout cannot be negative")
	}
	if s.MaxConcurrency < 1 {
		return configError("validate", errors.ErrConfigValidation, "max_concurrency must be at least 1")
	}
	if s.CatalogURL != "" {
		u, err := url.Parse(s.CatalogURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return configError("validate", errors.ErrConfigValidation, "catalog_url must be an absolute http(s) URL")
		}
	}
	if err := oneOf("theme", s.Theme, validThemes, false); err != nil {
		return err
	}
	if err := oneOf("language", s.Language, validLanguages, false); err != nil {
		return err
	}
	if err := oneOf("log_level", s.LogLevel, validLogLevels, true); err != nil {
		return err
	}
	return oneOf("log_format", s.LogFormat, validLogFormats, true)
}

// applyDefaults fills empty strings that have no meaning with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.DownloadPath == "" {
		c.Settings.DownloadPath = defaults.Settings.DownloadPath
	}
	if c.Settings.DatabasePath == "" {
		c.Settings.DatabasePath = defaults.Settings.DatabasePath
	}
	if c.Settings.UserAgent == "" {
		c.Settings.UserAgent = defaults.Settings.UserAgent
	}
	if c.Settings.MaxConcurrency == 0 {
		c.Settings.MaxConcurrency = defaults.Settings.MaxConcurrency
	}
	if c.Settings.Theme == "" {
		c.Settings.Theme = defaults.Settings.Theme
	}
	if c.Settings.Language == "" {
		c.Settings.Language = defaults.Settings.Language
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}

	c.Settings.DownloadPath = filepath.Clean(c.Settings.DownloadPath)
	c.Settings.DatabasePath = filepath.Clean(c.Settings.DatabasePath)
}

func oneOf(key, value string, allowed []string, foldCase bool) error {
	for _, a := range allowed {
		if value == a || (foldCase && strings.EqualFold(value, a)) {
			return nil
		}
	}
	return configError("validate", errors.ErrConfigValidation,
		"invalid "+key+" '"+value+"', must be one of: "+strings.Join(allowed, ", "))
}

func configError(op string, sentinel error, detail string) error {
	if detail == "" {
		detail = sentinel.Error()
	}
	return &errors.Error{Kind: errors.Config, Op: op + " config", Detail: detail, Err: sentinel}
}
