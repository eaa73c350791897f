package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

// Keys lists every settable configuration key in display order.
var Keys = []string{
	"download_path",
	"database_path",
	"catalog_url",
	"http_timeout",
	"user_agent",
	"max_concurrency",
	"auto_extract",
	"post_install_hook",
	"theme",
	"language",
	"log_level",
	"log_format",
}

// SetValue sets a configuration value by key. Values are parsed according to
// the type of the setting; durations use Go syntax such as 30s or 2m.
// The result is not validated.
func (c *Config) SetValue(key, value string) error {
	s := &c.Settings
	switch key {
	case "download_path":
		s.DownloadPath = value
	case "database_path":
		s.DatabasePath = value
	case "catalog_url":
		s.CatalogURL = value
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return invalidValue(key, value, "duration")
		}
		s.HTTPTimeout = d
	case "user_agent":
		s.UserAgent = value
	case "max_concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalidValue(key, value, "integer")
		}
		s.MaxConcurrency = n
	case "auto_extract":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalidValue(key, value, "boolean")
		}
		s.AutoExtract = b
	case "post_install_hook":
		s.PostInstallHook = value
	case "theme":
		s.Theme = value
	case "language":
		s.Language = value
	case "log_level":
		s.LogLevel = value
	case "log_format":
		s.LogFormat = value
	default:
		return unknownKey(key)
	}
	return nil
}

// GetValue returns the value of a configuration key as a string.
func (c *Config) GetValue(key string) (string, error) {
	s := c.Settings
	switch key {
	case "download_path":
		return s.DownloadPath, nil
	case "database_path":
		return s.DatabasePath, nil
	case "catalog_url":
		return s.CatalogURL, nil
	case "http_timeout":
		return s.HTTPTimeout.String(), nil
	case "user_agent":
		return s.UserAgent, nil
	case "max_concurrency":
		return strconv.Itoa(s.MaxConcurrency), nil
	case "auto_extract":
		return strconv.FormatBool(s.AutoExtract), nil
	case "post_install_hook":
		return s.PostInstallHook, nil
	case "theme":
		return s.Theme, nil
	case "language":
		return s.Language, nil
	case "log_level":
		return s.LogLevel, nil
	case "log_format":
		return s.LogFormat, nil
	default:
		return "", unknownKey(key)
	}
}

// ToMap returns every setting keyed by its YAML name.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		v, _ := c.GetValue(key)
		result[key] = v
	}
	return result
}

func unknownKey(key string) error {
	return &errors.Error{Kind: errors.Config, Op: "config key", Detail: key, Err: errors.ErrUnknownConfigKey}
}

func invalidValue(key, value, want string) error {
	return &errors.Error{
		Kind:   errors.Validation,
		Op:     "config " + key,
		Detail: fmt.Sprintf("%q is not a valid %s", value, want),
		Err:    errors.ErrValidation,
	}
}
