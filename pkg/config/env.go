package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. GMM_LOG_LEVEL.
const EnvPrefix = "GMM_"

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overwriting variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return configError("load env", errors.ErrConfigParse, p+": "+err.Error())
		}
	}
	return nil
}

// ApplyEnv overrides settings from GMM_* variables found through lookup
// (os.LookupEnv when nil) and validates the result. It returns the keys that
// were overridden.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) ([]string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var applied []string
	for _, key := range Keys {
		value, ok := lookup(EnvName(key))
		if !ok {
			continue
		}
		if err := c.SetValue(key, value); err != nil {
			return applied, err
		}
		applied = append(applied, key)
	}

	if len(applied) == 0 {
		return nil, nil
	}
	c.applyDefaults()
	return applied, c.Validate()
}
