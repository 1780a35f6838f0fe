// Package config bridges Viper configuration and environment variables
// for credential lookup.
package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/pkg/errors"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	// Check OS env directly first
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// APIKey retrieves the credential for a source, checking both Viper
// configuration and environment variables. A missing key is an error
// only when the source requires one.
func APIKey(cfg sources.Config) (string, error) {
	if cfg.APIKey == "" {
		return "", nil
	}

	key := GetString(cfg.APIKey)
	if key == "" && cfg.APIKeyRequired {
		return "", &errors.AuthenticationError{
			Source:  string(cfg.ID),
			Method:  "api_key",
			Message: "environment variable " + cfg.APIKey + " not set",
			Err:     errors.ErrAPIKeyRequired,
		}
	}
	return key, nil
}
