package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SearchSettings configuration for the search index and catalog sync
type SearchSettings struct {
	DataDir      string        `mapstructure:"data_dir"`
	SyncURL      string        `mapstructure:"sync_url"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	MaxResults   int           `mapstructure:"max_results"`
}

// Settings application settings
type Settings struct {
	Host   string         `mapstructure:"host"`
	Port   int            `mapstructure:"port"`
	Auth   AuthSettings   `mapstructure:"auth"`
	Search SearchSettings `mapstructure:"search"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	// Search defaults
	v.SetDefault("search.data_dir", defaultDataDir())
	v.SetDefault("search.sync_url", "")
	v.SetDefault("search.sync_interval", 15*time.Minute)
	v.SetDefault("search.max_results", 250)

	// Environment variables
	v.SetEnvPrefix("STORESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("auth.type", "STORESEARCH_AUTH_TYPE")
	_ = v.BindEnv("auth.basic.username", "STORESEARCH_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("auth.basic.password", "STORESEARCH_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("auth.api_keys", "STORESEARCH_AUTH_API_KEYS")

	// Search env var bindings
	_ = v.BindEnv("search.data_dir", "STORESEARCH_SEARCH_DATA_DIR")
	_ = v.BindEnv("search.sync_url", "STORESEARCH_SEARCH_SYNC_URL")
	_ = v.BindEnv("search.sync_interval", "STORESEARCH_SEARCH_SYNC_INTERVAL")
	_ = v.BindEnv("search.max_results", "STORESEARCH_SEARCH_MAX_RESULTS")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("auth.type", flags.Lookup("auth-type"))
		_ = v.BindPFlag("auth.basic.username", flags.Lookup("auth-basic-username"))
		_ = v.BindPFlag("auth.basic.password", flags.Lookup("auth-basic-password"))
		_ = v.BindPFlag("auth.api_keys", flags.Lookup("auth-api-keys"))

		// Search CLI flags
		_ = v.BindPFlag("search.data_dir", flags.Lookup("data-dir"))
		_ = v.BindPFlag("search.sync_url", flags.Lookup("sync-url"))
		_ = v.BindPFlag("search.sync_interval", flags.Lookup("sync-interval"))
		_ = v.BindPFlag("search.max_results", flags.Lookup("max-results"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("STORESEARCH_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	// Expand home directory in data_dir
	settings.Search.DataDir = expandHomeDir(settings.Search.DataDir)

	return &settings, nil
}

// defaultDataDir returns the default directory for the cache and index scratch space
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storesearch"
	}
	return filepath.Join(home, ".storesearch")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateSettings(s *Settings) error {
	if s.Port <= 0 || s.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	return validateSearchSettings(&s.Search)
}

// validateSearchSettings validates the search configuration
func validateSearchSettings(g *SearchSettings) error {
	if g.DataDir == "" {
		return errors.New("data-dir cannot be empty")
	}

	if g.SyncURL != "" && !strings.HasPrefix(g.SyncURL, "http://") && !strings.HasPrefix(g.SyncURL, "https://") {
		return errors.New("sync-url must be an http(s) URL")
	}

	if g.SyncInterval < 0 {
		return errors.New("sync-interval cannot be negative")
	}

	if g.MaxResults <= 0 {
		return errors.New("max-results must be positive")
	}

	return nil
}
