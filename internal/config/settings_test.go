package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadSettings_Defaults(t *testing.T) {
	_ = os.Unsetenv("STORESEARCH_PORT")
	_ = os.Unsetenv("STORESEARCH_AUTH_TYPE")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeNone {
		t.Errorf("Expected default auth type '%s', got '%s'", AuthTypeNone, settings.Auth.Type)
	}
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got '%s'", settings.Host)
	}
}

func TestLoadSettings_EnvVars(t *testing.T) {
	t.Setenv("STORESEARCH_PORT", "9090")
	t.Setenv("STORESEARCH_AUTH_TYPE", "basic")
	t.Setenv("STORESEARCH_AUTH_BASIC_USERNAME", "admin")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeBasic {
		t.Errorf("Expected auth type '%s', got '%s'", AuthTypeBasic, settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "admin" {
		t.Errorf("Expected username 'admin', got '%s'", settings.Auth.Basic.Username)
	}
}

func TestLoadSettings_APIKeys_EnvVar(t *testing.T) {
	t.Setenv("STORESEARCH_AUTH_API_KEYS", "key1, key2,key3")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if len(settings.Auth.APIKeys) != 3 {
		t.Fatalf("Expected 3 API keys, got %d", len(settings.Auth.APIKeys))
	}
	if settings.Auth.APIKeys[0] != "key1" {
		t.Errorf("Expected key1, got '%s'", settings.Auth.APIKeys[0])
	}
	if settings.Auth.APIKeys[1] != "key2" {
		t.Errorf("Expected key2, got '%s'", settings.Auth.APIKeys[1])
	}
	if settings.Auth.APIKeys[2] != "key3" {
		t.Errorf("Expected key3, got '%s'", settings.Auth.APIKeys[2])
	}
}

func TestLoadSettings_APIKeys_SingleKey(t *testing.T) {
	t.Setenv("STORESEARCH_AUTH_API_KEYS", "singlekey")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if len(settings.Auth.APIKeys) != 1 {
		t.Fatalf("Expected 1 API key, got %d", len(settings.Auth.APIKeys))
	}
	if settings.Auth.APIKeys[0] != "singlekey" {
		t.Errorf("Expected singlekey, got '%s'", settings.Auth.APIKeys[0])
	}
}

func TestLoadSettings_EnvFile(t *testing.T) {
	content := []byte("host=127.0.0.2\nport=7000")
	tmpEnv := ".env"
	if err := os.WriteFile(tmpEnv, content, 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}
	defer func() { _ = os.Remove(tmpEnv) }()

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "127.0.0.2" {
		t.Errorf("Expected host 127.0.0.2, got %s", settings.Host)
	}
	if settings.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", settings.Port)
	}
}

func TestLoadSettings_InvalidConfig(t *testing.T) {
	t.Setenv("STORESEARCH_PORT", "not-a-number")

	_, err := LoadSettings()
	if err == nil {
		t.Fatal("Expected error for invalid port type")
	}
}

func TestLoadSettingsWithFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("STORESEARCH_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	_ = flags.Set("port", "7777")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 7777 {
		t.Errorf("Expected CLI port 7777, got %d", settings.Port)
	}
}

func TestLoadSettingsWithFlags_EnvOverridesDefault(t *testing.T) {
	t.Setenv("STORESEARCH_HOST", "192.168.1.1")

	settings, err := LoadSettingsWithFlags(nil)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "192.168.1.1" {
		t.Errorf("Expected env host '192.168.1.1', got '%s'", settings.Host)
	}
}

func TestLoadSettingsWithFlags_NilFlags(t *testing.T) {
	_ = os.Unsetenv("STORESEARCH_PORT")

	settings, err := LoadSettingsWithFlags(nil)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
}

func TestLoadSettingsWithFlags_AllFlagTypes(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", "", "")
	flags.Int("port", 0, "")
	flags.String("auth-type", "", "")
	flags.String("auth-basic-username", "", "")
	flags.String("auth-basic-password", "", "")
	flags.StringSlice("auth-api-keys", nil, "")

	_ = flags.Set("host", "localhost")
	_ = flags.Set("port", "3000")
	_ = flags.Set("auth-type", "basic")
	_ = flags.Set("auth-basic-username", "testuser")
	_ = flags.Set("auth-basic-password", "testpass")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", settings.Host)
	}
	if settings.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", settings.Port)
	}
	if settings.Auth.Type != "basic" {
		t.Errorf("Expected auth type 'basic', got '%s'", settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "testuser" {
		t.Errorf("Expected username 'testuser', got '%s'", settings.Auth.Basic.Username)
	}
	if settings.Auth.Basic.Password != "testpass" {
		t.Errorf("Expected password 'testpass', got '%s'", settings.Auth.Basic.Password)
	}
}

// --- SearchSettings Tests ---

func TestLoadSettings_SearchDefaults(t *testing.T) {
	_ = os.Unsetenv("STORESEARCH_SEARCH_DATA_DIR")
	_ = os.Unsetenv("STORESEARCH_SEARCH_SYNC_URL")
	_ = os.Unsetenv("STORESEARCH_SEARCH_SYNC_INTERVAL")
	_ = os.Unsetenv("STORESEARCH_SEARCH_MAX_RESULTS")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if !strings.HasSuffix(settings.Search.DataDir, ".storesearch") {
		t.Errorf("Expected data dir to end with '.storesearch', got '%s'", settings.Search.DataDir)
	}
	if settings.Search.SyncURL != "" {
		t.Errorf("Expected empty sync URL by default, got '%s'", settings.Search.SyncURL)
	}
	if settings.Search.SyncInterval != 15*time.Minute {
		t.Errorf("Expected sync interval 15m, got %v", settings.Search.SyncInterval)
	}
	if settings.Search.MaxResults != 250 {
		t.Errorf("Expected max results 250, got %d", settings.Search.MaxResults)
	}
}

func TestLoadSettings_SearchEnvVars(t *testing.T) {
	t.Setenv("STORESEARCH_SEARCH_DATA_DIR", "/custom/path")
	t.Setenv("STORESEARCH_SEARCH_SYNC_URL", "https://shop.example.com/api/search-sync")
	t.Setenv("STORESEARCH_SEARCH_SYNC_INTERVAL", "30m")
	t.Setenv("STORESEARCH_SEARCH_MAX_RESULTS", "50")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Search.DataDir != "/custom/path" {
		t.Errorf("Expected data dir '/custom/path', got '%s'", settings.Search.DataDir)
	}
	if settings.Search.SyncURL != "https://shop.example.com/api/search-sync" {
		t.Errorf("Expected sync URL from env, got '%s'", settings.Search.SyncURL)
	}
	if settings.Search.SyncInterval != 30*time.Minute {
		t.Errorf("Expected sync interval 30m, got %v", settings.Search.SyncInterval)
	}
	if settings.Search.MaxResults != 50 {
		t.Errorf("Expected max results 50, got %d", settings.Search.MaxResults)
	}
}

func TestLoadSettings_SearchDataDirExpandHome(t *testing.T) {
	t.Setenv("STORESEARCH_SEARCH_DATA_DIR", "~/custom-storesearch")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, "custom-storesearch")
	if settings.Search.DataDir != expected {
		t.Errorf("Expected data dir '%s', got '%s'", expected, settings.Search.DataDir)
	}
}

func TestLoadSettingsWithFlags_SearchFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data-dir", "", "")
	flags.String("sync-url", "", "")
	flags.Duration("sync-interval", 0, "")
	flags.Int("max-results", 0, "")

	_ = flags.Set("data-dir", "/flag/path")
	_ = flags.Set("sync-url", "http://localhost:9999/sync")
	_ = flags.Set("sync-interval", "5m")
	_ = flags.Set("max-results", "10")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Search.DataDir != "/flag/path" {
		t.Errorf("Expected data dir '/flag/path', got '%s'", settings.Search.DataDir)
	}
	if settings.Search.SyncURL != "http://localhost:9999/sync" {
		t.Errorf("Expected sync URL from flag, got '%s'", settings.Search.SyncURL)
	}
	if settings.Search.SyncInterval != 5*time.Minute {
		t.Errorf("Expected sync interval 5m, got %v", settings.Search.SyncInterval)
	}
	if settings.Search.MaxResults != 10 {
		t.Errorf("Expected max results 10, got %d", settings.Search.MaxResults)
	}
}

func TestLoadSettingsWithFlags_SearchFlagsOverrideEnv(t *testing.T) {
	t.Setenv("STORESEARCH_SEARCH_MAX_RESULTS", "100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-results", 0, "")
	_ = flags.Set("max-results", "25")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Search.MaxResults != 25 {
		t.Errorf("Expected flag to override env for max results, got %d", settings.Search.MaxResults)
	}
}

// --- ValidateSettings Tests ---

func validSearch() SearchSettings {
	return SearchSettings{
		DataDir:      "/tmp/test",
		SyncURL:      "https://shop.example.com/api/search-sync",
		SyncInterval: 15 * time.Minute,
		MaxResults:   250,
	}
}

func TestValidateSettings_ValidNone(t *testing.T) {
	s := &Settings{Port: 8080, Auth: AuthSettings{Type: AuthTypeNone}, Search: validSearch()}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for valid none auth, got: %v", err)
	}
}

func TestValidateSettings_ValidNone_EmptyType(t *testing.T) {
	s := &Settings{Port: 8080, Auth: AuthSettings{Type: ""}, Search: validSearch()}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for empty auth type, got: %v", err)
	}
}

func TestValidateSettings_ValidBasic(t *testing.T) {
	s := &Settings{
		Port: 8080,
		Auth: AuthSettings{
			Type: AuthTypeBasic,
			Basic: BasicAuthSettings{
				Username: "admin",
				Password: "secret",
			},
		},
		Search: validSearch(),
	}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for valid basic auth, got: %v", err)
	}
}

func TestValidateSettings_ValidAPIKey(t *testing.T) {
	s := &Settings{
		Port: 8080,
		Auth: AuthSettings{
			Type:    AuthTypeAPIKey,
			APIKeys: []string{"key1", "key2"},
		},
		Search: validSearch(),
	}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for valid apikey auth, got: %v", err)
	}
}

func TestValidateSettings_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero port", 0},
		{"negative port", -1},
		{"port too large", 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{Port: tt.port, Auth: AuthSettings{Type: AuthTypeNone}, Search: validSearch()}
			err := ValidateSettings(s)
			if err == nil {
				t.Fatalf("Expected error for port %d", tt.port)
			}
			if !strings.Contains(err.Error(), "port must be") {
				t.Errorf("Expected 'port must be' in error, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_NoneWithCredentials(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{
			name: "none with username",
			settings: Settings{
				Port: 8080,
				Auth: AuthSettings{
					Type:  AuthTypeNone,
					Basic: BasicAuthSettings{Username: "admin"},
				},
				Search: validSearch(),
			},
		},
		{
			name: "none with password",
			settings: Settings{
				Port: 8080,
				Auth: AuthSettings{
					Type:  AuthTypeNone,
					Basic: BasicAuthSettings{Password: "secret"},
				},
				Search: validSearch(),
			},
		},
		{
			name: "none with api keys",
			settings: Settings{
				Port: 8080,
				Auth: AuthSettings{
					Type:    AuthTypeNone,
					APIKeys: []string{"key1"},
				},
				Search: validSearch(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings(&tt.settings)
			if err == nil {
				t.Fatal("Expected error for none with credentials")
			}
			if !strings.Contains(err.Error(), "incompatible") {
				t.Errorf("Expected 'incompatible' in error, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_BasicAuthMissingUsername(t *testing.T) {
	s := &Settings{
		Port: 8080,
		Auth: AuthSettings{
			Type: AuthTypeBasic,
			Basic: BasicAuthSettings{
				Password: "secret",
			},
		},
		Search: validSearch(),
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for basic auth without username")
	}
	if !strings.Contains(err.Error(), "username and password") {
		t.Errorf("Expected 'username and password' in error, got: %v", err)
	}
}

func TestValidateSettings_BasicAuthWithAPIKeys(t *testing.T) {
	s := &Settings{
		Port: 8080,
		Auth: AuthSettings{
			Type: AuthTypeBasic,
			Basic: BasicAuthSettings{
				Username: "admin",
				Password: "secret",
			},
			APIKeys: []string{"key1"},
		},
		Search: validSearch(),
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for basic + api keys")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("Expected 'mutually exclusive' in error, got: %v", err)
	}
}

func TestValidateSettings_APIKeyMissingKeys(t *testing.T) {
	s := &Settings{
		Port:   8080,
		Auth:   AuthSettings{Type: AuthTypeAPIKey},
		Search: validSearch(),
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for apikey without keys")
	}
	if !strings.Contains(err.Error(), "requires at least one") {
		t.Errorf("Expected 'requires at least one' in error, got: %v", err)
	}
}

func TestValidateSettings_APIKeyWithBasicCreds(t *testing.T) {
	s := &Settings{
		Port: 8080,
		Auth: AuthSettings{
			Type:    AuthTypeAPIKey,
			APIKeys: []string{"key1"},
			Basic: BasicAuthSettings{
				Username: "admin",
			},
		},
		Search: validSearch(),
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for apikey + basic creds")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("Expected 'mutually exclusive' in error, got: %v", err)
	}
}

func TestValidateSettings_UnknownAuthType(t *testing.T) {
	s := &Settings{
		Port:   8080,
		Auth:   AuthSettings{Type: "oauth"},
		Search: validSearch(),
	}
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for unknown auth type")
	}
	if !strings.Contains(err.Error(), "unknown auth-type") {
		t.Errorf("Expected 'unknown auth-type' in error, got: %v", err)
	}
}

// --- Search Validation Tests ---

func TestValidateSettings_SearchEmptyDataDir(t *testing.T) {
	search := validSearch()
	search.DataDir = ""
	s := &Settings{Port: 8080, Auth: AuthSettings{Type: AuthTypeNone}, Search: search}

	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for empty data dir")
	}
	if !strings.Contains(err.Error(), "data-dir cannot be empty") {
		t.Errorf("Expected 'data-dir cannot be empty' in error, got: %v", err)
	}
}

func TestValidateSettings_SearchInvalidSyncURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "shop.example.com/sync"},
		{"ftp scheme", "ftp://shop.example.com/sync"},
		{"relative path", "/api/search-sync"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := validSearch()
			search.SyncURL = tt.url
			s := &Settings{Port: 8080, Auth: AuthSettings{Type: AuthTypeNone}, Search: search}

			err := ValidateSettings(s)
			if err == nil {
				t.Fatalf("Expected error for sync URL %q", tt.url)
			}
			if !strings.Contains(err.Error(), "http(s)") {
				t.Errorf("Expected 'http(s)' in error, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_SearchEmptySyncURL(t *testing.T) {
	// An empty sync URL is valid: the service runs purely off the cache.
	search := validSearch()
	search.SyncURL = ""
	s := &Settings{Port: 8080, Auth: AuthSettings{Type: AuthTypeNone}, Search: search}

	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for empty sync URL, got: %v", err)
	}
}

func TestValidateSettings_SearchNegativeSyncInterval(t *testing.T) {
	search := validSearch()
	search.SyncInterval = -time.Minute
	s := &Settings{Port: 8080, Auth: AuthSettings{Type: AuthTypeNone}, Search: search}

	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for negative sync interval")
	}
	if !strings.Contains(err.Error(), "sync-interval cannot be negative") {
		t.Errorf("Expected 'sync-interval cannot be negative' in error, got: %v", err)
	}
}

func TestValidateSettings_SearchZeroSyncInterval(t *testing.T) {
	// Interval zero disables periodic re-sync and is valid.
	search := validSearch()
	search.SyncInterval = 0
	s := &Settings{Port: 8080, Auth: AuthSettings{Type: AuthTypeNone}, Search: search}

	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error for zero sync interval, got: %v", err)
	}
}

func TestValidateSettings_SearchInvalidMaxResults(t *testing.T) {
	search := validSearch()
	search.MaxResults = 0
	s := &Settings{Port: 8080, Auth: AuthSettings{Type: AuthTypeNone}, Search: search}

	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for zero max results")
	}
	if !strings.Contains(err.Error(), "max-results must be positive") {
		t.Errorf("Expected 'max-results must be positive' in error, got: %v", err)
	}
}

// --- Helper Function Tests ---

func TestExpandHomeDir(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde prefix", "~/test", filepath.Join(home, "test")},
		{"tilde only", "~", home},
		{"no tilde", "/absolute/path", "/absolute/path"},
		{"tilde in middle", "/path/~/test", "/path/~/test"},
		{"relative path", "relative/path", "relative/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandHomeDir(tt.input)
			if result != tt.expected {
				t.Errorf("expandHomeDir(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFilterEmptyStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"no empties", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"with empties", []string{"a", "", "b", "", "c"}, []string{"a", "b", "c"}},
		{"all empties", []string{"", "", ""}, nil},
		{"nil input", nil, nil},
		{"single empty", []string{""}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filterEmptyStrings(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("filterEmptyStrings(%v) = %v, want %v", tt.input, result, tt.expected)
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("filterEmptyStrings(%v) = %v, want %v", tt.input, result, tt.expected)
					break
				}
			}
		})
	}
}
