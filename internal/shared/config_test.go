package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Credentials.YouTube.ProxyURL != "http://127.0.0.1:8080" {
			t.Errorf("expected youtube proxy URL http://127.0.0.1:8080, got %s", config.Credentials.YouTube.ProxyURL)
		}

		if config.Credentials.Anthropic.Model != "claude-sonnet-4-5-20250929" {
			t.Errorf("unexpected default model %s", config.Credentials.Anthropic.Model)
		}

		if config.Classifier.ConfidenceFloor != 0.6 {
			t.Errorf("expected confidence floor 0.6, got %v", config.Classifier.ConfidenceFloor)
		}

		if config.Classifier.TimeWeight != 60 || config.Classifier.SongWeight != 40 {
			t.Errorf("unexpected default weights %d/%d", config.Classifier.TimeWeight, config.Classifier.SongWeight)
		}

		if config.Server.Port != 5000 {
			t.Errorf("expected server port 5000, got %d", config.Server.Port)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Storage.DataDir != defaultConfig.Storage.DataDir {
			t.Errorf("created config data dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[credentials.anthropic]
api_key = "sk-test"
model = "claude-sonnet-4-5-20250929"

[credentials.youtube]
proxy_url = "http://localhost:9090"
auth_file = "/path/to/headers_auth.json"

[classifier]
time_weight = 70
song_weight = 30
confidence_floor = 0.5

[storage]
data_dir = "/custom/data"
reports_dir = "/custom/logs"
database_path = "/custom/floe.db"

[server]
host = "0.0.0.0"
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.YouTube.ProxyURL != "http://localhost:9090" {
			t.Errorf("unexpected proxy URL %s", config.Credentials.YouTube.ProxyURL)
		}
		if config.Classifier.TimeWeight != 70 {
			t.Errorf("expected time weight 70, got %d", config.Classifier.TimeWeight)
		}
		if config.Storage.DataDir != "/custom/data" {
			t.Errorf("unexpected data dir %s", config.Storage.DataDir)
		}
	})

	t.Run("LoadConfigMissing", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
		t.Setenv("FLOE_YT_AUTH_FILE", "/env/headers.json")

		config := DefaultConfig()
		if config.Credentials.Anthropic.APIKey != "sk-from-env" {
			t.Errorf("expected env API key, got %s", config.Credentials.Anthropic.APIKey)
		}
		if config.Credentials.YouTube.AuthFile != "/env/headers.json" {
			t.Errorf("expected env auth file, got %s", config.Credentials.YouTube.AuthFile)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := &Config{}
		if !errors.Is(config.Validate(), ErrMissingCredentials) {
			t.Error("expected ErrMissingCredentials without an API key")
		}

		config.Credentials.Anthropic.APIKey = "sk-test"
		if err := config.Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	})
}

func TestLoadDotenv(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")

	if err := LoadDotenv(envPath); err != nil {
		t.Fatalf("missing .env should not be an error: %v", err)
	}

	if err := os.WriteFile(envPath, []byte("FLOE_TEST_VAR=hello\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	if err := LoadDotenv(envPath); err != nil {
		t.Fatalf("failed to load .env: %v", err)
	}

	if got := os.Getenv("FLOE_TEST_VAR"); got != "hello" {
		t.Errorf("expected FLOE_TEST_VAR=hello, got %q", got)
	}
	os.Unsetenv("FLOE_TEST_VAR")
}
