package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Classifier  ClassifierConfig  `toml:"classifier"`
	Storage     StorageConfig     `toml:"storage"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Anthropic AnthropicConfig `toml:"anthropic"`
	YouTube   YouTubeConfig   `toml:"youtube"`
}

// AnthropicConfig contains Anthropic API credentials for the categorizer.
type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// YouTubeConfig contains YouTube Music proxy settings.
type YouTubeConfig struct {
	ProxyURL string `toml:"proxy_url"`
	AuthFile string `toml:"auth_file"`
}

// ClassifierConfig contains categorizer prompt policy: scoring weights and
// the confidence floor below which tracks fall back to the default collection.
type ClassifierConfig struct {
	TimeWeight      int     `toml:"time_weight"`
	SongWeight      int     `toml:"song_weight"`
	ConfidenceFloor float64 `toml:"confidence_floor"`
}

// StorageConfig contains file-store and database locations.
type StorageConfig struct {
	DataDir      string `toml:"data_dir"`
	ReportsDir   string `toml:"reports_dir"`
	DatabasePath string `toml:"database_path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment overrides via [ApplyEnv].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.ApplyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotenv loads an optional .env file into the process environment.
// A missing file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays environment variables onto the config so secrets can stay
// out of config.toml.
func (c *Config) ApplyEnv() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Credentials.Anthropic.APIKey = key
	}
	if authFile := os.Getenv("FLOE_YT_AUTH_FILE"); authFile != "" {
		c.Credentials.YouTube.AuthFile = authFile
	}
}

// Validate checks the preconditions for a sync run that depend on config
// alone: a usable categorizer credential must be present.
func (c *Config) Validate() error {
	if c.Credentials.Anthropic.APIKey == "" {
		return fmt.Errorf("%w: ANTHROPIC_API_KEY not set", ErrMissingCredentials)
	}
	return nil
}
