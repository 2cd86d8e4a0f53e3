// Package config resolves runtime settings.
//
// Precedence, lowest first: built-in defaults, an optional YAML file, a .env
// file in the working directory, process environment, and finally command
// line flags (applied by the caller when a flag was explicitly set).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teemow/calendar-mcp/internal/agent"
	"github.com/teemow/calendar-mcp/internal/gmail"
)

// EnvConfigFile names the YAML config file when --config is not given.
const EnvConfigFile = "CALENDAR_MCP_CONFIG"

// Agent delegate modes.
const (
	AgentModeHTTP    = "http"
	AgentModeCommand = "command"
)

// Config is the resolved configuration.
type Config struct {
	TokenDir        string `yaml:"token_dir"`
	CredentialsFile string `yaml:"credentials_file"`
	MaxEmailResults int    `yaml:"max_email_results"`

	API       APIConfig       `yaml:"api"`
	Agent     AgentConfig     `yaml:"agent"`
	Providers ProvidersConfig `yaml:"providers"`
}

// APIConfig is the REST listener.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (c APIConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// AgentConfig selects and configures the agent delegate.
type AgentConfig struct {
	Mode            string        `yaml:"mode"`
	URL             string        `yaml:"url"`
	Token           string        `yaml:"token"`
	Command         string        `yaml:"command"`
	Timeout         time.Duration `yaml:"timeout"`
	PreferencesFile string        `yaml:"preferences_file"`
}

// ProvidersConfig overrides third-party endpoints. Empty values select the
// adapters' defaults.
type ProvidersConfig struct {
	GeolocationURL string `yaml:"geolocation_url"`
	WeatherURL     string `yaml:"weather_url"`
	SearchURL      string `yaml:"search_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TokenDir:        DefaultTokenDir(),
		CredentialsFile: "credentials.json",
		MaxEmailResults: gmail.MaxResultsCeiling,
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Agent: AgentConfig{
			Mode:            AgentModeHTTP,
			Timeout:         agent.DefaultTimeout,
			PreferencesFile: filepath.Join("knowledge", "user_preference.txt"),
		},
	}
}

// DefaultTokenDir is <user cache dir>/calendar-mcp/tokens, or ./tokens when
// no cache dir can be determined.
func DefaultTokenDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "tokens"
	}
	return filepath.Join(dir, "calendar-mcp", "tokens")
}

// Load builds a Config. path may be empty, in which case EnvConfigFile is
// consulted; a named file that does not exist is an error, an unnamed one
// is skipped. A missing .env file is ignored.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.TokenDir, "GMAIL_TOKEN_DIR")
	setString(&c.CredentialsFile, "GMAIL_CREDENTIALS_FILE")
	setString(&c.API.Host, "API_HOST")
	setString(&c.Agent.Mode, "AGENT_MODE")
	setString(&c.Agent.URL, "AGENT_URL")
	setString(&c.Agent.Token, "AGENT_TOKEN")
	setString(&c.Agent.Command, "AGENT_COMMAND")
	setString(&c.Agent.PreferencesFile, "AGENT_PREFERENCES_FILE")
	setString(&c.Providers.GeolocationURL, "GEOLOCATION_URL")
	setString(&c.Providers.WeatherURL, "WEATHER_URL")
	setString(&c.Providers.SearchURL, "SEARCH_URL")

	if err := setInt(&c.API.Port, "API_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.MaxEmailResults, "MAX_EMAIL_RESULTS"); err != nil {
		return err
	}
	if v := os.Getenv("AGENT_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("AGENT_TIMEOUT: %w", err)
		}
		c.Agent.Timeout = d
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.TokenDir == "" {
		return errors.New("token directory must not be empty")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid API port %d", c.API.Port)
	}
	if c.MaxEmailResults < 1 || c.MaxEmailResults > gmail.MaxResultsCeiling {
		return fmt.Errorf("max email results must be between 1 and %d, got %d", gmail.MaxResultsCeiling, c.MaxEmailResults)
	}
	switch c.Agent.Mode {
	case AgentModeHTTP, AgentModeCommand:
	default:
		return fmt.Errorf("unknown agent mode %q (want %s or %s)", c.Agent.Mode, AgentModeHTTP, AgentModeCommand)
	}
	if c.Agent.Timeout < 0 {
		return fmt.Errorf("agent timeout must not be negative")
	}
	return nil
}

// parseTimeout accepts Go durations ("90s") and bare seconds ("600").
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
