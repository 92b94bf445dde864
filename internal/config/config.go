// ABOUTME: Configuration loading and parsing for fieldtask-mcp
// ABOUTME: Optional YAML or TOML file with environment variable expansion over built-in defaults

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted besides the credentials.
const (
	EnvConfigPath = "FIELDTASK_CONFIG"
	EnvBaseURL    = "FIELDTASK_BASE_URL"
)

// DefaultBaseURL is the remote procedure endpoint used when nothing overrides it.
const DefaultBaseURL = "https://us-central1-fieldtask-prod.cloudfunctions.net"

// Config represents the complete fieldtask-mcp configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Backend BackendConfig `yaml:"backend" toml:"backend"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the identity advertised to the MCP host
type ServerConfig struct {
	Name string `yaml:"name" toml:"name"`
}

// BackendConfig holds the remote procedure endpoint and procedure names
type BackendConfig struct {
	BaseURL    string           `yaml:"base_url" toml:"base_url"`
	Procedures ProceduresConfig `yaml:"procedures" toml:"procedures"`
}

// ProceduresConfig names each remote procedure under the base URL
type ProceduresConfig struct {
	Authenticate string `yaml:"authenticate" toml:"authenticate"`
	Tasks        string `yaml:"tasks" toml:"tasks"`
	Locations    string `yaml:"locations" toml:"locations"`
	CompleteTask string `yaml:"complete_task" toml:"complete_task"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Name: "fieldtask-mcp"},
		Backend: BackendConfig{
			BaseURL: DefaultBaseURL,
			Procedures: ProceduresConfig{
				Authenticate: "authenticateUser",
				Tasks:        "getTasks",
				Locations:    "getLocations",
				CompleteTask: "completeTask",
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path on top of Default().
// Environment variables in the format ${VAR_NAME} are expanded before decoding.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// An empty path skips the file entirely. All environment reads go through
// lookup; nil means os.LookupEnv.
func Load(path string, lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data), lookup)

		if strings.EqualFold(filepath.Ext(path), ".toml") {
			if _, err := toml.Decode(expanded, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if override, ok := lookup(EnvBaseURL); ok && strings.TrimSpace(override) != "" {
		cfg.Backend.BaseURL = strings.TrimSpace(override)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the values lookup returns.
// An unset variable is replaced with an empty string.
func expandEnvVars(s string, lookup LookupFunc) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		v, _ := lookup(varName)
		return v
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("backend.base_url must include a host")
	}

	procs := []struct{ key, value string }{
		{"backend.procedures.authenticate", c.Backend.Procedures.Authenticate},
		{"backend.procedures.tasks", c.Backend.Procedures.Tasks},
		{"backend.procedures.locations", c.Backend.Procedures.Locations},
		{"backend.procedures.complete_task", c.Backend.Procedures.CompleteTask},
	}
	for _, p := range procs {
		if strings.TrimSpace(p.value) == "" {
			return fmt.Errorf("%s is required", p.key)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}

	return nil
}
