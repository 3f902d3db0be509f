package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soypete/userapi/pkg/database"
)

// Config represents the userapi configuration
type Config struct {
	Server   ServerConfig    `json:"server" yaml:"server"`
	Notify   NotifyConfig    `json:"notify" yaml:"notify"`
	Database database.Config `json:"database" yaml:"database"`
	Debug    DebugConfig     `json:"debug" yaml:"debug"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host       string `json:"host" yaml:"host"` // empty binds all interfaces
	Port       int    `json:"port" yaml:"port"`
	CORSOrigin string `json:"cors_origin" yaml:"cors_origin"`
}

// NotifyConfig contains notification channel settings
type NotifyConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// DebugConfig contains debug settings
type DebugConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"` // log every request
}

// Addr returns the listen address of the HTTP API.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the listen address of the notification channel.
func (c NotifyConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load loads configuration from a JSON or YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	config.setDefaults()

	// Validate
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadDefault loads userapi.json or userapi.yaml from the current directory,
// then .userapi.json from home. With no file present it returns the defaults.
func LoadDefault() (*Config, error) {
	for _, name := range []string{"userapi.json", "userapi.yaml", "userapi.yml"} {
		if _, err := os.Stat(name); err == nil {
			return Load(name)
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homePath := filepath.Join(home, ".userapi.json")
		if _, err := os.Stat(homePath); err == nil {
			return Load(homePath)
		}
	}

	return Default(), nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = "*"
	}

	// Notify defaults
	if c.Notify.Port == 0 {
		c.Notify.Port = 3001
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" || c.Database.Driver == "sqlite3" {
		if c.Database.Database == "" {
			c.Database.Database = database.DefaultConfig().Database
		}
	} else {
		if c.Database.Host == "" {
			c.Database.Host = "localhost"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validateSchema(c); err != nil {
		return err
	}

	if c.Server.Port == c.Notify.Port && c.Server.Host == c.Notify.Host {
		return fmt.Errorf("notify port %d must differ from server port", c.Notify.Port)
	}

	if (c.Database.Driver == "postgres" || c.Database.Driver == "postgresql") && c.Database.Database == "" {
		return fmt.Errorf("database name is required for postgres driver")
	}

	return nil
}
