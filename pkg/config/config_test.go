package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantErr  bool
		errMsg   string
		validate func(*testing.T, *Config)
	}{
		{
			name:    "empty json gets defaults",
			file:    "userapi.json",
			content: `{}`,
			validate: func(t *testing.T, c *Config) {
				if c.Server.Port != 3000 {
					t.Errorf("Server.Port = %v, want 3000", c.Server.Port)
				}
				if c.Notify.Port != 3001 {
					t.Errorf("Notify.Port = %v, want 3001", c.Notify.Port)
				}
				if c.Database.Driver != "sqlite" || c.Database.Database != "users.db" {
					t.Errorf("Database = %+v, want sqlite users.db", c.Database)
				}
			},
		},
		{
			name: "json overrides",
			file: "userapi.json",
			content: `{
				"server": {"host": "127.0.0.1", "port": 8080, "cors_origin": "http://localhost:5173"},
				"notify": {"port": 8081},
				"database": {"driver": "sqlite", "database": "/var/lib/userapi/users.db"},
				"debug": {"enabled": true}
			}`,
			validate: func(t *testing.T, c *Config) {
				if got := c.Server.Addr(); got != "127.0.0.1:8080" {
					t.Errorf("Server.Addr() = %v, want 127.0.0.1:8080", got)
				}
				if got := c.Notify.Addr(); got != ":8081" {
					t.Errorf("Notify.Addr() = %v, want :8081", got)
				}
				if c.Server.CORSOrigin != "http://localhost:5173" {
					t.Errorf("Server.CORSOrigin = %v", c.Server.CORSOrigin)
				}
				if c.Database.Database != "/var/lib/userapi/users.db" {
					t.Errorf("Database.Database = %v", c.Database.Database)
				}
				if !c.Debug.Enabled {
					t.Error("Debug.Enabled should be true")
				}
			},
		},
		{
			name: "yaml postgres config",
			file: "userapi.yaml",
			content: `
server:
  port: 9000
database:
  driver: postgres
  database: userapi
  user: userapi
`,
			validate: func(t *testing.T, c *Config) {
				if c.Server.Port != 9000 {
					t.Errorf("Server.Port = %v, want 9000", c.Server.Port)
				}
				if c.Database.Host != "localhost" || c.Database.Port != 5432 {
					t.Errorf("Database = %+v, want localhost:5432", c.Database)
				}
				if c.Database.SSLMode != "disable" {
					t.Errorf("Database.SSLMode = %v, want disable", c.Database.SSLMode)
				}
			},
		},
		{
			name:    "port out of range",
			file:    "userapi.json",
			content: `{"server": {"port": 70000}}`,
			wantErr: true,
			errMsg:  "invalid config",
		},
		{
			name:    "unknown driver",
			file:    "userapi.json",
			content: `{"database": {"driver": "oracle"}}`,
			wantErr: true,
			errMsg:  "invalid config",
		},
		{
			name:    "same port for both listeners",
			file:    "userapi.json",
			content: `{"server": {"port": 4000}, "notify": {"port": 4000}}`,
			wantErr: true,
			errMsg:  "must differ from server port",
		},
		{
			name:    "postgres without database name",
			file:    "userapi.json",
			content: `{"database": {"driver": "postgres"}}`,
			wantErr: true,
			errMsg:  "database name is required",
		},
		{
			name:    "invalid json",
			file:    "userapi.json",
			content: `{invalid json`,
			wantErr: true,
			errMsg:  "failed to parse config file",
		},
		{
			name:    "invalid yaml",
			file:    "userapi.yml",
			content: "server: [unterminated",
			wantErr: true,
			errMsg:  "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpFile := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(tmpFile, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write test file: %v", err)
			}

			got, err := Load(tmpFile)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() error = nil, want error containing %q", tt.errMsg)
					return
				}
				if tt.errMsg != "" && !contains(err.Error(), tt.errMsg) {
					t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error = %v", err)
				return
			}

			if tt.validate != nil {
				tt.validate(t, got)
			}
		})
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	if err == nil {
		t.Fatal("Load() should error for nonexistent file")
	}
	if !contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %q, want error containing 'failed to read config file'", err.Error())
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := cfg.Server.Addr(); got != ":3000" {
		t.Errorf("Server.Addr() = %v, want :3000", got)
	}
	if got := cfg.Notify.Addr(); got != ":3001" {
		t.Errorf("Notify.Addr() = %v, want :3001", got)
	}
}

func TestLoadDefault(t *testing.T) {
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	defer os.Chdir(origDir)

	t.Setenv("HOME", t.TempDir())

	tmpDir := t.TempDir()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	// No config file falls back to defaults
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() unexpected error = %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("LoadDefault() Server.Port = %v, want 3000", cfg.Server.Port)
	}

	// Config in current directory
	if err := os.WriteFile("userapi.yaml", []byte("server:\n  port: 3100\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err = LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() unexpected error = %v", err)
	}
	if cfg.Server.Port != 3100 {
		t.Errorf("LoadDefault() Server.Port = %v, want 3100", cfg.Server.Port)
	}
}
