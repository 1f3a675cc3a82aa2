// Package cliconfig loads and saves the workbench CLI configuration
// from a TOML file under the user's home directory.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

const defaultTimeoutSeconds = 30

type ServerConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Retries        int    `toml:"retries"`
}

type DefaultsConfig struct {
	IncludeMalicious bool `toml:"include_malicious"`
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultConfigPath is $HOME/.workbench/config.toml, falling back to the
// working directory when the home directory cannot be resolved.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".workbench", "config.toml")
}

// SessionPath is where the CLI persists the backend session token
// between invocations.
func SessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".workbench-session"
	}
	return filepath.Join(home, ".workbench", "session")
}

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

// Load reads the config file at path. A missing file yields the
// defaults without error; a present but unreadable or malformed file is
// an error.
func Load(path string) (*Config, error) {
	var cfg Config
	cfg.Server.BaseURL = "http://localhost:5001"
	cfg.Server.TimeoutSeconds = defaultTimeoutSeconds

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}

	if err := checkFilePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:5001"
	}
	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = defaultTimeoutSeconds
	}

	return &cfg, nil
}

// Save writes the config to path, creating the directory when needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return nil
}

// LoadSessionToken returns the persisted session token, or "" when none
// is stored.
func LoadSessionToken(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// SaveSessionToken persists the session token with owner-only
// permissions. An empty token removes the file.
func SaveSessionToken(path, token string) error {
	if token == "" {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(path, []byte(token), 0600)
}
