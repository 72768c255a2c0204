package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig represents ~/.trino/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile" json:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles" json:"profiles"`
}

// Profile is one named set of connection defaults.
type Profile struct {
	Server      string            `yaml:"server,omitempty" json:"server,omitempty"`
	User        string            `yaml:"user,omitempty" json:"user,omitempty"`
	Catalog     string            `yaml:"catalog,omitempty" json:"catalog,omitempty"`
	Schema      string            `yaml:"schema,omitempty" json:"schema,omitempty"`
	Source      string            `yaml:"source,omitempty" json:"source,omitempty"`
	Output      string            `yaml:"output,omitempty" json:"output,omitempty"`
	Timeout     string            `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	AccessToken string            `yaml:"access-token,omitempty" json:"access-token,omitempty"`
	Presto      bool              `yaml:"presto,omitempty" json:"presto,omitempty"`
	Properties  map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// ActiveProfile returns the profile named by override, or the current profile.
// An unknown current profile yields an empty profile; an unknown override is
// an error.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	name := c.CurrentProfile
	if override != "" {
		name = override
	}
	if p, ok := c.Profiles[name]; ok {
		return p, nil
	}
	if override != "" {
		return Profile{}, fmt.Errorf("profile %q not found", override)
	}
	return Profile{}, nil
}

// ConfigDir returns the path to ~/.trino/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".trino")
}

// ConfigPath returns the path to ~/.trino/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads ~/.trino/config.yaml.
func LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// SaveUserConfig writes ~/.trino/config.yaml.
func SaveUserConfig(cfg *UserConfig) error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
