package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models myspy.yml.
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	User struct {
		ID               string `yaml:"id"`
		ProfileType      string `yaml:"profile_type"`
		ProfileCompleted bool   `yaml:"profile_completed"`
	} `yaml:"user"`
	Session struct {
		Token string `yaml:"token"`
	} `yaml:"session"`
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "myspy.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with myspy config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config.api.base_url must be an absolute URL")
	}
	switch c.User.ProfileType {
	case "", "individual", "business", "admin":
	default:
		return fmt.Errorf("config.user.profile_type must be individual, business, or admin")
	}
	return nil
}

// Default returns the default Config pointing at a local stub backend.
func Default() *Config {
	var cfg Config
	cfg.API.BaseURL = "http://localhost:8787"
	cfg.User.ProfileType = "individual"
	return &cfg
}

// Save writes the config back to the workspace file.
func Save(workspace string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(workspace), data, 0o644)
}
