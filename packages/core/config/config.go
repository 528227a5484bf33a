package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the hitshell configuration
type Config struct {
	Servers         []Server          `yaml:"servers,omitempty"`
	DefaultServer   string            `yaml:"defaultServer,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"` // Sent with every request
	Auth            *Auth             `yaml:"auth,omitempty"`
	Timeout         int               `yaml:"timeout,omitempty"` // milliseconds, 0 waits forever
	FollowRedirects *bool             `yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `yaml:"validateSSL,omitempty"`
	Proxy           string            `yaml:"proxy,omitempty"`
	RateLimit       float64           `yaml:"rateLimit,omitempty"` // requests per second, 0 is unlimited
	HistoryFile     string            `yaml:"historyFile,omitempty"`
	ServersDB       string            `yaml:"serversDB,omitempty"`
	LogFile         string            `yaml:"logFile,omitempty"`
	NoColor         *bool             `yaml:"noColor,omitempty"`
}

// Server is a named base address.
type Server struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Auth holds the key pair used to sign requests.
type Auth struct {
	PublicKey  string `yaml:"publicKey"`
	PrivateKey string `yaml:"privateKey"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"hitshell.yaml",
	".hitshell.yaml",
	"hitshell.yml",
	".hitshell.yml",
}

// Expander rewrites string values after loading. env.Resolver satisfies it.
type Expander interface {
	Resolve(input string) string
}

// LoadConfig loads configuration from the specified path or searches the
// current directory. A nil expander leaves values untouched.
func LoadConfig(path string, exp Expander) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path, exp)
	}
	return FindAndLoadConfig(".", exp)
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string, exp Expander) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath, exp)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string, exp Expander) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if exp != nil {
		config.expand(exp)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *Config) expand(exp Expander) {
	for i := range c.Servers {
		c.Servers[i].Address = exp.Resolve(c.Servers[i].Address)
	}
	for k, v := range c.Headers {
		c.Headers[k] = exp.Resolve(v)
	}
	if c.Auth != nil {
		c.Auth.PublicKey = exp.Resolve(c.Auth.PublicKey)
		c.Auth.PrivateKey = exp.Resolve(c.Auth.PrivateKey)
	}
	c.Proxy = exp.Resolve(c.Proxy)
	c.HistoryFile = exp.Resolve(c.HistoryFile)
	c.ServersDB = exp.Resolve(c.ServersDB)
	c.LogFile = exp.Resolve(c.LogFile)
}

// Validate checks server names and the default server reference.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("server with address %q has no name", s.Address)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate server %q", s.Name)
		}
		seen[s.Name] = true
	}
	if c.DefaultServer != "" && !seen[c.DefaultServer] {
		return fmt.Errorf("default server %q is not defined", c.DefaultServer)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if len(other.Servers) > 0 {
		result.Servers = other.Servers
	}
	if other.DefaultServer != "" {
		result.DefaultServer = other.DefaultServer
	}
	if other.Auth != nil {
		result.Auth = other.Auth
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.HistoryFile != "" {
		result.HistoryFile = other.HistoryFile
	}
	if other.ServersDB != "" {
		result.ServersDB = other.ServersDB
	}
	if other.LogFile != "" {
		result.LogFile = other.LogFile
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
