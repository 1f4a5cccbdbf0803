// Package config loads the webpro server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Platform PlatformConfig `yaml:"platform"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Admins   []AdminConfig  `yaml:"admins"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig identifies this site to the platform
type SiteConfig struct {
	URL           string `yaml:"url"`
	Secret        string `yaml:"secret"`
	AllowInsecure bool   `yaml:"allow_insecure"`
}

// PlatformConfig holds the platform endpoint and call timing
type PlatformConfig struct {
	BaseURL string `yaml:"base_url"`

	VerifyTimeout time.Duration `yaml:"-"`
	CallTimeout   time.Duration `yaml:"-"`
	CacheTTL      time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	VerifyTimeoutRaw string `yaml:"verify_timeout"`
	CallTimeoutRaw   string `yaml:"call_timeout"`
	CacheTTLRaw      string `yaml:"cache_ttl"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds the PostgreSQL connection string. An empty URL
// selects the in-memory directory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig selects where key verifications are cached. An empty
// RedisURL keeps them in process memory.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
}

// AdminConfig is one operator allowed to call the API. TokenHash is the
// sha256 hex of the bearer token.
type AdminConfig struct {
	Login          string `yaml:"login"`
	TokenHash      string `yaml:"token_hash"`
	CanManageUsers *bool  `yaml:"can_manage_users"`
}

// ManagesUsers reports the privilege, which defaults to true
func (a AdminConfig) ManagesUsers() bool {
	return a.CanManageUsers == nil || *a.CanManageUsers
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with the environment value, or an
// empty string when unset
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/api/webpro"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Site.URL == "" {
		return fmt.Errorf("site.url is required")
	}
	if c.Site.Secret == "" {
		return fmt.Errorf("site.secret is required")
	}

	for i, admin := range c.Admins {
		if admin.Login == "" {
			return fmt.Errorf("admins[%d].login is required", i)
		}
		if len(admin.TokenHash) != 64 {
			return fmt.Errorf("admins[%d].token_hash must be a sha256 hex digest", i)
		}
	}

	if c.Cache.RedisURL != "" && !strings.HasPrefix(c.Cache.RedisURL, "redis://") && !strings.HasPrefix(c.Cache.RedisURL, "rediss://") {
		return fmt.Errorf("cache.redis_url must use the redis:// or rediss:// scheme")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	for name, d := range map[string]time.Duration{
		"platform.verify_timeout": c.Platform.VerifyTimeout,
		"platform.call_timeout":   c.Platform.CallTimeout,
		"platform.cache_ttl":      c.Platform.CacheTTL,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"verify_timeout", cfg.Platform.VerifyTimeoutRaw, &cfg.Platform.VerifyTimeout},
		{"call_timeout", cfg.Platform.CallTimeoutRaw, &cfg.Platform.CallTimeout},
		{"cache_ttl", cfg.Platform.CacheTTLRaw, &cfg.Platform.CacheTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
