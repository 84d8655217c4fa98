package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mailshield/")
	v.AddConfigPath("$HOME/.mailshield")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAILSHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.filter_type", "smtp")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_quarantined", false)
	v.SetDefault("server.relay_address", "127.0.0.1")
	v.SetDefault("server.relay_port", 10026)
	v.SetDefault("server.relay_enabled", true)
	v.SetDefault("server.headers.verdict", "X-MailShield-Verdict")
	v.SetDefault("server.headers.risk", "X-MailShield-Risk")
	v.SetDefault("server.headers.hitl", "X-MailShield-HITL")
	v.SetDefault("server.headers.reason", "X-MailShield-Reason")

	// Sender intel defaults
	v.SetDefault("intel.budget", "2200ms")
	v.SetDefault("intel.http_connect_timeout", "1200ms")
	v.SetDefault("intel.http_total_timeout", "1500ms")
	v.SetDefault("intel.urlscan_api_key", "")
	v.SetDefault("intel.abuseipdb_api_key", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.domain_ttl", "168h")
	v.SetDefault("cache.ip_ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/intel_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/mailshield")

	// Sender graph defaults
	v.SetDefault("graph.type", "memory")
	v.SetDefault("graph.sqlite_path", "/data/sender_graph.db")

	// Feedback / trust tier defaults
	v.SetDefault("feedback.type", "memory")
	v.SetDefault("feedback.postgres_dsn", "")

	// Audit trail defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.dir", "/data/runs")

	// Policy advisor defaults
	v.SetDefault("advisor.provider", "")
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)

	// Policy defaults
	v.SetDefault("policy.brand_domains", []string{})
	v.SetDefault("policy.allowlist", []string{})
	v.SetDefault("policy.accounts.blocked", []string{})
	v.SetDefault("policy.accounts.allowed", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration parses a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}

// UnmarshalKey decodes a configuration section into a struct
func (c *Config) UnmarshalKey(key string, out interface{}) error {
	return c.v.UnmarshalKey(key, out)
}
