package app

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

type Config struct {
	ResourceBaseURL string        `env:"RESOURCE_BASE_URL,required"`
	AuthJWT         string        `env:"MCP_AUTH_JWT"`
	Port            int           `env:"MCP_SERVER_PORT,default=7411"`
	UpstreamTimeout time.Duration `env:"MCP_UPSTREAM_TIMEOUT,default=10s"`

	SessionTTL     time.Duration `env:"MCP_SESSION_TTL,default=1h"`
	RedisAddr      string        `env:"MCP_REDIS_ADDR"`
	RedisKeyPrefix string        `env:"MCP_REDIS_KEY_PREFIX,default=gatehouse:mcp:sessions:"`

	Env                 string        `env:"ENV,default=dev"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
	LogFormat           string        `env:"LOG_FORMAT,default=json"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD,default=10s"`
}

// IsDev reports whether the service runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// LoadConfig decodes the environment once and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.ResourceBaseURL = strings.TrimSuffix(c.ResourceBaseURL, "/")
	u, err := url.Parse(c.ResourceBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("RESOURCE_BASE_URL must be an absolute http(s) URL, got %q", c.ResourceBaseURL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("MCP_SERVER_PORT out of range: %d", c.Port)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("MCP_UPSTREAM_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("MCP_SESSION_TTL must be positive")
	}
	return nil
}
