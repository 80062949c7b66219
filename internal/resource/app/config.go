package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BasePath string // Route prefix (default: /api/v1/resource)

	JWKSURL      string        // Issuer JWKS (default: http://localhost:3000/.well-known/jwks.json)
	Issuer       string        // Expected iss (default: http://localhost:3000)
	Audience     []string      // Expected aud (default: issuer)
	Leeway       time.Duration // Clock skew tolerated on exp/nbf (default: 0)
	JWKSCacheTTL time.Duration // Fresh window for fetched keys (default: 5m)

	JWKSFetchTimeout       time.Duration // Bound on each JWKS fetch (default: 5s)
	JWKSMinRefreshInterval time.Duration // Minimum gap between unknown-kid refetches (default: 10s)

	TimeScope      string   // Scope required by /time; empty disables the check (default: time:read)
	DiscloseScopes bool     // Include provided scopes in 403 bodies (default: true)
	ServerURLs     []string // Public base URLs for API docs
	TrustedProxies []string // Peers whose X-Forwarded-For is believed by rate limits (default: none)

	Env                 string
	LogLevel            string
	LogFormat           string
	Port                int           // HTTP server port (default: 3010)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// IsDev reports whether the service runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// LoadConfig reads the environment once.
func LoadConfig() Config {
	issuer := strings.TrimSuffix(getEnvOrDefault("JWT_ISSUER", "http://localhost:3000"), "/")

	cfg := Config{
		BasePath: getEnvOrDefault("RESOURCE_BASE_PATH", "/api/v1/resource"),

		JWKSURL:      getEnvOrDefault("JWKS_URL", issuer+"/.well-known/jwks.json"),
		Issuer:       issuer,
		Audience:     getEnvListOrDefault("JWT_AUDIENCE", []string{issuer}),
		Leeway:       getEnvDurationOrDefault("JWT_LEEWAY", 0),
		JWKSCacheTTL: getEnvDurationOrDefault("JWKS_CACHE_TTL", 5*time.Minute),

		JWKSFetchTimeout:       getEnvDurationOrDefault("JWKS_FETCH_TIMEOUT", 5*time.Second),
		JWKSMinRefreshInterval: getEnvDurationOrDefault("JWKS_MIN_REFRESH_INTERVAL", 10*time.Second),

		// Unset means the default; an explicit empty value turns the check off.
		TimeScope:      getEnvOrDefaultAllowEmpty("RESOURCE_TIME_SCOPE", "time:read"),
		DiscloseScopes: getEnvBoolOrDefault("RESOURCE_DISCLOSE_SCOPES", true),
		ServerURLs:     getEnvListOrDefault("OPENAPI_SERVER_URLS", nil),
		TrustedProxies: getEnvListOrDefault("TRUSTED_PROXIES", nil),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 3010),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
