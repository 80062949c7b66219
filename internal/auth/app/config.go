package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

type Config struct {
	Issuer         string   // Issuer claim and public URL (default: http://localhost:3000)
	Audience       []string // Audience claim (default: issuer)
	Secret         string   // Server secret; pepper and key-encryption key derive from it
	BasePath       string   // Route prefix for account endpoints (default: /api/auth/v1)
	TrustedOrigins []string // CORS allow list (default: issuer origin)
	TrustedProxies []string // Peers whose X-Forwarded-For is believed by rate limits (default: none)
	CookieName     string   // Session cookie name
	DefaultScopes  []string // Scopes granted at sign-up (default: time:read)

	AccessTokenTTL   time.Duration // Optional: access token lifetime (default: 15m)
	SessionTTL       time.Duration // Optional: session lifetime (default: 7 days)
	SessionUpdateAge time.Duration // Optional: refresh sessions older than this (default: 24h)

	Algorithm           string        // Optional: JWT signing algorithm (RS256, ES256, EdDSA) (default: EdDSA)
	RSABits             int           // Optional: RSA key size for RS256 (default: 4096)
	NumKeys             int           // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	KeyStorageMode      string        // Optional: key storage mode (ephemeral, persistent) (default: ephemeral)
	KeyGracePeriod      time.Duration // Optional: grace period for retired keys (default: 24h)
	KeyRotationInterval time.Duration // Optional: automatic rotation in persistent mode, 0 disables (default: 0)

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./auth.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 3000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// IsDev reports whether the service runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// SecureCookie is true when the issuer is served over https.
func (c Config) SecureCookie() bool {
	return strings.HasPrefix(c.Issuer, "https://")
}

// LoadConfig reads the environment once. Nothing reads env after this.
func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:         strings.TrimSuffix(getEnvOrDefault("AUTH_ISSUER", "http://localhost:3000"), "/"),
		Secret:         os.Getenv("AUTH_SECRET"),
		BasePath:       getEnvOrDefault("AUTH_BASE_PATH", "/api/auth/v1"),
		CookieName:     getEnvOrDefault("AUTH_COOKIE_NAME", "gatehouse.session_token"),
		DefaultScopes:  httpx.ParseSpaceDelimitedFields(getEnvOrDefault("AUTH_DEFAULT_SCOPES", "time:read")),
		AccessTokenTTL: getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),

		SessionTTL:       getEnvDurationOrDefault("AUTH_SESSION_TTL", 7*24*time.Hour),
		SessionUpdateAge: getEnvDurationOrDefault("AUTH_SESSION_UPDATE_AGE", 24*time.Hour),

		Algorithm:           getEnvOrDefault("AUTH_ALGORITHM", "EdDSA"),
		RSABits:             getEnvIntOrDefault("AUTH_RSA_BITS", 0),
		NumKeys:             getEnvIntOrDefault("AUTH_NUM_KEYS", 0),
		KeyStorageMode:      getEnvOrDefault("AUTH_KEY_STORAGE_MODE", "ephemeral"),
		KeyGracePeriod:      getEnvDurationOrDefault("AUTH_KEY_GRACE_PERIOD", 24*time.Hour),
		KeyRotationInterval: getEnvDurationOrDefault("AUTH_KEY_ROTATION_INTERVAL", 0),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 3000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	cfg.Audience = getEnvListOrDefault("AUTH_AUDIENCE", []string{cfg.Issuer})
	cfg.TrustedOrigins = getEnvListOrDefault("AUTH_TRUSTED_ORIGIN", []string{cfg.Issuer})
	cfg.TrustedProxies = getEnvListOrDefault("TRUSTED_PROXIES", nil)

	if err := cfg.resolveSecret(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveSecret enforces AUTH_SECRET outside dev. Dev gets a throwaway
// secret, so persistent keys and passwords do not survive a restart there
// unless one is set.
func (c *Config) resolveSecret() error {
	if c.Secret != "" {
		if len(c.Secret) < cryptox.MinSecretLength && !c.IsDev() {
			return fmt.Errorf("AUTH_SECRET must be at least %d characters: %w", cryptox.MinSecretLength, cryptox.ErrWeakSecret)
		}
		return nil
	}
	if !c.IsDev() {
		return errors.New("AUTH_SECRET is required outside dev")
	}

	secret, err := cryptox.GenerateSecret(cryptox.MinSecretLength)
	if err != nil {
		return err
	}
	c.Secret = secret
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

// getEnvListOrDefault splits a comma separated value, dropping blanks.
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
