// ABOUTME: Configuration loader for the ArtFolio web client
// ABOUTME: Merges .env, an optional YAML file and environment variables with defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Session store backends accepted by SESSION_STORE.
const (
	StoreCookie = "cookie"
	StoreSealed = "sealed"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// minSessionSecretLen is the shortest SESSION_STORE=sealed secret accepted.
const minSessionSecretLen = 32

type Config struct {
	// Server
	Port               string
	Environment        string   // development or production
	CookieSecure       bool     // Secure flag on credential cookies (default: production only)
	CacheTTL           int      // seconds, for cached public reads
	CORSAllowedOrigins []string // allowed CORS origins for /api/ routes (empty = block all cross-origin)

	// Backend REST API
	APIBaseURL string
	APITimeout int // seconds per request

	// Credential storage
	SessionStore    string // cookie, sealed, memory, redis
	SessionSecret   string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RefreshInterval int // seconds between background refreshes

	// Rate Limiting
	RateLimitEnabled bool // Enable rate limiting (default: true)
	RateLimitAuth    int  // Requests per minute for login/signup/refresh (default: 5)
	RateLimitWrite   int  // Requests per minute for uploads and edits (default: 10)
	RateLimitDefault int  // Requests per minute for all other endpoints (default: 100)

	// Observability
	SentryDSN         string
	SentryEnvironment string
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from a .env file (if present), the YAML file named
// by CONFIG_FILE (if set) and the process environment. The environment wins
// over the file, and the file wins over defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	env := src.get("APP_ENV", "development")

	cfg := &Config{
		Port:               src.get("PORT", "3000"),
		Environment:        env,
		CookieSecure:       src.getBool("COOKIE_SECURE", env == "production"),
		CacheTTL:           src.getInt("CACHE_TTL", 60),
		CORSAllowedOrigins: src.getStringList("CORS_ALLOWED_ORIGINS"),

		APIBaseURL: strings.TrimRight(ensureScheme(src.get("API_BASE_URL", "http://localhost:8000/api/v1")), "/"),
		APITimeout: src.getInt("API_TIMEOUT", 30),

		SessionStore:    strings.ToLower(src.get("SESSION_STORE", StoreCookie)),
		SessionSecret:   src.get("SESSION_SECRET", ""),
		RedisAddr:       src.get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   src.get("REDIS_PASSWORD", ""),
		RedisDB:         src.getInt("REDIS_DB", 0),
		RefreshInterval: src.getInt("REFRESH_INTERVAL", 1200),

		RateLimitEnabled: src.getBool("RATE_LIMIT_ENABLED", true),
		RateLimitAuth:    src.getInt("RATE_LIMIT_AUTH", 5),
		RateLimitWrite:   src.getInt("RATE_LIMIT_WRITE", 10),
		RateLimitDefault: src.getInt("RATE_LIMIT_DEFAULT", 100),

		SentryDSN:         src.get("SENTRY_DSN", ""),
		SentryEnvironment: src.get("SENTRY_ENVIRONMENT", env),
	}

	switch cfg.SessionStore {
	case StoreCookie, StoreMemory, StoreRedis:
	case StoreSealed:
		if len(cfg.SessionSecret) < minSessionSecretLen {
			return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes when SESSION_STORE=sealed", minSessionSecretLen)
		}
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE: %q (must be cookie, sealed, memory, or redis)", cfg.SessionStore)
	}

	if cfg.APITimeout < 1 {
		return nil, fmt.Errorf("API_TIMEOUT must be positive, got %d", cfg.APITimeout)
	}
	if cfg.RefreshInterval < 1 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be positive, got %d", cfg.RefreshInterval)
	}

	// Validate rate limit values
	for _, rl := range []struct {
		name  string
		value int
	}{
		{"RATE_LIMIT_AUTH", cfg.RateLimitAuth},
		{"RATE_LIMIT_WRITE", cfg.RateLimitWrite},
		{"RATE_LIMIT_DEFAULT", cfg.RateLimitDefault},
	} {
		if rl.value < 1 || rl.value > 10000 {
			return nil, fmt.Errorf("%s must be between 1 and 10000, got %d", rl.name, rl.value)
		}
	}

	return cfg, nil
}

// readFile parses a flat YAML mapping of setting names to values.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CONFIG_FILE: %w", err)
	}

	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse CONFIG_FILE %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			values[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return values, nil
}

// source resolves a setting from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) get(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value := s.lookup(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func (s source) getStringList(key string) []string {
	value := s.lookup(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ensureScheme adds http:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "http://" + url
	}
	return url
}
