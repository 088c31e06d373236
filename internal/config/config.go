package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ANNOTATE_"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request handler budget

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Content
	ContentDir     string        // directory of Markdown articles with YAML front matter
	PublicURL      string        // base URL share permalinks are built on (ex: https://blog.domain.ext)
	ReloadInterval time.Duration // interval to reload the content directory
	GCInterval     time.Duration // interval to run garbage collection
	GCThreshold    time.Duration // grace period before orphaned records are collected
	RenderTTL      time.Duration // lifetime of cached annotated renders

	// Storage
	StoreBackend string // "redis" | "memory"

	// Redis (only read when StoreBackend is "redis")
	RedisAddr             string
	RedisUser             string
	RedisPassword         string
	RedisPasswordRequired bool
	RedisDB               int
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisMaxWait          time.Duration // backoff cap between connect attempts
	RedisPingTimeout      time.Duration
	RedisPoolSize         int
	RedisConnectTimeout   time.Duration // total connect budget at startup
	RedisRetryInterval    time.Duration // first backoff step
	RedisWarnThreshold    int

	// Public write endpoints
	RateBurst     int // requests a client may burst
	RatePerMinute int // sustained requests per client per minute

	CORSOrigins  []string // origins allowed to call the API from a browser
	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict admin routes to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// Load reads the configuration from the environment, after merging an
// optional .env file (ANNOTATE_ENV_FILE, default ".env"). Variables already
// set in the environment win over the file. Invalid values panic.
func Load() *Config {
	loadEnvFile(getenv("ENV_FILE", ".env"))

	cfg := &Config{
		ListenPort:      getenv("LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("REQUEST_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		PrettyLog: mustBool("PRETTY_LOG", true),

		ContentDir:     requireEnv("CONTENT_DIR"),
		PublicURL:      strings.TrimRight(requireEnv("PUBLIC_URL"), "/"),
		ReloadInterval: mustDuration("RELOAD_INTERVAL", 10*time.Minute),
		GCInterval:     mustDuration("GC_INTERVAL", 24*time.Hour),
		GCThreshold:    mustDuration("GC_THRESHOLD", 7*24*time.Hour),
		RenderTTL:      mustDuration("RENDER_TTL", 24*time.Hour),

		StoreBackend: strings.ToLower(getenv("STORE", "redis")),

		RateBurst:     getenvInt("RATE_BURST", 10),
		RatePerMinute: getenvInt("RATE_PER_MINUTE", 20),

		CORSOrigins:  splitAndTrim(getenv("CORS_ORIGINS", "")),
		AllowedHosts: splitAndTrim(getenv("ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("TRUST_PROXY", true),
	}

	if _, err := url.ParseRequestURI(cfg.PublicURL); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %sPUBLIC_URL is not a valid URL: %s", envPrefix, cfg.PublicURL))
	}

	switch cfg.StoreBackend {
	case "memory":
	case "redis":
		cfg.loadRedis()
	default:
		panic(fmt.Sprintf("❌ FATAL: %sSTORE must be \"redis\" or \"memory\", got %q", envPrefix, cfg.StoreBackend))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (cfg *Config) loadRedis() {
	cfg.RedisAddr = requireEnv("REDIS_ADDR")
	cfg.RedisUser = getenv("REDIS_USERNAME", "default")
	cfg.RedisPasswordRequired = mustBool("REDIS_PASSWORD_REQUIRED", true)
	cfg.RedisPassword = getenv("REDIS_PASSWORD", "")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", 3)

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic(fmt.Sprintf("❌ FATAL: %sREDIS_PASSWORD is required when %sREDIS_PASSWORD_REQUIRED=true", envPrefix, envPrefix))
	}
}

// loadEnvFile merges a dotenv file into the environment. A missing file is
// not an error; a malformed one is.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("❌ FATAL: cannot read env file %s: %v", path, err))
	}
}

// helpers; every key is read with the ANNOTATE_ prefix
func getenv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s%s is not set", envPrefix, key))
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s%s: %s", envPrefix, key, v))
	}
	return i
}

func mustBool(key string, def bool) bool {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid boolean value for %s%s: %s", envPrefix, key, v))
	}
	return b
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid duration value for %s%s: %s", envPrefix, key, v))
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
