package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct, read from the process
// environment (after .env has been loaded).
type Config struct {
	App     AppConfig
	DB      DBConfig
	Log     LogConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Hash    HashConfig
	Metrics MetricsConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	URL   string
	Port  string
	Key   string
	Dist  string // build output directory (DIST_DIR)
}

type DBConfig struct {
	Driver   string // mysql | pgsql | sqlite
	Host     string
	Port     string
	Database string
	Username string
	Password string
	URL      string // overrides the fields above when set
}

type LogConfig struct {
	Level string // debug | info | warn | error
}

type CacheConfig struct {
	Driver string // memory | redis
	Prefix string
	TTL    time.Duration
}

type RedisConfig struct {
	URL string
}

type HashConfig struct {
	Rounds int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored: production
// usually has no .env.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	LoadEnv(envFiles...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "H3ravel"),
			Env:   env("APP_ENV", env("GO_ENV", "local")),
			Debug: envBool("APP_DEBUG", false),
			URL:   env("APP_URL", "http://localhost"),
			Port:  env("APP_PORT", "8000"),
			Key:   env("APP_KEY", ""),
			Dist:  env("DIST_DIR", ".h3ravel/serve"),
		},
		DB: DBConfig{
			Driver:   env("DB_CONNECTION", env("DB_DRIVER", "sqlite")),
			Host:     env("DB_HOST", "127.0.0.1"),
			Port:     env("DB_PORT", "3306"),
			Database: env("DB_DATABASE", "database/database.sqlite"),
			Username: env("DB_USERNAME", "root"),
			Password: env("DB_PASSWORD", ""),
			URL:      env("DB_URL", ""),
		},
		Log: LogConfig{
			Level: strings.ToLower(env("LOG_LEVEL", "info")),
		},
		Cache: CacheConfig{
			Driver: env("CACHE_DRIVER", "memory"),
			Prefix: env("CACHE_PREFIX", "h3ravel_cache"),
			TTL:    envDuration("CACHE_TTL", time.Hour),
		},
		Redis: RedisConfig{
			URL: env("REDIS_URL", "redis://127.0.0.1:6379/0"),
		},
		Hash: HashConfig{
			Rounds: GetInt("BCRYPT_ROUNDS", 10),
		},
		Metrics: MetricsConfig{
			Enabled: envBool("METRICS_ENABLED", false),
			Path:    env("METRICS_PATH", "/metrics"),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// Env returns a required env value, or a *ConfigError when it is unset.
func Env(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", &ConfigError{Key: key, Source: "env"}
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
