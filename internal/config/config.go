package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Content service configuration
	Content ContentConfig `mapstructure:"content"`

	// Rendered site configuration
	Site SiteConfig `mapstructure:"site"`

	// Content response cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Build job configuration
	Build BuildConfig `mapstructure:"build"`

	// Logging configuration
	Log LogConfig `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	MigrationsPath string        `mapstructure:"migrations_path"`
}

// ContentConfig describes the headless content API
type ContentConfig struct {
	APIEndpoint   string        `mapstructure:"api_endpoint"`
	AccessToken   string        `mapstructure:"access_token"`
	DocumentType  string        `mapstructure:"document_type"`
	PageSize      int           `mapstructure:"page_size"`
	PrebuildCount int           `mapstructure:"prebuild_count"`
	Timeout       time.Duration `mapstructure:"timeout"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
}

// Fallback modes for post pages that were not pre-built
const (
	FallbackShell    = "shell"
	FallbackBlocking = "blocking"
)

// SiteConfig holds settings of the rendered pages
type SiteConfig struct {
	Title        string `mapstructure:"title"`
	BaseURL      string `mapstructure:"base_url"`
	Locale       string `mapstructure:"locale"`
	FallbackMode string `mapstructure:"fallback_mode"`
	APIBase      string `mapstructure:"api_base"` // prefix of the load-more endpoint for statically hosted pages
	OutputDir    string `mapstructure:"output_dir"`
}

// CacheConfig holds the Redis response cache settings. An empty RedisAddr
// disables the cache.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// BuildConfig holds build job settings
type BuildConfig struct {
	OnStartup    bool          `mapstructure:"on_startup"`
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "pretty"
}

// ConfigPathEnv names the variable holding an optional YAML config file
const ConfigPathEnv = "SPACETRAVELING_CONFIG"

type setting struct {
	key string
	env string
	def interface{}
}

var settings = []setting{
	{"server.port", "PORT", "8080"},
	{"server.read_timeout", "SERVER_READ_TIMEOUT", 15 * time.Second},
	{"server.write_timeout", "SERVER_WRITE_TIMEOUT", 30 * time.Second},
	{"server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT", 15 * time.Second},
	{"server.cors_origins", "CORS_ORIGINS", []string{"*"}},

	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", "5432"},
	{"database.user", "DB_USER", "postgres"},
	{"database.password", "DB_PASSWORD", "postgres"},
	{"database.name", "DB_NAME", "spacetraveling"},
	{"database.sslmode", "DB_SSLMODE", "disable"},
	{"database.max_open_conns", "DB_MAX_OPEN_CONNS", 10},
	{"database.max_idle_conns", "DB_MAX_IDLE_CONNS", 5},
	{"database.max_lifetime", "DB_MAX_LIFETIME", 5 * time.Minute},
	{"database.migrations_path", "MIGRATIONS_PATH", "./migrations"},

	{"content.api_endpoint", "CONTENT_API_ENDPOINT", ""},
	{"content.access_token", "CONTENT_ACCESS_TOKEN", ""},
	{"content.document_type", "CONTENT_DOCUMENT_TYPE", "posts"},
	{"content.page_size", "CONTENT_PAGE_SIZE", 1},
	{"content.prebuild_count", "CONTENT_PREBUILD_COUNT", 2},
	{"content.timeout", "CONTENT_TIMEOUT", 10 * time.Second},
	{"content.webhook_secret", "CONTENT_WEBHOOK_SECRET", ""},

	{"site.title", "SITE_TITLE", "spacetraveling"},
	{"site.base_url", "SITE_BASE_URL", "http://localhost:8080"},
	{"site.locale", "SITE_LOCALE", "pt-BR"},
	{"site.fallback_mode", "SITE_FALLBACK_MODE", FallbackShell},
	{"site.api_base", "SITE_API_BASE", ""},
	{"site.output_dir", "SITE_OUTPUT_DIR", "./public"},

	{"cache.redis_addr", "REDIS_ADDR", ""},
	{"cache.redis_password", "REDIS_PASSWORD", ""},
	{"cache.redis_db", "REDIS_DB", 0},
	{"cache.ttl", "CACHE_TTL", 5 * time.Minute},

	{"build.on_startup", "BUILD_ON_STARTUP", true},
	{"build.workers", "BUILD_WORKERS", 2},
	{"build.poll_interval", "BUILD_POLL_INTERVAL", 2 * time.Second},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "json"},
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. An empty path
// falls back to $SPACETRAVELING_CONFIG.
func Load(path string) (*Config, error) {
	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", s.env, err)
		}
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Content.APIEndpoint == "" {
		return fmt.Errorf("CONTENT_API_ENDPOINT is required")
	}
	u, err := url.Parse(c.Content.APIEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CONTENT_API_ENDPOINT must be an absolute url, got %q", c.Content.APIEndpoint)
	}
	if c.Content.DocumentType == "" {
		return fmt.Errorf("CONTENT_DOCUMENT_TYPE is required")
	}
	if c.Content.PageSize <= 0 {
		return fmt.Errorf("CONTENT_PAGE_SIZE must be positive, got %d", c.Content.PageSize)
	}
	if c.Content.PrebuildCount < 0 {
		return fmt.Errorf("CONTENT_PREBUILD_COUNT must not be negative, got %d", c.Content.PrebuildCount)
	}
	switch c.Site.FallbackMode {
	case FallbackShell, FallbackBlocking:
	default:
		return fmt.Errorf("SITE_FALLBACK_MODE must be %q or %q, got %q", FallbackShell, FallbackBlocking, c.Site.FallbackMode)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// CacheEnabled reports whether a Redis address was configured
func (c *CacheConfig) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// MoreEndpoint is the URL the listing page posts load-more requests to
func (c *SiteConfig) MoreEndpoint() string {
	return strings.TrimSuffix(c.APIBase, "/") + "/api/posts/more"
}
