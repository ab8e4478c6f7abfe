package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Log         LogConfig
	Session     SessionConfig
	Cache       CacheConfig
	ProfileDB   ProfileDBConfig
	Rebrickable RebrickableConfig
	Google      GoogleConfig
	CORS        CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"brickvault-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // operator stats key
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	Dev   bool   `envconfig:"LOG_DEV" default:"false"`
}

// SessionConfig controls where the identity snapshot lives.
type SessionConfig struct {
	// Backend is cookie (snapshot in the browser), memory or redis
	// (snapshot server-side, keyed by an opaque sid cookie).
	Backend   string        `envconfig:"SESSION_BACKEND" default:"cookie"`
	Cookie    string        `envconfig:"SESSION_COOKIE" default:"lego_app_session"`
	SIDCookie string        `envconfig:"SESSION_SID_COOKIE" default:"lego_app_sid"`
	TTL       time.Duration `envconfig:"SESSION_TTL" default:"4h"`
	Secure    bool          `envconfig:"SESSION_SECURE" default:"false"`
}

// CacheConfig holds Redis and in-memory cache settings.
type CacheConfig struct {
	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"1m"`

	RedisHost      string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort      int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"brickvault:"`
}

// ProfileDBConfig holds profile database settings.
type ProfileDBConfig struct {
	Type string `envconfig:"PROFILE_DB_TYPE" default:"sqlite"` // sqlite, postgres or mysql
	Path string `envconfig:"PROFILE_DB_PATH" default:"./data/profiles.db"`
	// Server settings for postgres and mysql
	Host     string `envconfig:"PROFILE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"PROFILE_DB_PORT" default:"0"`
	Name     string `envconfig:"PROFILE_DB_NAME" default:"brickvault"`
	User     string `envconfig:"PROFILE_DB_USER" default:""`
	Password string `envconfig:"PROFILE_DB_PASS" default:""`
	SSLMode  string `envconfig:"PROFILE_DB_SSLMODE" default:"disable"`
}

// RebrickableConfig holds remote inventory API settings.
type RebrickableConfig struct {
	BaseURL         string `envconfig:"REBRICKABLE_BASE_URL" default:"https://rebrickable.com/api/v3"`
	SiteURL         string `envconfig:"REBRICKABLE_SITE_URL" default:"https://rebrickable.com"`
	CompensateMoves bool   `envconfig:"INVENTORY_MOVE_COMPENSATE" default:"false"`
}

// GoogleConfig holds identity-provider settings.
type GoogleConfig struct {
	ClientID    string `envconfig:"GOOGLE_CLIENT_ID" default:""`
	Scopes      string `envconfig:"GOOGLE_SCOPES" default:""`
	UserInfoURL string `envconfig:"GOOGLE_USERINFO_URL" default:""`
	RevokeURL   string `envconfig:"GOOGLE_REVOKE_URL" default:""`
}

// CORSConfig lists browser origins allowed to call the API with credentials.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func (p *ProfileDBConfig) port(fallback int) int {
	if p.Port > 0 {
		return p.Port
	}
	return fallback
}

// PostgresDSN returns the PostgreSQL connection string.
func (p *ProfileDBConfig) PostgresDSN() string {
	user := p.User
	if user == "" {
		user = "postgres"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, p.Password, p.Host, p.port(5432), p.Name, p.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (p *ProfileDBConfig) MySQLDSN() string {
	user := p.User
	if user == "" {
		user = "root"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		user, p.Password, p.Host, p.port(3306), p.Name)
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Session.Backend) {
	case "cookie", "memory", "redis":
	default:
		return fmt.Errorf("invalid SESSION_BACKEND %q: want cookie, memory or redis", c.Session.Backend)
	}
	switch strings.ToLower(c.ProfileDB.Type) {
	case "sqlite", "postgres", "postgresql", "mysql":
	default:
		return fmt.Errorf("invalid PROFILE_DB_TYPE %q: want sqlite, postgres or mysql", c.ProfileDB.Type)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.App.IsProduction() && !c.Session.Secure {
		return fmt.Errorf("SESSION_SECURE must be true in production")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
