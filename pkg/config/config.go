// Package config loads folio's server configuration.
//
// Configuration comes from three layers, later ones winning:
//
//  1. [Default] values
//  2. a TOML file, or YAML when the file ends in .yaml or .yml
//  3. FOLIO_* environment variables (see [Config.ApplyEnv])
//
// Example folio.toml:
//
//	admin_email = "me@example.com"
//
//	[server]
//	addr = ":8080"
//
//	[database]
//	driver = "sqlite"
//	path = "data/folio.db"
//
//	[session]
//	backend = "redis"
//
//	[redis]
//	addr = "localhost:6379"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/placement"
	"github.com/folioworks/folio/pkg/storage"
)

// Backend names shared by the session and cache sections.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the complete server configuration.
type Config struct {
	AdminEmail string           `toml:"admin_email" yaml:"admin_email"`
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Database   storage.Config   `toml:"database" yaml:"database"`
	Redis      RedisConfig      `toml:"redis" yaml:"redis"`
	Session    SessionConfig    `toml:"session" yaml:"session"`
	Cache      CacheConfig      `toml:"cache" yaml:"cache"`
	GitHub     GitHubConfig     `toml:"github" yaml:"github"`
	Placement  placement.Config `toml:"placement" yaml:"placement"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`

	// BaseURL is the public origin, used to build the OAuth callback URL.
	BaseURL string `toml:"base_url" yaml:"base_url"`

	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `toml:"max_body_bytes" yaml:"max_body_bytes"`

	// SecureCookies marks the session cookie Secure. Enable behind HTTPS.
	SecureCookies bool `toml:"secure_cookies" yaml:"secure_cookies"`
}

// RedisConfig locates the Redis server used by redis-backed sessions and cache.
type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Backend string        `toml:"backend" yaml:"backend"`
	TTL     time.Duration `toml:"ttl" yaml:"ttl"`

	// Dir holds session files for the file backend.
	Dir string `toml:"dir" yaml:"dir"`

	// CleanupInterval is how often expired sessions are purged.
	CleanupInterval time.Duration `toml:"cleanup_interval" yaml:"cleanup_interval"`
}

// CacheConfig selects the response cache.
type CacheConfig struct {
	Backend string        `toml:"backend" yaml:"backend"`
	TTL     time.Duration `toml:"ttl" yaml:"ttl"`
	Dir     string        `toml:"dir" yaml:"dir"`

	// Prefix namespaces keys when several sites share one Redis.
	Prefix string `toml:"prefix" yaml:"prefix"`
}

// GitHubConfig is the GitHub OAuth app used for sign-in.
type GitHubConfig struct {
	ClientID     string `toml:"client_id" yaml:"client_id"`
	ClientSecret string `toml:"client_secret" yaml:"client_secret"`
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Default returns a configuration that runs locally with no external services.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BaseURL:         "http://localhost:8080",
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Database: storage.Config{
			Driver: storage.DriverSQLite,
			Path:   "folio.db",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Session: SessionConfig{
			Backend:         BackendMemory,
			TTL:             30 * 24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Cache: CacheConfig{
			Backend: BackendNone,
			TTL:     30 * time.Second,
		},
		Placement: placement.DefaultConfig(),
	}
}

// Load reads path over the defaults and then applies the environment.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
		}
	}
	return nil
}

// Validate checks that the configuration can be served.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case storage.DriverSQLite:
		if c.Database.Path == "" {
			return errors.New(errors.ErrCodeInvalidInput, "database.path is required for sqlite")
		}
	case storage.DriverMongo:
		if c.Database.URI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "database.uri is required for mongo")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown database driver %q", c.Database.Driver)
	}

	switch c.Session.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown session backend %q", c.Session.Backend)
	}
	switch c.Cache.Backend {
	case BackendNone, BackendFile, BackendRedis:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	if (c.Session.Backend == BackendRedis || c.Cache.Backend == BackendRedis) && c.Redis.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "redis.addr is required for redis backends")
	}
	if c.Cache.Backend == BackendFile && c.Cache.Dir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.dir is required for the file cache")
	}

	if c.AdminEmail == "" {
		return errors.New(errors.ErrCodeInvalidInput, "admin_email is required")
	}
	if err := errors.ValidateEmail(c.AdminEmail); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "admin_email")
	}
	if c.Server.BaseURL != "" {
		if err := errors.ValidateURL(c.Server.BaseURL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "server.base_url")
		}
	}
	if c.Session.TTL <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "session.ttl must be positive")
	}
	return nil
}

// RedirectURL is the OAuth callback registered with GitHub.
func (c Config) RedirectURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + "/auth/github/callback"
}
