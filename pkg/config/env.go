package config

import (
	"strconv"
	"time"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "FOLIO_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from FOLIO_* variables. Values that fail to
// parse are ignored.
//
//	FOLIO_ADDR, FOLIO_BASE_URL, FOLIO_ADMIN_EMAIL
//	FOLIO_DATABASE_DRIVER, FOLIO_DATABASE_PATH, FOLIO_DATABASE_URI, FOLIO_DATABASE_NAME
//	FOLIO_REDIS_ADDR, FOLIO_REDIS_PASSWORD, FOLIO_REDIS_DB
//	FOLIO_SESSION_BACKEND, FOLIO_SESSION_TTL
//	FOLIO_CACHE_BACKEND, FOLIO_CACHE_TTL, FOLIO_CACHE_DIR
//	FOLIO_GITHUB_CLIENT_ID, FOLIO_GITHUB_CLIENT_SECRET
func (c *Config) ApplyEnv(lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("ADDR", &c.Server.Addr)
	str("BASE_URL", &c.Server.BaseURL)
	str("ADMIN_EMAIL", &c.AdminEmail)

	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_PATH", &c.Database.Path)
	str("DATABASE_URI", &c.Database.URI)
	str("DATABASE_NAME", &c.Database.Database)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}

	str("SESSION_BACKEND", &c.Session.Backend)
	dur("SESSION_TTL", &c.Session.TTL)
	str("CACHE_BACKEND", &c.Cache.Backend)
	dur("CACHE_TTL", &c.Cache.TTL)
	str("CACHE_DIR", &c.Cache.Dir)

	str("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
}
