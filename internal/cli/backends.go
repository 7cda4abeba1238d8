package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/folioworks/folio/pkg/cache"
	"github.com/folioworks/folio/pkg/config"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/session"
	"github.com/folioworks/folio/pkg/storage"
)

// backends are the long-lived resources behind the server, opened from a
// config.Config and released together by Close.
type backends struct {
	db       *storage.Handle
	redis    *redis.Client
	cache    cache.Cache
	keyer    cache.Keyer
	sessions session.Store
	states   session.StateStore

	registry *prometheus.Registry
	hooks    observability.Hooks

	closers []func() error
}

// openBackends connects everything cfg names. On error, whatever was already
// opened is closed again.
func openBackends(ctx context.Context, cfg config.Config, logger *log.Logger) (_ *backends, err error) {
	b := &backends{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	b.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	b.hooks = observability.NewPrometheus(b.registry).Hooks()

	prog := newProgress(logger)
	if b.db, err = storage.Open(ctx, cfg.Database); err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}
	b.closers = append(b.closers, b.db.Close)
	prog.done("Opened " + b.db.Driver + " database")

	if cfg.Session.Backend == config.BackendRedis || cfg.Cache.Backend == config.BackendRedis {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, b.redis.Close)
		if err = b.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		logger.Debug("connected to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	}

	if err = b.openCache(cfg.Cache); err != nil {
		return nil, err
	}
	if err = b.openSessions(cfg.Session); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *backends) openCache(cfg config.CacheConfig) error {
	var c cache.Cache
	switch cfg.Backend {
	case config.BackendFile:
		fc, err := cache.NewFileCache(cfg.Dir)
		if err != nil {
			return fmt.Errorf("open file cache: %w", err)
		}
		c = fc
	case config.BackendRedis:
		c = cache.NewRedisCache(b.redis)
	default:
		c = cache.NewNullCache()
	}
	b.closers = append(b.closers, c.Close)
	b.cache = cache.Instrument(c, b.hooks.Cache)

	b.keyer = cache.NewDefaultKeyer()
	if cfg.Prefix != "" {
		b.keyer = cache.NewScopedKeyer(b.keyer, cfg.Prefix)
	}
	return nil
}

func (b *backends) openSessions(cfg config.SessionConfig) error {
	switch cfg.Backend {
	case config.BackendRedis:
		b.sessions = session.NewRedisStore(b.redis)
		b.states = session.NewRedisStateStore(b.redis)
	case config.BackendFile:
		fs, err := session.NewFileStore(cfg.Dir)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		b.sessions = fs
		b.states = session.NewMemoryStateStore()
	default:
		b.sessions = session.NewMemoryStore(cfg.CleanupInterval)
		b.states = session.NewMemoryStateStore()
	}
	b.closers = append(b.closers, b.sessions.Close)
	return nil
}

// Close releases the backends in reverse order of opening.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return stderrors.Join(errs...)
}
