package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/folioworks/folio/internal/server"
	"github.com/folioworks/folio/pkg/blog"
	"github.com/folioworks/folio/pkg/config"
	"github.com/folioworks/folio/pkg/integrations/github"
	"github.com/folioworks/folio/pkg/notes"
	"github.com/folioworks/folio/pkg/placement"
	"github.com/folioworks/folio/pkg/session"
	"github.com/folioworks/folio/pkg/users"
)

// serveOptions holds flags for the serve command.
type serveOptions struct {
	addr   string
	noAuth bool
}

func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until interrupted.

The database schema is created or upgraded on start. With --no-auth every
request is treated as the configured admin, for local development only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadValidConfig()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}
			return c.runServe(cmd.Context(), cfg, opts.noAuth)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&opts.noAuth, "no-auth", false, "treat every request as the admin (development only)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config, noAuth bool) error {
	b, err := openBackends(ctx, cfg, c.Logger)
	if err != nil {
		return err
	}
	defer b.Close()

	srv := server.New(c.serverOptions(cfg, b, noAuth))
	if noAuth {
		c.Logger.Warn("authentication disabled; every request acts as the admin", "admin", cfg.AdminEmail)
	}
	if !cfg.GitHub.Enabled() {
		c.Logger.Warn("GitHub sign-in is not configured; only --no-auth can sign in")
	}
	c.Logger.Info("starting", "addr", cfg.Server.Addr, "database", b.db.Driver,
		"sessions", cfg.Session.Backend, "cache", cfg.Cache.Backend)

	g, ctx := errgroup.WithContext(withLogger(ctx, c.Logger))
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		sweepSessions(ctx, b.sessions, b.states, cfg.Session.CleanupInterval)
		return nil
	})
	return g.Wait()
}

// serverOptions assembles the services behind the HTTP API.
func (c *CLI) serverOptions(cfg config.Config, b *backends, noAuth bool) server.Options {
	userSvc := users.NewService(b.db.Users)
	noteSvc := notes.NewService(b.db.Notes, notes.Options{
		Advisor:  placement.New(cfg.Placement),
		Users:    b.db.Users,
		Cache:    b.cache,
		Keyer:    b.keyer,
		CacheTTL: cfg.Cache.TTL,
		Logger:   c.Logger,
		Hooks:    b.hooks,
	})
	blogSvc := blog.NewService(b.db.Blogs, blog.Options{
		Cache:    b.cache,
		Keyer:    b.keyer,
		CacheTTL: cfg.Cache.TTL,
		Logger:   c.Logger,
	})

	opts := server.Options{
		Notes:           noteSvc,
		Blogs:           blogSvc,
		Users:           userSvc,
		Sessions:        b.sessions,
		States:          b.states,
		AdminEmail:      cfg.AdminEmail,
		SessionTTL:      cfg.Session.TTL,
		SecureCookies:   cfg.Server.SecureCookies,
		NoAuth:          noAuth,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Ping:            b.db.Ping,
		Metrics:         promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}),
		Logger:          c.Logger,
		Hooks:           b.hooks,
	}
	if cfg.GitHub.Enabled() {
		opts.Auth = github.NewOAuthClient(github.OAuthConfig{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			RedirectURI:  cfg.RedirectURL(),
		})
	}
	return opts
}

// sweepSessions purges expired sessions and OAuth states every interval
// until ctx is done. A non-positive interval disables the sweep.
func sweepSessions(ctx context.Context, sessions session.Store, states session.StateStore, interval time.Duration) {
	if interval <= 0 {
		return
	}
	logger := loggerFromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.Cleanup(ctx); err != nil {
				logger.Warn("session cleanup failed", "err", err)
			}
			if err := states.Cleanup(ctx); err != nil {
				logger.Warn("state cleanup failed", "err", err)
			}
		}
	}
}
