// Package server exposes the site's JSON API over HTTP.
//
// Routes:
//
//	GET    /healthz                     liveness and build info
//	GET    /metrics                     prometheus metrics (when configured)
//	GET    /auth/github/login           start GitHub sign-in
//	GET    /auth/github/callback        finish GitHub sign-in
//	POST   /auth/logout                 end the session
//	GET    /auth/me                     current user
//	GET    /api/messages                notes visible to the caller
//	POST   /api/messages                pin a note
//	DELETE /api/messages                remove a note
//	GET    /api/messages/forUsers       notes visible to ?email=
//	GET    /api/messages/forAdmin       every note (admin)
//	POST   /api/messages/suggest        preview note placement
//	GET    /api/blogs                   published posts, paginated
//	POST   /api/blogs                   create a post (admin)
//	GET    /api/blogs/slug/{slug}       post by slug
//	GET    /api/blogs/{id}              post by id
//	PUT    /api/blogs/{id}              update a post (admin)
//	DELETE /api/blogs/{id}              delete a post (admin)
//	GET    /api/blogs/{id}/like         like status of the caller
//	POST   /api/blogs/{id}/like         toggle the caller's like
//	POST   /api/blogs/{id}/view         count a view
//	GET    /api/users                   user by ?email=
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"

	"github.com/folioworks/folio/pkg/blog"
	"github.com/folioworks/folio/pkg/integrations/github"
	"github.com/folioworks/folio/pkg/notes"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/session"
	"github.com/folioworks/folio/pkg/users"
)

// Defaults for zero Options fields.
const (
	DefaultMaxBodyBytes    = 1 << 20
	DefaultShutdownTimeout = 10 * time.Second
)

// Authenticator runs the GitHub OAuth web flow. *github.OAuthClient
// implements it.
type Authenticator interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, tok *oauth2.Token) (*github.User, error)
}

var _ Authenticator = (*github.OAuthClient)(nil)

// Options wires the server to its services. Notes, Blogs, Users, Sessions
// and States are required.
type Options struct {
	Notes    *notes.Service
	Blogs    *blog.Service
	Users    *users.Service
	Sessions session.Store
	States   session.StateStore

	// Auth is nil when GitHub sign-in is not configured.
	Auth Authenticator

	AdminEmail    string
	SessionTTL    time.Duration
	SecureCookies bool

	// NoAuth treats every request as the admin, for local development.
	NoAuth bool

	MaxBodyBytes    int64
	ShutdownTimeout time.Duration

	// Ping reports storage health for /healthz.
	Ping func(context.Context) error

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	Logger *log.Logger
	Hooks  observability.Hooks
}

// Server is the HTTP API.
type Server struct {
	opts    Options
	logger  *log.Logger
	hooks   observability.Hooks
	handler http.Handler
}

// New builds the router.
func New(opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	s := &Server{
		opts:   opts,
		logger: opts.Logger,
		hooks:  opts.Hooks.WithDefaults(),
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(s.opts.MaxBodyBytes))
	r.Use(s.loadSession)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusNotFound, "NOT_FOUND", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", s.handleLogin)
		r.Get("/github/callback", s.handleCallback)
		r.Post("/logout", s.handleLogout)
		r.Get("/me", s.handleMe)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/messages", func(r chi.Router) {
			r.Get("/", s.handleListMessages)
			r.Post("/", s.handleCreateMessage)
			r.Delete("/", s.handleDeleteMessage)
			r.Get("/forUsers", s.handleMessagesForUser)
			r.Get("/forAdmin", s.handleMessagesForAdmin)
			r.Post("/suggest", s.handleSuggest)
		})
		r.Route("/blogs", func(r chi.Router) {
			r.Get("/", s.handleListBlogs)
			r.Post("/", s.handleCreateBlog)
			r.Get("/slug/{slug}", s.handleBlogBySlug)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetBlog)
				r.Put("/", s.handleUpdateBlog)
				r.Delete("/", s.handleDeleteBlog)
				r.Get("/like", s.handleLikeStatus)
				r.Post("/like", s.handleToggleLike)
				r.Post("/view", s.handleRecordView)
			})
		})
		r.Get("/users", s.handleGetUser)
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully, waiting up to the shutdown timeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
