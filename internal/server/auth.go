package server

import (
	"context"
	"net/http"
	"time"

	"github.com/folioworks/folio/pkg/buildinfo"
	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/session"
	"github.com/folioworks/folio/pkg/users"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Status string `json:"status"`
		buildinfo.Info
	}{Status: "ok", Info: buildinfo.Get()}

	if s.opts.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "err", err)
			body.Status = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.Auth == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "GitHub sign-in is not configured"))
		return
	}
	state, err := s.opts.States.Generate(r.Context(), session.DefaultStateTTL)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "failed to create OAuth state"))
		return
	}
	http.Redirect(w, r, s.opts.Auth.AuthorizationURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.opts.Auth == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "GitHub sign-in is not configured"))
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		s.writeError(w, r, errors.New(errors.ErrCodeUnauthorized, "GitHub sign-in was cancelled: %s", e))
		return
	}
	ok, err := s.opts.States.Validate(ctx, q.Get("state"))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "failed to check OAuth state"))
		return
	}
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid or expired OAuth state"))
		return
	}
	code := q.Get("code")
	if code == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "missing OAuth code"))
		return
	}

	tok, err := s.opts.Auth.ExchangeCode(ctx, code)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeUnauthorized, err, "GitHub rejected the sign-in"))
		return
	}
	gu, err := s.opts.Auth.FetchUser(ctx, tok)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeUnauthorized, err, "could not read the GitHub profile"))
		return
	}
	u, err := s.opts.Users.SignIn(ctx, gu)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := session.New(u, s.opts.SessionTTL)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "failed to create session"))
		return
	}
	if err := s.opts.Sessions.Set(ctx, sess); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "failed to store session"))
		return
	}
	s.setSessionCookie(w, sess)
	s.logger.Info("signed in", "user", u.ID, "admin", s.isAdmin(sess))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		if err := s.opts.Sessions.Delete(r.Context(), c.Value); err != nil {
			s.logger.Warn("session delete failed", "err", err)
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type meResponse struct {
	User    *users.User `json:"user"`
	IsAdmin bool        `json:"isAdmin"`
	Expires time.Time   `json:"expires"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnauthorized, "not signed in"))
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: sess.User, IsAdmin: s.isAdmin(sess), Expires: sess.ExpiresAt})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.opts.Users.Lookup(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
