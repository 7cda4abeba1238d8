package server

import (
	"net/http"
	"strings"

	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/notes"
	"github.com/folioworks/folio/pkg/session"
)

func (s *Server) viewer(sess *session.Session) notes.Viewer {
	if sess == nil {
		return notes.Viewer{}
	}
	return notes.Viewer{UserID: sess.UserID(), Email: sess.Email(), Admin: s.isAdmin(sess)}
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	list, err := s.opts.Notes.ListForViewer(r.Context(), s.viewer(sessionFrom(r.Context())))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleMessagesForUser lists notes for ?email=. Private notes are only
// included when the address belongs to the caller (or the caller is admin).
func (s *Server) handleMessagesForUser(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	sess := sessionFrom(r.Context())
	if !s.isAdmin(sess) && (sess == nil || !sameEmail(email, sess.Email())) {
		email = ""
	}
	list, err := s.opts.Notes.ListForEmail(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMessagesForAdmin(w http.ResponseWriter, r *http.Request) {
	if err := s.requireAdmin(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.opts.Notes.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createMessageRequest struct {
	Content   string   `json:"content"`
	IsPublic  *bool    `json:"isPublic"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	UserName  string   `json:"user_name"`
	UserImage *string  `json:"user_image"`
}

type messageResponse struct {
	*notes.Note
	Adjusted bool `json:"adjusted"`
	Attempts int  `json:"attempts"`
}

// handleCreateMessage pins a note for the signed-in caller. The owner and
// e-mail always come from the session; the display name and avatar may be
// overridden by the request.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnauthorized, "sign in to leave a note"))
		return
	}
	var req createMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.X == nil || req.Y == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidNote, "x and y are required"))
		return
	}

	author := notes.Author{Name: strings.TrimSpace(req.UserName), Email: sess.Email(), Image: req.UserImage}
	author = author.WithFallback(sess.User)
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	created, err := s.opts.Notes.Create(r.Context(), notes.CreateInput{
		Content:  req.Content,
		IsPublic: isPublic,
		X:        *req.X,
		Y:        *req.Y,
		UserID:   sess.UserID(),
		Author:   author,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{
		Note:     created.Note,
		Adjusted: created.Placement.Adjusted,
		Attempts: created.Placement.Attempts,
	})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.opts.Notes.Delete(r.Context(), req.ID, s.viewer(sessionFrom(r.Context()))); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type suggestResponse struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Adjusted  bool    `json:"adjusted"`
	Exhausted bool    `json:"exhausted"`
	Attempts  int     `json:"attempts"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.X == nil || req.Y == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidNote, "x and y are required"))
		return
	}
	res, err := s.opts.Notes.Suggest(r.Context(), *req.X, *req.Y)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{
		X: res.X, Y: res.Y, Adjusted: res.Adjusted, Exhausted: res.Exhausted, Attempts: res.Attempts,
	})
}

// requireAdmin returns UNAUTHORIZED for anonymous callers and FORBIDDEN for
// signed-in users who are not the admin.
func (s *Server) requireAdmin(r *http.Request) error {
	sess := sessionFrom(r.Context())
	switch {
	case sess == nil:
		return errors.New(errors.ErrCodeUnauthorized, "sign in required")
	case !s.isAdmin(sess):
		return errors.New(errors.ErrCodeForbidden, "admin access required")
	}
	return nil
}
