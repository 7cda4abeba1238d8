package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/folioworks/folio/pkg/blog"
	"github.com/folioworks/folio/pkg/session"
)

func (s *Server) actor(sess *session.Session) blog.Actor {
	return blog.Actor{UserID: sess.UserID(), Admin: s.isAdmin(sess)}
}

// listOptions reads pagination parameters from the query string. Malformed
// numbers fall back to the defaults.
func listOptions(r *http.Request) blog.ListOptions {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return blog.ListOptions{
		Page:      page,
		Limit:     limit,
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}.Normalize()
}

func (s *Server) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	var (
		page *blog.Page
		err  error
	)
	if r.URL.Query().Get("drafts") == "true" {
		page, err = s.opts.Blogs.ListAll(r.Context(), s.actor(sessionFrom(r.Context())), opts)
	} else {
		page, err = s.opts.Blogs.List(r.Context(), opts)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type blogRequest struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Excerpt   string   `json:"excerpt"`
	Published *bool    `json:"published"`
	Featured  *bool    `json:"featured"`
	Category  *string  `json:"category"`
	Tags      []string `json:"tags"`
}

func (req blogRequest) input() blog.Input {
	return blog.Input{
		Title:     req.Title,
		Content:   req.Content,
		Excerpt:   req.Excerpt,
		Published: req.Published,
		Featured:  req.Featured,
		Category:  req.Category,
		Tags:      req.Tags,
	}
}

func (s *Server) handleCreateBlog(w http.ResponseWriter, r *http.Request) {
	var req blogRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.opts.Blogs.Create(r.Context(), s.actor(sessionFrom(r.Context())), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBlog(w http.ResponseWriter, r *http.Request) {
	b, err := s.opts.Blogs.Get(r.Context(), chi.URLParam(r, "id"), s.actor(sessionFrom(r.Context())))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBlogBySlug(w http.ResponseWriter, r *http.Request) {
	b, err := s.opts.Blogs.GetBySlug(r.Context(), chi.URLParam(r, "slug"), s.actor(sessionFrom(r.Context())))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	var req blogRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.opts.Blogs.Update(r.Context(), s.actor(sessionFrom(r.Context())), chi.URLParam(r, "id"), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Blogs.Delete(r.Context(), s.actor(sessionFrom(r.Context())), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Blog deleted successfully"})
}

func (s *Server) handleLikeStatus(w http.ResponseWriter, r *http.Request) {
	liked, err := s.opts.Blogs.LikeStatus(r.Context(), chi.URLParam(r, "id"), sessionFrom(r.Context()).UserID())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

type likeResponse struct {
	Message string `json:"message"`
	*blog.LikeResult
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	res, err := s.opts.Blogs.ToggleLike(r.Context(), chi.URLParam(r, "id"), sessionFrom(r.Context()).UserID())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg := "Blog unliked"
	if res.Liked {
		msg = "Blog liked"
	}
	writeJSON(w, http.StatusOK, likeResponse{Message: msg, LikeResult: res})
}

func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	views, err := s.opts.Blogs.RecordView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "View recorded", "viewCount": views})
}
