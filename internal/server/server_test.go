package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/folioworks/folio/pkg/blog"
	"github.com/folioworks/folio/pkg/integrations/github"
	"github.com/folioworks/folio/pkg/notes"
	"github.com/folioworks/folio/pkg/session"
	"github.com/folioworks/folio/pkg/storage"
	"github.com/folioworks/folio/pkg/users"
)

const adminEmail = "admin@example.com"

type fakeAuth struct {
	user *github.User
}

func (f *fakeAuth) AuthorizationURL(state string) string {
	return "https://github.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeAuth) ExchangeCode(_ context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "token-" + code}, nil
}

func (f *fakeAuth) FetchUser(context.Context, *oauth2.Token) (*github.User, error) {
	return f.user, nil
}

type testEnv struct {
	srv      *Server
	users    *users.Service
	sessions *session.MemoryStore
	auth     *fakeAuth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	h, err := storage.Open(ctx, storage.Config{Driver: storage.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	sessions := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { sessions.Close() })

	env := &testEnv{
		users:    users.NewService(h.Users),
		sessions: sessions,
		auth:     &fakeAuth{user: &github.User{ID: 7, Login: "octo", Name: "Octo Cat", Email: "octo@example.com"}},
	}
	env.srv = New(Options{
		Notes:      notes.NewService(h.Notes, notes.Options{Users: h.Users}),
		Blogs:      blog.NewService(h.Blogs, blog.Options{}),
		Users:      env.users,
		Sessions:   sessions,
		States:     session.NewMemoryStateStore(),
		Auth:       env.auth,
		AdminEmail: adminEmail,
		Ping:       h.Ping,
	})
	return env
}

// signIn creates an account and a session for it and returns the cookie.
func (e *testEnv) signIn(t *testing.T, githubID int64, email string) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	u, err := e.users.SignIn(ctx, &github.User{ID: githubID, Login: "u", Name: "User " + email, Email: email})
	require.NoError(t, err)
	sess, err := session.New(u, time.Hour)
	require.NoError(t, err)
	require.NoError(t, e.sessions.Set(ctx, sess))
	return &http.Cookie{Name: session.CookieName, Value: sess.ID}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "version")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, rec).Code)
}

func TestCreateMessage(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t, 1, "ann@example.com")

	t.Run("anonymous", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/messages", map[string]any{"content": "hi", "x": 1, "y": 1}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing coordinates", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/messages", map[string]any{"content": "hi"}, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_NOTE", decode[errorBody](t, rec).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("{"))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	type created struct {
		notes.Note
		Adjusted bool `json:"adjusted"`
		Attempts int  `json:"attempts"`
	}

	first := env.do(t, http.MethodPost, "/api/messages", map[string]any{"content": "first", "x": 100, "y": 100}, cookie)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	n1 := decode[created](t, first)
	assert.False(t, n1.Adjusted)
	assert.True(t, n1.IsPublic)
	assert.Equal(t, "ann@example.com", n1.Email)
	assert.Equal(t, "User ann@example.com", n1.Name)

	second := env.do(t, http.MethodPost, "/api/messages", map[string]any{"content": "second", "x": 100, "y": 100}, cookie)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	n2 := decode[created](t, second)
	assert.True(t, n2.Adjusted)
	assert.Equal(t, 43, n2.Attempts)
	assert.InDelta(t, 100, n2.X, 1e-9)
	assert.InDelta(t, 220, n2.Y, 1e-9)
}

func TestSuggest(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t, 1, "ann@example.com")
	rec := env.do(t, http.MethodPost, "/api/messages", map[string]any{"content": "n", "x": 140, "y": 0}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/messages/suggest", map[string]any{"x": 0, "y": 0}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[suggestResponse](t, rec)
	assert.True(t, got.Adjusted)
	assert.False(t, got.Exhausted)
	assert.Equal(t, 4, got.Attempts)
	assert.InDelta(t, -14, got.X, 1e-9)
	assert.InDelta(t, 14, got.Y, 1e-9)

	rec = env.do(t, http.MethodPost, "/api/messages/suggest", map[string]any{"x": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageVisibility(t *testing.T) {
	env := newTestEnv(t)
	ann := env.signIn(t, 1, "ann@example.com")
	bob := env.signIn(t, 2, "bob@example.com")
	admin := env.signIn(t, 3, adminEmail)

	rec := env.do(t, http.MethodPost, "/api/messages",
		map[string]any{"content": "secret", "x": 0, "y": 0, "isPublic": false}, ann)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/messages",
		map[string]any{"content": "hello", "x": 500, "y": 500}, bob)
	require.Equal(t, http.StatusCreated, rec.Code)

	count := func(cookie *http.Cookie, target string) int {
		rec := env.do(t, http.MethodGet, target, nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return len(decode[[]notes.Note](t, rec))
	}

	assert.Equal(t, 1, count(nil, "/api/messages"))
	assert.Equal(t, 2, count(ann, "/api/messages"))
	assert.Equal(t, 1, count(bob, "/api/messages"))
	assert.Equal(t, 2, count(admin, "/api/messages"))

	assert.Equal(t, 2, count(ann, "/api/messages/forUsers?email=ann@example.com"))
	assert.Equal(t, 1, count(bob, "/api/messages/forUsers?email=ann@example.com"), "other users' private notes stay hidden")
	assert.Equal(t, 2, count(admin, "/api/messages/forUsers?email=ann@example.com"))

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/messages/forAdmin", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/messages/forAdmin", nil, ann).Code)
	assert.Equal(t, 2, count(admin, "/api/messages/forAdmin"))
}

func TestDeleteMessage(t *testing.T) {
	env := newTestEnv(t)
	ann := env.signIn(t, 1, "ann@example.com")
	bob := env.signIn(t, 2, "bob@example.com")

	rec := env.do(t, http.MethodPost, "/api/messages", map[string]any{"content": "mine", "x": 0, "y": 0}, ann)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[notes.Note](t, rec).ID

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodDelete, "/api/messages", map[string]string{"id": id}, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, "/api/messages", map[string]string{"id": id}, bob).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodDelete, "/api/messages", map[string]string{}, ann).Code)

	rec = env.do(t, http.MethodDelete, "/api/messages", map[string]string{"id": id}, ann)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[map[string]bool](t, rec)["success"])

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/messages", map[string]string{"id": id}, ann).Code)
}

func TestBlogLifecycle(t *testing.T) {
	env := newTestEnv(t)
	reader := env.signIn(t, 1, "reader@example.com")
	admin := env.signIn(t, 2, adminEmail)

	post := map[string]any{"title": "Hello World", "content": "<p>First post</p>", "published": true, "tags": []string{"go"}}

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/blogs", post, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/blogs", post, reader).Code)

	rec := env.do(t, http.MethodPost, "/api/blogs", post, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[blog.Blog](t, rec)
	assert.Equal(t, "hello-world", created.Slug)
	assert.Equal(t, "First post...", created.Excerpt)

	rec = env.do(t, http.MethodPost, "/api/blogs", post, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate title")

	draft := map[string]any{"title": "Draft", "content": "<p>wip</p>"}
	rec = env.do(t, http.MethodPost, "/api/blogs", draft, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	draftID := decode[blog.Blog](t, rec).ID

	rec = env.do(t, http.MethodGet, "/api/blogs?page=1&limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[blog.Page](t, rec)
	require.Len(t, page.Blogs, 1)
	assert.Equal(t, 1, page.Pagination.TotalCount)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/blogs?drafts=true", nil, reader).Code)
	rec = env.do(t, http.MethodGet, "/api/blogs?drafts=true", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[blog.Page](t, rec).Pagination.TotalCount)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/blogs/"+draftID, nil, reader).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/blogs/"+draftID, nil, admin).Code)

	rec = env.do(t, http.MethodGet, "/api/blogs/slug/hello-world", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[blog.Blog](t, rec).ID)

	rec = env.do(t, http.MethodPut, "/api/blogs/"+created.ID, map[string]any{"title": "Hello Again", "content": "<p>Edited</p>"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hello-again", decode[blog.Blog](t, rec).Slug)

	rec = env.do(t, http.MethodPost, "/api/blogs/"+created.ID+"/view", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "View recorded", decode[map[string]any](t, rec)["message"])

	rec = env.do(t, http.MethodDelete, "/api/blogs/"+created.ID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/blogs/"+created.ID, nil, nil).Code)
}

func TestBlogLikes(t *testing.T) {
	env := newTestEnv(t)
	reader := env.signIn(t, 1, "reader@example.com")
	admin := env.signIn(t, 2, adminEmail)

	rec := env.do(t, http.MethodPost, "/api/blogs", map[string]any{"title": "Liked", "content": "<p>x</p>", "published": true}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[blog.Blog](t, rec).ID

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/blogs/"+id+"/like", nil, nil).Code)

	rec = env.do(t, http.MethodGet, "/api/blogs/"+id+"/like", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[map[string]bool](t, rec)["liked"])

	rec = env.do(t, http.MethodPost, "/api/blogs/"+id+"/like", nil, reader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var liked likeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &liked))
	assert.Equal(t, "Blog liked", liked.Message)
	assert.True(t, liked.Liked)
	assert.EqualValues(t, 1, liked.LikeCount)

	rec = env.do(t, http.MethodGet, "/api/blogs/"+id+"/like", nil, reader)
	assert.True(t, decode[map[string]bool](t, rec)["liked"])

	rec = env.do(t, http.MethodPost, "/api/blogs/"+id+"/like", nil, reader)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	body := decode[errorBody](t, rec)
	assert.Equal(t, "RATE_LIMITED", body.Code)
	assert.Equal(t, "Please wait before liking/unliking again", body.Error)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/github/login", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	rec = env.do(t, http.MethodGet, "/auth/github/callback?code=abc&state=forged", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/github/callback?code=abc&state="+url.QueryEscape(state), nil, nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// states are single use
	rec = env.do(t, http.MethodGet, "/auth/github/callback?code=abc&state="+url.QueryEscape(state), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[meResponse](t, rec)
	assert.Equal(t, "octo@example.com", me.User.Email)
	assert.Equal(t, "Octo Cat", me.User.Name)
	assert.False(t, me.IsAdmin)

	rec = env.do(t, http.MethodGet, "/api/users?email=OCTO@example.com", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, me.User.ID, decode[users.User](t, rec).ID)

	rec = env.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/auth/me", nil, cookie).Code)
}

func TestLoginWithoutGitHub(t *testing.T) {
	env := newTestEnv(t)
	env.srv.opts.Auth = nil
	rec := env.do(t, http.MethodGet, "/auth/github/login", nil, nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "UNSUPPORTED", decode[errorBody](t, rec).Code)
}

func TestNoAuthActsAsAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.srv.opts.NoAuth = true

	rec := env.do(t, http.MethodGet, "/auth/me", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[meResponse](t, rec).IsAdmin)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/messages/forAdmin", nil, nil).Code)
}
