package notes

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/folioworks/folio/pkg/cache"
	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/placement"
	"github.com/folioworks/folio/pkg/users"
)

// =============================================================================
// Fakes
// =============================================================================

type memStore struct {
	mu          sync.Mutex
	notes       []Note
	publicCalls int
}

func (m *memStore) Create(_ context.Context, n *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, *n)
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notes {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNoteNotFound, "note not found")
}

func (m *memStore) Delete(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notes {
		if n.ID == id {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			return n.UserID, nil
		}
	}
	return "", errors.New(errors.ErrCodeNoteNotFound, "note not found")
}

func (m *memStore) filter(keep func(Note) bool) []Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Note
	for _, n := range m.notes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func (m *memStore) ListPublic(context.Context) ([]Note, error) {
	m.mu.Lock()
	m.publicCalls++
	m.mu.Unlock()
	return m.filter(func(n Note) bool { return n.IsPublic }), nil
}

func (m *memStore) ListVisibleTo(_ context.Context, email string) ([]Note, error) {
	return m.filter(func(n Note) bool { return n.IsPublic || strings.EqualFold(n.Email, email) }), nil
}

func (m *memStore) ListAll(context.Context) ([]Note, error) {
	return m.filter(func(Note) bool { return true }), nil
}

func (m *memStore) Positions(context.Context) ([]placement.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pts := make([]placement.Point, len(m.notes))
	for i, n := range m.notes {
		pts[i] = n.Position()
	}
	return pts, nil
}

type userMap map[string]*users.User

func (u userMap) GetByID(_ context.Context, id string) (*users.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, errors.New(errors.ErrCodeUserNotFound, "user not found")
}

type recordingHooks struct {
	mu    sync.Mutex
	calls []placement.Result
}

func (h *recordingHooks) OnSuggest(_ context.Context, adjusted, exhausted bool, attempts int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, placement.Result{Adjusted: adjusted, Exhausted: exhausted, Attempts: attempts})
}

// =============================================================================
// Helpers
// =============================================================================

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T, store Store, opts Options) *Service {
	t.Helper()
	s := NewService(store, opts)
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func input(content string, x, y float64, userID, email string) CreateInput {
	return CreateInput{
		Content:  content,
		IsPublic: true,
		X:        x,
		Y:        y,
		UserID:   userID,
		Author:   Author{Name: userID, Email: email},
	}
}

// =============================================================================
// Create
// =============================================================================

func TestCreateKeepsFreePosition(t *testing.T) {
	svc := newTestService(t, &memStore{}, Options{})

	got, err := svc.Create(context.Background(), input("hello", 100, 100, "u1", "u1@example.com"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Note.X != 100 || got.Note.Y != 100 {
		t.Errorf("position = (%v, %v), want (100, 100)", got.Note.X, got.Note.Y)
	}
	if got.Placement.Adjusted {
		t.Error("free position should not be adjusted")
	}
	if got.Note.ID == "" || got.Note.CreatedAt.IsZero() {
		t.Errorf("note not initialised: %+v", got.Note)
	}
}

func TestCreateMovesOverlappingNote(t *testing.T) {
	ctx := context.Background()
	hooks := &recordingHooks{}
	svc := newTestService(t, &memStore{}, Options{})
	svc.hooks.Placement = hooks

	if _, err := svc.Create(ctx, input("first", 100, 100, "u1", "u1@example.com")); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Create(ctx, input("second", 100, 100, "u2", "u2@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	if got.Note.X != 100 || got.Note.Y != 220 {
		t.Errorf("position = (%v, %v), want (100, 220)", got.Note.X, got.Note.Y)
	}
	if !got.Placement.Adjusted || got.Placement.Attempts != 43 {
		t.Errorf("placement = %+v", got.Placement)
	}
	if len(hooks.calls) != 2 || !hooks.calls[1].Adjusted {
		t.Errorf("hook calls = %+v", hooks.calls)
	}
}

func TestCreateUsesConfiguredAdvisor(t *testing.T) {
	ctx := context.Background()
	adv := placement.New(placement.Config{NoteWidth: 100, NoteHeight: 50, MinDistance: 10, SearchRadius: 40, SpiralStep: 10})
	svc := newTestService(t, &memStore{}, Options{Advisor: adv})

	svc.Create(ctx, input("a", 0, 0, "u1", "u1@example.com"))
	got, err := svc.Create(ctx, input("b", 0, 0, "u1", "u1@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Note.X != 0 || got.Note.Y != 30 {
		t.Errorf("position = (%v, %v), want (0, 30)", got.Note.X, got.Note.Y)
	}
}

func TestCreateConcurrentDropsDoNotOverlap(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	svc := newTestService(t, store, Options{})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			if _, err := svc.Create(ctx, input("race", 0, 0, id, id+"@example.com")); err != nil {
				t.Errorf("Create: %v", err)
			}
		}()
	}
	wg.Wait()

	adv := placement.New(placement.DefaultConfig())
	for i := range store.notes {
		for j := i + 1; j < len(store.notes); j++ {
			if adv.Overlaps(store.notes[i].Position(), store.notes[j].Position()) {
				t.Errorf("notes %d and %d overlap at %v / %v", i, j, store.notes[i].Position(), store.notes[j].Position())
			}
		}
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t, &memStore{}, Options{})
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty content", func(in *CreateInput) { in.Content = "  " }},
		{"NaN x", func(in *CreateInput) { in.X = math.NaN() }},
		{"infinite y", func(in *CreateInput) { in.Y = math.Inf(-1) }},
		{"missing user", func(in *CreateInput) { in.UserID = "" }},
		{"missing name", func(in *CreateInput) { in.Author.Name = "" }},
		{"missing email", func(in *CreateInput) { in.Author.Email = "" }},
		{"bad email", func(in *CreateInput) { in.Author.Email = "not-an-email" }},
		{"bad image", func(in *CreateInput) { in.Author.Image = strPtr("javascript:alert(1)") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input("hello", 0, 0, "u1", "u1@example.com")
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			if code := errors.GetCode(err); code != errors.ErrCodeInvalidNote {
				t.Errorf("code = %q (err %v), want INVALID_NOTE", code, err)
			}
		})
	}
}

func TestCreateNormalisesEmptyImage(t *testing.T) {
	svc := newTestService(t, &memStore{}, Options{})
	in := input("hi", 0, 0, "u1", "u1@example.com")
	in.Author.Image = strPtr("")

	got, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if got.Note.Image != nil {
		t.Errorf("empty image should be stored as nil, got %q", *got.Note.Image)
	}
}

// =============================================================================
// Suggest
// =============================================================================

func TestSuggest(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &memStore{}, Options{})
	svc.Create(ctx, input("a", 140, 0, "u1", "u1@example.com"))

	res, err := svc.Suggest(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := placement.Result{Point: placement.Point{X: -14, Y: 14}, Adjusted: true, Attempts: 4}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Suggest mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.Suggest(ctx, math.NaN(), 0); !errors.Is(err, errors.ErrCodeInvalidNote) {
		t.Errorf("NaN err = %v", err)
	}
}

// =============================================================================
// Delete
// =============================================================================

func TestDeletePermissions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		viewer   Viewer
		wantCode errors.Code
	}{
		{"owner", Viewer{UserID: "owner", Email: "owner@example.com"}, ""},
		{"admin", Viewer{UserID: "boss", Email: "admin@example.com", Admin: true}, ""},
		{"stranger", Viewer{UserID: "other", Email: "other@example.com"}, errors.ErrCodeForbidden},
		{"anonymous", Viewer{}, errors.ErrCodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			svc := newTestService(t, store, Options{})
			created, err := svc.Create(ctx, input("mine", 0, 0, "owner", "owner@example.com"))
			if err != nil {
				t.Fatal(err)
			}

			err = svc.Delete(ctx, created.Note.ID, tt.viewer)
			if code := errors.GetCode(err); code != tt.wantCode {
				t.Fatalf("code = %q (err %v), want %q", code, err, tt.wantCode)
			}
			wantLeft := 1
			if tt.wantCode == "" {
				wantLeft = 0
			}
			if len(store.notes) != wantLeft {
				t.Errorf("notes left = %d, want %d", len(store.notes), wantLeft)
			}
		})
	}
}

func TestDeleteMissing(t *testing.T) {
	svc := newTestService(t, &memStore{}, Options{})
	ctx := context.Background()
	viewer := Viewer{UserID: "u1", Admin: true}

	if err := svc.Delete(ctx, "nope", viewer); !errors.Is(err, errors.ErrCodeNoteNotFound) {
		t.Errorf("err = %v, want NOTE_NOT_FOUND", err)
	}
	if err := svc.Delete(ctx, "", viewer); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

// =============================================================================
// Listing
// =============================================================================

func seedVisibility(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	seed := []struct {
		content string
		public  bool
		user    string
	}{
		{"alice public", true, "alice"},
		{"alice private", false, "alice"},
		{"bob private", false, "bob"},
		{"bob public", true, "bob"},
	}
	for i, s := range seed {
		in := input(s.content, float64(i)*1000, 0, s.user, s.user+"@example.com")
		in.IsPublic = s.public
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
}

func contents(notes []Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Content
	}
	return out
}

func TestListForViewer(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &memStore{}, Options{})
	seedVisibility(t, svc)

	tests := []struct {
		name   string
		viewer Viewer
		want   []string
	}{
		{"anonymous", Viewer{}, []string{"bob public", "alice public"}},
		{"alice", Viewer{UserID: "alice", Email: "alice@example.com"}, []string{"bob public", "alice private", "alice public"}},
		{"bob", Viewer{UserID: "bob", Email: "BOB@example.com"}, []string{"bob public", "bob private", "alice public"}},
		{"admin", Viewer{UserID: "x", Email: "admin@example.com", Admin: true}, []string{"bob public", "bob private", "alice private", "alice public"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListForViewer(ctx, tt.viewer)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, contents(got)); diff != "" {
				t.Errorf("visible notes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListForEmailEmptyIsPublic(t *testing.T) {
	svc := newTestService(t, &memStore{}, Options{})
	seedVisibility(t, svc)

	got, err := svc.ListForEmail(context.Background(), "  ")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %v, want the two public notes", contents(got))
	}
}

func TestListAuthorFallback(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	store.notes = []Note{
		{ID: "1", Content: "stored author", IsPublic: true, UserID: "u1", Author: Author{Name: "Pen Name", Email: "pen@example.com"}},
		{ID: "2", Content: "no author", IsPublic: true, UserID: "u1"},
		{ID: "3", Content: "orphan", IsPublic: true, UserID: "gone"},
	}
	lookup := userMap{"u1": {ID: "u1", Name: "Real Name", Email: "real@example.com", Image: "https://img/u1"}}
	svc := newTestService(t, store, Options{Users: lookup})

	got, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]Author{}
	for _, n := range got {
		byID[n.ID] = n.Author
	}

	want := map[string]Author{
		"1": {Name: "Pen Name", Email: "pen@example.com", Image: strPtr("https://img/u1")},
		"2": {Name: "Real Name", Email: "real@example.com", Image: strPtr("https://img/u1")},
		"3": {},
	}
	if diff := cmp.Diff(want, byID); diff != "" {
		t.Errorf("authors mismatch (-want +got):\n%s", diff)
	}
}

func TestListPublicIsCached(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, store, Options{Cache: c})
	svc.Create(ctx, input("one", 0, 0, "u1", "u1@example.com"))

	for range 3 {
		got, err := svc.ListPublic(ctx)
		if err != nil || len(got) != 1 {
			t.Fatalf("ListPublic = %v, %v", contents(got), err)
		}
	}
	if store.publicCalls != 1 {
		t.Errorf("store hit %d times, want 1", store.publicCalls)
	}

	// A write invalidates the cached listing
	svc.Create(ctx, input("two", 1000, 0, "u1", "u1@example.com"))
	got, _ := svc.ListPublic(ctx)
	if len(got) != 2 || store.publicCalls != 2 {
		t.Errorf("after write: %v, store calls %d", contents(got), store.publicCalls)
	}
}

func TestListReturnsEmptySlice(t *testing.T) {
	svc := newTestService(t, &memStore{}, Options{})
	got, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("empty listing should be a non-nil slice so it encodes as []")
	}
}

func TestAuthorWithFallback(t *testing.T) {
	u := &users.User{Name: "N", Email: "e@example.com"}

	got := Author{}.WithFallback(u)
	if got.Name != "N" || got.Email != "e@example.com" || got.Image != nil {
		t.Errorf("WithFallback = %+v", got)
	}
	if got := (Author{Name: "keep"}).WithFallback(nil); got.Name != "keep" {
		t.Errorf("nil user should leave author unchanged: %+v", got)
	}
}
