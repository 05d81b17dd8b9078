package store

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bugtracker/tracker-system/internal/client/apiclient"
	"github.com/bugtracker/tracker-system/internal/client/session"
)

// fakeBackend is an in-memory stand-in for the REST service.
type fakeBackend struct {
	mu       sync.Mutex
	bugs     []*apiclient.Bug
	nextID   int
	expired  bool
	failing  bool
	requests atomic.Int64
	// hold, when set, is waited on by list requests whose status matches key.
	hold map[string]chan struct{}
}

func newFakeBackend(bugs ...*apiclient.Bug) *fakeBackend {
	return &fakeBackend{bugs: bugs, hold: map[string]chan struct{}{}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	f.mu.Lock()
	expired, failing := f.expired, f.failing
	f.mu.Unlock()
	if failing {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database unavailable"})
		return
	}
	if expired && r.URL.Path != "/api/auth/login" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api")
	switch {
	case path == "/auth/login" && r.Method == http.MethodPost:
		var req apiclient.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, apiclient.AuthResponse{Token: "tok-" + req.Username, User: &apiclient.User{ID: "u1", Username: req.Username}})
	case path == "/auth/register" && r.Method == http.MethodPost:
		var req apiclient.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username == "taken" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "username already exists"})
			return
		}
		writeJSON(w, http.StatusCreated, apiclient.AuthResponse{Token: "tok-new", User: &apiclient.User{ID: "u2", Username: req.Username, Email: req.Email}})
	case path == "/auth/google/login":
		writeJSON(w, http.StatusOK, apiclient.GoogleLogin{AuthURL: "https://accounts.example/auth?state=st-1", State: "st-1"})
	case path == "/auth/google/callback":
		if r.URL.Query().Get("state") != "st-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired oauth state"})
			return
		}
		writeJSON(w, http.StatusOK, apiclient.AuthResponse{Token: "tok-google", User: &apiclient.User{ID: "u3", Username: "grace"}})
	case path == "/bugs" && r.Method == http.MethodGet:
		f.list(w, r)
	case path == "/bugs" && r.Method == http.MethodPost:
		var draft apiclient.BugDraft
		_ = json.NewDecoder(r.Body).Decode(&draft)
		f.mu.Lock()
		f.nextID++
		bug := &apiclient.Bug{ID: fmt.Sprintf("new-%d", f.nextID), Title: draft.Title, Description: draft.Description, Status: "open", Priority: "medium"}
		f.bugs = append([]*apiclient.Bug{bug}, f.bugs...)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"message": "Bug created successfully", "bug": bug})
	case strings.HasPrefix(path, "/bugs/"):
		f.bug(w, r, strings.TrimPrefix(path, "/bugs/"))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	}
}

func (f *fakeBackend) list(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	f.mu.Lock()
	gate := f.hold[status]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*apiclient.Bug{}
	for _, b := range f.bugs {
		if status == "" || status == FilterAll || b.Status == status {
			out = append(out, b)
		}
	}
	writeJSON(w, http.StatusOK, apiclient.BugList{Bugs: out, Pagination: apiclient.Pagination{Page: 1, PerPage: 10, Total: int64(len(out)), Pages: 1}})
}

func (f *fakeBackend) bug(w http.ResponseWriter, r *http.Request, rest string) {
	id, sub, _ := strings.Cut(rest, "/")

	f.mu.Lock()
	defer f.mu.Unlock()
	idx := -1
	for i, b := range f.bugs {
		if b.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "bug not found"})
		return
	}
	current := *f.bugs[idx]

	switch {
	case sub == "comments" && r.Method == http.MethodPost:
		var req apiclient.CommentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		comment := apiclient.Comment{ID: fmt.Sprintf("c%d", len(current.Comments)+1), Content: req.Content, CreatedAt: time.Now()}
		current.Comments = append(append([]apiclient.Comment{}, current.Comments...), comment)
		f.bugs[idx] = &current
		writeJSON(w, http.StatusCreated, map[string]any{"message": "Comment added successfully", "comment": comment, "bug": &current})
	case r.Method == http.MethodGet:
		detail := current
		detail.DescriptionHTML = "<p>" + current.Description + "</p>"
		writeJSON(w, http.StatusOK, &detail)
	case r.Method == http.MethodPut:
		var patch apiclient.BugPatch
		_ = json.NewDecoder(r.Body).Decode(&patch)
		if patch.Title != nil {
			current.Title = *patch.Title
		}
		if patch.Description != nil {
			current.Description = *patch.Description
		}
		if patch.Status != nil {
			current.Status = *patch.Status
		}
		if patch.Priority != nil {
			current.Priority = *patch.Priority
		}
		f.bugs[idx] = &current
		writeJSON(w, http.StatusOK, map[string]any{"message": "Bug updated successfully", "bug": &current})
	case r.Method == http.MethodDelete:
		f.bugs = append(f.bugs[:idx], f.bugs[idx+1:]...)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Bug deleted successfully"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (f *fakeBackend) fail() {
	f.mu.Lock()
	f.failing = true
	f.mu.Unlock()
}

func (f *fakeBackend) expire() {
	f.mu.Lock()
	f.expired = true
	f.mu.Unlock()
}

type testEnv struct {
	backend   *fakeBackend
	client    *apiclient.Client
	storage   *session.MemoryStorage
	navigated []string
	navMu     sync.Mutex
}

func newTestEnv(t *testing.T, bugs ...*apiclient.Bug) *testEnv {
	t.Helper()
	env := &testEnv{backend: newFakeBackend(bugs...), storage: session.NewMemoryStorage()}
	srv := httptest.NewServer(env.backend)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{
		BaseURL:    srv.URL + "/api",
		HTTPClient: srv.Client(),
		Storage:    env.storage,
		Navigator: apiclient.NavigatorFunc(func(path string) {
			env.navMu.Lock()
			env.navigated = append(env.navigated, path)
			env.navMu.Unlock()
		}),
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	env.client = client
	return env
}

func (e *testEnv) authStore(t *testing.T) *AuthStore {
	t.Helper()
	s, err := NewAuthStore(AuthConfig{Client: e.client, Storage: e.storage, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewAuthStore: %v", err)
	}
	return s
}

func (e *testEnv) bugStore(t *testing.T) *BugStore {
	t.Helper()
	s, err := NewBugStore(e.client, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBugStore: %v", err)
	}
	return s
}

func fixtureBugs() []*apiclient.Bug {
	return []*apiclient.Bug{
		{ID: "b1", Title: "Login button unresponsive", Description: "Clicking login does nothing.", Status: "open", Priority: "high"},
		{ID: "b2", Title: "Typo on settings page", Status: "closed", Priority: "low"},
		{ID: "b3", Title: "Crash when saving draft", Status: "open", Priority: "critical"},
		{ID: "b4", Title: "Slow dashboard load", Status: "closed", Priority: "medium"},
		{ID: "b5", Title: "Avatar upload fails", Status: "open", Priority: "medium"},
	}
}

func strPtr(s string) *string { return &s }
