package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bugtracker/tracker-system/internal/client/session"
)

type recordingNavigator struct{ paths []string }

func (n *recordingNavigator) Navigate(path string) { n.paths = append(n.paths, path) }

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *session.MemoryStorage, *recordingNavigator) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	storage := session.NewMemoryStorage()
	nav := &recordingNavigator{}
	c, err := New(Config{
		BaseURL:    srv.URL + "/api/",
		HTTPClient: srv.Client(),
		Storage:    storage,
		Navigator:  nav,
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, storage, nav
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without BaseURL")
	}
}

func TestRequest_AttachesBearerAndDecodes(t *testing.T) {
	var gotAuth, gotQuery string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bugs" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(BugList{Bugs: []*Bug{{ID: "b1", Title: "Crash on save"}}})
	})

	c.Credentials().Set("tok-1")
	list, err := c.Bugs.List(context.Background(), url.Values{"status": {"open"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotAuth != "Bearer tok-1" || gotQuery != "status=open" {
		t.Fatalf("unexpected request: auth=%q query=%q", gotAuth, gotQuery)
	}
	if len(list.Bugs) != 1 || list.Bugs[0].ID != "b1" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestRequest_NoHeaderWithoutCredential(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if h := r.Header.Get("Authorization"); h != "" {
			t.Fatalf("unexpected Authorization header %q", h)
		}
		_, _ = w.Write([]byte(`{"auth_url":"https://accounts.test","state":"s"}`))
	})

	if _, err := c.Auth.GoogleLogin(context.Background()); err != nil {
		t.Fatalf("GoogleLogin: %v", err)
	}
}

func TestRequest_UnauthorizedTearsDownSession(t *testing.T) {
	c, storage, nav := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	})
	_ = storage.Save(session.AuthKey, []byte(`{"state":{}}`))
	c.Credentials().Set("stale")

	notified := 0
	c.OnUnauthorized(func() { notified++ })

	_, err := c.Bugs.Get(context.Background(), "b1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, ok, _ := storage.Load(session.AuthKey); ok {
		t.Fatalf("persisted session must be removed")
	}
	if c.Credentials().Token() != "" {
		t.Fatalf("credential must be cleared")
	}
	if len(nav.paths) != 1 || nav.paths[0] != LoginPath {
		t.Fatalf("expected redirect to %s, got %v", LoginPath, nav.paths)
	}
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}
}

func TestLogin_BadCredentialsKeepSession(t *testing.T) {
	c, _, nav := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	})

	_, err := c.Auth.Login(context.Background(), LoginRequest{Username: "alice", Password: "bad"})
	if Message(err, "Login failed") != "invalid credentials" {
		t.Fatalf("expected server message, got %v", err)
	}
	if len(nav.paths) != 0 {
		t.Fatalf("a failed login must not redirect, got %v", nav.paths)
	}
}

func TestLogout_ExpiredTokenDoesNotRedirect(t *testing.T) {
	var gotAuth string
	c, storage, nav := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"token expired"}`))
	})
	_ = storage.Save(session.AuthKey, []byte(`{"state":{}}`))
	c.Credentials().Set("expired")

	notified := 0
	c.OnUnauthorized(func() { notified++ })

	err := c.Auth.Logout(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if gotAuth != "Bearer expired" {
		t.Fatalf("logout must still present the token, got %q", gotAuth)
	}
	if len(nav.paths) != 0 || notified != 0 {
		t.Fatalf("logout must not run the expiry teardown, nav=%v notified=%d", nav.paths, notified)
	}
}

func TestRequest_ErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Bug not found"}`, "Bug not found"},
		{"error field", `{"error":"bug not found"}`, "bug not found"},
		{"no json", `<html>oops</html>`, "fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Bugs.Get(context.Background(), "missing")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if got := Message(err, "fallback"); got != tc.want {
				t.Fatalf("Message = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRequest_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Bugs.Stats(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if Message(err, "generic") != "generic" {
		t.Fatalf("network errors must use the fallback message")
	}
}

func TestBugs_EnvelopesAndEscaping(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.EscapedPath() == "/api/bugs/a%2Fb":
			var patch map[string]any
			_ = json.NewDecoder(r.Body).Decode(&patch)
			if _, ok := patch["assignee"]; !ok {
				t.Fatalf("empty assignee must be sent: %v", patch)
			}
			if _, ok := patch["title"]; ok {
				t.Fatalf("nil title must be omitted: %v", patch)
			}
			_, _ = w.Write([]byte(`{"message":"ok","bug":{"id":"a/b","status":"closed"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/bugs/b1/comments":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message":"ok","comment":{"id":"c1","content":"hello world"},"bug":{"id":"b1","comments":[{"id":"c1"}]}}`))
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.EscapedPath())
		}
	})
	ctx := context.Background()

	empty := ""
	bug, err := c.Bugs.Update(ctx, "a/b", BugPatch{Assignee: &empty})
	if err != nil || bug.Status != "closed" {
		t.Fatalf("Update: %+v %v", bug, err)
	}

	res, err := c.Bugs.AddComment(ctx, "b1", CommentRequest{Content: "hello world"})
	if err != nil || res.Comment.ID != "c1" || len(res.Bug.Comments) != 1 {
		t.Fatalf("AddComment: %+v %v", res, err)
	}
}
