package apiclient

import (
	"context"
	"net/http"
	"net/url"
)

// AuthAPI groups the /auth endpoints.
type AuthAPI struct{ c *Client }

func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := a.c.do(ctx, http.MethodPost, "/auth/login", req, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := a.c.do(ctx, http.MethodPost, "/auth/register", req, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token server side. A 401 here means the token
// already expired, so the caller's own teardown is all that is left to do.
func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil, false)
}

func (a *AuthAPI) Profile(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := a.c.Request(ctx, http.MethodGet, "/auth/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (a *AuthAPI) GoogleLogin(ctx context.Context) (*GoogleLogin, error) {
	var out GoogleLogin
	if err := a.c.Request(ctx, http.MethodGet, "/auth/google/login", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AuthAPI) GoogleCallback(ctx context.Context, code, state string) (*AuthResponse, error) {
	params := url.Values{"code": {code}, "state": {state}}
	var out AuthResponse
	if err := a.c.do(ctx, http.MethodGet, "/auth/google/callback", nil, params, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// BugsAPI groups the /bugs endpoints.
type BugsAPI struct{ c *Client }

func bugPath(id string) string { return "/bugs/" + url.PathEscape(id) }

func (b *BugsAPI) List(ctx context.Context, params url.Values) (*BugList, error) {
	var out BugList
	if err := b.c.Request(ctx, http.MethodGet, "/bugs", nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BugsAPI) Get(ctx context.Context, id string) (*Bug, error) {
	var out Bug
	if err := b.c.Request(ctx, http.MethodGet, bugPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type bugEnvelope struct {
	Message string `json:"message"`
	Bug     *Bug   `json:"bug"`
}

func (b *BugsAPI) Create(ctx context.Context, draft BugDraft) (*Bug, error) {
	var out bugEnvelope
	if err := b.c.Request(ctx, http.MethodPost, "/bugs", draft, nil, &out); err != nil {
		return nil, err
	}
	return out.Bug, nil
}

func (b *BugsAPI) Update(ctx context.Context, id string, patch BugPatch) (*Bug, error) {
	var out bugEnvelope
	if err := b.c.Request(ctx, http.MethodPut, bugPath(id), patch, nil, &out); err != nil {
		return nil, err
	}
	return out.Bug, nil
}

func (b *BugsAPI) Delete(ctx context.Context, id string) error {
	return b.c.Request(ctx, http.MethodDelete, bugPath(id), nil, nil, nil)
}

func (b *BugsAPI) AddComment(ctx context.Context, id string, req CommentRequest) (*CommentResult, error) {
	var out CommentResult
	if err := b.c.Request(ctx, http.MethodPost, bugPath(id)+"/comments", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BugsAPI) Stats(ctx context.Context) (*BugStats, error) {
	var out BugStats
	if err := b.c.Request(ctx, http.MethodGet, "/bugs/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BugsAPI) Activity(ctx context.Context, id string) ([]Activity, error) {
	var out struct {
		Activity []Activity `json:"activity"`
	}
	if err := b.c.Request(ctx, http.MethodGet, bugPath(id)+"/activity", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Activity, nil
}

// UsersAPI groups the /users endpoints.
type UsersAPI struct{ c *Client }

func userPath(id string) string { return "/users/" + url.PathEscape(id) }

func (u *UsersAPI) List(ctx context.Context, params url.Values) (*UserList, error) {
	var out UserList
	if err := u.c.Request(ctx, http.MethodGet, "/users", nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UsersAPI) Assignees(ctx context.Context) ([]UserRef, error) {
	var out struct {
		Assignees []UserRef `json:"assignees"`
	}
	if err := u.c.Request(ctx, http.MethodGet, "/users/assignees", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Assignees, nil
}

func (u *UsersAPI) Get(ctx context.Context, id string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := u.c.Request(ctx, http.MethodGet, userPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (u *UsersAPI) Update(ctx context.Context, id string, patch UserPatch) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := u.c.Request(ctx, http.MethodPut, userPath(id), patch, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (u *UsersAPI) Delete(ctx context.Context, id string) error {
	return u.c.Request(ctx, http.MethodDelete, userPath(id), nil, nil, nil)
}
