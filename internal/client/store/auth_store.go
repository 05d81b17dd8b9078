package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bugtracker/tracker-system/internal/client/apiclient"
	"github.com/bugtracker/tracker-system/internal/client/session"
)

// persistVersion is written next to the session so a future layout change can
// be told apart from the current one.
const persistVersion = 0

// AuthState is a snapshot of the session store. IsAuthenticated is true if and
// only if both User and Token are set.
type AuthState struct {
	User            *apiclient.User
	Token           string
	IsAuthenticated bool
	Loading         bool
	Error           string
}

type persistedSession struct {
	State struct {
		User            *apiclient.User `json:"user"`
		Token           string          `json:"token"`
		IsAuthenticated bool            `json:"isAuthenticated"`
	} `json:"state"`
	Version int `json:"version"`
}

type AuthConfig struct {
	Client  *apiclient.Client
	Storage session.Storage
	// Key defaults to session.AuthKey.
	Key    string
	Logger zerolog.Logger
}

// AuthStore owns the session lifecycle: Anonymous until a login, registration
// or federated callback succeeds, then Authenticated until Logout or a 401.
type AuthStore struct {
	client  *apiclient.Client
	creds   *apiclient.Credentials
	storage session.Storage
	key     string
	logger  zerolog.Logger

	mu    sync.Mutex
	state AuthState
	subs  subscribers[AuthState]
}

// NewAuthStore hydrates the store from the persisted session and registers it
// for session teardown on 401 responses.
func NewAuthStore(cfg AuthConfig) (*AuthStore, error) {
	if cfg.Client == nil {
		return nil, errors.New("store: auth store requires an API client")
	}
	if cfg.Storage == nil {
		return nil, errors.New("store: auth store requires session storage")
	}
	key := cfg.Key
	if key == "" {
		key = session.AuthKey
	}

	s := &AuthStore{
		client:  cfg.Client,
		creds:   cfg.Client.Credentials(),
		storage: cfg.Storage,
		key:     key,
		logger:  cfg.Logger,
	}
	s.hydrate()
	cfg.Client.OnUnauthorized(s.expire)
	return s, nil
}

func (s *AuthStore) hydrate() {
	raw, ok, err := s.storage.Load(s.key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load persisted session")
		return
	}
	if !ok {
		return
	}

	var p persistedSession
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable persisted session")
		return
	}
	if !p.State.IsAuthenticated || p.State.User == nil || p.State.Token == "" {
		return
	}

	s.state.User = p.State.User
	s.state.Token = p.State.Token
	s.state.IsAuthenticated = true
	s.creds.Set(p.State.Token)
	s.logger.Debug().Str("username", p.State.User.Username).Msg("session restored")
}

// State returns the current snapshot.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every state change and returns a function that
// removes it.
func (s *AuthStore) Subscribe(fn Listener[AuthState]) func() {
	s.mu.Lock()
	id := s.subs.add(fn)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs.fns, id)
		s.mu.Unlock()
	}
}

func (s *AuthStore) mutate(fn func(*AuthState)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state
	listeners := s.subs.snapshot()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *AuthStore) Login(ctx context.Context, creds apiclient.LoginRequest) Result[*apiclient.User] {
	if fields := check(creds); fields != nil {
		return invalid[*apiclient.User](fields)
	}
	s.begin()
	resp, err := s.client.Auth.Login(ctx, creds)
	return s.finish(resp, err, "Login failed")
}

// Register creates the account and logs it in.
func (s *AuthStore) Register(ctx context.Context, profile apiclient.RegisterRequest) Result[*apiclient.User] {
	if fields := check(profile); fields != nil {
		return invalid[*apiclient.User](fields)
	}
	s.begin()
	resp, err := s.client.Auth.Register(ctx, profile)
	return s.finish(resp, err, "Registration failed")
}

// BeginGoogleLogin returns the identity provider URL the user must visit.
func (s *AuthStore) BeginGoogleLogin(ctx context.Context) Result[*apiclient.GoogleLogin] {
	s.begin()
	login, err := s.client.Auth.GoogleLogin(ctx)
	if err != nil {
		msg := errorMessage(err, "Google login failed")
		s.mutate(func(st *AuthState) {
			st.Loading = false
			st.Error = msg
		})
		return failWith[*apiclient.GoogleLogin](msg)
	}
	s.mutate(func(st *AuthState) { st.Loading = false })
	return succeed(login)
}

// CompleteGoogleLogin trades the provider's code and state for a session.
func (s *AuthStore) CompleteGoogleLogin(ctx context.Context, code, state string) Result[*apiclient.User] {
	if code == "" || state == "" {
		return invalid[*apiclient.User](map[string]string{"code": "Authorization code and state are required"})
	}
	s.begin()
	resp, err := s.client.Auth.GoogleCallback(ctx, code, state)
	return s.finish(resp, err, "Google callback failed")
}

// HandleFederatedCallback installs a session obtained by an external redirect
// flow. It makes no network call.
func (s *AuthStore) HandleFederatedCallback(user *apiclient.User, token string) Result[*apiclient.User] {
	if user == nil || token == "" {
		msg := "Google callback failed"
		s.mutate(func(st *AuthState) { st.Error = msg })
		return failWith[*apiclient.User](msg)
	}
	s.establish(user, token)
	return succeed(user)
}

// Logout ends the session locally. It never fails and makes no network call.
func (s *AuthStore) Logout() {
	s.teardown()
	if err := s.storage.Remove(s.key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to remove persisted session")
	}
	s.logger.Debug().Msg("logged out")
}

func (s *AuthStore) ClearError() {
	s.mutate(func(st *AuthState) { st.Error = "" })
}

// expire runs after the API client has already removed the persisted session.
func (s *AuthStore) expire() {
	s.teardown()
	s.logger.Info().Msg("session expired")
}

func (s *AuthStore) teardown() {
	s.creds.Clear()
	s.mutate(func(st *AuthState) { *st = AuthState{} })
}

func (s *AuthStore) begin() {
	s.mutate(func(st *AuthState) {
		st.Loading = true
		st.Error = ""
	})
}

func (s *AuthStore) finish(resp *apiclient.AuthResponse, err error, fallback string) Result[*apiclient.User] {
	if err == nil && (resp == nil || resp.User == nil || resp.Token == "") {
		err = errors.New("incomplete auth response")
	}
	if err != nil {
		msg := errorMessage(err, fallback)
		s.mutate(func(st *AuthState) {
			st.Loading = false
			st.Error = msg
		})
		return failWith[*apiclient.User](msg)
	}
	s.establish(resp.User, resp.Token)
	return succeed(resp.User)
}

func (s *AuthStore) establish(user *apiclient.User, token string) {
	s.creds.Set(token)
	s.mutate(func(st *AuthState) {
		*st = AuthState{User: user, Token: token, IsAuthenticated: true}
	})
	s.persist(user, token)
	s.logger.Debug().Str("username", user.Username).Msg("session established")
}

func (s *AuthStore) persist(user *apiclient.User, token string) {
	var p persistedSession
	p.State.User = user
	p.State.Token = token
	p.State.IsAuthenticated = true
	p.Version = persistVersion

	raw, err := json.Marshal(p)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode session")
		return
	}
	if err := s.storage.Save(s.key, raw); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist session")
	}
}
