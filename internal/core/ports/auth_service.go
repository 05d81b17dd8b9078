package ports

import (
	"context"
	"time"

	"github.com/bugtracker/tracker-system/internal/core/domain"
)

// RegisterInput carries the fields of a new local account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by every flow that issues a session token.
type AuthResult struct {
	Token string
	User  *domain.User
}

// TokenClaims are the identity claims extracted from a verified bearer token.
type TokenClaims struct {
	UserID    string
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// GoogleLogin is the first leg of the federated login flow.
type GoogleLogin struct {
	AuthURL string
	State   string
}

// OAuthIdentity is the identity asserted by an external provider.
type OAuthIdentity struct {
	ProviderUserID string
	Email          string
	Name           string
}

// OAuthProvider abstracts the external identity provider.
type OAuthProvider interface {
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (*OAuthIdentity, error)
}

// TokenRevoker tracks logged-out tokens until they would have expired anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// StateStore keeps single-use OAuth state values.
type StateStore interface {
	Issue(ctx context.Context, state string, ttl time.Duration) error
	// Consume reports whether state was issued and not yet consumed, and
	// removes it either way.
	Consume(ctx context.Context, state string) (bool, error)
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	// Login accepts either a username or an email as login.
	Login(ctx context.Context, login, password string) (*AuthResult, error)
	Logout(ctx context.Context, claims TokenClaims) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
	BeginGoogleLogin(ctx context.Context) (*GoogleLogin, error)
	CompleteGoogleLogin(ctx context.Context, code, state string) (*AuthResult, error)
}
