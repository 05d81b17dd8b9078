package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

type authFixture struct {
	svc     *AuthService
	users   *stubUserRepo
	revoker *memRevoker
	states  *memStates
	google  *stubGoogle
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:   newStubUserRepo(),
		revoker: &memRevoker{},
		states:  &memStates{},
		google: &stubGoogle{identity: &ports.OAuthIdentity{
			ProviderUserID: "g-123",
			Email:          "Grace.Hopper@example.com",
			Name:           "Grace Hopper",
		}},
	}
	f.svc = NewAuthService(AuthDeps{
		Users:     f.users,
		Revoker:   f.revoker,
		States:    f.states,
		Google:    f.google,
		JWTSecret: "secret",
		TokenTTL:  time.Hour,
		Logger:    zerolog.Nop(),
	})
	return f
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	return claims
}

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture()

	res, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: " alice ",
		Email:    "Alice@Example.com",
		Password: "pass123",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token after registration")
	}
	user := res.User
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("expected trimmed and lowered identity, got %q %q", user.Username, user.Email)
	}
	if user.Role != domain.RoleUser || user.AuthProvider != domain.ProviderLocal {
		t.Fatalf("unexpected role/provider: %s/%s", user.Role, user.AuthProvider)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	claims := parseClaims(t, res.Token)
	if claims["sub"] != user.ID || claims["username"] != "alice" || claims["role"] != domain.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if jti, _ := claims["jti"].(string); jti == "" {
		t.Fatalf("expected jti claim")
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newAuthFixture()

	cases := []struct {
		name  string
		in    ports.RegisterInput
		field string
	}{
		{"short username", ports.RegisterInput{Username: "al", Email: "al@example.com", Password: "pass123"}, "username"},
		{"bad email", ports.RegisterInput{Username: "alice", Email: "not-an-email", Password: "pass123"}, "email"},
		{"short password", ports.RegisterInput{Username: "alice", Email: "a@example.com", Password: "12345"}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
	if len(f.users.users) != 0 {
		t.Fatalf("no user should be persisted on validation failure")
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, ports.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := f.svc.Register(ctx, ports.RegisterInput{Username: "bob", Email: "other@example.com", Password: "secret1"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if _, err := f.svc.Register(ctx, ports.RegisterInput{Username: "bobby", Email: "bob@example.com", Password: "secret1"}); !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestAuthService_Login_ByUsernameOrEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, ports.RegisterInput{Username: "carol", Email: "carol@example.com", Password: "s3cret"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	for _, login := range []string{"carol", "carol@example.com", "CAROL@example.com"} {
		res, err := f.svc.Login(ctx, login, "s3cret")
		if err != nil {
			t.Fatalf("login with %q failed: %v", login, err)
		}
		if res.User.Username != "carol" {
			t.Fatalf("unexpected user: %+v", res.User)
		}
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, _ = f.svc.Register(ctx, ports.RegisterInput{Username: "dave", Email: "dave@example.com", Password: "goodpass"})

	if _, err := f.svc.Login(ctx, "dave", "badpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "ghost", "pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	var ve *domain.ValidationError
	if _, err := f.svc.Login(ctx, "", ""); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for empty credentials, got %v", err)
	}
}

func TestAuthService_Logout_RevokesForRemainingLifetime(t *testing.T) {
	f := newAuthFixture()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	err := f.svc.Logout(context.Background(), ports.TokenClaims{
		UserID:    "u1",
		TokenID:   "jti-1",
		ExpiresAt: now.Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if ttl := f.revoker.revoked["jti-1"]; ttl != 30*time.Minute {
		t.Fatalf("expected 30m revocation, got %v", ttl)
	}

	// Already expired tokens need no revocation entry.
	if err := f.svc.Logout(context.Background(), ports.TokenClaims{TokenID: "jti-2", ExpiresAt: now.Add(-time.Second)}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, ok := f.revoker.revoked["jti-2"]; ok {
		t.Fatalf("expired token should not be stored")
	}
}

func TestAuthService_GoogleLogin_CreatesUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	begin, err := f.svc.BeginGoogleLogin(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	u, err := url.Parse(begin.AuthURL)
	if err != nil || u.Query().Get("state") != begin.State {
		t.Fatalf("auth url must carry the state, got %q", begin.AuthURL)
	}

	res, err := f.svc.CompleteGoogleLogin(ctx, "code-1", begin.State)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if res.User.Username != "grace.hopper" || res.User.AuthProvider != domain.ProviderGoogle || res.User.GoogleID != "g-123" {
		t.Fatalf("unexpected google user: %+v", res.User)
	}

	// The state is single use.
	if _, err := f.svc.CompleteGoogleLogin(ctx, "code-1", begin.State); !errors.Is(err, domain.ErrInvalidOAuthState) {
		t.Fatalf("expected ErrInvalidOAuthState on replay, got %v", err)
	}
}

func TestAuthService_GoogleLogin_LinksExistingEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, ports.RegisterInput{Username: "grace", Email: "grace.hopper@example.com", Password: "cobol1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	begin, _ := f.svc.BeginGoogleLogin(ctx)
	res, err := f.svc.CompleteGoogleLogin(ctx, "code", begin.State)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if res.User.ID != reg.User.ID {
		t.Fatalf("expected the existing account to be linked, got new user %s", res.User.ID)
	}
	stored := f.users.users[reg.User.ID]
	if stored.GoogleID != "g-123" {
		t.Fatalf("expected google id to be linked, got %q", stored.GoogleID)
	}
}

func TestAuthService_GoogleLogin_UsernameCollision(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, ports.RegisterInput{Username: "grace.hopper", Email: "someone@example.com", Password: "cobol1"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	begin, _ := f.svc.BeginGoogleLogin(ctx)
	res, err := f.svc.CompleteGoogleLogin(ctx, "code", begin.State)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if res.User.Username != "grace.hopper1" {
		t.Fatalf("expected suffixed username, got %q", res.User.Username)
	}
}

func TestAuthService_GoogleLogin_NotConfigured(t *testing.T) {
	svc := NewAuthService(AuthDeps{Users: newStubUserRepo(), JWTSecret: "secret", Logger: zerolog.Nop()})

	if _, err := svc.BeginGoogleLogin(context.Background()); !errors.Is(err, domain.ErrOAuthNotConfigured) {
		t.Fatalf("expected ErrOAuthNotConfigured, got %v", err)
	}
}

func TestAuthService_GoogleLogin_ExchangeFailure(t *testing.T) {
	f := newAuthFixture()
	f.google.err = errors.New("token exchange failed with status 400")
	ctx := context.Background()

	begin, _ := f.svc.BeginGoogleLogin(ctx)
	_, err := f.svc.CompleteGoogleLogin(ctx, "bad-code", begin.State)
	if err == nil || !strings.Contains(err.Error(), "google exchange") {
		t.Fatalf("expected wrapped exchange error, got %v", err)
	}
}

func TestUsernameFromEmail(t *testing.T) {
	cases := map[string]string{
		"grace.hopper@example.com": "grace.hopper",
		"a+b@example.com":          "ab_",
		"x@example.com":            "x__",
	}
	for in, want := range cases {
		if got := usernameFromEmail(in); got != want {
			t.Errorf("usernameFromEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
