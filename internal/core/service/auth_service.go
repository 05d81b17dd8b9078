package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

const oauthStateTTL = 10 * time.Minute

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Users   ports.UserRepository
	Revoker ports.TokenRevoker
	States  ports.StateStore
	// Google is nil when federated login is not configured.
	Google    ports.OAuthProvider
	JWTSecret string
	TokenTTL  time.Duration
	Logger    zerolog.Logger
}

// AuthService implements registration, login and logout for local and Google accounts.
type AuthService struct {
	users     ports.UserRepository
	revoker   ports.TokenRevoker
	states    ports.StateStore
	google    ports.OAuthProvider
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAuthService(deps AuthDeps) *AuthService {
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		users:     deps.Users,
		revoker:   deps.Revoker,
		states:    deps.States,
		google:    deps.Google,
		jwtSecret: deps.JWTSecret,
		tokenTTL:  ttl,
		logger:    deps.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if len(username) < domain.UsernameMinLength {
		return nil, domain.NewValidationError("username", "username must be at least 3 characters long")
	}
	if !emailPattern.MatchString(email) {
		return nil, domain.NewValidationError("email", "invalid email format")
	}
	if len(in.Password) < domain.PasswordMinLength {
		return nil, domain.NewValidationError("password", "password must be at least 6 characters long")
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return s.issue(created)
}

func (s *AuthService) Login(ctx context.Context, login, password string) (*ports.AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, domain.NewValidationError("username", "username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, login)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.users.FindByEmail(ctx, strings.ToLower(login))
	}
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// Google accounts have no local password.
	if user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims ports.TokenClaims) error {
	if claims.TokenID == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info().Str("user_id", claims.UserID).Msg("user logged out")
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) BeginGoogleLogin(ctx context.Context) (*ports.GoogleLogin, error) {
	if s.google == nil {
		return nil, domain.ErrOAuthNotConfigured
	}
	state := uuid.NewString()
	if err := s.states.Issue(ctx, state, oauthStateTTL); err != nil {
		return nil, fmt.Errorf("issue oauth state: %w", err)
	}
	return &ports.GoogleLogin{AuthURL: s.google.LoginURL(state), State: state}, nil
}

// CompleteGoogleLogin finishes the federated flow. The account is matched by
// Google ID, then by email (linking it), and created when neither exists.
func (s *AuthService) CompleteGoogleLogin(ctx context.Context, code, state string) (*ports.AuthResult, error) {
	if s.google == nil {
		return nil, domain.ErrOAuthNotConfigured
	}
	if code == "" {
		return nil, domain.NewValidationError("code", "authorization code is required")
	}
	ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidOAuthState
	}

	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google exchange: %w", err)
	}

	user, err := s.findOrCreateGoogleUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) findOrCreateGoogleUser(ctx context.Context, id *ports.OAuthIdentity) (*domain.User, error) {
	user, err := s.users.FindByGoogleID(ctx, id.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	email := strings.ToLower(id.Email)
	user, err = s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleID = id.ProviderUserID
		user.UpdatedAt = s.now()
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info().Str("user_id", user.ID).Msg("google account linked")
		return user, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	username, err := s.freeUsername(ctx, usernameFromEmail(email))
	if err != nil {
		return nil, err
	}
	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		Role:         domain.RoleUser,
		AuthProvider: domain.ProviderGoogle,
		GoogleID:     id.ProviderUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("google user created")
	return created, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return nil
}

// freeUsername returns base, or base followed by the first free counter.
func (s *AuthService) freeUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; i < 1000; i++ {
		_, err := s.users.FindByUsername(ctx, candidate)
		if errors.Is(err, domain.ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", domain.ErrUserExists
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	for len(name) < domain.UsernameMinLength {
		name += "_"
	}
	return name
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
