package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

type UserService struct {
	repo   ports.UserRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewUserService(repo ports.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *UserService) ListUsers(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error) {
	page, limit := normalizePage(in.Page, in.PerPage)
	users, total, err := s.repo.List(ctx, ports.ListUsersFilter{
		Search: strings.TrimSpace(in.Search),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return &ports.ListUsersResult{
		Users: users,
		Pagination: ports.Pagination{
			Page:    page,
			PerPage: limit,
			Total:   total,
			Pages:   pageCount(total, limit),
		},
	}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateUser applies a profile change. Users may edit themselves; admins may
// edit anyone. Role changes from non-admins are ignored.
func (s *UserService) UpdateUser(ctx context.Context, actor ports.Actor, id string, in ports.UpdateUserInput) (*domain.User, error) {
	isAdmin := actor.Role == domain.RoleAdmin
	if actor.UserID != id && !isAdmin {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != user.Username {
			if len(username) < domain.UsernameMinLength {
				return nil, domain.NewValidationError("username", "username must be at least 3 characters long")
			}
			if err := s.ensureFree(ctx, s.repo.FindByUsername, username, domain.ErrUserExists); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != user.Email {
			if !emailPattern.MatchString(email) {
				return nil, domain.NewValidationError("email", "invalid email format")
			}
			if err := s.ensureFree(ctx, s.repo.FindByEmail, email, domain.ErrEmailExists); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if in.Role != nil && isAdmin {
		if *in.Role != domain.RoleUser && *in.Role != domain.RoleAdmin {
			return nil, domain.NewValidationError("role", "role must be one of: user, admin")
		}
		user.Role = *in.Role
	}
	if in.Password != nil {
		if len(*in.Password) < domain.PasswordMinLength {
			return nil, domain.NewValidationError("password", "password must be at least 6 characters long")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	user.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Str("actor", actor.Username).Msg("user updated")
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actor ports.Actor, id string) error {
	if actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	if actor.UserID == id {
		return domain.ErrCannotDeleteSelf
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Str("actor", actor.Username).Msg("user deleted")
	return nil
}

func (s *UserService) Assignees(ctx context.Context) ([]domain.UserRef, error) {
	refs, err := s.repo.Assignees(ctx)
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []domain.UserRef{}
	}
	return refs, nil
}

func (s *UserService) ensureFree(ctx context.Context, find func(context.Context, string) (*domain.User, error), value string, taken error) error {
	_, err := find(ctx, value)
	if err == nil {
		return taken
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	return err
}
