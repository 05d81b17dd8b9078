package ports

import (
	"context"

	"github.com/bugtracker/tracker-system/internal/core/domain"
)

// ListUsersInput carries the list parameters from the transport layer.
type ListUsersInput struct {
	Search  string
	Page    int
	PerPage int
}

// ListUsersResult is returned by ListUsers.
type ListUsersResult struct {
	Users      []*domain.User `json:"users"`
	Pagination Pagination     `json:"pagination"`
}

// UpdateUserInput is a partial profile update; nil fields are left untouched.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Password *string
	Role     *string
}

type UserService interface {
	ListUsers(ctx context.Context, input ListUsersInput) (*ListUsersResult, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, actor Actor, id string, input UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, actor Actor, id string) error
	Assignees(ctx context.Context) ([]domain.UserRef, error)
}
