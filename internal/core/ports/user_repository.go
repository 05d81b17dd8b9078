package ports

import (
	"context"

	"github.com/bugtracker/tracker-system/internal/core/domain"
)

// ListUsersFilter carries the query parameters for listing users.
type ListUsersFilter struct {
	Search string // optional: partial match on username or email
	Page   int    // 1-based
	Limit  int
}

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
	// Update persists every mutable field of user, matched by ID.
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	// Assignees returns every user as a reference, ordered by username.
	Assignees(ctx context.Context) ([]domain.UserRef, error)
}
