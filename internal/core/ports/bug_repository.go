package ports

import (
	"context"

	"github.com/bugtracker/tracker-system/internal/core/domain"
)

// AssigneeUnassigned selects bugs without an assignee.
const AssigneeUnassigned = "unassigned"


// ListBugsFilter carries all query parameters for listing bugs.
type ListBugsFilter struct {
	Status   domain.BugStatus   // empty = any
	Priority domain.BugPriority // empty = any
	Assignee string             // empty = any; AssigneeUnassigned = no assignee; otherwise a username
	Search   string             // optional: case-insensitive match on title or description
	Page     int                // 1-based
	Limit    int
}

// BugRepository defines persistence operations for bugs.
type BugRepository interface {
	// Create inserts b and sets its ID.
	Create(ctx context.Context, b *domain.Bug) error
	FindByID(ctx context.Context, id string) (*domain.Bug, error)
	// List returns a page of bugs matching filter, newest first, and the total count.
	List(ctx context.Context, filter ListBugsFilter) ([]*domain.Bug, int64, error)
	// Update persists every mutable field of b, matched by ID, and returns the
	// stored bug as it is after the write.
	Update(ctx context.Context, b *domain.Bug) (*domain.Bug, error)
	Delete(ctx context.Context, id string) error
	// AppendComment atomically pushes c onto the bug's comments and returns the updated bug.
	AppendComment(ctx context.Context, id string, c domain.Comment) (*domain.Bug, error)
	Stats(ctx context.Context) (*domain.BugStats, error)
}
