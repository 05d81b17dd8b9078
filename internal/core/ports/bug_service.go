package ports

import (
	"context"

	"github.com/bugtracker/tracker-system/internal/core/domain"
)

// Actor identifies the authenticated caller of a use case.
type Actor struct {
	UserID   string
	Username string
	Role     string
}

// ListBugsInput carries the raw list parameters from the transport layer.
// "all" and empty values mean no filter.
type ListBugsInput struct {
	Status   string
	Priority string
	Assignee string
	Search   string
	Page     int
	PerPage  int
}

// Pagination describes one page of a list result.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

// ListBugsResult is returned by ListBugs.
type ListBugsResult struct {
	Bugs       []*domain.Bug `json:"bugs"`
	Pagination Pagination    `json:"pagination"`
}

// CreateBugInput carries all data needed to open a new bug.
type CreateBugInput struct {
	Title            string
	Description      string
	Priority         string // default medium
	Status           string // default open
	Assignee         string // username, optional
	Tags             []string
	StepsToReproduce string
	ExpectedBehavior string
	Environment      string
}

// UpdateBugInput is a partial update; nil fields are left untouched.
// An empty Assignee unassigns the bug.
type UpdateBugInput struct {
	Title            *string
	Description      *string
	Priority         *string
	Status           *string
	Assignee         *string
	Tags             *[]string
	StepsToReproduce *string
	ExpectedBehavior *string
	Environment      *string
}

// BugDetail is the full bug view with its markdown description rendered.
type BugDetail struct {
	*domain.Bug
	DescriptionHTML string `json:"description_html"`
}

// BugService defines use-case operations for bugs.
type BugService interface {
	ListBugs(ctx context.Context, input ListBugsInput) (*ListBugsResult, error)
	GetBug(ctx context.Context, id string) (*BugDetail, error)
	CreateBug(ctx context.Context, actor Actor, input CreateBugInput) (*domain.Bug, error)
	UpdateBug(ctx context.Context, actor Actor, id string, input UpdateBugInput) (*domain.Bug, error)
	DeleteBug(ctx context.Context, actor Actor, id string) error
	AddComment(ctx context.Context, actor Actor, id, content string) (*domain.Comment, *domain.Bug, error)
	Stats(ctx context.Context) (*domain.BugStats, error)
	Activity(ctx context.Context, id string) ([]*domain.Activity, error)
}
