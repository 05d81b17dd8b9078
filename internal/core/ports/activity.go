package ports

import (
	"context"

	"github.com/bugtracker/tracker-system/internal/core/domain"
)

// ActivityRepository persists the bug audit trail.
type ActivityRepository interface {
	Insert(ctx context.Context, a *domain.Activity) error
	// ListByBug returns the trail of one bug, newest first.
	ListByBug(ctx context.Context, bugID string, limit int) ([]*domain.Activity, error)
}

// ActivityRecorder records a single activity entry. It runs on the dispatcher
// workers, off the request path.
type ActivityRecorder interface {
	Record(ctx context.Context, a domain.Activity) error
}

// ActivityPublisher hands an activity entry to the asynchronous pipeline.
type ActivityPublisher interface {
	Publish(a domain.Activity)
}
