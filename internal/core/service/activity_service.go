package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

type activityService struct {
	repo ports.ActivityRepository
	log  zerolog.Logger
}

// NewActivityService returns the recorder the dispatcher workers call.
func NewActivityService(repo ports.ActivityRepository, log zerolog.Logger) ports.ActivityRecorder {
	return &activityService{repo: repo, log: log}
}

// Record persists one activity entry of the bug audit trail.
func (s *activityService) Record(ctx context.Context, a domain.Activity) error {
	if a.BugID == "" {
		return fmt.Errorf("record activity: missing bug id")
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	if err := s.repo.Insert(ctx, &a); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	s.log.Debug().
		Str("bug_id", a.BugID).
		Str("action", string(a.Action)).
		Str("actor", a.Actor.Username).
		Msg("activity recorded")
	return nil
}
