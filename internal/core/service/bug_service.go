package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

const (
	cacheNamespace = "bugs"
	listCacheTTL   = time.Minute
	statsCacheTTL  = 5 * time.Minute

	defaultPerPage = 10
	maxPerPage     = 100
	maxPage        = 100000
	activityLimit  = 100

	filterAll = "all"
)

// BugDeps groups the collaborators of BugService.
type BugDeps struct {
	Bugs       ports.BugRepository
	Users      ports.UserRepository
	Activities ports.ActivityRepository
	Publisher  ports.ActivityPublisher
	Cache      ports.ResponseCache
	Renderer   ports.ContentRenderer
	Logger     zerolog.Logger
}

// BugService implements the bug use cases. Reads go through the response
// cache; every write invalidates it and publishes an activity entry.
type BugService struct {
	bugs       ports.BugRepository
	users      ports.UserRepository
	activities ports.ActivityRepository
	publisher  ports.ActivityPublisher
	cache      ports.ResponseCache
	renderer   ports.ContentRenderer
	logger     zerolog.Logger
	now        func() time.Time
}

func NewBugService(deps BugDeps) *BugService {
	return &BugService{
		bugs:       deps.Bugs,
		users:      deps.Users,
		activities: deps.Activities,
		publisher:  deps.Publisher,
		cache:      deps.Cache,
		renderer:   deps.Renderer,
		logger:     deps.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *BugService) ListBugs(ctx context.Context, in ports.ListBugsInput) (*ports.ListBugsResult, error) {
	filter, err := toListFilter(in)
	if err != nil {
		return nil, err
	}

	key := listCacheKey(filter)
	var cached ports.ListBugsResult
	if s.loadCached(ctx, key, &cached) {
		return &cached, nil
	}

	bugs, total, err := s.bugs.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if bugs == nil {
		bugs = []*domain.Bug{}
	}

	result := &ports.ListBugsResult{
		Bugs: bugs,
		Pagination: ports.Pagination{
			Page:    filter.Page,
			PerPage: filter.Limit,
			Total:   total,
			Pages:   pageCount(total, filter.Limit),
		},
	}
	s.storeCached(ctx, key, result, listCacheTTL)
	return result, nil
}

func (s *BugService) GetBug(ctx context.Context, id string) (*ports.BugDetail, error) {
	bug, err := s.bugs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ports.BugDetail{Bug: bug, DescriptionHTML: s.renderer.Markdown(bug.Description)}, nil
}

func (s *BugService) CreateBug(ctx context.Context, actor ports.Actor, in ports.CreateBugInput) (*domain.Bug, error) {
	title, err := s.cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	description, err := cleanDescription(in.Description)
	if err != nil {
		return nil, err
	}
	priority, err := parsePriority(in.Priority, domain.PriorityMedium)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(in.Status, domain.StatusOpen)
	if err != nil {
		return nil, err
	}
	assignee, err := s.resolveAssignee(ctx, in.Assignee)
	if err != nil {
		return nil, err
	}

	now := s.now()
	bug := &domain.Bug{
		Title:            title,
		Description:      description,
		Status:           status,
		Priority:         priority,
		Reporter:         &domain.UserRef{ID: actor.UserID, Username: actor.Username},
		Assignee:         assignee,
		Tags:             cleanTags(in.Tags),
		StepsToReproduce: strings.TrimSpace(in.StepsToReproduce),
		ExpectedBehavior: strings.TrimSpace(in.ExpectedBehavior),
		Environment:      strings.TrimSpace(in.Environment),
		Comments:         []domain.Comment{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.bugs.Create(ctx, bug); err != nil {
		s.logger.Error().Err(err).Msg("failed to create bug")
		return nil, err
	}

	s.logger.Info().Str("bug_id", bug.ID).Str("reporter", actor.Username).Msg("bug created")
	s.afterWrite(ctx, actor, bug.ID, domain.ActionCreated, nil)
	return bug, nil
}

func (s *BugService) UpdateBug(ctx context.Context, actor ports.Actor, id string, in ports.UpdateBugInput) (*domain.Bug, error) {
	bug, err := s.bugs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes []string
	if in.Title != nil {
		title, err := s.cleanTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		bug.Title = title
		changes = append(changes, "title")
	}
	if in.Description != nil {
		description, err := cleanDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		bug.Description = description
		changes = append(changes, "description")
	}
	if in.Priority != nil {
		priority, err := parsePriority(*in.Priority, "")
		if err != nil {
			return nil, err
		}
		bug.Priority = priority
		changes = append(changes, "priority")
	}
	if in.Status != nil {
		status, err := parseStatus(*in.Status, "")
		if err != nil {
			return nil, err
		}
		bug.Status = status
		changes = append(changes, "status")
	}
	if in.Assignee != nil {
		assignee, err := s.resolveAssignee(ctx, *in.Assignee)
		if err != nil {
			return nil, err
		}
		bug.Assignee = assignee
		changes = append(changes, "assignee")
	}
	if in.Tags != nil {
		bug.Tags = cleanTags(*in.Tags)
		changes = append(changes, "tags")
	}
	if in.StepsToReproduce != nil {
		bug.StepsToReproduce = strings.TrimSpace(*in.StepsToReproduce)
		changes = append(changes, "steps_to_reproduce")
	}
	if in.ExpectedBehavior != nil {
		bug.ExpectedBehavior = strings.TrimSpace(*in.ExpectedBehavior)
		changes = append(changes, "expected_behavior")
	}
	if in.Environment != nil {
		bug.Environment = strings.TrimSpace(*in.Environment)
		changes = append(changes, "environment")
	}

	bug.UpdatedAt = s.now()
	bug, err = s.bugs.Update(ctx, bug)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("bug_id", bug.ID).Strs("changes", changes).Msg("bug updated")
	s.afterWrite(ctx, actor, bug.ID, domain.ActionUpdated, changes)
	return bug, nil
}

func (s *BugService) DeleteBug(ctx context.Context, actor ports.Actor, id string) error {
	if err := s.bugs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("bug_id", id).Str("actor", actor.Username).Msg("bug deleted")
	s.afterWrite(ctx, actor, id, domain.ActionDeleted, nil)
	return nil
}

func (s *BugService) AddComment(ctx context.Context, actor ports.Actor, id, content string) (*domain.Comment, *domain.Bug, error) {
	content = strings.TrimSpace(s.renderer.PlainText(content))
	if len([]rune(content)) < domain.CommentMinLength {
		return nil, nil, domain.NewValidationError("content", "comment must be at least 5 characters long")
	}

	comment := domain.Comment{
		ID:        ulid.Make().String(),
		Content:   content,
		Author:    &domain.UserRef{ID: actor.UserID, Username: actor.Username},
		CreatedAt: s.now(),
	}
	bug, err := s.bugs.AppendComment(ctx, id, comment)
	if err != nil {
		return nil, nil, err
	}

	s.afterWrite(ctx, actor, id, domain.ActionCommented, nil)
	return &comment, bug, nil
}

func (s *BugService) Stats(ctx context.Context) (*domain.BugStats, error) {
	var cached domain.BugStats
	if s.loadCached(ctx, "stats", &cached) {
		return &cached, nil
	}
	stats, err := s.bugs.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.storeCached(ctx, "stats", stats, statsCacheTTL)
	return stats, nil
}

func (s *BugService) Activity(ctx context.Context, id string) ([]*domain.Activity, error) {
	items, err := s.activities.ListByBug(ctx, id, activityLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Activity{}
	}
	return items, nil
}

// afterWrite drops cached reads and hands the mutation to the activity pipeline.
func (s *BugService) afterWrite(ctx context.Context, actor ports.Actor, bugID string, action domain.ActivityAction, changes []string) {
	if err := s.cache.Invalidate(ctx, cacheNamespace); err != nil {
		s.logger.Warn().Err(err).Msg("bug cache invalidation failed")
	}
	s.publisher.Publish(domain.Activity{
		BugID:   bugID,
		Action:  action,
		Actor:   domain.UserRef{ID: actor.UserID, Username: actor.Username},
		Changes: changes,
		At:      s.now(),
	})
}

func (s *BugService) loadCached(ctx context.Context, key string, dst any) bool {
	hit, err := s.cache.Load(ctx, cacheNamespace, key, dst)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("bug cache read failed")
		return false
	}
	return hit
}

func (s *BugService) storeCached(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := s.cache.Store(ctx, cacheNamespace, key, v, ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("bug cache write failed")
	}
}

// resolveAssignee maps a username to a reference. Empty means unassigned.
func (s *BugService) resolveAssignee(ctx context.Context, username string) (*domain.UserRef, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewValidationError("assignee", "assignee "+username+" does not exist")
		}
		return nil, err
	}
	return user.Ref(), nil
}

func (s *BugService) cleanTitle(raw string) (string, error) {
	title := strings.TrimSpace(s.renderer.PlainText(raw))
	n := len([]rune(title))
	if n < domain.TitleMinLength {
		return "", domain.NewValidationError("title", "title must be at least 5 characters long")
	}
	if n > domain.TitleMaxLength {
		return "", domain.NewValidationError("title", "title must be at most 200 characters long")
	}
	return title, nil
}

func cleanDescription(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	if len([]rune(description)) < domain.DescriptionMinLength {
		return "", domain.NewValidationError("description", "description must be at least 10 characters long")
	}
	return description, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func parseStatus(raw string, fallback domain.BugStatus) (domain.BugStatus, error) {
	if raw == "" && fallback != "" {
		return fallback, nil
	}
	status := domain.BugStatus(raw)
	if !status.Valid() {
		return "", domain.NewValidationError("status", "status must be one of: open, in_progress, resolved, closed")
	}
	return status, nil
}

func parsePriority(raw string, fallback domain.BugPriority) (domain.BugPriority, error) {
	if raw == "" && fallback != "" {
		return fallback, nil
	}
	priority := domain.BugPriority(raw)
	if !priority.Valid() {
		return "", domain.NewValidationError("priority", "priority must be one of: low, medium, high, critical")
	}
	return priority, nil
}

func toListFilter(in ports.ListBugsInput) (ports.ListBugsFilter, error) {
	var f ports.ListBugsFilter

	if in.Status != "" && in.Status != filterAll {
		status, err := parseStatus(in.Status, "")
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	if in.Priority != "" && in.Priority != filterAll {
		priority, err := parsePriority(in.Priority, "")
		if err != nil {
			return f, err
		}
		f.Priority = priority
	}
	if in.Assignee != filterAll {
		f.Assignee = strings.TrimSpace(in.Assignee)
	}
	f.Search = strings.TrimSpace(in.Search)
	f.Page, f.Limit = normalizePage(in.Page, in.PerPage)
	return f, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func pageCount(total int64, perPage int) int {
	if total == 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func listCacheKey(f ports.ListBugsFilter) string {
	v := url.Values{}
	v.Set("status", string(f.Status))
	v.Set("priority", string(f.Priority))
	v.Set("assignee", f.Assignee)
	v.Set("search", f.Search)
	v.Set("page", strconv.Itoa(f.Page))
	v.Set("per_page", strconv.Itoa(f.Limit))
	return "list?" + v.Encode()
}
