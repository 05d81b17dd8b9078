package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users  map[string]*domain.User // by ID
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
		if u.Email == user.Email {
			return nil, domain.ErrEmailExists
		}
	}
	created := cloneUser(user)
	if created.ID == "" {
		r.nextID++
		created.ID = fmt.Sprintf("u%d", r.nextID)
	}
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *stubUserRepo) FindByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return googleID != "" && u.GoogleID == googleID })
}

func (r *stubUserRepo) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	var out []*domain.User
	for _, u := range r.users {
		if f.Search != "" && !strings.Contains(u.Username, f.Search) && !strings.Contains(u.Email, f.Search) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) Assignees(_ context.Context) ([]domain.UserRef, error) {
	var refs []domain.UserRef
	for _, u := range r.users {
		refs = append(refs, *u.Ref())
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Username < refs[j].Username })
	return refs, nil
}

type stubBugRepo struct {
	bugs      map[string]*domain.Bug
	order     []string // insertion order
	nextID    int
	listCalls int
	statCalls int
	listErr   error
	// beforeUpdate runs between the service's read and its write.
	beforeUpdate func()
}

func newStubBugRepo() *stubBugRepo {
	return &stubBugRepo{bugs: make(map[string]*domain.Bug)}
}

func cloneBug(b *domain.Bug) *domain.Bug {
	clone := *b
	clone.Tags = append([]string(nil), b.Tags...)
	clone.Comments = append([]domain.Comment(nil), b.Comments...)
	return &clone
}

func (r *stubBugRepo) Create(_ context.Context, b *domain.Bug) error {
	r.nextID++
	b.ID = fmt.Sprintf("b%d", r.nextID)
	r.bugs[b.ID] = cloneBug(b)
	r.order = append(r.order, b.ID)
	return nil
}

func (r *stubBugRepo) FindByID(_ context.Context, id string) (*domain.Bug, error) {
	b, ok := r.bugs[id]
	if !ok {
		return nil, domain.ErrBugNotFound
	}
	return cloneBug(b), nil
}

// List applies the same filters the real Mongo repo would use, newest first.
func (r *stubBugRepo) List(_ context.Context, f ports.ListBugsFilter) ([]*domain.Bug, int64, error) {
	r.listCalls++
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var matched []*domain.Bug
	for i := len(r.order) - 1; i >= 0; i-- {
		b, ok := r.bugs[r.order[i]]
		if !ok {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Priority != "" && b.Priority != f.Priority {
			continue
		}
		switch {
		case f.Assignee == ports.AssigneeUnassigned && b.Assignee != nil:
			continue
		case f.Assignee != "" && f.Assignee != ports.AssigneeUnassigned && (b.Assignee == nil || b.Assignee.Username != f.Assignee):
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(b.Title), q) && !strings.Contains(strings.ToLower(b.Description), q) {
				continue
			}
		}
		matched = append(matched, cloneBug(b))
	}
	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip > len(matched) {
		return []*domain.Bug{}, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (r *stubBugRepo) Update(_ context.Context, b *domain.Bug) (*domain.Bug, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	stored, ok := r.bugs[b.ID]
	if !ok {
		return nil, domain.ErrBugNotFound
	}
	// Only mutable fields are written; comments and provenance stay as stored.
	next := cloneBug(b)
	next.Comments = stored.Comments
	next.Reporter = stored.Reporter
	next.CreatedAt = stored.CreatedAt
	r.bugs[b.ID] = next
	return cloneBug(next), nil
}

func (r *stubBugRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.bugs[id]; !ok {
		return domain.ErrBugNotFound
	}
	delete(r.bugs, id)
	return nil
}

func (r *stubBugRepo) AppendComment(_ context.Context, id string, c domain.Comment) (*domain.Bug, error) {
	b, ok := r.bugs[id]
	if !ok {
		return nil, domain.ErrBugNotFound
	}
	b.Comments = append(b.Comments, c)
	b.UpdatedAt = c.CreatedAt
	return cloneBug(b), nil
}

func (r *stubBugRepo) Stats(_ context.Context) (*domain.BugStats, error) {
	r.statCalls++
	stats := &domain.BugStats{}
	for _, b := range r.bugs {
		stats.TotalBugs++
		stats.StatusCounts.AddStatus(b.Status, 1)
		stats.PriorityCounts.AddPriority(b.Priority, 1)
	}
	return stats, nil
}

type stubActivityRepo struct {
	entries []*domain.Activity
}

func (r *stubActivityRepo) Insert(_ context.Context, a *domain.Activity) error {
	clone := *a
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *stubActivityRepo) ListByBug(_ context.Context, bugID string, limit int) ([]*domain.Activity, error) {
	var out []*domain.Activity
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].BugID == bugID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Infrastructure stubs
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Activity
}

func (p *recordingPublisher) Publish(a domain.Activity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, a)
}

// memCache mirrors the Redis cache semantics: JSON values, namespace-wide invalidation.
type memCache struct {
	entries     map[string][]byte
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Load(_ context.Context, ns, key string, dst any) (bool, error) {
	raw, ok := c.entries[ns+"|"+key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Store(_ context.Context, ns, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.entries[ns+"|"+key] = raw
	return nil
}

func (c *memCache) Invalidate(_ context.Context, ns string) error {
	c.invalidated++
	for k := range c.entries {
		if strings.HasPrefix(k, ns+"|") {
			delete(c.entries, k)
		}
	}
	return nil
}

// tagStripper removes angle-bracket tags; markdown output is wrapped in <p>.
type tagStripper struct{}

func (tagStripper) Markdown(src string) string { return "<p>" + src + "</p>" }

func (tagStripper) PlainText(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type memRevoker struct {
	revoked map[string]time.Duration
}

func (m *memRevoker) Revoke(_ context.Context, id string, ttl time.Duration) error {
	if m.revoked == nil {
		m.revoked = make(map[string]time.Duration)
	}
	m.revoked[id] = ttl
	return nil
}

func (m *memRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := m.revoked[id]
	return ok, nil
}

type memStates struct {
	issued map[string]bool
}

func (m *memStates) Issue(_ context.Context, state string, _ time.Duration) error {
	if m.issued == nil {
		m.issued = make(map[string]bool)
	}
	m.issued[state] = true
	return nil
}

func (m *memStates) Consume(_ context.Context, state string) (bool, error) {
	ok := m.issued[state]
	delete(m.issued, state)
	return ok, nil
}

type stubGoogle struct {
	identity *ports.OAuthIdentity
	err      error
}

func (g *stubGoogle) LoginURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (g *stubGoogle) Exchange(_ context.Context, code string) (*ports.OAuthIdentity, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.identity, nil
}
