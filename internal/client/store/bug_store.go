package store

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bugtracker/tracker-system/internal/client/apiclient"
)

// FilterAll disables a filter.
const FilterAll = "all"

// errSuperseded is reported by a fetch whose response arrived after a newer
// fetch of the same kind was issued.
const errSuperseded = "superseded by a newer request"

// Filters parameterize FetchAll.
type Filters struct {
	Status   string
	Priority string
	Assignee string
	Search   string
}

func DefaultFilters() Filters {
	return Filters{Status: FilterAll, Priority: FilterAll, Assignee: FilterAll}
}

// FilterPatch is a partial Filters; nil fields are left alone.
type FilterPatch struct {
	Status   *string
	Priority *string
	Assignee *string
	Search   *string
}

// BugState is a snapshot of the bug store. A focused record that is also in
// Bugs is the same pointer in both places.
type BugState struct {
	Bugs       []*apiclient.Bug
	Current    *apiclient.Bug
	Pagination apiclient.Pagination
	Filters    Filters
	Loading    bool
	Error      string
}

// BugStore caches the bug collection and the focused record. Records live in
// one table keyed by id; the collection is an ordered list of ids and the focus
// is an id.
type BugStore struct {
	bugs   *apiclient.BugsAPI
	logger zerolog.Logger

	mu         sync.Mutex
	entities   map[string]*apiclient.Bug
	order      []string
	focusedID  string
	pagination apiclient.Pagination
	filters    Filters
	inFlight   int
	err        string
	listSeq    uint64
	oneSeq     uint64
	subs       subscribers[BugState]
}

// NewBugStore builds an empty store and registers it for session teardown on
// 401 responses.
func NewBugStore(client *apiclient.Client, logger zerolog.Logger) (*BugStore, error) {
	if client == nil {
		return nil, errors.New("store: bug store requires an API client")
	}
	s := &BugStore{
		bugs:     client.Bugs,
		logger:   logger,
		entities: make(map[string]*apiclient.Bug),
		filters:  DefaultFilters(),
	}
	client.OnUnauthorized(s.reset)
	return s, nil
}

// State returns the current snapshot.
func (s *BugStore) State() BugState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *BugStore) snapshotLocked() BugState {
	list := make([]*apiclient.Bug, 0, len(s.order))
	for _, id := range s.order {
		if b, ok := s.entities[id]; ok {
			list = append(list, b)
		}
	}
	return BugState{
		Bugs:       list,
		Current:    s.entities[s.focusedID],
		Pagination: s.pagination,
		Filters:    s.filters,
		Loading:    s.inFlight > 0,
		Error:      s.err,
	}
}

// Subscribe registers fn for every state change and returns a function that
// removes it.
func (s *BugStore) Subscribe(fn Listener[BugState]) func() {
	s.mu.Lock()
	id := s.subs.add(fn)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs.fns, id)
		s.mu.Unlock()
	}
}

// mutate applies fn under the lock and then notifies subscribers.
func (s *BugStore) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	listeners := s.subs.snapshot()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *BugStore) begin() {
	s.mutate(func() {
		s.inFlight++
		s.err = ""
	})
}

// fail ends a call with msg and returns it.
func (s *BugStore) fail(msg string) string {
	s.mutate(func() {
		s.inFlight--
		s.err = msg
	})
	return msg
}

// FetchAll lists bugs with the current filters overlaid by extra and replaces
// the collection. On failure the previous collection is kept.
func (s *BugStore) FetchAll(ctx context.Context, extra map[string]string) Result[[]*apiclient.Bug] {
	s.mu.Lock()
	s.listSeq++
	seq := s.listSeq
	params := filterParams(s.filters, extra)
	s.mu.Unlock()

	s.begin()
	list, err := s.bugs.List(ctx, params)

	stale := false
	s.mutate(func() {
		s.inFlight--
		if seq != s.listSeq {
			stale = true
			return
		}
		if err != nil {
			s.err = errorMessage(err, "Failed to fetch bugs")
			return
		}
		entities := make(map[string]*apiclient.Bug, len(list.Bugs)+1)
		order := make([]string, 0, len(list.Bugs))
		for _, b := range list.Bugs {
			if b == nil {
				continue
			}
			if _, dup := entities[b.ID]; !dup {
				order = append(order, b.ID)
			}
			entities[b.ID] = b
		}
		if focused, ok := s.entities[s.focusedID]; ok {
			if listed, ok := entities[s.focusedID]; ok {
				entities[s.focusedID] = keepDetail(focused, listed)
			} else {
				entities[s.focusedID] = focused
			}
		}
		s.entities = entities
		s.order = order
		s.pagination = list.Pagination
	})
	switch {
	case stale:
		s.logger.Debug().Uint64("seq", seq).Msg("discarded superseded bug list")
		return failWith[[]*apiclient.Bug](errSuperseded)
	case err != nil:
		return failWith[[]*apiclient.Bug](errorMessage(err, "Failed to fetch bugs"))
	}
	return succeed(list.Bugs)
}

func filterParams(f Filters, extra map[string]string) url.Values {
	params := url.Values{}
	set := func(k, v string) {
		if v != "" {
			params.Set(k, v)
		}
	}
	set("status", f.Status)
	set("priority", f.Priority)
	set("assignee", f.Assignee)
	set("search", strings.TrimSpace(f.Search))
	for k, v := range extra {
		if v == "" {
			params.Del(k)
			continue
		}
		params.Set(k, v)
	}
	return params
}

// FetchOne loads a bug and focuses it.
func (s *BugStore) FetchOne(ctx context.Context, id string) Result[*apiclient.Bug] {
	if strings.TrimSpace(id) == "" {
		return invalid[*apiclient.Bug](map[string]string{"id": "Bug id is required"})
	}
	s.mu.Lock()
	s.oneSeq++
	seq := s.oneSeq
	s.mu.Unlock()

	s.begin()
	bug, err := s.bugs.Get(ctx, id)

	stale := false
	s.mutate(func() {
		s.inFlight--
		if seq != s.oneSeq {
			stale = true
			return
		}
		if err != nil {
			s.err = errorMessage(err, "Failed to fetch bug")
			return
		}
		s.entities[bug.ID] = bug
		s.focusedID = bug.ID
	})
	switch {
	case stale:
		s.logger.Debug().Uint64("seq", seq).Str("bug_id", id).Msg("discarded superseded bug")
		return failWith[*apiclient.Bug](errSuperseded)
	case err != nil:
		return failWith[*apiclient.Bug](errorMessage(err, "Failed to fetch bug"))
	}
	return succeed(bug)
}

// Create validates the draft, creates the bug and puts it first in the
// collection.
func (s *BugStore) Create(ctx context.Context, draft apiclient.BugDraft) Result[*apiclient.Bug] {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Description = strings.TrimSpace(draft.Description)
	if fields := check(draft); fields != nil {
		return invalid[*apiclient.Bug](fields)
	}

	s.begin()
	bug, err := s.bugs.Create(ctx, draft)
	if err != nil {
		return failWith[*apiclient.Bug](s.fail(errorMessage(err, "Failed to create bug")))
	}

	s.mutate(func() {
		s.inFlight--
		order := make([]string, 0, len(s.order)+1)
		order = append(order, bug.ID)
		for _, id := range s.order {
			if id != bug.ID {
				order = append(order, id)
			}
		}
		s.order = order
		s.entities[bug.ID] = bug
	})
	return succeed(bug)
}

// Update applies patch and replaces the stored record, which the collection
// and the focus share.
func (s *BugStore) Update(ctx context.Context, id string, patch apiclient.BugPatch) Result[*apiclient.Bug] {
	if fields := check(patch); fields != nil {
		return invalid[*apiclient.Bug](fields)
	}

	s.begin()
	bug, err := s.bugs.Update(ctx, id, patch)
	if err != nil {
		return failWith[*apiclient.Bug](s.fail(errorMessage(err, "Failed to update bug")))
	}

	s.mutate(func() {
		s.inFlight--
		s.replaceLocked(id, bug)
	})
	return succeed(bug)
}

// Delete removes the bug. A missing id reports the server's not-found message
// and leaves the collection as it was.
func (s *BugStore) Delete(ctx context.Context, id string) Result[string] {
	s.begin()
	if err := s.bugs.Delete(ctx, id); err != nil {
		return failWith[string](s.fail(errorMessage(err, "Failed to delete bug")))
	}

	s.mutate(func() {
		s.inFlight--
		delete(s.entities, id)
		s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
		if s.focusedID == id {
			s.focusedID = ""
		}
	})
	return succeed(id)
}

// AddComment posts a comment and replaces the record with the one the server
// returns. Nothing is appended locally before the server answers.
func (s *BugStore) AddComment(ctx context.Context, id string, comment apiclient.CommentRequest) Result[*apiclient.Bug] {
	comment.Content = strings.TrimSpace(comment.Content)
	if fields := check(comment); fields != nil {
		return invalid[*apiclient.Bug](fields)
	}

	res, err := s.bugs.AddComment(ctx, id, comment)
	if err == nil && (res == nil || res.Bug == nil) {
		err = errors.New("comment response without bug")
	}
	if err != nil {
		msg := errorMessage(err, "Failed to add comment")
		s.mutate(func() { s.err = msg })
		return failWith[*apiclient.Bug](msg)
	}

	s.mutate(func() { s.replaceLocked(id, res.Bug) })
	return succeed(res.Bug)
}

// replaceLocked swaps the stored record for id if the collection or the focus
// refers to it.
func (s *BugStore) replaceLocked(id string, bug *apiclient.Bug) {
	prev, ok := s.entities[id]
	if !ok {
		return
	}
	s.entities[id] = keepDetail(prev, bug)
}

// keepDetail returns next carrying the rendered description of prev, which
// only the detail endpoint returns. The rendering is dropped once the
// description itself changed.
func keepDetail(prev, next *apiclient.Bug) *apiclient.Bug {
	if next.DescriptionHTML != "" || prev.DescriptionHTML == "" || prev.Description != next.Description {
		return next
	}
	merged := *next
	merged.DescriptionHTML = prev.DescriptionHTML
	return &merged
}

// SetFilters merges patch into the filters. It does not fetch.
func (s *BugStore) SetFilters(patch FilterPatch) {
	s.mutate(func() {
		if patch.Status != nil {
			s.filters.Status = *patch.Status
		}
		if patch.Priority != nil {
			s.filters.Priority = *patch.Priority
		}
		if patch.Assignee != nil {
			s.filters.Assignee = *patch.Assignee
		}
		if patch.Search != nil {
			s.filters.Search = *patch.Search
		}
	})
}

func (s *BugStore) ClearError() {
	s.mutate(func() { s.err = "" })
}

// ClearCurrent drops the focus. The record stays in the collection if listed.
func (s *BugStore) ClearCurrent() {
	s.mutate(func() {
		if s.focusedID != "" && !slices.Contains(s.order, s.focusedID) {
			delete(s.entities, s.focusedID)
		}
		s.focusedID = ""
	})
}

// reset drops cached records after the session ends. Filters survive.
func (s *BugStore) reset() {
	s.mutate(func() {
		s.entities = make(map[string]*apiclient.Bug)
		s.order = nil
		s.focusedID = ""
		s.pagination = apiclient.Pagination{}
	})
}
