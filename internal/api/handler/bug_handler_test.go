package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

func TestBugHandler_List_BindsQuery(t *testing.T) {
	var got ports.ListBugsInput
	stub := &stubBugService{
		listFn: func(ctx context.Context, in ports.ListBugsInput) (*ports.ListBugsResult, error) {
			got = in
			return &ports.ListBugsResult{
				Bugs:       []*domain.Bug{{ID: "b1", Title: "Crash on save"}},
				Pagination: ports.Pagination{Page: 2, PerPage: 5, Total: 6, Pages: 2},
			}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/bugs?status=open&priority=high&assignee=unassigned&search=crash&page=2&per_page=5", "", "u1", domain.RoleUser)

	if err := NewBugHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	want := ports.ListBugsInput{Status: "open", Priority: "high", Assignee: "unassigned", Search: "crash", Page: 2, PerPage: 5}
	if got != want {
		t.Fatalf("unexpected input: %+v", got)
	}

	var resp struct {
		Bugs       []map[string]any `json:"bugs"`
		Pagination map[string]any   `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Bugs) != 1 || resp.Pagination["per_page"] != float64(5) {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestBugHandler_List_RejectsBadPage(t *testing.T) {
	stub := &stubBugService{}
	c, _ := newContext(http.MethodGet, "/api/bugs?page=abc", "", "u1", domain.RoleUser)

	if err := NewBugHandler(stub).List(c); httpStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestBugHandler_Create(t *testing.T) {
	stub := &stubBugService{
		createFn: func(ctx context.Context, actor ports.Actor, in ports.CreateBugInput) (*domain.Bug, error) {
			if actor.UserID != "u1" || actor.Username != "alice" {
				t.Fatalf("unexpected actor: %+v", actor)
			}
			if in.Title != "Crash on save" || in.Priority != "high" || len(in.Tags) != 2 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Bug{ID: "b1", Title: in.Title, Status: domain.StatusOpen, Priority: domain.PriorityHigh}, nil
		},
	}
	body := `{"title":"Crash on save","description":"The editor crashes when saving","priority":"high","tags":["editor","crash"]}`
	c, rec := newContext(http.MethodPost, "/api/bugs", body, "u1", domain.RoleUser)

	if err := NewBugHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp bugResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Message == "" || resp.Bug == nil || resp.Bug.ID != "b1" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestBugHandler_Create_ValidationFromService(t *testing.T) {
	stub := &stubBugService{
		createFn: func(ctx context.Context, actor ports.Actor, in ports.CreateBugInput) (*domain.Bug, error) {
			return nil, domain.NewValidationError("title", "Title must be at least 5 characters")
		},
	}
	c, _ := newContext(http.MethodPost, "/api/bugs", `{"title":"bug","description":"long enough text"}`, "u1", domain.RoleUser)

	var ve *domain.ValidationError
	if err := NewBugHandler(stub).Create(c); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBugHandler_Update_PartialFields(t *testing.T) {
	var got ports.UpdateBugInput
	stub := &stubBugService{
		updateFn: func(ctx context.Context, actor ports.Actor, id string, in ports.UpdateBugInput) (*domain.Bug, error) {
			if id != "b1" {
				t.Fatalf("unexpected id %q", id)
			}
			got = in
			return &domain.Bug{ID: id, Status: domain.StatusResolved}, nil
		},
	}
	c, rec := newContext(http.MethodPut, "/api/bugs/b1", `{"status":"resolved","assignee":""}`, "u1", domain.RoleUser)
	c.SetParamNames("id")
	c.SetParamValues("b1")

	if err := NewBugHandler(stub).Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Status == nil || *got.Status != "resolved" {
		t.Fatalf("status not forwarded: %+v", got)
	}
	if got.Assignee == nil || *got.Assignee != "" {
		t.Fatalf("empty assignee must be forwarded to unassign: %+v", got)
	}
	if got.Title != nil || got.Tags != nil {
		t.Fatalf("absent fields must stay nil: %+v", got)
	}
}

func TestBugHandler_Delete(t *testing.T) {
	stub := &stubBugService{
		deleteFn: func(ctx context.Context, actor ports.Actor, id string) error {
			if id == "missing" {
				return domain.ErrBugNotFound
			}
			return nil
		},
	}
	h := NewBugHandler(stub)

	c, rec := newContext(http.MethodDelete, "/api/bugs/b1", "", "u1", domain.RoleUser)
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodDelete, "/api/bugs/missing", "", "u1", domain.RoleUser)
	c.SetParamNames("id")
	c.SetParamValues("missing")
	if err := h.Delete(c); !errors.Is(err, domain.ErrBugNotFound) {
		t.Fatalf("expected ErrBugNotFound, got %v", err)
	}
}

func TestBugHandler_AddComment(t *testing.T) {
	stub := &stubBugService{
		commentFn: func(ctx context.Context, actor ports.Actor, id, content string) (*domain.Comment, *domain.Bug, error) {
			comment := domain.Comment{ID: "c1", Content: content, Author: &domain.UserRef{ID: actor.UserID, Username: actor.Username}}
			return &comment, &domain.Bug{ID: id, Comments: []domain.Comment{comment}}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/bugs/b1/comments", `{"content":"Reproduced on v2"}`, "u1", domain.RoleUser)
	c.SetParamNames("id")
	c.SetParamValues("b1")

	if err := NewBugHandler(stub).AddComment(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp commentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Comment == nil || resp.Comment.Content != "Reproduced on v2" || resp.Bug == nil || len(resp.Bug.Comments) != 1 {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestBugHandler_Get_IncludesRenderedDescription(t *testing.T) {
	stub := &stubBugService{
		getFn: func(ctx context.Context, id string) (*ports.BugDetail, error) {
			return &ports.BugDetail{Bug: &domain.Bug{ID: id, Description: "**bold**"}, DescriptionHTML: "<p><strong>bold</strong></p>"}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/bugs/b1", "", "u1", domain.RoleUser)
	c.SetParamNames("id")
	c.SetParamValues("b1")

	if err := NewBugHandler(stub).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "b1" || resp["description_html"] != "<p><strong>bold</strong></p>" {
		t.Fatalf("unexpected detail payload: %s", rec.Body.String())
	}
}

func TestBugHandler_Stats(t *testing.T) {
	stub := &stubBugService{
		statsFn: func(ctx context.Context) (*domain.BugStats, error) {
			return &domain.BugStats{TotalBugs: 3, StatusCounts: domain.StatusCounts{Open: 2, InProgress: 1}}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/bugs/stats", "", "u1", domain.RoleUser)

	if err := NewBugHandler(stub).Stats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	counts, _ := resp["statusCounts"].(map[string]any)
	if resp["totalBugs"] != float64(3) || counts["inProgress"] != float64(1) {
		t.Fatalf("unexpected stats payload: %s", rec.Body.String())
	}
}
