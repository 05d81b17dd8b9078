package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bugtracker/tracker-system/internal/api/middleware"
	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, login, password string) (*ports.AuthResult, error)
	logoutFn   func(ctx context.Context, claims ports.TokenClaims) error
	profileFn  func(ctx context.Context, userID string) (*domain.User, error)
	beginFn    func(ctx context.Context) (*ports.GoogleLogin, error)
	completeFn func(ctx context.Context, code, state string) (*ports.AuthResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, login, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, login, password)
}

func (s *stubAuthService) Logout(ctx context.Context, claims ports.TokenClaims) error {
	return s.logoutFn(ctx, claims)
}

func (s *stubAuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubAuthService) BeginGoogleLogin(ctx context.Context) (*ports.GoogleLogin, error) {
	return s.beginFn(ctx)
}

func (s *stubAuthService) CompleteGoogleLogin(ctx context.Context, code, state string) (*ports.AuthResult, error) {
	return s.completeFn(ctx, code, state)
}

type stubBugService struct {
	listFn     func(ctx context.Context, in ports.ListBugsInput) (*ports.ListBugsResult, error)
	getFn      func(ctx context.Context, id string) (*ports.BugDetail, error)
	createFn   func(ctx context.Context, actor ports.Actor, in ports.CreateBugInput) (*domain.Bug, error)
	updateFn   func(ctx context.Context, actor ports.Actor, id string, in ports.UpdateBugInput) (*domain.Bug, error)
	deleteFn   func(ctx context.Context, actor ports.Actor, id string) error
	commentFn  func(ctx context.Context, actor ports.Actor, id, content string) (*domain.Comment, *domain.Bug, error)
	statsFn    func(ctx context.Context) (*domain.BugStats, error)
	activityFn func(ctx context.Context, id string) ([]*domain.Activity, error)
}

func (s *stubBugService) ListBugs(ctx context.Context, in ports.ListBugsInput) (*ports.ListBugsResult, error) {
	return s.listFn(ctx, in)
}

func (s *stubBugService) GetBug(ctx context.Context, id string) (*ports.BugDetail, error) {
	return s.getFn(ctx, id)
}

func (s *stubBugService) CreateBug(ctx context.Context, actor ports.Actor, in ports.CreateBugInput) (*domain.Bug, error) {
	return s.createFn(ctx, actor, in)
}

func (s *stubBugService) UpdateBug(ctx context.Context, actor ports.Actor, id string, in ports.UpdateBugInput) (*domain.Bug, error) {
	return s.updateFn(ctx, actor, id, in)
}

func (s *stubBugService) DeleteBug(ctx context.Context, actor ports.Actor, id string) error {
	return s.deleteFn(ctx, actor, id)
}

func (s *stubBugService) AddComment(ctx context.Context, actor ports.Actor, id, content string) (*domain.Comment, *domain.Bug, error) {
	return s.commentFn(ctx, actor, id, content)
}

func (s *stubBugService) Stats(ctx context.Context) (*domain.BugStats, error) {
	return s.statsFn(ctx)
}

func (s *stubBugService) Activity(ctx context.Context, id string) ([]*domain.Activity, error) {
	return s.activityFn(ctx, id)
}

type stubUserService struct {
	listFn      func(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error)
	getFn       func(ctx context.Context, id string) (*domain.User, error)
	updateFn    func(ctx context.Context, actor ports.Actor, id string, in ports.UpdateUserInput) (*domain.User, error)
	deleteFn    func(ctx context.Context, actor ports.Actor, id string) error
	assigneesFn func(ctx context.Context) ([]domain.UserRef, error)
}

func (s *stubUserService) ListUsers(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error) {
	return s.listFn(ctx, in)
}

func (s *stubUserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) UpdateUser(ctx context.Context, actor ports.Actor, id string, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, actor, id, in)
}

func (s *stubUserService) DeleteUser(ctx context.Context, actor ports.Actor, id string) error {
	return s.deleteFn(ctx, actor, id)
}

func (s *stubUserService) Assignees(ctx context.Context) ([]domain.UserRef, error) {
	return s.assigneesFn(ctx)
}

// newContext builds an echo context for method/target with an optional JSON
// body. A non-empty userID simulates the Auth middleware.
func newContext(method, target, body string, userID, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if userID != "" {
		c.Set(middleware.CtxUserID, userID)
		c.Set(middleware.CtxUsername, "alice")
		c.Set(middleware.CtxRole, role)
	}
	return c, rec
}

func httpStatus(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}
