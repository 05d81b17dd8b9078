package handler

import (
	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// loginRequest accepts a username or an email in Username.
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type googleLoginResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

type googleCallbackRequest struct {
	Code  string `query:"code"  validate:"required"`
	State string `query:"state" validate:"required"`
}

// --- Bugs ---

type listBugsRequest struct {
	Status   string `query:"status"`
	Priority string `query:"priority"`
	Assignee string `query:"assignee"`
	Search   string `query:"search"`
	Page     int    `query:"page"     validate:"gte=0"`
	PerPage  int    `query:"per_page" validate:"gte=0"`
}

type createBugRequest struct {
	Title            string   `json:"title"       validate:"required"`
	Description      string   `json:"description" validate:"required"`
	Priority         string   `json:"priority"`
	Status           string   `json:"status"`
	Assignee         string   `json:"assignee"`
	Tags             []string `json:"tags"`
	StepsToReproduce string   `json:"steps_to_reproduce"`
	ExpectedBehavior string   `json:"expected_behavior"`
	Environment      string   `json:"environment"`
}

func (r createBugRequest) toInput() ports.CreateBugInput {
	return ports.CreateBugInput{
		Title:            r.Title,
		Description:      r.Description,
		Priority:         r.Priority,
		Status:           r.Status,
		Assignee:         r.Assignee,
		Tags:             r.Tags,
		StepsToReproduce: r.StepsToReproduce,
		ExpectedBehavior: r.ExpectedBehavior,
		Environment:      r.Environment,
	}
}

// updateBugRequest distinguishes absent fields (nil) from empty ones.
type updateBugRequest struct {
	Title            *string   `json:"title"`
	Description      *string   `json:"description"`
	Priority         *string   `json:"priority"`
	Status           *string   `json:"status"`
	Assignee         *string   `json:"assignee"`
	Tags             *[]string `json:"tags"`
	StepsToReproduce *string   `json:"steps_to_reproduce"`
	ExpectedBehavior *string   `json:"expected_behavior"`
	Environment      *string   `json:"environment"`
}

func (r updateBugRequest) toInput() ports.UpdateBugInput {
	return ports.UpdateBugInput{
		Title:            r.Title,
		Description:      r.Description,
		Priority:         r.Priority,
		Status:           r.Status,
		Assignee:         r.Assignee,
		Tags:             r.Tags,
		StepsToReproduce: r.StepsToReproduce,
		ExpectedBehavior: r.ExpectedBehavior,
		Environment:      r.Environment,
	}
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

type bugResponse struct {
	Message string      `json:"message"`
	Bug     *domain.Bug `json:"bug"`
}

type commentResponse struct {
	Message string          `json:"message"`
	Comment *domain.Comment `json:"comment"`
	Bug     *domain.Bug     `json:"bug"`
}

type activityResponse struct {
	Activity []*domain.Activity `json:"activity"`
}

// --- Users ---

type listUsersRequest struct {
	Search  string `query:"search"`
	Page    int    `query:"page"     validate:"gte=0"`
	PerPage int    `query:"per_page" validate:"gte=0"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type assigneesResponse struct {
	Assignees []domain.UserRef `json:"assignees"`
}
