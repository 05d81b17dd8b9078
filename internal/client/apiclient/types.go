package apiclient

import "time"

// User is the account record returned by the service.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	AuthProvider string    `json:"auth_provider,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    *UserRef  `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Bug is a bug record. DescriptionHTML is only filled by Bugs.Get.
type Bug struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DescriptionHTML  string    `json:"description_html,omitempty"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority"`
	Reporter         *UserRef  `json:"reporter"`
	Assignee         *UserRef  `json:"assignee"`
	Tags             []string  `json:"tags"`
	StepsToReproduce string    `json:"steps_to_reproduce,omitempty"`
	ExpectedBehavior string    `json:"expected_behavior,omitempty"`
	Environment      string    `json:"environment,omitempty"`
	Comments         []Comment `json:"comments"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

type BugList struct {
	Bugs       []*Bug     `json:"bugs"`
	Pagination Pagination `json:"pagination"`
}

type UserList struct {
	Users      []*User    `json:"users"`
	Pagination Pagination `json:"pagination"`
}

type BugStats struct {
	TotalBugs    int64 `json:"totalBugs"`
	StatusCounts struct {
		Open       int64 `json:"open"`
		InProgress int64 `json:"inProgress"`
		Resolved   int64 `json:"resolved"`
		Closed     int64 `json:"closed"`
	} `json:"statusCounts"`
	PriorityCounts struct {
		Low      int64 `json:"low"`
		Medium   int64 `json:"medium"`
		High     int64 `json:"high"`
		Critical int64 `json:"critical"`
	} `json:"priorityCounts"`
}

type Activity struct {
	ID      string    `json:"id"`
	BugID   string    `json:"bug_id"`
	Action  string    `json:"action"`
	Actor   UserRef   `json:"actor"`
	Changes []string  `json:"changes,omitempty"`
	At      time.Time `json:"at"`
}

// AuthResponse is returned by login, register and the Google callback.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type GoogleLogin struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// LoginRequest accepts a username or an email in Username.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// BugDraft is the body of a create request.
type BugDraft struct {
	Title            string   `json:"title"                        validate:"required,min=5,max=200"`
	Description      string   `json:"description"                  validate:"required,min=10"`
	Priority         string   `json:"priority,omitempty"           validate:"omitempty,oneof=low medium high critical"`
	Status           string   `json:"status,omitempty"             validate:"omitempty,oneof=open in_progress resolved closed"`
	Assignee         string   `json:"assignee,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	StepsToReproduce string   `json:"steps_to_reproduce,omitempty"`
	ExpectedBehavior string   `json:"expected_behavior,omitempty"`
	Environment      string   `json:"environment,omitempty"`
}

// BugPatch is a partial update. Nil fields are not sent; an empty Assignee
// unassigns.
type BugPatch struct {
	Title            *string   `json:"title,omitempty"              validate:"omitempty,min=5,max=200"`
	Description      *string   `json:"description,omitempty"        validate:"omitempty,min=10"`
	Priority         *string   `json:"priority,omitempty"           validate:"omitempty,oneof=low medium high critical"`
	Status           *string   `json:"status,omitempty"             validate:"omitempty,oneof=open in_progress resolved closed"`
	Assignee         *string   `json:"assignee,omitempty"`
	Tags             *[]string `json:"tags,omitempty"`
	StepsToReproduce *string   `json:"steps_to_reproduce,omitempty"`
	ExpectedBehavior *string   `json:"expected_behavior,omitempty"`
	Environment      *string   `json:"environment,omitempty"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,min=5"`
}

// CommentResult carries the new comment and the bug as stored after it.
type CommentResult struct {
	Message string   `json:"message"`
	Comment *Comment `json:"comment"`
	Bug     *Bug     `json:"bug"`
}

type UserPatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}
