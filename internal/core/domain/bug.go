package domain

import "time"

// BugStatus represents where a bug is in its triage lifecycle.
type BugStatus string

const (
	StatusOpen       BugStatus = "open"
	StatusInProgress BugStatus = "in_progress"
	StatusResolved   BugStatus = "resolved"
	StatusClosed     BugStatus = "closed"
)

// BugStatuses lists every status in display order.
var BugStatuses = []BugStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether s is one of the known statuses.
func (s BugStatus) Valid() bool {
	for _, known := range BugStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// BugPriority ranks how urgently a bug needs attention.
type BugPriority string

const (
	PriorityLow      BugPriority = "low"
	PriorityMedium   BugPriority = "medium"
	PriorityHigh     BugPriority = "high"
	PriorityCritical BugPriority = "critical"
)

// BugPriorities lists every priority from least to most urgent.
var BugPriorities = []BugPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p BugPriority) Valid() bool {
	for _, known := range BugPriorities {
		if p == known {
			return true
		}
	}
	return false
}

// Rank orders priorities from 0 (low) to 3 (critical); unknown values rank -1.
func (p BugPriority) Rank() int {
	for i, known := range BugPriorities {
		if p == known {
			return i
		}
	}
	return -1
}

const (
	TitleMinLength       = 5
	TitleMaxLength       = 200
	DescriptionMinLength = 10
	CommentMinLength     = 5
)

// UserRef is the denormalised reference to a user embedded in bugs and comments.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Comment is an append-only note on a bug.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    *UserRef  `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Bug is the core aggregate root.
type Bug struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Status           BugStatus   `json:"status"`
	Priority         BugPriority `json:"priority"`
	Reporter         *UserRef    `json:"reporter"`
	Assignee         *UserRef    `json:"assignee"`
	Tags             []string    `json:"tags"`
	StepsToReproduce string      `json:"steps_to_reproduce,omitempty"`
	ExpectedBehavior string      `json:"expected_behavior,omitempty"`
	Environment      string      `json:"environment,omitempty"`
	Comments         []Comment   `json:"comments"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// StatusCounts holds the number of bugs per status.
type StatusCounts struct {
	Open       int64 `json:"open"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
}

// PriorityCounts holds the number of bugs per priority.
type PriorityCounts struct {
	Low      int64 `json:"low"`
	Medium   int64 `json:"medium"`
	High     int64 `json:"high"`
	Critical int64 `json:"critical"`
}

// BugStats is the dashboard aggregate over the whole bug collection.
type BugStats struct {
	TotalBugs      int64          `json:"totalBugs"`
	StatusCounts   StatusCounts   `json:"statusCounts"`
	PriorityCounts PriorityCounts `json:"priorityCounts"`
}

// AddStatus increments the counter matching s. Unknown statuses are ignored.
func (c *StatusCounts) AddStatus(s BugStatus, n int64) {
	switch s {
	case StatusOpen:
		c.Open += n
	case StatusInProgress:
		c.InProgress += n
	case StatusResolved:
		c.Resolved += n
	case StatusClosed:
		c.Closed += n
	}
}

// AddPriority increments the counter matching p. Unknown priorities are ignored.
func (c *PriorityCounts) AddPriority(p BugPriority, n int64) {
	switch p {
	case PriorityLow:
		c.Low += n
	case PriorityMedium:
		c.Medium += n
	case PriorityHigh:
		c.High += n
	case PriorityCritical:
		c.Critical += n
	}
}
