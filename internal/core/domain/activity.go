package domain

import "time"

// ActivityAction names a mutation recorded in a bug's audit trail.
type ActivityAction string

const (
	ActionCreated   ActivityAction = "created"
	ActionUpdated   ActivityAction = "updated"
	ActionCommented ActivityAction = "commented"
	ActionDeleted   ActivityAction = "deleted"
)

// Activity is one entry of the bug_activity audit collection.
type Activity struct {
	ID     string         `json:"id"`
	BugID  string         `json:"bug_id"`
	Action ActivityAction `json:"action"`
	Actor  UserRef        `json:"actor"`
	// Changes lists the fields touched by an update, empty for other actions.
	Changes []string  `json:"changes,omitempty"`
	At      time.Time `json:"at"`
}
