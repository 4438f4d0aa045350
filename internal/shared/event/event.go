// Package event defines the message contracts shared between publishing
// modules and downstream consumers.
package event

const (
	UserFirstLoginDestination = "schoolhub.user.first-login"
	SchoolChangedDestination  = "schoolhub.school.changed"
)

// UserFirstLoginMessage announces an account created by a first successful
// sign-in.
type UserFirstLoginMessage struct {
	UserID int64  `json:"user_id,string"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// School change actions.
const (
	SchoolActionCreated = "created"
	SchoolActionUpdated = "updated"
	SchoolActionDeleted = "deleted"
)

// SchoolChangedMessage announces a mutation of a school record.
type SchoolChangedMessage struct {
	Action   string `json:"action"`
	SchoolID int64  `json:"school_id,string"`
	Name     string `json:"name"`
	ActorID  int64  `json:"actor_id,string"`
}
