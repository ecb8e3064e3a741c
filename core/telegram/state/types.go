package state

import (
	"context"
	"errors"
)

// State identifies a conversation step.
type State string

const (
	// StateIdle indicates there is no active conversation with the chat.
	StateIdle State = "idle"
	// StateAwaitingCategoryName waits for the category a new goal goes into.
	StateAwaitingCategoryName State = "awaiting_category_name"
	// StateAwaitingGoalName waits for the title of the goal to create.
	StateAwaitingGoalName State = "awaiting_goal_name"
)

// ErrCorruptSession is returned by stores when a persisted record cannot be decoded.
var ErrCorruptSession = errors.New("state: corrupt session record")

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateAwaitingCategoryName, StateAwaitingGoalName:
		return true
	}
	return false
}

// Session is the conversation record of one chat.
type Session struct {
	State State `json:"state"`
	// PendingCategoryID is set only while State is StateAwaitingGoalName.
	PendingCategoryID *int64 `json:"pending_category_id,omitempty"`
}

// Idle returns the record of a chat with no active conversation.
func Idle() Session {
	return Session{State: StateIdle}
}

// IsIdle reports whether the session carries no conversation.
func (s Session) IsIdle() bool {
	return s.State == "" || s.State == StateIdle
}

// AwaitingGoal returns the record for a chat that picked categoryID.
func AwaitingGoal(categoryID int64) Session {
	id := categoryID
	return Session{State: StateAwaitingGoalName, PendingCategoryID: &id}
}

// Store persists sessions keyed by chat id. Get returns Idle() for unknown
// chats; Set with an idle session is equivalent to Clear.
type Store interface {
	Get(ctx context.Context, chatID int64) (Session, error)
	Set(ctx context.Context, chatID int64, s Session) error
	Clear(ctx context.Context, chatID int64) error
}
