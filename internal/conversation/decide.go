// Package conversation implements the per-chat dialog for listing and
// creating goals.
package conversation

import (
	"github.com/m3rciful/goalbot/core/telegram/state"
	"github.com/m3rciful/goalbot/internal/domain"
)

// Action is what the executor must do for one inbound message.
type Action int

const (
	ActionUnknown Action = iota
	ActionCancel
	ActionListGoals
	ActionBeginCreate
	ActionMatchCategory
	ActionPromptGoal
	ActionRejectGoalTitle
	ActionCreateGoal
	ActionResetCorrupt
)

var actionNames = [...]string{
	ActionUnknown:         "unknown",
	ActionCancel:          "cancel",
	ActionListGoals:       "list_goals",
	ActionBeginCreate:     "begin_create",
	ActionMatchCategory:   "match_category",
	ActionPromptGoal:      "prompt_goal",
	ActionRejectGoalTitle: "reject_goal_title",
	ActionCreateGoal:      "create_goal",
	ActionResetCorrupt:    "reset_corrupt",
}

func (a Action) String() string {
	if int(a) >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "invalid"
}

// Decision is the outcome of Decide. Next is the session to persist when the
// action succeeds; Reply is set for actions that need no store access.
type Decision struct {
	Action Action
	Next   state.Session
	Reply  string
	// Input carries the category name or goal title.
	Input string
	// CategoryID is the pending category for ActionCreateGoal.
	CategoryID int64
}

// Decide maps the current session and message text to an action. It is pure:
// store lookups and writes are left to the executor.
func Decide(s state.Session, text string) Decision {
	if text == CmdCancel {
		return Decision{Action: ActionCancel, Next: state.Idle(), Reply: MsgCancelled}
	}

	switch {
	case s.IsIdle():
		switch text {
		case CmdGoals:
			return Decision{Action: ActionListGoals, Next: state.Idle()}
		case CmdCreate:
			return Decision{Action: ActionBeginCreate, Next: state.Session{State: state.StateAwaitingCategoryName}}
		}
		return Decision{Action: ActionUnknown, Next: state.Idle(), Reply: MsgUnknownCommand}

	case s.State == state.StateAwaitingCategoryName:
		return Decision{Action: ActionMatchCategory, Next: s, Input: text}

	case s.State == state.StateAwaitingGoalName:
		if s.PendingCategoryID == nil {
			return Decision{Action: ActionResetCorrupt, Next: state.Idle(), Reply: MsgFailure}
		}
		if text == "" {
			return Decision{Action: ActionPromptGoal, Next: s, Reply: MsgEnterGoalName}
		}
		if !domain.ValidGoalTitle(text) {
			return Decision{Action: ActionRejectGoalTitle, Next: s, Reply: MsgGoalTooLong}
		}
		return Decision{
			Action:     ActionCreateGoal,
			Next:       state.Idle(),
			Input:      text,
			CategoryID: *s.PendingCategoryID,
		}
	}

	return Decision{Action: ActionResetCorrupt, Next: state.Idle(), Reply: MsgFailure}
}
