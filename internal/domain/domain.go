// Package domain holds the records the bot reads and writes.
package domain

import "unicode/utf8"

// MaxGoalTitleLength mirrors goals.title VARCHAR(200).
const MaxGoalTitleLength = 200

// GoalStatus is the lifecycle stage of a goal.
type GoalStatus int

const (
	GoalStatusTodo       GoalStatus = 1
	GoalStatusInProgress GoalStatus = 2
	GoalStatusDone       GoalStatus = 3
	GoalStatusArchived   GoalStatus = 4
)

// GoalPriority orders goals within a category.
type GoalPriority int

const (
	GoalPriorityLow      GoalPriority = 1
	GoalPriorityMedium   GoalPriority = 2
	GoalPriorityHigh     GoalPriority = 3
	GoalPriorityCritical GoalPriority = 4
)

// Item is the id/title pair shown in chat listings.
type Item struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
}

// Goal is a created goal row.
type Goal struct {
	ID         int64        `db:"id"`
	Title      string       `db:"title"`
	CategoryID int64        `db:"category_id"`
	UserID     int64        `db:"user_id"`
	Status     GoalStatus   `db:"status"`
	Priority   GoalPriority `db:"priority"`
}

// ValidGoalTitle reports whether title fits the goals table.
func ValidGoalTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	return n > 0 && n <= MaxGoalTitleLength
}

// ChatIdentity binds a Telegram chat to an application account.
type ChatIdentity struct {
	ID               int64   `db:"id"`
	ChatID           int64   `db:"chat_id"`
	Username         *string `db:"username"`
	VerificationCode *string `db:"verification_code"`
	AccountID        *int64  `db:"user_id"`
}

// Linked reports whether the chat is bound to an account.
func (c ChatIdentity) Linked() bool {
	return c.AccountID != nil
}
