package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/goalbot/core/logger"
	tghelpers "github.com/m3rciful/goalbot/core/telegram/helpers"
	"github.com/m3rciful/goalbot/core/telegram/state"
	"github.com/m3rciful/goalbot/internal/domain"
)

// GoalStore is the domain store the dialog reads and writes.
type GoalStore interface {
	ListGoals(ctx context.Context, accountID int64) ([]domain.Item, error)
	ListCategories(ctx context.Context, accountID int64) ([]domain.Item, error)
	CreateGoal(ctx context.Context, accountID, categoryID int64, title string) (domain.Goal, error)
}

// Notifier delivers best-effort chat messages.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string)
}

// Machine applies Decide results against the session and goal stores.
type Machine struct {
	sessions state.Store
	goals    GoalStore
	notify   Notifier
}

// NewMachine wires the executor.
func NewMachine(sessions state.Store, goals GoalStore, notify Notifier) *Machine {
	return &Machine{sessions: sessions, goals: goals, notify: notify}
}

// Handle processes one message of a linked chat. Every path sends a reply;
// the returned error only reports store failures for logging.
func (m *Machine) Handle(ctx context.Context, chatID, accountID int64, text string) error {
	sess, err := m.sessions.Get(ctx, chatID)
	if errors.Is(err, state.ErrCorruptSession) {
		logger.Warn(ctx, "conversation", "session.corrupt", slog.Int64("chat_id", chatID))
		return m.reset(ctx, chatID, MsgFailure, err)
	}
	if err != nil {
		m.notify.Send(ctx, chatID, MsgFailure)
		return fmt.Errorf("conversation: load session: %w", err)
	}

	d := Decide(sess, text)
	logger.Debug(ctx, "conversation", "conversation.decide",
		slog.String("state", string(sess.State)),
		slog.String("action", d.Action.String()),
		slog.String("next_state", string(d.Next.State)),
	)

	switch d.Action {
	case ActionCancel:
		tghelpers.SetOutcome(ctx, "cancelled")
		return m.reset(ctx, chatID, d.Reply, nil)

	case ActionResetCorrupt:
		logger.Warn(ctx, "conversation", "session.corrupt",
			slog.Int64("chat_id", chatID),
			slog.String("state", string(sess.State)),
		)
		return m.reset(ctx, chatID, d.Reply, nil)

	case ActionListGoals:
		return m.listGoals(ctx, chatID, accountID)

	case ActionBeginCreate:
		return m.beginCreate(ctx, chatID, accountID, d.Next)

	case ActionMatchCategory:
		return m.matchCategory(ctx, chatID, accountID, d.Input)

	case ActionCreateGoal:
		return m.createGoal(ctx, chatID, accountID, d.CategoryID, d.Input)
	}

	m.notify.Send(ctx, chatID, d.Reply)
	return nil
}

func (m *Machine) reset(ctx context.Context, chatID int64, reply string, cause error) error {
	if err := m.sessions.Clear(ctx, chatID); err != nil {
		m.notify.Send(ctx, chatID, MsgFailure)
		return fmt.Errorf("conversation: clear session: %w", err)
	}
	m.notify.Send(ctx, chatID, reply)
	return cause
}

func (m *Machine) listGoals(ctx context.Context, chatID, accountID int64) error {
	goals, err := m.goals.ListGoals(ctx, accountID)
	if err != nil {
		m.notify.Send(ctx, chatID, MsgFailure)
		return fmt.Errorf("conversation: list goals: %w", err)
	}
	if len(goals) == 0 {
		m.notify.Send(ctx, chatID, MsgNoGoals)
		return nil
	}
	for _, msg := range formatItems(goals) {
		m.notify.Send(ctx, chatID, msg)
	}
	return nil
}

func (m *Machine) beginCreate(ctx context.Context, chatID, accountID int64, next state.Session) error {
	categories, err := m.goals.ListCategories(ctx, accountID)
	if err != nil {
		m.notify.Send(ctx, chatID, MsgFailure)
		return fmt.Errorf("conversation: list categories: %w", err)
	}
	if err := m.sessions.Set(ctx, chatID, next); err != nil {
		m.notify.Send(ctx, chatID, MsgFailure)
		return fmt.Errorf("conversation: save session: %w", err)
	}

	m.notify.Send(ctx, chatID, MsgChooseCategory)
	if len(categories) == 0 {
		m.notify.Send(ctx, chatID, MsgNoCategories)
		return nil
	}
	for _, msg := range formatItems(categories) {
		m.notify.Send(ctx, chatID, msg)
	}
	return nil
}

func (m *Machine) matchCategory(ctx context.Context, chatID, accountID int64, name string) error {
	categories, err := m.goals.ListCategories(ctx, accountID)
	if err != nil {
		m.notify.Send(ctx, chatID, MsgFailure)
		return fmt.Errorf("conversation: list categories: %w", err)
	}
	category, ok := matchCategory(categories, name)
	if !ok {
		m.notify.Send(ctx, chatID, MsgInvalidCategory)
		return nil
	}
	if err := m.sessions.Set(ctx, chatID, state.AwaitingGoal(category.ID)); err != nil {
		m.notify.Send(ctx, chatID, MsgFailure)
		return fmt.Errorf("conversation: save session: %w", err)
	}
	logger.Debug(ctx, "conversation", "category.matched", slog.Int64("category_id", category.ID))
	m.notify.Send(ctx, chatID, MsgEnterGoalName)
	return nil
}

func (m *Machine) createGoal(ctx context.Context, chatID, accountID, categoryID int64, title string) error {
	_, createErr := m.goals.CreateGoal(ctx, accountID, categoryID, title)
	if createErr != nil {
		// Reset so the chat is not stuck waiting for a goal name.
		return m.reset(ctx, chatID, MsgFailure, fmt.Errorf("conversation: create goal: %w", createErr))
	}
	return m.reset(ctx, chatID, MsgGoalCreated, nil)
}
