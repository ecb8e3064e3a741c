package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/internal/domain"
)

const (
	listGoalsQuery = `SELECT g.id, g.title
FROM goals g
JOIN goal_categories c ON c.id = g.category_id
JOIN board_participants p ON p.board_id = c.board_id
WHERE p.user_id = ? AND g.status <> ? AND c.is_deleted = FALSE
ORDER BY g.id`

	listCategoriesQuery = `SELECT c.id, c.title
FROM goal_categories c
JOIN board_participants p ON p.board_id = c.board_id
WHERE p.user_id = ? AND c.is_deleted = FALSE
ORDER BY c.id`

	createGoalQuery = `INSERT INTO goals (title, category_id, user_id, status, priority)
VALUES (?, ?, ?, ?, ?)
RETURNING id`
)

// GoalRepository reads and writes goals and categories for a linked account.
type GoalRepository struct {
	db *sqlx.DB
}

// NewGoalRepository binds the repository to db.
func NewGoalRepository(db *sqlx.DB) (*GoalRepository, error) {
	if err := requireDB(db); err != nil {
		return nil, err
	}
	return &GoalRepository{db: db}, nil
}

// ListGoals returns the account's non-archived goals in non-deleted categories
// of boards it participates in, ordered by id.
func (r *GoalRepository) ListGoals(ctx context.Context, accountID int64) ([]domain.Item, error) {
	start := time.Now()
	var items []domain.Item
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(listGoalsQuery), accountID, domain.GoalStatusArchived); err != nil {
		return nil, fmt.Errorf("storage: list goals: %w", err)
	}
	logger.Debug(ctx, "service.goals", "goals.list",
		slog.Int64("account_id", accountID),
		slog.Int("count", len(items)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return items, nil
}

// ListCategories returns the account's non-deleted categories on participated
// boards, ordered by id.
func (r *GoalRepository) ListCategories(ctx context.Context, accountID int64) ([]domain.Item, error) {
	var items []domain.Item
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(listCategoriesQuery), accountID); err != nil {
		return nil, fmt.Errorf("storage: list categories: %w", err)
	}
	return items, nil
}

// CreateGoal inserts a todo goal owned by accountID under categoryID.
func (r *GoalRepository) CreateGoal(ctx context.Context, accountID, categoryID int64, title string) (domain.Goal, error) {
	title = strings.TrimSpace(title)
	if !domain.ValidGoalTitle(title) {
		return domain.Goal{}, fmt.Errorf("storage: create goal: invalid title length")
	}
	goal := domain.Goal{
		Title:      title,
		CategoryID: categoryID,
		UserID:     accountID,
		Status:     domain.GoalStatusTodo,
		Priority:   domain.GoalPriorityLow,
	}
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(createGoalQuery),
		goal.Title, goal.CategoryID, goal.UserID, goal.Status, goal.Priority,
	).Scan(&goal.ID)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("storage: create goal: %w", err)
	}
	logger.Info(ctx, "service.goals", "goal.created",
		slog.Int64("account_id", accountID),
		slog.Int64("category_id", categoryID),
		slog.Int64("goal_id", goal.ID),
	)
	return goal, nil
}
