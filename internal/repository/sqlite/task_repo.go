// Package sqlite is the embedded task and user store. Timestamps are kept as
// INTEGER unix microseconds so due-date comparisons are numeric.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"todoapp/internal/model"
	"todoapp/internal/repository"
)

const taskColumns = `id, user_id, title, due_date, completed, created_at, updated_at`

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t                     model.Task
		due, created, updated int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &due, &t.Completed, &created, &updated); err != nil {
		return t, err
	}
	t.DueDate = fromMicros(due)
	t.CreatedAt = fromMicros(created)
	t.UpdatedAt = fromMicros(updated)
	return t, nil
}

type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewTaskRepository(db *sql.DB, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger, now: time.Now}
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	now := model.NormalizeTime(r.now())
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO todos (user_id, title, due_date, completed, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, t.UserID, t.Title, toMicros(t.DueDate), t.Completed, toMicros(now), toMicros(now))
	if err != nil {
		r.logger.Error("Failed to insert todo", zap.Error(err), zap.Int("user_id", t.UserID))
		return fmt.Errorf("insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	t.ID = int(id)
	t.CreatedAt = now
	t.UpdatedAt = now
	r.logger.Debug("Todo inserted", zap.Int("todo_id", t.ID), zap.Int("user_id", t.UserID))
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM todos WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("find todo %d: %w", id, err)
	}
	return &t, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int) ([]model.Task, error) {
	return r.list(ctx, "list",
		`SELECT `+taskColumns+` FROM todos WHERE user_id = ? ORDER BY id ASC`, userID)
}

func (r *TaskRepository) ListPendingDue(ctx context.Context, userID int, due model.DueRange) ([]model.Task, error) {
	args := []any{userID}
	conds := repository.DueConditions(due, func(t time.Time) string {
		args = append(args, toMicros(t))
		return "?"
	})
	where := append([]string{"user_id = ?", "completed = 0"}, conds...)
	query := `SELECT ` + taskColumns + ` FROM todos WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY due_date ASC, id ASC`
	return r.list(ctx, "list_pending", query, args...)
}

func (r *TaskRepository) ListCompleted(ctx context.Context, userID int) ([]model.Task, error) {
	return r.list(ctx, "list_completed",
		`SELECT `+taskColumns+` FROM todos WHERE user_id = ? AND completed = 1 ORDER BY id ASC`, userID)
}

func (r *TaskRepository) UpdateCompleted(ctx context.Context, id, userID int, completed bool) (*model.Task, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todos SET completed = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		completed, toMicros(model.NormalizeTime(r.now())), id, userID)
	if err != nil {
		return nil, fmt.Errorf("update todo %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update todo %d: %w", id, err)
	} else if n == 0 {
		return nil, model.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *TaskRepository) Delete(ctx context.Context, id, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *TaskRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query todos", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s todos: %w", op, err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%s todos: %w", op, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s todos: %w", op, err)
	}
	return tasks, nil
}
