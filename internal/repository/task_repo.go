package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"todoapp/internal/model"
)

const taskColumns = `id, user_id, title, due_date, completed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.DueDate,
		&t.Completed,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	t.DueDate = t.DueDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, err
}

// TaskRepository is the PostgreSQL task store.
type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting todo",
		zap.Int("user_id", t.UserID),
		zap.String("title", t.Title),
		zap.Time("due_date", t.DueDate),
	)
	query := `
        INSERT INTO todos (user_id, title, due_date, completed)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		t.UserID,
		t.Title,
		t.DueDate,
		t.Completed,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert todo",
			zap.Error(err),
			zap.Int("user_id", t.UserID),
		)
		return fmt.Errorf("insert todo: %w", err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	r.logger.Info("Todo inserted successfully",
		zap.Int("todo_id", t.ID),
		zap.Int("user_id", t.UserID),
	)
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM todos WHERE id = $1`
	t, err := scanTask(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("find todo %d: %w", id, err)
	}
	return &t, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int) ([]model.Task, error) {
	r.logger.Debug("Listing todos for user", zap.Int("user_id", userID))
	query := `
        SELECT ` + taskColumns + `
        FROM todos
        WHERE user_id = $1
        ORDER BY id ASC
    `
	return r.list(ctx, "list", query, userID)
}

func (r *TaskRepository) ListPendingDue(ctx context.Context, userID int, due model.DueRange) ([]model.Task, error) {
	args := []any{userID}
	conds := DueConditions(due, func(t time.Time) string {
		args = append(args, t)
		return fmt.Sprintf("$%d", len(args))
	})
	where := append([]string{"user_id = $1", "completed = FALSE"}, conds...)
	query := `
        SELECT ` + taskColumns + `
        FROM todos
        WHERE ` + strings.Join(where, " AND ") + `
        ORDER BY due_date ASC, id ASC
    `
	return r.list(ctx, "list_pending", query, args...)
}

func (r *TaskRepository) ListCompleted(ctx context.Context, userID int) ([]model.Task, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM todos
        WHERE user_id = $1 AND completed = TRUE
        ORDER BY id ASC
    `
	return r.list(ctx, "list_completed", query, userID)
}

// UpdateCompleted sets the flag on a row that is still owned by userID.
func (r *TaskRepository) UpdateCompleted(ctx context.Context, id, userID int, completed bool) (*model.Task, error) {
	query := `
        UPDATE todos
        SET completed = $1, updated_at = NOW()
        WHERE id = $2 AND user_id = $3
        RETURNING ` + taskColumns
	t, err := scanTask(r.db.QueryRow(ctx, query, completed, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		r.logger.Error("Failed to update todo completion",
			zap.Error(err),
			zap.Int("todo_id", id),
		)
		return nil, fmt.Errorf("update todo %d: %w", id, err)
	}
	r.logger.Info("Todo completion updated",
		zap.Int("todo_id", id),
		zap.Bool("completed", completed),
	)
	return &t, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, userID int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete todo",
			zap.Error(err),
			zap.Int("todo_id", id),
		)
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	r.logger.Info("Todo deleted", zap.Int("todo_id", id), zap.Int("user_id", userID))
	return nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *TaskRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query todos", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s todos: %w", op, err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Failed to scan todo row", zap.String("op", op), zap.Error(err))
			return nil, fmt.Errorf("%s todos: %w", op, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s todos: %w", op, err)
	}
	return tasks, nil
}
