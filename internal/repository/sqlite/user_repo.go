package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todoapp/internal/model"
)

type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	now := model.NormalizeTime(r.now())
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO users (first_name, last_name, email, password_hash, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, u.FirstName, u.LastName, u.Email, u.PasswordHash, toMicros(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return model.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = int(id)
	u.CreatedAt = now
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `WHERE email = ?`, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u       model.User
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, password_hash, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.CreatedAt = fromMicros(created)
	return &u, nil
}
