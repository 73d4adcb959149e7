package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coffeeshop-be/internal/logger"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	ToggleAdmin(ctx context.Context, id int64) (*User, error)
	ToggleActive(ctx context.Context, id int64) (*User, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, username, email, hashed_password, is_active, is_admin`

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func (r *repository) Create(ctx context.Context, u *User) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
	)

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (username, email, hashed_password, is_active, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, u.Username, u.Email, u.PasswordHash, u.IsActive, u.IsAdmin).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		log.Error("db: failed to insert user",
			zap.String("username", u.Username),
			zap.Error(err),
		)
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &u, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &u, nil
}

func (r *repository) ToggleAdmin(ctx context.Context, id int64) (*User, error) {
	return r.toggle(ctx, id, `UPDATE users SET is_admin = NOT is_admin WHERE id = $1 RETURNING `+userColumns)
}

func (r *repository) ToggleActive(ctx context.Context, id int64) (*User, error) {
	return r.toggle(ctx, id, `UPDATE users SET is_active = NOT is_active WHERE id = $1 RETURNING `+userColumns)
}

func (r *repository) toggle(ctx context.Context, id int64, query string) (*User, error) {
	var u User
	if err := r.db.QueryRowxContext(ctx, query, id).StructScan(&u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return &u, nil
}
