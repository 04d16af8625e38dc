package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// SQLRepository stores users through database/sql using the pgx stdlib driver.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository wraps an open database handle.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	if db == nil {
		panic("users: sql db required")
	}
	return &SQLRepository{db: db}
}

// Create inserts user. A duplicate mobile number yields ErrUserExists.
func (r *SQLRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	query := `
		INSERT INTO users (id, name, mobile, password_hash, language, ai_updates)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Name,
		user.Mobile,
		user.PasswordHash,
		user.Language,
		user.AIUpdates,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("users: insert failed: %w", err)
	}
	return nil
}

const userColumns = `id, name, mobile, password_hash, language, ai_updates, created_at`

func (r *SQLRepository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Mobile,
		&u.PasswordHash,
		&u.Language,
		&u.AIUpdates,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("users: select failed: %w", err)
	}
	return &u, nil
}

// GetByID retrieves a user by ID
func (r *SQLRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByMobile retrieves a user by mobile number
func (r *SQLRepository) GetByMobile(ctx context.Context, mobile string) (*User, error) {
	return r.getOne(ctx, "mobile", mobile)
}

func (r *SQLRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.update(ctx, `UPDATE users SET name = $2 WHERE id = $1`, id, name)
}

func (r *SQLRepository) UpdatePreferences(ctx context.Context, id, language string, aiUpdates bool) error {
	return r.update(ctx, `UPDATE users SET language = $2, ai_updates = $3 WHERE id = $1`, id, language, aiUpdates)
}

func (r *SQLRepository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("users: update failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("users: update failed: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
