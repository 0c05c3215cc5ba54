package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/usergraph/usergraph/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// ListUsers returns every user row. Ordered by id so repeated calls
// produce stable output.
func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, name, email, created_at
		FROM users
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}

	return users, nil
}

// GetUserByName retrieves a user by exact name match.
// Names are not unique; the lowest id wins so the result is deterministic.
func (r *Repository) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	query := `
		SELECT id, name, email, created_at
		FROM users
		WHERE name = $1
		ORDER BY id
		LIMIT 1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}

	return &user, nil
}

// ConfirmEmail looks up an email by exact match and returns the stored
// value. The lookup is intentionally a full round trip to the database
// rather than a local echo of the argument: callers rely on the store
// confirming the row exists.
func (r *Repository) ConfirmEmail(ctx context.Context, email string) (string, error) {
	query := `
		SELECT email
		FROM users
		WHERE email = $1
		ORDER BY id
		LIMIT 1
	`

	var stored string
	err := r.pool.QueryRow(ctx, query, email).Scan(&stored)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to confirm email: %w", err)
	}

	return stored, nil
}

// CreateUser inserts a new user and returns the full inserted row. The
// id and created_at come back from the RETURNING clause so no second
// read is needed. A duplicate email maps to ErrEmailExists; uniqueness
// is enforced by the database, never pre-checked here.
func (r *Repository) CreateUser(ctx context.Context, name, email string) (*model.User, error) {
	query := `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING id, name, email, created_at
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, name, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
