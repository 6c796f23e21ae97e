package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/vigil-ai/vigil-backend/internal/domain"
)

// Specific errors for storage operations
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAPIKeyNotFound     = errors.New("api key not found")
	ErrLogNotFound        = errors.New("analysis log not found")
	ErrInvalidModel       = errors.New("model is not in the allowed set")
	ErrInvalidDelay       = errors.New("delay_seconds must be a positive integer")
)

// --- User Operations ---

// CreateUser inserts a new user.
func CreateUser(ctx context.Context, db *sql.DB, userId, username, email, passwordHash string) (string, error) {
	sqlStatement := `INSERT INTO users (user_id, username, email, password_hash) VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, sqlStatement, userId, username, email, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if strings.Contains(sqliteErr.Error(), "users.email") {
				return "", ErrEmailExists
			}
		}
		customLog.Warnf("Storage: Failed to insert user %s: %v", email, err)
		return "", fmt.Errorf("database error during user creation: %w", err)
	}

	return userId, nil
}

// FindUserByEmail retrieves a user by their email address.
func FindUserByEmail(ctx context.Context, db *sql.DB, email string) (*domain.User, error) {
	sqlStatement := `SELECT user_id, username, email, password_hash, created_at FROM users WHERE email = ? LIMIT 1`
	row := db.QueryRowContext(ctx, sqlStatement, email)

	var user domain.User
	err := row.Scan(&user.UserId, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		customLog.Warnf("Storage: Failed to find user by email %s: %v", email, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}

// FindUserByUserId retrieves a user by id.
func FindUserByUserId(ctx context.Context, db *sql.DB, userId string) (*domain.User, error) {
	sqlStatement := `SELECT user_id, username, email, password_hash, created_at FROM users WHERE user_id = ? LIMIT 1`
	row := db.QueryRowContext(ctx, sqlStatement, userId)

	var user domain.User
	err := row.Scan(&user.UserId, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		customLog.Warnf("Storage: Failed to find user by user_id %s: %v", userId, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}
