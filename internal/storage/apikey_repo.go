package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vigil-ai/vigil-backend/internal/domain"
)

// --- API Key Operations ---

// StoreAPIKey persists a freshly generated credential. Only the bcrypt hash
// of the secret is stored; the caller holds the plaintext and must surface
// it exactly once.
func StoreAPIKey(ctx context.Context, db *sql.DB, key *domain.APIKey) (*domain.APIKey, error) {
	insertSQL := `INSERT INTO api_keys (prefix, hashed_secret, owner_id, name) VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, insertSQL, key.Prefix, key.HashedSecret, key.OwnerId, key.Name)
	if err != nil {
		customLog.Warnf("Storage: Failed to store API key for UserID %s: %v", key.OwnerId, err)
		return nil, fmt.Errorf("database error storing API key: %w", err)
	}

	stored, err := FindAPIKeyByPrefix(ctx, db, key.Prefix)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// FindAPIKeyByPrefix retrieves a key (revoked or not) by its public prefix.
// Revocation is checked at the auth boundary, not here.
func FindAPIKeyByPrefix(ctx context.Context, db *sql.DB, prefix string) (*domain.APIKey, error) {
	query := `SELECT prefix, hashed_secret, owner_id, name, revoked, created_at FROM api_keys WHERE prefix = ? LIMIT 1`
	row := db.QueryRowContext(ctx, query, prefix)

	var key domain.APIKey
	err := row.Scan(&key.Prefix, &key.HashedSecret, &key.OwnerId, &key.Name, &key.Revoked, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		customLog.Warnf("Storage: Error looking up API key by prefix '%s': %v", prefix, err)
		return nil, fmt.Errorf("database error finding API key: %w", err)
	}
	return &key, nil
}

// ListAPIKeys retrieves all non-revoked keys owned by a user.
func ListAPIKeys(ctx context.Context, db *sql.DB, userId string) ([]domain.APIKey, error) {
	query := `SELECT prefix, hashed_secret, owner_id, name, revoked, created_at FROM api_keys WHERE owner_id = ? AND revoked = 0 ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, userId)
	if err != nil {
		customLog.Warnf("Storage: Error listing API keys for UserID %s: %v", userId, err)
		return nil, fmt.Errorf("database error listing API keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		if err := rows.Scan(&key.Prefix, &key.HashedSecret, &key.OwnerId, &key.Name, &key.Revoked, &key.CreatedAt); err != nil {
			customLog.Warnf("Storage: Error scanning API key for UserID %s: %v", userId, err)
			return nil, fmt.Errorf("failed processing API key list: %w", err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		customLog.Warnf("Storage: Error iterating API key list for UserID %s: %v", userId, err)
		return nil, fmt.Errorf("failed reading API key list: %w", err)
	}

	if keys == nil {
		keys = make([]domain.APIKey, 0)
	}
	return keys, nil
}

// RevokeAPIKey soft-deletes a key. The row is kept so the prefix can never
// be reissued; authentication rejects revoked keys.
// Returns ErrAPIKeyNotFound if the prefix does not belong to the user.
func RevokeAPIKey(ctx context.Context, db *sql.DB, userId, prefix string) error {
	updateSQL := `UPDATE api_keys SET revoked = 1 WHERE prefix = ? AND owner_id = ?`
	result, err := db.ExecContext(ctx, updateSQL, prefix, userId)
	if err != nil {
		customLog.Warnf("Storage: Error revoking API key '%s' for UserID %s: %v", prefix, userId, err)
		return fmt.Errorf("database error revoking API key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		customLog.Warnf("Storage: Error getting RowsAffected for revoke of '%s': %v", prefix, err)
		return fmt.Errorf("failed confirming API key revocation: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}
