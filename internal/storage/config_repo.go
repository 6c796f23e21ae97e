package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vigil-ai/vigil-backend/internal/domain"
	"github.com/vigil-ai/vigil-backend/internal/vision"
)

// --- Device Configuration Operations ---

// ConfigUpdate is a partial update of a device configuration. Nil fields
// are left untouched.
type ConfigUpdate struct {
	FlashEnabled  *bool
	DelaySeconds  *int
	DefaultModel  *string
	PromptContext *string
}

// GetOrCreateDeviceConfig returns the configuration for a key, creating it
// with defaults on first access. Idempotent: repeated calls return the same
// persisted row.
func GetOrCreateDeviceConfig(ctx context.Context, db *sql.DB, keyPrefix string) (*domain.DeviceConfiguration, error) {
	cfg, err := findDeviceConfig(ctx, db, keyPrefix)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		customLog.Warnf("Storage: Error looking up device config for key '%s': %v", keyPrefix, err)
		return nil, fmt.Errorf("database error finding device config: %w", err)
	}

	insertSQL := `INSERT INTO device_configs (key_prefix) VALUES (?)`
	if _, err := db.ExecContext(ctx, insertSQL, keyPrefix); err != nil {
		// A concurrent first read may have inserted the row already; the
		// primary key makes the second insert fail, so re-read.
		if cfg, readErr := findDeviceConfig(ctx, db, keyPrefix); readErr == nil {
			return cfg, nil
		}
		customLog.Warnf("Storage: Failed to create device config for key '%s': %v", keyPrefix, err)
		return nil, fmt.Errorf("database error creating device config: %w", err)
	}

	return findDeviceConfigWrapped(ctx, db, keyPrefix)
}

// UpdateDeviceConfig applies a partial update and stamps updated_at.
// Out-of-enum models and non-positive delays are rejected.
func UpdateDeviceConfig(ctx context.Context, db *sql.DB, keyPrefix string, update ConfigUpdate) (*domain.DeviceConfiguration, error) {
	if update.DelaySeconds != nil && *update.DelaySeconds <= 0 {
		return nil, ErrInvalidDelay
	}
	if update.DefaultModel != nil && !vision.IsValidModel(*update.DefaultModel) {
		return nil, ErrInvalidModel
	}

	// Ensure the row exists before updating (lazy creation semantics apply
	// to updates of never-read configs too).
	current, err := GetOrCreateDeviceConfig(ctx, db, keyPrefix)
	if err != nil {
		return nil, err
	}

	flash := current.FlashEnabled
	if update.FlashEnabled != nil {
		flash = *update.FlashEnabled
	}
	delay := current.DelaySeconds
	if update.DelaySeconds != nil {
		delay = *update.DelaySeconds
	}
	model := current.DefaultModel
	if update.DefaultModel != nil {
		model = *update.DefaultModel
	}
	prompt := current.PromptContext
	if update.PromptContext != nil {
		prompt = *update.PromptContext
	}

	updateSQL := `UPDATE device_configs SET flash_enabled = ?, delay_seconds = ?, default_model = ?, prompt_context = ?, updated_at = CURRENT_TIMESTAMP WHERE key_prefix = ?`
	if _, err := db.ExecContext(ctx, updateSQL, flash, delay, model, prompt, keyPrefix); err != nil {
		customLog.Warnf("Storage: Failed to update device config for key '%s': %v", keyPrefix, err)
		return nil, fmt.Errorf("database error updating device config: %w", err)
	}

	return findDeviceConfigWrapped(ctx, db, keyPrefix)
}

func findDeviceConfig(ctx context.Context, db *sql.DB, keyPrefix string) (*domain.DeviceConfiguration, error) {
	query := `SELECT key_prefix, flash_enabled, delay_seconds, default_model, prompt_context, updated_at FROM device_configs WHERE key_prefix = ? LIMIT 1`
	row := db.QueryRowContext(ctx, query, keyPrefix)

	var cfg domain.DeviceConfiguration
	err := row.Scan(&cfg.KeyPrefix, &cfg.FlashEnabled, &cfg.DelaySeconds, &cfg.DefaultModel, &cfg.PromptContext, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findDeviceConfigWrapped(ctx context.Context, db *sql.DB, keyPrefix string) (*domain.DeviceConfiguration, error) {
	cfg, err := findDeviceConfig(ctx, db, keyPrefix)
	if err != nil {
		customLog.Warnf("Storage: Error reading back device config for key '%s': %v", keyPrefix, err)
		return nil, fmt.Errorf("database error reading device config: %w", err)
	}
	return cfg, nil
}
