package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vigil-ai/vigil-backend/internal/domain"
)

// --- Analysis Log Operations ---

// CreateAnalysisLog inserts a new log record with its description unset.
func CreateAnalysisLog(ctx context.Context, db *sql.DB, log *domain.AnalysisLog) (*domain.AnalysisLog, error) {
	insertSQL := `INSERT INTO analysis_logs (id, owner_id, image1_path, image2_path, model_used) VALUES (?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, insertSQL, log.Id, log.OwnerId, log.Image1Path, log.Image2Path, log.ModelUsed)
	if err != nil {
		customLog.Warnf("Storage: Failed to insert analysis log for UserID %s: %v", log.OwnerId, err)
		return nil, fmt.Errorf("database error creating analysis log: %w", err)
	}

	return FindAnalysisLog(ctx, db, log.Id)
}

// SetAnalysisLogDescription stores the generated description on a log.
// The record is immutable afterwards except for deletion.
func SetAnalysisLogDescription(ctx context.Context, db *sql.DB, logId, description string) error {
	updateSQL := `UPDATE analysis_logs SET description = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, updateSQL, description, logId)
	if err != nil {
		customLog.Warnf("Storage: Failed to set description on log %s: %v", logId, err)
		return fmt.Errorf("database error updating analysis log: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming analysis log update: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLogNotFound
	}
	return nil
}

// FindAnalysisLog retrieves a log by id.
func FindAnalysisLog(ctx context.Context, db *sql.DB, logId string) (*domain.AnalysisLog, error) {
	query := `SELECT id, owner_id, image1_path, image2_path, model_used, description, created_at FROM analysis_logs WHERE id = ? LIMIT 1`
	row := db.QueryRowContext(ctx, query, logId)

	var log domain.AnalysisLog
	err := row.Scan(&log.Id, &log.OwnerId, &log.Image1Path, &log.Image2Path, &log.ModelUsed, &log.Description, &log.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		customLog.Warnf("Storage: Error finding analysis log %s: %v", logId, err)
		return nil, fmt.Errorf("database error finding analysis log: %w", err)
	}
	return &log, nil
}

// ListAnalysisLogs retrieves a page of a user's logs, newest first.
func ListAnalysisLogs(ctx context.Context, db *sql.DB, userId string, limit, offset int) ([]domain.AnalysisLog, error) {
	query := `SELECT id, owner_id, image1_path, image2_path, model_used, description, created_at FROM analysis_logs WHERE owner_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, userId, limit, offset)
	if err != nil {
		customLog.Warnf("Storage: Error listing analysis logs for UserID %s: %v", userId, err)
		return nil, fmt.Errorf("database error listing analysis logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AnalysisLog
	for rows.Next() {
		var log domain.AnalysisLog
		if err := rows.Scan(&log.Id, &log.OwnerId, &log.Image1Path, &log.Image2Path, &log.ModelUsed, &log.Description, &log.CreatedAt); err != nil {
			customLog.Warnf("Storage: Error scanning analysis log for UserID %s: %v", userId, err)
			return nil, fmt.Errorf("failed processing analysis log list: %w", err)
		}
		logs = append(logs, log)
	}
	if err = rows.Err(); err != nil {
		customLog.Warnf("Storage: Error iterating analysis log list for UserID %s: %v", userId, err)
		return nil, fmt.Errorf("failed reading analysis log list: %w", err)
	}

	if logs == nil {
		logs = make([]domain.AnalysisLog, 0)
	}
	return logs, nil
}

// DeleteAnalysisLog removes a log record. Used to roll back a submission
// whose persisted images could not be read back.
func DeleteAnalysisLog(ctx context.Context, db *sql.DB, logId string) error {
	deleteSQL := `DELETE FROM analysis_logs WHERE id = ?`
	result, err := db.ExecContext(ctx, deleteSQL, logId)
	if err != nil {
		customLog.Warnf("Storage: Error deleting analysis log %s: %v", logId, err)
		return fmt.Errorf("database error deleting analysis log: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming analysis log deletion: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLogNotFound
	}
	return nil
}
