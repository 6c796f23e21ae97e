package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// ConnectMetadataDB initializes the connection pool for the SQLite database
// and ensures the required tables exist.
func ConnectMetadataDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := filepath.Join(cfg.MetadataDbDir, cfg.MetadataDbFile)
	customLog.Printf("Storage: Initializing database: %s", dbPath)

	// Ensure the data directory exists
	if err := os.MkdirAll(cfg.MetadataDbDir, 0750); err != nil {
		customLog.Warnf("Storage: Error creating data directory '%s': %v", cfg.MetadataDbDir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		customLog.Warnf("Storage: Failed to open db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to ping db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	schemas := []struct {
		name string
		stmt string
	}{
		{"users", `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`},
		{"api_keys", `
	CREATE TABLE IF NOT EXISTS api_keys (
		prefix TEXT PRIMARY KEY,
		hashed_secret TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT 'esp32-device',
		revoked INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (owner_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`},
		{"device_configs", `
	CREATE TABLE IF NOT EXISTS device_configs (
		key_prefix TEXT PRIMARY KEY,
		flash_enabled INTEGER NOT NULL DEFAULT 1,
		delay_seconds INTEGER NOT NULL DEFAULT 10,
		default_model TEXT NOT NULL DEFAULT 'gpt-4o-mini',
		prompt_context TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (key_prefix) REFERENCES api_keys(prefix) ON DELETE CASCADE
	);`},
		{"analysis_logs", `
	CREATE TABLE IF NOT EXISTS analysis_logs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		image1_path TEXT NOT NULL,
		image2_path TEXT NOT NULL,
		model_used TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (owner_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`},
	}

	for _, s := range schemas {
		if _, err = db.Exec(s.stmt); err != nil {
			db.Close()
			customLog.Warnf("Storage: Failed to create %s table: %v", s.name, err)
			return nil, fmt.Errorf("failed to ensure %s table: %w", s.name, err)
		}
	}
	customLog.Println("Storage: Database connection successful, tables ensured.")

	return db, nil
}
