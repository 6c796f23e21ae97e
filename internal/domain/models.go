package domain

import "time"

// User defines the structure for user data in the DB
type User struct {
	UserId       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Exclude password hash from JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

// APIKey is an issued device credential. The plaintext secret is never
// stored; only its bcrypt hash. Prefix is the public lookup token.
type APIKey struct {
	Prefix       string    `json:"prefix"`
	HashedSecret string    `json:"-"`
	OwnerId      string    `json:"-"`
	Name         string    `json:"name"`
	Revoked      bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeviceConfiguration holds the per-key default analysis settings,
// one-to-one with an APIKey and created lazily on first read.
type DeviceConfiguration struct {
	KeyPrefix     string    `json:"-"`
	FlashEnabled  bool      `json:"flash_enabled"`
	DelaySeconds  int       `json:"delay_seconds"`
	DefaultModel  string    `json:"default_model"`
	PromptContext string    `json:"prompt_context"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AnalysisLog is one two-image change analysis. Description stays null
// until the external call settles; listing is created_at descending.
type AnalysisLog struct {
	Id          string    `json:"id"`
	OwnerId     string    `json:"user"`
	Image1Path  string    `json:"-"`
	Image2Path  string    `json:"-"`
	ModelUsed   string    `json:"model_used"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
