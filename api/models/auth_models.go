package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vigil-ai/vigil-backend/internal/domain"
)

// --- Auth Request/Response Structs ---

// SignupRequest defines the structure for the signup request body
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest defines the structure for the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse defines the structure for the login response body
type LoginResponse struct {
	Message string      `json:"message"`
	User    domain.User `json:"user"`
	Token   string      `json:"token"`
}

// --- API Key Request/Response Structs ---

// CreateAPIKeyRequest names a new device credential
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

// CreateAPIKeyResponse carries the full plaintext key. This is the only
// place the secret ever leaves the server.
type CreateAPIKeyResponse struct {
	Prefix    string    `json:"prefix"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// --- JWT Claims ---

// CustomClaims includes standard claims and our custom userID claim for JWT
type CustomClaims struct {
	UserID string `json:"userID"`
	jwt.RegisteredClaims
}
