package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vigil-ai/vigil-backend/api/models"
	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/auth"
	"github.com/vigil-ai/vigil-backend/internal/logger"
	"github.com/vigil-ai/vigil-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(db *sql.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		DB:  db,
		Cfg: cfg,
	}
}

// Signup handles user registration requests.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	userId := uuid.New().String()

	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Signup binding error: %v", err)
		_ = c.Error(err)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		customLog.Warnf("Failed to hash password during signup for email %s: %v", req.Email, err)
		_ = c.Error(err)
		return
	}

	createdId, err := storage.CreateUser(c.Request.Context(), h.DB, userId, req.Username, req.Email, hashedPassword)
	if err != nil {
		customLog.Warnf("Failed to create user %s: %v", req.Email, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Successfully registered user with email %s", req.Email)
	c.JSON(http.StatusCreated, gin.H{"user_id": createdId, "message": "User registered successfully"})
}

// Login handles user login requests and issues JWT on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Login binding error: %v", err)
		_ = c.Error(err)
		return
	}

	user, err := storage.FindUserByEmail(c.Request.Context(), h.DB, req.Email)
	if err != nil || user == nil {
		customLog.Warnf("Login failed for email %s: %v", req.Email, err)
		_ = c.Error(err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		customLog.Warnf("Login attempt failed for email %s: invalid password", user.Email)
		_ = c.Error(storage.ErrInvalidCredentials)
		return
	}

	tokenString, err := auth.GenerateJWT(user.UserId, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		customLog.Warnf("Failed to generate JWT for user %s: %v", user.UserId, err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Message: "Logged in successfully", User: *user, Token: tokenString})
}
