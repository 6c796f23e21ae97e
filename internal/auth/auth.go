package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vigil-ai/vigil-backend/api/models"
	"github.com/vigil-ai/vigil-backend/internal/logger"
)

var (
	ErrBadRequest              = errors.New("bad request")
	ErrTokenMalformed          = errors.New("malformed token")
	ErrTokenExpired            = errors.New("token is expired or not valid yet")
	ErrTokenInvalid            = errors.New("invalid token")
	ErrTokenClaimsInvalid      = errors.New("invalid token claims")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrKeyMalformed            = errors.New("malformed api key")
	ErrKeyRevoked              = errors.New("api key has been revoked")
	ErrAPIKeyRequired          = errors.New("this endpoint can only be used with an api key")
	ErrUnexpectedSigningMethod = errors.New("unexpected token signing method")
	ErrAPIKeyGeneration        = errors.New("failed to generate api key components")
	customLog                  = logger.NewLogger()
)

const (
	apiKeyPrefixLength = 6  // random bytes for the public prefix
	apiKeySecretLength = 32 // random bytes for the secret part
)

// --- Password Utilities ---

// HashPassword generates a bcrypt hash for the given password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		customLog.Warnf("Error generating bcrypt hash: %v", err)
		// Don't return raw bcrypt error to caller usually
		return "", fmt.Errorf("failed to hash password")
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// Log unexpected errors, but return false for mismatch or other errors
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		customLog.Warnf("Unexpected error comparing password hash: %v", err)
	}
	return err == nil
}

// --- API Key Utilities ---

// GenerateAPIKey creates a new credential: a public prefix, a random secret,
// and the bcrypt hash of that secret. The wire form of the full key is
// "<prefix>.<secret>" and it is shown to the caller exactly once.
func GenerateAPIKey() (prefix, secret, hashedSecret string, err error) {
	prefixBytes := make([]byte, apiKeyPrefixLength)
	if _, err = rand.Read(prefixBytes); err != nil {
		customLog.Warnf("Failed to generate random bytes for API key prefix: %v", err)
		return "", "", "", ErrAPIKeyGeneration
	}
	secretBytes := make([]byte, apiKeySecretLength)
	if _, err = rand.Read(secretBytes); err != nil {
		customLog.Warnf("Failed to generate random bytes for API key secret: %v", err)
		return "", "", "", ErrAPIKeyGeneration
	}

	prefix = base64.RawURLEncoding.EncodeToString(prefixBytes)
	secret = base64.RawURLEncoding.EncodeToString(secretBytes)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		customLog.Warnf("Failed to hash API key secret: %v", err)
		return "", "", "", ErrAPIKeyGeneration
	}

	return prefix, secret, string(hashed), nil
}

// SplitAPIKey parses the "<prefix>.<secret>" wire form of an API key.
func SplitAPIKey(key string) (prefix, secret string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrKeyMalformed
	}
	return parts[0], parts[1], nil
}

// CheckAPIKeySecret compares a plaintext key secret with its stored bcrypt
// hash. bcrypt's comparison is constant time.
func CheckAPIKeySecret(secret, hashedSecret string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		customLog.Warnf("Unexpected error comparing API key secret hash: %v", err)
	}
	return err == nil
}

// --- JWT Utilities ---

// GenerateJWT creates a signed JWT string for a given userID
func GenerateJWT(userID, jwtSecret string, jwtExpiration time.Duration) (string, error) {
	claims := models.CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "vigil-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		customLog.Warnf("Error signing JWT for user %s: %v", userID, err)
		return "", fmt.Errorf("failed to generate token")
	}

	return signedToken, nil
}

// ValidateJWT parses and validates a JWT string, returning the UserID if valid.
func ValidateJWT(tokenString, jwtSecret string) (string, error) {
	claims := &models.CustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			customLog.Warnf("ValidateJWT: Unexpected signing method: %v", token.Header["alg"])
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigningMethod, token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})

	// Handle parsing errors, mapping library errors to our defined errors
	if err != nil {
		customLog.Warnf("ValidateJWT: Token parsing error: %v", err)
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return "", ErrTokenExpired
		case errors.Is(err, ErrUnexpectedSigningMethod):
			return "", err
		default:
			return "", ErrTokenInvalid
		}
	}

	if !token.Valid {
		customLog.Warnf("ValidateJWT: Invalid token marked by library")
		return "", ErrTokenInvalid
	}

	if claims.UserID == "" {
		customLog.Warnf("ValidateJWT: UserID missing or invalid in token claims")
		return "", ErrTokenClaimsInvalid
	}

	return claims.UserID, nil
}
