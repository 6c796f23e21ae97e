package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/vigil-ai/vigil-backend/internal/auth"
	"github.com/vigil-ai/vigil-backend/internal/media"
	"github.com/vigil-ai/vigil-backend/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
// Handlers and auth middleware attach sentinel errors; this maps them to
// HTTP statuses in one place.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// Only the last error drives the response.
		err := c.Errors.Last().Err

		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		var statusCode int
		var userMessage string

		var jsonSyntaxErr *json.SyntaxError
		var jsonTypeErr *json.UnmarshalTypeError

		switch {
		case errors.Is(err, storage.ErrUserNotFound),
			errors.Is(err, storage.ErrAPIKeyNotFound),
			errors.Is(err, storage.ErrLogNotFound):
			statusCode = http.StatusNotFound
			userMessage = err.Error()

		case errors.Is(err, storage.ErrEmailExists):
			statusCode = http.StatusConflict
			userMessage = err.Error()

		case errors.Is(err, auth.ErrTokenMalformed),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenClaimsInvalid),
			errors.Is(err, auth.ErrUnexpectedSigningMethod):
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid or malformed authentication token."

		case errors.Is(err, auth.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			userMessage = "Authentication token has expired."

		case errors.Is(err, auth.ErrKeyMalformed),
			errors.Is(err, auth.ErrKeyRevoked),
			errors.Is(err, auth.ErrUnauthorized),
			errors.Is(err, storage.ErrInvalidCredentials):
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid API key or credentials."

		case errors.Is(err, auth.ErrAPIKeyRequired):
			statusCode = http.StatusForbidden
			userMessage = err.Error()

		case errors.Is(err, storage.ErrInvalidModel),
			errors.Is(err, storage.ErrInvalidDelay),
			errors.Is(err, auth.ErrBadRequest):
			statusCode = http.StatusBadRequest
			userMessage = err.Error()

		case errors.As(err, &jsonSyntaxErr),
			errors.As(err, &jsonTypeErr),
			errors.Is(err, io.ErrUnexpectedEOF),
			errors.Is(err, io.EOF):
			// Unparseable or truncated JSON bodies from ShouldBindJSON
			statusCode = http.StatusBadRequest
			userMessage = "Malformed JSON in request body."

		case errors.Is(err, media.ErrImageNotFound):
			// Persisted image unreadable after upload: the submission was
			// rolled back, surface as a server error.
			statusCode = http.StatusInternalServerError
			userMessage = "Could not read saved image files after upload."

		default:
			if validationErrs, ok := err.(validator.ValidationErrors); ok {
				statusCode = http.StatusBadRequest
				userMessage = "Validation failed. Please check your input."
				for _, fe := range validationErrs {
					customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
				}
				break
			}
			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			customLog.Printf("Unhandled error type: %T, Error: %v", err, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			customLog.Printf("[ErrorHandler] Warning: Response already written before handling error.")
		}
	}
}
