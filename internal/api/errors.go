package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"review-service/internal/auth/credentials"
	"review-service/internal/logger"
	"review-service/internal/review"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps domain errors onto HTTP. Anything unrecognized is a 500
// and its message is not shown to the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, review.ErrInvalidInput),
		errors.Is(err, credentials.ErrInvalidUserID),
		errors.Is(err, credentials.ErrInvalidRole):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, review.ErrInvalidReference):
		return http.StatusBadRequest, "INVALID_REFERENCE"
	case errors.Is(err, review.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, review.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, review.ErrNotFound),
		errors.Is(err, credentials.ErrUserNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, review.ErrConflict),
		errors.Is(err, credentials.ErrAlreadyExists):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", map[string]any{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err.Error(),
		})
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "INVALID_INPUT"})
}
