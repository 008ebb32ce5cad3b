package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/crm-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer     = "Internal server error"
	errEmailTaken         = "Email already registered"
	errInvalidCredentials = "Invalid credentials"
	errInvalidResetToken  = "Invalid or expired token"
	errUnauthorized       = "Unauthorized"
	errNameRequired       = "Name is required"
)

// writeError maps domain sentinels to their HTTP status and logs anything else
// as an internal failure.
func writeError(c *gin.Context, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": errEmailTaken})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
	case errors.Is(err, domain.ErrResetTokenInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidResetToken})
	default:
		logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
