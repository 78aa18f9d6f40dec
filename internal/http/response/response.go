package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/threadline-hq/threadline-backend/internal/pkg/errors"
)

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// Error maps the service error taxonomy onto HTTP statuses. Access denials
// surface as 404 so callers cannot probe another tenant's ids.
func Error(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		fail(c, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrAccessDenied):
		fail(c, http.StatusNotFound, "not_found", "resource not found")
	default:
		fail(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, "invalid_argument", message)
}

func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": message, "code": "unauthorized"},
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"message": message, "code": code}})
}
