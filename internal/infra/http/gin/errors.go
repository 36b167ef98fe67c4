package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	availabilityapp "equiprent/internal/app/handlers/availability"
	"equiprent/internal/app/middleware"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/infra/security"
)

var errBadQuery = errors.New("ginserver: malformed query parameter")

func statusFor(err error) int {
	switch {
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, availabilityapp.ErrInvalidInput),
		errors.Is(err, errBadQuery):
		return http.StatusBadRequest
	case errors.Is(err, security.ErrTokenMissing),
		errors.Is(err, security.ErrTokenInvalid),
		errors.Is(err, security.ErrAdminDisabled):
		return http.StatusUnauthorized
	case errors.Is(err, middleware.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
