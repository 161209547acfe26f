package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coinflip-backend/internal/middleware"
	"coinflip-backend/internal/models"
	"coinflip-backend/internal/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidBet):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotConnected),
		errors.Is(err, services.ErrBalanceUnavailable),
		errors.Is(err, services.ErrRoundInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrAppClosed):
		return http.StatusGone
	case errors.Is(err, services.ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// respondError writes the error body. The play session state is included
// when the caller has one, so a view can redraw without a second request.
func respondError(c *gin.Context, message string, err error, state *services.State) {
	body := gin.H{
		"error":   message,
		"details": err.Error(),
	}
	if errors.Is(err, services.ErrInsufficientBalance) {
		body["advisory"] = models.InsufficientBalanceAdvisory
	}
	if state != nil {
		body["state"] = state
	}
	c.JSON(statusFor(err), body)
}

func appFor(c *gin.Context, registry *services.Registry) *services.App {
	return registry.GetOrCreate(c.GetString(middleware.ClientIDKey))
}
