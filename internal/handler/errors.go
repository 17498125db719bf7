package handler

import (
	"errors"
	"net/http"

	"neelgund-backend/internal/service"
	"neelgund-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrDuplicatePendingRequest),
		errors.Is(err, service.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, response.Error(status, err.Error()))
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request body: "+err.Error()))
}
