package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"driverpro/internal/repository"
	"driverpro/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidCardID),
		errors.Is(err, service.ErrInvalidRechargeID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidExchangeRate),
		errors.Is(err, service.ErrInvalidRechargeAmount),
		errors.Is(err, service.ErrScheduledDatetimeInPast),
		errors.Is(err, service.ErrMissingClientInfo):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrAlreadyConsumed),
		errors.Is(err, service.ErrAlreadyRefunded),
		errors.Is(err, service.ErrAlreadyPaused),
		errors.Is(err, service.ErrCannotCancelCompleted),
		errors.Is(err, service.ErrRechargeLocked):
		return http.StatusConflict

	// Business rule errors
	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrCreditNotConsumed):
		return http.StatusPaymentRequired

	case errors.Is(err, service.ErrDriverVehicleMismatch),
		errors.Is(err, service.ErrNoVehicleAssigned),
		errors.Is(err, service.ErrNoCardAssigned):
		return http.StatusUnprocessableEntity

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
