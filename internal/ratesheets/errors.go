package ratesheets

import (
	"errors"
	"net/http"
)

// Domain errors for rate-sheet operations.
var (
	ErrNotFound     = errors.New("rate sheet not found")
	ErrDuplicate    = errors.New("rate sheet already exists")
	ErrInvalidFile  = errors.New("invalid rate sheet file")
	ErrInvalidState = errors.New("rate sheet is not in a valid state for this transition")
)

// MapHTTPStatus maps rate-sheet domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidState) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidFile) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
