package catalog

import (
	"errors"
	"net/http"
)

// Domain errors for catalog operations.
var (
	ErrNotFound          = errors.New("catalog record not found")
	ErrDuplicate         = errors.New("catalog record already exists")
	ErrValidation        = errors.New("validation failed")
	ErrUnresolvedProgram = errors.New("unresolved program")
)

// MapHTTPStatus maps catalog domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrUnresolvedProgram) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
