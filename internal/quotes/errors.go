package quotes

import (
	"errors"
	"net/http"

	"github.com/mortarhq/mortar/internal/catalog"
)

// Domain errors for quote operations.
var (
	ErrValidation = errors.New("validation failed")
	ErrStore      = errors.New("catalog store unavailable")
)

// MapHTTPStatus maps quote domain errors to appropriate HTTP status
// codes. Store failures surface as 503 so callers distinguish them from
// bad input.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrValidation) || errors.Is(err, catalog.ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrStore) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
