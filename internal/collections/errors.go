package collections

import (
	"errors"
	"net/http"
)

// Domain errors for collection operations.
var (
	ErrNotFound    = errors.New("collection not found")
	ErrDuplicate   = errors.New("collection name already in use")
	ErrInvalidName = errors.New("collection name must be 1-100 characters")
	ErrInvalidID   = errors.New("invalid collection id")
)

// MapHTTPStatus maps collection domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidName) || errors.Is(err, ErrInvalidID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
