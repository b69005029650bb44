package accounts

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidTier  = errors.New("invalid tier")
	ErrInvalidUser  = errors.New("invalid user id")
	ErrUnauthorized = errors.New("missing or invalid webhook secret")
)

// MapHTTPStatus maps account domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTier), errors.Is(err, ErrInvalidUser):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
