package images

import (
	"errors"
	"net/http"
)

// Domain errors for image operations.
var (
	ErrNotFound           = errors.New("image not found")
	ErrDuplicate          = errors.New("image already exists")
	ErrFileTooLarge       = errors.New("file exceeds maximum upload size")
	ErrInvalidFile        = errors.New("invalid file")
	ErrUnsupportedType    = errors.New("file is not an image")
	ErrInvalidID          = errors.New("invalid image id")
	ErrInvalidDestination = errors.New("destination must be a collection id or \"unassigned\"")
	ErrCollectionNotFound = errors.New("destination collection not found")
	ErrForbiddenKey       = errors.New("storage key outside the caller's namespace")
)

// MapHTTPStatus maps image domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrForbiddenKey):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidFile),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidDestination):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether err is a caller mistake rather than a
// storage or database fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbiddenKey) ||
		errors.Is(err, ErrCollectionNotFound) ||
		errors.Is(err, ErrInvalidDestination)
}
