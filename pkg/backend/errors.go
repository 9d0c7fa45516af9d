package backend

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedResponse = errors.New("malformed backend response")
	ErrEmptyImage        = errors.New("image is empty")
	ErrUnsupportedImage  = errors.New("unsupported image type")
	ErrImageTooLarge     = errors.New("image exceeds the upload limit")
)

// HTTPError is a non-success response from the backend.
type HTTPError struct {
	Op         string
	StatusCode int
	Summary    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("failed to %s: %d - %s", e.Op, e.StatusCode, e.Summary)
}
