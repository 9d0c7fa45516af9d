package matching

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKind        = errors.New("invalid item kind")
	ErrMissingIdentifier  = errors.New("item has no identifier")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrInvalidSimilarity  = errors.New("invalid similarity score")
	ErrInvalidThreshold   = errors.New("invalid threshold")
	ErrDuplicateItem      = errors.New("duplicate item in payload")
)

// RecordError ties a pipeline failure to the record that caused it.
type RecordError struct {
	Kind Kind
	ID   string
	Err  error
}

func (e *RecordError) Error() string {
	id := e.ID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("%s item %s: %v", e.Kind, id, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
