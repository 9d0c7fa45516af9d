package submission

import "errors"

var (
	ErrInFlight       = errors.New("a submission is already in flight")
	ErrNothingToRetry = errors.New("no failed submission to retry")
	ErrClosed         = errors.New("submission flow is closed")
	ErrMissingImage   = errors.New("a photo is required")
	ErrMissingWhere   = errors.New("a location type is required")
	ErrMissingWhen    = errors.New("a time frame is required")
)
