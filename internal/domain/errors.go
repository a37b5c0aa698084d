package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidCategory     = errors.New("invalid category: must be evaluation or certificate")
	ErrInvalidEmail        = errors.New("email address must not be empty")
	ErrInvalidPayload      = errors.New("payload must carry a reference id")
	ErrInvalidTemplateType = errors.New("invalid template type: must be participation, awardee, or attendance")
	ErrBatchEmpty          = errors.New("batch must contain at least one item")
	ErrBatchTooLarge       = errors.New("batch exceeds maximum of 1000 items")
	ErrAttendeeNotFound    = errors.New("attendee not found")
)
