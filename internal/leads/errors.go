package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("name is required")

	// ErrMissingContact is returned when both email and WhatsApp are missing
	ErrMissingContact = errors.New("either email or whatsapp is required")

	// ErrMissingDestination is returned when the form names no destination
	ErrMissingDestination = errors.New("destination is required")

	// ErrNotificationNotFound is returned when a lead log entry is not found
	ErrNotificationNotFound = errors.New("notification not found")
)
