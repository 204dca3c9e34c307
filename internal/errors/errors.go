package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the website backend

// ErrStorageUnavailable is returned when the analytics store cannot be reached
var ErrStorageUnavailable = errors.New("analytics storage unavailable")

// ErrUnknownExportFormat is returned for export formats other than json/csv
var ErrUnknownExportFormat = errors.New("unknown export format")

// ErrServiceNotFound is returned when a requested service page does not exist
var ErrServiceNotFound = errors.New("service page not found")

// ErrPostNotFound is returned when a requested blog post does not exist
var ErrPostNotFound = errors.New("blog post not found")

// ErrValidation carries the field-level failures of a contact form submission
type ErrValidation struct {
	Errors []string
}

func (e ErrValidation) Error() string {
	return fmt.Sprintf("form validation failed: %v", e.Errors)
}

// ErrMailDelivery is returned when a notification or auto-reply cannot be sent
type ErrMailDelivery struct {
	Recipient string
	Reason    string
}

func (e ErrMailDelivery) Error() string {
	return fmt.Sprintf("failed to deliver mail to %s: %s", e.Recipient, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
