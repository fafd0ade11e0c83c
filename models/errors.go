package models

import (
	"errors"
	"fmt"
)

// Error codes used in run logs and internal error handling.
const (
	ErrCodeElementUnresolved   = "ELEMENT_UNRESOLVED"
	ErrCodeInteractionRejected = "INTERACTION_REJECTED"
	ErrCodeDownloadTimeout     = "DOWNLOAD_TIMEOUT"
	ErrCodeNavigation          = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash        = "BROWSER_CRASH"
	ErrCodeUnexpectedFault     = "UNEXPECTED_FAULT"
)

// ErrNotFound is the sentinel for "no element became interactable within the
// candidate's timeout". It flows through the resolver as a value so callers
// can distinguish an exhausted candidate list from a genuine session fault.
var ErrNotFound = errors.New("element not found")

// FetchError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type FetchError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(code, message string, err error) *FetchError {
	return &FetchError{Code: code, Message: message, Err: err}
}
