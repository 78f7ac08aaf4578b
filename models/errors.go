package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeNavigation      = "NAVIGATION_FAILED"
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodePopup           = "POPUP_FAILED"
	ErrCodeSiteError       = "SITE_ERROR"
	ErrCodeBrowserCrash    = "BROWSER_CRASH"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LookupError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type LookupError struct {
	Code    string
	Message string
	Err     error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// NewLookupError creates a new LookupError.
func NewLookupError(code, message string, err error) *LookupError {
	return &LookupError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *LookupError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// Human returns the message stored on a warranty record. The wrapped cause
// is appended so operators can see what the browser actually reported.
func (e *LookupError) Human() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}
