package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Invalid input: empty token/project, bad enum value, bad flag
	ErrorTypeConfig ErrorType = "Configuration"

	// Control-plane errors
	ErrorTypeAPI   ErrorType = "API"
	ErrorTypeParse ErrorType = "Parse"

	// Transfer errors
	ErrorTypeConnect ErrorType = "Connect"
	ErrorTypeUpload  ErrorType = "Upload"
	ErrorTypeFileIO  ErrorType = "FileIO"

	// Flow torn down by interrupt or timeout
	ErrorTypeCancelled ErrorType = "Cancelled"
)

// AppError represents an application error with type information.
// StatusCode and Body are set when the error came from an HTTP response.
type AppError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError creates a new AppError
func NewError(errType ErrorType, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Convenience functions for creating specific error types

// NewConfigError creates a configuration error
func NewConfigError(message string, err error) *AppError {
	return NewError(ErrorTypeConfig, message, err)
}

// NewAPIError creates an error for a non-success control-plane response
func NewAPIError(message string, statusCode int, body string) *AppError {
	e := NewError(ErrorTypeAPI, message, nil)
	e.StatusCode = statusCode
	e.Body = body
	return e
}

// NewParseError creates an error for a response body that could not be
// decoded. The raw body is kept for diagnosis.
func NewParseError(message string, body string, err error) *AppError {
	e := NewError(ErrorTypeParse, message, err)
	e.Body = body
	return e
}

// NewConnectError creates an error for a request that never reached the server
func NewConnectError(message string, err error) *AppError {
	return NewError(ErrorTypeConnect, message, err)
}

// NewUploadError creates a byte transfer error
func NewUploadError(message string, err error) *AppError {
	return NewError(ErrorTypeUpload, message, err)
}

// NewStorageError creates a byte transfer error for a non-success storage response
func NewStorageError(message string, statusCode int, body string) *AppError {
	e := NewError(ErrorTypeUpload, message, nil)
	e.StatusCode = statusCode
	e.Body = body
	return e
}

// NewFileIOError creates a file I/O error
func NewFileIOError(message string, err error) *AppError {
	return NewError(ErrorTypeFileIO, message, err)
}

// NewCancelledError creates an error for a flow stopped by cancellation
func NewCancelledError(message string, err error) *AppError {
	return NewError(ErrorTypeCancelled, message, err)
}

// NewParsingError creates a parse error for a user supplied value
func NewParsingError(field string, value string, err error) *AppError {
	message := fmt.Sprintf("Failed to parse %s '%s'", field, value)
	return NewError(ErrorTypeConfig, message, err)
}

// TypeOf returns the type of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain holds an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}
