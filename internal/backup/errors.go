package backup

import (
	"errors"
	"fmt"
)

// Error represents a classified failure inside the backup engine.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorKind classifies backup engine errors.
type ErrorKind string

const (
	ErrorKindStorage       ErrorKind = "STORAGE_ERROR"
	ErrorKindValidation    ErrorKind = "VALIDATION_ERROR"
	ErrorKindCompression   ErrorKind = "COMPRESSION_ERROR"
	ErrorKindEncryption    ErrorKind = "ENCRYPTION_ERROR"
	ErrorKindCorruption    ErrorKind = "CORRUPTION_ERROR"
	ErrorKindDatabase      ErrorKind = "DATABASE_ERROR"
	ErrorKindProcess       ErrorKind = "PROCESS_ERROR"
	ErrorKindConfiguration ErrorKind = "CONFIGURATION_ERROR"
	ErrorKindNotFound      ErrorKind = "NOT_FOUND_ERROR"
)

// NewError creates a new classified Error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Common error constructors
func NewStorageError(message string, cause error) *Error {
	return NewError(ErrorKindStorage, message, cause)
}

func NewValidationError(message string, cause error) *Error {
	return NewError(ErrorKindValidation, message, cause)
}

func NewCompressionError(message string, cause error) *Error {
	return NewError(ErrorKindCompression, message, cause)
}

func NewEncryptionError(message string, cause error) *Error {
	return NewError(ErrorKindEncryption, message, cause)
}

func NewCorruptionError(message string, cause error) *Error {
	return NewError(ErrorKindCorruption, message, cause)
}

func NewDatabaseError(message string, cause error) *Error {
	return NewError(ErrorKindDatabase, message, cause)
}

func NewProcessError(message string, cause error) *Error {
	return NewError(ErrorKindProcess, message, cause)
}

func NewConfigurationError(message string, cause error) *Error {
	return NewError(ErrorKindConfiguration, message, cause)
}

func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrorKindNotFound, message, cause)
}

// IsNotFound reports whether err is a NOT_FOUND_ERROR anywhere in its chain.
func IsNotFound(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == ErrorKindNotFound
	}
	return false
}

// KindOf returns the error kind of err, or an empty kind if err is not a
// classified engine error.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
