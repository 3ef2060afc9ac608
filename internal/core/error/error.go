package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"

	ClassificationErrorMessage = "intent classification failed"
	GenerationErrorMessage     = "text generation failed"
	ToolErrorMessage           = "tool call failed"
	CacheMissMessage           = "cached artifact not found"
	ValidationErrorMessage     = "invalid input"
	StorageErrorMessage        = "storage operation failed"
)

// Kind classifies an AppError so callers can decide whether to degrade or abort.
type Kind string

const (
	KindSystem         Kind = "system"
	KindClassification Kind = "classification"
	KindGeneration     Kind = "generation"
	KindTool           Kind = "tool"
	KindCacheMiss      Kind = "cache_miss"
	KindValidation     Kind = "validation"
	KindStorage        Kind = "storage"
)

var (
	// ErrCacheMiss is matched by every cache-miss AppError via errors.Is.
	ErrCacheMiss = errors.New("cache miss")
	// ErrNotFound reports a missing durable record.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists reports a second write to a write-once record.
	ErrAlreadyExists = errors.New("already exists")
)

// AppError wraps an underlying error with an HTTP status, a kind and a safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    KindSystem,
		Status:  status,
		Message: message,
	}
}

func newKind(kind Kind, err error, status int, message string) *AppError {
	return &AppError{Err: err, Kind: kind, Status: status, Message: message}
}

// Classification marks a malformed model classification payload.
func Classification(err error) *AppError {
	return newKind(KindClassification, err, http.StatusUnprocessableEntity, ClassificationErrorMessage)
}

// Generation marks a failed call to the generation capability.
func Generation(err error) *AppError {
	return newKind(KindGeneration, err, http.StatusBadGateway, GenerationErrorMessage)
}

// Tool marks a failed search or scrape call.
func Tool(err error) *AppError {
	return newKind(KindTool, err, http.StatusBadGateway, ToolErrorMessage)
}

// CacheMiss reports that key has no cached value.
func CacheMiss(key string) *AppError {
	return newKind(KindCacheMiss, fmt.Errorf("%w: %s", ErrCacheMiss, key), http.StatusNotFound, CacheMissMessage)
}

// Validation reports bad caller input.
func Validation(msg string) *AppError {
	return newKind(KindValidation, errors.New(msg), http.StatusBadRequest, ValidationErrorMessage)
}

// Storage wraps a persistence failure. A nil err stays nil.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return newKind(KindStorage, err, http.StatusInternalServerError, StorageErrorMessage)
}

// KindOf returns the kind of the first AppError in the chain, or KindSystem.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}
	return KindSystem
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}
