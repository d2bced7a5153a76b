// Package exception defines the typed failures returned by the ledger and its collaborators.
package exception

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "ValidationError"
	KindNotFound   Kind = "NotFound"
	KindStorage    Kind = "StorageError"
	// KindConflict is reserved for an optimistic pointer check. Nothing raises it yet.
	KindConflict Kind = "ConflictError"
	KindInternal Kind = "Internal"
)

// Sentinels for errors.Is; an AppError matches the sentinel of its kind.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindValidation: ErrValidation,
	KindNotFound:   ErrNotFound,
	KindStorage:    ErrStorage,
	KindConflict:   ErrConflict,
	KindInternal:   ErrInternal,
}

type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func NewValidationError(code, format string, args ...any) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func NewPostNotFoundError(postID string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    "POST_NOT_FOUND",
		Message: fmt.Sprintf("post with id '%s' does not exist", postID),
	}
}

func NewVersionNotFoundError(versionID string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    "VERSION_NOT_FOUND",
		Message: fmt.Sprintf("version with id '%s' does not exist", versionID),
	}
}

// NewForeignVersionError reports a version that exists but belongs to another post.
// Callers treat it exactly like a missing version.
func NewForeignVersionError(versionID, postID string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    "VERSION_NOT_IN_POST",
		Message: fmt.Sprintf("version '%s' does not belong to post '%s'", versionID, postID),
	}
}

func NewSlugTakenError(slug string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    "SLUG_TAKEN",
		Message: fmt.Sprintf("slug '%s' is already used by another post", slug),
	}
}

func NewStorageError(message string, cause error) *AppError {
	return &AppError{
		Kind:    KindStorage,
		Code:    "STORAGE_ERROR",
		Message: message,
		Cause:   cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
		Cause:   cause,
	}
}

// KindOf returns the kind of the first AppError in err's chain.
// Errors that carry no kind are reported as internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// AsStorage wraps err as a StorageError unless it already carries a kind.
func AsStorage(message string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return NewStorageError(message, err)
}
