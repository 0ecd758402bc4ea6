package domain

import "fmt"

// SourceUnavailableError indicates the conversation listing itself failed.
// Fatal: extraction cannot proceed without a conversation list.
type SourceUnavailableError struct {
	Message string
}

func (e *SourceUnavailableError) Error() string { return e.Message }

// ConversationReadError indicates one conversation's messages could not be
// fetched. Recoverable: the conversation is skipped and the run continues.
type ConversationReadError struct {
	ConversationID string
	Err            error
}

func (e *ConversationReadError) Error() string {
	return fmt.Sprintf("read conversation %s: %v", e.ConversationID, e.Err)
}

func (e *ConversationReadError) Unwrap() error { return e.Err }

// TransientError indicates a retryable failure calling an external service.
type TransientError struct {
	Message string
}

func (e *TransientError) Error() string { return e.Message }

// UnparseableResponseError indicates the classification service returned
// text from which no valid tier token could be extracted. Not retryable.
type UnparseableResponseError struct {
	Message string
}

func (e *UnparseableResponseError) Error() string { return e.Message }

// AuthorizationError indicates an authentication or permission failure.
// Fatal: it will fail identically for every remaining item.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// DependencyError indicates a sub-operation was attempted without its
// prerequisite (function registration without a created function).
type DependencyError struct {
	Message string
}

func (e *DependencyError) Error() string { return e.Message }

// ErrSourceUnavailable creates a SourceUnavailableError with a formatted message.
func ErrSourceUnavailable(format string, args ...interface{}) *SourceUnavailableError {
	return &SourceUnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrTransient creates a TransientError with a formatted message.
func ErrTransient(format string, args ...interface{}) *TransientError {
	return &TransientError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnparseable creates an UnparseableResponseError with a formatted message.
func ErrUnparseable(format string, args ...interface{}) *UnparseableResponseError {
	return &UnparseableResponseError{Message: fmt.Sprintf(format, args...)}
}

// ErrAuthorization creates an AuthorizationError with a formatted message.
func ErrAuthorization(format string, args ...interface{}) *AuthorizationError {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

// ErrDependency creates a DependencyError with a formatted message.
func ErrDependency(format string, args ...interface{}) *DependencyError {
	return &DependencyError{Message: fmt.Sprintf(format, args...)}
}
