package engine

import (
	"errors"
	"fmt"
)

// Common engine errors
var (
	// ErrTimeout indicates an attempt ran past its deadline and was killed
	ErrTimeout = errors.New("engine timed out")

	// ErrEmptyText indicates a request was built without text
	ErrEmptyText = errors.New("request text is empty")

	// ErrNoNarrator indicates a request was built without a narrator
	ErrNoNarrator = errors.New("request narrator is empty")

	// ErrNoOutput indicates a request was built without a destination path
	ErrNoOutput = errors.New("request output path is empty")

	// ErrBuilderConsumed indicates Build was called twice on one builder
	ErrBuilderConsumed = errors.New("request builder already consumed")

	// ErrInvalidEmotion indicates an emotion expression could not be parsed
	ErrInvalidEmotion = errors.New("invalid emotion expression")
)

// ErrorCode identifies why an engine invocation failed.
type ErrorCode string

const (
	ErrorCodeStart     ErrorCode = "START_FAILED"
	ErrorCodeExit      ErrorCode = "NON_ZERO_EXIT"
	ErrorCodeTimeout   ErrorCode = "TIMEOUT"
	ErrorCodeExhausted ErrorCode = "ATTEMPTS_EXHAUSTED"
)

// Error is a failed engine attempt, or the terminal failure after every
// attempt failed.
type Error struct {
	Code     ErrorCode
	Message  string
	Cause    error
	Attempts int
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether another attempt may succeed.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeStart, ErrorCodeExit, ErrorCodeTimeout:
		return true
	default:
		return false
	}
}

func exhaustedError(attempts int, last error) *Error {
	if last == nil {
		last = errors.New("unknown error")
	}
	return &Error{
		Code:     ErrorCodeExhausted,
		Message:  fmt.Sprintf("VOICEPEAK command failed after %d attempts", attempts),
		Cause:    last,
		Attempts: attempts,
	}
}
