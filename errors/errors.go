package errors

import stderrors "errors"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message shown to the actor
	Metadata map[string]string // Additional context (room name, corner, ...)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error carrying extra context.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the code from err, or CodeUnknown if err is not a domain
// error.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidType             = New(CodeInvalidType, "invalid room type")
	ErrInvalidName             = New(CodeInvalidName, "invalid room name")
	ErrDuplicateName           = New(CodeDuplicateName, "a room with that name already exists")
	ErrIncompleteConfiguration = New(CodeIncompleteConfiguration, "room is not complete")
	ErrNoActiveDraft           = New(CodeNoActiveDraft, "you are not creating a room")
	ErrAlreadyDrafting         = New(CodeAlreadyDrafting, "you are already creating a room")
	ErrWrongWorld              = New(CodeWrongWorld, "point is in a different world")
	ErrNotFound                = New(CodeNotFound, "room not found")
	ErrCommandsDisabled        = New(CodeCommandsDisabled, "commands are disabled during a battle")
	ErrProtectedBlock          = New(CodeProtectedBlock, "you cannot modify the room structure")
)
