// Package errors provides coded, recoverable errors reported back to the
// actor that triggered them.
package errors

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Room builder errors
	CodeInvalidType             Code = "INVALID_TYPE"
	CodeInvalidName             Code = "INVALID_NAME"
	CodeDuplicateName           Code = "DUPLICATE_NAME"
	CodeIncompleteConfiguration Code = "INCOMPLETE_CONFIGURATION"
	CodeNoActiveDraft           Code = "NO_ACTIVE_DRAFT"
	CodeAlreadyDrafting         Code = "ALREADY_DRAFTING"
	CodeWrongWorld              Code = "WRONG_WORLD"

	// Registry errors
	CodeNotFound Code = "NOT_FOUND"

	// Host guard errors
	CodeCommandsDisabled Code = "COMMANDS_DISABLED"
	CodeProtectedBlock   Code = "PROTECTED_BLOCK"
	CodeBadRequest       Code = "BAD_REQUEST"
)
