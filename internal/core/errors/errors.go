// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Lookup errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrIdentityNotFound indicates no identity row exists for an actor key.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrEmployeeNotFound indicates the employee directory has no such id.
	ErrEmployeeNotFound = errors.New("employee not found")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidDate indicates a date or datetime parameter did not match an accepted layout.
	ErrInvalidDate = errors.New("invalid date format")

	// ErrInvalidActorKey indicates an actor key is neither uid: nor uname: prefixed.
	ErrInvalidActorKey = errors.New("invalid actor key")

	// ErrUnknownChannel indicates a channel tag outside bonus|finans|mesai|other.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrPayloadTooLarge indicates a request body over the accepted size.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Access errors.
var (
	// ErrForbidden indicates a shared secret or admin token did not match.
	ErrForbidden = errors.New("forbidden")
)

// Reporting errors.
var (
	// ErrReportingDisabled indicates the channel's report switch is off.
	ErrReportingDisabled = errors.New("reporting disabled")

	// ErrAlreadySent indicates a scheduled report was already delivered for the period.
	ErrAlreadySent = errors.New("report already sent for period")

	// ErrSendFailed indicates the notification provider did not accept the message.
	ErrSendFailed = errors.New("notification send failed")

	// ErrNoRecipients indicates no chat is configured to receive a report.
	ErrNoRecipients = errors.New("no report recipients configured")
)
