// Package errors provides standardized error types for the nasbridge CLI.
//
// Every failure that reaches the operator is an *OpError carrying a Code.
// The code decides the process exit status (see ExitCode) and lets callers
// branch on the failure kind without string matching.
//
// # Error Types
//
// OpError is the primary error type, containing:
//   - Code: Categorizes the error (MISSING_CONFIG, LOG_NOT_FOUND, DELIVERY, ...)
//   - Message: Human-readable error description
//   - Subject: What the error is about (a recipient, a domain, a tool name)
//   - Keys: Configuration keys involved (MISSING_CONFIG only)
//   - Err: The underlying wrapped error (if any)
//
// # Sentinel Errors
//
//	errors.ErrMissingConfig // required .env keys absent
//	errors.ErrLogNotFound   // no log file matches the requested date
//	errors.ErrDelivery      // Telegram/SMTP delivery failed
//	errors.ErrExternal      // an external tool exited non-zero
//
// # Usage
//
//	return errors.MissingConfig("TELEGRAM_BOT_TOKEN", "TELEGRAM_USER_IDS")
//	return errors.LogNotFound("/var/log/app", "2024-03-20")
//	return errors.Delivery("telegram", "12345", err)
//	return errors.Wrap(errors.ErrCodeConfig, "failed to read profile", err)
//
// # Error Checking
//
//	if errors.Is(err, errors.ErrMissingConfig) {
//	    // ...
//	}
//
//	var opErr *errors.OpError
//	if errors.As(err, &opErr) {
//	    fmt.Println(opErr.Code, opErr.Keys)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes errors for programmatic handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG" // Required configuration keys absent
	ErrCodeLogNotFound   ErrorCode = "LOG_NOT_FOUND"  // No log file for the requested date
	ErrCodeDelivery      ErrorCode = "DELIVERY"       // Notification delivery failed
	ErrCodeValidation    ErrorCode = "VALIDATION"     // Input validation failed
	ErrCodeConfig        ErrorCode = "CONFIG"         // Configuration file error
	ErrCodeExternal      ErrorCode = "EXTERNAL"       // External tool failed
	ErrCodeInternal      ErrorCode = "INTERNAL"       // Internal/unexpected error
)

// OpError represents a structured error with context about the operation.
type OpError struct {
	Code    ErrorCode // Error category
	Message string    // Human-readable message
	Subject string    // Recipient, domain or tool (if applicable)
	Keys    []string  // Configuration keys (MISSING_CONFIG)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface.
func (e *OpError) Error() string {
	msg := e.Message
	if len(e.Keys) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Keys, ", "))
	}
	if e.Subject != "" {
		if msg == "" {
			msg = e.Subject
		} else {
			msg = fmt.Sprintf("%s: %s", e.Subject, msg)
		}
	}
	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain traversal.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
// Comparison is based on error code.
func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for common error scenarios.
// Use these with errors.Is() for error checking.
var (
	// ErrMissingConfig indicates one or more required keys are absent or blank.
	ErrMissingConfig = &OpError{Code: ErrCodeMissingConfig, Message: "missing required configuration"}

	// ErrLogNotFound indicates no log file matched the requested date.
	ErrLogNotFound = &OpError{Code: ErrCodeLogNotFound, Message: "log file not found"}

	// ErrDelivery indicates a notification could not be delivered.
	ErrDelivery = &OpError{Code: ErrCodeDelivery, Message: "delivery failed"}

	// ErrValidation indicates invalid user input or configuration values.
	ErrValidation = &OpError{Code: ErrCodeValidation, Message: "validation failed"}

	// ErrConfigInvalid indicates the profile configuration is invalid or unreadable.
	ErrConfigInvalid = &OpError{Code: ErrCodeConfig, Message: "invalid configuration"}

	// ErrExternal indicates an external tool failed.
	ErrExternal = &OpError{Code: ErrCodeExternal, Message: "external command failed"}
)

// MissingConfig creates an error naming every missing configuration key.
func MissingConfig(keys ...string) error {
	return &OpError{
		Code:    ErrCodeMissingConfig,
		Message: "missing required configuration",
		Keys:    keys,
	}
}

// LogNotFound creates an error for a date with no matching log in dir.
func LogNotFound(dir, date string) error {
	return &OpError{
		Code:    ErrCodeLogNotFound,
		Message: fmt.Sprintf("no .log file for %s", date),
		Subject: dir,
	}
}

// Delivery creates a delivery error for one recipient on a channel.
func Delivery(channel, recipient string, err error) error {
	return &OpError{
		Code:    ErrCodeDelivery,
		Message: fmt.Sprintf("%s delivery failed", channel),
		Subject: recipient,
		Err:     err,
	}
}

// Validation creates a validation error with a custom message.
func Validation(msg string) error {
	return &OpError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// External creates an error for a tool that exited with a non-zero status.
// Output is trimmed and included in the message when non-empty.
func External(tool string, exitCode int, output string, err error) error {
	msg := fmt.Sprintf("exited with status %d", exitCode)
	if out := strings.TrimSpace(output); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, out)
	}
	return &OpError{
		Code:    ErrCodeExternal,
		Message: msg,
		Subject: tool,
		Err:     err,
	}
}

// Wrap creates an error with the specified code, message, and underlying error.
func Wrap(code ErrorCode, msg string, err error) error {
	return &OpError{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}

// WrapSubject creates an error with subject context and underlying error.
func WrapSubject(code ErrorCode, subject string, err error) error {
	return &OpError{
		Code:    code,
		Subject: subject,
		Err:     err,
	}
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var opErr *OpError
	if !errors.As(err, &opErr) {
		return 1
	}
	switch opErr.Code {
	case ErrCodeMissingConfig, ErrCodeValidation, ErrCodeConfig:
		return 2
	case ErrCodeLogNotFound:
		return 3
	case ErrCodeDelivery:
		return 4
	case ErrCodeExternal:
		return 5
	default:
		return 1
	}
}

// Is reports whether any error in err's chain matches target.
// This is a re-export of errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// This is a re-export of errors.As for convenience.
var As = errors.As

// Join is a re-export of errors.Join for convenience.
var Join = errors.Join
