// Package errors provides the error definitions shared across mediaidle:
// sentinel errors, typed errors for each subsystem, and the classification
// helpers that decide how an error surfaces (log level, retry, exit code).
//
// # Error Types
//
//   - UsageError: malformed command line or configuration. Fatal, exit 1.
//   - ProviderError: the graph provider could not be reached or went away.
//     Fatal at startup (exit 2), recoverable afterwards.
//   - HelperError: the helper process could not be started or stopped.
//     Always recoverable; the next tick retries.
//
// # Usage
//
//	err := errors.NewProviderError("spawn", errors.ErrProviderConnect, cause)
//	if errors.Is(err, errors.ErrProviderConnect) { ... }
//
//	var usage *errors.UsageError
//	if errors.As(err, &usage) { ... }
//
//	os.Exit(errors.ExitCode(err))
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitUsage    = 1
	ExitProvider = 2
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityWarning is for errors that are contained and retried.
	SeverityWarning Severity = iota
	// SeverityError is for errors that abort an operation.
	SeverityError
	// SeverityFatal is for errors that terminate the program.
	SeverityFatal
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors
var (
	// ErrUsage indicates invalid command line arguments.
	ErrUsage = New("invalid usage")
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = New("invalid configuration")
	// ErrProviderConnect indicates the graph provider could not be reached.
	ErrProviderConnect = New("cannot connect to graph provider")
	// ErrProviderLost indicates an established provider subscription ended.
	ErrProviderLost = New("graph provider connection lost")
	// ErrProviderTimeout indicates the provider did not deliver the initial
	// object set in time.
	ErrProviderTimeout = New("timed out waiting for graph provider")
	// ErrHelperStart indicates the helper process could not be launched.
	ErrHelperStart = New("helper failed to start")
	// ErrHelperStop indicates the helper process could not be signalled.
	ErrHelperStop = New("helper failed to stop")
)

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	kind      error
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying errors so that both the sentinel kind and
// the cause are visible to errors.Is.
func (e *baseError) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the failing operation may succeed later.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// UsageError reports invalid command line input.
type UsageError struct {
	baseError
	Arg string
}

// NewUsageError creates a UsageError. Arg names the offending argument and
// may be empty.
func NewUsageError(arg, message string) *UsageError {
	return &UsageError{
		baseError: baseError{
			message:  message,
			kind:     ErrUsage,
			severity: SeverityFatal,
		},
		Arg: arg,
	}
}

// Error returns the formatted error message.
func (e *UsageError) Error() string {
	if e.Arg != "" {
		return fmt.Sprintf("%s: %s", e.Arg, e.message)
	}
	return e.message
}

// ProviderError reports a failure talking to the graph provider.
type ProviderError struct {
	baseError
	Op string
}

// NewProviderError creates a ProviderError for operation op. kind should be
// one of the provider sentinel errors.
func NewProviderError(op string, kind, cause error) *ProviderError {
	return &ProviderError{
		baseError: baseError{
			message:   kind.Error(),
			kind:      kind,
			cause:     cause,
			severity:  SeverityError,
			retryable: kind == ErrProviderLost,
		},
		Op: op,
	}
}

// WithSeverity sets the error severity.
func (e *ProviderError) WithSeverity(s Severity) *ProviderError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ProviderError) Error() string {
	prefix := "provider error"
	if e.Op != "" {
		prefix = fmt.Sprintf("provider error [op=%s]", e.Op)
	}
	return fmt.Sprintf("%s: %s", prefix, e.baseError.Error())
}

// HelperError reports a failure managing the helper process.
type HelperError struct {
	baseError
	Argv []string
	Pid  int
}

// NewHelperError creates a HelperError. kind should be ErrHelperStart or
// ErrHelperStop.
func NewHelperError(kind, cause error) *HelperError {
	return &HelperError{
		baseError: baseError{
			message:   kind.Error(),
			kind:      kind,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
	}
}

// WithArgv records the helper argument vector.
func (e *HelperError) WithArgv(argv []string) *HelperError {
	e.Argv = append([]string(nil), argv...)
	return e
}

// WithPid records the helper process ID.
func (e *HelperError) WithPid(pid int) *HelperError {
	e.Pid = pid
	return e
}

// Error returns the formatted error message.
func (e *HelperError) Error() string {
	var parts []string
	if len(e.Argv) > 0 {
		parts = append(parts, fmt.Sprintf("cmd=%s", strings.Join(e.Argv, " ")))
	}
	if e.Pid > 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", e.Pid))
	}

	prefix := "helper error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("helper error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.baseError.Error())
}

type classified interface {
	Severity() Severity
	IsRetryable() bool
}

// IsRetryable returns true if the error is transient and the operation may
// succeed on a later tick.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var c classified
	if As(err, &c) {
		return c.IsRetryable()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that carry no classification.
func GetSeverity(err error) Severity {
	var c classified
	if As(err, &c) {
		return c.Severity()
	}
	return SeverityError
}

// ExitCode maps an error returned from the command layer to the process
// exit status: 0 for nil, 2 for provider connection failures, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case Is(err, ErrProviderConnect), Is(err, ErrProviderTimeout):
		return ExitProvider
	default:
		return ExitUsage
	}
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
