// Package errors provides centralized error definitions and error handling utilities
// for the mod director. It defines domain-specific errors, semantic error types,
// the severity scale used by error records, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - LifecycleError: misuse of the director lifecycle (double bootstrap, use before bootstrap)
//   - ConfigError: errors raised while loading mod descriptors
//   - InstallError: errors raised while installing a single mod
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewInstallError("download failed", errors.ErrDownloadFailed).WithMod("jei")
//
//	// Semantic error
//	err := errors.NewNotFoundError("source file", "/tmp/jei.jar")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrNotBootstrapped) { ... }
//
//	var installErr *errors.InstallError
//	if errors.As(err, &installErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Severity
//
// Errors and error records carry a Severity: Debug, Info, Warning, Error,
// Critical. Only [SeverityError] is fatal; a single fatal record fails an
// activation.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
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

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem. It is the only
	// fatal severity.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// IsFatal reports whether records at this severity fail an activation.
func (s Severity) IsFatal() bool {
	return s == SeverityError
}

// ParseSeverity converts a case-insensitive name into a Severity.
// "warn" is accepted as an alias for "warning".
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return SeverityDebug, true
	case "info":
		return SeverityInfo, true
	case "warn", "warning":
		return SeverityWarning, true
	case "error":
		return SeverityError, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityInfo, false
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Lifecycle sentinel errors
var (
	// ErrAlreadyBootstrapped indicates a second bootstrap of the process-wide director.
	ErrAlreadyBootstrapped = New("mod director has already been bootstrapped")
	// ErrNotBootstrapped indicates the director was used before bootstrap.
	ErrNotBootstrapped = New("mod director has not been bootstrapped yet")
	// ErrAlreadyActivated indicates a second activation of the same director.
	ErrAlreadyActivated = New("mod director has already been activated")
	// ErrPoolClosed indicates a submission to a worker pool that no longer accepts work.
	ErrPoolClosed = New("worker pool is closed")
)

// Configuration sentinel errors
var (
	// ErrConfigMalformed indicates that a descriptor file could not be decoded.
	ErrConfigMalformed = New("malformed mod configuration")
	// ErrInvalidDescriptor indicates that a mod descriptor failed validation.
	ErrInvalidDescriptor = New("invalid mod descriptor")
	// ErrDuplicateMod indicates that two descriptors resolve to the same mod.
	ErrDuplicateMod = New("duplicate mod descriptor")
	// ErrUnsupportedFormat indicates a descriptor file with an unknown extension.
	ErrUnsupportedFormat = New("unsupported configuration format")
)

// Install sentinel errors
var (
	// ErrUnsupportedSource indicates a mod source with an unsupported scheme.
	ErrUnsupportedSource = New("unsupported mod source")
	// ErrSandboxViolation indicates a destination outside the mods directory.
	ErrSandboxViolation = New("destination outside mods directory")
	// ErrDownloadFailed indicates a failed remote fetch.
	ErrDownloadFailed = New("download failed")
	// ErrWorkerPanic indicates that an install worker panicked.
	ErrWorkerPanic = New("install worker panicked")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ModError is the base interface for all mod director errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ModError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// LifecycleError represents misuse of the director lifecycle. These are
// programming errors in the host, never recoverable at runtime.
//
// Example:
//
//	err := errors.NewLifecycleError("bootstrap", errors.ErrAlreadyBootstrapped).WithPlatform("cli")
//	fmt.Println(err) // "lifecycle error [platform=cli]: bootstrap: mod director has already been bootstrapped"
type LifecycleError struct {
	baseError
	Platform string
}

// NewLifecycleError creates a new LifecycleError.
func NewLifecycleError(message string, cause error) *LifecycleError {
	return &LifecycleError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: false,
		},
	}
}

// WithPlatform adds the platform name to the error context.
func (e *LifecycleError) WithPlatform(name string) *LifecycleError {
	e.Platform = name
	return e
}

// Error returns the formatted error message.
func (e *LifecycleError) Error() string {
	prefix := "lifecycle error"
	if e.Platform != "" {
		prefix = fmt.Sprintf("lifecycle error [platform=%s]", e.Platform)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *LifecycleError) Is(target error) bool {
	if _, ok := target.(*LifecycleError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConfigError represents errors raised while loading mod descriptors.
//
// Example:
//
//	err := errors.NewConfigError("decode failed", errors.ErrConfigMalformed)
//	err = err.WithFile("mods.yaml").WithIndex(2)
type ConfigError struct {
	baseError
	File  string
	Index int
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Index: -1, // -1 indicates not set
	}
}

// WithFile adds the descriptor file to the error context.
func (e *ConfigError) WithFile(path string) *ConfigError {
	e.File = path
	return e
}

// WithIndex adds the position of the offending descriptor within its file.
func (e *ConfigError) WithIndex(idx int) *ConfigError {
	e.Index = idx
	return e
}

// WithSeverity sets the error severity.
func (e *ConfigError) WithSeverity(s Severity) *ConfigError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.File != "" {
		parts = append(parts, fmt.Sprintf("file=%s", e.File))
	}
	if e.Index >= 0 {
		parts = append(parts, fmt.Sprintf("index=%d", e.Index))
	}

	prefix := "config error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("config error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// InstallError represents errors raised while installing one mod.
//
// Example:
//
//	err := errors.NewInstallError("fetch failed", errors.ErrDownloadFailed)
//	err = err.WithMod("jei").WithSource("https://example.com/jei.jar")
type InstallError struct {
	baseError
	Mod         string
	Source      string
	Destination string
}

// NewInstallError creates a new InstallError.
func NewInstallError(message string, cause error) *InstallError {
	return &InstallError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithMod adds the mod name to the error context.
func (e *InstallError) WithMod(name string) *InstallError {
	e.Mod = name
	return e
}

// WithSource adds the mod source to the error context.
func (e *InstallError) WithSource(source string) *InstallError {
	e.Source = source
	return e
}

// WithDestination adds the install destination to the error context.
func (e *InstallError) WithDestination(path string) *InstallError {
	e.Destination = path
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *InstallError) WithRetryable(r bool) *InstallError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *InstallError) Error() string {
	var parts []string
	if e.Mod != "" {
		parts = append(parts, fmt.Sprintf("mod=%s", e.Mod))
	}
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("source=%s", e.Source))
	}
	if e.Destination != "" {
		parts = append(parts, fmt.Sprintf("dest=%s", e.Destination))
	}

	prefix := "install error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("install error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *InstallError) Is(target error) bool {
	if _, ok := target.(*InstallError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("source file", "/tmp/jei.jar")
//	fmt.Println(err) // "source file '/tmp/jei.jar' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("mod name cannot be empty")
//	err = err.WithField("name").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("fetching jei", 30*time.Second)
//	fmt.Println(err) // "timeout error: fetching jei (timeout: 30s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing ModError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var modErr ModError
	if As(err, &modErr) {
		return modErr.IsRetryable()
	}

	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var modErr ModError
	if As(err, &modErr) {
		return modErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ModError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var modErr ModError
	if As(err, &modErr) {
		return modErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike building a new domain error, this preserves the ModError interface.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
