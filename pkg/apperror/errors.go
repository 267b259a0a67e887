// Package apperror provides a structured way to handle application errors
// with specific codes, severity levels, and additional details. Errors fall
// into the four families the simulation distinguishes: configuration, data,
// optimization and physical-state conditions.
package apperror

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// Configuration (fatal, rejected before a run starts)
	CodeInvalidNetwork  ErrorCode = "INVALID_NETWORK"
	CodeEmptyNetwork    ErrorCode = "EMPTY_NETWORK"
	CodeDuplicateNode   ErrorCode = "DUPLICATE_NODE"
	CodeDuplicateLink   ErrorCode = "DUPLICATE_LINK"
	CodeDanglingLink    ErrorCode = "DANGLING_LINK"
	CodeSelfLoop        ErrorCode = "SELF_LOOP"
	CodeInvertedBounds  ErrorCode = "INVERTED_BOUNDS"
	CodeCostHierarchy   ErrorCode = "COST_HIERARCHY"
	CodeInvalidCapacity ErrorCode = "INVALID_CAPACITY"
	CodeInvalidNodeKind ErrorCode = "INVALID_NODE_KIND"
	CodeLevelOutOfRange ErrorCode = "LEVEL_OUT_OF_RANGE"
	CodeInvalidScenario ErrorCode = "INVALID_SCENARIO"

	// Data (per-run; recoverable when the horizon can be truncated)
	CodeDataExhausted ErrorCode = "DATA_EXHAUSTED"
	CodeClimateData   ErrorCode = "CLIMATE_DATA"
	CodeTableRange    ErrorCode = "TABLE_RANGE"

	// Connectivity
	CodeIsolatedNode      ErrorCode = "ISOLATED_NODE"
	CodeUnreachableDemand ErrorCode = "UNREACHABLE_DEMAND"
	CodeDisconnected      ErrorCode = "DISCONNECTED_NETWORK"

	// Optimization
	CodeInfeasible     ErrorCode = "INFEASIBLE"
	CodeDegenerate     ErrorCode = "DEGENERATE"
	CodeNegativeCycle  ErrorCode = "NEGATIVE_CYCLE"
	CodeIterationLimit ErrorCode = "ITERATION_LIMIT"

	// Physical state (usually warnings)
	CodeEvaporationClamped ErrorCode = "EVAPORATION_CLAMPED"
	CodeNegativeStorage    ErrorCode = "NEGATIVE_STORAGE"
	CodeDeadPoolNear       ErrorCode = "DEAD_POOL_NEAR"
	CodeMassBalance        ErrorCode = "MASS_BALANCE"
	CodeBoundViolation     ErrorCode = "BOUND_VIOLATION"

	// General
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNilInput        ErrorCode = "NIL_INPUT"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue that is logged and accumulated
	// but never interrupts a run.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that fails the current operation.
	SeverityError
	// SeverityCritical indicates a severe error that aborts the whole run.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
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

// Error is a custom error type that includes an ErrorCode, message,
// an optional field, additional details, an underlying cause, and a severity level.
type Error struct {
	Code     ErrorCode      // Code is a unique identifier for the type of error.
	Message  string         // Message is a human-readable description of the error.
	Field    string         // Field indicates which node, link or config key caused the error.
	Details  map[string]any // Details provides additional structured information about the error.
	Cause    error          // Cause is the underlying error that triggered this application error.
	Severity Severity       // Severity indicates the criticality level of the error.
}

// Error implements the error interface, returning a string representation of the error.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, allowing for error chain introspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new application error with the given code and message.
// The default severity is SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// Newf creates a new application error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithField creates a new application error with the given code, message, and field.
// The default severity is SeverityError.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Field:    field,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWarning creates a new application error with SeverityWarning.
func NewWarning(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityWarning,
	}
}

// NewWarningf creates a new warning with a formatted message.
func NewWarningf(code ErrorCode, format string, args ...any) *Error {
	return NewWarning(code, fmt.Sprintf(format, args...))
}

// NewCritical creates a new application error with SeverityCritical.
func NewCritical(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityCritical,
	}
}

// Wrap creates a new application error that wraps an existing error,
// providing additional context with a code and message.
// The default severity is SeverityError.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Cause:    cause,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// WithDetails adds a key-value pair to the error's details map and returns the modified error.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// WithField sets the field associated with the error and returns the modified error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error and returns the modified error.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is checks if the given error is an application error with a matching ErrorCode.
// It uses errors.As to unwrap the error chain.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from an error. If the error is not an *Error,
// it returns CodeInternal.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsWarning checks if the given error is an application error with SeverityWarning.
func IsWarning(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityWarning
	}
	return false
}

// IsCritical checks if the given error is an application error with SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// Predefined errors for common scenarios.
var (
	ErrEmptyNetwork  = New(CodeEmptyNetwork, "network has no nodes")
	ErrNilNetwork    = New(CodeNilInput, "network is nil")
	ErrNegativeCycle = New(CodeNegativeCycle, "network contains a negative-cost cycle")
	ErrDataExhausted = New(CodeDataExhausted, "series has no more data")
)

// ValidationErrors is a collection of application errors and warnings,
// typically used for aggregating results of multiple validation checks.
type ValidationErrors struct {
	Errors   []*Error // Errors contains all collected errors (SeverityError and SeverityCritical).
	Warnings []*Error // Warnings contains all collected warnings (SeverityWarning).
}

// NewValidationErrors creates and returns a new empty ValidationErrors collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add appends an *Error to the appropriate slice (Errors or Warnings)
// based on its Severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

// AddError creates and adds a new application error with SeverityError.
func (v *ValidationErrors) AddError(code ErrorCode, message string) {
	v.Errors = append(v.Errors, New(code, message))
}

// AddErrorf creates and adds a new application error with a formatted message.
func (v *ValidationErrors) AddErrorf(code ErrorCode, format string, args ...any) {
	v.Errors = append(v.Errors, Newf(code, format, args...))
}

// AddWarning creates and adds a new application error with SeverityWarning.
func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, NewWarning(code, message))
}

// AddWarningf creates and adds a new warning with a formatted message.
func (v *ValidationErrors) AddWarningf(code ErrorCode, format string, args ...any) {
	v.Warnings = append(v.Warnings, NewWarningf(code, format, args...))
}

// AddErrorWithField creates and adds a new application error with a specific field.
func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Errors = append(v.Errors, NewWithField(code, message, field))
}

// HasErrors returns true if the collection contains any errors (non-warning severity).
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// HasWarnings returns true if the collection contains any warnings.
func (v *ValidationErrors) HasWarnings() bool {
	return len(v.Warnings) > 0
}

// IsValid returns true if the collection contains no errors (warnings do not affect validity).
func (v *ValidationErrors) IsValid() bool {
	return !v.HasErrors()
}

// Merge combines the current ValidationErrors collection with another one.
// All errors and warnings from the 'other' collection are appended to the current one.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// ErrorMessages returns a slice of string messages for all collected errors.
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// WarningMessages returns a slice of string messages for all collected warnings.
func (v *ValidationErrors) WarningMessages() []string {
	messages := make([]string, len(v.Warnings))
	for i, warn := range v.Warnings {
		messages[i] = warn.Message
	}
	return messages
}

// AsError collapses the collection to a single error value: nil when valid,
// otherwise the first error annotated with the total count.
func (v *ValidationErrors) AsError() error {
	if v.IsValid() {
		return nil
	}
	first := v.Errors[0]
	if len(v.Errors) == 1 {
		return first
	}
	return Wrap(first, first.Code,
		fmt.Sprintf("%s (and %d more errors)", first.Message, len(v.Errors)-1))
}
