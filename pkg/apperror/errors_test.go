// Package apperror provides tests for the custom error types and utility functions.
package apperror

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestNew verifies that New creates an error with the correct code, message and defaults.
func TestNew(t *testing.T) {
	err := New(CodeInvalidNetwork, "network is invalid")

	if err.Code != CodeInvalidNetwork {
		t.Errorf("Code = %v, want %v", err.Code, CodeInvalidNetwork)
	}
	if err.Message != "network is invalid" {
		t.Errorf("Message = %v, want 'network is invalid'", err.Message)
	}
	if err.Severity != SeverityError {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityError)
	}
	if err.Details == nil {
		t.Error("Details should be initialized")
	}
}

// TestError_Error verifies that the Error() method returns the correct string format.
func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeEmptyNetwork, "network has no nodes"),
			expected: "[EMPTY_NETWORK] network has no nodes",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeDanglingLink, "link references missing node", "canal-1"),
			expected: "[DANGLING_LINK] link references missing node (field: canal-1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestNewf verifies that Newf formats the message.
func TestNewf(t *testing.T) {
	err := Newf(CodeInvertedBounds, "min %g exceeds max %g", 10.0, 5.0)

	if err.Message != "min 10 exceeds max 5" {
		t.Errorf("Message = %v, want 'min 10 exceeds max 5'", err.Message)
	}
	if err.Code != CodeInvertedBounds {
		t.Errorf("Code = %v, want %v", err.Code, CodeInvertedBounds)
	}
}

// TestNewWarning verifies that NewWarning creates an error with SeverityWarning.
func TestNewWarning(t *testing.T) {
	err := NewWarning(CodeEvaporationClamped, "evaporation exceeds stored volume")

	if err.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityWarning)
	}
}

// TestNewCritical verifies that NewCritical creates an error with SeverityCritical.
func TestNewCritical(t *testing.T) {
	err := NewCritical(CodeInternal, "solver panicked")

	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
}

// TestWrap verifies that Wrap preserves the cause and supports errors.Unwrap.
func TestWrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := Wrap(cause, CodeInfeasible, "allocation failed")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap() should return the cause")
	}
}

// TestWithDetails verifies that WithDetails adds key-value pairs to the Details map.
func TestWithDetails(t *testing.T) {
	err := New(CodeInfeasible, "demand exceeds supply").
		WithDetails("shortfall", 150.0).
		WithDetails("node_count", 10)

	if err.Details["shortfall"] != 150.0 {
		t.Errorf("Details[shortfall] = %v, want 150.0", err.Details["shortfall"])
	}
	if err.Details["node_count"] != 10 {
		t.Errorf("Details[node_count] = %v, want 10", err.Details["node_count"])
	}
}

// TestWithField verifies that WithField sets the field of the error.
func TestWithField(t *testing.T) {
	err := New(CodeDuplicateNode, "duplicate node name").WithField("reservoir-a")

	if err.Field != "reservoir-a" {
		t.Errorf("Field = %v, want reservoir-a", err.Field)
	}
}

// TestWithSeverity verifies that WithSeverity sets the severity level of the error.
func TestWithSeverity(t *testing.T) {
	err := New(CodeInvalidNetwork, "invalid").WithSeverity(SeverityCritical)

	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
}

// TestIs verifies the Is function correctly identifies errors by their ErrorCode.
func TestIs(t *testing.T) {
	err := New(CodeEmptyNetwork, "empty network")

	if !Is(err, CodeEmptyNetwork) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, CodeInvalidNetwork) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(errors.New("regular error"), CodeEmptyNetwork) {
		t.Error("Is() should return false for non-Error")
	}
}

// TestIs_Wrapped verifies that Is unwraps fmt.Errorf chains.
func TestIs_Wrapped(t *testing.T) {
	inner := New(CodeDataExhausted, "series ended")
	wrapped := fmt.Errorf("step 12: %w", inner)

	if !Is(wrapped, CodeDataExhausted) {
		t.Error("Is() should unwrap fmt.Errorf chains")
	}
}

// TestCode verifies the Code function correctly extracts the ErrorCode.
func TestCode(t *testing.T) {
	err := New(CodeUnreachableDemand, "no path to demand")

	if Code(err) != CodeUnreachableDemand {
		t.Errorf("Code() = %v, want %v", Code(err), CodeUnreachableDemand)
	}

	regularErr := errors.New("regular error")
	if Code(regularErr) != CodeInternal {
		t.Errorf("Code() for regular error = %v, want %v", Code(regularErr), CodeInternal)
	}
}

// TestIsWarning verifies the IsWarning function correctly identifies warning errors.
func TestIsWarning(t *testing.T) {
	warning := NewWarning(CodeDeadPoolNear, "reservoir near dead pool")
	err := New(CodeInvalidNetwork, "invalid")

	if !IsWarning(warning) {
		t.Error("IsWarning() should return true for warning")
	}
	if IsWarning(err) {
		t.Error("IsWarning() should return false for error")
	}
}

// TestIsCritical verifies the IsCritical function correctly identifies critical errors.
func TestIsCritical(t *testing.T) {
	critical := NewCritical(CodeInternal, "critical")
	err := New(CodeInvalidNetwork, "invalid")

	if !IsCritical(critical) {
		t.Error("IsCritical() should return true for critical")
	}
	if IsCritical(err) {
		t.Error("IsCritical() should return false for error")
	}
}

// TestSeverity_String verifies the String method of Severity returns the correct string representation.
func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		expected string
	}{
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.expected {
			t.Errorf("Severity.String() = %v, want %v", got, tt.expected)
		}
	}
}

// TestValidationErrors verifies the functionality of the ValidationErrors collection.
func TestValidationErrors(t *testing.T) {
	t.Run("new validation errors", func(t *testing.T) {
		ve := NewValidationErrors()
		if ve.HasErrors() {
			t.Error("new ValidationErrors should not have errors")
		}
		if ve.HasWarnings() {
			t.Error("new ValidationErrors should not have warnings")
		}
		if !ve.IsValid() {
			t.Error("new ValidationErrors should be valid")
		}
	})

	t.Run("add error", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddError(CodeInvalidNetwork, "invalid network")

		if !ve.HasErrors() {
			t.Error("should have errors")
		}
		if ve.IsValid() {
			t.Error("should not be valid")
		}
		if len(ve.Errors) != 1 {
			t.Errorf("errors count = %d, want 1", len(ve.Errors))
		}
	})

	t.Run("add warning", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddWarning(CodeDeadPoolNear, "near dead pool")

		if !ve.HasWarnings() {
			t.Error("should have warnings")
		}
		if !ve.IsValid() {
			t.Error("should be valid (warnings don't affect validity)")
		}
	})

	t.Run("add error with field", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddErrorWithField(CodeSelfLoop, "link connects node to itself", "loop-1")

		if ve.Errors[0].Field != "loop-1" {
			t.Errorf("Field = %v, want loop-1", ve.Errors[0].Field)
		}
	})

	t.Run("add via Add method", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.Add(NewWarning(CodeDeadPoolNear, "warning"))
		ve.Add(New(CodeInvalidNetwork, "error"))

		if len(ve.Warnings) != 1 {
			t.Errorf("warnings count = %d, want 1", len(ve.Warnings))
		}
		if len(ve.Errors) != 1 {
			t.Errorf("errors count = %d, want 1", len(ve.Errors))
		}
	})

	t.Run("add formatted", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddErrorf(CodeInvertedBounds, "link %q: min %g > max %g", "canal", 5.0, 2.0)
		ve.AddWarningf(CodeNegativeStorage, "level %g below zero", -1.5)

		if !strings.Contains(ve.Errors[0].Message, `"canal"`) {
			t.Errorf("formatted error message = %v", ve.Errors[0].Message)
		}
		if !strings.Contains(ve.Warnings[0].Message, "-1.5") {
			t.Errorf("formatted warning message = %v", ve.Warnings[0].Message)
		}
	})

	t.Run("merge", func(t *testing.T) {
		ve1 := NewValidationErrors()
		ve1.AddError(CodeInvalidNetwork, "error1")

		ve2 := NewValidationErrors()
		ve2.AddError(CodeSelfLoop, "error2")
		ve2.AddWarning(CodeDeadPoolNear, "warning")

		ve1.Merge(ve2)

		if len(ve1.Errors) != 2 {
			t.Errorf("errors count = %d, want 2", len(ve1.Errors))
		}
		if len(ve1.Warnings) != 1 {
			t.Errorf("warnings count = %d, want 1", len(ve1.Warnings))
		}
	})

	t.Run("merge nil", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.Merge(nil) // should not panic
	})

	t.Run("error messages", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddError(CodeInvalidNetwork, "error1")
		ve.AddError(CodeSelfLoop, "error2")

		messages := ve.ErrorMessages()
		if len(messages) != 2 {
			t.Errorf("messages count = %d, want 2", len(messages))
		}
	})

	t.Run("warning messages", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddWarning(CodeDeadPoolNear, "warning1")

		messages := ve.WarningMessages()
		if len(messages) != 1 {
			t.Errorf("messages count = %d, want 1", len(messages))
		}
		if messages[0] != "warning1" {
			t.Errorf("message = %v, want warning1", messages[0])
		}
	})
}

// TestValidationErrors_AsError verifies collapsing the collection to a single error value.
func TestValidationErrors_AsError(t *testing.T) {
	t.Run("valid collection", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddWarning(CodeDeadPoolNear, "only a warning")

		if err := ve.AsError(); err != nil {
			t.Errorf("AsError() = %v, want nil", err)
		}
	})

	t.Run("single error", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddError(CodeEmptyNetwork, "no nodes")

		err := ve.AsError()
		if !Is(err, CodeEmptyNetwork) {
			t.Errorf("AsError() code = %v, want %v", Code(err), CodeEmptyNetwork)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddError(CodeDuplicateNode, "dup1")
		ve.AddError(CodeDuplicateNode, "dup2")
		ve.AddError(CodeSelfLoop, "loop")

		err := ve.AsError()
		if err == nil {
			t.Fatal("AsError() should not be nil")
		}
		if !strings.Contains(err.Error(), "2 more errors") {
			t.Errorf("AsError() = %v, want mention of 2 more errors", err)
		}
		if Code(err) != CodeDuplicateNode {
			t.Errorf("AsError() code = %v, want first error's code", Code(err))
		}
	})
}

// TestPredefinedErrors verifies that all predefined errors are correctly initialized.
func TestPredefinedErrors(t *testing.T) {
	predefinedErrors := []*Error{
		ErrEmptyNetwork,
		ErrNilNetwork,
		ErrNegativeCycle,
		ErrDataExhausted,
	}

	for _, err := range predefinedErrors {
		if err == nil {
			t.Error("predefined error should not be nil")
			continue
		}
		if err.Code == "" {
			t.Error("predefined error should have a code")
		}
		if err.Message == "" {
			t.Error("predefined error should have a message")
		}
	}
}
