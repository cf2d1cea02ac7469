package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Source feed errors (1xxx)
	ErrCodeCriticalSourceMissing ErrorCode = "FRSK1001"
	ErrCodeOptionalSourceMissing ErrorCode = "FRSK1002"
	ErrCodeSourceEmpty           ErrorCode = "FRSK1003"
	ErrCodeSheetNotFound         ErrorCode = "FRSK1004"
	ErrCodeFileNotFound          ErrorCode = "FRSK1005"
	ErrCodeFileRead              ErrorCode = "FRSK1006"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "FRSK2001"
	ErrCodeConfigInvalid  ErrorCode = "FRSK2002"
	ErrCodeConfigMissing  ErrorCode = "FRSK2003"

	// Schema errors (3xxx)
	ErrCodeSchemaDrift   ErrorCode = "FRSK3001"
	ErrCodeColumnMissing ErrorCode = "FRSK3002"
	ErrCodeTypeConflict  ErrorCode = "FRSK3003"

	// Key construction errors (4xxx)
	ErrCodeKeyConstruction ErrorCode = "FRSK4001"
	ErrCodeEmptyKey        ErrorCode = "FRSK4002"

	// Join errors (5xxx)
	ErrCodeJoinCardinality ErrorCode = "FRSK5001"
	ErrCodeJoinKeyMissing  ErrorCode = "FRSK5002"

	// Sink errors (6xxx)
	ErrCodeSinkWrite      ErrorCode = "FRSK6001"
	ErrCodeSinkConnection ErrorCode = "FRSK6002"

	// Validation errors (7xxx)
	ErrCodeValidationFailed ErrorCode = "FRSK7001"
	ErrCodeDataQuality      ErrorCode = "FRSK7002"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "FRSK9001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Run aborts
	SeverityError    ErrorSeverity = "ERROR"    // Stage failed, run may continue
	SeverityWarning  ErrorSeverity = "WARNING"  // Stage degraded, recorded in the run report
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured pipeline error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// CriticalSourceError reports a mandatory feed that is absent, empty or invalid.
// Always fatal for the run.
func CriticalSourceError(dataset, reason string) *AppError {
	return New(ErrCodeCriticalSourceMissing, fmt.Sprintf("critical source %s unavailable: %s", dataset, reason)).
		WithContext("dataset", dataset).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Check the feed file paths in the configuration",
			"Verify the sheet names match the source workbook",
		)
}

// OptionalSourceError reports an optional feed problem. The join step for the
// feed is skipped and the run continues.
func OptionalSourceError(dataset, reason string) *AppError {
	return New(ErrCodeOptionalSourceMissing, fmt.Sprintf("optional source %s unavailable: %s", dataset, reason)).
		WithContext("dataset", dataset).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// SchemaDriftError reports an expected column that was not found after fuzzy
// matching. Downstream logic degrades instead of failing.
func SchemaDriftError(dataset, column string) *AppError {
	return New(ErrCodeSchemaDrift, fmt.Sprintf("column %q not found in %s", column, dataset)).
		WithContext("dataset", dataset).
		WithContext("column", column).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// KeyConstructionError reports missing identifier columns. No downstream join
// can succeed without the key, so this is fatal for the source.
func KeyConstructionError(dataset string, missing []string) *AppError {
	return New(ErrCodeKeyConstruction, fmt.Sprintf("cannot build composite key for %s: missing %s", dataset, strings.Join(missing, ", "))).
		WithContext("dataset", dataset).
		WithContext("missing", missing).
		WithSeverity(SeverityError)
}

// EmptyKeyError reports rows whose composite key has no identifier content on
// either side. The rows are split out of the base before any join.
func EmptyKeyError(dataset string, count int) *AppError {
	return New(ErrCodeEmptyKey, fmt.Sprintf("%s: %d rows with an empty composite key", dataset, count)).
		WithContext("dataset", dataset).
		WithContext("rows", count).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// JoinCardinalityError reports a left join that multiplied rows because the
// right side carried unexpected duplicate keys.
func JoinCardinalityError(stage string, before, after int) *AppError {
	return New(ErrCodeJoinCardinality, fmt.Sprintf("%s: left join fanned out %d -> %d rows", stage, before, after)).
		WithContext("stage", stage).
		WithContext("rows_before", before).
		WithContext("rows_after", after).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'finrisk validate' to inspect the configuration",
		)
}

// SinkError creates a sink write error
func SinkError(name string, cause error) *AppError {
	return Wrap(cause, ErrCodeSinkWrite, fmt.Sprintf("failed to persist table %q", name)).
		WithContext("table", name)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}
