// Package errors provides the structured error type used across the
// converter for category-based classification and the fatal/recoverable
// split of the run taxonomy.
package errors

import "fmt"

// Category classifies a conversion error by pipeline phase.
type Category string

const (
	CategoryConfig   Category = "config"   // bad options, unknown enum values
	CategoryInput    Category = "input"    // unparsable XML, no/filtered-away buildings
	CategoryCRS      Category = "crs"      // transform setup, reprojection
	CategoryExtract  Category = "extract"  // per-building LOD extraction
	CategoryGeometry Category = "geometry" // face/shell/solid construction
	CategoryFusion   Category = "fusion"   // building-part union
	CategoryExport   Category = "export"   // STEP writing
	CategoryInternal Category = "internal"
)

// Severity indicates whether an error ends the run.
type Severity string

const (
	SeverityFatal   Severity = "fatal"   // aborts the run
	SeverityError   Severity = "error"   // building-level failure, run continues
	SeverityWarning Severity = "warning" // degraded output, run continues
)

// ConvertError is a structured error with category, severity and context.
type ConvertError struct {
	Category Category
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]any
}

func (e *ConvertError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

func (e *ConvertError) Unwrap() error { return e.Cause }

// WithContext attaches a key/value pair for structured logging.
func (e *ConvertError) WithContext(key string, value any) *ConvertError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a ConvertError.
func New(category Category, severity Severity, message string) *ConvertError {
	return &ConvertError{Category: category, Severity: severity, Message: message}
}

// Wrap creates a ConvertError wrapping a cause.
func Wrap(err error, category Category, severity Severity, message string) *ConvertError {
	return &ConvertError{Category: category, Severity: severity, Message: message, Cause: err}
}

// Fatal creates a run-ending ConvertError.
func Fatal(category Category, message string) *ConvertError {
	return New(category, SeverityFatal, message)
}

// WrapFatal wraps a cause into a run-ending ConvertError.
func WrapFatal(err error, category Category, message string) *ConvertError {
	return Wrap(err, category, SeverityFatal, message)
}

// IsFatal reports whether the error should abort the run. Unclassified
// errors are treated as fatal; the pipeline only continues past errors it
// has explicitly classified as recoverable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*ConvertError); ok {
		return ce.Severity == SeverityFatal
	}
	return true
}

// GetCategory extracts the category, defaulting to internal.
func GetCategory(err error) Category {
	if ce, ok := err.(*ConvertError); ok {
		return ce.Category
	}
	return CategoryInternal
}
