package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryValidation represents user-facing input errors (bad timer input, bad config).
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// CategoryStorage represents durable key-value store errors.
	CategoryStorage   ErrorCategory = "storage"
	CategoryHydration ErrorCategory = "hydration"

	// CategoryReminder and CategoryChecklist cover best-effort side-effect boundaries.
	CategoryReminder  ErrorCategory = "reminder"
	CategoryChecklist ErrorCategory = "checklist"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution completely
	SeverityError   ErrorSeverity = "error"   // Fails the current operation
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// ErrorContext carries structured key-value context attached to an error.
type ErrorContext map[string]any

// Set returns a copy of the context with the key set.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	out := make(ErrorContext, len(c)+1)
	maps.Copy(out, c)
	out[key] = value
	return out
}

// Merge returns a copy of the context merged with other (other wins on conflict).
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	out := make(ErrorContext, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}
