package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so a task handler or scoring batch never has to
// repeat task_id / run_id on every log statement.
type LogFields struct {
	TaskID          *string // Queue task ID
	TaskType        *string // "fetch" or "score"
	MessageID       *string // Redis stream message ID
	RunID           *int64  // Scoring run ID
	ValidatorPubkey *string // Validator node identity
	RequestID       *string // Inbound HTTP request ID
	Component       string  // Component name (OTel semantic convention style, e.g., "ssb.worker.pool")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.TaskID != nil {
		result.TaskID = next.TaskID
	}
	if next.TaskType != nil {
		result.TaskType = next.TaskType
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.RunID != nil {
		result.RunID = next.RunID
	}
	if next.ValidatorPubkey != nil {
		result.ValidatorPubkey = next.ValidatorPubkey
	}
	if next.RequestID != nil {
		result.RequestID = next.RequestID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
