package logging

import (
	"context"
	"log/slog"

	"dccpub/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldInstanceID is the standardized key for publish instance identifiers.
	FieldInstanceID = "instance_id"
	// FieldSubset is the standardized key for instance subset names.
	FieldSubset = "subset"
	// FieldFamily is the standardized key for instance families.
	FieldFamily = "family"
	// FieldPlugin is the standardized key for creator and extractor names.
	FieldPlugin = "plugin"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. extract_complete).
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the taxonomy label of an error.
	FieldErrorKind = "error_kind"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.InstanceIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldInstanceID, id))
	}
	if family, ok := services.FamilyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFamily, family))
	}
	if plugin, ok := services.PluginFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPlugin, plugin))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
