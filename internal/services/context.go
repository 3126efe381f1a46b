package services

import "context"

type contextKey string

const (
	instanceIDKey contextKey = "instance_id"
	pluginKey     contextKey = "plugin"
	familyKey     contextKey = "family"
	requestIDKey  contextKey = "request_id"
)

// WithInstanceID annotates context with the instance identifier.
func WithInstanceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, instanceIDKey, id)
}

// InstanceIDFromContext extracts the instance identifier if present.
func InstanceIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(instanceIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPlugin annotates context with the running creator or extractor name.
func WithPlugin(ctx context.Context, plugin string) context.Context {
	if plugin == "" {
		return ctx
	}
	return context.WithValue(ctx, pluginKey, plugin)
}

// PluginFromContext returns the plugin name if present.
func PluginFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(pluginKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFamily annotates context with the instance family.
func WithFamily(ctx context.Context, family string) context.Context {
	if family == "" {
		return ctx
	}
	return context.WithValue(ctx, familyKey, family)
}

// FamilyFromContext returns the family if present.
func FamilyFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(familyKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
