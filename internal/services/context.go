package services

import "context"

type contextKey string

const (
	rigKey       contextKey = "rig"
	operationKey contextKey = "operation"
	requestIDKey contextKey = "request_id"
)

// WithRig annotates context with the rig name being processed.
func WithRig(ctx context.Context, rig string) context.Context {
	if rig == "" {
		return ctx
	}
	return context.WithValue(ctx, rigKey, rig)
}

// RigFromContext returns the rig name if present.
func RigFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(rigKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithOperation annotates context with the pipeline operation name
// (calibrate, overwrite, verify, ...).
func WithOperation(ctx context.Context, operation string) context.Context {
	if operation == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, operation)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(operationKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
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
