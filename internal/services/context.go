package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	routeKey     contextKey = "route"
	workspaceKey contextKey = "workspace"
)

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

// WithRoute annotates context with the tool route serving the request (e.g. image_resize).
func WithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey, route)
}

// RouteFromContext returns the route name if present.
func RouteFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(routeKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithWorkspace annotates context with the name of the request's scratch directory.
func WithWorkspace(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, workspaceKey, name)
}

// WorkspaceFromContext returns the workspace directory name if present.
func WorkspaceFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(workspaceKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
