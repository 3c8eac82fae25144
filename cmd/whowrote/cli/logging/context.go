package logging

import (
	"context"
)

// Context keys for logging values.
type contextKey int

const (
	componentKey contextKey = iota
	providerKey
	sessionIDKey
	commitKey
)

// WithComponent adds a component name to the context, e.g. "capture" or "rewrite".
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithProvider adds the AI tool that produced an edit event.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey, provider)
}

// WithSession adds the provider's conversation/session ID.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithCommit adds the commit SHA being processed.
func WithCommit(ctx context.Context, sha string) context.Context {
	return context.WithValue(ctx, commitKey, sha)
}

// ComponentFromContext extracts the component name from the context.
func ComponentFromContext(ctx context.Context) string {
	s, _ := ctx.Value(componentKey).(string)
	return s
}

// ProviderFromContext extracts the provider name from the context.
func ProviderFromContext(ctx context.Context) string {
	s, _ := ctx.Value(providerKey).(string)
	return s
}

// CommitFromContext extracts the commit SHA from the context.
func CommitFromContext(ctx context.Context) string {
	s, _ := ctx.Value(commitKey).(string)
	return s
}
