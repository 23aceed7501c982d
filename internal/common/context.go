package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID    contextKey = "run_id"
	ContextKeyDocument contextKey = "document"
)

// WithRunID adds a batch run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the batch run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithDocument adds the document stem being processed to the context
func WithDocument(ctx context.Context, stem string) context.Context {
	return context.WithValue(ctx, ContextKeyDocument, stem)
}

// DocumentFromContext extracts the document stem from context
func DocumentFromContext(ctx context.Context) string {
	if stem, ok := ctx.Value(ContextKeyDocument).(string); ok {
		return stem
	}
	return ""
}
