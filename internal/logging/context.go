package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies a single invocation of the pipeline.
	FieldRunID = "run_id"
	// FieldCollection is the collection path currently being processed.
	FieldCollection = "collection"
	// FieldSlug is the item slug currently being processed.
	FieldSlug = "slug"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	runIDKey contextKey = iota
	collectionKey
	slugKey
)

// WithRunID tags ctx with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// WithCollection tags ctx with the collection path being processed.
func WithCollection(ctx context.Context, path string) context.Context {
	return withString(ctx, collectionKey, path)
}

// WithSlug tags ctx with the item slug being processed.
func WithSlug(ctx context.Context, slug string) context.Context {
	return withString(ctx, slugKey, slug)
}

// RunIDFromContext returns the run identifier stored on ctx.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, runIDKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 3)
	if id, ok := stringFrom(ctx, runIDKey); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if collection, ok := stringFrom(ctx, collectionKey); ok {
		fields = append(fields, slog.String(FieldCollection, collection))
	}
	if slug, ok := stringFrom(ctx, slugKey); ok {
		fields = append(fields, slog.String(FieldSlug, slug))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
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
