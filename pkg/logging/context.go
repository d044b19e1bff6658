package logging

import "context"

type contextKey string

const (
	runIDKey contextKey = "distill_run_id"
	modeKey  contextKey = "distill_mode"
)

// WithRunID attaches a run identifier to the context so every log line from
// that run carries it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID extracts the run identifier from the context.
func GetRunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok
}

// WithMode attaches the operating mode to the context.
func WithMode(ctx context.Context, mode string) context.Context {
	return context.WithValue(ctx, modeKey, mode)
}

// GetMode extracts the operating mode from the context.
func GetMode(ctx context.Context) (string, bool) {
	m, ok := ctx.Value(modeKey).(string)
	return m, ok
}
