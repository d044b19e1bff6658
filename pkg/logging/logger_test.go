package logging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput records entries in memory for assertions.
type captureOutput struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (c *captureOutput) Write(e LogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureOutput) Sync() error  { return nil }
func (c *captureOutput) Close() error { return nil }

func (c *captureOutput) all() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func TestLoggerSeverityFilter(t *testing.T) {
	capture := &captureOutput{}
	logger := NewLogger(Config{
		Severity: INFO,
		Outputs:  []Output{capture},
	})

	ctx := context.Background()
	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "episode %d done", 3)
	logger.Warn(ctx, "partial buffer")

	entries := capture.all()
	require.Len(t, entries, 2)
	assert.Equal(t, "episode 3 done", entries[0].Message)
	assert.Equal(t, INFO, entries[0].Severity)
	assert.Equal(t, WARN, entries[1].Severity)
}

func TestLoggerContextFields(t *testing.T) {
	capture := &captureOutput{}
	logger := NewLogger(Config{Severity: DEBUG, Outputs: []Output{capture}})

	ctx := WithMode(WithRunID(context.Background(), "run-42"), "test")
	logger.Info(ctx, "buffer fill %d", 17)

	entries := capture.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-42", entries[0].RunID)
	assert.Equal(t, "test", entries[0].Mode)
	assert.NotEmpty(t, entries[0].File)
	assert.NotZero(t, entries[0].Line)
}

func TestLoggerDefaultFields(t *testing.T) {
	capture := &captureOutput{}
	logger := NewLogger(Config{
		Severity:      DEBUG,
		Outputs:       []Output{capture},
		DefaultFields: map[string]interface{}{"env": "CartPole-v1"},
	})

	logger.Info(context.Background(), "hello")

	entries := capture.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "CartPole-v1", entries[0].Fields["env"])
}

func TestGlobalLogger(t *testing.T) {
	capture := &captureOutput{}
	custom := NewLogger(Config{Severity: DEBUG, Outputs: []Output{capture}})
	prev := GetLogger()
	SetLogger(custom)
	defer SetLogger(prev)

	assert.Same(t, custom, GetLogger())
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"DEBUG", DEBUG},
		{"INFO", INFO},
		{"WARN", WARN},
		{"ERROR", ERROR},
		{"FATAL", FATAL},
		{"bogus", INFO},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSeverity(tt.in))
	}
}
