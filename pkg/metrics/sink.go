// Package metrics provides the external metrics sink the collection and
// training loops emit keyed scalars to. When metric logging is disabled the
// sink is a no-op.
package metrics

import "context"

// Standard metric keys emitted by the pipeline.
const (
	KeyTestScore = "test score"
	KeyDQNLoss   = "dqn loss"
	KeyAvgQ      = "avg q values"
)

// Sink accepts keyed scalar observations. Implementations must tolerate
// being called from a single goroutine per run; ordering across keys is not
// guaranteed.
type Sink interface {
	Log(ctx context.Context, key string, step int, value float64) error
	Close() error
}

// NopSink discards every observation.
type NopSink struct{}

func (NopSink) Log(ctx context.Context, key string, step int, value float64) error { return nil }
func (NopSink) Close() error                                                       { return nil }
