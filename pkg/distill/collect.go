package distill

import (
	"context"

	"github.com/XiaoConstantine/distill-go/pkg/buffer"
	"github.com/XiaoConstantine/distill-go/pkg/config"
	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/logging"
	"github.com/XiaoConstantine/distill-go/pkg/metrics"
)

// CollectRunner replays the environment with a frozen teacher and appends
// one (state, q_values) transition sample per step to the distillation
// buffer. The run stops the instant the buffer reaches capacity, even
// mid-episode.
type CollectRunner struct {
	cfg     *config.Config
	env     core.Environment
	teacher core.QNetwork
	buf     *buffer.Buffer
	sink    metrics.Sink
	logger  *logging.Logger
	runID   string

	currState core.State // state cached by SelectAction for the next Step
}

// SelectAction computes the teacher's Q-vector for the state and picks the
// greedy action. The returned vector is computed from exactly the state
// passed in on this call; it is cached together with the state so Step can
// pair them without recomputation.
func (r *CollectRunner) SelectAction(state core.State) (int, core.QVector, error) {
	r.currState = state.Clone()
	q := r.teacher.Predict([]core.State{state})[0]
	return q.ArgMax(), q.Clone(), nil
}

// Step advances the environment and appends the cached state with the
// Q-vector from the matching SelectAction call.
func (r *CollectRunner) Step(action int, qValues core.QVector) (core.Transition, error) {
	tr, err := r.env.Step(action)
	if err != nil {
		return core.Transition{}, err
	}
	if err := r.buf.Append(r.currState, qValues); err != nil {
		return core.Transition{}, err
	}
	return tr, nil
}

// Run collects until the buffer is full or the configured episodes are
// spent. A full buffer is the successful outcome; running out of episodes
// first leaves a partial buffer and is reported loudly, because training on
// a partial buffer silently skews the student.
func (r *CollectRunner) Run(ctx context.Context) error {
	ctx = logging.WithMode(logging.WithRunID(ctx, r.runID), string(config.ModeTest))

	for episode := 0; episode < r.cfg.Hyper.EpisodeNum && !r.buf.Full(); episode++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		state := r.env.Reset()
		var score float64
		var steps int
		done := false

		for !done && !r.buf.Full() {
			if r.cfg.Env.Render {
				r.env.Render()
			}
			action, qValues, err := r.SelectAction(state)
			if err != nil {
				return err
			}
			tr, err := r.Step(action, qValues)
			if err != nil {
				return err
			}

			state = tr.NextState
			score += tr.Reward
			steps++
			done = tr.Done
		}

		r.logger.Info(ctx, "test %d\tstep: %d\ttotal score: %.0f\tbuffer_size: %d",
			episode, steps, score, r.buf.Len())
		if r.cfg.Metrics.Log {
			if err := r.sink.Log(ctx, metrics.KeyTestScore, episode, score); err != nil {
				return err
			}
		}

		if r.buf.Full() {
			r.logger.Info(ctx, "buffer saved completely (%s)", r.buf.Dir())
			return nil
		}
	}

	if !r.buf.Full() {
		r.logger.Warn(ctx, "episodes exhausted with partial buffer: %d/%d samples in %s",
			r.buf.Len(), r.buf.Capacity(), r.buf.Dir())
	}
	return nil
}

// Buffer exposes the underlying buffer, mainly for inspection after a run.
func (r *CollectRunner) Buffer() *buffer.Buffer {
	return r.buf
}
