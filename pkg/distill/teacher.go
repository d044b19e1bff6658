package distill

import (
	"context"

	"github.com/XiaoConstantine/distill-go/pkg/config"
	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/logging"
	"github.com/XiaoConstantine/distill-go/pkg/metrics"
	"github.com/XiaoConstantine/distill-go/pkg/record"
)

// TeacherRunner runs the base training loop while persisting every visited
// raw state to disk, one record per environment step. Evaluation rollouts
// go through the same selector with isTest set and persist nothing.
type TeacherRunner struct {
	cfg     *config.Config
	env     core.Environment
	base    core.Agent
	learner core.Learner
	store   *record.StateStore
	sink    metrics.Sink
	logger  *logging.Logger
	runID   string
}

// SelectAction persists the state (training passes only), then delegates
// the actual choice to the base policy.
func (r *TeacherRunner) SelectAction(state core.State, isTest bool) (int, error) {
	if !isTest {
		if err := r.store.Append(state); err != nil {
			return 0, err
		}
	}
	return r.base.SelectAction(state, isTest)
}

// Run trains the teacher, then evaluates it over the configured number of
// episodes.
func (r *TeacherRunner) Run(ctx context.Context) error {
	ctx = logging.WithMode(logging.WithRunID(ctx, r.runID), string(config.ModeTeacher))

	r.logger.Info(ctx, "teacher training for %d episodes, dumping states to %s",
		r.cfg.Hyper.EpisodeNum, r.store.Root())
	if err := r.base.Train(ctx); err != nil {
		return err
	}
	r.logger.Info(ctx, "teacher training done, %d raw states dumped", r.store.SaveCount())

	return r.Eval(ctx, false)
}

// Eval runs evaluation episodes with the frozen policy: no exploration, no
// state persistence, no buffer interaction. interim selects the reduced
// episode count used for periodic checks during training.
func (r *TeacherRunner) Eval(ctx context.Context, interim bool) error {
	episodes := r.cfg.Hyper.EpisodeNum
	if interim {
		episodes = r.cfg.Hyper.InterimTestNum
	}

	for episode := 0; episode < episodes; episode++ {
		state := r.env.Reset()
		var score float64
		var steps int
		done := false

		for !done {
			if r.cfg.Env.Render {
				r.env.Render()
			}
			action, err := r.SelectAction(state, true)
			if err != nil {
				return err
			}
			tr, err := r.base.Step(action)
			if err != nil {
				return err
			}
			state = tr.NextState
			score += tr.Reward
			steps++
			done = tr.Done
		}

		r.logger.Info(ctx, "test %d\tstep: %d\ttotal score: %.0f", episode, steps, score)
		if r.cfg.Metrics.Log {
			if err := r.sink.Log(ctx, metrics.KeyTestScore, episode, score); err != nil {
				return err
			}
		}
	}
	return nil
}

// episodeEnd is the periodic pass after each training episode: every
// save_period episodes the teacher's parameters are checkpointed and a
// short interim evaluation reports how the policy is doing.
func (r *TeacherRunner) episodeEnd(ctx context.Context, episode int) error {
	period := r.cfg.Hyper.SavePeriod
	if period <= 0 || (episode+1)%period != 0 {
		return nil
	}
	if err := r.learner.SaveParams(episode); err != nil {
		return err
	}
	return r.Eval(ctx, true)
}

// SaveCount exposes the number of raw states dumped so far.
func (r *TeacherRunner) SaveCount() int {
	return r.store.SaveCount()
}

// DumpDir returns the directory raw states are written under.
func (r *TeacherRunner) DumpDir() string {
	return r.store.Root()
}
