// Package agent implements the base single-agent training loop the
// distillation phases build on: epsilon-greedy exploration over a learner's
// Q-network with a TD(0) update per step. The distillation teacher phase
// injects its own action selector to observe every visited state without
// reimplementing this loop.
package agent

import (
	"context"
	"math/rand"

	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
	"github.com/XiaoConstantine/distill-go/pkg/logging"
)

// Config holds the base loop hyper-parameters.
type Config struct {
	EpisodeNum   int
	Epsilon      float64 // initial exploration rate
	EpsilonMin   float64
	EpsilonDecay float64 // multiplicative decay per episode
	Gamma        float64 // discount factor
}

// DQN is a minimal value-based agent: one learner, one environment, an
// epsilon-greedy behavior policy, and a per-step TD(0) update.
type DQN struct {
	env     core.Environment
	learner core.Learner
	cfg     Config
	rng     *rand.Rand
	logger  *logging.Logger

	epsilon        float64
	selector       core.ActionSelector
	episodeHook    func(episode int)
	episodeEndHook func(ctx context.Context, episode int) error
}

// Option configures a DQN.
type Option func(*DQN)

// WithActionSelector replaces the agent's own epsilon-greedy selection.
// The training loop routes every action choice through the selector, which
// is how the teacher phase observes states.
func WithActionSelector(s core.ActionSelector) Option {
	return func(d *DQN) {
		d.selector = s
	}
}

// WithEpisodeHook registers a callback invoked at the start of every
// training episode with the episode index.
func WithEpisodeHook(hook func(episode int)) Option {
	return func(d *DQN) {
		d.episodeHook = hook
	}
}

// WithEpisodeEndHook registers a callback invoked after every completed
// training episode. An error from the hook aborts training.
func WithEpisodeEndHook(hook func(ctx context.Context, episode int) error) Option {
	return func(d *DQN) {
		d.episodeEndHook = hook
	}
}

// WithRand sets the exploration randomness source.
func WithRand(rng *rand.Rand) Option {
	return func(d *DQN) {
		d.rng = rng
	}
}

// New constructs the base agent.
func New(environment core.Environment, learner core.Learner, cfg Config, opts ...Option) (*DQN, error) {
	if environment == nil || learner == nil {
		return nil, errors.New(errors.InvalidConfig, "agent requires an environment and a learner")
	}
	if cfg.EpisodeNum <= 0 {
		return nil, errors.New(errors.InvalidConfig, "episode_num must be positive")
	}

	d := &DQN{
		env:     environment,
		learner: learner,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(rand.Int63())),
		logger:  logging.GetLogger(),
		epsilon: cfg.Epsilon,
	}
	d.selector = d
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SelectAction picks an action for the state: greedy during evaluation,
// epsilon-greedy during training.
func (d *DQN) SelectAction(state core.State, isTest bool) (int, error) {
	q := d.learner.Predict([]core.State{state})[0]
	if !isTest && d.rng.Float64() < d.epsilon {
		return d.env.SampleAction(), nil
	}
	return q.ArgMax(), nil
}

// Step forwards the action to the environment.
func (d *DQN) Step(action int) (core.Transition, error) {
	return d.env.Step(action)
}

// Env returns the agent's environment handle.
func (d *DQN) Env() core.Environment {
	return d.env
}

// Epsilon returns the current exploration rate.
func (d *DQN) Epsilon() float64 {
	return d.epsilon
}

// Train runs the base training loop for the configured number of episodes.
func (d *DQN) Train(ctx context.Context) error {
	for episode := 0; episode < d.cfg.EpisodeNum; episode++ {
		if err := errors.CheckContext(ctx, "agent training"); err != nil {
			return err
		}
		if d.episodeHook != nil {
			d.episodeHook(episode)
		}

		state := d.env.Reset()
		var score float64
		var steps int

		for {
			action, err := d.selector.SelectAction(state, false)
			if err != nil {
				return err
			}
			tr, err := d.Step(action)
			if err != nil {
				return err
			}
			if err := d.update(state, action, tr); err != nil {
				return err
			}

			score += tr.Reward
			steps++
			state = tr.NextState
			if tr.Done {
				break
			}
		}

		d.decayEpsilon()
		d.logger.Debug(ctx, "episode %d\tstep: %d\tscore: %.0f\tepsilon: %.3f",
			episode, steps, score, d.epsilon)

		if d.episodeEndHook != nil {
			if err := d.episodeEndHook(ctx, episode); err != nil {
				return err
			}
		}
	}
	return nil
}

// update applies one TD(0) step toward r + gamma * max_a' Q(s', a').
func (d *DQN) update(state core.State, action int, tr core.Transition) error {
	pred := d.learner.Predict([]core.State{state})[0]

	target := tr.Reward
	if !tr.Done {
		next := d.learner.Predict([]core.State{tr.NextState})[0]
		target += d.cfg.Gamma * next[next.ArgMax()]
	}

	grad := make(core.QVector, len(pred))
	grad[action] = pred[action] - target
	return d.learner.Step([]core.State{state}, []core.QVector{grad})
}

func (d *DQN) decayEpsilon() {
	if d.cfg.EpsilonDecay <= 0 {
		return
	}
	d.epsilon *= d.cfg.EpsilonDecay
	if d.epsilon < d.cfg.EpsilonMin {
		d.epsilon = d.cfg.EpsilonMin
	}
}

var _ core.Agent = (*DQN)(nil)
