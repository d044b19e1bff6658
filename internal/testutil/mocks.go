// Package testutil provides scripted collaborators shared across package
// tests.
package testutil

import (
	"sync"

	"github.com/XiaoConstantine/distill-go/pkg/core"
)

// ScriptedEnv is a deterministic environment whose episodes have fixed
// lengths. States encode (episode, step) so tests can trace exactly which
// observation produced which sample.
type ScriptedEnv struct {
	EpisodeLens []int // length of each episode; cycles when exhausted

	episode int // completed resets - 1
	step    int
	done    bool
}

func (e *ScriptedEnv) episodeLen() int {
	if len(e.EpisodeLens) == 0 {
		return 1
	}
	return e.EpisodeLens[(e.episode)%len(e.EpisodeLens)]
}

func (e *ScriptedEnv) Reset() core.State {
	e.episode++
	e.step = 0
	e.done = false
	return e.state()
}

func (e *ScriptedEnv) state() core.State {
	return core.State{float64(e.episode), float64(e.step)}
}

func (e *ScriptedEnv) Step(action int) (core.Transition, error) {
	e.step++
	e.done = e.step >= e.episodeLen()
	return core.Transition{
		NextState: e.state(),
		Reward:    1,
		Done:      e.done,
	}, nil
}

func (e *ScriptedEnv) Render()              {}
func (e *ScriptedEnv) SampleAction() int    { return 0 }
func (e *ScriptedEnv) NumActions() int      { return 2 }
func (e *ScriptedEnv) ObservationSize() int { return 2 }

// Episode returns the index of the current episode (0-based; -1 before the
// first Reset).
func (e *ScriptedEnv) Episode() int { return e.episode }

// ScriptedEnv starts counting episodes at 0 on the first Reset.
func NewScriptedEnv(episodeLens ...int) *ScriptedEnv {
	return &ScriptedEnv{EpisodeLens: episodeLens, episode: -1}
}

// FnLearner computes Q-values with a pure function of the state and records
// every Step and SaveParams call. The zero QFn scores action 0 by the state
// sum and action 1 by its negation.
type FnLearner struct {
	QFn func(core.State) core.QVector

	mu         sync.Mutex
	StepCalls  int
	SavedSteps []int
}

func (l *FnLearner) Predict(states []core.State) []core.QVector {
	out := make([]core.QVector, len(states))
	for i, s := range states {
		if l.QFn != nil {
			out[i] = l.QFn(s)
			continue
		}
		var sum float64
		for _, v := range s {
			sum += v
		}
		out[i] = core.QVector{sum, -sum}
	}
	return out
}

func (l *FnLearner) Step(states []core.State, gradLogits []core.QVector) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.StepCalls++
	return nil
}

func (l *FnLearner) SaveParams(step int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SavedSteps = append(l.SavedSteps, step)
	return nil
}

// Saved returns a copy of the recorded checkpoint steps.
func (l *FnLearner) Saved() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int, len(l.SavedSteps))
	copy(out, l.SavedSteps)
	return out
}

var (
	_ core.Environment = (*ScriptedEnv)(nil)
	_ core.Learner     = (*FnLearner)(nil)
)
