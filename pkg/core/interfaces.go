package core

import "context"

// Environment is the minimal contract a task environment must satisfy.
// Implementations own their randomness; SampleAction draws uniformly from
// the action space.
type Environment interface {
	Reset() State
	Step(action int) (Transition, error)
	Render()
	SampleAction() int
	NumActions() int
	ObservationSize() int
}

// QNetwork evaluates a batch of states and returns one Q-vector per state.
type QNetwork interface {
	Predict(states []State) []QVector
}

// Learner owns a Q-network together with its optimizer and checkpointing.
// Step performs one optimizer update from per-sample logit gradients:
// gradients are zeroed, backpropagated from gradLogits, and applied in a
// single call so callers cannot observe a half-updated network.
type Learner interface {
	QNetwork
	Step(states []State, gradLogits []QVector) error
	SaveParams(step int) error
}

// ActionSelector chooses an action for a state. isTest selects the
// evaluation policy (greedy, no exploration).
type ActionSelector interface {
	SelectAction(state State, isTest bool) (int, error)
}

// Agent is the base single-agent training loop this module builds on. The
// distillation phases decorate its action selection rather than reimplement
// the loop.
type Agent interface {
	ActionSelector
	Step(action int) (Transition, error)
	Train(ctx context.Context) error
	Env() Environment
}
