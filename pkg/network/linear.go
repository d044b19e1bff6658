// Package network provides the concrete learner used by both the teacher
// and the student: a linear Q-network with an SGD optimizer and JSON
// checkpointing keyed by step count. The distillation core only depends on
// the core.Learner interface, so a richer function approximator can drop in
// without touching the pipeline.
package network

import (
	"math/rand"

	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

// Linear is a single-layer Q-network: Q(s) = W*s + b. Gradients arrive as
// per-sample logit gradients, so the caller owns the loss while the network
// owns the parameter math.
type Linear struct {
	device     core.Device
	inDim      int
	numActions int
	lr         float64

	W [][]float64 // [numActions][inDim]
	B []float64   // [numActions]

	ckptDir string
}

// Option configures a Linear network.
type Option func(*Linear)

// WithCheckpointDir sets where SaveParams writes checkpoints.
func WithCheckpointDir(dir string) Option {
	return func(l *Linear) {
		l.ckptDir = dir
	}
}

// WithWeights replaces the random initialization with explicit parameters.
func WithWeights(w [][]float64, b []float64) Option {
	return func(l *Linear) {
		l.W = w
		l.B = b
	}
}

// NewLinear constructs a linear Q-network. The device is explicit and
// scoped to this learner; only the CPU backend exists today.
func NewLinear(inDim, numActions int, lr float64, device core.Device, rng *rand.Rand, opts ...Option) (*Linear, error) {
	if inDim <= 0 || numActions <= 0 {
		return nil, errors.New(errors.InvalidConfig, "network dimensions must be positive")
	}
	if !device.IsValid() {
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfig, "unsupported device"),
			errors.Fields{"device": device},
		)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	l := &Linear{
		device:     device,
		inDim:      inDim,
		numActions: numActions,
		lr:         lr,
		W:          make([][]float64, numActions),
		B:          make([]float64, numActions),
	}
	for a := range l.W {
		l.W[a] = make([]float64, inDim)
		for d := range l.W[a] {
			l.W[a][d] = (rng.Float64() - 0.5) * 0.1
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Predict evaluates the network on a batch of states.
func (l *Linear) Predict(states []core.State) []core.QVector {
	out := make([]core.QVector, len(states))
	for i, s := range states {
		q := make(core.QVector, l.numActions)
		for a := 0; a < l.numActions; a++ {
			v := l.B[a]
			for d := 0; d < l.inDim && d < len(s); d++ {
				v += l.W[a][d] * s[d]
			}
			q[a] = v
		}
		out[i] = q
	}
	return out
}

// Step applies one SGD update from per-sample logit gradients. Gradients
// are summed over the batch, matching a summed (not averaged) loss.
func (l *Linear) Step(states []core.State, gradLogits []core.QVector) error {
	if len(states) != len(gradLogits) {
		return errors.New(errors.InvalidConfig, "states and gradients must align")
	}

	for i, s := range states {
		g := gradLogits[i]
		for a := 0; a < l.numActions; a++ {
			l.B[a] -= l.lr * g[a]
			for d := 0; d < l.inDim && d < len(s); d++ {
				l.W[a][d] -= l.lr * g[a] * s[d]
			}
		}
	}
	return nil
}

// NumActions returns the action dimensionality.
func (l *Linear) NumActions() int {
	return l.numActions
}

// InDim returns the observation dimensionality.
func (l *Linear) InDim() int {
	return l.inDim
}

// Device returns the compute backend this learner was constructed for.
func (l *Linear) Device() core.Device {
	return l.device
}
