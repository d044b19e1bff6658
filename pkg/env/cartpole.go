// Package env provides task environments for teacher training, collection,
// and evaluation runs.
package env

import (
	"math"
	"math/rand"

	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

const (
	gravity        = 9.81
	massCart       = 1.0
	massPole       = 0.1
	poleLength     = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * poleLength
	forceMax       = 10.0
	dt             = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0
	maxSteps       = 500

	// CartPoleObservationSize is the dimensionality of a CartPole state:
	// cart position, cart velocity, pole angle, pole angular velocity.
	CartPoleObservationSize = 4

	// CartPoleNumActions is push-left / push-right.
	CartPoleNumActions = 2
)

// CartPole is the classic pole-balancing control environment. It owns its
// randomness; construct with an explicit source for reproducible runs.
type CartPole struct {
	state core.State
	steps int
	done  bool
	rng   *rand.Rand
}

// NewCartPole creates an environment seeded from rng (a fresh source when
// nil) and resets it.
func NewCartPole(rng *rand.Rand) *CartPole {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	e := &CartPole{rng: rng}
	e.Reset()
	return e
}

// Reset starts a new episode from a small random perturbation around the
// upright state.
func (e *CartPole) Reset() core.State {
	e.state = core.State{
		e.rng.Float64()*0.1 - 0.05,
		e.rng.Float64()*0.1 - 0.05,
		e.rng.Float64()*0.1 - 0.05,
		e.rng.Float64()*0.1 - 0.05,
	}
	e.steps = 0
	e.done = false
	return e.state.Clone()
}

// Step advances the physics by one tick.
func (e *CartPole) Step(action int) (core.Transition, error) {
	if action < 0 || action >= CartPoleNumActions {
		return core.Transition{}, errors.WithFields(
			errors.New(errors.InvalidConfig, "action outside action space"),
			errors.Fields{"action": action},
		)
	}
	if e.done {
		return core.Transition{}, errors.New(errors.InvalidConfig, "step on finished episode; call Reset")
	}

	force := forceMax
	if action == 0 {
		force = -forceMax
	}

	x, xDot, theta, thetaDot := e.state[0], e.state[1], e.state[2], e.state[3]
	cosTheta := math.Cos(theta)
	sinTheta := math.Sin(theta)

	temp := (force + poleMassLength*thetaDot*thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) /
		(poleLength * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	x += dt * xDot
	xDot += dt * xAcc
	theta += dt * thetaDot
	thetaDot += dt * thetaAcc

	e.state = core.State{x, xDot, theta, thetaDot}
	e.steps++

	failed := x < -xThreshold || x > xThreshold ||
		theta < -thetaThreshold || theta > thetaThreshold
	e.done = failed || e.steps >= maxSteps

	reward := 1.0
	if failed {
		reward = 0.0
	}
	return core.Transition{
		NextState: e.state.Clone(),
		Reward:    reward,
		Done:      e.done,
	}, nil
}

// Render is a no-op; CartPole has no display backend here.
func (e *CartPole) Render() {}

// SampleAction draws a uniform random action.
func (e *CartPole) SampleAction() int {
	return e.rng.Intn(CartPoleNumActions)
}

// NumActions returns the size of the action space.
func (e *CartPole) NumActions() int {
	return CartPoleNumActions
}

// ObservationSize returns the state dimensionality.
func (e *CartPole) ObservationSize() int {
	return CartPoleObservationSize
}

// MaxSteps returns the episode step cap.
func MaxSteps() int {
	return maxSteps
}
