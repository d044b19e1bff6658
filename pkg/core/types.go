package core

import "math"

// State is a single environment observation.
type State []float64

// QVector holds one action-value per action for a single state.
type QVector []float64

// ArgMax returns the index of the largest action value. Ties resolve to the
// lowest index.
func (q QVector) ArgMax() int {
	best := 0
	for i := 1; i < len(q); i++ {
		if q[i] > q[best] {
			best = i
		}
	}
	return best
}

// Mean returns the average action value.
func (q QVector) Mean() float64 {
	if len(q) == 0 {
		return 0
	}
	var sum float64
	for _, v := range q {
		sum += v
	}
	return sum / float64(len(q))
}

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Clone returns an independent copy of the Q-vector.
func (q QVector) Clone() QVector {
	out := make(QVector, len(q))
	copy(out, q)
	return out
}

// Transition is the result of one environment step.
type Transition struct {
	NextState State
	Reward    float64
	Done      bool
}

// Device identifies the compute backend a learner runs on. It is threaded
// explicitly through constructors; nothing in this module selects a device
// at import time.
type Device string

const (
	// DeviceCPU is the host CPU backend.
	DeviceCPU Device = "cpu"
)

// IsValid reports whether the device names a supported backend.
func (d Device) IsValid() bool {
	return d == DeviceCPU
}

// Softmax returns the softmax of v scaled by 1/tau. Shift-invariant: the
// maximum is subtracted before exponentiation.
func Softmax(v []float64, tau float64) []float64 {
	scaled := make([]float64, len(v))
	maxV := math.Inf(-1)
	for i, x := range v {
		scaled[i] = x / tau
		if scaled[i] > maxV {
			maxV = scaled[i]
		}
	}
	var sum float64
	out := make([]float64, len(v))
	for i, x := range scaled {
		out[i] = math.Exp(x - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// LogSoftmax returns the log of Softmax(v, 1) computed stably.
func LogSoftmax(v []float64) []float64 {
	maxV := math.Inf(-1)
	for _, x := range v {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for _, x := range v {
		sum += math.Exp(x - maxV)
	}
	logZ := maxV + math.Log(sum)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x - logZ
	}
	return out
}

// KLDiv returns the Kullback-Leibler divergence KL(target || exp(logPred))
// for one distribution pair, matching the convention of a kl_div(log_pred,
// target) call: sum over actions of target * (log target - logPred).
// Target entries of zero contribute nothing.
func KLDiv(logPred, target []float64) float64 {
	var sum float64
	for i, t := range target {
		if t <= 0 {
			continue
		}
		sum += t * (math.Log(t) - logPred[i])
	}
	return sum
}
