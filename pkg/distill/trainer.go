package distill

import (
	"context"

	"github.com/XiaoConstantine/distill-go/pkg/buffer"
	"github.com/XiaoConstantine/distill-go/pkg/config"
	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
	"github.com/XiaoConstantine/distill-go/pkg/logging"
	"github.com/XiaoConstantine/distill-go/pkg/metrics"
)

// StudentTrainer fits the student network to the teacher's action-value
// distribution from a completed buffer. The buffer is read-only here.
type StudentTrainer struct {
	cfg     *config.Config
	student core.Learner
	buf     *buffer.Buffer
	sink    metrics.Sink
	logger  *logging.Logger
	runID   string
	tau     float64
}

// NewStudentTrainer wires a trainer over an opened buffer.
func NewStudentTrainer(cfg *config.Config, student core.Learner, buf *buffer.Buffer, sink metrics.Sink, runID string) *StudentTrainer {
	return &StudentTrainer{
		cfg:     cfg,
		student: student,
		buf:     buf,
		sink:    sink,
		logger:  logging.GetLogger(),
		runID:   runID,
		tau:     cfg.Hyper.SoftmaxTau,
	}
}

// UpdateDistillation performs one distillation step on a batch: the target
// is softmax(q/tau) over the teacher's Q-values, the loss is the KL
// divergence between the student's log-softmax prediction and that target,
// summed over the batch. No gradient flows through the target branch: the
// teacher's values enter only as constants. Returns the scalar loss and the
// mean predicted Q-value.
func (t *StudentTrainer) UpdateDistillation(states []core.State, qValues []core.QVector) (float64, float64, error) {
	preds := t.student.Predict(states)

	var loss float64
	var qSum float64
	var qCount int
	grads := make([]core.QVector, len(preds))

	for i, pred := range preds {
		target := core.Softmax(qValues[i], t.tau)
		logPred := core.LogSoftmax(pred)
		loss += core.KLDiv(logPred, target)

		// d(loss)/d(logits) for a summed KL against log-softmax.
		p := core.Softmax(pred, 1)
		grad := make(core.QVector, len(pred))
		for a := range pred {
			grad[a] = p[a] - target[a]
		}
		grads[i] = grad

		for _, v := range pred {
			qSum += v
			qCount++
		}
	}

	if err := t.student.Step(states, grads); err != nil {
		return 0, 0, errors.Wrap(err, errors.TrainingFailed, "apply distillation step")
	}
	return loss, qSum / float64(qCount), nil
}

// Run executes the full student training schedule: train_steps =
// (buffer_size / batch_size) * epochs distillation steps, with a loader
// reset at the start and at each epoch boundary, a checkpoint at each
// boundary, and a final checkpoint after the last step.
func (t *StudentTrainer) Run(ctx context.Context) error {
	ctx = logging.WithMode(logging.WithRunID(ctx, t.runID), string(config.ModeStudent))

	bufferSize := t.buf.Len()
	batchSize := t.cfg.Hyper.BatchSize
	if bufferSize < batchSize {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "buffer smaller than batch size; cannot form one batch"),
			errors.Fields{"buffer_size": bufferSize, "batch_size": batchSize},
		)
	}

	iterPerEpoch := bufferSize / batchSize
	trainSteps := iterPerEpoch * t.cfg.Hyper.Epochs
	t.logger.Info(ctx, "total epochs: %d\ttrain steps: %d", t.cfg.Hyper.Epochs, trainSteps)

	t.buf.ResetLoader()
	nEpoch := 0
	lastStep := 0

	for steps := 0; steps < trainSteps; steps++ {
		if err := errors.CheckContext(ctx, "student training"); err != nil {
			return err
		}
		lastStep = steps

		if steps%iterPerEpoch == 0 && steps > 0 {
			t.buf.ResetLoader()
		}

		states, qValues, err := t.buf.NextBatch()
		if err != nil {
			return err
		}
		loss, avgQ, err := t.UpdateDistillation(states, qValues)
		if err != nil {
			return err
		}

		if t.cfg.Metrics.Log {
			if err := t.sink.Log(ctx, metrics.KeyDQNLoss, steps, loss); err != nil {
				return err
			}
			if err := t.sink.Log(ctx, metrics.KeyAvgQ, steps, avgQ); err != nil {
				return err
			}
		}

		if steps%iterPerEpoch == 0 {
			t.logger.Info(ctx, "training %d epochs, %d steps.. loss: %f, avg_q_value: %f",
				nEpoch, steps, loss, avgQ)
			if err := t.student.SaveParams(steps); err != nil {
				return err
			}
			nEpoch++
		}
	}

	// Final parameters are always checkpointed, boundary or not.
	return t.student.SaveParams(lastStep)
}
