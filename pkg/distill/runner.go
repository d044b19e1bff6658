// Package distill implements policy distillation for a value-based agent:
// teacher training with raw state capture, collection of (state, q_values)
// pairs into a disk-backed buffer, student training against softened
// teacher targets, and offline relabeling of raw states with a newer
// teacher's Q-values. Each operating mode is a separate strategy behind the
// Runner interface, selected once at startup.
package distill

import (
	"context"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/distill-go/pkg/agent"
	"github.com/XiaoConstantine/distill-go/pkg/buffer"
	"github.com/XiaoConstantine/distill-go/pkg/config"
	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
	"github.com/XiaoConstantine/distill-go/pkg/logging"
	"github.com/XiaoConstantine/distill-go/pkg/metrics"
	"github.com/XiaoConstantine/distill-go/pkg/record"
)

// timestampLayout names per-run directories, matching the buffer directory
// contract: <data_root>/<env>/<agent>/<timestamp>/.
const timestampLayout = "20060102150405"

// Runner executes one operating mode end to end.
type Runner interface {
	Run(ctx context.Context) error
}

// Deps carries the collaborators the mode selector wires into a runner.
// Learner is interpreted per mode: the teacher's learner in teacher mode,
// the frozen teacher in test and add_expert_q modes, and the student in
// student mode.
type Deps struct {
	Env     core.Environment
	Learner core.Learner
	Sink    metrics.Sink
	Rand    *rand.Rand
	Now     func() time.Time // defaults to time.Now
}

func (d *Deps) defaults() {
	if d.Sink == nil {
		d.Sink = metrics.NopSink{}
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// New is the mode selector: it validates that exactly one mode is active,
// creates the mode's storage, and returns the matching strategy. Validation
// happens before any directory is created, so a misconfigured run leaves no
// trace on disk.
func New(cfg *config.Config, deps Deps) (Runner, error) {
	mode, err := cfg.Mode.Active()
	if err != nil {
		return nil, err
	}
	deps.defaults()

	if deps.Env == nil || deps.Learner == nil {
		return nil, errors.New(errors.InvalidConfig, "distillation requires an environment and a learner")
	}

	runID := uuid.NewString()
	logger := logging.GetLogger()

	switch mode {
	case config.ModeTest:
		dir := cfg.Paths.DistillationBufferPath
		if dir == "" {
			dir = filepath.Join(cfg.Paths.DataRoot, cfg.Env.Name, cfg.Env.Agent,
				deps.Now().Format(timestampLayout))
		}
		if err := record.CreateRunDir(dir); err != nil {
			return nil, err
		}
		buf, err := buffer.New(dir, cfg.Hyper.BufferSize, cfg.Hyper.BatchSize,
			buffer.WithRand(deps.Rand))
		if err != nil {
			return nil, err
		}
		return &CollectRunner{
			cfg:     cfg,
			env:     deps.Env,
			teacher: deps.Learner,
			buf:     buf,
			sink:    deps.Sink,
			logger:  logger,
			runID:   runID,
		}, nil

	case config.ModeStudent:
		buf, err := buffer.Open(cfg.Paths.DistillationBufferPath, cfg.Hyper.BatchSize,
			buffer.WithRand(deps.Rand))
		if err != nil {
			return nil, err
		}
		return NewStudentTrainer(cfg, deps.Learner, buf, deps.Sink, runID), nil

	case config.ModeAddExpertQ:
		outDir := filepath.Join(cfg.Paths.DataRoot, cfg.Env.Name,
			deps.Now().Format(timestampLayout))
		if err := record.CreateRunDir(outDir); err != nil {
			return nil, err
		}
		return &ExpertAugmenter{
			sources: cfg.Paths.BufferPath,
			outDir:  outDir,
			teacher: deps.Learner,
			workers: cfg.Metrics.AugmentWorkers,
			logger:  logger,
			runID:   runID,
		}, nil

	default: // config.ModeTeacher
		dumpDir := filepath.Join(cfg.Paths.DataRoot, cfg.Env.Name,
			deps.Now().Format(timestampLayout))
		if err := record.CreateRunDir(dumpDir); err != nil {
			return nil, err
		}
		return newTeacherRunner(cfg, deps, record.NewStateStore(dumpDir), runID)
	}
}

// newTeacherRunner builds the base agent with the runner injected as its
// action selector, so every training-time state passes through the dump
// path before the base policy chooses an action.
func newTeacherRunner(cfg *config.Config, deps Deps, store *record.StateStore, runID string) (*TeacherRunner, error) {
	r := &TeacherRunner{
		cfg:     cfg,
		env:     deps.Env,
		learner: deps.Learner,
		store:   store,
		sink:    deps.Sink,
		logger:  logging.GetLogger(),
		runID:   runID,
	}

	base, err := agent.New(deps.Env, deps.Learner, agent.Config{
		EpisodeNum:   cfg.Hyper.EpisodeNum,
		Epsilon:      cfg.Hyper.Epsilon,
		EpsilonMin:   0.01,
		EpsilonDecay: 0.995,
		Gamma:        cfg.Hyper.Gamma,
	},
		agent.WithRand(deps.Rand),
		agent.WithActionSelector(r),
		agent.WithEpisodeHook(store.BeginEpisode),
		agent.WithEpisodeEndHook(r.episodeEnd),
	)
	if err != nil {
		return nil, err
	}
	r.base = base
	return r, nil
}
