package distill

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/distill-go/pkg/config"
	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
	"github.com/XiaoConstantine/distill-go/pkg/logging"
	"github.com/XiaoConstantine/distill-go/pkg/record"
)

// progressEvery controls how often the augmentation pass reports progress.
const progressEvery = 1000

// ExpertAugmenter relabels previously dumped raw states with the current
// teacher's Q-values, producing transition samples without re-running the
// environment. Files are independent, so the pass fans out over a bounded
// worker pool; each output keeps its source's base file name.
type ExpertAugmenter struct {
	sources []string
	outDir  string
	teacher core.QNetwork
	workers int
	logger  *logging.Logger
	runID   string
}

// Run enumerates every raw state record under the source roots and writes
// one augmented record per input into the output directory.
func (a *ExpertAugmenter) Run(ctx context.Context) error {
	ctx = logging.WithMode(logging.WithRunID(ctx, a.runID), string(config.ModeAddExpertQ))

	refs, err := record.Scan(a.sources)
	if err != nil {
		return err
	}
	a.logger.Info(ctx, "relabeling %d raw states from %d source(s) into %s",
		len(refs), len(a.sources), a.outDir)

	workers := a.workers
	if workers <= 0 {
		workers = 1
	}

	var processed atomic.Int64
	p := pool.New().WithErrors().WithMaxGoroutines(workers)
	for _, ref := range refs {
		ref := ref
		p.Go(func() error {
			if err := errors.CheckContext(ctx, "expert-q augmentation"); err != nil {
				return err
			}

			state, err := record.ReadRawState(ref.Path())
			if err != nil {
				return err
			}
			qValues := a.teacher.Predict([]core.State{state})[0]

			outPath := filepath.Join(a.outDir, ref.Name)
			if err := record.WriteTransition(outPath, state, qValues); err != nil {
				return err
			}

			if n := processed.Add(1); n%progressEvery == 0 {
				a.logger.Info(ctx, "relabeled %d/%d", n, len(refs))
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	a.logger.Info(ctx, "relabeled %d raw states into %s", processed.Load(), a.outDir)
	return nil
}

// OutDir returns the directory augmented records are written into.
func (a *ExpertAugmenter) OutDir() string {
	return a.outDir
}
