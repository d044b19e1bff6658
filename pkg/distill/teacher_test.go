package distill

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/distill-go/internal/testutil"
	"github.com/XiaoConstantine/distill-go/pkg/config"
	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/record"
)

func newTeacher(t *testing.T, cfg *config.Config, episodeLens ...int) (*TeacherRunner, *testutil.ScriptedEnv, *testutil.FnLearner, *recordingSink) {
	t.Helper()
	environment := testutil.NewScriptedEnv(episodeLens...)
	learner := &testutil.FnLearner{}
	sink := newRecordingSink()
	deps := testDeps()
	deps.Env = environment
	deps.Learner = learner
	deps.Sink = sink

	r, err := New(cfg, deps)
	require.NoError(t, err)
	runner, ok := r.(*TeacherRunner)
	require.True(t, ok)
	return runner, environment, learner, sink
}

func TestTeacherDumpsOneRecordPerTrainingStep(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Teacher: true})
	cfg.Hyper.EpisodeNum = 3
	cfg.Hyper.SavePeriod = 0

	runner, environment, _, _ := newTeacher(t, cfg, 3)
	require.NoError(t, runner.Run(context.Background()))

	// Three 3-step training episodes dump nine states; the three evaluation
	// episodes that follow dump none.
	assert.Equal(t, 9, runner.SaveCount())
	assert.Equal(t, 5, environment.Episode(), "evaluation episodes did run")

	// One file per step, grouped per episode, save counter monotonic across
	// episodes.
	for ep := 0; ep < 3; ep++ {
		dir := filepath.Join(runner.DumpDir(), strconv.Itoa(ep))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 3, "episode %d", ep)
		for s := 0; s < 3; s++ {
			name := strconv.Itoa(ep*3+s) + record.Ext
			assert.FileExists(t, filepath.Join(dir, name))
		}
	}

	// The persisted state is the one the selector saw: episode 1, step 2
	// was the sixth selection (save index 5).
	state, err := record.ReadRawState(filepath.Join(runner.DumpDir(), "1", "5"+record.Ext))
	require.NoError(t, err)
	assert.Equal(t, core.State{1, 2}, state)
}

func TestTeacherEvalPersistsNothing(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Teacher: true})
	runner, _, _, _ := newTeacher(t, cfg, 4)

	require.NoError(t, runner.Eval(context.Background(), false))
	assert.Equal(t, 0, runner.SaveCount())
}

func TestTeacherEvalEmitsTestScore(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Teacher: true})
	cfg.Hyper.EpisodeNum = 2
	cfg.Hyper.SavePeriod = 0
	cfg.Metrics.Log = true

	runner, _, _, sink := newTeacher(t, cfg, 3)
	require.NoError(t, runner.Run(context.Background()))

	// One score per evaluation episode, each 3 steps of reward 1.
	assert.Equal(t, []float64{3, 3}, sink.values("test score"))
}

func TestTeacherPeriodicCheckpointAndInterimEval(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Teacher: true})
	cfg.Hyper.EpisodeNum = 4
	cfg.Hyper.SavePeriod = 2
	cfg.Hyper.InterimTestNum = 1
	cfg.Metrics.Log = true

	runner, _, learner, sink := newTeacher(t, cfg, 3)
	require.NoError(t, runner.Run(context.Background()))

	// save_period=2 over 4 episodes: checkpoints after episodes 1 and 3.
	assert.Equal(t, []int{1, 3}, learner.Saved())

	// Two interim evaluations of one episode each plus the four-episode
	// final pass; interim rollouts dump no states.
	assert.Len(t, sink.values("test score"), 6)
	assert.Equal(t, 12, runner.SaveCount())
}

func TestTeacherRunCanceledContext(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Teacher: true})
	runner, _, _, _ := newTeacher(t, cfg, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, runner.Run(ctx))
}
