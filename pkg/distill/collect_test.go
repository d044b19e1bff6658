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

func newCollector(t *testing.T, cfg *config.Config, episodeLens ...int) (*CollectRunner, *testutil.ScriptedEnv, *recordingSink) {
	t.Helper()
	environment := testutil.NewScriptedEnv(episodeLens...)
	sink := newRecordingSink()
	deps := testDeps()
	deps.Env = environment
	deps.Sink = sink

	r, err := New(cfg, deps)
	require.NoError(t, err)
	collector, ok := r.(*CollectRunner)
	require.True(t, ok)
	return collector, environment, sink
}

func TestCollectionFillsBufferExactly(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	cfg.Hyper.BufferSize = 100
	cfg.Hyper.EpisodeNum = 5

	// Episodes average 50 steps: cumulative steps hit 100 in episode 2.
	collector, environment, _ := newCollector(t, cfg, 50)

	require.NoError(t, collector.Run(context.Background()))

	assert.Equal(t, 100, collector.Buffer().Len())
	assert.True(t, collector.Buffer().Full())
	assert.Equal(t, 1, environment.Episode(), "run must stop during the second episode, never all five")
}

func TestCollectionStopsMidEpisode(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	cfg.Hyper.BufferSize = 5
	cfg.Hyper.EpisodeNum = 10

	collector, environment, _ := newCollector(t, cfg, 4)

	require.NoError(t, collector.Run(context.Background()))

	// 4 samples from episode 0, then the 5th stops episode 1 after one step.
	assert.Equal(t, 5, collector.Buffer().Len())
	assert.Equal(t, 1, environment.Episode())
}

func TestCollectionPartialBufferWhenEpisodesExhaust(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	cfg.Hyper.BufferSize = 100
	cfg.Hyper.EpisodeNum = 2

	collector, _, _ := newCollector(t, cfg, 3)

	// Partial buffers are not an error, only a loud warning.
	require.NoError(t, collector.Run(context.Background()))
	assert.Equal(t, 6, collector.Buffer().Len())
	assert.False(t, collector.Buffer().Full())
}

func TestCollectedQVectorsAreFresh(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	cfg.Hyper.BufferSize = 6
	cfg.Hyper.EpisodeNum = 3

	collector, _, _ := newCollector(t, cfg, 3)
	require.NoError(t, collector.Run(context.Background()))

	// Every stored Q-vector must equal the network's output for the stored
	// state, exactly as it was at observation time.
	learner := &testutil.FnLearner{}
	dir := collector.Buffer().Dir()
	for i := 0; i < collector.Buffer().Len(); i++ {
		rec, err := record.ReadTransition(filepath.Join(dir, strconv.Itoa(i)+record.Ext))
		require.NoError(t, err)
		expect := learner.Predict([]core.State{rec.State})[0]
		assert.Equal(t, expect, rec.QValues, "sample %d is stale", i)
	}
}

func TestCollectionSampleCountMatchesFiles(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	cfg.Hyper.BufferSize = 7
	cfg.Hyper.EpisodeNum = 4

	collector, _, _ := newCollector(t, cfg, 2)
	require.NoError(t, collector.Run(context.Background()))

	entries, err := os.ReadDir(collector.Buffer().Dir())
	require.NoError(t, err)
	assert.Len(t, entries, collector.Buffer().Len())
}

func TestCollectionEmitsTestScore(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	cfg.Hyper.BufferSize = 4
	cfg.Hyper.EpisodeNum = 5
	cfg.Metrics.Log = true

	collector, _, sink := newCollector(t, cfg, 2)
	require.NoError(t, collector.Run(context.Background()))

	// Two full episodes of two steps each fill the buffer.
	scores := sink.values("test score")
	require.Len(t, scores, 2)
	assert.Equal(t, []float64{2, 2}, scores)
}

func TestCollectionDisabledSinkStaysSilent(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	cfg.Hyper.BufferSize = 4
	cfg.Hyper.EpisodeNum = 5

	collector, _, sink := newCollector(t, cfg, 2)
	require.NoError(t, collector.Run(context.Background()))
	assert.Empty(t, sink.values("test score"))
}
