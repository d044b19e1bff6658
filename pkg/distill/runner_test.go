package distill

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/distill-go/internal/testutil"
	"github.com/XiaoConstantine/distill-go/pkg/config"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

// recordingSink captures metric emissions for assertions.
type recordingSink struct {
	mu      sync.Mutex
	entries map[string][]float64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{entries: make(map[string][]float64)}
}

func (s *recordingSink) Log(ctx context.Context, key string, step int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append(s.entries[key], value)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) values(key string) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.entries[key]...)
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func baseConfig(t *testing.T, mode config.ModeConfig) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = mode
	cfg.Paths.DataRoot = filepath.Join(t.TempDir(), "data")
	cfg.Hyper.EpisodeNum = 2
	cfg.Hyper.BufferSize = 8
	cfg.Hyper.BatchSize = 2
	cfg.Hyper.Epochs = 2
	return cfg
}

func testDeps() Deps {
	return Deps{
		Env:     testutil.NewScriptedEnv(3),
		Learner: &testutil.FnLearner{},
		Rand:    rand.New(rand.NewSource(1)),
		Now:     fixedNow,
	}
}

func TestNewRejectsAmbiguousMode(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Teacher: true, Student: true})

	_, err := New(cfg, testDeps())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidConfig))

	// Fail-fast: no directories were created.
	_, statErr := os.Stat(cfg.Paths.DataRoot)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewRejectsNoMode(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{})
	_, err := New(cfg, testDeps())
	require.Error(t, err)
}

func TestNewTestModeCreatesTimestampedBufferDir(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})

	r, err := New(cfg, testDeps())
	require.NoError(t, err)

	collector, ok := r.(*CollectRunner)
	require.True(t, ok)

	want := filepath.Join(cfg.Paths.DataRoot, cfg.Env.Name, cfg.Env.Agent, "20260301120000")
	assert.Equal(t, want, collector.Buffer().Dir())
	assert.DirExists(t, want)
}

func TestNewTestModeHonorsOverridePath(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	override := filepath.Join(t.TempDir(), "explicit-buffer")
	cfg.Paths.DistillationBufferPath = override

	r, err := New(cfg, testDeps())
	require.NoError(t, err)
	assert.Equal(t, override, r.(*CollectRunner).Buffer().Dir())
}

func TestNewTeacherModeFreshDumpDirCollision(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Teacher: true})

	_, err := New(cfg, testDeps())
	require.NoError(t, err)

	// Same timestamp again: the run must refuse to mix output.
	_, err = New(cfg, testDeps())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.DirectoryExists))
}

func TestNewStudentModeRequiresExistingBuffer(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Student: true})
	cfg.Paths.DistillationBufferPath = filepath.Join(t.TempDir(), "nope")

	_, err := New(cfg, testDeps())
	require.Error(t, err)
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{Test: true})
	_, err := New(cfg, Deps{})
	require.Error(t, err)
}

func TestNewAddExpertQCreatesOutputDir(t *testing.T) {
	cfg := baseConfig(t, config.ModeConfig{AddExpertQ: true})
	src := t.TempDir()
	cfg.Paths.BufferPath = []string{src}

	r, err := New(cfg, testDeps())
	require.NoError(t, err)

	aug, ok := r.(*ExpertAugmenter)
	require.True(t, ok)
	assert.DirExists(t, aug.OutDir())
}
