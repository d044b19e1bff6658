package buffer

import (
	stderrors "errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/distill-go/pkg/core"
)

func sample(i int) (core.State, core.QVector) {
	return core.State{float64(i), float64(i) * 2}, core.QVector{float64(i), -float64(i)}
}

func fill(t *testing.T, b *Buffer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s, q := sample(i)
		require.NoError(t, b.Append(s, q))
	}
}

func TestAppendHardCap(t *testing.T) {
	b, err := New(t.TempDir(), 3, 1)
	require.NoError(t, err)

	fill(t, b, 3)
	assert.Equal(t, 3, b.Len())
	assert.True(t, b.Full())

	// Appends past capacity are rejected and do not advance the fill level.
	s, q := sample(99)
	err = b.Append(s, q)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrBufferFull))
	assert.Equal(t, 3, b.Len())
}

func TestAppendAdvancesByOne(t *testing.T) {
	b, err := New(t.TempDir(), 10, 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, i, b.Len())
		s, q := sample(i)
		require.NoError(t, b.Append(s, q))
	}
	assert.Equal(t, 5, b.Len())
}

func TestReopenResumesFillLevel(t *testing.T) {
	dir := t.TempDir()

	b, err := New(dir, 4, 1)
	require.NoError(t, err)
	fill(t, b, 2)

	reopened, err := New(dir, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	assert.False(t, reopened.Full())
}

func TestOpenForTraining(t *testing.T) {
	dir := t.TempDir()
	b, err := New(dir, 6, 2)
	require.NoError(t, err)
	fill(t, b, 6)

	reader, err := Open(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, reader.Len())
	assert.Equal(t, 6, reader.Capacity())
}

func TestOpenEmptyDirFails(t *testing.T) {
	_, err := Open(t.TempDir(), 2)
	require.Error(t, err)
}

func TestOpenMissingDirFails(t *testing.T) {
	_, err := Open(t.TempDir()+"/absent", 2)
	require.Error(t, err)
}

func TestShuffledPassCoversEverySample(t *testing.T) {
	b, err := New(t.TempDir(), 8, 2, WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	fill(t, b, 8)

	b.ResetLoader()
	seen := make(map[float64]bool)
	for i := 0; i < 4; i++ {
		states, qValues, err := b.NextBatch()
		require.NoError(t, err)
		require.Len(t, states, 2)
		require.Len(t, qValues, 2)
		for j, s := range states {
			seen[s[0]] = true
			// Each state stays paired with the Q-vector written alongside it.
			assert.Equal(t, s[0], qValues[j][0])
		}
	}
	assert.Len(t, seen, 8)

	_, _, err = b.NextBatch()
	assert.True(t, stderrors.Is(err, ErrExhausted))
}

func TestResetLoaderStartsFreshPass(t *testing.T) {
	b, err := New(t.TempDir(), 4, 2, WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	fill(t, b, 4)

	b.ResetLoader()
	_, _, err = b.NextBatch()
	require.NoError(t, err)
	_, _, err = b.NextBatch()
	require.NoError(t, err)
	_, _, err = b.NextBatch()
	require.ErrorIs(t, err, ErrExhausted)

	b.ResetLoader()
	_, _, err = b.NextBatch()
	require.NoError(t, err)
}

func TestPartialBatchNeverYielded(t *testing.T) {
	// 5 samples with batch size 2: each pass yields exactly two batches.
	b, err := New(t.TempDir(), 5, 2)
	require.NoError(t, err)
	fill(t, b, 5)

	b.ResetLoader()
	batches := 0
	for {
		states, _, err := b.NextBatch()
		if stderrors.Is(err, ErrExhausted) {
			break
		}
		require.NoError(t, err)
		require.Len(t, states, 2)
		batches++
	}
	assert.Equal(t, 2, batches)
}
