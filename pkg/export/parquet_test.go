package export

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/distill-go/pkg/buffer"
	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

func fillBufferDir(t *testing.T, n int) (string, []core.State, []core.QVector) {
	t.Helper()
	dir := t.TempDir()
	buf, err := buffer.New(dir, n, 1, buffer.WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)

	states := make([]core.State, n)
	qValues := make([]core.QVector, n)
	for i := 0; i < n; i++ {
		states[i] = core.State{float64(i), math.Pi * float64(i), -0.5}
		qValues[i] = core.QVector{1.0 / float64(i+1), float64(i)}
		require.NoError(t, buf.Append(states[i], qValues[i]))
	}
	return dir, states, qValues
}

func TestExportRoundTrip(t *testing.T) {
	dir, states, qValues := fillBufferDir(t, 12)
	out := filepath.Join(t.TempDir(), "buffer.parquet")

	rows, err := Buffer(dir, out)
	require.NoError(t, err)
	assert.Equal(t, 12, rows)
	assert.FileExists(t, out)

	gotStates, gotQ, err := ReadBuffer(context.Background(), out)
	require.NoError(t, err)
	require.Len(t, gotStates, 12)
	require.Len(t, gotQ, 12)

	// Rows come back in buffer-index order with exact float64 values.
	for i := range states {
		assert.Equal(t, states[i], gotStates[i], "state row %d", i)
		assert.Equal(t, qValues[i], gotQ[i], "q row %d", i)
	}
}

func TestExportOrdersBeyondLexicographic(t *testing.T) {
	// 11 samples makes "10" sort before "2" lexically; export must not.
	dir, states, _ := fillBufferDir(t, 11)
	out := filepath.Join(t.TempDir(), "buffer.parquet")

	_, err := Buffer(dir, out)
	require.NoError(t, err)

	gotStates, _, err := ReadBuffer(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, states[10], gotStates[10])
}

func TestExportEmptyDirFails(t *testing.T) {
	out := filepath.Join(t.TempDir(), "buffer.parquet")
	_, err := Buffer(t.TempDir(), out)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.BufferEmpty))
}

func TestExportMissingDirFails(t *testing.T) {
	out := filepath.Join(t.TempDir(), "buffer.parquet")
	_, err := Buffer(filepath.Join(t.TempDir(), "absent"), out)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ResourceNotFound))
}
