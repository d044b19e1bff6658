// Package buffer implements the disk-backed distillation buffer: an
// append-only store of (state, q_values) transition samples written by one
// collection run and read back in shuffled batches by one training run.
// Writer and reader are never concurrent; the hand-off is a completed,
// fully written buffer directory.
package buffer

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
	"github.com/XiaoConstantine/distill-go/pkg/record"
)

var (
	// ErrBufferFull signals that the buffer reached capacity. During
	// collection this is the expected, successful termination condition.
	ErrBufferFull = errors.New(errors.BufferFull, "distillation buffer is full")

	// ErrExhausted signals that the current shuffled pass cannot yield
	// another complete batch; callers reset the loader to start a new pass.
	ErrExhausted = errors.New(errors.BufferEmpty, "no complete batch left in current pass")
)

// Buffer is the disk-backed distillation buffer. Samples live one file per
// record under dir, named by append index. Appends are capacity-checked and
// guarded by a single owner lock, so the check and the increment cannot be
// split even if a future caller parallelizes collection.
type Buffer struct {
	mu        sync.Mutex
	dir       string
	capacity  int
	batchSize int
	idx       int // fill level: number of samples stored

	rng    *rand.Rand
	order  []int
	cursor int
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithRand sets the randomness source used for shuffled passes. Tests use
// this for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(b *Buffer) {
		b.rng = rng
	}
}

// New opens a buffer for a collection run. dir must already exist (the mode
// selector creates it); any samples already present count toward capacity,
// so reopening a partially written directory resumes at the right index.
func New(dir string, capacity, batchSize int, opts ...Option) (*Buffer, error) {
	if capacity <= 0 {
		return nil, errors.New(errors.InvalidConfig, "buffer capacity must be greater than zero")
	}
	if batchSize <= 0 {
		return nil, errors.New(errors.InvalidConfig, "batch size must be greater than zero")
	}

	n, err := countSamples(dir)
	if err != nil {
		return nil, err
	}

	b := &Buffer{
		dir:       dir,
		capacity:  capacity,
		batchSize: batchSize,
		idx:       n,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Open opens a completed buffer directory for training. Capacity is fixed
// to the number of samples found; the training run never appends.
func Open(dir string, batchSize int, opts ...Option) (*Buffer, error) {
	n, err := countSamples(dir)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "buffer directory holds no samples"),
			errors.Fields{"dir": dir},
		)
	}
	return New(dir, n, batchSize, opts...)
}

func countSamples(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrap(err, errors.ResourceNotFound, "read buffer directory")
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), record.Ext) {
			n++
		}
	}
	return n, nil
}

// Append stores one transition sample. Returns ErrBufferFull once capacity
// is reached; the sample is not written and the fill level does not change.
// Check-and-increment happen under one lock.
func (b *Buffer) Append(state core.State, qValues core.QVector) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.idx >= b.capacity {
		return ErrBufferFull
	}

	path := filepath.Join(b.dir, strconv.Itoa(b.idx)+record.Ext)
	if err := record.WriteTransition(path, state, qValues); err != nil {
		return err
	}
	b.idx++
	return nil
}

// Len returns the current fill level.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx
}

// Capacity returns the configured maximum number of samples.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// BatchSize returns the batch size the loader yields.
func (b *Buffer) BatchSize() int {
	return b.batchSize
}

// Full reports whether the buffer reached capacity.
func (b *Buffer) Full() bool {
	return b.Len() >= b.capacity
}

// Dir returns the backing directory.
func (b *Buffer) Dir() string {
	return b.dir
}

// ResetLoader starts a fresh shuffled pass over every stored sample.
func (b *Buffer) ResetLoader() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.order = b.rng.Perm(b.idx)
	b.cursor = 0
}

// NextBatch reads the next batch of the current pass from disk. Returns
// ErrExhausted when fewer than a full batch remains; partial batches are
// never yielded.
func (b *Buffer) NextBatch() ([]core.State, []core.QVector, error) {
	b.mu.Lock()
	if b.cursor+b.batchSize > len(b.order) {
		b.mu.Unlock()
		return nil, nil, ErrExhausted
	}
	indices := b.order[b.cursor : b.cursor+b.batchSize]
	b.cursor += b.batchSize
	b.mu.Unlock()

	states := make([]core.State, 0, b.batchSize)
	qValues := make([]core.QVector, 0, b.batchSize)
	for _, i := range indices {
		rec, err := record.ReadTransition(filepath.Join(b.dir, strconv.Itoa(i)+record.Ext))
		if err != nil {
			return nil, nil, err
		}
		states = append(states, rec.State)
		qValues = append(qValues, rec.QValues)
	}
	return states, qValues, nil
}
