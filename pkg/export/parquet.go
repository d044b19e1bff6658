// Package export converts a completed distillation buffer directory into a
// single Parquet file, so collected (state, Q-values) samples can be inspected
// or consumed by external analysis tooling without walking thousands of small
// record files.
package export

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
	"github.com/XiaoConstantine/distill-go/pkg/record"
)

const (
	colState   = "state"
	colQValues = "q_values"

	// Samples per row group. Buffers are at most a few hundred thousand
	// rows, so one group per 8192 keeps files small and seekable.
	chunkSize = 8192
)

// Schema returns the Arrow schema of an exported buffer: one row per sample,
// with the observation vector and its teacher Q-values as float64 lists.
func Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: colState, Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
		{Name: colQValues, Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	}, nil)
}

// Buffer writes every sample in bufDir to a Parquet file at outPath and
// returns the number of rows written. Samples are ordered by their buffer
// index. The output is written atomically.
func Buffer(bufDir, outPath string) (int, error) {
	indices, err := sampleIndices(bufDir)
	if err != nil {
		return 0, err
	}
	if len(indices) == 0 {
		return 0, errors.WithFields(
			errors.New(errors.BufferEmpty, "no samples to export"),
			errors.Fields{"dir": bufDir})
	}

	mem := memory.NewGoAllocator()
	bld := array.NewRecordBuilder(mem, Schema())
	defer bld.Release()

	stateBld := bld.Field(0).(*array.ListBuilder)
	stateVals := stateBld.ValueBuilder().(*array.Float64Builder)
	qBld := bld.Field(1).(*array.ListBuilder)
	qVals := qBld.ValueBuilder().(*array.Float64Builder)

	for _, idx := range indices {
		rec, err := record.ReadTransition(filepath.Join(bufDir, strconv.Itoa(idx)+record.Ext))
		if err != nil {
			return 0, err
		}
		stateBld.Append(true)
		stateVals.AppendValues(rec.State, nil)
		qBld.Append(true)
		qVals.AppendValues(rec.QValues, nil)
	}

	rec := bld.NewRecord()
	defer rec.Release()
	table := array.NewTableFromRecords(Schema(), []arrow.Record{rec})
	defer table.Release()

	tmp := outPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, errors.Wrap(err, errors.StorageFailed, "failed to create parquet file")
	}
	writeErr := pqarrow.WriteTable(table, f, chunkSize,
		parquet.NewWriterProperties(parquet.WithAllocator(mem)), pqarrow.DefaultWriterProps())
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return 0, errors.Wrap(writeErr, errors.StorageFailed, "failed to write parquet file")
	}
	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return 0, errors.Wrap(err, errors.StorageFailed, "failed to finalize parquet file")
	}
	return len(indices), nil
}

// ReadBuffer loads an exported Parquet file back into sample slices. It is
// the inverse of Buffer and mainly serves verification after an export.
func ReadBuffer(ctx context.Context, path string) ([]core.State, []core.QVector, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.StorageFailed, "failed to open parquet file")
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.StorageFailed, "failed to read parquet schema")
	}
	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.StorageFailed, "failed to read parquet table")
	}
	defer table.Release()

	schema := table.Schema()
	stateIdx := schema.FieldIndices(colState)
	qIdx := schema.FieldIndices(colQValues)
	if len(stateIdx) == 0 || len(qIdx) == 0 {
		return nil, nil, errors.WithFields(
			errors.New(errors.RecordCorrupted, "parquet file is missing sample columns"),
			errors.Fields{"path": path})
	}

	states := readListColumn(table.Column(stateIdx[0]))
	qValues := readListColumn(table.Column(qIdx[0]))
	out := make([]core.QVector, len(qValues))
	for i, q := range qValues {
		out[i] = core.QVector(q)
	}
	cast := make([]core.State, len(states))
	for i, s := range states {
		cast[i] = core.State(s)
	}
	return cast, out, nil
}

func readListColumn(col *arrow.Column) [][]float64 {
	var rows [][]float64
	for _, chunk := range col.Data().Chunks() {
		listArr := chunk.(*array.List)
		vals := listArr.ListValues().(*array.Float64)
		offsets := listArr.Offsets()
		for i := 0; i < listArr.Len(); i++ {
			row := make([]float64, 0, offsets[i+1]-offsets[i])
			for j := offsets[i]; j < offsets[i+1]; j++ {
				row = append(row, vals.Value(int(j)))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// sampleIndices lists the numeric indices present in a buffer directory in
// ascending order.
func sampleIndices(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ResourceNotFound, "failed to read buffer directory")
	}
	indices := make([]int, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != record.Ext {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), record.Ext))
		if err != nil {
			continue
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}
