// Package record implements the on-disk record store the distillation
// phases communicate through: raw state dumps written during teacher
// training and (state, q_values) transition samples written during
// collection or augmentation. Phases never run concurrently; they exchange
// only completed files.
package record

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

// Ext is the file extension of every record file.
const Ext = ".json"

// RawState is a state observed during teacher training, persisted before
// the teacher's Q-values for it are trustworthy.
type RawState struct {
	State core.State `json:"state"`
}

// Transition pairs a state with the teacher's full action-value vector at
// that state. Immutable once written.
type Transition struct {
	State   core.State   `json:"state"`
	QValues core.QVector `json:"q_values"`
}

// WriteRawState persists a single raw state record.
func WriteRawState(path string, state core.State) error {
	data, err := json.Marshal(RawState{State: state})
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "encode raw state")
	}
	return writeFileAtomic(path, data)
}

// ReadRawState loads a raw state record.
func ReadRawState(path string) (core.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "read raw state")
	}
	var rec RawState
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.RecordCorrupted, "decode raw state"),
			errors.Fields{"path": path},
		)
	}
	return rec.State, nil
}

// WriteTransition persists one (state, q_values) transition sample.
func WriteTransition(path string, state core.State, qValues core.QVector) error {
	data, err := json.Marshal(Transition{State: state, QValues: qValues})
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "encode transition")
	}
	return writeFileAtomic(path, data)
}

// ReadTransition loads one transition sample.
func ReadTransition(path string) (Transition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transition{}, errors.Wrap(err, errors.StorageFailed, "read transition")
	}
	var rec Transition
	if err := json.Unmarshal(data, &rec); err != nil {
		return Transition{}, errors.WithFields(
			errors.Wrap(err, errors.RecordCorrupted, "decode transition"),
			errors.Fields{"path": path},
		)
	}
	return rec, nil
}

// writeFileAtomic writes via a temp file and rename so readers never see a
// half-written record.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "write record")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.StorageFailed, "commit record")
	}
	return nil
}

// CreateRunDir creates a fresh per-run directory. The directory must not
// already exist: a collision means the caller reused a timestamp and the
// run must not silently mix its output with an older one.
func CreateRunDir(dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "create parent directory")
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return errors.WithFields(
				errors.New(errors.DirectoryExists, "run directory already exists"),
				errors.Fields{"dir": dir},
			)
		}
		return errors.Wrap(err, errors.StorageFailed, "create run directory")
	}
	return nil
}
