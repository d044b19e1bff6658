package network

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

// checkpoint is the serialized parameter set of a Linear network.
type checkpoint struct {
	Step       int         `json:"step"`
	InDim      int         `json:"in_dim"`
	NumActions int         `json:"num_actions"`
	W          [][]float64 `json:"w"`
	B          []float64   `json:"b"`
}

// SaveParams writes the current parameters to
// <checkpoint_dir>/ckpt_<step>.json via tmp+rename so a crash never leaves
// a truncated checkpoint behind.
func (l *Linear) SaveParams(step int) error {
	if l.ckptDir == "" {
		return errors.New(errors.CheckpointFailed, "no checkpoint directory configured")
	}
	if err := os.MkdirAll(l.ckptDir, 0755); err != nil {
		return errors.Wrap(err, errors.CheckpointFailed, "create checkpoint directory")
	}

	data, err := json.Marshal(checkpoint{
		Step:       step,
		InDim:      l.inDim,
		NumActions: l.numActions,
		W:          l.W,
		B:          l.B,
	})
	if err != nil {
		return errors.Wrap(err, errors.CheckpointFailed, "encode checkpoint")
	}

	path := filepath.Join(l.ckptDir, fmt.Sprintf("ckpt_%d.json", step))
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrap(err, errors.CheckpointFailed, "write checkpoint")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.CheckpointFailed, "commit checkpoint")
	}
	return nil
}

// LoadParams replaces the network parameters with a saved checkpoint. The
// checkpoint must match the network's dimensions.
func (l *Linear) LoadParams(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ResourceNotFound, "read checkpoint")
	}
	var ckpt checkpoint
	if err := json.Unmarshal(data, &ckpt); err != nil {
		return errors.Wrap(err, errors.RecordCorrupted, "decode checkpoint")
	}
	if ckpt.InDim != l.inDim || ckpt.NumActions != l.numActions {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "checkpoint dimensions do not match network"),
			errors.Fields{"ckpt_in": ckpt.InDim, "ckpt_actions": ckpt.NumActions},
		)
	}
	l.W = ckpt.W
	l.B = ckpt.B
	return nil
}
