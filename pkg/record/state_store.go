package record

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

// StateStore writes raw state records under a per-run root, one file per
// environment step, grouped into per-episode subdirectories:
//
//	<root>/<episode>/<save_count>.json
//
// The save counter increases monotonically across the whole run, never per
// episode, so file names are unique across episodes. Single writer only.
type StateStore struct {
	root      string
	episode   int
	saveCount int
	dirReady  bool
}

// NewStateStore opens a store rooted at a freshly created run directory.
func NewStateStore(root string) *StateStore {
	return &StateStore{root: root}
}

// BeginEpisode switches subsequent appends to the given episode index. The
// episode directory is created lazily on first append, so an episode with
// no appends leaves no directory behind.
func (s *StateStore) BeginEpisode(episode int) {
	s.episode = episode
	s.dirReady = false
}

// Append persists one raw state record for the current episode and advances
// the save counter.
func (s *StateStore) Append(state core.State) error {
	episodeDir := filepath.Join(s.root, strconv.Itoa(s.episode))
	if !s.dirReady {
		if err := os.MkdirAll(episodeDir, 0755); err != nil {
			return errors.Wrap(err, errors.StorageFailed, "create episode directory")
		}
		s.dirReady = true
	}

	path := filepath.Join(episodeDir, strconv.Itoa(s.saveCount)+Ext)
	if err := WriteRawState(path, state); err != nil {
		return err
	}
	s.saveCount++
	return nil
}

// SaveCount returns the number of records written so far.
func (s *StateStore) SaveCount() int {
	return s.saveCount
}

// Root returns the run directory this store writes under.
func (s *StateStore) Root() string {
	return s.root
}
