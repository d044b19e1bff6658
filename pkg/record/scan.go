package record

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

// Ref locates one record file inside a scanned source tree.
type Ref struct {
	Dir  string // directory holding the file
	Name string // base file name, including extension
}

// Path returns the full path of the referenced record.
func (r Ref) Path() string {
	return filepath.Join(r.Dir, r.Name)
}

// Scan enumerates every record file under the given source roots. Each root
// is expected to contain per-episode subdirectories of per-step files. A
// missing root is fatal: the augmentation pass cannot proceed with a
// partial input set. Results are sorted for deterministic processing, though
// callers must not rely on any cross-file ordering guarantee.
func Scan(roots []string) ([]Ref, error) {
	var refs []Ref
	for _, root := range roots {
		episodes, err := os.ReadDir(root)
		if err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.ResourceNotFound, "read source root"),
				errors.Fields{"root": root},
			)
		}
		for _, ep := range episodes {
			if !ep.IsDir() {
				continue
			}
			episodeDir := filepath.Join(root, ep.Name())
			files, err := os.ReadDir(episodeDir)
			if err != nil {
				return nil, errors.Wrap(err, errors.StorageFailed, "read episode directory")
			}
			for _, f := range files {
				if f.IsDir() || !strings.HasSuffix(f.Name(), Ext) {
					continue
				}
				refs = append(refs, Ref{Dir: episodeDir, Name: f.Name()})
			}
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Dir != refs[j].Dir {
			return refs[i].Dir < refs[j].Dir
		}
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}
