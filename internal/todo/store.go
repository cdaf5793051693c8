package todo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HendryAvila/taskgraph/internal/persist"
)

const (
	// CacheDir is the project-local directory holding persisted documents.
	CacheDir = ".taskgraph/cache"
	// DataFile is the filename of the persisted task document.
	DataFile = "todo-data.json"
)

// DataPath returns the absolute path to a project's task document.
func DataPath(projectRoot string) string {
	return filepath.Join(projectRoot, CacheDir, DataFile)
}

// LoadData reads a task document from disk. A missing file yields an
// empty document.
func LoadData(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewData(), nil
		}
		return nil, fmt.Errorf("reading task data: %w", err)
	}

	d := NewData()
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	if d.Version == "" {
		d.Version = SchemaVersion
	}
	if d.Tasks == nil {
		d.Tasks = map[string]Task{}
	}
	var maxSeq int64
	for id, t := range d.Tasks {
		if t.Tags == nil {
			t.Tags = []string{}
		}
		if t.Notes == nil {
			t.Notes = []Note{}
		}
		d.Tasks[id] = t
		maxSeq = max(maxSeq, t.Sequence)
	}
	if d.Metadata.NextSequence <= maxSeq {
		d.Metadata.NextSequence = maxSeq + 1
	}
	d.Metadata.TotalTasks = len(d.Tasks)
	return d, nil
}

func saveData(path string, raw []byte) error {
	return persist.WriteFileAtomic(path, raw, 0o644)
}
