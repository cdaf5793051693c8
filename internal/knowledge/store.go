package knowledge

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
	// GraphFile is the filename of the persisted knowledge graph.
	GraphFile = "knowledge-graph.json"
)

// GraphPath returns the absolute path to a project's knowledge graph document.
func GraphPath(projectRoot string) string {
	return filepath.Join(projectRoot, CacheDir, GraphFile)
}

// loadGraph reads the graph document. A missing file yields an empty graph.
func loadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewGraph(), nil
		}
		return nil, fmt.Errorf("reading knowledge graph: %w", err)
	}

	g := NewGraph()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	// Documents written by older versions may lack these.
	if g.Version == "" {
		g.Version = SchemaVersion
	}
	if g.Intents == nil {
		g.Intents = []Intent{}
	}
	if g.ToolExecutions == nil {
		g.ToolExecutions = []ToolExecution{}
	}
	if g.TodoSnapshots == nil {
		g.TodoSnapshots = []TodoSnapshot{}
	}
	var maxSeq int64
	for _, in := range g.Intents {
		maxSeq = max(maxSeq, in.Sequence)
	}
	if g.NextSequence <= maxSeq {
		g.NextSequence = maxSeq + 1
	}
	return g, nil
}

// saveGraph writes the graph document atomically.
func saveGraph(path string, data []byte) error {
	return persist.WriteFileAtomic(path, data, 0o644)
}
