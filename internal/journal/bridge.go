package journal

import (
	"log/slog"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

// Bridge mirrors knowledge-graph events into the journal, tagged with the
// project they came from. It implements knowledge.Observer.
type Bridge struct {
	store   *Store
	project string
	logger  *slog.Logger
}

// NewBridge returns nil if store is nil, so the result can be handed to
// knowledge.Manager.SetObserver unconditionally.
func NewBridge(store *Store, project string, logger *slog.Logger) *Bridge {
	if store == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{store: store, project: project, logger: logger.With("component", "journal")}
}

// OnGraphEvent appends the event. It is best-effort: failures are logged
// and never reach the knowledge graph.
func (b *Bridge) OnGraphEvent(e knowledge.Event) {
	if b == nil {
		return
	}
	_, err := b.store.Append(Entry{
		Project:   b.project,
		Kind:      e.Kind,
		SubjectID: e.SubjectID,
		Title:     e.Title,
		Content:   e.Content,
		CreatedAt: e.At,
	})
	if err != nil {
		b.logger.Warn("journal bridge: append failed", "kind", e.Kind, "error", err)
	}
}
