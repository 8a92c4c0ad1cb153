package service

import (
	"context"

	"notechain/internal/domain"
)

// Snapshot persists the graph between runs so the daemon can serve from
// the last known state while the initial rebuild scans the vault. The
// vault stays the source of truth; a snapshot is a cache and a full
// rebuild replaces it wholesale.
type Snapshot interface {
	// Load returns the persisted nodes and edges.
	Load(ctx context.Context) ([]domain.Node, []domain.Edge, error)

	// Replace overwrites the whole snapshot.
	Replace(ctx context.Context, nodes []domain.Node, edges []domain.Edge) error

	// SaveNote upserts one note and replaces its outgoing edges.
	SaveNote(ctx context.Context, node domain.Node, edges []domain.Edge) error

	// DeleteNote removes a note and every edge touching it.
	DeleteNote(ctx context.Context, id string) error

	// RenameNote relabels a note in place, edges included.
	RenameNote(ctx context.Context, oldID, newID string) error
}
