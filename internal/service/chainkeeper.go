// Package service coordinates the note graph: it owns the in-memory
// graph exclusively, serializes every mutation through a single command
// loop, and publishes typed events for each processed change.
package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"notechain/internal/domain"
	"notechain/internal/frontmatter"
	"notechain/internal/metrics"
	"notechain/internal/vault"
)

// Options configures a Chainkeeper. Vault is required; everything else
// has a usable zero value.
type Options struct {
	Vault        *vault.Vault
	ParentField  string // frontmatter field naming the predecessor, default "prev"
	CreatedField string // frontmatter field carrying creation time, default "created"
	Bus          *EventBus
	Snapshot     Snapshot // optional warm-start store
	Log          zerolog.Logger
	Metrics      *metrics.Metrics
}

// Chainkeeper maintains the relationship graph over a vault of notes.
// Mutations arrive as commands on a single channel consumed by Run, so
// a rebuild never interleaves with an incremental update. Queries share
// a read lock and see consistent state.
type Chainkeeper struct {
	vault   *vault.Vault
	field   string
	created string
	bus     *EventBus
	snap    Snapshot
	log     zerolog.Logger
	metrics *metrics.Metrics

	commands chan command

	mu          sync.RWMutex
	graph       *domain.Graph
	index       *vault.NameIndex
	lastRebuild time.Time
}

type command struct {
	fn   func(ctx context.Context) error
	done chan error
}

// Stats summarizes the graph.
type Stats struct {
	Notes        int       `json:"notes"`
	Edges        int       `json:"edges"`
	Placeholders int       `json:"placeholders"`
	LastRebuild  time.Time `json:"last_rebuild,omitzero"`
}

// New creates a Chainkeeper. Call Run before using the mutating
// methods.
func New(opts Options) *Chainkeeper {
	if opts.ParentField == "" {
		opts.ParentField = "prev"
	}
	if opts.CreatedField == "" {
		opts.CreatedField = "created"
	}
	if opts.Bus == nil {
		opts.Bus = NewEventBus()
	}
	return &Chainkeeper{
		vault:    opts.Vault,
		field:    opts.ParentField,
		created:  opts.CreatedField,
		bus:      opts.Bus,
		snap:     opts.Snapshot,
		log:      opts.Log,
		metrics:  opts.Metrics,
		commands: make(chan command, 64),
		graph:    domain.NewGraph(),
		index:    vault.NewNameIndex(nil),
	}
}

// Run consumes the command queue until the context is canceled. Every
// mutating method blocks until its command has been processed, so Run
// must be started first.
func (k *Chainkeeper) Run(ctx context.Context) error {
	for {
		select {
		case cmd := <-k.commands:
			cmd.done <- cmd.fn(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (k *Chainkeeper) do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	select {
	case k.commands <- command{fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadSnapshot seeds the graph from the persisted snapshot. Meant to
// run once at startup, before Run, so the daemon can answer queries
// while the first rebuild scans the vault.
func (k *Chainkeeper) LoadSnapshot(ctx context.Context) error {
	if k.snap == nil {
		return nil
	}
	nodes, edges, err := k.snap.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	graph := domain.NewGraph()
	index := vault.NewNameIndex(nil)
	for _, n := range nodes {
		if n.Placeholder {
			continue
		}
		graph.AddOrUpdateNode(n.ID, n.Created)
		index.Add(n.ID)
	}
	byChild := make(map[string][]string)
	for _, e := range edges {
		byChild[e.ChildID] = append(byChild[e.ChildID], e.ParentID)
	}
	for child, parents := range byChild {
		graph.SetParentEdges(child, k.field, parents)
	}

	k.mu.Lock()
	k.graph = graph
	k.index = index
	k.mu.Unlock()

	k.log.Info().Int("notes", graph.NodeCount()).Int("edges", graph.EdgeCount()).
		Msg("graph loaded from snapshot")
	return nil
}

// Rebuild rescans the whole vault and replaces the graph. The result is
// independent of scan order: notes are registered first, references
// resolved and applied second.
func (k *Chainkeeper) Rebuild(ctx context.Context) (Stats, error) {
	var stats Stats
	err := k.do(ctx, func(ctx context.Context) error {
		notes, err := k.vault.List()
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}

		type extracted struct {
			path    string
			created time.Time
			refs    []string
		}
		index := vault.NewNameIndex(nil)
		items := make([]extracted, 0, len(notes))
		for _, info := range notes {
			created, refs := k.extract(info.Path, info.ModTime)
			items = append(items, extracted{path: info.Path, created: created, refs: refs})
			index.Add(info.Path)
		}

		graph := domain.NewGraph()
		for _, item := range items {
			graph.AddOrUpdateNode(item.path, item.created)
		}
		for _, item := range items {
			graph.SetParentEdges(item.path, k.field, k.resolveRefs(index, item.refs))
		}

		k.mu.Lock()
		k.graph = graph
		k.index = index
		k.lastRebuild = time.Now()
		stats = k.statsLocked()
		k.mu.Unlock()

		if k.snap != nil {
			if err := k.snap.Replace(ctx, graph.Nodes(), graph.Edges()); err != nil {
				k.log.Error().Err(err).Msg("failed to persist snapshot")
			}
		}

		k.metrics.RecordRebuild(stats.Notes, stats.Edges)
		k.bus.Publish(Event{Type: EventGraphRebuilt, Payload: stats})
		k.log.Info().Int("notes", stats.Notes).Int("edges", stats.Edges).Msg("graph rebuilt")
		return nil
	})
	return stats, err
}

// UpdateNote re-extracts a single note and replaces its parent edges.
// An unknown path is an implicit add.
func (k *Chainkeeper) UpdateNote(ctx context.Context, notePath string) error {
	return k.do(ctx, func(ctx context.Context) error {
		info, err := k.vault.Stat(notePath)
		if err != nil {
			return err
		}
		created, refs := k.extract(notePath, info.ModTime)

		k.mu.Lock()
		k.index.Add(notePath)
		parents := k.resolveRefs(k.index, refs)
		k.graph.AddOrUpdateNode(notePath, created)
		k.graph.SetParentEdges(notePath, k.field, parents)
		node, _ := k.graph.Node(notePath)
		edges := k.outgoingLocked(notePath)
		nodes, edgeCount := k.graph.NodeCount(), k.graph.EdgeCount()
		k.mu.Unlock()

		if k.snap != nil {
			if err := k.snap.SaveNote(ctx, node, edges); err != nil {
				k.log.Error().Err(err).Str("note", notePath).Msg("failed to persist note")
			}
		}

		k.metrics.RecordNoteUpdate(nodes, edgeCount)
		k.bus.Publish(Event{Type: EventNoteUpdated, Payload: map[string]string{"note": notePath}})
		k.log.Debug().Str("note", notePath).Strs("parents", parents).Msg("note updated")
		return nil
	})
}

// DeleteNote heals the chains through a deleted note, writes the new
// parent references back into the affected files, and removes the node.
// A failed write-back is logged and counted but never aborts the
// remaining children; the in-memory graph is updated regardless so it
// reflects the intended state.
func (k *Chainkeeper) DeleteNote(ctx context.Context, notePath string) error {
	return k.do(ctx, func(ctx context.Context) error {
		k.mu.Lock()
		rewrites := k.graph.Heal(notePath, k.field)
		for _, rw := range rewrites {
			k.graph.SetParentEdges(rw.NoteID, k.field, rw.Parents)
		}
		k.graph.RemoveNode(notePath)
		k.index.Remove(notePath)
		healedNodes := make([]domain.Node, 0, len(rewrites))
		healedEdges := make(map[string][]domain.Edge, len(rewrites))
		for _, rw := range rewrites {
			if n, ok := k.graph.Node(rw.NoteID); ok {
				healedNodes = append(healedNodes, n)
				healedEdges[rw.NoteID] = k.outgoingLocked(rw.NoteID)
			}
		}
		nodes, edgeCount := k.graph.NodeCount(), k.graph.EdgeCount()
		k.mu.Unlock()

		var failures []string
		for _, rw := range rewrites {
			if err := k.vault.WriteParentRefs(rw.NoteID, k.field, rw.Parents); err != nil {
				failures = append(failures, rw.NoteID)
				k.metrics.RecordRewriteFailure()
				k.log.Error().Err(err).Str("note", rw.NoteID).Msg("failed to rewrite parent reference")
			}
		}

		if k.snap != nil {
			if err := k.snap.DeleteNote(ctx, notePath); err != nil {
				k.log.Error().Err(err).Str("note", notePath).Msg("failed to persist deletion")
			}
			for _, n := range healedNodes {
				if err := k.snap.SaveNote(ctx, n, healedEdges[n.ID]); err != nil {
					k.log.Error().Err(err).Str("note", n.ID).Msg("failed to persist heal")
				}
			}
		}

		k.metrics.RecordNoteDelete(len(rewrites), nodes, edgeCount)
		k.bus.Publish(Event{Type: EventNoteDeleted, Payload: map[string]string{"note": notePath}})
		if len(rewrites) > 0 {
			k.bus.Publish(Event{Type: EventChainHealed, Payload: map[string]interface{}{
				"note":     notePath,
				"rewrites": rewrites,
				"failures": failures,
			}})
			k.log.Info().Str("note", notePath).Int("rewrites", len(rewrites)).
				Int("failures", len(failures)).Msg("chain healed")
		}
		return nil
	})
}

// RenameNote relabels a note, preserving its place in every chain.
func (k *Chainkeeper) RenameNote(ctx context.Context, oldPath, newPath string) error {
	return k.do(ctx, func(ctx context.Context) error {
		k.mu.Lock()
		err := k.graph.RenameNode(oldPath, newPath)
		if err == nil {
			k.index.Rename(oldPath, newPath)
		}
		nodes, edgeCount := k.graph.NodeCount(), k.graph.EdgeCount()
		k.mu.Unlock()
		if err != nil {
			return fmt.Errorf("rename failed: %w", err)
		}

		if k.snap != nil {
			if err := k.snap.RenameNote(ctx, oldPath, newPath); err != nil {
				k.log.Error().Err(err).Str("note", newPath).Msg("failed to persist rename")
			}
		}

		k.metrics.RecordNoteRename(nodes, edgeCount)
		k.bus.Publish(Event{Type: EventNoteRenamed, Payload: map[string]string{
			"old": oldPath,
			"new": newPath,
		}})
		k.log.Info().Str("old", oldPath).Str("new", newPath).Msg("note renamed")
		return nil
	})
}

// Chain resolves the full chain through a note. The reference may be a
// path or a bare note name.
func (k *Chainkeeper) Chain(ref string) (domain.ChainView, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	id, ok := k.index.Resolve(ref)
	if !ok {
		if !k.graph.HasNode(ref) {
			return domain.ChainView{}, &domain.NotFoundError{ID: ref}
		}
		id = ref
	}
	return domain.NewResolver(k.graph, k.field).Chain(id), nil
}

// Note returns a single node and its parents.
func (k *Chainkeeper) Note(ref string) (domain.Node, []string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	id, ok := k.index.Resolve(ref)
	if !ok {
		id = ref
	}
	node, ok := k.graph.Node(id)
	if !ok {
		return domain.Node{}, nil, &domain.NotFoundError{ID: ref}
	}
	return node, k.graph.ParentsOf(id), nil
}

// GraphSnapshot returns a copy of all nodes and edges.
func (k *Chainkeeper) GraphSnapshot() ([]domain.Node, []domain.Edge) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.graph.Nodes(), k.graph.Edges()
}

// GraphStats returns the current graph counters.
func (k *Chainkeeper) GraphStats() Stats {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.statsLocked()
}

func (k *Chainkeeper) statsLocked() Stats {
	stats := Stats{
		Notes:       k.graph.NodeCount(),
		Edges:       k.graph.EdgeCount(),
		LastRebuild: k.lastRebuild,
	}
	for _, n := range k.graph.Nodes() {
		if n.Placeholder {
			stats.Placeholders++
		}
	}
	return stats
}

// extract reads a note and pulls out its creation time and raw parent
// references. A note that cannot be read or parsed still counts as a
// note; it just contributes no references.
func (k *Chainkeeper) extract(notePath string, modTime time.Time) (time.Time, []string) {
	created := modTime
	data, err := k.vault.Read(notePath)
	if err != nil {
		k.log.Warn().Err(err).Str("note", notePath).Msg("failed to read note")
		return created, nil
	}
	block, err := frontmatter.Parse(data)
	if err != nil {
		k.log.Warn().Err(err).Str("note", notePath).Msg("failed to parse frontmatter")
		return created, nil
	}
	if t, ok := block.Time(k.created); ok {
		created = t
	}
	return created, block.Strings(k.field)
}

// resolveRefs maps raw frontmatter references to canonical note paths.
// A reference that resolves to nothing but names an explicit path (it
// contains a separator or the markdown extension) becomes a placeholder
// target; bare names that match no note are dropped.
func (k *Chainkeeper) resolveRefs(index *vault.NameIndex, refs []string) []string {
	var parents []string
	for _, ref := range refs {
		if id, ok := index.Resolve(ref); ok {
			parents = append(parents, id)
			continue
		}
		if id, ok := placeholderID(ref); ok {
			parents = append(parents, id)
			continue
		}
		k.log.Debug().Str("ref", ref).Msg("unresolvable parent reference dropped")
	}
	return parents
}

func (k *Chainkeeper) outgoingLocked(id string) []domain.Edge {
	var out []domain.Edge
	for _, parent := range k.graph.ParentsOf(id) {
		out = append(out, domain.Edge{ChildID: id, ParentID: parent, Field: k.field})
	}
	return out
}

// placeholderID normalizes an explicit-path reference to a canonical
// placeholder identifier.
func placeholderID(ref string) (string, bool) {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	if ref == "" {
		return "", false
	}
	isPath := strings.Contains(ref, "/") || strings.EqualFold(path.Ext(ref), ".md")
	if !isPath {
		return "", false
	}
	ref = path.Clean(ref)
	if strings.HasPrefix(ref, "..") || path.IsAbs(ref) {
		return "", false
	}
	if !strings.EqualFold(path.Ext(ref), ".md") {
		ref += ".md"
	}
	return ref, true
}
