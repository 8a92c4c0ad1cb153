package domain

import (
	"sort"
	"time"
)

// Graph is the in-memory relationship graph over notes.
//
// It maintains two invariants across every mutation: each edge endpoint
// has a node (parents referenced before their note exists are created as
// placeholders), and no edge connects a note to itself.
type Graph struct {
	nodes    map[string]*Node
	outgoing map[string][]Edge // keyed by child ID
	incoming map[string][]Edge // keyed by parent ID
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]Edge),
		incoming: make(map[string][]Edge),
	}
}

// HasNode reports whether a note is known to the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node for id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// NodeCount returns the number of nodes, placeholders included.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of parent-reference edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, edges := range g.outgoing {
		count += len(edges)
	}
	return count
}

// AddOrUpdateNode upserts a node. Creates the node if absent, merges
// attributes if present: a zero created time leaves any known creation
// time untouched. The node stops being a placeholder either way.
func (g *Graph) AddOrUpdateNode(id string, created time.Time) {
	n, ok := g.nodes[id]
	if !ok {
		n = &Node{ID: id}
		g.nodes[id] = n
	}
	if !created.IsZero() {
		n.Created = created
	}
	n.Placeholder = false
}

// SetParentEdges replaces all outgoing edges of childID labeled with
// field by edges to the given parents. Stale edges are removed, new ones
// added, duplicates and self-references dropped. Parents not yet known
// are created as placeholder nodes; an unknown childID is an implicit
// add. Calling twice with the same arguments is a no-op the second time.
func (g *Graph) SetParentEdges(childID, field string, parentIDs []string) {
	if childID == "" {
		return
	}
	g.ensure(childID)

	var kept []Edge
	for _, e := range g.outgoing[childID] {
		if e.Field == field {
			g.dropIncoming(e)
			continue
		}
		kept = append(kept, e)
	}

	seen := make(map[string]struct{}, len(parentIDs))
	for _, parentID := range parentIDs {
		if parentID == "" || parentID == childID {
			continue
		}
		if _, dup := seen[parentID]; dup {
			continue
		}
		seen[parentID] = struct{}{}

		g.ensure(parentID)
		e := Edge{ChildID: childID, ParentID: parentID, Field: field}
		kept = append(kept, e)
		g.incoming[parentID] = append(g.incoming[parentID], e)
	}

	if len(kept) == 0 {
		delete(g.outgoing, childID)
	} else {
		g.outgoing[childID] = kept
	}
}

// RemoveNode removes a node and every edge touching it, in both
// directions. Removing an unknown node is a no-op.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}

	for _, e := range g.outgoing[id] {
		g.dropIncoming(e)
	}
	delete(g.outgoing, id)

	for _, e := range g.incoming[id] {
		g.dropOutgoing(e)
	}
	delete(g.incoming, id)

	delete(g.nodes, id)
}

// RenameNode relabels a node, preserving its edges and attributes.
// Returns NotFoundError when oldID is not in the graph. When newID
// already exists the two nodes are merged: edge sets are unioned and the
// existing node's attributes win unless it was only a placeholder. Edges
// that would collapse into self-loops are dropped.
func (g *Graph) RenameNode(oldID, newID string) error {
	old, ok := g.nodes[oldID]
	if !ok {
		return &NotFoundError{ID: oldID}
	}
	if oldID == newID {
		return nil
	}

	oldCopy := *old
	out := append([]Edge(nil), g.outgoing[oldID]...)
	in := append([]Edge(nil), g.incoming[oldID]...)
	g.RemoveNode(oldID)

	if existing, merge := g.nodes[newID]; merge {
		if existing.Placeholder && !oldCopy.Placeholder {
			existing.Created = oldCopy.Created
			existing.Placeholder = false
		}
	} else {
		g.nodes[newID] = &Node{ID: newID, Created: oldCopy.Created, Placeholder: oldCopy.Placeholder}
	}

	for _, e := range out {
		parentID := e.ParentID
		if parentID == oldID {
			parentID = newID
		}
		g.addEdge(newID, parentID, e.Field)
	}
	for _, e := range in {
		childID := e.ChildID
		if childID == oldID {
			childID = newID
		}
		g.addEdge(childID, newID, e.Field)
	}

	return nil
}

// ParentsOf returns the parent IDs of a note in edge order. A note with
// a well-formed reference has at most one; malformed input may yield
// several.
func (g *Graph) ParentsOf(id string) []string {
	edges := g.outgoing[id]
	if len(edges) == 0 {
		return nil
	}
	parents := make([]string, 0, len(edges))
	for _, e := range edges {
		parents = append(parents, e.ParentID)
	}
	return parents
}

// ChildrenOf returns the notes whose parent reference points at id.
// A non-empty field restricts the result to edges with that label.
func (g *Graph) ChildrenOf(id, field string) []string {
	edges := g.incoming[id]
	if len(edges) == 0 {
		return nil
	}
	children := make([]string, 0, len(edges))
	for _, e := range edges {
		if field != "" && e.Field != field {
			continue
		}
		children = append(children, e.ChildID)
	}
	return children
}

// Nodes returns a copy of all nodes, sorted by ID.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns a copy of all edges, sorted by child then parent ID.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0)
	for _, out := range g.outgoing {
		edges = append(edges, out...)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ChildID != edges[j].ChildID {
			return edges[i].ChildID < edges[j].ChildID
		}
		return edges[i].ParentID < edges[j].ParentID
	})
	return edges
}

// ensure creates a placeholder node when id is not yet known.
func (g *Graph) ensure(id string) {
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = &Node{ID: id, Placeholder: true}
	}
}

// addEdge appends a single edge, skipping self-loops and duplicates.
func (g *Graph) addEdge(childID, parentID, field string) {
	if childID == parentID {
		return
	}
	for _, e := range g.outgoing[childID] {
		if e.ParentID == parentID && e.Field == field {
			return
		}
	}
	g.ensure(childID)
	g.ensure(parentID)
	e := Edge{ChildID: childID, ParentID: parentID, Field: field}
	g.outgoing[childID] = append(g.outgoing[childID], e)
	g.incoming[parentID] = append(g.incoming[parentID], e)
}

func (g *Graph) dropIncoming(e Edge) {
	edges := g.incoming[e.ParentID]
	for i, candidate := range edges {
		if candidate == e {
			g.incoming[e.ParentID] = append(edges[:i:i], edges[i+1:]...)
			break
		}
	}
	if len(g.incoming[e.ParentID]) == 0 {
		delete(g.incoming, e.ParentID)
	}
}

func (g *Graph) dropOutgoing(e Edge) {
	edges := g.outgoing[e.ChildID]
	for i, candidate := range edges {
		if candidate == e {
			g.outgoing[e.ChildID] = append(edges[:i:i], edges[i+1:]...)
			break
		}
	}
	if len(g.outgoing[e.ChildID]) == 0 {
		delete(g.outgoing, e.ChildID)
	}
}
