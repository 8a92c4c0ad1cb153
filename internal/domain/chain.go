package domain

// Resolver computes the canonical linear chain through a graph. It is a
// read-only view; the owning service must not mutate the graph while a
// resolution is in progress.
type Resolver struct {
	g     *Graph
	field string
}

// NewResolver creates a resolver that follows parent references labeled
// with field when walking forward.
func NewResolver(g *Graph, field string) *Resolver {
	return &Resolver{g: g, field: field}
}

// ChainView is the rendering-ready resolution of a note's chain.
type ChainView struct {
	Prev     []string `json:"prev"` // oldest first
	Note     string   `json:"note"`
	Next     []string `json:"next"` // nearest first
	Branches []Branch `json:"branches,omitempty"`
}

// Branch lists the children that were not selected as the linear
// continuation at one point in the chain.
type Branch struct {
	At    string   `json:"at"`
	Notes []string `json:"notes"`
}

// PrevChain returns the ancestors of a note, nearest first. The walk
// follows outgoing parent edges, taking the first edge when a note has
// several, and stops when a note has no parent or the next parent has
// already been visited.
func (r *Resolver) PrevChain(id string) []string {
	visited := map[string]bool{id: true}
	var chain []string

	cur := id
	for {
		parents := r.g.ParentsOf(cur)
		next, ok := firstParent(parents)
		if !ok || visited[next] {
			break
		}
		visited[next] = true
		chain = append(chain, next)
		cur = next
	}
	return chain
}

// NextChain returns the descendants of a note along the main
// continuation, nearest first. At each step the oldest-created child
// wins; younger children are branches and not part of the linear chain.
// The walk stops when a note has no children or the selected child has
// already been visited.
func (r *Resolver) NextChain(id string) []string {
	visited := map[string]bool{id: true}
	var chain []string

	cur := id
	for {
		next, ok := r.mainChild(cur)
		if !ok || visited[next] {
			break
		}
		visited[next] = true
		chain = append(chain, next)
		cur = next
	}
	return chain
}

// FullChain returns the complete chain through a note, oldest first:
// reversed ancestors, the note itself, then the forward continuation.
func (r *Resolver) FullChain(id string) []string {
	prev := r.PrevChain(id)
	next := r.NextChain(id)

	chain := make([]string, 0, len(prev)+1+len(next))
	for i := len(prev) - 1; i >= 0; i-- {
		chain = append(chain, prev[i])
	}
	chain = append(chain, id)
	chain = append(chain, next...)
	return chain
}

// Chain resolves the full chain of a note along with the branches
// passed over at each link.
func (r *Resolver) Chain(id string) ChainView {
	prev := r.PrevChain(id)
	next := r.NextChain(id)

	view := ChainView{
		Prev: make([]string, 0, len(prev)),
		Note: id,
		Next: next,
	}
	for i := len(prev) - 1; i >= 0; i-- {
		view.Prev = append(view.Prev, prev[i])
	}

	// A branch exists wherever a chain note has children beyond the one
	// the chain continues through.
	successor := make(map[string]string)
	full := append(append(append([]string{}, view.Prev...), id), next...)
	for i := 0; i+1 < len(full); i++ {
		successor[full[i]] = full[i+1]
	}
	for _, noteID := range full {
		var skipped []string
		for _, child := range r.g.ChildrenOf(noteID, r.field) {
			if child != successor[noteID] {
				skipped = append(skipped, child)
			}
		}
		if len(skipped) > 0 {
			view.Branches = append(view.Branches, Branch{At: noteID, Notes: skipped})
		}
	}
	return view
}

// mainChild selects the linear continuation among a note's children:
// smallest creation timestamp, smallest ID on a timestamp tie.
func (r *Resolver) mainChild(id string) (string, bool) {
	children := r.g.ChildrenOf(id, r.field)
	if len(children) == 0 {
		return "", false
	}

	best := children[0]
	bestNode, _ := r.g.Node(best)
	for _, child := range children[1:] {
		node, _ := r.g.Node(child)
		if node.Created.Before(bestNode.Created) ||
			(node.Created.Equal(bestNode.Created) && child < best) {
			best = child
			bestNode = node
		}
	}
	return best, true
}

// firstParent picks the deterministic "first" parent edge: the only one
// in the well-formed case, the smallest ID under malformed multi-parent
// input. The order among multiple parents is not meaningful.
func firstParent(parents []string) (string, bool) {
	if len(parents) == 0 {
		return "", false
	}
	first := parents[0]
	for _, p := range parents[1:] {
		if p < first {
			first = p
		}
	}
	return first, true
}
