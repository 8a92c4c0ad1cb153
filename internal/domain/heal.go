package domain

import "sort"

// Rewrite instructs the reference writer to replace one note's parent
// references with a new set.
type Rewrite struct {
	NoteID  string   `json:"note_id"`
	Parents []string `json:"parents"`
}

// Heal computes the reference rewrites needed to keep chains connected
// when deletedID is removed: every note whose parent reference (labeled
// with field) points at the deleted note is repointed at the deleted
// note's own parents. The child's remaining parents are preserved and
// the result deduplicated.
//
// Heal does not mutate the graph and must run before the node is
// removed, since it needs the deleted note's own edges. A deletedID with
// no node yields no rewrites, so double-delete notifications are
// harmless.
func (g *Graph) Heal(deletedID, field string) []Rewrite {
	if !g.HasNode(deletedID) {
		return nil
	}

	grandparents := g.ParentsOf(deletedID)
	children := g.ChildrenOf(deletedID, field)
	if len(children) == 0 {
		return nil
	}

	rewrites := make([]Rewrite, 0, len(children))
	for _, child := range children {
		seen := make(map[string]struct{})
		parents := make([]string, 0, len(grandparents))

		for _, p := range g.ParentsOf(child) {
			if p == deletedID {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			parents = append(parents, p)
		}
		for _, p := range grandparents {
			// A cycle through the deleted note would repoint the child
			// at itself; drop that link instead.
			if p == child {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			parents = append(parents, p)
		}

		rewrites = append(rewrites, Rewrite{NoteID: child, Parents: parents})
	}

	sort.Slice(rewrites, func(i, j int) bool { return rewrites[i].NoteID < rewrites[j].NoteID })
	return rewrites
}
