package domain

import (
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAddOrUpdateNode(t *testing.T) {
	t.Run("creates node when absent", func(t *testing.T) {
		g := NewGraph()
		g.AddOrUpdateNode("a.md", ts("2024-01-01T00:00:00Z"))

		if !g.HasNode("a.md") {
			t.Fatal("expected node to exist")
		}
		node, _ := g.Node("a.md")
		if node.Placeholder {
			t.Error("expected node not to be a placeholder")
		}
		if !node.Created.Equal(ts("2024-01-01T00:00:00Z")) {
			t.Errorf("unexpected created time %v", node.Created)
		}
	})

	t.Run("merges attributes on upsert", func(t *testing.T) {
		g := NewGraph()
		g.AddOrUpdateNode("a.md", ts("2024-01-01T00:00:00Z"))
		g.AddOrUpdateNode("a.md", time.Time{})

		node, _ := g.Node("a.md")
		if node.Created.IsZero() {
			t.Error("zero created time should not clear the known one")
		}
		if g.NodeCount() != 1 {
			t.Errorf("expected 1 node, got %d", g.NodeCount())
		}
	})

	t.Run("fills in placeholder", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"b.md"})

		node, _ := g.Node("b.md")
		if !node.Placeholder {
			t.Fatal("expected b.md to be a placeholder")
		}

		g.AddOrUpdateNode("b.md", ts("2024-01-02T00:00:00Z"))
		node, _ = g.Node("b.md")
		if node.Placeholder {
			t.Error("expected placeholder to be filled in")
		}
	})
}

func TestSetParentEdges(t *testing.T) {
	t.Run("creates edge and placeholder parent", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"b.md"})

		if got := g.ParentsOf("a.md"); len(got) != 1 || got[0] != "b.md" {
			t.Errorf("expected parents [b.md], got %v", got)
		}
		if got := g.ChildrenOf("b.md", "prev"); len(got) != 1 || got[0] != "a.md" {
			t.Errorf("expected children [a.md], got %v", got)
		}
		if g.EdgeCount() != 1 {
			t.Errorf("expected 1 edge, got %d", g.EdgeCount())
		}
	})

	t.Run("replaces edge set wholesale", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"b.md"})
		g.SetParentEdges("a.md", "prev", []string{"c.md"})

		if got := g.ParentsOf("a.md"); len(got) != 1 || got[0] != "c.md" {
			t.Errorf("expected parents [c.md], got %v", got)
		}
		if got := g.ChildrenOf("b.md", "prev"); len(got) != 0 {
			t.Errorf("expected stale edge removed, got children %v", got)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"b.md"})
		g.SetParentEdges("a.md", "prev", []string{"b.md"})

		if g.EdgeCount() != 1 {
			t.Errorf("expected 1 edge after redundant call, got %d", g.EdgeCount())
		}
		if g.NodeCount() != 2 {
			t.Errorf("expected 2 nodes, got %d", g.NodeCount())
		}
	})

	t.Run("empty set clears edges", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"b.md"})
		g.SetParentEdges("a.md", "prev", nil)

		if g.EdgeCount() != 0 {
			t.Errorf("expected 0 edges, got %d", g.EdgeCount())
		}
	})

	t.Run("drops self-references", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"a.md"})

		if g.EdgeCount() != 0 {
			t.Errorf("expected self-reference to be dropped, got %d edges", g.EdgeCount())
		}
	})

	t.Run("deduplicates parents", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"b.md", "b.md", "c.md"})

		if got := g.ParentsOf("a.md"); len(got) != 2 {
			t.Errorf("expected 2 parents, got %v", got)
		}
	})

	t.Run("unknown child is an implicit add", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("new.md", "prev", nil)

		if !g.HasNode("new.md") {
			t.Error("expected child node to be created")
		}
	})
}

func TestRemoveNode(t *testing.T) {
	t.Run("removes node and touching edges", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"b.md"})
		g.SetParentEdges("b.md", "prev", []string{"c.md"})

		g.RemoveNode("b.md")

		if g.HasNode("b.md") {
			t.Error("expected b.md to be gone")
		}
		if g.EdgeCount() != 0 {
			t.Errorf("expected all edges touching b.md removed, got %d", g.EdgeCount())
		}
		if got := g.ParentsOf("a.md"); len(got) != 0 {
			t.Errorf("expected a.md to have no parents, got %v", got)
		}
	})

	t.Run("double delete is a no-op", func(t *testing.T) {
		g := NewGraph()
		g.AddOrUpdateNode("a.md", time.Time{})
		g.RemoveNode("a.md")
		g.RemoveNode("a.md")

		if g.NodeCount() != 0 {
			t.Errorf("expected 0 nodes, got %d", g.NodeCount())
		}
	})
}

func TestRenameNode(t *testing.T) {
	t.Run("preserves edges and attributes", func(t *testing.T) {
		g := NewGraph()
		g.AddOrUpdateNode("b.md", ts("2024-01-02T00:00:00Z"))
		g.SetParentEdges("a.md", "prev", []string{"b.md"})
		g.SetParentEdges("b.md", "prev", []string{"c.md"})

		if err := g.RenameNode("b.md", "b2.md"); err != nil {
			t.Fatalf("rename failed: %v", err)
		}

		if g.HasNode("b.md") {
			t.Error("expected old ID to be gone")
		}
		if got := g.ParentsOf("a.md"); len(got) != 1 || got[0] != "b2.md" {
			t.Errorf("expected a.md parent [b2.md], got %v", got)
		}
		if got := g.ParentsOf("b2.md"); len(got) != 1 || got[0] != "c.md" {
			t.Errorf("expected b2.md parent [c.md], got %v", got)
		}
		node, _ := g.Node("b2.md")
		if !node.Created.Equal(ts("2024-01-02T00:00:00Z")) {
			t.Errorf("expected created time preserved, got %v", node.Created)
		}
	})

	t.Run("unknown source returns NotFoundError", func(t *testing.T) {
		g := NewGraph()
		err := g.RenameNode("missing.md", "other.md")
		if err == nil {
			t.Fatal("expected error")
		}
		if !IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("merges into existing target", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("a.md", "prev", []string{"old.md"})
		g.SetParentEdges("b.md", "prev", []string{"target.md"})
		g.AddOrUpdateNode("old.md", ts("2024-01-01T00:00:00Z"))
		g.AddOrUpdateNode("target.md", ts("2024-01-05T00:00:00Z"))

		if err := g.RenameNode("old.md", "target.md"); err != nil {
			t.Fatalf("rename failed: %v", err)
		}

		// Both children now point at the merged node.
		children := g.ChildrenOf("target.md", "prev")
		if len(children) != 2 {
			t.Fatalf("expected 2 children after merge, got %v", children)
		}
		node, _ := g.Node("target.md")
		if !node.Created.Equal(ts("2024-01-05T00:00:00Z")) {
			t.Errorf("expected existing attributes to win, got %v", node.Created)
		}
	})

	t.Run("merge drops collapsing self-loop", func(t *testing.T) {
		g := NewGraph()
		g.SetParentEdges("old.md", "prev", []string{"target.md"})

		if err := g.RenameNode("old.md", "target.md"); err != nil {
			t.Fatalf("rename failed: %v", err)
		}
		if g.EdgeCount() != 0 {
			t.Errorf("expected collapsed self-loop dropped, got %d edges", g.EdgeCount())
		}
	})
}
