package handler

import (
	"net/http"
	"time"

	"gopkg.in/yaml.v3"
)

// exportGraph is the wire shape for graph exports.
type exportGraph struct {
	Nodes []exportNode `json:"nodes" yaml:"nodes"`
	Edges []exportEdge `json:"edges" yaml:"edges"`
}

type exportNode struct {
	ID          string     `json:"id" yaml:"id"`
	Created     *time.Time `json:"created,omitempty" yaml:"created,omitempty"`
	Placeholder bool       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

type exportEdge struct {
	Child  string `json:"child" yaml:"child"`
	Parent string `json:"parent" yaml:"parent"`
	Field  string `json:"field" yaml:"field"`
}

func (h *ChainHandler) exportSnapshot() exportGraph {
	nodes, edges := h.svc.GraphSnapshot()
	out := exportGraph{
		Nodes: make([]exportNode, 0, len(nodes)),
		Edges: make([]exportEdge, 0, len(edges)),
	}
	for _, n := range nodes {
		en := exportNode{ID: n.ID, Placeholder: n.Placeholder}
		if !n.Created.IsZero() {
			created := n.Created
			en.Created = &created
		}
		out.Nodes = append(out.Nodes, en)
	}
	for _, e := range edges {
		out.Edges = append(out.Edges, exportEdge{Child: e.ChildID, Parent: e.ParentID, Field: e.Field})
	}
	return out
}

// ExportJSON exports the graph as JSON
func (h *ChainHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", "attachment; filename=graph.json")
	h.writeJSON(w, h.exportSnapshot(), http.StatusOK)
}

// ExportYAML exports the graph as YAML
func (h *ChainHandler) ExportYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", "attachment; filename=graph.yml")

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	if err := enc.Encode(h.exportSnapshot()); err != nil {
		h.log.Error().Err(err).Msg("failed to export yaml")
	}
}
