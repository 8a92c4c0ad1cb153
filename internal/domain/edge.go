package domain

// Edge is a directed parent reference. The child note declared the
// parent as its predecessor in the frontmatter field named by Field.
type Edge struct {
	ChildID  string `json:"child_id"`
	ParentID string `json:"parent_id"`
	Field    string `json:"field"`
}
