package domain

import "time"

// Node represents one note known to the graph.
//
// A node exists either because its note has been processed, or because
// another note referenced it first. The latter case is a placeholder:
// the identifier is known but the attributes are not, and they are
// filled in when the note is eventually seen.
type Node struct {
	ID          string    `json:"id"`
	Created     time.Time `json:"created,omitzero"`
	Placeholder bool      `json:"placeholder,omitempty"`
}
