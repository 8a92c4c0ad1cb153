// Package domain defines the core types for the notechain relationship graph.
//
// This package contains the in-memory graph of notes and the chain logic
// built on top of it: nodes keyed by note path, directed parent-reference
// edges, chain resolution, and chain healing.
//
// # Core Types
//
// Node represents one note known to the graph, carrying the creation
// timestamp used for branch tie-breaking. Notes referenced before they
// have been processed exist as placeholders until the note is seen.
//
// Edge is a directed parent reference: the child note names the parent as
// its chronological predecessor. Edges are labeled with the frontmatter
// field they came from so parent references can be distinguished from any
// other relation the graph might carry.
//
// Graph owns the node and edge sets and all mutation primitives. It is a
// plain data structure with no locking; the coordinating service owns one
// instance and serializes every access.
//
// # Chain Resolution
//
// Resolver walks the graph from a focal note: backward along outgoing
// parent edges, forward along incoming ones. When a note has several
// children, the oldest-created child is the linear continuation and the
// rest are branches. Both walk directions keep a visited set, so reference
// cycles terminate instead of looping.
//
// # Healing
//
// Heal computes the reference rewrites that keep a chain connected when an
// interior note is deleted: each child of the deleted note is repointed at
// the deleted note's own parents. Healing only computes instructions; the
// caller applies them and then removes the node.
//
// # Design Principles
//
// - No database or external dependencies
// - Pure domain logic without infrastructure concerns
// - Every mutation leaves the graph with no dangling edges and no
// self-loop chain links
package domain
