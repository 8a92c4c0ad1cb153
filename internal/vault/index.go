package vault

import (
	"path"
	"sort"
	"strings"
)

// NameIndex resolves the note references found in frontmatter to
// canonical vault paths. A reference may be a full relative path, a
// path without its extension, or a bare note name; matching falls back
// to case-insensitive when the exact form misses. When a bare name is
// ambiguous the lexicographically smallest path wins, so resolution is
// deterministic across rebuilds.
type NameIndex struct {
	paths  map[string]struct{}
	lower  map[string][]string // lowercased full path -> canonical paths
	byName map[string][]string // lowercased basename sans ext -> canonical paths
}

// NewNameIndex builds an index over the given note paths.
func NewNameIndex(paths []string) *NameIndex {
	idx := &NameIndex{
		paths:  make(map[string]struct{}, len(paths)),
		lower:  make(map[string][]string),
		byName: make(map[string][]string),
	}
	for _, p := range paths {
		idx.Add(p)
	}
	return idx
}

// Add registers a note path.
func (idx *NameIndex) Add(notePath string) {
	if _, ok := idx.paths[notePath]; ok {
		return
	}
	idx.paths[notePath] = struct{}{}
	insertSorted(idx.lower, strings.ToLower(notePath), notePath)
	insertSorted(idx.byName, baseName(notePath), notePath)
}

// Remove forgets a note path.
func (idx *NameIndex) Remove(notePath string) {
	if _, ok := idx.paths[notePath]; !ok {
		return
	}
	delete(idx.paths, notePath)
	removeSorted(idx.lower, strings.ToLower(notePath), notePath)
	removeSorted(idx.byName, baseName(notePath), notePath)
}

// Rename moves a note path in the index.
func (idx *NameIndex) Rename(oldPath, newPath string) {
	idx.Remove(oldPath)
	idx.Add(newPath)
}

// Resolve maps a frontmatter reference to a canonical note path. It
// tries, in order: the exact path, the path with .md appended, a
// case-insensitive path match, then a basename match. A reference that
// matches nothing resolves to false; the caller drops the edge rather
// than invent a target.
func (idx *NameIndex) Resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	ref = path.Clean(strings.ReplaceAll(ref, "\\", "/"))

	if _, ok := idx.paths[ref]; ok {
		return ref, true
	}
	if withExt := ref + ".md"; !strings.EqualFold(path.Ext(ref), ".md") {
		if _, ok := idx.paths[withExt]; ok {
			return withExt, true
		}
	}

	lower := strings.ToLower(ref)
	if !strings.HasSuffix(lower, ".md") {
		lower += ".md"
	}
	if candidates := idx.lower[lower]; len(candidates) > 0 {
		return candidates[0], true
	}

	if candidates := idx.byName[baseName(ref)]; len(candidates) > 0 {
		return candidates[0], true
	}
	return "", false
}

// baseName lowercases a path's final element and strips the markdown
// extension.
func baseName(p string) string {
	name := strings.ToLower(path.Base(strings.ReplaceAll(p, "\\", "/")))
	return strings.TrimSuffix(name, ".md")
}

func insertSorted(m map[string][]string, key, value string) {
	list := m[key]
	i := sort.SearchStrings(list, value)
	if i < len(list) && list[i] == value {
		return
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = value
	m[key] = list
}

func removeSorted(m map[string][]string, key, value string) {
	list := m[key]
	i := sort.SearchStrings(list, value)
	if i >= len(list) || list[i] != value {
		return
	}
	list = append(list[:i:i], list[i+1:]...)
	if len(list) == 0 {
		delete(m, key)
	} else {
		m[key] = list
	}
}
