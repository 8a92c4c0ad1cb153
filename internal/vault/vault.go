// Package vault gives file-level access to a directory of markdown
// notes. Notes are addressed by their vault-relative path with forward
// slashes; the NameIndex maps the looser references found in
// frontmatter back to those paths.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"notechain/internal/frontmatter"
)

// NoteInfo describes one note found in the vault.
type NoteInfo struct {
	Path    string // vault-relative, forward slashes
	ModTime time.Time
}

// Vault is a directory tree of markdown notes.
type Vault struct {
	root string
}

// Open validates that root exists and is a directory.
func Open(root string) (*Vault, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path %s is not a directory", root)
	}
	return &Vault{root: root}, nil
}

// Root returns the vault's directory on disk.
func (v *Vault) Root() string {
	return v.root
}

// List walks the vault and returns every markdown note, sorted by path.
// Hidden directories (a leading dot, like .obsidian or .git) are
// skipped.
func (v *Vault) List() ([]NoteInfo, error) {
	var notes []NoteInfo
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsNote(path) {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		notes = append(notes, NoteInfo{
			Path:    filepath.ToSlash(rel),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vault: %w", err)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes, nil
}

// Stat returns the note's metadata.
func (v *Vault) Stat(path string) (NoteInfo, error) {
	abs, err := v.abs(path)
	if err != nil {
		return NoteInfo{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return NoteInfo{}, fmt.Errorf("failed to stat note %s: %w", path, err)
	}
	return NoteInfo{Path: path, ModTime: info.ModTime()}, nil
}

// Read returns the raw contents of a note.
func (v *Vault) Read(path string) ([]byte, error) {
	abs, err := v.abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read note %s: %w", path, err)
	}
	return data, nil
}

// WriteParentRefs rewrites a note's parent reference field in place,
// leaving the body and all other frontmatter untouched. The file mode
// is preserved.
func (v *Vault) WriteParentRefs(path, field string, parents []string) error {
	abs, err := v.abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read note %s: %w", path, err)
	}
	block, err := frontmatter.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to rewrite note %s: %w", path, err)
	}
	block.SetStrings(field, parents)
	out, err := block.Render()
	if err != nil {
		return fmt.Errorf("failed to rewrite note %s: %w", path, err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(abs, out, mode); err != nil {
		return fmt.Errorf("failed to write note %s: %w", path, err)
	}
	return nil
}

// Rel converts an absolute path inside the vault to the canonical
// vault-relative form, or reports that the path is outside the vault.
func (v *Vault) Rel(abs string) (string, bool) {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// IsNote reports whether a path names a markdown file.
func IsNote(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

func (v *Vault) abs(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the vault", path)
	}
	return filepath.Join(v.root, clean), nil
}
