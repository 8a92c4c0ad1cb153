package vault

import "testing"

func testIndex() *NameIndex {
	return NewNameIndex([]string{
		"daily/2024-03-01.md",
		"projects/alpha.md",
		"projects/notes/alpha.md",
		"Inbox/Reading List.md",
	})
}

func TestResolve(t *testing.T) {
	idx := testIndex()

	cases := []struct {
		name string
		ref  string
		want string
		ok   bool
	}{
		{"exact path", "projects/alpha.md", "projects/alpha.md", true},
		{"path without extension", "projects/alpha", "projects/alpha.md", true},
		{"bare name", "2024-03-01", "daily/2024-03-01.md", true},
		{"bare name with extension", "2024-03-01.md", "daily/2024-03-01.md", true},
		{"case-insensitive path", "inbox/reading list.md", "Inbox/Reading List.md", true},
		{"case-insensitive name", "READING LIST", "Inbox/Reading List.md", true},
		{"ambiguous name picks smallest path", "alpha", "projects/alpha.md", true},
		{"unknown reference", "does-not-exist", "", false},
		{"empty reference", "", "", false},
		{"whitespace reference", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := idx.Resolve(tc.ref)
			if ok != tc.ok || got != tc.want {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tc.ref, got, ok, tc.want, tc.ok)
			}
		})
	}

	t.Run("backslash separators", func(t *testing.T) {
		got, ok := idx.Resolve(`projects\alpha.md`)
		if !ok || got != "projects/alpha.md" {
			t.Errorf("got %q, %v", got, ok)
		}
	})
}

func TestIndexMutation(t *testing.T) {
	t.Run("remove drops all lookups", func(t *testing.T) {
		idx := testIndex()
		idx.Remove("daily/2024-03-01.md")
		if _, ok := idx.Resolve("2024-03-01"); ok {
			t.Error("expected removed note to be unresolvable")
		}
	})

	t.Run("remove disambiguates", func(t *testing.T) {
		idx := testIndex()
		idx.Remove("projects/alpha.md")
		got, ok := idx.Resolve("alpha")
		if !ok || got != "projects/notes/alpha.md" {
			t.Errorf("got %q, %v", got, ok)
		}
	})

	t.Run("rename moves lookups", func(t *testing.T) {
		idx := testIndex()
		idx.Rename("daily/2024-03-01.md", "archive/2024-03-01.md")
		got, ok := idx.Resolve("2024-03-01")
		if !ok || got != "archive/2024-03-01.md" {
			t.Errorf("got %q, %v", got, ok)
		}
	})

	t.Run("double add is a no-op", func(t *testing.T) {
		idx := testIndex()
		idx.Add("Inbox/Reading List.md")
		idx.Remove("Inbox/Reading List.md")
		if got, ok := idx.Resolve("Inbox/Reading List.md"); ok {
			t.Errorf("expected removal to stick, got %q", got)
		}
	})
}
