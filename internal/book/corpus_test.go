package book_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dartbook/mcp-server/internal/book"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md", `# A Dart Book

1. [Variables](2_variables.md)
2. [Functions](5_functions.md)
`)
	writeFile(t, root, "5_functions.md", "# Chapter 5: Functions\n\n## Concept Goal\n\nFunctions.\n")
	writeFile(t, root, "2_variables.md", "# Chapter 2: Variables\n\n## Concept Goal\n\nVariables.\n")
	writeFile(t, root, "book.md", "# Aggregate copy, never a chapter\n")
	writeFile(t, root, ".git/notes.md", "# not part of the corpus\n")

	b, err := book.Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !b.HasTOC {
		t.Error("Expected HasTOC")
	}
	if len(b.TOC) != 2 {
		t.Fatalf("Expected 2 ToC entries, got %d", len(b.TOC))
	}
	if len(b.Chapters) != 2 {
		t.Fatalf("Expected 2 chapters (book.md and hidden dirs skipped), got %d", len(b.Chapters))
	}

	// Reading order follows the ToC
	if b.Chapters[0].Path != "2_variables.md" || b.Chapters[1].Path != "5_functions.md" {
		t.Errorf("Wrong chapter order: %s, %s", b.Chapters[0].Path, b.Chapters[1].Path)
	}
	if b.Chapters[0].Number != 2 {
		t.Errorf("Chapter number = %d, want 2", b.Chapters[0].Number)
	}
}

func TestLoadWithoutTOC(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "3_control_flow.md", "# Chapter 3\n")
	writeFile(t, root, "1_intro.md", "# Chapter 1\n")
	writeFile(t, root, "appendix.md", "# Appendix\n")

	b, err := book.Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if b.HasTOC {
		t.Error("Expected no ToC")
	}
	// Numberless chapters sort last
	want := []string{"1_intro.md", "3_control_flow.md", "appendix.md"}
	for i, path := range want {
		if b.Chapters[i].Path != path {
			t.Errorf("Chapter %d = %s, want %s", i, b.Chapters[i].Path, path)
		}
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := book.Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestParseTOC(t *testing.T) {
	content := `# My Book

Some prose with [an inline link](https://example.com) that is not an entry.

- [Introduction](1_intro.md)
* [Variables](./2_variables.md#top)
3. [Control Flow](3_control_flow.md)

Closing prose.
`
	entries := book.ParseTOC(content)

	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Title != "Introduction" || entries[0].Target != "1_intro.md" {
		t.Errorf("Entry 0 = %+v", entries[0])
	}
	if entries[1].Target != "./2_variables.md#top" {
		t.Errorf("Entry 1 target = %q", entries[1].Target)
	}
	if entries[2].Title != "Control Flow" {
		t.Errorf("Entry 2 = %+v", entries[2])
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name     string
		fromPath string
		target   string
		want     string
	}{
		{"sibling link", "5_functions.md", "6_collections.md", "6_collections.md"},
		{"anchor stripped", "5_functions.md", "6_collections.md#maps", "6_collections.md"},
		{"dot slash stripped", "index.md", "./5_functions.md", "5_functions.md"},
		{"subdirectory", "chapters/5_functions.md", "images/cover.png", "chapters/images/cover.png"},
		{"parent directory", "chapters/5_functions.md", "../index.md", "index.md"},
		{"quoted title", "5_functions.md", `6_collections.md "Chapter six"`, "6_collections.md"},
		{"quoted title with anchor", "5_functions.md", `6_collections.md#maps "Chapter six"`, "6_collections.md"},
		{"external link", "5_functions.md", "https://dart.dev", ""},
		{"pure anchor", "5_functions.md", "#syntax", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := book.ResolveTarget(tt.fromPath, tt.target); got != tt.want {
				t.Errorf("ResolveTarget(%q, %q) = %q, want %q", tt.fromPath, tt.target, got, tt.want)
			}
		})
	}
}
