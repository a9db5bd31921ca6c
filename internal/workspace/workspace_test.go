package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dartbook/mcp-server/internal/workspace"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

func TestResolveBookDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(workspace.EnvBookDir, dir)

	got, resolvedFrom, err := workspace.ResolveBookDir()
	if err != nil {
		t.Fatalf("ResolveBookDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("BookDir = %s, want %s", got, dir)
	}
	if resolvedFrom != "env" {
		t.Errorf("ResolvedFrom = %s, want env", resolvedFrom)
	}
}

func TestResolveBookDirEnvMissing(t *testing.T) {
	t.Setenv(workspace.EnvBookDir, filepath.Join(t.TempDir(), "nope"))

	if _, _, err := workspace.ResolveBookDir(); err == nil {
		t.Error("Expected error for missing env directory")
	}
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.md", "- [Intro](1_intro.md)\n")
	writeFile(t, dir, "1_intro.md", "# Chapter 1\n")
	writeFile(t, dir, "2_variables.md", "# Chapter 2\n")
	writeFile(t, dir, "book.md", "# aggregate\n")
	writeFile(t, dir, "images/cover.png", "png bytes")
	writeFile(t, dir, "images/diagram.svg", "<svg/>")
	writeFile(t, dir, ".git/config.md", "hidden\n")

	info, err := workspace.Detect(dir, "env")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if !info.HasTOC {
		t.Error("Expected HasTOC")
	}
	if info.HasManifest {
		t.Error("Expected no manifest")
	}
	if !info.HasAggregate {
		t.Error("Expected HasAggregate")
	}
	if info.ChapterCount != 2 {
		t.Errorf("ChapterCount = %d, want 2", info.ChapterCount)
	}
	if info.AssetCount != 2 {
		t.Errorf("AssetCount = %d, want 2", info.AssetCount)
	}

	// Only the missing manifest is left to suggest
	if len(info.Suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d: %+v", len(info.Suggestions), info.Suggestions)
	}
	if info.Suggestions[0].Priority != 1 {
		t.Errorf("Suggestion priority = %d, want 1", info.Suggestions[0].Priority)
	}
}

func TestDetectEmptyDir(t *testing.T) {
	info, err := workspace.Detect(t.TempDir(), "cwd")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if info.ChapterCount != 0 {
		t.Errorf("ChapterCount = %d, want 0", info.ChapterCount)
	}
	if len(info.Suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d", len(info.Suggestions))
	}
	if info.Suggestions[0].Reason != "No chapter files found" {
		t.Errorf("Unexpected suggestion: %+v", info.Suggestions[0])
	}
}
