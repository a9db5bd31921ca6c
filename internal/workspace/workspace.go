// Package workspace detects the book directory a session works against and
// reports what the corpus carries: table of contents, manifest, aggregate
// file, chapter and asset counts.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dartbook/mcp-server/internal/book"
	"github.com/dartbook/mcp-server/internal/manifest"
)

// EnvBookDir is the environment variable naming the book directory.
const EnvBookDir = "DARTBOOK_DIR"

// Info describes a detected book workspace.
type Info struct {
	BookDir      string       `json:"book_dir"`
	ResolvedFrom string       `json:"resolved_from"` // "env", "cwd"
	HasTOC       bool         `json:"has_toc"`
	HasManifest  bool         `json:"has_manifest"`
	HasAggregate bool         `json:"has_aggregate"`
	ChapterCount int          `json:"chapter_count"`
	AssetCount   int          `json:"asset_count"`
	Suggestions  []Suggestion `json:"suggestions,omitempty"`
}

// Suggestion is an ordered hint about the workspace state.
type Suggestion struct {
	Priority int    `json:"priority"` // 1 = highest
	Reason   string `json:"reason"`
	Action   string `json:"action"`
}

// ResolveBookDir finds the book directory: the environment variable wins,
// otherwise the working directory must look like a corpus.
func ResolveBookDir() (dir, resolvedFrom string, err error) {
	if dir := os.Getenv(EnvBookDir); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return "", "", fmt.Errorf("%s points at %s: %w", EnvBookDir, dir, err)
		}
		if !info.IsDir() {
			return "", "", fmt.Errorf("%s points at %s which is not a directory", EnvBookDir, dir)
		}
		return dir, "env", nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	if looksLikeBook(cwd) {
		return cwd, "cwd", nil
	}
	return "", "", fmt.Errorf("no book directory found: set %s or run inside a directory with markdown chapters", EnvBookDir)
}

// looksLikeBook reports whether a directory plausibly holds the corpus.
func looksLikeBook(dir string) bool {
	for _, marker := range []string{book.TOCFile, manifest.Filename, book.AggregateFile} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	return err == nil && len(matches) > 0
}

// Detect inspects a book directory and builds the workspace report.
func Detect(dir, resolvedFrom string) (*Info, error) {
	info := &Info{BookDir: dir, ResolvedFrom: resolvedFrom}

	if _, err := os.Stat(filepath.Join(dir, book.TOCFile)); err == nil {
		info.HasTOC = true
	}
	if _, err := os.Stat(filepath.Join(dir, manifest.Filename)); err == nil {
		info.HasManifest = true
	}
	if _, err := os.Stat(filepath.Join(dir, book.AggregateFile)); err == nil {
		info.HasAggregate = true
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		switch {
		case strings.HasSuffix(d.Name(), ".md"):
			if rel != book.TOCFile && rel != book.AggregateFile {
				info.ChapterCount++
			}
		case isAsset(d.Name()):
			info.AssetCount++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk book directory: %w", err)
	}

	info.Suggestions = buildSuggestions(info)
	return info, nil
}

func isAsset(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp":
		return true
	}
	return false
}

// buildSuggestions returns ordered hints about missing corpus conventions.
func buildSuggestions(info *Info) []Suggestion {
	var suggestions []Suggestion
	priority := 1

	if info.ChapterCount == 0 {
		suggestions = append(suggestions, Suggestion{
			Priority: priority,
			Reason:   "No chapter files found",
			Action:   fmt.Sprintf("Add chapter markdown files to %s or point %s elsewhere", info.BookDir, EnvBookDir),
		})
		return suggestions
	}

	if !info.HasTOC {
		suggestions = append(suggestions, Suggestion{
			Priority: priority,
			Reason:   fmt.Sprintf("No %s table of contents", book.TOCFile),
			Action:   "Create index.md listing chapters in reading order so cross-reference checks can run",
		})
		priority++
	}
	if !info.HasManifest {
		suggestions = append(suggestions, Suggestion{
			Priority: priority,
			Reason:   fmt.Sprintf("No %s manifest", manifest.Filename),
			Action:   "Optional: add book.json to pin the title and chapter order",
		})
	}
	return suggestions
}
