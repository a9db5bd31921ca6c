package catalog

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dartbook/mcp-server/internal/book"
)

var refLinkRegex = regexp.MustCompile(`!?\[[^\]]*\]\(([^)]+)\)`)

// SyncResult summarizes one catalog sync pass.
type SyncResult struct {
	Changed []string // corpus-relative paths that were added or updated
	Removed []string // paths that vanished from disk
	Total   int      // chapters on disk after the pass
}

// Dirty reports whether the pass found any difference against the catalog.
func (r *SyncResult) Dirty() bool {
	return len(r.Changed) > 0 || len(r.Removed) > 0
}

// Sync walks the book directory and reconciles the catalog against it.
// Unchanged files are skipped on the mtime fast path; changed files are
// checksummed and re-parsed for number/title. Reference edges are rebuilt
// for the whole catalog whenever the pass found any difference.
func (c *Catalog) Sync(root string) (*SyncResult, error) {
	result := &SyncResult{}
	onDisk := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == book.TOCFile || rel == book.AggregateFile {
			return nil
		}

		onDisk[rel] = true
		changed, err := c.syncChapter(root, rel, path)
		if err != nil {
			return err
		}
		if changed {
			result.Changed = append(result.Changed, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk book directory: %w", err)
	}

	// Drop rows for files that no longer exist.
	existing, err := c.All()
	if err != nil {
		return nil, err
	}
	for _, ch := range existing {
		if !onDisk[ch.Path] {
			if err := c.Delete(ch.Path); err != nil {
				return nil, fmt.Errorf("failed to delete vanished chapter %s: %w", ch.Path, err)
			}
			result.Removed = append(result.Removed, ch.Path)
		}
	}

	// An added or removed chapter changes how links in *other* chapters
	// resolve, so any dirty pass re-resolves the edges of every chapter, not
	// just the changed ones. Runs after the walk so every row exists.
	if result.Dirty() {
		for _, ch := range existing {
			if !onDisk[ch.Path] {
				continue
			}
			if err := c.syncRefs(root, ch.Path); err != nil {
				return nil, err
			}
		}
	}

	result.Total = len(onDisk)
	return result, nil
}

// syncChapter upserts a single chapter row, returning whether it changed.
func (c *Catalog) syncChapter(root, rel, path string) (bool, error) {
	row, err := c.Get(rel)
	if err != nil && err != ErrChapterNotFound {
		return false, fmt.Errorf("failed to check chapter in catalog: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	lastUpdated := info.ModTime().Unix()

	if row != nil && row.LastUpdated >= lastUpdated {
		return false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	sum := md5.Sum(content)
	checksum := sum[:]

	if row != nil && bytes.Equal(row.Checksum, checksum) {
		// mtime moved but content did not; just refresh the timestamp
		row.LastUpdated = lastUpdated
		if err := c.Update(*row); err != nil {
			return false, fmt.Errorf("failed to touch chapter: %w", err)
		}
		return false, nil
	}

	chapter := book.ParseChapter(string(content))
	if row != nil {
		row.Number = book.ChapterNumberFromPath(rel)
		row.Title = chapter.Title
		row.Checksum = checksum
		row.LastUpdated = lastUpdated
		if err := c.Update(*row); err != nil {
			return false, fmt.Errorf("failed to update chapter: %w", err)
		}
	} else {
		err := c.Create(Chapter{
			Path:        rel,
			Number:      book.ChapterNumberFromPath(rel),
			Title:       chapter.Title,
			Checksum:    checksum,
			LastUpdated: lastUpdated,
		})
		if err != nil {
			return false, fmt.Errorf("failed to create chapter: %w", err)
		}
	}
	return true, nil
}

// syncRefs rebuilds the outgoing reference edges of one chapter.
func (c *Catalog) syncRefs(root, rel string) error {
	row, err := c.Get(rel)
	if err != nil {
		return fmt.Errorf("failed to retrieve chapter %s: %w", rel, err)
	}

	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("failed to read chapter file %s: %w", rel, err)
	}

	if err := c.DeleteRefs(row.ID); err != nil {
		return fmt.Errorf("failed to clear refs for %s: %w", rel, err)
	}

	for _, m := range refLinkRegex.FindAllStringSubmatch(string(content), -1) {
		target := book.ResolveTarget(rel, m[1])
		if target == "" || !strings.HasSuffix(target, ".md") {
			continue
		}
		targetRow, err := c.Get(target)
		if err != nil {
			if err == ErrChapterNotFound {
				continue // dangling link, the linter reports these
			}
			return fmt.Errorf("failed to retrieve referenced chapter: %w", err)
		}
		if err := c.CreateRef(row.ID, targetRow.ID); err != nil {
			return fmt.Errorf("failed to insert ref for %s: %w", rel, err)
		}
	}
	return nil
}
