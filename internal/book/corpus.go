package book

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	// TOCFile is the root listing file enumerating chapters in reading order.
	TOCFile = "index.md"

	// AggregateFile is the concatenated single-file copy of the whole book.
	// It duplicates chapter content and is never loaded as a chapter.
	AggregateFile = "book.md"
)

var (
	tocLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	orderedItemRegex = regexp.MustCompile(`^\d+\.`)
)

// Load walks the book directory and parses every chapter document.
// index.md feeds the table of contents, book.md is skipped entirely.
func Load(root string) (*Book, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open book directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("book root %s is not a directory", root)
	}

	b := &Book{Root: root}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories (.git and friends) are not part of the corpus.
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

		switch rel {
		case TOCFile:
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", TOCFile, err)
			}
			b.TOC = ParseTOC(string(content))
			b.HasTOC = true
			return nil
		case AggregateFile:
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read chapter %s: %w", rel, err)
		}
		chapter := ParseChapter(string(content))
		chapter.Path = rel
		chapter.Number = ChapterNumberFromPath(rel)
		b.Chapters = append(b.Chapters, *chapter)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk book directory: %w", err)
	}

	b.sortChapters()
	return b, nil
}

// ParseTOC extracts the ordered chapter pointers from the index file content.
// Only linked list items count as entries; prose links are ignored.
func ParseTOC(content string) []TOCEntry {
	var entries []TOCEntry
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "-") && !strings.HasPrefix(trimmed, "*") &&
			!orderedItemRegex.MatchString(trimmed) {
			continue
		}
		m := tocLinkRegex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		entries = append(entries, TOCEntry{
			Title:  strings.TrimSpace(m[1]),
			Target: strings.TrimSpace(m[2]),
			Line:   i + 1,
		})
	}
	return entries
}

// sortChapters orders chapters by ToC position when a ToC exists, falling back
// to chapter number and finally path for chapters the ToC does not mention.
func (b *Book) sortChapters() {
	tocPos := make(map[string]int, len(b.TOC))
	for i, entry := range b.TOC {
		tocPos[normalizeTarget(entry.Target)] = i
	}

	sort.SliceStable(b.Chapters, func(i, j int) bool {
		ci, cj := &b.Chapters[i], &b.Chapters[j]
		pi, iOK := tocPos[ci.Path]
		pj, jOK := tocPos[cj.Path]
		switch {
		case iOK && jOK:
			return pi < pj
		case iOK != jOK:
			return iOK
		case ci.Number != cj.Number:
			if ci.Number == 0 || cj.Number == 0 {
				return cj.Number == 0
			}
			return ci.Number < cj.Number
		default:
			return ci.Path < cj.Path
		}
	})
}

// normalizeTarget strips the optional quoted title, anchors, and leading "./"
// from a link target so it can be compared against chapter paths.
func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	// [B](2_b.md "Chapter two") — the destination ends at the whitespace
	// before the title.
	if i := strings.IndexAny(target, " \t"); i >= 0 {
		rest := strings.TrimSpace(target[i+1:])
		if strings.HasPrefix(rest, `"`) || strings.HasPrefix(rest, "'") || strings.HasPrefix(rest, "(") {
			target = target[:i]
		}
	}
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	target = strings.TrimPrefix(target, "./")
	return filepath.ToSlash(strings.TrimSpace(target))
}

// ResolveTarget turns a ToC or in-chapter link target into the corpus-relative
// path it points at, given the path of the file containing the link.
func ResolveTarget(fromPath, target string) string {
	target = normalizeTarget(target)
	if target == "" {
		return ""
	}
	if strings.Contains(target, "://") {
		return "" // external link, nothing to resolve
	}
	dir := filepath.ToSlash(filepath.Dir(fromPath))
	if dir == "." {
		return target
	}
	return filepath.ToSlash(filepath.Join(dir, target))
}
