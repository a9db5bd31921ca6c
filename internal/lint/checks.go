package lint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dartbook/mcp-server/internal/book"
	"github.com/dartbook/mcp-server/internal/manifest"
)

var (
	linkRegex  = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)]+)\)`)
	identRegex = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_]*)(?:\\(\\))?`")
)

// sectionLabels gives the human name of each canonical kind for messages.
var sectionLabels = map[book.SectionKind]string{
	book.KindConceptGoal:          "Concept Goal",
	book.KindLogicalExplanation:   "Logical Explanation",
	book.KindVisualRepresentation: "Visual Representation",
	book.KindSyntax:               "Syntax",
	book.KindPracticalExamples:    "Practical Examples",
	book.KindExercises:            "Problem-Solving Exercises",
	book.KindSolutions:            "Clean Solution & Explanation",
	book.KindKeyTakeaways:         "Key Takeaways",
}

// Run executes every check against the loaded corpus. File existence is
// resolved against the book root on disk, and a book.json manifest is
// cross-checked when one is present.
func Run(b *book.Book) *Report {
	report := RunWithExists(b, func(rel string) bool {
		_, err := os.Stat(filepath.Join(b.Root, filepath.FromSlash(rel)))
		return err == nil
	})

	if data, err := os.ReadFile(filepath.Join(b.Root, manifest.Filename)); err == nil {
		m, err := manifest.Parse(data)
		if err != nil {
			report.errorf(RuleManifest, manifest.Filename, 0, "manifest does not parse: %v", err)
		} else {
			CheckManifest(report, b, m)
		}
	}
	return report
}

// RunWithExists executes every check using the supplied existence predicate
// for cross-reference resolution. The predicate receives corpus-relative paths.
func RunWithExists(b *book.Book, exists func(rel string) bool) *Report {
	report := &Report{}
	for i := range b.Chapters {
		CheckSections(report, &b.Chapters[i])
		CheckPairing(report, &b.Chapters[i])
		CheckCodeFences(report, &b.Chapters[i])
	}
	CheckCrossrefs(report, b, exists)
	CheckDuplicates(report, b)
	return report
}

// CheckChapter runs the per-chapter checks against a single parsed chapter.
func CheckChapter(report *Report, c *book.Chapter) {
	CheckSections(report, c)
	CheckPairing(report, c)
	CheckCodeFences(report, c)
}

// CheckSections verifies that the eight canonical sections are each present
// exactly once and non-empty.
func CheckSections(report *Report, c *book.Chapter) {
	if c.Title == "" {
		report.errorf(RuleSections, c.Path, 1, "chapter has no H1 title")
	}

	for _, kind := range book.CanonicalKinds {
		switch n := c.SectionCount(kind); {
		case n == 0:
			report.errorf(RuleSections, c.Path, 0, "missing section %q", sectionLabels[kind])
		case n > 1:
			report.errorf(RuleSections, c.Path, 0, "section %q appears %d times, want exactly one", sectionLabels[kind], n)
		default:
			sec := c.Section(kind)
			if strings.TrimSpace(sec.Body) == "" {
				report.errorf(RuleSections, c.Path, sec.Line, "section %q is empty", sectionLabels[kind])
			}
		}
	}

	for i := range c.Sections {
		if c.Sections[i].Kind == book.KindUnknown {
			report.warnf(RuleSections, c.Path, c.Sections[i].Line,
				"section %q matches no canonical section kind", c.Sections[i].Heading)
		}
	}
}

// CheckPairing verifies that exercises and solutions match in count and order,
// and that each solution refers back to the symbol named in its exercise.
func CheckPairing(report *Report, c *book.Chapter) {
	if len(c.Exercises) != len(c.Solutions) {
		report.errorf(RulePairing, c.Path, 0,
			"%d exercises but %d solutions", len(c.Exercises), len(c.Solutions))
	}

	for i, ex := range c.Exercises {
		if ex.Position != i+1 {
			report.errorf(RulePairing, c.Path, ex.Line,
				"exercise at slot %d is numbered %d", i+1, ex.Position)
		}
		if ex.Difficulty == book.DifficultyUnknown {
			report.warnf(RulePairing, c.Path, ex.Line,
				"exercise %d has no recognizable difficulty label (Easy/Medium/Advanced)", ex.Position)
		}
		if strings.TrimSpace(ex.Prompt) == "" && ex.Title == "" {
			report.errorf(RulePairing, c.Path, ex.Line, "exercise %d has an empty prompt", ex.Position)
		}
	}
	for i, sol := range c.Solutions {
		if sol.Position != i+1 {
			report.errorf(RulePairing, c.Path, sol.Line,
				"solution at slot %d is numbered %d", i+1, sol.Position)
		}
		if len(sol.Code) == 0 {
			report.warnf(RulePairing, c.Path, sol.Line, "solution %d has no code sample", sol.Position)
		}
	}

	// Solutions reference the exercise's named function/class. The symbol set
	// is best-effort: back-ticked identifiers in the prompt.
	for i := range c.Exercises {
		if i >= len(c.Solutions) {
			break
		}
		symbols := promptSymbols(c.Exercises[i])
		if len(symbols) == 0 {
			continue
		}
		if !solutionMentionsAny(&c.Solutions[i], symbols) {
			report.warnf(RulePairing, c.Path, c.Solutions[i].Line,
				"solution %d does not reference any symbol named in its exercise (%s)",
				c.Solutions[i].Position, strings.Join(symbols, ", "))
		}
	}
}

// promptSymbols extracts the identifiers an exercise asks the reader to write.
func promptSymbols(ex book.Exercise) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, m := range identRegex.FindAllStringSubmatch(ex.Title+"\n"+ex.Prompt, -1) {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		symbols = append(symbols, name)
	}
	return symbols
}

func solutionMentionsAny(sol *book.Solution, symbols []string) bool {
	text := sol.Title + "\n" + sol.Rationale
	for _, block := range sol.Code {
		text += "\n" + block.Code
	}
	for _, symbol := range symbols {
		if strings.Contains(text, symbol) {
			return true
		}
	}
	return false
}

// CheckCrossrefs verifies that the table of contents and every in-chapter
// relative link or image reference resolve to an existing file.
func CheckCrossrefs(report *Report, b *book.Book, exists func(rel string) bool) {
	if !b.HasTOC {
		report.warnf(RuleCrossrefs, book.TOCFile, 0, "book has no %s table of contents", book.TOCFile)
	}

	listed := make(map[string]bool, len(b.TOC))
	for _, entry := range b.TOC {
		target := book.ResolveTarget(book.TOCFile, entry.Target)
		if target == "" {
			continue
		}
		listed[target] = true
		if !exists(target) {
			report.errorf(RuleCrossrefs, book.TOCFile, entry.Line,
				"table of contents entry %q points at missing file %s", entry.Title, target)
		}
	}

	for i := range b.Chapters {
		c := &b.Chapters[i]
		if b.HasTOC && !listed[c.Path] {
			report.warnf(RuleCrossrefs, c.Path, 0, "chapter is not listed in %s", book.TOCFile)
		}
		checkChapterRefs(report, c, exists)
	}
}

// checkChapterRefs resolves relative links and images inside one chapter.
func checkChapterRefs(report *Report, c *book.Chapter, exists func(rel string) bool) {
	inFence := false
	for i, line := range strings.Split(c.Raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, m := range linkRegex.FindAllStringSubmatch(line, -1) {
			isImage := m[1] == "!"
			target := book.ResolveTarget(c.Path, m[3])
			if target == "" {
				continue // external or anchor-only
			}
			if exists(target) {
				continue
			}
			if isImage {
				report.errorf(RuleCrossrefs, c.Path, i+1, "image reference %s does not exist", m[3])
			} else {
				report.errorf(RuleCrossrefs, c.Path, i+1, "link target %s does not exist", m[3])
			}
		}
	}
}

// CheckDuplicates detects verbatim chapter copies under different paths and
// distinct files claiming the same chapter number.
func CheckDuplicates(report *Report, b *book.Book) {
	byChecksum := make(map[string][]string)
	byNumber := make(map[int][]*book.Chapter)

	for i := range b.Chapters {
		c := &b.Chapters[i]
		sum := md5.Sum([]byte(c.Raw))
		key := hex.EncodeToString(sum[:])
		byChecksum[key] = append(byChecksum[key], c.Path)
		if c.Number > 0 {
			byNumber[c.Number] = append(byNumber[c.Number], c)
		}
	}

	for _, paths := range byChecksum {
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		report.errorf(RuleDuplicates, paths[0], 0,
			"chapter content duplicated verbatim at %s", strings.Join(paths[1:], ", "))
	}

	for number, chapters := range byNumber {
		if len(chapters) < 2 {
			continue
		}
		distinct := make(map[string]struct{})
		var paths []string
		for _, c := range chapters {
			sum := md5.Sum([]byte(c.Raw))
			distinct[hex.EncodeToString(sum[:])] = struct{}{}
			paths = append(paths, c.Path)
		}
		if len(distinct) > 1 {
			sort.Strings(paths)
			report.errorf(RuleDuplicates, paths[0], 0,
				"chapter number %d claimed by %s with differing content", number, strings.Join(paths, ", "))
		}
	}
}

// CheckManifest cross-checks a decoded book.json against the loaded corpus:
// every manifest entry must point at a real chapter, and the manifest order
// must agree with the table of contents when both exist.
func CheckManifest(report *Report, b *book.Book, m *manifest.Manifest) {
	if m.Title == "" {
		report.errorf(RuleManifest, manifest.Filename, 0, "manifest has no title")
	}

	for _, entry := range m.Chapters {
		c := b.Chapter(entry.Path)
		if c == nil {
			report.errorf(RuleManifest, manifest.Filename, 0,
				"manifest lists %s which is not a chapter of the book", entry.Path)
			continue
		}
		if c.Number > 0 && entry.Number != c.Number {
			report.warnf(RuleManifest, manifest.Filename, 0,
				"manifest numbers %s as chapter %d, filename says %d", entry.Path, entry.Number, c.Number)
		}
	}

	if !b.HasTOC {
		return
	}
	tocOrder := make(map[string]int, len(b.TOC))
	for i, entry := range b.TOC {
		tocOrder[book.ResolveTarget(book.TOCFile, entry.Target)] = i
	}
	last := -1
	for _, entry := range m.Chapters {
		pos, ok := tocOrder[entry.Path]
		if !ok {
			continue
		}
		if pos < last {
			report.warnf(RuleManifest, manifest.Filename, 0,
				"manifest orders %s differently than %s", entry.Path, book.TOCFile)
		}
		last = pos
	}
}

// CheckCodeFences warns about fenced code blocks without a language tag, which
// the corpus relies on for syntax highlighting.
func CheckCodeFences(report *Report, c *book.Chapter) {
	for i := range c.Sections {
		for _, block := range c.Sections[i].CodeBlocks {
			if block.Lang == "" {
				report.warnf(RuleCodeFences, c.Path, block.Line,
					"code fence in section %q has no language tag", c.Sections[i].Heading)
			}
		}
	}
}

// Summary renders a one-line result for logs and CLI output.
func Summary(report *Report) string {
	return fmt.Sprintf("%d error(s), %d warning(s)", len(report.Errors()), len(report.Warnings()))
}
