package lint_test

import (
	"strings"
	"testing"

	"github.com/dartbook/mcp-server/internal/book"
	"github.com/dartbook/mcp-server/internal/lint"
	"github.com/dartbook/mcp-server/internal/manifest"
)

// goodChapter builds a chapter passing every structural check.
func goodChapter(path string) book.Chapter {
	content := `# Chapter 5: Functions

## Concept Goal

Learn to define functions.

## Logical Explanation

Functions bundle computations.

## Visual Representation

A call stack diagram (described in prose here).

## Syntax

` + "```dart\nString greet() => 'hi';\n```" + `

## Practical Examples

` + "```dart\nprint(greet());\n```" + `

## Problem-Solving Exercises

### Exercise 1 (Easy): Greeting
Write a function ` + "`greet`" + ` returning a greeting.

## Clean Solution & Explanation

### Solution 1
` + "```dart\nString greet() => 'hi';\n```" + `
Arrow syntax keeps greet short.

## Key Takeaways

- Functions are values.
`
	c := book.ParseChapter(content)
	c.Path = path
	c.Number = book.ChapterNumberFromPath(path)
	return *c
}

func hasIssue(issues []lint.Issue, check string, substr string) bool {
	for _, issue := range issues {
		if issue.Check == check && strings.Contains(issue.Message, substr) {
			return true
		}
	}
	return false
}

func TestCheckSectionsClean(t *testing.T) {
	report := &lint.Report{}
	c := goodChapter("5_functions.md")
	lint.CheckSections(report, &c)

	if len(report.Errors()) != 0 {
		t.Errorf("Expected no errors, got: %v", report.Errors())
	}
}

func TestCheckSectionsMissing(t *testing.T) {
	c := book.ParseChapter("# Title\n\n## Concept Goal\n\nOnly one section.\n")
	c.Path = "1_intro.md"

	report := &lint.Report{}
	lint.CheckSections(report, c)

	if !hasIssue(report.Errors(), lint.RuleSections, `missing section "Syntax"`) {
		t.Errorf("Expected missing Syntax error, got: %v", report.Errors())
	}
	// Seven canonical sections are absent
	if got := len(report.Errors()); got != 7 {
		t.Errorf("Expected 7 missing-section errors, got %d: %v", got, report.Errors())
	}
}

func TestCheckSectionsEmptyAndDuplicated(t *testing.T) {
	c := book.ParseChapter(`# Title

## Concept Goal

## Concept Goal

Twice.
`)
	c.Path = "x.md"

	report := &lint.Report{}
	lint.CheckSections(report, c)

	if !hasIssue(report.Errors(), lint.RuleSections, "appears 2 times") {
		t.Errorf("Expected duplicated-section error, got: %v", report.Errors())
	}
}

func TestCheckSectionsNoTitleAndUnknownHeading(t *testing.T) {
	c := book.ParseChapter("## Mystery Section\n\nBody.\n")
	c.Path = "x.md"

	report := &lint.Report{}
	lint.CheckSections(report, c)

	if !hasIssue(report.Errors(), lint.RuleSections, "no H1 title") {
		t.Errorf("Expected missing-title error, got: %v", report.Errors())
	}
	if !hasIssue(report.Warnings(), lint.RuleSections, "matches no canonical section") {
		t.Errorf("Expected unknown-heading warning, got: %v", report.Warnings())
	}
}

func TestCheckPairingCountMismatch(t *testing.T) {
	c := book.Chapter{
		Path: "x.md",
		Exercises: []book.Exercise{
			{Position: 1, Difficulty: book.DifficultyEasy, Prompt: "Do a thing."},
			{Position: 2, Difficulty: book.DifficultyMedium, Prompt: "Do more."},
		},
		Solutions: []book.Solution{
			{Position: 1, Code: []book.CodeBlock{{Lang: "dart", Code: "x"}}},
		},
	}

	report := &lint.Report{}
	lint.CheckPairing(report, &c)

	if !hasIssue(report.Errors(), lint.RulePairing, "2 exercises but 1 solutions") {
		t.Errorf("Expected count mismatch error, got: %v", report.Errors())
	}
}

func TestCheckPairingPositionMismatch(t *testing.T) {
	c := book.Chapter{
		Path: "x.md",
		Exercises: []book.Exercise{
			{Position: 1, Difficulty: book.DifficultyEasy, Prompt: "A."},
			{Position: 3, Difficulty: book.DifficultyEasy, Prompt: "B."},
		},
		Solutions: []book.Solution{
			{Position: 1, Code: []book.CodeBlock{{Code: "x"}}},
			{Position: 2, Code: []book.CodeBlock{{Code: "y"}}},
		},
	}

	report := &lint.Report{}
	lint.CheckPairing(report, &c)

	if !hasIssue(report.Errors(), lint.RulePairing, "slot 2 is numbered 3") {
		t.Errorf("Expected position mismatch error, got: %v", report.Errors())
	}
}

func TestCheckPairingWarnings(t *testing.T) {
	c := book.Chapter{
		Path: "x.md",
		Exercises: []book.Exercise{
			{Position: 1, Difficulty: book.DifficultyUnknown, Prompt: "Write `frobnicate`."},
		},
		Solutions: []book.Solution{
			{Position: 1, Rationale: "Entirely unrelated prose."},
		},
	}

	report := &lint.Report{}
	lint.CheckPairing(report, &c)

	warnings := report.Warnings()
	if !hasIssue(warnings, lint.RulePairing, "no recognizable difficulty") {
		t.Errorf("Expected difficulty warning, got: %v", warnings)
	}
	if !hasIssue(warnings, lint.RulePairing, "no code sample") {
		t.Errorf("Expected no-code warning, got: %v", warnings)
	}
	if !hasIssue(warnings, lint.RulePairing, "does not reference any symbol") {
		t.Errorf("Expected unreferenced-symbol warning, got: %v", warnings)
	}
}

func TestCheckPairingSolutionReferencesSymbol(t *testing.T) {
	c := book.Chapter{
		Path: "x.md",
		Exercises: []book.Exercise{
			{Position: 1, Difficulty: book.DifficultyEasy, Prompt: "Write `greet()` for a name."},
		},
		Solutions: []book.Solution{
			{Position: 1, Code: []book.CodeBlock{{Lang: "dart", Code: "String greet() => 'hi';"}}},
		},
	}

	report := &lint.Report{}
	lint.CheckPairing(report, &c)

	if hasIssue(report.Warnings(), lint.RulePairing, "does not reference") {
		t.Errorf("Solution mentions greet, no warning expected: %v", report.Warnings())
	}
}

func TestCheckCrossrefs(t *testing.T) {
	b := &book.Book{
		HasTOC: true,
		TOC: []book.TOCEntry{
			{Title: "Functions", Target: "5_functions.md", Line: 3},
			{Title: "Ghost", Target: "99_ghost.md", Line: 4},
		},
		Chapters: []book.Chapter{
			{
				Path: "5_functions.md",
				Raw:  "# Functions\n\n![diagram](images/missing.png)\n\nSee [collections](6_collections.md).\n",
			},
			{
				Path: "7_classes.md",
				Raw:  "# Classes\n",
			},
		},
	}

	files := map[string]bool{
		"5_functions.md":   true,
		"6_collections.md": true,
		"7_classes.md":     true,
	}
	report := lint.RunWithExists(b, func(rel string) bool { return files[rel] })

	if !hasIssue(report.Errors(), lint.RuleCrossrefs, "missing file 99_ghost.md") {
		t.Errorf("Expected dangling ToC entry error, got: %v", report.Errors())
	}
	if !hasIssue(report.Errors(), lint.RuleCrossrefs, "images/missing.png does not exist") {
		t.Errorf("Expected missing image error, got: %v", report.Errors())
	}
	if hasIssue(report.Errors(), lint.RuleCrossrefs, "6_collections.md") {
		t.Errorf("6_collections.md exists, no error expected: %v", report.Errors())
	}
	if !hasIssue(report.Warnings(), lint.RuleCrossrefs, "not listed in index.md") {
		t.Errorf("Expected unlisted chapter warning, got: %v", report.Warnings())
	}
}

func TestCheckCrossrefsTitledLink(t *testing.T) {
	b := &book.Book{
		Chapters: []book.Chapter{
			{
				Path: "5_functions.md",
				Raw:  "# Functions\n\nSee [collections](6_collections.md \"Chapter six\").\n",
			},
			{Path: "6_collections.md", Raw: "# Collections\n"},
		},
	}

	files := map[string]bool{
		"5_functions.md":   true,
		"6_collections.md": true,
	}
	report := &lint.Report{}
	lint.CheckCrossrefs(report, b, func(rel string) bool { return files[rel] })

	if hasIssue(report.Errors(), lint.RuleCrossrefs, "6_collections.md") {
		t.Errorf("Quoted link title must not break target resolution: %v", report.Errors())
	}
}

func TestCheckCrossrefsSkipsFencedLinks(t *testing.T) {
	b := &book.Book{
		HasTOC: true,
		Chapters: []book.Chapter{
			{
				Path: "5_functions.md",
				Raw:  "# Functions\n\n```markdown\n[example](missing.md)\n```\n",
			},
		},
	}

	report := lint.RunWithExists(b, func(rel string) bool { return rel == "5_functions.md" })

	if hasIssue(report.Errors(), lint.RuleCrossrefs, "missing.md") {
		t.Errorf("Links inside fences should be ignored, got: %v", report.Errors())
	}
}

func TestCheckDuplicatesVerbatim(t *testing.T) {
	raw := "# Chapter 5: Functions\n\nSame content.\n"
	b := &book.Book{
		Chapters: []book.Chapter{
			{Path: "5_functions.md", Number: 5, Raw: raw},
			{Path: "copy/5_functions.md", Number: 5, Raw: raw},
		},
	}

	report := &lint.Report{}
	lint.CheckDuplicates(report, b)

	if !hasIssue(report.Errors(), lint.RuleDuplicates, "duplicated verbatim") {
		t.Errorf("Expected verbatim duplicate error, got: %v", report.Errors())
	}
	// Identical copies claiming the same number are only the verbatim error
	if hasIssue(report.Errors(), lint.RuleDuplicates, "differing content") {
		t.Errorf("Identical copies should not raise the differing-content error: %v", report.Errors())
	}
}

func TestCheckDuplicatesSameNumber(t *testing.T) {
	b := &book.Book{
		Chapters: []book.Chapter{
			{Path: "5_functions.md", Number: 5, Raw: "# Functions\n"},
			{Path: "5_methods.md", Number: 5, Raw: "# Methods\n"},
		},
	}

	report := &lint.Report{}
	lint.CheckDuplicates(report, b)

	if !hasIssue(report.Errors(), lint.RuleDuplicates, "chapter number 5 claimed by") {
		t.Errorf("Expected same-number error, got: %v", report.Errors())
	}
}

func TestCheckCodeFences(t *testing.T) {
	c := book.ParseChapter("# Title\n\n## Syntax\n\n```\nno language tag\n```\n")
	c.Path = "x.md"

	report := &lint.Report{}
	lint.CheckCodeFences(report, c)

	if !hasIssue(report.Warnings(), lint.RuleCodeFences, "no language tag") {
		t.Errorf("Expected fence warning, got: %v", report.Warnings())
	}
}

func TestRunCleanBook(t *testing.T) {
	good := goodChapter("5_functions.md")
	b := &book.Book{
		HasTOC:   true,
		TOC:      []book.TOCEntry{{Title: "Functions", Target: "5_functions.md", Line: 1}},
		Chapters: []book.Chapter{good},
	}

	report := lint.RunWithExists(b, func(rel string) bool { return true })

	if !report.Clean() {
		t.Errorf("Expected clean report, got: %v", report.Errors())
	}
}

func TestCheckManifest(t *testing.T) {
	b := &book.Book{
		HasTOC: true,
		TOC: []book.TOCEntry{
			{Title: "Functions", Target: "5_functions.md", Line: 1},
			{Title: "Collections", Target: "6_collections.md", Line: 2},
		},
		Chapters: []book.Chapter{
			goodChapter("5_functions.md"),
			goodChapter("6_collections.md"),
		},
	}

	m := &manifest.Manifest{
		Title: "Dart Fundamentals",
		Chapters: []manifest.Chapter{
			{Number: 6, Path: "6_collections.md", Title: "Collections"},
			{Number: 5, Path: "5_functions.md", Title: "Functions"},
			{Number: 9, Path: "9_ghost.md", Title: "Ghost"},
		},
	}

	report := &lint.Report{}
	lint.CheckManifest(report, b, m)

	if !hasIssue(report.Errors(), lint.RuleManifest, "9_ghost.md") {
		t.Errorf("Expected error for unknown manifest chapter, got: %v", report.Errors())
	}
	if !hasIssue(report.Warnings(), lint.RuleManifest, "orders 5_functions.md differently") {
		t.Errorf("Expected order warning, got: %v", report.Warnings())
	}
}

func TestCheckManifestClean(t *testing.T) {
	b := &book.Book{
		HasTOC:   true,
		TOC:      []book.TOCEntry{{Title: "Functions", Target: "5_functions.md", Line: 1}},
		Chapters: []book.Chapter{goodChapter("5_functions.md")},
	}

	m := &manifest.Manifest{
		Title:    "Dart Fundamentals",
		Chapters: []manifest.Chapter{{Number: 5, Path: "5_functions.md", Title: "Functions"}},
	}

	report := &lint.Report{}
	lint.CheckManifest(report, b, m)

	if !report.Clean() || len(report.Warnings()) != 0 {
		t.Errorf("Expected clean manifest check, got: %v", report.Issues)
	}
}
