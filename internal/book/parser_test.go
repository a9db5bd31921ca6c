package book_test

import (
	"strings"
	"testing"

	"github.com/dartbook/mcp-server/internal/book"
)

const sampleChapter = `# Chapter 5: Functions

![cover](images/functions.png)

## Concept Goal

Learn to define, call and compose functions.

## Logical Explanation

A function bundles a computation behind a name. Dart functions are
first-class values, so they can be stored and passed around.

## Visual Representation

![call stack](images/call_stack.png)

## Syntax

` + "```dart" + `
String greet(String name) => 'Hello, $name!';
` + "```" + `

## Practical Examples

` + "```dart" + `
void main() {
  print(greet('Dart'));
}
` + "```" + `

## Problem-Solving Exercises

### Exercise 1 (Easy): Greeting
Write a function ` + "`greet`" + ` that returns a greeting for a name.

### Exercise 2 (Medium): Composition
Write ` + "`compose(f, g)`" + ` returning a function applying g then f.

## Clean Solution & Explanation

### Solution 1
` + "```dart" + `
String greet(String name) => 'Hello, $name!';
` + "```" + `
Arrow syntax keeps a single-expression body short.

### Solution 2
` + "```dart" + `
Function compose(Function f, Function g) => (x) => f(g(x));
` + "```" + `
The returned closure captures f and g.

## Key Takeaways

- Functions are values.
- Arrow syntax fits single expressions.
`

func TestParseChapter(t *testing.T) {
	c := book.ParseChapter(sampleChapter)

	if c.Title != "Chapter 5: Functions" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.CoverImage != "images/functions.png" {
		t.Errorf("CoverImage = %q", c.CoverImage)
	}
	if len(c.Sections) != 8 {
		t.Fatalf("Expected 8 sections, got %d", len(c.Sections))
	}

	for _, kind := range book.CanonicalKinds {
		if c.Section(kind) == nil {
			t.Errorf("Missing canonical section %s", kind)
		}
	}

	syntax := c.Section(book.KindSyntax)
	if len(syntax.CodeBlocks) != 1 {
		t.Fatalf("Expected 1 code block in syntax section, got %d", len(syntax.CodeBlocks))
	}
	if syntax.CodeBlocks[0].Lang != "dart" {
		t.Errorf("Code block lang = %q, want dart", syntax.CodeBlocks[0].Lang)
	}
	if !strings.Contains(syntax.CodeBlocks[0].Code, "greet") {
		t.Errorf("Code block content wrong: %q", syntax.CodeBlocks[0].Code)
	}
}

func TestParseChapterExercises(t *testing.T) {
	c := book.ParseChapter(sampleChapter)

	if len(c.Exercises) != 2 {
		t.Fatalf("Expected 2 exercises, got %d", len(c.Exercises))
	}

	ex1 := c.Exercises[0]
	if ex1.Position != 1 {
		t.Errorf("Exercise 1 position = %d", ex1.Position)
	}
	if ex1.Difficulty != book.DifficultyEasy {
		t.Errorf("Exercise 1 difficulty = %s, want easy", ex1.Difficulty)
	}
	if ex1.Title != "Greeting" {
		t.Errorf("Exercise 1 title = %q", ex1.Title)
	}
	if !strings.Contains(ex1.Prompt, "greet") {
		t.Errorf("Exercise 1 prompt = %q", ex1.Prompt)
	}

	ex2 := c.Exercises[1]
	if ex2.Position != 2 || ex2.Difficulty != book.DifficultyMedium {
		t.Errorf("Exercise 2 = %+v", ex2)
	}
}

func TestParseChapterSolutions(t *testing.T) {
	c := book.ParseChapter(sampleChapter)

	if len(c.Solutions) != 2 {
		t.Fatalf("Expected 2 solutions, got %d", len(c.Solutions))
	}

	sol1 := c.Solutions[0]
	if sol1.Position != 1 {
		t.Errorf("Solution 1 position = %d", sol1.Position)
	}
	if len(sol1.Code) != 1 || sol1.Code[0].Lang != "dart" {
		t.Errorf("Solution 1 code blocks = %+v", sol1.Code)
	}
	if !strings.Contains(sol1.Rationale, "Arrow syntax") {
		t.Errorf("Solution 1 rationale = %q", sol1.Rationale)
	}

	sol2 := c.Solutions[1]
	if sol2.Position != 2 {
		t.Errorf("Solution 2 position = %d", sol2.Position)
	}
	if !strings.Contains(sol2.Rationale, "closure") {
		t.Errorf("Solution 2 rationale = %q", sol2.Rationale)
	}
}

func TestParseChapterBoldExerciseStyle(t *testing.T) {
	content := `# Chapter 3: Control Flow

## Problem-Solving Exercises

**Exercise 1 (Easy): FizzBuzz**
Print numbers 1 to 15 with the fizzbuzz rules.

**Exercise 2 (Advanced): Collatz**
Count the steps of the Collatz sequence.
`
	c := book.ParseChapter(content)

	if len(c.Exercises) != 2 {
		t.Fatalf("Expected 2 exercises, got %d", len(c.Exercises))
	}
	if c.Exercises[0].Title != "FizzBuzz" {
		t.Errorf("Exercise 1 title = %q", c.Exercises[0].Title)
	}
	if c.Exercises[1].Difficulty != book.DifficultyAdvanced {
		t.Errorf("Exercise 2 difficulty = %s", c.Exercises[1].Difficulty)
	}
}

func TestParseChapterHeadingInsideFence(t *testing.T) {
	content := "# Title\n\n## Syntax\n\n```markdown\n## Not A Section\n```\n\nAfter the fence.\n"
	c := book.ParseChapter(content)

	if len(c.Sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(c.Sections))
	}
	if !strings.Contains(c.Sections[0].Body, "## Not A Section") {
		t.Error("Fenced heading should stay in the section body")
	}
}

func TestParseChapterNumberedHeadings(t *testing.T) {
	content := `# Chapter 2

## 1. Concept Goal

Understand variables.

## 6. Problem-Solving Exercises

### Exercise 1 (Easy)
Declare a variable.
`
	c := book.ParseChapter(content)

	if got := c.Section(book.KindConceptGoal); got == nil {
		t.Error("Numbered 'Concept Goal' heading not recognized")
	}
	if got := c.Section(book.KindExercises); got == nil {
		t.Error("Numbered exercises heading not recognized")
	}
}

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Concept Goal", "concept goal"},
		{"  Clean Solution & Explanation ", "clean solution and explanation"},
		{"3. Problem-Solving Exercises", "problem solving exercises"},
		{"Key Takeaways!", "key takeaways"},
	}
	for _, tt := range tests {
		if got := book.NormalizeHeading(tt.input); got != tt.expected {
			t.Errorf("NormalizeHeading(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestKindForHeading(t *testing.T) {
	tests := []struct {
		heading string
		kind    book.SectionKind
	}{
		{"Concept Goal", book.KindConceptGoal},
		{"Syntax Block", book.KindSyntax},
		{"Clean Solutions and Explanations", book.KindSolutions},
		{"Some Random Heading", book.KindUnknown},
	}
	for _, tt := range tests {
		if got := book.KindForHeading(tt.heading); got != tt.kind {
			t.Errorf("KindForHeading(%q) = %s, want %s", tt.heading, got, tt.kind)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		label string
		want  book.Difficulty
	}{
		{"Easy", book.DifficultyEasy},
		{"medium", book.DifficultyMedium},
		{"Intermediate", book.DifficultyMedium},
		{"ADVANCED", book.DifficultyAdvanced},
		{"hard", book.DifficultyAdvanced},
		{"tricky", book.DifficultyUnknown},
		{"", book.DifficultyUnknown},
	}
	for _, tt := range tests {
		if got := book.ParseDifficulty(tt.label); got != tt.want {
			t.Errorf("ParseDifficulty(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestChapterNumberFromPath(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"5_functions.md", 5},
		{"03_control_flow.md", 3},
		{"chapter-7.md", 7},
		{"chapters/chapter_12.md", 12},
		{"appendix.md", 0},
	}
	for _, tt := range tests {
		if got := book.ChapterNumberFromPath(tt.path); got != tt.want {
			t.Errorf("ChapterNumberFromPath(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}
