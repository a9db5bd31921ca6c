package book

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	coverImageRegex    = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
	numberPrefixRegex  = regexp.MustCompile(`^(\d+)`)
	chapterNumberRegex = regexp.MustCompile(`(?i)chapter[-_ ]?(\d+)`)
	leadingNumberRegex = regexp.MustCompile(`^\d+[.)]?\s*`)

	// Matches exercise/solution delimiters in both styles the corpus uses:
	// "### Exercise 2 (Medium): Title" and "**Exercise 2 (Medium): Title**"
	exerciseHeadRegex = regexp.MustCompile(`(?i)^(?:#{3,}\s*|\*\*)\s*exercise\s*(\d+)?\s*(?:\(([^)]+)\))?\s*[:.\-]?\s*(.*?)(?:\*\*)?\s*$`)
	solutionHeadRegex = regexp.MustCompile(`(?i)^(?:#{3,}\s*|\*\*)\s*solution\s*(\d+)?\s*(?:\(([^)]+)\))?\s*[:.\-]?\s*(.*?)(?:\*\*)?\s*$`)
)

// sectionHeadings maps normalized H2 headings to their canonical kind.
// Normalization lowercases, replaces "&" with "and" and strips leading numbering,
// so "## 6. Problem-Solving Exercises" and "## Problem Solving Exercises" both match.
var sectionHeadings = map[string]SectionKind{
	"concept goal":                     KindConceptGoal,
	"logical explanation":              KindLogicalExplanation,
	"visual representation":            KindVisualRepresentation,
	"syntax":                           KindSyntax,
	"syntax block":                     KindSyntax,
	"practical examples":               KindPracticalExamples,
	"problem solving exercises":        KindExercises,
	"clean solution and explanation":   KindSolutions,
	"clean solutions and explanations": KindSolutions,
	"key takeaways":                    KindKeyTakeaways,
}

// NormalizeHeading reduces a heading to the form used for canonical-kind lookup.
func NormalizeHeading(heading string) string {
	h := strings.ToLower(strings.TrimSpace(heading))
	h = strings.ReplaceAll(h, "&", "and")
	h = strings.ReplaceAll(h, "-", " ")
	// Strip leading numbering like "3." or "3)"
	h = leadingNumberRegex.ReplaceAllString(h, "")
	// Collapse everything that is not a letter, digit or space
	h = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			return r
		}
		return -1
	}, h)
	return strings.Join(strings.Fields(h), " ")
}

// KindForHeading resolves an H2 heading to its canonical section kind.
func KindForHeading(heading string) SectionKind {
	if kind, ok := sectionHeadings[NormalizeHeading(heading)]; ok {
		return kind
	}
	return KindUnknown
}

// ParseDifficulty maps a free-form difficulty label to its canonical value.
func ParseDifficulty(label string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "easy":
		return DifficultyEasy
	case "medium", "intermediate":
		return DifficultyMedium
	case "advanced", "hard":
		return DifficultyAdvanced
	default:
		return DifficultyUnknown
	}
}

// ChapterNumberFromPath derives the chapter number from a filename like
// "03_control_flow.md" or "chapter-3.md". Returns 0 when no number is present.
func ChapterNumberFromPath(path string) int {
	base := filepath.Base(path)
	if m := numberPrefixRegex.FindStringSubmatch(base); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := chapterNumberRegex.FindStringSubmatch(base); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// ParseChapterFile reads and parses a single chapter document.
func ParseChapterFile(path string) (*Chapter, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chapter: %w", err)
	}
	chapter := ParseChapter(string(content))
	chapter.Path = filepath.ToSlash(path)
	chapter.Number = ChapterNumberFromPath(path)
	return chapter, nil
}

// ParseChapter parses chapter markdown into its section/exercise/solution model.
// The parser is lenient: structural violations surface through the lint checks,
// never as parse errors.
func ParseChapter(content string) *Chapter {
	chapter := &Chapter{Raw: content}
	lines := strings.Split(content, "\n")

	var current *Section
	var body strings.Builder
	var block *CodeBlock
	inFence := false

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(body.String())
		chapter.Sections = append(chapter.Sections, *current)
		current = nil
		body.Reset()
	}

	for i, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)
		lineNo := i + 1

		// Fenced code blocks are opaque: headings inside them are content.
		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				inFence = true
				block = &CodeBlock{
					Lang: strings.TrimSpace(strings.TrimPrefix(trimmed, "```")),
					Line: lineNo,
				}
			} else {
				inFence = false
				if current != nil && block != nil {
					current.CodeBlocks = append(current.CodeBlocks, *block)
				}
				block = nil
			}
			if current != nil {
				body.WriteString(line)
				body.WriteString("\n")
			}
			continue
		}
		if inFence {
			if block != nil {
				if block.Code != "" {
					block.Code += "\n"
				}
				block.Code += line
			}
			if current != nil {
				body.WriteString(line)
				body.WriteString("\n")
			}
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "# ") && chapter.Title == "":
			chapter.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))

		case strings.HasPrefix(trimmed, "## "):
			flush()
			heading := strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			current = &Section{
				Kind:    KindForHeading(heading),
				Heading: heading,
				Line:    lineNo,
			}

		default:
			// The cover image is the first image reference before any section.
			if current == nil && chapter.CoverImage == "" {
				if m := coverImageRegex.FindStringSubmatch(trimmed); m != nil {
					chapter.CoverImage = m[1]
				}
			}
			if current != nil {
				body.WriteString(line)
				body.WriteString("\n")
			}
		}
	}
	flush()

	if sec := chapter.Section(KindExercises); sec != nil {
		chapter.Exercises = parseExercises(sec)
	}
	if sec := chapter.Section(KindSolutions); sec != nil {
		chapter.Solutions = parseSolutions(sec)
	}

	return chapter
}

// parseExercises splits the exercises section body into individual prompts.
func parseExercises(sec *Section) []Exercise {
	var exercises []Exercise
	var current *Exercise
	var prompt strings.Builder
	inFence := false

	flush := func() {
		if current == nil {
			return
		}
		current.Prompt = strings.TrimSpace(prompt.String())
		exercises = append(exercises, *current)
		current = nil
		prompt.Reset()
	}

	for i, line := range strings.Split(sec.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if !inFence && exerciseHeadRegex.MatchString(trimmed) {
			flush()
			m := exerciseHeadRegex.FindStringSubmatch(trimmed)
			position := len(exercises) + 1
			if m[1] != "" {
				if n, err := strconv.Atoi(m[1]); err == nil {
					position = n
				}
			}
			current = &Exercise{
				Position:   position,
				Difficulty: ParseDifficulty(m[2]),
				Title:      strings.TrimSpace(strings.TrimSuffix(m[3], "**")),
				Line:       sec.Line + i + 1,
			}
			continue
		}
		if current != nil {
			prompt.WriteString(line)
			prompt.WriteString("\n")
		}
	}
	flush()
	return exercises
}

// parseSolutions splits the solutions section body into worked answers.
func parseSolutions(sec *Section) []Solution {
	var solutions []Solution
	var current *Solution
	var rationale strings.Builder
	var block *CodeBlock
	inFence := false

	flush := func() {
		if current == nil {
			return
		}
		current.Rationale = strings.TrimSpace(rationale.String())
		solutions = append(solutions, *current)
		current = nil
		rationale.Reset()
	}

	for i, line := range strings.Split(sec.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		lineNo := sec.Line + i + 1

		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				inFence = true
				block = &CodeBlock{
					Lang: strings.TrimSpace(strings.TrimPrefix(trimmed, "```")),
					Line: lineNo,
				}
			} else {
				inFence = false
				if current != nil && block != nil {
					current.Code = append(current.Code, *block)
				}
				block = nil
			}
			continue
		}
		if inFence {
			if block != nil {
				if block.Code != "" {
					block.Code += "\n"
				}
				block.Code += line
			}
			continue
		}

		if solutionHeadRegex.MatchString(trimmed) {
			flush()
			m := solutionHeadRegex.FindStringSubmatch(trimmed)
			position := len(solutions) + 1
			if m[1] != "" {
				if n, err := strconv.Atoi(m[1]); err == nil {
					position = n
				}
			}
			current = &Solution{
				Position: position,
				Title:    strings.TrimSpace(strings.TrimSuffix(m[3], "**")),
				Line:     lineNo,
			}
			continue
		}
		if current != nil {
			rationale.WriteString(line)
			rationale.WriteString("\n")
		}
	}
	flush()
	return solutions
}
