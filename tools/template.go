package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dartbook/mcp-server/internal/book"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// canonicalHeadings maps each section kind to the heading a new chapter
// should use, in reading order via book.CanonicalKinds.
var canonicalHeadings = map[book.SectionKind]string{
	book.KindConceptGoal:          "Concept Goal",
	book.KindLogicalExplanation:   "Logical Explanation",
	book.KindVisualRepresentation: "Visual Representation",
	book.KindSyntax:               "Syntax",
	book.KindPracticalExamples:    "Practical Examples",
	book.KindExercises:            "Problem-Solving Exercises",
	book.KindSolutions:            "Clean Solution & Explanation",
	book.KindKeyTakeaways:         "Key Takeaways",
}

// sectionHints seed each scaffolded section with a short authoring prompt.
var sectionHints = map[book.SectionKind]string{
	book.KindConceptGoal:          "State in two or three sentences what the reader will be able to do after this chapter.",
	book.KindLogicalExplanation:   "Explain the concept step by step, before any syntax.",
	book.KindVisualRepresentation: "Add a diagram or image illustrating the concept.",
	book.KindSyntax:               "Show the bare syntax forms introduced by this chapter.",
	book.KindPracticalExamples:    "Walk through complete, runnable examples.",
	book.KindKeyTakeaways:         "Summarize the chapter in a short bullet list.",
}

// ChapterTemplateInput defines input for the get_chapter_template tool
type ChapterTemplateInput struct {
	Number    int    `json:"number" jsonschema:"Chapter number, used for the filename and heading"`
	Title     string `json:"title" jsonschema:"Chapter title"`
	Exercises int    `json:"exercises,omitempty" jsonschema:"How many exercise/solution pairs to scaffold (optional, defaults to 3)"`
	Language  string `json:"language,omitempty" jsonschema:"Language tag for scaffolded code fences (optional, defaults to dart)"`
}

// ChapterTemplateOutput defines output for the get_chapter_template tool
type ChapterTemplateOutput struct {
	Filename string `json:"filename"`
	Markdown string `json:"markdown"`
	Sections int    `json:"sections"`
}

// GetChapterTemplate scaffolds a new chapter with the eight canonical sections
func GetChapterTemplate(ctx context.Context, req *mcp.CallToolRequest, input ChapterTemplateInput) (*mcp.CallToolResult, ChapterTemplateOutput, error) {
	if input.Number <= 0 {
		return nil, ChapterTemplateOutput{}, fmt.Errorf("chapter number must be positive")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ChapterTemplateOutput{}, fmt.Errorf("title must not be empty")
	}

	exercises := input.Exercises
	if exercises <= 0 {
		exercises = 3
	}
	lang := input.Language
	if lang == "" {
		lang = "dart"
	}

	// Difficulty cycles easy -> medium -> advanced across the scaffolded pairs
	difficulties := []book.Difficulty{book.DifficultyEasy, book.DifficultyMedium, book.DifficultyAdvanced}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Chapter %d: %s\n\n", input.Number, title)
	sb.WriteString("![cover](images/cover.png)\n\n")

	for _, kind := range book.CanonicalKinds {
		fmt.Fprintf(&sb, "## %s\n\n", canonicalHeadings[kind])

		switch kind {
		case book.KindSyntax, book.KindPracticalExamples:
			sb.WriteString(sectionHints[kind] + "\n\n")
			fmt.Fprintf(&sb, "```%s\n// ...\n```\n\n", lang)

		case book.KindExercises:
			for i := 1; i <= exercises; i++ {
				difficulty := difficulties[(i-1)%len(difficulties)]
				fmt.Fprintf(&sb, "### Exercise %d (%s): TODO title\n\n", i, difficulty)
				sb.WriteString("Describe the problem the reader has to solve.\n\n")
			}

		case book.KindSolutions:
			for i := 1; i <= exercises; i++ {
				fmt.Fprintf(&sb, "### Solution %d\n\n", i)
				fmt.Fprintf(&sb, "```%s\n// ...\n```\n\n", lang)
				sb.WriteString("Explain why this solution is clean.\n\n")
			}

		default:
			sb.WriteString(sectionHints[kind] + "\n\n")
		}
	}

	slug := strings.ToLower(strings.ReplaceAll(title, " ", "_"))
	output := ChapterTemplateOutput{
		Filename: fmt.Sprintf("%d_%s.md", input.Number, slug),
		Markdown: sb.String(),
		Sections: len(book.CanonicalKinds),
	}
	return nil, output, nil
}

// RegisterTemplateTools registers the authoring scaffold tools with the MCP server
func RegisterTemplateTools(server *mcp.Server) error {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_chapter_template",
			Description: "Scaffold a new chapter markdown file with the eight canonical sections and numbered exercise/solution pairs.",
		},
		GetChapterTemplate,
	)

	return nil
}
