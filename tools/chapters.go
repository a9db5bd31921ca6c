package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dartbook/mcp-server/internal/book"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ChapterSummary is the listing view of a chapter
type ChapterSummary struct {
	Number        int    `json:"number"`
	Path          string `json:"path"`
	Title         string `json:"title"`
	SectionCount  int    `json:"section_count"`
	ExerciseCount int    `json:"exercise_count"`
	SolutionCount int    `json:"solution_count"`
	InTOC         bool   `json:"in_toc"`
}

// ListChaptersInput defines input for the list_chapters tool
type ListChaptersInput struct{}

// ListChaptersOutput defines output for the list_chapters tool
type ListChaptersOutput struct {
	Chapters []ChapterSummary `json:"chapters"`
	HasTOC   bool             `json:"has_toc"`
	Total    int              `json:"total"`
}

// GetChapterInput defines input for the get_chapter tool
type GetChapterInput struct {
	Path    string `json:"path,omitempty" jsonschema:"Chapter path relative to the book root (e.g. '5_functions.md')"`
	Number  int    `json:"number,omitempty" jsonschema:"Chapter number; used when path is not set"`
	Section string `json:"section,omitempty" jsonschema:"Restrict output to one canonical section (e.g. 'syntax', 'practical_examples')"`
}

// GetChapterOutput defines output for the get_chapter tool
type GetChapterOutput struct {
	Number     int            `json:"number"`
	Path       string         `json:"path"`
	Title      string         `json:"title"`
	CoverImage string         `json:"cover_image,omitempty"`
	Sections   []book.Section `json:"sections"`
	LinksTo    []string       `json:"links_to,omitempty"`
	LinkedFrom []string       `json:"linked_from,omitempty"`
}

// ExercisePair is an exercise positioned next to its solution
type ExercisePair struct {
	Position   int             `json:"position"`
	Difficulty book.Difficulty `json:"difficulty"`
	Title      string          `json:"title"`
	Prompt     string          `json:"prompt"`
	Solution   *book.Solution  `json:"solution,omitempty"`
}

// GetExercisesInput defines input for the get_exercises tool
type GetExercisesInput struct {
	Path       string `json:"path,omitempty" jsonschema:"Chapter path relative to the book root"`
	Number     int    `json:"number,omitempty" jsonschema:"Chapter number; used when path is not set"`
	Difficulty string `json:"difficulty,omitempty" jsonschema:"Filter by difficulty: easy, medium or advanced"`
}

// GetExercisesOutput defines output for the get_exercises tool
type GetExercisesOutput struct {
	Chapter   string         `json:"chapter"`
	Path      string         `json:"path"`
	Exercises []ExercisePair `json:"exercises"`
	Total     int            `json:"total"`
}

// loadBook loads the corpus from the resolved book directory.
func loadBook() (*book.Book, error) {
	if bookDir == "" {
		if err := InitializeBookSearch(); err != nil {
			return nil, fmt.Errorf("book directory not resolved: %w", err)
		}
	}
	b, err := book.Load(bookDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load book from %s: %w", bookDir, err)
	}
	return b, nil
}

// findChapter resolves a chapter by path first, then by number.
func findChapter(b *book.Book, path string, number int) (*book.Chapter, error) {
	if path != "" {
		if ch := b.Chapter(path); ch != nil {
			return ch, nil
		}
		return nil, fmt.Errorf("no chapter at path %q", path)
	}
	if number > 0 {
		if ch := b.ChapterByNumber(number); ch != nil {
			return ch, nil
		}
		return nil, fmt.Errorf("no chapter with number %d", number)
	}
	return nil, fmt.Errorf("either path or number must be set")
}

// ListChapters returns all chapters in reading order
func ListChapters(ctx context.Context, req *mcp.CallToolRequest, input ListChaptersInput) (*mcp.CallToolResult, ListChaptersOutput, error) {
	b, err := loadBook()
	if err != nil {
		return nil, ListChaptersOutput{}, err
	}

	inTOC := make(map[string]bool, len(b.TOC))
	for _, entry := range b.TOC {
		if resolved := book.ResolveTarget("", entry.Target); resolved != "" {
			inTOC[resolved] = true
		}
	}

	summaries := make([]ChapterSummary, 0, len(b.Chapters))
	for i := range b.Chapters {
		ch := &b.Chapters[i]
		summaries = append(summaries, ChapterSummary{
			Number:        ch.Number,
			Path:          ch.Path,
			Title:         ch.Title,
			SectionCount:  len(ch.Sections),
			ExerciseCount: len(ch.Exercises),
			SolutionCount: len(ch.Solutions),
			InTOC:         inTOC[ch.Path],
		})
	}

	output := ListChaptersOutput{
		Chapters: summaries,
		HasTOC:   b.HasTOC,
		Total:    len(summaries),
	}
	return nil, output, nil
}

// GetChapter returns one chapter, optionally narrowed to a single section
func GetChapter(ctx context.Context, req *mcp.CallToolRequest, input GetChapterInput) (*mcp.CallToolResult, GetChapterOutput, error) {
	b, err := loadBook()
	if err != nil {
		return nil, GetChapterOutput{}, err
	}

	ch, err := findChapter(b, input.Path, input.Number)
	if err != nil {
		return nil, GetChapterOutput{}, err
	}

	sections := ch.Sections
	if input.Section != "" {
		kind := book.SectionKind(strings.ToLower(strings.TrimSpace(input.Section)))
		sec := ch.Section(kind)
		if sec == nil {
			return nil, GetChapterOutput{}, fmt.Errorf("chapter %q has no %q section", ch.Path, input.Section)
		}
		sections = []book.Section{*sec}
	}

	linksTo, linkedFrom := chapterRefs(ch.Path)

	output := GetChapterOutput{
		Number:     ch.Number,
		Path:       ch.Path,
		Title:      ch.Title,
		CoverImage: ch.CoverImage,
		Sections:   sections,
		LinksTo:    linksTo,
		LinkedFrom: linkedFrom,
	}
	return nil, output, nil
}

// chapterRefs fetches the cross-reference graph entries for a chapter from the
// catalog. The catalog is best-effort here: a chapter is still readable when
// it has not been synced yet.
func chapterRefs(path string) (linksTo, linkedFrom []string) {
	cat, err := openCatalog()
	if err != nil {
		log.Printf("Warning: catalog unavailable, skipping cross-references: %v", err)
		return nil, nil
	}
	defer cat.Close()

	if linksTo, err = cat.ForwardRefs(path); err != nil {
		log.Printf("Warning: failed to read forward references for %s: %v", path, err)
	}
	if linkedFrom, err = cat.BackRefs(path); err != nil {
		log.Printf("Warning: failed to read back references for %s: %v", path, err)
	}
	return linksTo, linkedFrom
}

// GetExercises returns a chapter's exercises paired with their solutions
func GetExercises(ctx context.Context, req *mcp.CallToolRequest, input GetExercisesInput) (*mcp.CallToolResult, GetExercisesOutput, error) {
	b, err := loadBook()
	if err != nil {
		return nil, GetExercisesOutput{}, err
	}

	ch, err := findChapter(b, input.Path, input.Number)
	if err != nil {
		return nil, GetExercisesOutput{}, err
	}

	solutionAt := make(map[int]*book.Solution, len(ch.Solutions))
	for i := range ch.Solutions {
		solutionAt[ch.Solutions[i].Position] = &ch.Solutions[i]
	}

	var filter book.Difficulty
	if input.Difficulty != "" {
		filter = book.ParseDifficulty(input.Difficulty)
		if filter == book.DifficultyUnknown {
			return nil, GetExercisesOutput{}, fmt.Errorf("unknown difficulty %q (want easy, medium or advanced)", input.Difficulty)
		}
	}

	pairs := make([]ExercisePair, 0, len(ch.Exercises))
	for _, ex := range ch.Exercises {
		if filter != "" && ex.Difficulty != filter {
			continue
		}
		pairs = append(pairs, ExercisePair{
			Position:   ex.Position,
			Difficulty: ex.Difficulty,
			Title:      ex.Title,
			Prompt:     ex.Prompt,
			Solution:   solutionAt[ex.Position],
		})
	}

	output := GetExercisesOutput{
		Chapter:   ch.Title,
		Path:      ch.Path,
		Exercises: pairs,
		Total:     len(pairs),
	}
	return nil, output, nil
}

// RegisterChapterTools registers the chapter navigation tools with the MCP server
func RegisterChapterTools(server *mcp.Server) error {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_chapters",
			Description: "List every chapter of the book in reading order with section and exercise counts.",
		},
		ListChapters,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_chapter",
			Description: "Fetch one chapter by path or number, optionally narrowed to a single canonical section.",
		},
		GetChapter,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_exercises",
			Description: "Fetch a chapter's exercises paired with their solutions, optionally filtered by difficulty.",
		},
		GetExercises,
	)

	return nil
}
