package book

// SectionKind identifies one of the eight canonical sections every chapter carries.
type SectionKind string

const (
	KindConceptGoal          SectionKind = "concept_goal"
	KindLogicalExplanation   SectionKind = "logical_explanation"
	KindVisualRepresentation SectionKind = "visual_representation"
	KindSyntax               SectionKind = "syntax"
	KindPracticalExamples    SectionKind = "practical_examples"
	KindExercises            SectionKind = "exercises"
	KindSolutions            SectionKind = "solutions"
	KindKeyTakeaways         SectionKind = "key_takeaways"

	// KindUnknown marks a heading that matches none of the canonical sections.
	KindUnknown SectionKind = "unknown"
)

// CanonicalKinds lists the eight section kinds in their conventional reading order.
var CanonicalKinds = []SectionKind{
	KindConceptGoal,
	KindLogicalExplanation,
	KindVisualRepresentation,
	KindSyntax,
	KindPracticalExamples,
	KindExercises,
	KindSolutions,
	KindKeyTakeaways,
}

// Difficulty is the label attached to an exercise prompt.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyAdvanced Difficulty = "advanced"
	DifficultyUnknown  Difficulty = "unknown"
)

// CodeBlock is a fenced code block inside a section body.
type CodeBlock struct {
	Lang string `json:"lang"` // language tag after the opening fence, may be empty
	Code string `json:"code"`
	Line int    `json:"line"` // 1-based line of the opening fence
}

// Section is one titled unit of a chapter.
type Section struct {
	Kind       SectionKind `json:"kind"`
	Heading    string      `json:"heading"` // heading as written, without the ## prefix
	Body       string      `json:"body"`
	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`
	Line       int         `json:"line"` // 1-based line of the heading
}

// Exercise is one problem inside the Problem-Solving Exercises section.
type Exercise struct {
	Position   int        `json:"position"` // 1-based, pairing key with a Solution
	Difficulty Difficulty `json:"difficulty"`
	Title      string     `json:"title"`
	Prompt     string     `json:"prompt"`
	Line       int        `json:"line"`
}

// Solution pairs with the Exercise at the same position.
type Solution struct {
	Position  int         `json:"position"`
	Title     string      `json:"title"`
	Code      []CodeBlock `json:"code,omitempty"`
	Rationale string      `json:"rationale"`
	Line      int         `json:"line"`
}

// Chapter is a single parsed chapter document.
type Chapter struct {
	Path       string     `json:"path"`   // path relative to the book root
	Number     int        `json:"number"` // 0 when not derivable from the filename
	Title      string     `json:"title"`  // first H1, empty when missing
	CoverImage string     `json:"cover_image,omitempty"`
	Sections   []Section  `json:"sections"`
	Exercises  []Exercise `json:"exercises"`
	Solutions  []Solution `json:"solutions"`
	Raw        string     `json:"-"`
}

// TOCEntry is one chapter pointer in the root index file.
type TOCEntry struct {
	Title  string `json:"title"`
	Target string `json:"target"` // link target as written, relative to the book root
	Line   int    `json:"line"`
}

// Book is the loaded corpus: all chapters plus the table of contents.
type Book struct {
	Root     string     `json:"root"`
	Chapters []Chapter  `json:"chapters"` // reading order (ToC order, then number, then path)
	TOC      []TOCEntry `json:"toc"`
	HasTOC   bool       `json:"has_toc"`
}

// Section returns the first section of the given kind, or nil.
func (c *Chapter) Section(kind SectionKind) *Section {
	for i := range c.Sections {
		if c.Sections[i].Kind == kind {
			return &c.Sections[i]
		}
	}
	return nil
}

// SectionCount returns how many sections of the given kind the chapter has.
func (c *Chapter) SectionCount(kind SectionKind) int {
	n := 0
	for i := range c.Sections {
		if c.Sections[i].Kind == kind {
			n++
		}
	}
	return n
}

// Chapter returns the chapter with the given relative path, or nil.
func (b *Book) Chapter(path string) *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].Path == path {
			return &b.Chapters[i]
		}
	}
	return nil
}

// ChapterByNumber returns the first chapter claiming the given number, or nil.
func (b *Book) ChapterByNumber(number int) *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].Number == number {
			return &b.Chapters[i]
		}
	}
	return nil
}
