package indexing

// BookChunk represents one searchable unit of the book in the index.
// Chapters split into one chunk per canonical section; exercise/solution
// pairs become their own chunks so difficulty is searchable.
type BookChunk struct {
	ID         string   `json:"id"`
	Path       string   `json:"path"`                 // corpus-relative chapter path
	Chapter    string   `json:"chapter"`              // chapter title
	Section    string   `json:"section"`              // section heading within the chapter
	Difficulty string   `json:"difficulty,omitempty"` // set on exercise/solution chunks
	Content    string   `json:"content"`
	Breadcrumb string   `json:"breadcrumb,omitempty"` // "Chapter > Section"
	Keywords   []string `json:"keywords,omitempty"`   // key terms extracted from content
	TokenCount int      `json:"token_count,omitempty"`
}
