package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Term represents one glossary entry
type Term struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Definition string   `json:"definition"`
	Aliases    []string `json:"aliases,omitempty"`
	Chapters   []int    `json:"chapters,omitempty"` // chapters where the term is introduced or central
	SeeAlso    []string `json:"see_also,omitempty"`
}

// Glossary represents the complete term catalog
type Glossary struct {
	Terms       []Term `json:"terms"`
	Version     string `json:"version"`
	LastUpdated string `json:"last_updated"`
}

var glossary *Glossary

// LoadGlossary loads the glossary catalog.
// Embedded data is tried first (standalone binary), then the filesystem.
func LoadGlossary() error {
	data, err := defaultDataProvider.ReadFile("data/glossary/glossary.json")
	if err != nil {
		path := filepath.Join(dataDir, "glossary/glossary.json")
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read glossary (embedded or filesystem): %w", err)
		}
	}

	var g Glossary
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("failed to parse glossary: %w", err)
	}
	glossary = &g
	return nil
}

// TermSummary represents lightweight term info for listing
type TermSummary struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	Chapters   []int  `json:"chapters,omitempty"`
}

// ListTermsInput defines input for the list_terms tool
type ListTermsInput struct {
	Chapter int `json:"chapter,omitempty" jsonschema:"Only return terms central to this chapter number (optional)"`
}

// ListTermsOutput defines output for the list_terms tool
type ListTermsOutput struct {
	Terms []TermSummary `json:"terms"`
	Count int           `json:"count"`
}

// LookupTermInput defines input for the lookup_term tool
type LookupTermInput struct {
	Term string `json:"term" jsonschema:"Term to look up, matched against names and aliases (case-insensitive)"`
}

// LookupTermOutput defines output for the lookup_term tool
type LookupTermOutput struct {
	Found bool  `json:"found"`
	Term  *Term `json:"term,omitempty"`
	// Suggestions lists near matches when the term itself is unknown
	Suggestions []string `json:"suggestions,omitempty"`
}

// ListTerms returns the glossary, optionally narrowed to one chapter
func ListTerms(ctx context.Context, req *mcp.CallToolRequest, input ListTermsInput) (*mcp.CallToolResult, ListTermsOutput, error) {
	if glossary == nil {
		if err := LoadGlossary(); err != nil {
			return nil, ListTermsOutput{}, fmt.Errorf("failed to load glossary: %w", err)
		}
	}

	summaries := make([]TermSummary, 0, len(glossary.Terms))
	for _, term := range glossary.Terms {
		if input.Chapter > 0 && !containsInt(term.Chapters, input.Chapter) {
			continue
		}
		summaries = append(summaries, TermSummary{
			Name:       term.Name,
			Definition: term.Definition,
			Chapters:   term.Chapters,
		})
	}

	return nil, ListTermsOutput{
		Terms: summaries,
		Count: len(summaries),
	}, nil
}

// LookupTerm resolves one term by name or alias
func LookupTerm(ctx context.Context, req *mcp.CallToolRequest, input LookupTermInput) (*mcp.CallToolResult, LookupTermOutput, error) {
	if glossary == nil {
		if err := LoadGlossary(); err != nil {
			return nil, LookupTermOutput{}, fmt.Errorf("failed to load glossary: %w", err)
		}
	}

	query := strings.ToLower(strings.TrimSpace(input.Term))
	if query == "" {
		return nil, LookupTermOutput{}, fmt.Errorf("term must not be empty")
	}

	for i := range glossary.Terms {
		term := &glossary.Terms[i]
		if strings.ToLower(term.Name) == query {
			return nil, LookupTermOutput{Found: true, Term: term}, nil
		}
		for _, alias := range term.Aliases {
			if strings.ToLower(alias) == query {
				return nil, LookupTermOutput{Found: true, Term: term}, nil
			}
		}
	}

	// No exact match: suggest terms sharing a word with the query
	suggestions := []string{}
	for _, term := range glossary.Terms {
		if strings.Contains(strings.ToLower(term.Name), query) || strings.Contains(query, strings.ToLower(term.Name)) {
			suggestions = append(suggestions, term.Name)
		}
	}

	return nil, LookupTermOutput{
		Found:       false,
		Suggestions: suggestions,
	}, nil
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// RegisterGlossaryTools registers the glossary tools with the MCP server
func RegisterGlossaryTools(server *mcp.Server) error {
	if err := LoadGlossary(); err != nil {
		return fmt.Errorf("failed to load glossary: %w", err)
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_terms",
			Description: "List the book's glossary terms with their definitions, optionally narrowed to the terms central to one chapter.",
		},
		ListTerms,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "lookup_term",
			Description: "Look up one glossary term by name or alias. Returns the definition, related chapters and see-also pointers.",
		},
		LookupTerm,
	)

	return nil
}
