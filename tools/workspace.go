package tools

import (
	"context"
	"fmt"

	"github.com/dartbook/mcp-server/internal/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// BookInfoInput defines input for the get_book_info tool
type BookInfoInput struct {
	Dir string `json:"dir,omitempty" jsonschema:"Book directory to inspect (optional, defaults to the resolved book directory)"`
}

// BookInfoOutput defines output for the get_book_info tool
type BookInfoOutput struct {
	*workspace.Info

	// Duplicate chapters known to the catalog: identical content under
	// several paths, and chapter numbers claimed by more than one file.
	DuplicateContent map[string][]string `json:"duplicate_content,omitempty"`
	DuplicateNumbers map[int][]string    `json:"duplicate_numbers,omitempty"`
}

// GetBookInfo inspects the book directory layout and reports what is present
func GetBookInfo(ctx context.Context, req *mcp.CallToolRequest, input BookInfoInput) (*mcp.CallToolResult, BookInfoOutput, error) {
	dir := input.Dir
	resolvedFrom := "request"
	if dir == "" {
		var err error
		dir, resolvedFrom, err = workspace.ResolveBookDir()
		if err != nil {
			return nil, BookInfoOutput{}, fmt.Errorf("failed to resolve book directory: %w", err)
		}
	}

	info, err := workspace.Detect(dir, resolvedFrom)
	if err != nil {
		return nil, BookInfoOutput{}, fmt.Errorf("failed to inspect book directory: %w", err)
	}

	output := BookInfoOutput{Info: info}

	// The catalog tracks the resolved book directory only; duplicate data for
	// an arbitrary requested directory would be stale.
	if dir == bookDir {
		if cat, err := openCatalog(); err == nil {
			if dups, err := cat.DuplicateChecksums(); err == nil && len(dups) > 0 {
				output.DuplicateContent = dups
			}
			if dups, err := cat.DuplicateNumbers(); err == nil && len(dups) > 0 {
				output.DuplicateNumbers = dups
			}
			cat.Close()
		}
	}

	return nil, output, nil
}

// RegisterWorkspaceTools registers workspace inspection tools with the MCP server
func RegisterWorkspaceTools(server *mcp.Server) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_book_info",
			Description: "Inspect a book directory: which of index.md, book.json and book.md are present, how many chapters and image assets it holds, and suggestions for missing conventions.",
		},
		GetBookInfo,
	)
}
