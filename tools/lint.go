package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dartbook/mcp-server/internal/book"
	"github.com/dartbook/mcp-server/internal/lint"
	"github.com/dartbook/mcp-server/internal/manifest"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const manifestSchemaPath = "data/schema/book.schema.json"

// LintBookInput defines input for the lint_book tool
type LintBookInput struct {
	Severity string `json:"severity,omitempty" jsonschema:"Restrict output to one severity: error or warning (optional, defaults to both)"`
}

// LintBookOutput defines output for the lint_book tool
type LintBookOutput struct {
	Clean    bool         `json:"clean"`
	Errors   int          `json:"errors"`
	Warnings int          `json:"warnings"`
	Issues   []lint.Issue `json:"issues"`
	Summary  string       `json:"summary"`
}

// ValidateChapterInput defines input for the validate_chapter tool
type ValidateChapterInput struct {
	Path     string `json:"path,omitempty" jsonschema:"Chapter path relative to the book root"`
	Number   int    `json:"number,omitempty" jsonschema:"Chapter number; used when path is not set"`
	Markdown string `json:"markdown,omitempty" jsonschema:"Literal chapter markdown to validate instead of a file from the book"`
}

// ValidateChapterOutput defines output for the validate_chapter tool
type ValidateChapterOutput struct {
	Path     string       `json:"path"`
	Valid    bool         `json:"valid"`
	Errors   int          `json:"errors"`
	Warnings int          `json:"warnings"`
	Issues   []lint.Issue `json:"issues"`
}

// ValidateManifestInput defines input for the validate_manifest tool
type ValidateManifestInput struct {
	Manifest string `json:"manifest,omitempty" jsonschema:"Manifest JSON to validate; when empty the book.json next to the book is read"`
}

// ValidateManifestOutput defines output for the validate_manifest tool
type ValidateManifestOutput struct {
	Valid    bool                       `json:"valid"`
	Errors   []manifest.ValidationError `json:"errors,omitempty"`
	Chapters int                        `json:"chapters"`
	Message  string                     `json:"message"`
}

// LintBook runs every content-integrity check over the whole book
func LintBook(ctx context.Context, req *mcp.CallToolRequest, input LintBookInput) (*mcp.CallToolResult, LintBookOutput, error) {
	b, err := loadBook()
	if err != nil {
		return nil, LintBookOutput{}, err
	}

	report := lint.Run(b)

	issues := report.Issues
	switch input.Severity {
	case "":
		// keep both
	case string(lint.SeverityError):
		issues = report.Errors()
	case string(lint.SeverityWarning):
		issues = report.Warnings()
	default:
		return nil, LintBookOutput{}, fmt.Errorf("unknown severity %q (want error or warning)", input.Severity)
	}

	output := LintBookOutput{
		Clean:    report.Clean(),
		Errors:   len(report.Errors()),
		Warnings: len(report.Warnings()),
		Issues:   issues,
		Summary:  lint.Summary(report),
	}
	return nil, output, nil
}

// ValidateChapter runs the per-chapter checks against a single chapter,
// either one from the book or literal markdown supplied in the request
func ValidateChapter(ctx context.Context, req *mcp.CallToolRequest, input ValidateChapterInput) (*mcp.CallToolResult, ValidateChapterOutput, error) {
	var ch *book.Chapter
	if input.Markdown != "" {
		ch = book.ParseChapter(input.Markdown)
		ch.Path = input.Path
		if ch.Path == "" {
			ch.Path = "(inline)"
		}
	} else {
		b, err := loadBook()
		if err != nil {
			return nil, ValidateChapterOutput{}, err
		}
		ch, err = findChapter(b, input.Path, input.Number)
		if err != nil {
			return nil, ValidateChapterOutput{}, err
		}
	}

	report := &lint.Report{}
	lint.CheckChapter(report, ch)

	output := ValidateChapterOutput{
		Path:     ch.Path,
		Valid:    report.Clean(),
		Errors:   len(report.Errors()),
		Warnings: len(report.Warnings()),
		Issues:   report.Issues,
	}
	return nil, output, nil
}

// ValidateManifest validates a book manifest against the embedded JSON schema
func ValidateManifest(ctx context.Context, req *mcp.CallToolRequest, input ValidateManifestInput) (*mcp.CallToolResult, ValidateManifestOutput, error) {
	schemaData, err := defaultDataProvider.ReadFile(manifestSchemaPath)
	if err != nil {
		return nil, ValidateManifestOutput{}, fmt.Errorf("failed to read manifest schema: %w", err)
	}

	data := []byte(input.Manifest)
	if input.Manifest == "" {
		if bookDir == "" {
			if err := InitializeBookSearch(); err != nil {
				return nil, ValidateManifestOutput{}, fmt.Errorf("book directory not resolved: %w", err)
			}
		}
		path := filepath.Join(bookDir, manifest.Filename)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, ValidateManifestOutput{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	result, err := manifest.Validate(data, schemaData)
	if err != nil {
		return nil, ValidateManifestOutput{}, fmt.Errorf("manifest validation failed: %w", err)
	}

	output := ValidateManifestOutput{
		Valid:  result.Valid,
		Errors: result.Errors,
	}
	if result.Manifest != nil {
		output.Chapters = len(result.Manifest.Chapters)
	}
	if result.Valid {
		output.Message = "Manifest is valid"
	} else {
		output.Message = fmt.Sprintf("Manifest has %d validation error(s)", len(result.Errors))
	}
	return nil, output, nil
}

// RegisterLintTools registers the content-integrity tools with the MCP server
func RegisterLintTools(server *mcp.Server) error {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "lint_book",
			Description: "Run all content-integrity checks over the book: canonical sections, exercise/solution pairing, cross-references, duplicate chapters and code fences.",
		},
		LintBook,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_chapter",
			Description: "Run the per-chapter structure checks (sections, pairing, code fences) against one chapter of the book, or against literal markdown.",
		},
		ValidateChapter,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_manifest",
			Description: "Validate a book.json manifest against the book manifest JSON schema.",
		},
		ValidateManifest,
	)

	return nil
}
