package tools

import (
	"embed"
	"io/fs"
)

// Embed static data files into the binary
// This ensures the MCP server works standalone without requiring
// external data files to be present on the filesystem.
//
// Embedded files:
// - Book manifest JSON Schema (required for manifest validation)
// - Glossary of the book's recurring terms (term lookup tool)

//go:embed data/schema/book.schema.json
//go:embed data/glossary/glossary.json
var embeddedFS embed.FS

// embeddedDataProvider implements DataProvider using embed.FS.
// This is the production implementation that uses actual embedded files.
type embeddedDataProvider struct {
	fs embed.FS
}

// NewEmbeddedDataProvider creates a production DataProvider that uses embedded files.
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS}
}

// ReadFile reads the named file from the embedded filesystem.
func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(name)
}

// ReadDir reads the named directory from the embedded filesystem.
func (p *embeddedDataProvider) ReadDir(name string) ([]fs.DirEntry, error) {
	return p.fs.ReadDir(name)
}

// Default provider used by package-level functions (swapped in tests)
var defaultDataProvider DataProvider = NewEmbeddedDataProvider()
