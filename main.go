package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dartbook/mcp-server/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	version     = "0.3.0"
	serverName  = "dartbook-mcp"
	description = "MCP server for navigating, searching and linting a markdown programming textbook"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("%s version %s\n", serverName, version)
		os.Exit(0)
	}

	// Set up logging to stderr (MCP uses stdout for protocol)
	log.SetOutput(os.Stderr)
	log.Printf("%s v%s starting...", serverName, version)

	server := createMCPServer()

	if err := registerTools(server); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	log.Printf("✓ Server ready and waiting for connections")

	// Set up cleanup on shutdown
	defer func() {
		if err := tools.CloseBookSearch(); err != nil {
			log.Printf("Error closing book search: %v", err)
		}
	}()

	// Run server with stdio transport
	ctx := context.Background()
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// createMCPServer initializes the MCP server
func createMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil, // Default options
	)

	log.Printf("Server initialized: %s v%s", serverName, version)
	return server
}

// registerTools registers all MCP tools
func registerTools(server *mcp.Server) error {
	toolCount := 0

	// Chapter navigation (3 tools)
	if err := tools.RegisterChapterTools(server); err != nil {
		return fmt.Errorf("failed to register chapter tools: %w", err)
	}
	toolCount += 3

	// Content-integrity checks (3 tools)
	if err := tools.RegisterLintTools(server); err != nil {
		return fmt.Errorf("failed to register lint tools: %w", err)
	}
	toolCount += 3

	// Full-text search (2 tools). A missing book directory degrades
	// gracefully: search stays unavailable, the rest of the server works.
	if err := tools.RegisterBookSearchTools(server); err != nil {
		log.Printf("Warning: Failed to register book search tools: %v", err)
		log.Printf("Book search will be unavailable")
	} else {
		toolCount += 2
	}

	// Glossary (2 tools)
	if err := tools.RegisterGlossaryTools(server); err != nil {
		return fmt.Errorf("failed to register glossary tools: %w", err)
	}
	toolCount += 2

	// Authoring scaffolds (1 tool)
	if err := tools.RegisterTemplateTools(server); err != nil {
		return fmt.Errorf("failed to register template tools: %w", err)
	}
	toolCount++

	// Workspace inspection (1 tool)
	tools.RegisterWorkspaceTools(server)
	toolCount++

	log.Printf("✓ All tools registered: %d tools (chapters + lint + search + glossary + templates + workspace)", toolCount)
	return nil
}
