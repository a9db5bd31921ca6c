package tools

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/dartbook/mcp-server/internal/book"
	"github.com/dartbook/mcp-server/internal/catalog"
	"github.com/dartbook/mcp-server/internal/indexing"
	"github.com/dartbook/mcp-server/internal/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	maxResults    = 10
	indexDir      = "search/index"
	catalogFile   = "catalog/book.db"
	lockFile      = "search/index.lock"
	lockTimeout   = 5 * time.Second // Max time to wait for lock
	lockRetryWait = 500 * time.Millisecond

	indexVersionFile = "search/.index_version"
)

var (
	dataDir string // data directory for the catalog and search index
	bookDir string // resolved book directory, set during initialization
)

func init() {
	// Strategy 1: user home directory (standalone installation).
	// ~/.dartbook-mcp/ on Unix, C:\Users\...\dartbook-mcp\ on Windows.
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userDataDir := filepath.Join(homeDir, ".dartbook-mcp")

		if info, err := os.Stat(userDataDir); err == nil && info.IsDir() {
			dataDir = userDataDir
			log.Printf("Data directory: %s (user home)", dataDir)
			return
		}
		if err := os.MkdirAll(userDataDir, 0755); err == nil {
			dataDir = userDataDir
			log.Printf("Data directory created: %s", dataDir)
			os.MkdirAll(filepath.Join(dataDir, "catalog"), 0755)
			os.MkdirAll(filepath.Join(dataDir, "search"), 0755)
			return
		}
		log.Printf("Warning: Could not create user data directory at %s: %v", userDataDir, err)
	} else {
		log.Printf("Warning: Could not determine user home directory: %v", err)
	}

	// Strategy 2: data directory next to the binary (portable installation)
	if execPath, err := os.Executable(); err == nil {
		relativeDataDir := filepath.Join(filepath.Dir(execPath), "data")
		if info, err := os.Stat(relativeDataDir); err == nil && info.IsDir() {
			dataDir, _ = filepath.Abs(relativeDataDir)
			log.Printf("Data directory: %s (relative to binary)", dataDir)
			return
		}
	}

	// Strategy 3: last resort fallback to the working directory
	dataDir = filepath.Join(".", "data")
	log.Printf("Data directory (fallback): %s", dataDir)
	os.MkdirAll(filepath.Join(dataDir, "catalog"), 0755)
	os.MkdirAll(filepath.Join(dataDir, "search"), 0755)
}

// isProcessRunning is implemented in platform-specific files:
// - locks_unix.go for Unix/Linux/macOS
// - locks_windows.go for Windows

// cleanStaleLock removes the lock file if the owning process is dead
func cleanStaleLock() error {
	lockPath := filepath.Join(dataDir, lockFile)

	data, err := os.ReadFile(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No lock file, nothing to clean
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		// Corrupted lock file, remove it
		log.Printf("Warning: Corrupted lock file (invalid PID), removing...")
		return os.Remove(lockPath)
	}

	if isProcessRunning(pid) {
		return fmt.Errorf("lock held by running process %d", pid)
	}

	log.Printf("Stale lock detected (PID %d not running), cleaning...", pid)
	return os.Remove(lockPath)
}

// acquireLock attempts to acquire the index lock with retry
func acquireLock() error {
	lockPath := filepath.Join(dataDir, lockFile)
	ourPID := os.Getpid()

	// Re-entrant for this process
	if data, err := os.ReadFile(lockPath); err == nil {
		if pidStr := strings.TrimSpace(string(data)); pidStr != "" {
			if pid, err := strconv.Atoi(pidStr); err == nil && pid == ourPID {
				return nil
			}
		}
	}

	startTime := time.Now()
	for {
		if err := cleanStaleLock(); err != nil {
			// Lock is held by an active process
			elapsed := time.Since(startTime)
			if elapsed >= lockTimeout {
				return fmt.Errorf("timeout waiting for index lock after %v: %w", elapsed, err)
			}
			log.Printf("Index locked by another process, waiting... (%v elapsed)", elapsed.Round(100*time.Millisecond))
			time.Sleep(lockRetryWait)
			continue
		}

		if err := os.WriteFile(lockPath, []byte(strconv.Itoa(ourPID)), 0644); err != nil {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		log.Printf("Index lock acquired (PID %d)", ourPID)
		return nil
	}
}

// releaseLock releases the index lock
func releaseLock() error {
	lockPath := filepath.Join(dataDir, lockFile)

	// Verify we own the lock before removing
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Lock already removed
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && pid != os.Getpid() {
		log.Printf("Warning: Lock file contains different PID (%d vs %d), not removing", pid, os.Getpid())
		return nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// SearchResult represents a search result with score
type SearchResult struct {
	Chunk indexing.BookChunk `json:"chunk"`
	Score float64            `json:"score"`
}

// SearchBookInput defines input for the search_book tool
type SearchBookInput struct {
	Query      string `json:"query" jsonschema:"Search query over the book's chapters and exercises"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10)"`
}

// SearchBookOutput defines output for the search_book tool
type SearchBookOutput struct {
	Results   []SearchResult `json:"results"`
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
}

// RefreshBookIndexInput defines input for the refresh_book_index tool
type RefreshBookIndexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"Force a full re-index even when no chapter changed (optional, defaults to false)"`
}

// RefreshBookIndexOutput defines output for the refresh_book_index tool
type RefreshBookIndexOutput struct {
	Updated         bool   `json:"updated"`
	ChaptersChanged int    `json:"chapters_changed"`
	ChaptersRemoved int    `json:"chapters_removed"`
	ChunksIndexed   int    `json:"chunks_indexed"`
	Message         string `json:"message"`
}

// indexHolder manages concurrent access to the bleve book index
type indexHolder struct {
	// current holds the active index pointer (atomic access for lock-free reads)
	current atomic.Pointer[Index]

	// refreshMu prevents concurrent refresh operations.
	// NOT used for searches - they are lock-free via the atomic pointer.
	refreshMu sync.Mutex

	// wg tracks in-flight search operations for graceful cleanup of old indexes
	wg sync.WaitGroup
}

var indexMgr *indexHolder

// InitializeBookSearch resolves the book directory, opens the previous index
// when its schema version still matches, and builds a fresh one otherwise.
func InitializeBookSearch() error {
	startTime := time.Now()
	log.Printf("Initializing book search...")

	if indexMgr == nil {
		indexMgr = &indexHolder{}
	}

	dir, resolvedFrom, err := workspace.ResolveBookDir()
	if err != nil {
		return err
	}
	bookDir = dir
	log.Printf("Book directory: %s (%s)", bookDir, resolvedFrom)

	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}

	indexPath := filepath.Join(dataDir, indexDir)
	if _, err := os.Stat(indexPath); err == nil {
		if getIndexVersion() != indexing.IndexSchemaVersion {
			log.Printf("Index schema version mismatch (have: v%d, want: v%d), invalidating old index...",
				getIndexVersion(), indexing.IndexSchemaVersion)
			os.RemoveAll(indexPath)
			os.Remove(filepath.Join(dataDir, indexVersionFile))
		} else {
			index, err := bleve.Open(indexPath)
			if err == nil {
				wrapped := NewBleveIndexWrapper(index)
				indexMgr.current.Store(&wrapped)
				count, _ := wrapped.DocCount()
				log.Printf("Book search initialized (%d chunks, existing index v%d) in %v",
					count, indexing.IndexSchemaVersion, time.Since(startTime).Round(time.Millisecond))
				return nil
			}
			log.Printf("Warning: Local index corrupted, removing...")
			os.RemoveAll(indexPath)
			os.Remove(filepath.Join(dataDir, indexVersionFile))
		}
	}

	// No usable index: build one from the book directory.
	if err := refreshBookIndex(true); err != nil {
		return fmt.Errorf("failed to build book index: %w", err)
	}

	if ptr := indexMgr.current.Load(); ptr != nil {
		count, _ := (*ptr).DocCount()
		log.Printf("Book search initialized (%d chunks, fresh index) in %v",
			count, time.Since(startTime).Round(time.Millisecond))
	}
	return nil
}

// getIndexVersion reads the current index schema version from disk
func getIndexVersion() int {
	data, err := os.ReadFile(filepath.Join(dataDir, indexVersionFile))
	if err != nil {
		return 0 // No version file = v0 (old format)
	}
	version := 0
	fmt.Sscanf(string(data), "%d", &version)
	return version
}

// writeIndexVersion writes the current index schema version to disk
func writeIndexVersion() error {
	versionPath := filepath.Join(dataDir, indexVersionFile)
	os.MkdirAll(filepath.Dir(versionPath), 0755)
	return os.WriteFile(versionPath, []byte(fmt.Sprintf("%d", indexing.IndexSchemaVersion)), 0644)
}

// indexChunks builds a new bleve index in a temp location, swaps it into place
// atomically, and hands the new index to searchers via the atomic pointer.
func indexChunks(chunks []indexing.BookChunk) error {
	startTime := time.Now()
	indexPath := filepath.Join(dataDir, indexDir)
	tempIndexPath := filepath.Join(dataDir, indexDir+".tmp")

	// Clean up any leftover temp index from a previous crash
	os.RemoveAll(tempIndexPath)

	if err := os.MkdirAll(filepath.Dir(tempIndexPath), 0755); err != nil {
		return fmt.Errorf("failed to create temp index directory: %w", err)
	}

	log.Printf("Creating new index with %d chunks in temp location...", len(chunks))
	mapping := bleve.NewIndexMapping()
	newIndex, err := bleve.New(tempIndexPath, mapping)
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}

	batch := newIndex.NewBatch()
	for i, chunk := range chunks {
		if err := batch.Index(chunk.ID, chunk); err != nil {
			newIndex.Close()
			os.RemoveAll(tempIndexPath)
			return fmt.Errorf("failed to add chunk %s to batch: %w", chunk.ID, err)
		}
		// Submit batch every 100 documents
		if i%100 == 0 && i > 0 {
			if err := newIndex.Batch(batch); err != nil {
				newIndex.Close()
				os.RemoveAll(tempIndexPath)
				return fmt.Errorf("failed to index batch: %w", err)
			}
			batch = newIndex.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := newIndex.Batch(batch); err != nil {
			newIndex.Close()
			os.RemoveAll(tempIndexPath)
			return fmt.Errorf("failed to index final batch: %w", err)
		}
	}

	if err := newIndex.Close(); err != nil {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to close temp index: %w", err)
	}

	// Atomic filesystem swap: rename temp to final location
	if err := os.RemoveAll(indexPath); err != nil && !os.IsNotExist(err) {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.Rename(tempIndexPath, indexPath); err != nil {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to rename temp index: %w", err)
	}

	finalIndex, err := bleve.Open(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open new index: %w", err)
	}
	wrapped := NewBleveIndexWrapper(finalIndex)

	// Replace the global index pointer; searches pick up the new index lock-free
	oldIndexPtr := indexMgr.current.Swap(&wrapped)

	// Graceful cleanup of the old index in the background
	go func(oldPtr *Index) {
		if oldPtr == nil {
			return
		}
		// Wait for in-flight searches on the old index to complete
		indexMgr.wg.Wait()
		if err := (*oldPtr).Close(); err != nil {
			log.Printf("Warning: Error closing old index: %v", err)
		}
	}(oldIndexPtr)

	if err := writeIndexVersion(); err != nil {
		log.Printf("Warning: Failed to write index version: %v", err)
	}

	log.Printf("Index swap completed in %v, searches now using new index",
		time.Since(startTime).Round(time.Millisecond))
	return nil
}

// refreshBookIndex reconciles the catalog against the book directory and
// rebuilds the search index when chapters changed (or force is set).
func refreshBookIndex(force bool) error {
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire lock for refresh: %w", err)
	}
	// Lock is released by CloseBookSearch() when the process exits.

	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	result, err := cat.Sync(bookDir)
	if err != nil {
		return fmt.Errorf("catalog sync failed: %w", err)
	}
	log.Printf("Catalog sync: %d changed, %d removed, %d total",
		len(result.Changed), len(result.Removed), result.Total)

	if !force && !result.Dirty() {
		log.Printf("Book is unchanged, skipping re-index")
		return nil
	}

	b, err := book.Load(bookDir)
	if err != nil {
		return fmt.Errorf("failed to load book: %w", err)
	}
	chunks := indexing.ChunkBook(b)
	log.Printf("Chunked %d chapters into %d search chunks", len(b.Chapters), len(chunks))

	if err := indexChunks(chunks); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

// openCatalog opens the chapter catalog under the data directory.
func openCatalog() (*catalog.Catalog, error) {
	path := filepath.Join(dataDir, catalogFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	cat, err := catalog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return cat, nil
}

// SearchBook searches through the book's chapters, exercises and solutions
func SearchBook(ctx context.Context, req *mcp.CallToolRequest, input SearchBookInput) (*mcp.CallToolResult, SearchBookOutput, error) {
	// Track in-flight searches for graceful cleanup (MUST be before Load)
	indexMgr.wg.Add(1)
	defer indexMgr.wg.Done()

	// Get current index atomically (lock-free read)
	indexPtr := indexMgr.current.Load()

	if indexPtr == nil {
		log.Printf("Book index not initialized, initializing now...")
		if err := InitializeBookSearch(); err != nil {
			return nil, SearchBookOutput{}, fmt.Errorf("failed to initialize book index: %w", err)
		}
		indexPtr = indexMgr.current.Load()
		if indexPtr == nil {
			return nil, SearchBookOutput{}, fmt.Errorf("index still nil after initialization")
		}
	}
	index := *indexPtr

	limit := input.MaxResults
	if limit == 0 || limit > 20 {
		limit = maxResults
	}

	query := bleve.NewMatchQuery(input.Query)
	search := bleve.NewSearchRequest(query)
	search.Size = limit
	search.Fields = []string{"*"}

	searchResults, err := index.Search(search)
	if err != nil {
		return nil, SearchBookOutput{}, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		results = append(results, SearchResult{
			Chunk: chunkFromFields(hit.ID, hit.Fields),
			Score: hit.Score,
		})
	}

	output := SearchBookOutput{
		Results:   results,
		Query:     input.Query,
		TotalHits: int(searchResults.Total),
	}
	return nil, output, nil
}

// chunkFromFields rebuilds a BookChunk from stored bleve hit fields.
func chunkFromFields(id string, fields map[string]interface{}) indexing.BookChunk {
	chunk := indexing.BookChunk{ID: id}

	if path, ok := fields["path"].(string); ok {
		chunk.Path = path
	}
	if chapter, ok := fields["chapter"].(string); ok {
		chunk.Chapter = chapter
	}
	if section, ok := fields["section"].(string); ok {
		chunk.Section = section
	}
	if difficulty, ok := fields["difficulty"].(string); ok {
		chunk.Difficulty = difficulty
	}
	if content, ok := fields["content"].(string); ok {
		chunk.Content = content
	}
	if breadcrumb, ok := fields["breadcrumb"].(string); ok {
		chunk.Breadcrumb = breadcrumb
	}
	if keywords, ok := fields["keywords"].([]interface{}); ok {
		chunk.Keywords = make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if kwStr, ok := kw.(string); ok {
				chunk.Keywords = append(chunk.Keywords, kwStr)
			}
		}
	}
	if tokenCount, ok := fields["token_count"].(float64); ok {
		chunk.TokenCount = int(tokenCount)
	}
	return chunk
}

// RefreshBookIndex rescans the book directory and re-indexes changed chapters
func RefreshBookIndex(ctx context.Context, req *mcp.CallToolRequest, input RefreshBookIndexInput) (*mcp.CallToolResult, RefreshBookIndexOutput, error) {
	output := RefreshBookIndexOutput{}

	if bookDir == "" {
		if err := InitializeBookSearch(); err != nil {
			return nil, output, fmt.Errorf("book directory not resolved: %w", err)
		}
	}

	cat, err := openCatalog()
	if err != nil {
		return nil, output, err
	}
	result, err := cat.Sync(bookDir)
	cat.Close()
	if err != nil {
		return nil, output, fmt.Errorf("catalog sync failed: %w", err)
	}
	output.ChaptersChanged = len(result.Changed)
	output.ChaptersRemoved = len(result.Removed)

	if !input.Force && !result.Dirty() {
		output.Message = "Book is unchanged, index is up to date"
		return nil, output, nil
	}

	if err := refreshBookIndex(true); err != nil {
		return nil, output, fmt.Errorf("refresh failed: %w", err)
	}

	if indexPtr := indexMgr.current.Load(); indexPtr != nil {
		count, _ := (*indexPtr).DocCount()
		output.ChunksIndexed = int(count)
	}
	output.Updated = true
	output.Message = fmt.Sprintf("Book re-indexed, %d chunks in the index", output.ChunksIndexed)
	return nil, output, nil
}

// RegisterBookSearchTools registers the search tools with the MCP server
func RegisterBookSearchTools(server *mcp.Server) error {
	if err := InitializeBookSearch(); err != nil {
		log.Printf("Warning: Book search initialization failed: %v", err)
		log.Printf("Book search will attempt to initialize on first use")
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_book",
			Description: "Full-text search over the book's chapters, exercises and solutions. Returns the top matching chunks with chapter/section context and difficulty labels.",
		},
		SearchBook,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_book_index",
			Description: "Rescan the book directory and rebuild the search index when chapters changed (set force to rebuild unconditionally).",
		},
		RefreshBookIndex,
	)

	return nil
}

// CloseBookSearch closes the search index and releases the inter-process lock
func CloseBookSearch() error {
	var closeErr error

	if indexMgr != nil {
		// Atomically swap the index to nil (prevents new searches)
		indexPtr := indexMgr.current.Swap(nil)
		if indexPtr != nil {
			// Wait for in-flight searches before closing
			indexMgr.wg.Wait()
			closeErr = (*indexPtr).Close()
			if closeErr != nil {
				log.Printf("Error closing book index: %v", closeErr)
			}
		}
	}

	// Always attempt to release the inter-process lock, even if close failed
	if err := releaseLock(); err != nil {
		log.Printf("Error releasing lock: %v", err)
		if closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}
