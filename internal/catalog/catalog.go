// Package catalog persists the chapter inventory in SQLite so rescans only
// touch files that actually changed. It also keeps the cross-reference graph
// between chapters for the lint tooling and the MCP chapter listing.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion tracks the catalog table layout, stored in PRAGMA user_version.
const SchemaVersion = 1

var ErrChapterNotFound = fmt.Errorf("chapter does not exist in catalog")

// Catalog wraps the SQLite connection holding the chapter inventory.
type Catalog struct {
	conn *sql.DB
}

// Chapter is one catalog row.
type Chapter struct {
	ID          int64
	Path        string // corpus-relative path
	Number      int
	Title       string
	Checksum    []byte
	LastUpdated int64 // unix seconds, file mtime at last sync
}

// Ref is a cross-reference edge between two cataloged chapters.
type Ref struct {
	SourceID int64
	TargetID int64
}

// Open creates or opens the catalog database at the given path and ensures
// the schema exists.
func Open(dbPath string) (*Catalog, error) {
	// Foreign keys are off by default in SQLite; the refs cascade needs them.
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	c := &Catalog{conn: conn}
	if err := c.setup(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set up catalog schema: %w", err)
	}
	return c, nil
}

func (c *Catalog) setup() error {
	tx, err := c.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	createChapters := `
	CREATE TABLE IF NOT EXISTS chapters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		number INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		checksum BLOB NOT NULL,
		last_updated INTEGER NOT NULL
	);
	`
	createRefs := `
	CREATE TABLE IF NOT EXISTS refs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER NOT NULL,
		target_id INTEGER NOT NULL,
		FOREIGN KEY (source_id) REFERENCES chapters(id) ON DELETE CASCADE,
		FOREIGN KEY (target_id) REFERENCES chapters(id) ON DELETE CASCADE
	);
	`
	if _, err := tx.Exec(createChapters); err != nil {
		return fmt.Errorf("failed to create chapters table: %w", err)
	}
	if _, err := tx.Exec(createRefs); err != nil {
		return fmt.Errorf("failed to create refs table: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Catalog) Close() error {
	return c.conn.Close()
}

// execTx runs a single statement inside its own transaction.
func (c *Catalog) execTx(query string, args ...interface{}) error {
	tx, err := c.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a chapter row by its corpus-relative path.
func (c *Catalog) Get(path string) (*Chapter, error) {
	var ch Chapter
	query := `SELECT id, path, number, title, checksum, last_updated FROM chapters WHERE path = ?`
	err := c.conn.QueryRow(query, path).
		Scan(&ch.ID, &ch.Path, &ch.Number, &ch.Title, &ch.Checksum, &ch.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrChapterNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to retrieve chapter: %w", err)
	}
	return &ch, nil
}

// Create inserts a new chapter row.
func (c *Catalog) Create(ch Chapter) error {
	return c.execTx(
		`INSERT INTO chapters (path, number, title, checksum, last_updated) VALUES (?, ?, ?, ?, ?)`,
		ch.Path, ch.Number, ch.Title, ch.Checksum, ch.LastUpdated,
	)
}

// Update rewrites an existing chapter row in place.
func (c *Catalog) Update(ch Chapter) error {
	return c.execTx(
		`UPDATE chapters SET path = ?, number = ?, title = ?, checksum = ?, last_updated = ? WHERE id = ?`,
		ch.Path, ch.Number, ch.Title, ch.Checksum, ch.LastUpdated, ch.ID,
	)
}

// Delete removes a chapter row (and its refs, via cascade).
func (c *Catalog) Delete(path string) error {
	return c.execTx(`DELETE FROM chapters WHERE path = ?`, path)
}

// CreateRef records a cross-reference between two cataloged chapters.
func (c *Catalog) CreateRef(sourceID, targetID int64) error {
	return c.execTx(`INSERT INTO refs (source_id, target_id) VALUES (?, ?)`, sourceID, targetID)
}

// DeleteRefs drops all outgoing references of a chapter, ahead of re-indexing it.
func (c *Catalog) DeleteRefs(sourceID int64) error {
	return c.execTx(`DELETE FROM refs WHERE source_id = ?`, sourceID)
}

// All returns every cataloged chapter ordered by number, then path.
func (c *Catalog) All() ([]Chapter, error) {
	rows, err := c.conn.Query(
		`SELECT id, path, number, title, checksum, last_updated FROM chapters ORDER BY number, path`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var chapters []Chapter
	for rows.Next() {
		var ch Chapter
		if err := rows.Scan(&ch.ID, &ch.Path, &ch.Number, &ch.Title, &ch.Checksum, &ch.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan chapter row: %w", err)
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over chapter rows: %w", err)
	}
	return chapters, nil
}

// ForwardRefs returns the paths a chapter links to.
func (c *Catalog) ForwardRefs(sourcePath string) ([]string, error) {
	query := `
		SELECT c2.path
		FROM refs r
		JOIN chapters c1 ON r.source_id = c1.id
		JOIN chapters c2 ON r.target_id = c2.id
		WHERE c1.path = ?`
	return c.pathsFromQuery(query, sourcePath)
}

// BackRefs returns the paths of chapters linking to the given one.
func (c *Catalog) BackRefs(targetPath string) ([]string, error) {
	query := `
		SELECT c1.path
		FROM refs r
		JOIN chapters c1 ON r.source_id = c1.id
		JOIN chapters c2 ON r.target_id = c2.id
		WHERE c2.path = ?`
	return c.pathsFromQuery(query, targetPath)
}

// DuplicateChecksums returns groups of paths sharing identical content.
func (c *Catalog) DuplicateChecksums() (map[string][]string, error) {
	rows, err := c.conn.Query(
		`SELECT hex(checksum), path FROM chapters ORDER BY hex(checksum), path`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	all := make(map[string][]string)
	for rows.Next() {
		var sum, path string
		if err := rows.Scan(&sum, &path); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		all[sum] = append(all[sum], path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	dups := make(map[string][]string)
	for sum, paths := range all {
		if len(paths) > 1 {
			dups[sum] = paths
		}
	}
	return dups, nil
}

// DuplicateNumbers returns chapter numbers claimed by more than one path.
func (c *Catalog) DuplicateNumbers() (map[int][]string, error) {
	rows, err := c.conn.Query(
		`SELECT number, path FROM chapters WHERE number > 0 ORDER BY number, path`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	all := make(map[int][]string)
	for rows.Next() {
		var number int
		var path string
		if err := rows.Scan(&number, &path); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		all[number] = append(all[number], path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	dups := make(map[int][]string)
	for number, paths := range all {
		if len(paths) > 1 {
			dups[number] = paths
		}
	}
	return dups, nil
}

func (c *Catalog) pathsFromQuery(query string, args ...interface{}) ([]string, error) {
	rows, err := c.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return paths, nil
}
