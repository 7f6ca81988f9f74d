package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/slmtnm/s4admin/internal/mediaapi"
)

// Catalog records uploaded media in SQLite.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens or creates the catalog at path. ":memory:" gives a
// private in-memory database.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetConnMaxLifetime(time.Hour)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		label TEXT NOT NULL,
		file_name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		uploaded_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Record inserts or replaces the row for m.
func (c *Catalog) Record(ctx context.Context, m mediaapi.Media, size int64) error {
	uploadedAt := time.Now().UTC()
	if m.UploadedAt != nil {
		uploadedAt = *m.UploadedAt
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO media (id, url, label, file_name, content_type, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.URL, m.Label, m.FileName, m.ContentType, size, uploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record media: %w", err)
	}
	return nil
}

// Get returns the catalogued media with id.
func (c *Catalog) Get(ctx context.Context, id string) (*mediaapi.Media, error) {
	var m mediaapi.Media
	var uploadedAt time.Time
	err := c.db.QueryRowContext(ctx, `
		SELECT id, url, label, file_name, content_type, uploaded_at
		FROM media WHERE id = ?`, id,
	).Scan(&m.ID, &m.URL, &m.Label, &m.FileName, &m.ContentType, &uploadedAt)
	if err != nil {
		return nil, err
	}
	m.UploadedAt = &uploadedAt
	return &m, nil
}

// Count returns the number of catalogued media.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media").Scan(&n)
	return n, err
}

// Ping checks the database connection.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
