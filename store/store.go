// Package store is the SQLite persistence layer: the document registry,
// the recovered material rows and the extraction run history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Depfrz/PGN-DataLens/mto"
)

// Document represents a row in the documents table.
type Document struct {
	ID             string `json:"id"`
	Filename       string `json:"filename"`
	StoragePath    string `json:"storage_path"`
	ContentHash    string `json:"content_hash"`
	Status         string `json:"status"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// Document statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Material represents a row in the materials table. Position preserves
// the row order of the source table.
type Material struct {
	ID          int64    `json:"id"`
	DocumentID  string   `json:"document_id"`
	Position    int      `json:"position"`
	Description string   `json:"description"`
	Spec        *string  `json:"spec"`
	Size        *string  `json:"size"`
	Quantity    *float64 `json:"quantity"`
	Unit        *string  `json:"unit"`
	HeatNo      *string  `json:"heat_no"`
	TagNo       *string  `json:"tag_no"`
}

// ExtractionRun represents a row in the extraction_runs table. Warnings
// keep their kind and row reference so review tooling can group them.
type ExtractionRun struct {
	ID            int64         `json:"id"`
	DocumentID    string        `json:"document_id"`
	Method        string        `json:"method"`
	Status        string        `json:"status"`
	TextChars     int           `json:"text_chars"`
	Parser        string        `json:"parser,omitempty"`
	MaterialCount int           `json:"material_count"`
	Notes         string        `json:"notes,omitempty"`
	Warnings      []mto.Warning `json:"warnings,omitempty"`
	CreatedAt     string        `json:"created_at"`
}

// Store wraps the SQLite database for all datalens persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Document operations ---

// InsertDocument creates a document record.
func (s *Store) InsertDocument(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, storage_path, content_hash, status, document_type, document_number)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Filename, doc.StoragePath, doc.ContentHash,
		orDefault(doc.Status, StatusPending), orDefault(doc.DocumentType, "unknown"),
		nullable(doc.DocumentNumber))
	return err
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	doc := &Document{}
	var number sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, storage_path, content_hash, status, document_type, document_number, created_at, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&doc.ID, &doc.Filename, &doc.StoragePath, &doc.ContentHash,
		&doc.Status, &doc.DocumentType, &number, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.DocumentNumber = number.String
	return doc, nil
}

// GetDocumentByHash finds a document with the given content hash, so
// re-uploads of identical files can be detected.
func (s *Store) GetDocumentByHash(ctx context.Context, hash string) (*Document, error) {
	doc := &Document{}
	var number sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, storage_path, content_hash, status, document_type, document_number, created_at, updated_at
		FROM documents WHERE content_hash = ? LIMIT 1
	`, hash).Scan(&doc.ID, &doc.Filename, &doc.StoragePath, &doc.ContentHash,
		&doc.Status, &doc.DocumentType, &number, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.DocumentNumber = number.String
	return doc, nil
}

// ListDocuments returns all documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, storage_path, content_hash, status, document_type, document_number, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var number sql.NullString
		if err := rows.Scan(&d.ID, &d.Filename, &d.StoragePath, &d.ContentHash,
			&d.Status, &d.DocumentType, &number, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.DocumentNumber = number.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus updates just the status field.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	return err
}

// UpdateDocumentInfo sets the sniffed document type and number.
func (s *Store) UpdateDocumentInfo(ctx context.Context, id, docType, docNumber string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET document_type = ?, document_number = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		orDefault(docType, "unknown"), nullable(docNumber), id)
	return err
}

// DeleteDocument removes a document and cascades to its materials and runs.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM materials WHERE document_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM extraction_runs WHERE document_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
		return err
	})
}

// --- Material operations ---

// ReplaceMaterials atomically swaps a document's material rows for the
// given set. Delete-then-insert in one transaction keeps re-extraction
// idempotent: running the same document twice leaves one copy.
func (s *Store) ReplaceMaterials(ctx context.Context, documentID string, materials []Material) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM materials WHERE document_id = ?", documentID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO materials (document_id, position, description, spec, size, quantity, unit, heat_no, tag_no)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, m := range materials {
			if _, err := stmt.ExecContext(ctx,
				documentID, i+1, m.Description, m.Spec, m.Size, m.Quantity,
				m.Unit, m.HeatNo, m.TagNo); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListMaterials returns a document's materials in table row order.
func (s *Store) ListMaterials(ctx context.Context, documentID string) ([]Material, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, position, description, spec, size, quantity, unit, heat_no, tag_no
		FROM materials WHERE document_id = ? ORDER BY position
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Position, &m.Description,
			&m.Spec, &m.Size, &m.Quantity, &m.Unit, &m.HeatNo, &m.TagNo); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// GetMaterial retrieves a single material row by ID.
func (s *Store) GetMaterial(ctx context.Context, id int64) (*Material, error) {
	m := &Material{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, position, description, spec, size, quantity, unit, heat_no, tag_no
		FROM materials WHERE id = ?
	`, id).Scan(&m.ID, &m.DocumentID, &m.Position, &m.Description,
		&m.Spec, &m.Size, &m.Quantity, &m.Unit, &m.HeatNo, &m.TagNo)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMaterial overwrites the editable fields of a material row.
func (s *Store) UpdateMaterial(ctx context.Context, m Material) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE materials SET description = ?, spec = ?, size = ?, quantity = ?, unit = ?, heat_no = ?, tag_no = ?
		WHERE id = ?
	`, m.Description, m.Spec, m.Size, m.Quantity, m.Unit, m.HeatNo, m.TagNo, m.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMaterial removes a single material row.
func (s *Store) DeleteMaterial(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM materials WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- Extraction run operations ---

// InsertRun records an extraction attempt. Warnings are stored as JSON.
func (s *Store) InsertRun(ctx context.Context, run ExtractionRun) (int64, error) {
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return 0, fmt.Errorf("encoding warnings: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_runs (document_id, method, status, text_chars, parser, material_count, notes, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.DocumentID, run.Method, run.Status, run.TextChars,
		nullable(run.Parser), run.MaterialCount, nullable(run.Notes), string(warningsJSON))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRuns returns a document's extraction history, newest first.
func (s *Store) ListRuns(ctx context.Context, documentID string) ([]ExtractionRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, method, status, text_chars, parser, material_count, notes, warnings, created_at
		FROM extraction_runs WHERE document_id = ? ORDER BY created_at DESC, id DESC
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ExtractionRun
	for rows.Next() {
		var r ExtractionRun
		var parser, notes, warnings sql.NullString
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Method, &r.Status,
			&r.TextChars, &parser, &r.MaterialCount, &notes, &warnings, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Parser = parser.String
		r.Notes = notes.String
		if warnings.Valid && warnings.String != "" {
			if err := json.Unmarshal([]byte(warnings.String), &r.Warnings); err != nil {
				return nil, fmt.Errorf("decoding warnings for run %d: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Diagnostics ---

// DBStats holds counts of key database objects.
type DBStats struct {
	Documents int `json:"documents"`
	Materials int `json:"materials"`
	Runs      int `json:"runs"`
}

// Stats returns counts of documents, materials and extraction runs.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM materials", &stats.Materials},
		{"SELECT COUNT(*) FROM extraction_runs", &stats.Runs},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
