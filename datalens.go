// Package datalens recovers structured material take-off (MTO) data from
// engineering PDFs: piping isometrics, MTO sheets and bills of material,
// scanned or born-digital. Documents are registered into a SQLite-backed
// store, extracted through a layered text/OCR/table pipeline, and the
// resulting material rows can be reviewed, edited and exported to XLSX.
package datalens

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/Depfrz/PGN-DataLens/export"
	"github.com/Depfrz/PGN-DataLens/ocr"
	"github.com/Depfrz/PGN-DataLens/pdftext"
	"github.com/Depfrz/PGN-DataLens/store"
)

// Engine is the top-level entry point tying together document storage,
// the extraction pipeline and persistence.
type Engine struct {
	cfg     Config
	store   *store.Store
	ocr     *ocr.Engine
	blobDir string
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates an Engine, opening (or creating) the database and blob
// directory.
func New(cfg Config) (*Engine, error) {
	if cfg.MaxRows < 0 || cfg.MinTextChars < 0 {
		return nil, fmt.Errorf("%w: negative limits", ErrInvalidConfig)
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = DefaultConfig().MaxRows
	}
	if cfg.MinTextChars == 0 {
		cfg.MinTextChars = DefaultConfig().MinTextChars
	}

	st, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, err
	}

	blobDir := cfg.resolveBlobDir()
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		st.Close()
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		store:    st,
		ocr:      ocr.New(cfg.OCR),
		blobDir:  blobDir,
		logger:   slog.Default(),
		inFlight: make(map[string]struct{}),
	}, nil
}

// Close releases the underlying database.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store exposes the persistence layer for advanced queries.
func (e *Engine) Store() *store.Store {
	return e.store
}

// RegisterDocument stores uploaded PDF bytes and creates the document
// record. Re-uploading identical content returns the existing document
// instead of creating a duplicate.
func (e *Engine) RegisterDocument(ctx context.Context, filename string, data []byte) (*store.Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if err := pdftext.Validate(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if existing, err := e.store.GetDocumentByHash(ctx, hash); err == nil {
		e.logger.Info("document already registered", "id", existing.ID, "filename", filename)
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	id := uuid.NewString()
	path := filepath.Join(e.blobDir, id+".pdf")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	doc := store.Document{
		ID:          id,
		Filename:    filename,
		StoragePath: path,
		ContentHash: hash,
		Status:      store.StatusPending,
	}
	if err := e.store.InsertDocument(ctx, doc); err != nil {
		os.Remove(path)
		return nil, err
	}

	e.logger.Info("document registered", "id", id, "filename", filename, "bytes", len(data))
	created, err := e.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Extract runs the extraction pipeline over a registered document and
// replaces its material rows with the result. Only one extraction per
// document may run at a time; a second call while one is in flight
// returns ErrExtractionInFlight rather than queueing.
func (e *Engine) Extract(ctx context.Context, documentID string) (*ExtractionResult, error) {
	if err := e.acquire(documentID); err != nil {
		return nil, err
	}
	defer e.release(documentID)

	doc, err := e.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("reading stored document: %w", err)
	}

	if err := e.store.UpdateDocumentStatus(ctx, documentID, store.StatusProcessing); err != nil {
		return nil, err
	}

	res, err := runPipeline(ctx, data, e.pipelineDeps())
	if err != nil {
		if serr := e.store.UpdateDocumentStatus(ctx, documentID, store.StatusFailed); serr != nil {
			e.logger.Error("updating document status", "id", documentID, "error", serr)
		}
		return nil, err
	}

	rows := make([]store.Material, len(res.Materials))
	for i, m := range res.Materials {
		rows[i] = store.Material{
			DocumentID:  documentID,
			Position:    i + 1,
			Description: m.Description,
			Spec:        m.Spec,
			Size:        m.Size,
			Quantity:    m.Quantity,
			Unit:        m.Unit,
		}
	}
	if err := e.store.ReplaceMaterials(ctx, documentID, rows); err != nil {
		return nil, err
	}

	if _, err := e.store.InsertRun(ctx, store.ExtractionRun{
		DocumentID:    documentID,
		Method:        res.Method,
		Status:        res.Status,
		TextChars:     res.TextChars,
		Parser:        res.Parser,
		MaterialCount: len(res.Materials),
		Notes:         joinNotes(res.Notes),
		Warnings:      res.Warnings,
	}); err != nil {
		return nil, err
	}

	if err := e.store.UpdateDocumentInfo(ctx, documentID, res.DocInfo.Type, res.DocInfo.Number); err != nil {
		return nil, err
	}

	status := store.StatusCompleted
	if res.Status != RunSuccess {
		status = store.StatusFailed
	}
	if err := e.store.UpdateDocumentStatus(ctx, documentID, status); err != nil {
		return nil, err
	}

	e.logger.Info("extraction finished",
		"id", documentID,
		"method", res.Method,
		"parser", res.Parser,
		"status", res.Status,
		"materials", len(res.Materials),
		"text_chars", res.TextChars)
	return res, nil
}

// ExtractBytes runs the pipeline over raw PDF bytes without touching the
// store.
func (e *Engine) ExtractBytes(ctx context.Context, data []byte) (*ExtractionResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	return runPipeline(ctx, data, e.pipelineDeps())
}

// ExtractPDF runs the extraction pipeline over raw PDF bytes with no
// database or blob storage involved. One-shot callers (the CLI) use this
// instead of constructing a full Engine.
func ExtractPDF(ctx context.Context, data []byte, cfg Config) (*ExtractionResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = DefaultConfig().MaxRows
	}
	if cfg.MinTextChars == 0 {
		cfg.MinTextChars = DefaultConfig().MinTextChars
	}
	deps := pipelineDeps{
		validate:     pdftext.Validate,
		text:         pdftext.ExtractText,
		words:        pdftext.ExtractWords,
		ocr:          ocr.New(cfg.OCR),
		maxRows:      cfg.MaxRows,
		minTextChars: cfg.MinTextChars,
	}
	return runPipeline(ctx, data, deps)
}

// GetDocument retrieves a document record.
func (e *Engine) GetDocument(ctx context.Context, documentID string) (*store.Document, error) {
	return e.getDocument(ctx, documentID)
}

// ListDocuments returns all registered documents, newest first.
func (e *Engine) ListDocuments(ctx context.Context) ([]store.Document, error) {
	return e.store.ListDocuments(ctx)
}

// DeleteDocument removes a document, its materials, its runs and its
// stored bytes.
func (e *Engine) DeleteDocument(ctx context.Context, documentID string) error {
	doc, err := e.getDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := e.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("removing stored document", "path", doc.StoragePath, "error", err)
	}
	return nil
}

// ListMaterials returns a document's material rows in table order.
func (e *Engine) ListMaterials(ctx context.Context, documentID string) ([]store.Material, error) {
	if _, err := e.getDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return e.store.ListMaterials(ctx, documentID)
}

// UpdateMaterial applies a manual correction to one material row.
func (e *Engine) UpdateMaterial(ctx context.Context, m store.Material) (*store.Material, error) {
	if err := e.store.UpdateMaterial(ctx, m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	return e.store.GetMaterial(ctx, m.ID)
}

// DeleteMaterial removes one material row.
func (e *Engine) DeleteMaterial(ctx context.Context, id int64) error {
	if err := e.store.DeleteMaterial(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMaterialNotFound
		}
		return err
	}
	return nil
}

// ListRuns returns a document's extraction history, newest first.
func (e *Engine) ListRuns(ctx context.Context, documentID string) ([]store.ExtractionRun, error) {
	if _, err := e.getDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return e.store.ListRuns(ctx, documentID)
}

// ExportXLSX renders a document's material list as an XLSX workbook.
func (e *Engine) ExportXLSX(ctx context.Context, documentID string) ([]byte, error) {
	doc, err := e.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	materials, err := e.store.ListMaterials(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return export.Workbook(doc, materials)
}

// --- internals ---

func (e *Engine) pipelineDeps() pipelineDeps {
	return pipelineDeps{
		validate:     pdftext.Validate,
		text:         pdftext.ExtractText,
		words:        pdftext.ExtractWords,
		ocr:          e.ocr,
		maxRows:      e.cfg.MaxRows,
		minTextChars: e.cfg.MinTextChars,
		logger:       e.logger,
	}
}

func (e *Engine) getDocument(ctx context.Context, documentID string) (*store.Document, error) {
	doc, err := e.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (e *Engine) acquire(documentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[documentID]; busy {
		return ErrExtractionInFlight
	}
	e.inFlight[documentID] = struct{}{}
	return nil
}

func (e *Engine) release(documentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, documentID)
}

func joinNotes(notes []string) string {
	switch len(notes) {
	case 0:
		return ""
	case 1:
		return notes[0]
	}
	out := notes[0]
	for _, n := range notes[1:] {
		out += "; " + n
	}
	return out
}
