package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	datalens "github.com/Depfrz/PGN-DataLens"
)

type handler struct {
	engine *datalens.Engine
}

func newHandler(e *datalens.Engine) *handler {
	return &handler{engine: e}
}

// POST /documents
// Accepts a multipart upload under the "file" field.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil { // 100MB max
		writeError(w, http.StatusBadRequest, "expected multipart upload with 'file' field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart upload with 'file' field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		slog.Error("reading upload", "error", err)
		return
	}

	// Sanitise filename to prevent path traversal.
	safeName := filepath.Base(header.Filename)

	doc, err := h.engine.RegisterDocument(ctx, safeName, data)
	if err != nil {
		h.writeEngineError(w, err, "registering document")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// POST /documents/{id}/extract
func (h *handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	id := r.PathValue("id")
	res, err := h.engine.Extract(ctx, id)
	if err != nil {
		h.writeEngineError(w, err, "extraction")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": id,
		"method":      res.Method,
		"status":      res.Status,
		"parser":      res.Parser,
		"text_chars":  res.TextChars,
		"materials":   res.Materials,
		"warnings":    res.Warnings,
		"notes":       res.Notes,
		"doc_info":    res.DocInfo,
	})
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context())
	if err != nil {
		h.writeEngineError(w, err, "listing documents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

// GET /documents/{id}
func (h *handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeEngineError(w, err, "fetching document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DELETE /documents/{id}
func (h *handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.DeleteDocument(r.Context(), id); err != nil {
		h.writeEngineError(w, err, "deleting document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /documents/{id}/materials
func (h *handler) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	materials, err := h.engine.ListMaterials(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err, "listing materials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": id,
		"materials":   materials,
	})
}

// GET /documents/{id}/runs
func (h *handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	runs, err := h.engine.ListRuns(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err, "listing runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": id,
		"runs":        runs,
	})
}

// GET /documents/{id}/export.xlsx
func (h *handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := h.engine.ExportXLSX(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err, "exporting materials")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "materials-"+id+".xlsx"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PATCH /materials/{id}
func (h *handler) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var req struct {
		Description *string  `json:"description"`
		Spec        *string  `json:"spec"`
		Size        *string  `json:"size"`
		Quantity    *float64 `json:"quantity"`
		Unit        *string  `json:"unit"`
		HeatNo      *string  `json:"heat_no"`
		TagNo       *string  `json:"tag_no"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	current, err := h.engine.Store().GetMaterial(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, datalens.ErrMaterialNotFound, "fetching material")
		return
	}

	// Absent fields keep their stored values; present fields overwrite,
	// including explicit nulls for the optional columns.
	m := *current
	if req.Description != nil {
		if *req.Description == "" {
			writeError(w, http.StatusBadRequest, "description cannot be empty")
			return
		}
		m.Description = *req.Description
	}
	if req.Spec != nil {
		m.Spec = req.Spec
	}
	if req.Size != nil {
		m.Size = req.Size
	}
	if req.Quantity != nil {
		m.Quantity = req.Quantity
	}
	if req.Unit != nil {
		m.Unit = req.Unit
	}
	if req.HeatNo != nil {
		m.HeatNo = req.HeatNo
	}
	if req.TagNo != nil {
		m.TagNo = req.TagNo
	}

	updated, err := h.engine.UpdateMaterial(r.Context(), m)
	if err != nil {
		h.writeEngineError(w, err, "updating material")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /materials/{id}
func (h *handler) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid material id")
		return
	}
	if err := h.engine.DeleteMaterial(r.Context(), id); err != nil {
		h.writeEngineError(w, err, "deleting material")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Store().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"stats":  stats,
	})
}

// writeEngineError maps engine sentinel errors onto HTTP statuses.
func (h *handler) writeEngineError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, datalens.ErrDocumentNotFound),
		errors.Is(err, datalens.ErrMaterialNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, datalens.ErrExtractionInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, datalens.ErrInvalidPDF),
		errors.Is(err, datalens.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, op+" failed")
		slog.Error(op, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
