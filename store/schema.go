package store

// schemaSQL is the DDL for all tables.
const schemaSQL = `
-- Document registry with hash-based change detection
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    storage_path TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    status TEXT DEFAULT 'pending',
    document_type TEXT DEFAULT 'unknown',
    document_number TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Recovered material line items, one row per table row
CREATE TABLE IF NOT EXISTS materials (
    id INTEGER PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    description TEXT NOT NULL,
    spec TEXT,
    size TEXT,
    quantity REAL,
    unit TEXT,
    heat_no TEXT,
    tag_no TEXT
);

-- Extraction history, one row per attempt
CREATE TABLE IF NOT EXISTS extraction_runs (
    id INTEGER PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    method TEXT NOT NULL,
    status TEXT NOT NULL,
    text_chars INTEGER DEFAULT 0,
    parser TEXT,
    material_count INTEGER DEFAULT 0,
    notes TEXT,
    warnings JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_materials_document ON materials(document_id);
CREATE INDEX IF NOT EXISTS idx_materials_position ON materials(document_id, position);
CREATE INDEX IF NOT EXISTS idx_runs_document ON extraction_runs(document_id);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
`
