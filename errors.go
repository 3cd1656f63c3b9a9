package datalens

import "errors"

var (
	// ErrDocumentNotFound is returned when a document ID does not exist.
	ErrDocumentNotFound = errors.New("datalens: document not found")

	// ErrMaterialNotFound is returned when a material ID does not exist.
	ErrMaterialNotFound = errors.New("datalens: material not found")

	// ErrInvalidPDF is returned when the input bytes cannot be opened as a
	// PDF at all. This is the only pipeline error that is fatal to the
	// caller; everything downstream degrades to a fallback instead.
	ErrInvalidPDF = errors.New("datalens: invalid or corrupt PDF input")

	// ErrExtractionInFlight is returned when an extraction is already
	// running for the same document. Extraction replaces the document's
	// material rows wholesale, so concurrent runs must not interleave.
	ErrExtractionInFlight = errors.New("datalens: extraction already in flight for document")

	// ErrEmptyDocument is returned when a zero-byte upload is registered.
	ErrEmptyDocument = errors.New("datalens: empty document")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("datalens: invalid configuration")
)
