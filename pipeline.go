package datalens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/Depfrz/PGN-DataLens/mto"
)

// Extraction methods, recorded per run. "pdf_text" means the text layer
// alone sufficed; "ocr" means the layer was empty and recognition
// supplied everything; "pdf_text_then_ocr" means a sparse layer was
// augmented with recognized text.
const (
	MethodPDFText        = "pdf_text"
	MethodOCR            = "ocr"
	MethodPDFTextThenOCR = "pdf_text_then_ocr"
)

// Parsers that can produce the material rows.
const (
	ParserGeometric = "geometric"
	ParserLines     = "line_heuristic"
)

// Run outcomes.
const (
	RunSuccess = "success"
	RunFailed  = "failed"
)

// ExtractionResult is everything one pipeline pass produces.
type ExtractionResult struct {
	Method    string         `json:"method"`
	Status    string         `json:"status"`
	TextChars int            `json:"text_chars"`
	Parser    string         `json:"parser,omitempty"`
	Text      string         `json:"-"`
	Materials []mto.Material `json:"materials"`
	Warnings  []mto.Warning  `json:"warnings,omitempty"`
	Notes     []string       `json:"notes,omitempty"`
	DocInfo   mto.DocInfo    `json:"doc_info"`
}

// ocrBackend is the slice of ocr.Engine the pipeline needs.
type ocrBackend interface {
	Available() bool
	Text(ctx context.Context, data []byte) (string, error)
}

// pipelineDeps carries the pipeline's injectable pieces. Production
// wiring lives in Engine; tests substitute stubs.
type pipelineDeps struct {
	validate      func(data []byte) error
	text          func(data []byte) (string, error)
	words         func(data []byte) ([]mto.Page, error)
	ocr           ocrBackend
	maxRows       int
	minTextChars  int
	rightBoundary mto.RightBoundaryFunc
	logger        *slog.Logger
}

// runPipeline executes one extraction pass over raw PDF bytes.
//
// The only fatal condition is input that does not parse as a PDF.
// Everything downstream degrades: a dead text layer falls through to
// OCR, a missing OCR binary leaves the text as-is, a table without a
// recognizable header falls back to line heuristics. The run is a
// success when enough text came out or at least one material row did.
func runPipeline(ctx context.Context, data []byte, deps pipelineDeps) (*ExtractionResult, error) {
	log := deps.logger
	if log == nil {
		log = slog.Default()
	}

	if err := deps.validate(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	res := &ExtractionResult{Method: MethodPDFText}

	text, err := deps.text(data)
	if err != nil {
		log.Warn("text layer extraction failed", "error", err)
		res.Notes = append(res.Notes, fmt.Sprintf("text layer extraction failed: %v", err))
		text = ""
	}
	layerChars := nonSpaceCount(text)

	// A layer under the threshold means a scanned or stamped document;
	// bring in OCR. The geometric parse still runs either way, because
	// sparse layers regularly keep their table text intact.
	if layerChars < deps.minTextChars {
		switch {
		case deps.ocr == nil || !deps.ocr.Available():
			log.Warn("ocr unavailable", "text_chars", layerChars)
			res.Notes = append(res.Notes, "ocr unavailable; continuing with text layer only")
		default:
			ocrText, err := deps.ocr.Text(ctx, data)
			if err != nil {
				log.Warn("ocr failed", "error", err)
				res.Notes = append(res.Notes, fmt.Sprintf("ocr failed: %v", err))
			} else if strings.TrimSpace(ocrText) != "" {
				if layerChars == 0 {
					res.Method = MethodOCR
					text = ocrText
				} else {
					res.Method = MethodPDFTextThenOCR
					text = text + "\n" + ocrText
				}
			} else {
				res.Notes = append(res.Notes, "ocr produced no text")
			}
		}
	}

	res.Text = text
	res.TextChars = nonSpaceCount(text)

	var c mto.Collector
	table := mto.TableParser{RightBoundary: deps.rightBoundary, MaxRows: deps.maxRows}
	pages, err := deps.words(data)
	if err != nil {
		log.Warn("word extraction failed", "error", err)
		pages = nil
	}
	materials, geometric := table.ParseTable(pages, &c)
	res.Parser = ParserGeometric

	if !geometric || len(materials) == 0 {
		if !geometric {
			log.Warn("table parse failed", "reason", "no header row found")
			res.Notes = append(res.Notes, "no table header found; using line heuristics")
		}
		lines := mto.LineParser{MaxRows: deps.maxRows}
		materials = lines.Parse(text, &c)
		res.Parser = ParserLines
	}

	res.Materials = materials
	res.Warnings = c.Warnings()
	res.DocInfo = mto.ParseDocInfo(text)

	if res.TextChars >= deps.minTextChars || len(materials) >= 1 {
		res.Status = RunSuccess
	} else {
		res.Status = RunFailed
	}
	return res, nil
}

// nonSpaceCount counts the non-whitespace runes in s.
func nonSpaceCount(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
