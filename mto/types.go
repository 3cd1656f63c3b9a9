// Package mto reconstructs Material Take-Off tables from PDF page content.
//
// The primary path works geometrically: given an unordered bag of positioned
// words it locates the table header, derives a horizontal band per column,
// slices the page into one vertical band per item row, and assigns words to
// cells by coordinate. A line-oriented fallback handles documents without
// reliable word geometry (typically OCR output).
package mto

import "strings"

// maxFieldLen bounds every persisted text field.
const maxFieldLen = 500

// Word is a positioned token on a page. Coordinates use a top-left origin:
// Y grows downward, matching raster order.
type Word struct {
	Text string
	X0   float64
	Y0   float64
	X1   float64
	Y1   float64
	Page int
}

// CenterX returns the horizontal center of the word's bounding box.
func (w Word) CenterX() float64 { return (w.X0 + w.X1) / 2 }

// Material is one recovered line item. Quantity is a pointer so that an
// unparseable quantity stays nil; "unknown" must never collapse into zero.
type Material struct {
	Description string   `json:"description"`
	Spec        *string  `json:"spec"`
	Size        *string  `json:"size"`
	Quantity    *float64 `json:"quantity"`
	Unit        *string  `json:"unit"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Warning kinds emitted by the parsers. All are advisory; none abort a run.
const (
	WarnEmptyDescription = "empty_description"
	WarnQuantityUnparsed = "quantity_unparsed"
	WarnUnitUnrecognized = "unit_unrecognized"
	WarnDescriptionOnly  = "description_only_row"
)

// Warning is a per-row or per-document parse diagnostic.
// Row is 0 for document-scoped warnings; item rows count from 1.
type Warning struct {
	Kind    string `json:"kind"`
	Row     int    `json:"row,omitempty"`
	Message string `json:"message"`
}

// Collector accumulates warnings across a parse. The zero value is ready.
type Collector struct {
	warnings []Warning
}

// Add records a warning.
func (c *Collector) Add(kind string, row int, message string) {
	c.warnings = append(c.warnings, Warning{Kind: kind, Row: row, Message: message})
}

// Warnings returns everything collected so far, in emission order.
func (c *Collector) Warnings() []Warning { return c.warnings }

// Messages returns the collected warnings as plain strings.
func (c *Collector) Messages() []string {
	out := make([]string, 0, len(c.warnings))
	for _, w := range c.warnings {
		out = append(out, w.Message)
	}
	return out
}

// NormalizeSpec joins a multi-line specification into a single line.
// Parsers preserve newlines in Spec (multi-line OCR content must survive
// round-trips); callers that want the flattened form use this.
func NormalizeSpec(spec string) string {
	parts := strings.Split(spec, "\n")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func truncate(s string) string {
	if len(s) > maxFieldLen {
		return s[:maxFieldLen]
	}
	return s
}

func strptr(s string) *string { return &s }
