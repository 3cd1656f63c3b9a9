package mto

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Column identifies one of the five MTO table columns, in left-to-right
// order as printed.
type Column int

const (
	ColItem Column = iota
	ColQty
	ColUnit
	ColSize
	ColDesc
	numColumns
)

func (c Column) String() string {
	switch c {
	case ColItem:
		return "ITEM"
	case ColQty:
		return "QTY"
	case ColUnit:
		return "UNIT"
	case ColSize:
		return "SIZE"
	case ColDesc:
		return "DESCRIPTION"
	}
	return "?"
}

// Geometry tolerances, in PDF points.
const (
	headerYTol     = 2.0  // header words must share a baseline within this
	lineYTol       = 2.5  // words within a cell group into lines within this
	anchorXBefore  = 5.0  // item anchor window left of the ITEM header
	anchorXAfter   = 40.0 // item anchor window right of the ITEM header
	lastRowExtent  = 50.0 // vertical reach of the final row band
	rightEdgePad   = 320.0
	anchorRowSlack = 2.0 // words this far above an anchor still join its row
)

// ColumnBand is the horizontal span [X0, X1) owned by one column.
type ColumnBand struct {
	Col Column
	X0  float64
	X1  float64
}

// Contains reports whether x falls inside the band.
func (b ColumnBand) Contains(x float64) bool { return x >= b.X0 && x < b.X1 }

// Header is a located table header row: the five header words plus the
// column bands derived from their positions.
type Header struct {
	Y     float64
	Words [numColumns]Word
	Bands [numColumns]ColumnBand
}

// headerNames maps cleaned header tokens to their column. "QTY." and
// "Q'TY" both occur in the wild.
var headerNames = map[string]Column{
	"ITEM":        ColItem,
	"QTY":         ColQty,
	"Q'TY":        ColQty,
	"UNIT":        ColUnit,
	"SIZE":        ColSize,
	"DESCRIPTION": ColDesc,
}

func headerColumn(text string) (Column, bool) {
	t := strings.ToUpper(strings.TrimRight(strings.TrimSpace(text), ".:,;"))
	c, ok := headerNames[t]
	return c, ok
}

// LocateHeader scans the page for a row carrying all five column headers
// on one baseline. Candidate rows are anchored on "ITEM"; the match wins
// only if QTY, UNIT, SIZE and DESCRIPTION all sit within headerYTol of the
// same baseline. Four out of five is not a header.
func LocateHeader(words []Word, pageWidth float64) (Header, bool) {
	for _, anchor := range words {
		if c, ok := headerColumn(anchor.Text); !ok || c != ColItem {
			continue
		}
		var h Header
		var found [numColumns]bool
		for _, w := range words {
			c, ok := headerColumn(w.Text)
			if !ok || math.Abs(w.Y0-anchor.Y0) > headerYTol {
				continue
			}
			// Keep the leftmost match per column.
			if !found[c] || w.X0 < h.Words[c].X0 {
				h.Words[c] = w
				found[c] = true
			}
		}
		complete := true
		for c := ColItem; c < numColumns; c++ {
			if !found[c] {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		h.Y = anchor.Y0
		h.Bands = deriveBands(h.Words, words, pageWidth)
		return h, true
	}
	return Header{}, false
}

// deriveBands turns header word positions into five contiguous column
// bands covering the full page width. Each band runs from its own header
// X to the next header's X; ITEM starts at the page's left edge and
// DESCRIPTION runs to the right edge. The DESCRIPTION left edge is
// refined to the leftmost alphabetic word right of the SIZE header among
// the body rows, because description text regularly outdents its header.
func deriveBands(headers [numColumns]Word, words []Word, pageWidth float64) [numColumns]ColumnBand {
	descLeft := headers[ColDesc].X0
	sizeX := headers[ColSize].X0
	headerY := headers[ColItem].Y0
	for _, w := range words {
		if w.Y0 <= headerY+headerYTol {
			continue
		}
		if w.X0 > sizeX && w.X0 < descLeft && hasAlpha(w.Text) {
			descLeft = w.X0
		}
	}

	edges := [numColumns + 1]float64{
		0,
		headers[ColQty].X0,
		headers[ColUnit].X0,
		sizeX,
		descLeft,
		pageWidth,
	}
	var bands [numColumns]ColumnBand
	for c := ColItem; c < numColumns; c++ {
		bands[c] = ColumnBand{Col: c, X0: edges[c], X1: edges[c+1]}
	}
	return bands
}

// columnFor maps a word to the band holding its horizontal center.
func (h Header) columnFor(w Word) (Column, bool) {
	x := w.CenterX()
	for _, b := range h.Bands {
		if b.Contains(x) {
			return b.Col, true
		}
	}
	return 0, false
}

// RightBoundaryFunc computes the right-hand content cutoff for a page.
// Words starting past the cutoff belong to margin annotations, revision
// clouds and title blocks, not to the table.
type RightBoundaryFunc func(pageWidth, descHeaderX float64) float64

// DefaultRightBoundary allows content up to a fixed reach past the
// DESCRIPTION header, clamped to the page edge.
func DefaultRightBoundary(pageWidth, descHeaderX float64) float64 {
	return math.Min(pageWidth, descHeaderX+rightEdgePad)
}

// itemAnchors returns the row anchors: integer tokens inside the narrow
// window around the ITEM header X, below the header row, top to bottom.
func itemAnchors(words []Word, h Header) []Word {
	itemX := h.Words[ColItem].X0
	var anchors []Word
	for _, w := range words {
		if w.Y0 <= h.Y+headerYTol {
			continue
		}
		if w.X0 < itemX-anchorXBefore || w.X0 > itemX+anchorXAfter {
			continue
		}
		if !reInteger.MatchString(strings.TrimSpace(w.Text)) {
			continue
		}
		anchors = append(anchors, w)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].Y0 < anchors[j].Y0 })
	return anchors
}

// rowIndex places a word into the row whose vertical band contains it.
// Band i runs from anchor i's baseline to anchor i+1's; the last band
// reaches lastRowExtent below its anchor. Returns -1 for words above the
// first anchor or below the table.
func rowIndex(anchors []Word, y float64) int {
	idx := -1
	for i, a := range anchors {
		if y >= a.Y0-anchorRowSlack {
			idx = i
		} else {
			break
		}
	}
	if idx == len(anchors)-1 && y > anchors[idx].Y0+lastRowExtent {
		return -1
	}
	return idx
}

// cellText renders the words of one cell. Words group into lines by
// baseline within lineYTol; lines join top to bottom with newlines, words
// within a line left to right with single spaces.
func cellText(words []Word) string {
	if len(words) == 0 {
		return ""
	}
	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y0-sorted[j].Y0) > lineYTol {
			return sorted[i].Y0 < sorted[j].Y0
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var lines []string
	var line []string
	lineY := sorted[0].Y0
	for _, w := range sorted {
		if math.Abs(w.Y0-lineY) > lineYTol {
			lines = append(lines, strings.Join(line, " "))
			line = line[:0]
			lineY = w.Y0
		}
		line = append(line, w.Text)
	}
	lines = append(lines, strings.Join(line, " "))
	return strings.Join(lines, "\n")
}

// Page is the positioned word content of a single PDF page.
type Page struct {
	Number int
	Width  float64
	Height float64
	Words  []Word
}

// TableParser reconstructs material rows from positioned words. The zero
// value uses the default right boundary and no row cap.
type TableParser struct {
	// RightBoundary overrides the content cutoff. Nil means
	// DefaultRightBoundary.
	RightBoundary RightBoundaryFunc

	// MaxRows caps the total rows emitted across all pages. Zero means
	// unlimited.
	MaxRows int
}

// ParsePage recovers the material rows of a single page. startRow is the
// document-wide row number of this page's first row; warnings reference
// document-wide row numbers. rows is the number of row bands seen,
// including ones skipped for having no description. ok is false when no
// usable header row exists on the page, which is the caller's cue to fall
// back to line parsing.
func (p *TableParser) ParsePage(page Page, startRow int, c *Collector) (materials []Material, rows int, ok bool) {
	h, ok := LocateHeader(page.Words, page.Width)
	if !ok {
		return nil, 0, false
	}

	boundary := p.RightBoundary
	if boundary == nil {
		boundary = DefaultRightBoundary
	}
	cutoff := boundary(page.Width, h.Words[ColDesc].X0)

	anchors := itemAnchors(page.Words, h)
	if len(anchors) == 0 {
		return nil, 0, true
	}

	cells := make([][numColumns][]Word, len(anchors))
	for _, w := range page.Words {
		if w.Y0 <= h.Y+headerYTol || w.X0 >= cutoff {
			continue
		}
		row := rowIndex(anchors, w.Y0)
		if row < 0 {
			continue
		}
		col, ok := h.columnFor(w)
		if !ok {
			continue
		}
		cells[row][col] = append(cells[row][col], w)
	}

	for i := range cells {
		rowNum := startRow + i
		// The assembled ITEM cell must read back as its anchor's number;
		// anything else means stray fragments landed in the band.
		item := strings.TrimSpace(cellText(cells[i][ColItem]))
		anchorNo, _ := strconv.Atoi(strings.TrimSpace(anchors[i].Text))
		if n, err := strconv.Atoi(item); err != nil || n != anchorNo {
			continue
		}
		desc := cellText(cells[i][ColDesc])
		qty := cellText(cells[i][ColQty])
		unit := cellText(cells[i][ColUnit])
		size := cellText(cells[i][ColSize])
		m, ok := buildMaterial(desc, qty, unit, size, rowNum, c)
		if !ok {
			continue
		}
		materials = append(materials, m)
	}
	return materials, len(anchors), true
}

// ParseTable runs the geometric parser across all pages, concatenating
// rows in page order. ok is false only when no page yielded a header; a
// single tabular page makes the whole parse geometric.
func (p *TableParser) ParseTable(pages []Page, c *Collector) ([]Material, bool) {
	var materials []Material
	anyHeader := false
	row := 1
	for _, page := range pages {
		ms, rows, ok := p.ParsePage(page, row, c)
		if !ok {
			continue
		}
		anyHeader = true
		for _, m := range ms {
			if p.MaxRows > 0 && len(materials) >= p.MaxRows {
				return materials, true
			}
			materials = append(materials, m)
		}
		row += rows
	}
	return materials, anyHeader
}
