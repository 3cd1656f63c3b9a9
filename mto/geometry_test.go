package mto

import (
	"reflect"
	"strings"
	"testing"
)

// tw builds a positioned word with a synthetic 5pt glyph width.
func tw(text string, x, y float64) Word {
	return Word{Text: text, X0: x, Y0: y, X1: x + 5*float64(len(text)), Y1: y + 8}
}

// mtoPage lays out a small two-row take-off table the way scanned
// isometrics print them: header row, one pipe row, one valve row whose
// description wraps onto a second line, plus margin noise that must not
// leak into any cell.
func mtoPage() Page {
	words := []Word{
		// header baseline at y=100
		tw("ITEM", 20, 100),
		tw("QTY.", 70, 100),
		tw("UNIT", 100, 100),
		tw("SIZE", 140, 100),
		tw("DESCRIPTION", 200, 100),

		// row 1
		tw("1", 20, 120),
		tw("16", 70, 120),
		tw("M", 100, 120),
		tw(`4"`, 140, 120),
		tw("PIPE,", 200, 120),
		tw("API", 230, 120),
		tw("5L", 250, 120),
		tw("Gr.B,", 265, 120),
		tw("ERW,", 295, 120),
		tw("SCH.40,", 320, 120),
		tw("BE", 360, 120),
		tw("(ASME", 375, 120),
		tw("B36.10M)", 405, 120),

		// row 2, description wraps
		tw("2", 20, 140),
		tw("2", 70, 140),
		tw("pcs", 100, 140),
		tw("-", 140, 140),
		tw("GATE", 200, 140),
		tw("VALVE,", 225, 140),
		tw("API", 200, 148),
		tw("600", 220, 148),

		// revision cloud annotation beyond the content cutoff
		tw("REV", 550, 120),
		// title block text far below the table
		tw("NOTES", 200, 260),
	}
	return Page{Number: 1, Width: 612, Height: 792, Words: words}
}

func TestLocateHeader(t *testing.T) {
	page := mtoPage()

	h, ok := LocateHeader(page.Words, page.Width)
	if !ok {
		t.Fatal("header not found")
	}
	if h.Y != 100 {
		t.Errorf("header Y = %v, want 100", h.Y)
	}

	want := [numColumns]ColumnBand{
		{ColItem, 0, 70},
		{ColQty, 70, 100},
		{ColUnit, 100, 140},
		{ColSize, 140, 200},
		{ColDesc, 200, 612},
	}
	if h.Bands != want {
		t.Errorf("bands = %+v, want %+v", h.Bands, want)
	}

	// Bands are contiguous and cover the full page width.
	if h.Bands[ColItem].X0 != 0 || h.Bands[ColDesc].X1 != page.Width {
		t.Error("bands do not span the page")
	}
	for c := ColItem; c < ColDesc; c++ {
		if h.Bands[c].X1 != h.Bands[c+1].X0 {
			t.Errorf("gap between %v and %v bands", c, c+1)
		}
	}
}

func TestLocateHeaderDescriptionOutdent(t *testing.T) {
	page := mtoPage()
	// Body description text starts left of the DESCRIPTION header word.
	page.Words = append(page.Words, tw("SPOOL", 190, 160))

	h, ok := LocateHeader(page.Words, page.Width)
	if !ok {
		t.Fatal("header not found")
	}
	if h.Bands[ColSize].X1 != 190 || h.Bands[ColDesc].X0 != 190 {
		t.Errorf("description left edge = %v, want 190", h.Bands[ColDesc].X0)
	}
}

func TestLocateHeaderRequiresAllFive(t *testing.T) {
	page := mtoPage()
	var words []Word
	for _, w := range page.Words {
		if w.Text == "UNIT" {
			continue
		}
		words = append(words, w)
	}
	if _, ok := LocateHeader(words, page.Width); ok {
		t.Error("four of five headers must not locate a table")
	}
}

func TestLocateHeaderSplitBaselines(t *testing.T) {
	page := mtoPage()
	for i, w := range page.Words {
		if w.Text == "DESCRIPTION" {
			page.Words[i].Y0 = 110 // too far off the header baseline
		}
	}
	if _, ok := LocateHeader(page.Words, page.Width); ok {
		t.Error("headers on different baselines must not match")
	}
}

func TestParsePage(t *testing.T) {
	var c Collector
	var p TableParser
	materials, rows, ok := p.ParsePage(mtoPage(), 1, &c)
	if !ok {
		t.Fatal("expected geometric parse")
	}
	if rows != 2 {
		t.Errorf("rows = %d, want 2", rows)
	}
	if len(materials) != 2 {
		t.Fatalf("materials = %d, want 2", len(materials))
	}

	m := materials[0]
	if m.Description != "PIPE" {
		t.Errorf("description = %q, want PIPE", m.Description)
	}
	if m.Spec == nil || *m.Spec != "API 5L Gr.B, ERW, SCH.40, BE (ASME B36.10M)" {
		t.Errorf("spec = %v", m.Spec)
	}
	if m.Size == nil || *m.Size != "4 Inch" {
		t.Errorf("size = %v, want 4 Inch", m.Size)
	}
	if m.Quantity == nil || *m.Quantity != 16 {
		t.Errorf("quantity = %v, want 16", m.Quantity)
	}
	if m.Unit == nil || *m.Unit != "M" {
		t.Errorf("unit = %v, want M", m.Unit)
	}

	v := materials[1]
	if v.Description != "GATE VALVE" {
		t.Errorf("description = %q, want GATE VALVE", v.Description)
	}
	if v.Spec == nil || *v.Spec != "API 600" {
		t.Errorf("spec = %v, want API 600", v.Spec)
	}
	if v.Size != nil {
		t.Errorf("size = %q, want nil for dash placeholder", *v.Size)
	}
	if v.Quantity == nil || *v.Quantity != 2 {
		t.Errorf("quantity = %v, want 2", v.Quantity)
	}

	// Margin annotation and title block text stay out of the cells.
	for _, m := range materials {
		if m.Spec != nil && (strings.Contains(*m.Spec, "REV") || strings.Contains(*m.Spec, "NOTES")) {
			t.Errorf("margin text leaked into spec: %q", *m.Spec)
		}
	}
}

func TestParsePageItemCellMismatch(t *testing.T) {
	page := mtoPage()
	// A stray fragment lands in the ITEM band on row 1's baseline, so the
	// assembled cell reads "1 A" instead of the anchor number.
	page.Words = append(page.Words, tw("A", 30, 120))

	var c Collector
	var p TableParser
	materials, rows, ok := p.ParsePage(page, 1, &c)
	if !ok {
		t.Fatal("expected geometric parse")
	}
	if rows != 2 {
		t.Errorf("rows = %d, want 2", rows)
	}
	if len(materials) != 1 {
		t.Fatalf("materials = %+v, want the polluted row dropped", materials)
	}
	if materials[0].Description != "GATE VALVE" {
		t.Errorf("description = %q, want GATE VALVE", materials[0].Description)
	}
}

func TestParseTableIdempotent(t *testing.T) {
	pages := []Page{mtoPage()}
	var p TableParser

	var c1, c2 Collector
	first, ok1 := p.ParseTable(pages, &c1)
	second, ok2 := p.ParseTable(pages, &c2)
	if !ok1 || !ok2 {
		t.Fatal("expected geometric parse both times")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeat parse differs:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(c1.Warnings(), c2.Warnings()) {
		t.Errorf("repeat warnings differ")
	}
}

func TestParseTableMaxRows(t *testing.T) {
	p := TableParser{MaxRows: 1}
	var c Collector
	materials, ok := p.ParseTable([]Page{mtoPage()}, &c)
	if !ok {
		t.Fatal("expected geometric parse")
	}
	if len(materials) != 1 {
		t.Errorf("materials = %d, want 1", len(materials))
	}
}

func TestParseTableNoHeader(t *testing.T) {
	page := Page{Number: 1, Width: 612, Height: 792, Words: []Word{
		tw("GENERAL", 100, 100),
		tw("NOTES", 160, 100),
	}}
	var p TableParser
	var c Collector
	if _, ok := p.ParseTable([]Page{page}, &c); ok {
		t.Error("pages without a header row must report no table")
	}
}

func TestDefaultRightBoundary(t *testing.T) {
	if got := DefaultRightBoundary(612, 200); got != 520 {
		t.Errorf("boundary = %v, want 520", got)
	}
	// Clamped to the page edge for wide tables.
	if got := DefaultRightBoundary(400, 200); got != 400 {
		t.Errorf("boundary = %v, want 400", got)
	}
}

func TestRowIndex(t *testing.T) {
	anchors := []Word{tw("1", 20, 120), tw("2", 20, 140)}
	tests := []struct {
		y    float64
		want int
	}{
		{100, -1}, // above the table
		{120, 0},
		{137, 0},
		{140, 1},
		{189, 1},  // within the last row's extent
		{250, -1}, // below the table
	}
	for _, tt := range tests {
		if got := rowIndex(anchors, tt.y); got != tt.want {
			t.Errorf("rowIndex(y=%v) = %d, want %d", tt.y, got, tt.want)
		}
	}
}
