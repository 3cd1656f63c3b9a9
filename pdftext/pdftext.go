// Package pdftext reads the text layer of a PDF with ledongthuc/pdf, both
// as plain text and as positioned words suitable for geometric table
// reconstruction.
package pdftext

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Depfrz/PGN-DataLens/mto"
)

// Grouping tolerances in PDF points, matching pdfplumber's defaults.
const (
	charYTol = 3.0 // chars within this vertical distance share a line
	charXTol = 3.0 // horizontal gap beyond this starts a new word
)

// Default page size when the MediaBox is missing (US Letter).
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

func newReader(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return r, nil
}

// Validate reports whether data parses as a PDF at all.
func Validate(data []byte) error {
	_, err := newReader(data)
	return err
}

// ExtractText returns the document's text layer, pages joined with
// newlines. Pages whose content cannot be decoded are skipped; a PDF with
// no extractable text yields an empty string and no error.
func ExtractText(data []byte) (string, error) {
	r, err := newReader(data)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// pageText isolates GetPlainText, which panics on malformed font
// dictionaries in some scanned documents.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page text: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// ExtractWords returns every page's content as positioned words with a
// top-left origin. Pages that fail to decode come back empty rather than
// failing the document.
func ExtractWords(data []byte) ([]mto.Page, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}

	pages := make([]mto.Page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		width, height := pageSize(page)
		chars, err := pageChars(page, i, height)
		if err != nil {
			chars = nil
		}
		pages = append(pages, mto.Page{
			Number: i,
			Width:  width,
			Height: height,
			Words:  groupWords(chars),
		})
	}
	return pages, nil
}

func pageSize(page pdf.Page) (float64, float64) {
	box := page.V.Key("MediaBox")
	if box.Kind() == pdf.Array && box.Len() == 4 {
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return defaultPageWidth, defaultPageHeight
}

// charBox is a single positioned character, top-left origin.
type charBox struct {
	text   string
	x0, y0 float64
	x1, y1 float64
	page   int
}

// pageChars flattens the page's text runs into characters. Run
// coordinates are baseline positions in PDF space (Y up); characters come
// out with Y flipped and measured from the glyph top, the baseline
// sitting at 80% of the font height.
func pageChars(page pdf.Page, pageNum int, pageHeight float64) (chars []charBox, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page content: %v", r)
		}
	}()

	content := page.Content()
	for _, run := range content.Text {
		runes := []rune(run.S)
		if len(runes) == 0 {
			continue
		}
		fontHeight := run.FontSize
		yTop := pageHeight - (run.Y + fontHeight*0.8)
		charWidth := run.W / float64(len(runes))
		x := run.X
		for _, ch := range runes {
			if ch != ' ' {
				chars = append(chars, charBox{
					text: string(ch),
					x0:   x,
					y0:   yTop,
					x1:   x + charWidth,
					y1:   yTop + fontHeight,
					page: pageNum,
				})
			}
			x += charWidth
		}
	}
	return chars, nil
}

// groupWords clusters characters into lines by baseline, then splits each
// line into words at horizontal gaps.
func groupWords(chars []charBox) []mto.Word {
	if len(chars) == 0 {
		return nil
	}

	sorted := make([]charBox, len(chars))
	copy(sorted, chars)
	sort.Slice(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].y0-sorted[j].y0) > charYTol {
			return sorted[i].y0 < sorted[j].y0
		}
		return sorted[i].x0 < sorted[j].x0
	})

	var words []mto.Word
	var line []charBox
	lineY := sorted[0].y0
	flush := func() {
		words = append(words, splitLine(line)...)
		line = line[:0]
	}
	for _, c := range sorted {
		if math.Abs(c.y0-lineY) > charYTol {
			flush()
			lineY = c.y0
		}
		line = append(line, c)
	}
	flush()
	return words
}

func splitLine(line []charBox) []mto.Word {
	if len(line) == 0 {
		return nil
	}
	sort.Slice(line, func(i, j int) bool { return line[i].x0 < line[j].x0 })

	var words []mto.Word
	start := 0
	for i := 1; i <= len(line); i++ {
		if i < len(line) {
			gap := line[i].x0 - line[i-1].x1
			width := line[i].x1 - line[i].x0
			if gap <= charXTol && gap <= width*0.3 {
				continue
			}
		}
		words = append(words, mergeChars(line[start:i]))
		start = i
	}
	return words
}

func mergeChars(chars []charBox) mto.Word {
	var b strings.Builder
	w := mto.Word{
		X0:   chars[0].x0,
		Y0:   chars[0].y0,
		X1:   chars[0].x1,
		Y1:   chars[0].y1,
		Page: chars[0].page,
	}
	for _, c := range chars {
		b.WriteString(c.text)
		w.X0 = math.Min(w.X0, c.x0)
		w.Y0 = math.Min(w.Y0, c.y0)
		w.X1 = math.Max(w.X1, c.x1)
		w.Y1 = math.Max(w.Y1, c.y1)
	}
	w.Text = b.String()
	return w
}
