package mto

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reColumnGap = regexp.MustCompile(`\s{2,}`)
	rePageMark  = regexp.MustCompile(`(?i)^page\s+\d+`)
	reSizeToken = regexp.MustCompile(`(?i)^(?:\d+(?:[./]\d+)?\s*(?:"|”|inch|in)|\d+(?:\.\d+)?\s*mm|\d+\s*x\s*\d+\w*|dn\s*\d+|-{1,2})$`)
)

// isNoiseLine filters lines that carry no material data: rules, page
// markers, repeated header rows and fragments too short to mean anything.
func isNoiseLine(line string) bool {
	t := strings.TrimSpace(line)
	if len(t) < 3 {
		return true
	}
	if strings.Trim(t, "-_=|+.· ") == "" {
		return true
	}
	if rePageMark.MatchString(t) {
		return true
	}
	upper := strings.ToUpper(t)
	if strings.Contains(upper, "ITEM") && strings.Contains(upper, "DESCRIPTION") {
		return true
	}
	if !hasAlpha(t) && !reDigits.MatchString(t) {
		return true
	}
	return false
}

// unitToken reports whether s is plausible as a standalone unit.
func unitToken(s string) bool {
	u := NormalizeUnit(s)
	return u != "" && IsKnownUnit(u)
}

// LineParser recovers material rows from plain text when no word geometry
// is available, typically over OCR output. It recognizes, in order of
// preference: numbered table rows, columns separated by runs of spaces,
// right-anchored "desc qty unit" lines, and bare description lines.
type LineParser struct {
	// MaxRows caps the rows emitted. Zero means unlimited.
	MaxRows int
}

// Parse walks the text line by line. Duplicate lines are parsed once.
func (p *LineParser) Parse(text string, c *Collector) []Material {
	var out []Material
	seen := make(map[string]bool)
	row := 0
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if isNoiseLine(line) || seen[line] {
			continue
		}
		seen[line] = true
		if p.MaxRows > 0 && len(out) >= p.MaxRows {
			break
		}
		row++
		if m, ok := parseLine(line, row, c); ok {
			out = append(out, m)
		}
	}
	return out
}

func parseLine(line string, row int, c *Collector) (Material, bool) {
	if m, ok := parseNumberedRow(line, row, c); ok {
		return m, true
	}
	if m, ok := parseSpacedColumns(line, row, c); ok {
		return m, true
	}
	if m, ok := parseRightAnchored(line, row, c); ok {
		return m, true
	}
	return parseDescriptionOnly(line, row, c)
}

// parseNumberedRow handles full table rows flattened into one line:
// "<item> <qty> <unit> <size> <description...>".
func parseNumberedRow(line string, row int, c *Collector) (Material, bool) {
	tokens := strings.Fields(line)
	if len(tokens) < 5 {
		return Material{}, false
	}
	if !reInteger.MatchString(tokens[0]) {
		return Material{}, false
	}
	if ParseNumber(tokens[1]) == nil || !unitToken(tokens[2]) || !reSizeToken.MatchString(tokens[3]) {
		return Material{}, false
	}
	desc := strings.Join(tokens[4:], " ")
	return buildMaterial(desc, tokens[1], tokens[2], tokens[3], row, c)
}

// parseSpacedColumns handles lines whose columns survive as runs of two
// or more spaces: "<description>  <size>  <qty>  <unit>", size optional.
func parseSpacedColumns(line string, row int, c *Collector) (Material, bool) {
	fields := reColumnGap.Split(line, -1)
	if len(fields) < 3 {
		return Material{}, false
	}
	last := strings.TrimSpace(fields[len(fields)-1])
	qtyRaw := strings.TrimSpace(fields[len(fields)-2])
	if !unitToken(last) || ParseNumber(qtyRaw) == nil {
		return Material{}, false
	}
	descEnd := len(fields) - 2
	size := ""
	if descEnd > 1 {
		cand := strings.TrimSpace(fields[descEnd-1])
		if reSizeToken.MatchString(cand) {
			size = cand
			descEnd--
		}
	}
	desc := strings.TrimSpace(strings.Join(fields[:descEnd], " "))
	if !hasAlpha(desc) {
		return Material{}, false
	}
	return buildMaterial(desc, qtyRaw, last, size, row, c)
}

// parseRightAnchored handles single-spaced lines ending in a quantity and
// unit: "<description...> [size] <qty> <unit>".
func parseRightAnchored(line string, row int, c *Collector) (Material, bool) {
	tokens := strings.Fields(line)
	if len(tokens) < 3 {
		return Material{}, false
	}
	last := tokens[len(tokens)-1]
	qtyRaw := tokens[len(tokens)-2]
	if !unitToken(last) || ParseNumber(qtyRaw) == nil {
		return Material{}, false
	}
	descEnd := len(tokens) - 2
	size := ""
	if descEnd > 1 && reSizeToken.MatchString(tokens[descEnd-1]) {
		size = tokens[descEnd-1]
		descEnd--
	}
	desc := strings.Join(tokens[:descEnd], " ")
	if !hasAlpha(desc) {
		return Material{}, false
	}
	return buildMaterial(desc, qtyRaw, last, size, row, c)
}

// parseDescriptionOnly keeps lines that read like a material name but
// carry no quantity. The row is flagged so reviewers can fill it in.
func parseDescriptionOnly(line string, row int, c *Collector) (Material, bool) {
	if !hasAlpha(line) || len(line) < 4 {
		return Material{}, false
	}
	m, ok := buildMaterial(line, "", "", "", row, c)
	if !ok {
		return Material{}, false
	}
	c.Add(WarnDescriptionOnly, row, fmt.Sprintf("row %d: description without quantity", row))
	m.Warnings = append(m.Warnings, WarnDescriptionOnly)
	return m, true
}
