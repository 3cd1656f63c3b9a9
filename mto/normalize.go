package mto

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	reSize      = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?|\d+/\d+)\s*(?:inch|in\b|")`)
	reInchSize  = regexp.MustCompile(`^(\d+(?:\.\d+)?|\d+/\d+)"$`)
	reDigits    = regexp.MustCompile(`\d`)
	reInteger   = regexp.MustCompile(`^\d+$`)
	reWeight    = regexp.MustCompile(`(?i)^\d+(?:[.,]\d+)?\s*kg$`)
	reNumberCut = regexp.MustCompile(`[^0-9,.\-+]`)
)

// unitAliases maps lowercased unit spellings to their canonical form.
// Tokens outside the map pass through with their original case intact;
// the tables this parser sees use "M" for meters and the distinction is
// meaningful to reviewers.
var unitAliases = map[string]string{
	"meter":  "m",
	"meters": "m",
	"pc":     "pcs",
	"joints": "joint",
}

// knownUnits is the recognized canonical unit vocabulary. Anything else
// triggers an advisory unit warning (the value is still kept).
var knownUnits = map[string]bool{
	"m": true, "pcs": true, "set": true, "joint": true, "ea": true,
	"kg": true, "lot": true, "sheet": true, "roll": true,
}

// hasAlpha reports whether s contains at least one letter.
func hasAlpha(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// ParseNumber coerces free text to a number, tolerating thousands
// separators in both continental and anglo conventions. The rightmost of
// "." / "," with a non-3-digit tail is taken as the decimal separator;
// runs of 3-digit groups are treated as grouping. Returns nil when no
// numeric interpretation exists, never zero.
func ParseNumber(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	s = reNumberCut.ReplaceAllString(s, "")
	if !reDigits.MatchString(s) {
		return nil
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot != -1 && lastComma != -1:
		dec, thou := ".", ","
		if lastComma > lastDot {
			dec, thou = ",", "."
		}
		s = strings.ReplaceAll(s, thou, "")
		s = strings.ReplaceAll(s, dec, ".")
	case lastDot != -1:
		s = resolveSingleSeparator(s, ".")
	case lastComma != -1:
		s = resolveSingleSeparator(s, ",")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// resolveSingleSeparator decides whether sep is grouping or decimal when it
// is the only separator kind present.
func resolveSingleSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) >= 3 {
		grouped := true
		for _, p := range parts[1:] {
			if len(p) != 3 {
				grouped = false
				break
			}
		}
		if grouped {
			return strings.Join(parts, "")
		}
		return strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}
	a, b := parts[0], parts[1]
	// "1,234" style: 3-digit tail after a short head is grouping.
	if len(b) == 3 && len(a) <= 3 {
		return a + b
	}
	return a + "." + b
}

// NormalizeUnit canonicalizes a unit token. Known aliases collapse to the
// canonical spelling; unknown tokens are returned trimmed but otherwise
// untouched. Empty input returns "".
func NormalizeUnit(unit string) string {
	u := strings.TrimSpace(unit)
	if u == "" {
		return ""
	}
	if canon, ok := unitAliases[strings.ToLower(u)]; ok {
		return canon
	}
	return u
}

// IsKnownUnit reports whether a normalized unit belongs to the recognized
// vocabulary. Weight units like "14.5kg" count as recognized.
func IsKnownUnit(unit string) bool {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return false
	}
	if knownUnits[u] {
		return true
	}
	return reWeight.MatchString(u)
}

// NormalizeSize canonicalizes a size token. A trailing double-quote mark is
// an inch suffix and maps into the size text ("4"" becomes "4 Inch"); it is
// never a unit. Dash placeholders mean "no size" and return nil. Compound
// sizes (50x50, 3mm) pass through untouched.
func NormalizeSize(token string) *string {
	t := strings.TrimSpace(token)
	if t == "" {
		return nil
	}
	t = strings.ReplaceAll(t, "—", "-")
	t = strings.ReplaceAll(t, "“", `"`)
	t = strings.ReplaceAll(t, "”", `"`)
	t = strings.ReplaceAll(t, "''", `"`)
	if t == "-" || t == "--" {
		return nil
	}

	if m := reInchSize.FindStringSubmatch(t); m != nil {
		return strptr(m[1] + " Inch")
	}
	lower := strings.ToLower(t)
	if strings.Contains(lower, "x") || strings.Contains(lower, "mm") {
		return strptr(t)
	}
	if m := reSize.FindStringSubmatch(t); m != nil {
		return strptr(m[1] + " Inch")
	}
	return strptr(t)
}

// specMarkers are tokens that start the specification clause of a
// description when no comma separates name from spec: standards bodies,
// schedule/grade prefixes and fabrication terms.
var specMarkers = map[string]bool{
	"api": true, "astm": true, "asme": true, "ansi": true, "jis": true,
	"din": true, "iso": true, "sch": true, "schedule": true, "gr": true,
	"grade": true, "dn": true, "pn": true, "ss": true, "cs": true,
	"smls": true, "erw": true, "bw": true, "be": true,
}

// SplitNameSpec splits a raw description into the item name and the
// specification remainder. The first comma wins; without one, the split
// point is the first spec marker token or the first parenthesised token.
// When no split point exists the whole text is the name and spec is nil.
func SplitNameSpec(description string) (string, *string) {
	d := strings.Trim(description, " -•|:\t")
	if d == "" {
		return "", nil
	}

	var name, spec string
	if i := strings.Index(d, ","); i >= 0 {
		name = strings.TrimSpace(d[:i])
		spec = strings.Trim(d[i+1:], " ,;:-\t\n")
	} else {
		tokens := strings.Fields(d)
		split := -1
		for i, tok := range tokens {
			if strings.ContainsAny(tok, "()") {
				split = i
				break
			}
			t := strings.ToLower(strings.Trim(tok, " ,;:-()[]{}"))
			if specMarkers[t] ||
				(strings.HasPrefix(t, "sch") && len(t) > 3) ||
				(strings.HasPrefix(t, "gr") && len(t) > 2) {
				split = i
				break
			}
		}
		if split <= 0 {
			name, spec = d, ""
		} else {
			name = strings.TrimSpace(strings.Join(tokens[:split], " "))
			spec = strings.Trim(strings.Join(tokens[split:], " "), " ,;:-\t\n")
		}
	}

	if !hasAlpha(name) || len(name) < 2 {
		return d, nil
	}
	if spec == "" {
		return name, nil
	}
	return name, strptr(spec)
}

// ApplyWeightUnitSwap recovers per-unit weights misplaced in the SIZE
// column. When size is a weight ("14.5kg") and the unit is the generic
// "ea", the weight string becomes the unit and size is cleared. This exact
// condition is the only trigger; every other (size, unit) pair is returned
// unmodified.
func ApplyWeightUnitSwap(size, unit *string) (*string, *string) {
	if size == nil || unit == nil {
		return size, unit
	}
	if !strings.EqualFold(strings.TrimSpace(*unit), "ea") {
		return size, unit
	}
	s := strings.TrimSpace(*size)
	if !reWeight.MatchString(s) {
		return size, unit
	}
	w := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	return nil, strptr(w)
}

// buildMaterial assembles a Material from raw cell text, collecting the
// row-level warnings mandated for empty descriptions, unparseable
// quantities and unrecognized units. ok is false when the row has no
// usable description at all.
func buildMaterial(rawDesc, qtyRaw, unitRaw, sizeRaw string, row int, c *Collector) (Material, bool) {
	if strings.TrimSpace(rawDesc) == "" || !hasAlpha(rawDesc) {
		c.Add(WarnEmptyDescription, row, fmt.Sprintf("row %d: description is empty", row))
		return Material{}, false
	}

	name, spec := SplitNameSpec(rawDesc)
	if name == "" {
		c.Add(WarnEmptyDescription, row, fmt.Sprintf("row %d: item name unreadable", row))
		return Material{}, false
	}

	m := Material{Description: truncate(name)}
	if spec != nil {
		m.Spec = strptr(truncate(*spec))
	}

	qty := ParseNumber(qtyRaw)
	if qty == nil && strings.TrimSpace(qtyRaw) != "" {
		c.Add(WarnQuantityUnparsed, row, fmt.Sprintf("row %d: quantity %q is not numeric", row, strings.TrimSpace(qtyRaw)))
		m.Warnings = append(m.Warnings, WarnQuantityUnparsed)
	}
	m.Quantity = qty

	if u := NormalizeUnit(unitRaw); u != "" {
		if !IsKnownUnit(u) {
			c.Add(WarnUnitUnrecognized, row, fmt.Sprintf("row %d: unit %q not recognized", row, u))
			m.Warnings = append(m.Warnings, WarnUnitUnrecognized)
		}
		m.Unit = strptr(u)
	}

	m.Size = NormalizeSize(sizeRaw)
	m.Size, m.Unit = ApplyWeightUnitSwap(m.Size, m.Unit)

	return m, true
}
