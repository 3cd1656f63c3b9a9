package mto

import (
	"regexp"
	"sort"
	"strings"
)

// Document types recognized by sniffing. Gas transmission QA packages mix
// English and Indonesian title blocks, so both vocabularies are matched.
const (
	DocTypeMTO         = "mto"
	DocTypeBOM         = "bom"
	DocTypeIsometric   = "isometric"
	DocTypePipeBook    = "pipe_book"
	DocTypeMRR         = "mrr"
	DocTypeMIR         = "mir"
	DocTypeBeritaAcara = "berita_acara"
	DocTypeCertificate = "certificate"
	DocTypeUnknown     = "unknown"
)

// DocInfo is metadata sniffed from a document's text: what kind of
// document it is, its document number when present, and every pipe size
// mentioned anywhere in the text.
type DocInfo struct {
	Type   string   `json:"type"`
	Number string   `json:"number,omitempty"`
	Sizes  []string `json:"sizes,omitempty"`
}

var (
	reDocNoLabel = regexp.MustCompile(`(?i)(?:doc(?:ument)?|dwg|drawing)\s*(?:no|number|#)[.:]?\s*([A-Za-z0-9][A-Za-z0-9./-]{3,})`)
	reProjectNo  = regexp.MustCompile(`\bPGAS-[A-Z0-9-]{6,}\b`)
)

// ParseDocInfo sniffs document metadata from extracted text. The number
// prefers an explicit "DOC NO" / "DWG NO" label and falls back to the
// project numbering scheme.
func ParseDocInfo(text string) DocInfo {
	info := DocInfo{Type: detectDocType(text)}
	if m := reDocNoLabel.FindStringSubmatch(text); m != nil {
		info.Number = strings.TrimRight(m[1], ".")
	} else if m := reProjectNo.FindString(text); m != "" {
		info.Number = m
	}
	info.Sizes = collectSizes(text)
	return info
}

func detectDocType(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "material take"), strings.Contains(t, "mto"):
		return DocTypeMTO
	case strings.Contains(t, "bill of material"), strings.Contains(t, "bom"):
		return DocTypeBOM
	case strings.Contains(t, "isometric"):
		return DocTypeIsometric
	case strings.Contains(t, "pipe book"), strings.Contains(t, "pipebook"):
		return DocTypePipeBook
	case strings.Contains(t, "mrr"), strings.Contains(t, "material receipt"):
		return DocTypeMRR
	case strings.Contains(t, "mir"), strings.Contains(t, "material inspection"):
		return DocTypeMIR
	case strings.Contains(t, "berita acara"), strings.Contains(t, "ba "):
		return DocTypeBeritaAcara
	case strings.Contains(t, "sertifikat"), strings.Contains(t, "certificate"):
		return DocTypeCertificate
	default:
		return DocTypeUnknown
	}
}

// collectSizes returns every inch-size mention in the text, normalized,
// deduplicated and sorted.
func collectSizes(text string) []string {
	seen := make(map[string]struct{})
	var sizes []string
	for _, m := range reSize.FindAllStringSubmatch(text, -1) {
		s := m[1] + " Inch"
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		sizes = append(sizes, s)
	}
	sort.Strings(sizes)
	return sizes
}
