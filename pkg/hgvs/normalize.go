package hgvs

import (
	"strings"
	"unicode"
)

// Normalized is the split form of a free-text variant description.
// Empty fields mean the part was absent; OK is false when no c. segment was found.
type Normalized struct {
	Transcript string
	Gene       string
	CDNA       string
	Protein    string
	OK         bool
}

// Normalizer splits free-text variant strings such as
// "NM_000551.4(VHL):c.191G>C (p.Arg64Pro)" into their parts.
type Normalizer struct {
	defaultTranscript string
}

// NewNormalizer returns a normalizer that fills in defaultTranscript when the input names none.
func NewNormalizer(defaultTranscript string) *Normalizer {
	return &Normalizer{defaultTranscript: defaultTranscript}
}

// Normalize never fails; a missing c. segment is reported through OK.
func (n *Normalizer) Normalize(input string) Normalized {
	text := strings.TrimSpace(input)
	if text == "" {
		return Normalized{}
	}

	idx := findSegment(text, "c.")
	if idx < 0 {
		return Normalized{}
	}

	out := Normalized{OK: true}
	out.CDNA = cutSegment(text[idx:])
	out.Transcript, out.Gene = splitReference(text[:idx])
	if out.Transcript == "" {
		out.Transcript = n.defaultTranscript
	}

	rest := text[idx+len(out.CDNA):]
	if p := findSegment(rest, "p."); p >= 0 {
		out.Protein = cutProtein(rest[p:])
	}
	if out.CDNA == "c." {
		out.OK = false
	}
	return out
}

// findSegment returns the index of marker when it starts a token, i.e. is not
// preceded by a letter or digit.
func findSegment(text, marker string) int {
	from := 0
	for {
		i := strings.Index(text[from:], marker)
		if i < 0 {
			return -1
		}
		i += from
		if i == 0 {
			return 0
		}
		prev := rune(text[i-1])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return i
		}
		from = i + len(marker)
	}
}

// cutSegment returns the prefix of s up to the next whitespace or parenthesis.
func cutSegment(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ')' || r == '('
	})
	if end < 0 {
		return s
	}
	return s[:end]
}

// cutProtein keeps a p. segment including its own balanced parentheses,
// dropping the enclosing ones.
func cutProtein(s string) string {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end >= 0 {
		s = s[:end]
	}
	for strings.HasSuffix(s, ")") && strings.Count(s, ")") > strings.Count(s, "(") {
		s = s[:len(s)-1]
	}
	return s
}

// splitReference pulls the transcript accession and optional gene symbol out of
// the text preceding the c. segment, e.g. "NM_000551.4(VHL):".
func splitReference(prefix string) (transcript, gene string) {
	ref := strings.TrimSpace(prefix)
	ref = strings.TrimRight(ref, ": (")
	if ref == "" {
		return "", ""
	}
	if open := strings.IndexByte(ref, '('); open >= 0 {
		gene = strings.Trim(ref[open+1:], "() ")
		ref = strings.TrimSpace(ref[:open])
	}
	if fields := strings.Fields(ref); len(fields) > 0 {
		ref = fields[len(fields)-1]
	}
	if isAccession(ref) {
		return ref, gene
	}
	if gene == "" {
		gene = ref
	}
	return "", gene
}

// isAccession recognizes RefSeq and Ensembl transcript identifiers.
func isAccession(s string) bool {
	switch {
	case strings.HasPrefix(s, "NM_"), strings.HasPrefix(s, "NR_"),
		strings.HasPrefix(s, "XM_"), strings.HasPrefix(s, "ENST"):
		return len(s) > 4
	}
	return false
}

// String renders the normalized form, e.g. "NM_000551.4:c.191G>C (p.Arg64Pro)".
func (n Normalized) String() string {
	if !n.OK {
		return ""
	}
	s := n.Transcript + ":" + n.CDNA
	if n.Protein != "" {
		s += " (" + n.Protein + ")"
	}
	return s
}
