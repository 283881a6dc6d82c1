package domain

import "fmt"

// Interval is a closed range of positions. Both bounds are inclusive.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether the interval has positive, ordered bounds.
func (i Interval) Valid() bool {
	return i.Start > 0 && i.End >= i.Start
}

// Contains reports whether pos lies inside the interval.
func (i Interval) Contains(pos int) bool {
	return pos >= i.Start && pos <= i.End
}

// Overlaps reports whether the two closed intervals share at least one position.
func (i Interval) Overlaps(o Interval) bool {
	return !(i.End < o.Start || i.Start > o.End)
}

// Covers reports whether i fully contains o.
func (i Interval) Covers(o Interval) bool {
	return i.Start <= o.Start && i.End >= o.End
}

func (i Interval) String() string {
	if i.Start == i.End {
		return fmt.Sprintf("%d", i.Start)
	}
	return fmt.Sprintf("%d-%d", i.Start, i.End)
}

// VariantDescriptor is the canonical, request-scoped view of one variant.
// It is built once by the descriptor builder and passed by value afterwards.
type VariantDescriptor struct {
	Input         string      `json:"input"`
	Transcript    string      `json:"transcript"`
	CDNAChange    string      `json:"cdna_change,omitempty"`
	ProteinChange string      `json:"protein_change,omitempty"`
	Interval      Interval    `json:"interval"`
	CodonInterval Interval    `json:"codon_interval"`
	Type          VariantType `json:"variant_type"`
	// SpliceOffset is the signed intronic offset of the splice-relevant bound, 0 when exonic.
	SpliceOffset int `json:"splice_offset,omitempty"`
	// NetLength is the coding-length change of an indel, 0 for substitutions.
	NetLength int `json:"net_length,omitempty"`
	// ExtensionLength is the number of residues added by a stop-loss; -1 when unknown.
	ExtensionLength int    `json:"extension_length,omitempty"`
	ParseError      string `json:"parse_error,omitempty"`
}

// HGVS returns the normalized transcript-qualified coding notation.
func (v VariantDescriptor) HGVS() string {
	if v.CDNAChange == "" {
		return ""
	}
	return v.Transcript + ":" + v.CDNAChange
}

// Classifiable reports whether evidence classifiers may evaluate the descriptor.
func (v VariantDescriptor) Classifiable() bool {
	return v.ParseError == "" && v.Type != OTHER && v.Type != ""
}

// HasProtein reports whether a protein-level change was supplied.
func (v VariantDescriptor) HasProtein() bool {
	return v.ProteinChange != ""
}

// LogFields returns structured logging fields for the descriptor.
func (v VariantDescriptor) LogFields() map[string]any {
	return map[string]any{
		"transcript":   v.Transcript,
		"cdna_change":  v.CDNAChange,
		"protein":      v.ProteinChange,
		"variant_type": string(v.Type),
		"codons":       v.CodonInterval.String(),
	}
}
