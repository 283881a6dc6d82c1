package service

import (
	"strings"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
	"github.com/vhl-acmg-classifier/pkg/hgvs"
)

// DescriptorBuilder turns free-text HGVS into the canonical VariantDescriptor that
// every evidence classifier consumes.
type DescriptorBuilder struct {
	tables     *genemodel.Tables
	normalizer *hgvs.Normalizer
}

// NewDescriptorBuilder creates a builder bound to one gene table set.
func NewDescriptorBuilder(tables *genemodel.Tables) *DescriptorBuilder {
	return &DescriptorBuilder{
		tables:     tables,
		normalizer: hgvs.NewNormalizer(tables.Transcript),
	}
}

// Build never fails. Parse problems are recorded in ParseError and leave the type as other.
// Only the duplication tandem flag of ctx influences typing.
func (b *DescriptorBuilder) Build(input string, ctx domain.EvidenceContext) domain.VariantDescriptor {
	v := domain.VariantDescriptor{
		Input:      input,
		Transcript: b.tables.Transcript,
		Type:       domain.OTHER,
	}

	n := b.normalizer.Normalize(input)
	if !n.OK {
		v.ParseError = "no c. coding change found in input"
		return v
	}
	v.Transcript = n.Transcript

	change, err := hgvs.ParseCoding(n.CDNA)
	if err != nil {
		v.CDNAChange = n.CDNA
		v.ParseError = err.Error()
		return v
	}
	v.CDNAChange = change.String()

	// An unreadable protein suffix (p.?, p.0) is dropped rather than failing the variant;
	// the coding change alone still determines the type.
	var protein *hgvs.ProteinChange
	if n.Protein != "" {
		if p, err := hgvs.ParseProtein(n.Protein); err == nil {
			protein = p
			v.ProteinChange = p.String()
		} else if isSilent(n.Protein) {
			protein = &hgvs.ProteinChange{Kind: hgvs.ProteinSynonymous}
			v.ProteinChange = "p.="
		}
	}

	if !change.InCDS() {
		return v
	}

	v.Interval = domain.Interval{Start: change.Start.Base, End: change.End.Base}
	v.CodonInterval = genemodel.CodonInterval(v.Interval)
	if protein != nil && protein.Pos > 0 {
		start, end := protein.Span()
		v.CodonInterval = domain.Interval{Start: start, End: end}
	}
	v.NetLength = change.NetLengthChange()

	v.Type = b.variantType(change, protein, ctx.DupTandem)
	switch v.Type {
	case domain.CANONICAL_SPLICE, domain.CRYPTIC_SPLICE:
		v.SpliceOffset = spliceOffset(change)
		// Intronic positions carry no residue; the anchoring exonic base decides the codon.
		v.CodonInterval = genemodel.CodonInterval(v.Interval)
	case domain.STOP_LOSS:
		v.ExtensionLength = -1
		if protein != nil {
			v.ExtensionLength = protein.ExtLength
		}
	}
	return v
}

func (b *DescriptorBuilder) variantType(c *hgvs.CodingChange, p *hgvs.ProteinChange, tandem domain.TandemStatus) domain.VariantType {
	if c.Op == hgvs.OpDeletion && b.tables.CoversWholeExon(exonicSpan(c)) {
		return domain.EXON_DELETION
	}

	if c.IsIntronic() {
		if isCanonicalOffset(c.Start) || isCanonicalOffset(c.End) {
			return domain.CANONICAL_SPLICE
		}
		return domain.CRYPTIC_SPLICE
	}

	inFrame := c.NetLengthChange()%3 == 0
	switch c.Op {
	case hgvs.OpDeletion:
		return frameOr(inFrame, domain.INFRAME_DEL)
	case hgvs.OpInsertion:
		return frameOr(inFrame, domain.INFRAME_INS)
	case hgvs.OpDelIns:
		return frameOr(inFrame, domain.INFRAME_INDEL)
	case hgvs.OpDuplication:
		switch tandem {
		case domain.TANDEM:
			return frameOr(inFrame, domain.DUPLICATION_TANDEM)
		case domain.NOT_TANDEM:
			return domain.DUPLICATION_NOT_TANDEM
		}
		return domain.DUPLICATION_UNKNOWN
	case hgvs.OpSubstitution:
		return b.substitutionType(p, genemodel.CodonOf(c.Start.Base))
	}
	return domain.OTHER
}

// substitutionType falls back to the codon position when no protein notation is given:
// a change in the stop codon is a stop-loss and any change to a Met start codon loses it.
func (b *DescriptorBuilder) substitutionType(p *hgvs.ProteinChange, codon int) domain.VariantType {
	if p == nil {
		switch {
		case codon > b.tables.ProteinLength:
			return domain.STOP_LOSS
		case codon == 1 || codon == b.tables.AltStartCodon:
			return domain.START_LOSS
		}
		return domain.MISSENSE
	}
	if b.isStartCodon(p) && (p.Kind == hgvs.ProteinStartLoss || p.Kind == hgvs.ProteinMissense) {
		return domain.START_LOSS
	}
	switch p.Kind {
	case hgvs.ProteinExtension:
		return domain.STOP_LOSS
	case hgvs.ProteinNonsense:
		return domain.NONSENSE
	case hgvs.ProteinMissense:
		return domain.MISSENSE
	case hgvs.ProteinSynonymous:
		return domain.SYNONYMOUS
	}
	return domain.OTHER
}

func (b *DescriptorBuilder) isStartCodon(p *hgvs.ProteinChange) bool {
	return p.Ref == "Met" && (p.Pos == 1 || p.Pos == b.tables.AltStartCodon)
}

// isSilent recognises the position-less "p.=" and "p.(=)" forms.
func isSilent(protein string) bool {
	return strings.Trim(strings.TrimPrefix(protein, "p."), "()") == "="
}

func frameOr(inFrame bool, t domain.VariantType) domain.VariantType {
	if inFrame {
		return t
	}
	return domain.FRAMESHIFT
}

// exonicSpan is the range of exonic bases a change removes. An intronic bound past an
// anchor excludes that anchor, so c.340+20_341-3 spans no exonic base at all.
func exonicSpan(c *hgvs.CodingChange) domain.Interval {
	i := domain.Interval{Start: c.Start.Base, End: c.End.Base}
	if c.Start.Offset > 0 {
		i.Start++
	}
	if c.End.Offset < 0 {
		i.End--
	}
	return i
}

func isCanonicalOffset(p hgvs.Position) bool {
	return p.Offset != 0 && p.Offset >= -2 && p.Offset <= 2
}

// spliceOffset prefers the bound closest to the exon.
func spliceOffset(c *hgvs.CodingChange) int {
	switch {
	case !c.Start.IsIntronic():
		return c.End.Offset
	case !c.End.IsIntronic():
		return c.Start.Offset
	case abs(c.End.Offset) < abs(c.Start.Offset):
		return c.End.Offset
	}
	return c.Start.Offset
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
