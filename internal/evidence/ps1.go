package evidence

import (
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

// PS1 applies when a missense change reproduces the amino-acid change of an
// established pathogenic missense variant.
type PS1 struct {
	pathogenic
	noFrequency
	tables *genemodel.Tables
}

func NewPS1(tables *genemodel.Tables) *PS1 {
	return &PS1{tables: tables}
}

func (*PS1) Code() domain.EvidenceCode { return domain.PS1 }

func (c *PS1) Classify(v domain.VariantDescriptor, _ *domain.FrequencyResult, _ domain.EvidenceContext) domain.EvidenceResult {
	if r, ok := unparsed(domain.PS1, v); ok {
		return r
	}
	switch v.Type {
	case domain.MISSENSE:
	case domain.NONSENSE, domain.FRAMESHIFT:
		return domain.NotApplied(domain.PS1, "PS1 is restricted to missense changes; truncating variants are evaluated under PVS1.")
	case domain.CANONICAL_SPLICE, domain.CRYPTIC_SPLICE:
		return domain.NotApplied(domain.PS1, "PS1 is restricted to missense changes; splice variants are evaluated under PVS1.")
	case domain.INFRAME_DEL, domain.INFRAME_INS, domain.INFRAME_INDEL,
		domain.DUPLICATION_TANDEM, domain.DUPLICATION_NOT_TANDEM, domain.DUPLICATION_UNKNOWN:
		return domain.NotApplied(domain.PS1, "PS1 is restricted to missense changes; in-frame length changes are evaluated under PM4.")
	default:
		return domain.NotApplied(domain.PS1, "PS1 is restricted to missense changes; %s is not eligible.", v.Type)
	}

	if !v.HasProtein() {
		return domain.NotApplied(domain.PS1, "No protein change supplied for %s; PS1 compares amino-acid changes.", v.CDNAChange)
	}

	ref, ok := c.tables.LookupReferenceProtein(v.ProteinChange)
	if !ok || !ref.Missense {
		return domain.NotApplied(domain.PS1, "%s does not match any established pathogenic missense variant.", v.ProteinChange)
	}
	if ref.CDNA == v.CDNAChange {
		return domain.Applied(domain.PS1, domain.STRONG,
			"%s is itself an established pathogenic missense variant (%s, ClinVar %s, CAID %s).", v.ProteinChange, ref.CDNA, ref.ClinVarID, ref.CAID)
	}
	return domain.Applied(domain.PS1, domain.STRONG,
		"Same amino-acid change %s as established pathogenic %s (ClinVar %s, CAID %s).", v.ProteinChange, ref.CDNA, ref.ClinVarID, ref.CAID)
}
