package evidence

import (
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

// PM1 applies to missense changes at mutational hotspots or inside the beta/alpha domain.
type PM1 struct {
	pathogenic
	noFrequency
	tables *genemodel.Tables
}

func NewPM1(tables *genemodel.Tables) *PM1 {
	return &PM1{tables: tables}
}

func (*PM1) Code() domain.EvidenceCode { return domain.PM1 }

func (c *PM1) Classify(v domain.VariantDescriptor, _ *domain.FrequencyResult, _ domain.EvidenceContext) domain.EvidenceResult {
	if r, ok := unparsed(domain.PM1, v); ok {
		return r
	}
	if v.Type != domain.MISSENSE {
		return domain.NotApplied(domain.PM1, "PM1 applies only to missense changes; %s is not eligible.", v.Type)
	}
	if !v.HasProtein() {
		return domain.NotApplied(domain.PM1, "No protein change supplied for %s; PM1 needs the affected residue.", v.CDNAChange)
	}

	t := c.tables
	codon := v.CodonInterval.Start
	count := t.SomaticCount(codon)
	switch {
	case t.IsGermlineHotspot(codon):
		return domain.Applied(domain.PM1, domain.MODERATE, "Codon %d is a germline mutational hotspot.", codon)
	case count >= t.SomaticCutoff:
		return domain.Applied(domain.PM1, domain.MODERATE,
			"Codon %d is a somatic hotspot with %d observations (at least %d).", codon, count, t.SomaticCutoff)
	case count > 0:
		return domain.Applied(domain.PM1, domain.SUPPORTING,
			"Codon %d has %d somatic observations, below the hotspot cutoff of %d.", codon, count, t.SomaticCutoff)
	case t.InPM1Domain(codon):
		return domain.Applied(domain.PM1, domain.MODERATE,
			"Codon %d lies in the %s domain (%s).", codon, t.PM1Domain.Name, t.PM1Domain.Interval())
	}
	return domain.NotApplied(domain.PM1, "Codon %d is neither a hotspot nor inside codons %s.", codon, t.PM1Domain.Interval())
}
