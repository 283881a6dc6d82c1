package evidence

import (
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

// PM4 applies to protein length changes: in-frame indels and duplications inside the
// critical domains, and stop-loss extensions.
type PM4 struct {
	pathogenic
	noFrequency
	tables *genemodel.Tables
}

func NewPM4(tables *genemodel.Tables) *PM4 {
	return &PM4{tables: tables}
}

func (*PM4) Code() domain.EvidenceCode { return domain.PM4 }

func (c *PM4) Classify(v domain.VariantDescriptor, _ *domain.FrequencyResult, _ domain.EvidenceContext) domain.EvidenceResult {
	if r, ok := unparsed(domain.PM4, v); ok {
		return r
	}
	t := c.tables

	if v.Type == domain.STOP_LOSS {
		switch {
		case v.ExtensionLength < 0:
			return domain.Applied(domain.PM4, domain.MODERATE,
				"Stop-loss with an extension of unknown length beyond codon %d.", t.ProteinLength)
		case v.ExtensionLength > 0:
			return domain.Applied(domain.PM4, domain.MODERATE,
				"Stop-loss extends the protein by %d residues to %d.", v.ExtensionLength, t.ProteinLength+v.ExtensionLength)
		}
		return domain.NotApplied(domain.PM4, "Stop-loss notation adds no residues beyond codon %d.", t.ProteinLength)
	}

	inFrameDup := v.Type.IsDuplication() && v.NetLength%3 == 0
	if !v.Type.IsInFrameIndel() && !inFrameDup {
		return domain.NotApplied(domain.PM4, "PM4 applies only to in-frame length changes and stop-loss; %s is not eligible.", v.Type)
	}

	codons := v.CodonInterval
	if codons.End < t.EarlyCodon {
		return domain.NotApplied(domain.PM4,
			"In-frame change at codons %s lies entirely before Met%d and leaves the p19 isoform intact.", codons, t.EarlyCodon)
	}
	critical := t.CombinedCriticalDomain()
	if t.OverlapsCriticalDomain(codons) {
		return domain.Applied(domain.PM4, domain.MODERATE,
			"In-frame change at codons %s overlaps the beta/alpha domains (%s).", codons, critical.Interval())
	}
	return domain.NotApplied(domain.PM4, "In-frame change at codons %s lies outside the beta/alpha domains (%s).", codons, critical.Interval())
}
