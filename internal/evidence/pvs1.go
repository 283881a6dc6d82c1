package evidence

import (
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

// PVS1 grades loss-of-function variants with the VHL decision tree.
type PVS1 struct {
	pathogenic
	noFrequency
	tables *genemodel.Tables
}

func NewPVS1(tables *genemodel.Tables) *PVS1 {
	return &PVS1{tables: tables}
}

func (*PVS1) Code() domain.EvidenceCode { return domain.PVS1 }

// Classify walks the tree in a fixed order; the first matching branch decides.
func (c *PVS1) Classify(v domain.VariantDescriptor, _ *domain.FrequencyResult, ctx domain.EvidenceContext) domain.EvidenceResult {
	if r, ok := unparsed(domain.PVS1, v); ok {
		return r
	}
	t := c.tables
	codon := v.CodonInterval.Start

	if v.Type == domain.CANONICAL_SPLICE || ctx.ExonSkipping {
		return domain.Applied(domain.PVS1, domain.VERY_STRONG,
			"Canonical ±1/2 splice site or exon skipping in %s; every exon is critical to protein function.", t.Gene)
	}

	if v.Type == domain.CRYPTIC_SPLICE {
		return c.cryptic(codon, ctx.CrypticFrame)
	}

	if (v.Type == domain.NONSENSE || v.Type == domain.FRAMESHIFT) && codon < t.EarlyCodon {
		if v.CodonInterval.End <= t.EarlyCodon {
			return domain.NotApplied(domain.PVS1,
				"Truncation at codons %s, before Met%d; the p19 isoform is unaffected and NMD is not predicted.", v.CodonInterval, t.EarlyCodon)
		}
		return domain.NotApplied(domain.PVS1,
			"Truncation starts at codon %d, before Met%d; not scored even though it runs to codon %d.", codon, t.EarlyCodon, v.CodonInterval.End)
	}

	switch v.Type {
	case domain.EXON_DELETION:
		return domain.Applied(domain.PVS1, domain.VERY_STRONG,
			"Deletion of c.%s removes at least one whole exon; all %s exons are critical.", v.Interval, t.Gene)

	case domain.NONSENSE, domain.FRAMESHIFT:
		return c.truncating(codon)

	case domain.INFRAME_DEL, domain.INFRAME_INS, domain.INFRAME_INDEL:
		return domain.NotApplied(domain.PVS1, "In-frame length change; evaluated under PM4 instead of PVS1.")

	case domain.DUPLICATION_NOT_TANDEM:
		return domain.Applied(domain.PVS1, domain.STRONG,
			"Duplication not in tandem; reading frame presumed disrupted and NMD presumed (codons %s).", t.NMDRange.Interval())

	case domain.DUPLICATION_TANDEM, domain.DUPLICATION_UNKNOWN:
		return domain.NotApplied(domain.PVS1,
			"Duplication in tandem or of unknown arrangement with no established effect on reading frame or NMD; in-frame tandem duplications are evaluated under PM4.")

	case domain.START_LOSS:
		if codon == t.AltStartCodon {
			return domain.Applied(domain.PVS1, domain.VERY_STRONG,
				"Loss of Met%d removes the start of every isoform ahead of the functional domains.", t.AltStartCodon)
		}
		return domain.NotApplied(domain.PVS1, "Loss of Met1 leaves the p19 isoform initiated at Met%d intact.", t.AltStartCodon)

	case domain.MISSENSE:
		return domain.NotApplied(domain.PVS1, "Missense change; PVS1 applies only to loss-of-function variants.")
	case domain.SYNONYMOUS:
		return domain.NotApplied(domain.PVS1, "Synonymous change with no predicted effect on the protein.")
	case domain.STOP_LOSS:
		return domain.NotApplied(domain.PVS1, "Stop-loss extends the protein; evaluated under PM4 instead of PVS1.")
	}
	return domain.NotApplied(domain.PVS1, "Variant type %s matches no loss-of-function branch.", v.Type)
}

func (c *PVS1) truncating(codon int) domain.EvidenceResult {
	t := c.tables
	nmd := t.PredictNMD(codon)
	switch {
	case nmd && t.InCriticalDomain(codon):
		return domain.Applied(domain.PVS1, domain.VERY_STRONG,
			"Truncation at codon %d after Met%d, NMD predicted, inside the %s critical domain.", codon, t.EarlyCodon, t.CriticalDomainName(codon))
	case nmd && t.InCTerminalTail(codon):
		return domain.Applied(domain.PVS1, domain.MODERATE,
			"Truncation at codon %d in the C-terminal tail (%s).", codon, t.CTerminalTail.Interval())
	case nmd:
		return domain.Applied(domain.PVS1, domain.VERY_STRONG,
			"Truncation at codon %d after Met%d with NMD predicted (codons %s).", codon, t.EarlyCodon, t.NMDRange.Interval())
	}
	return domain.Applied(domain.PVS1, domain.MODERATE,
		"Truncation at codon %d after Met%d; NMD not predicted outside codons %s.", codon, t.EarlyCodon, t.NMDRange.Interval())
}

func (c *PVS1) cryptic(codon int, frame domain.FrameEffect) domain.EvidenceResult {
	t := c.tables
	critical := t.InCriticalDomain(codon)
	tail := t.InCTerminalTail(codon)
	special := t.InCrypticSpecialRange(codon)

	switch frame {
	case domain.FRAME_DISRUPTS:
		if t.PredictNMD(codon) {
			switch {
			case critical:
				return domain.Applied(domain.PVS1, domain.VERY_STRONG,
					"Cryptic splice site disrupts the reading frame with NMD predicted, codon %d inside a critical domain.", codon)
			case special:
				return domain.Applied(domain.PVS1, domain.STRONG,
					"Cryptic splice site disrupts the reading frame with NMD predicted, codon %d in %s.", codon, t.CrypticSpecial.Interval())
			case tail:
				return domain.Applied(domain.PVS1, domain.MODERATE,
					"Cryptic splice site disrupts the reading frame with NMD predicted, codon %d in the C-terminal tail.", codon)
			}
		} else {
			switch {
			case critical || special:
				return domain.Applied(domain.PVS1, domain.STRONG,
					"Cryptic splice site disrupts the reading frame without NMD, codon %d in a critical domain or %s.", codon, t.CrypticSpecial.Interval())
			case tail:
				return domain.Applied(domain.PVS1, domain.SUPPORTING,
					"Cryptic splice site disrupts the reading frame without NMD, codon %d in the C-terminal tail.", codon)
			}
		}
	case domain.FRAME_PRESERVES:
		switch {
		case critical:
			return domain.Applied(domain.PVS1, domain.STRONG,
				"Cryptic splice site preserves the reading frame, codon %d inside a critical domain.", codon)
		case tail || special:
			return domain.Applied(domain.PVS1, domain.MODERATE,
				"Cryptic splice site preserves the reading frame, codon %d in the C-terminal tail or %s.", codon, t.CrypticSpecial.Interval())
		}
	}
	return domain.Applied(domain.PVS1, domain.SUPPORTING,
		"Cryptic splice site at codon %d with insufficient reading-frame or NMD evidence.", codon)
}
