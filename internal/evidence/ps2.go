package evidence

import (
	"strings"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

// PS2 scores a confirmed de novo occurrence by how specific the proband phenotype is.
type PS2 struct {
	pathogenic
	noFrequency
	tables *genemodel.Tables
}

func NewPS2(tables *genemodel.Tables) *PS2 {
	return &PS2{tables: tables}
}

func (*PS2) Code() domain.EvidenceCode { return domain.PS2 }

var ps2Eligible = map[domain.VariantType]bool{
	domain.MISSENSE:         true,
	domain.NONSENSE:         true,
	domain.FRAMESHIFT:       true,
	domain.CANONICAL_SPLICE: true,
	domain.CRYPTIC_SPLICE:   true,
	domain.INFRAME_DEL:      true,
	domain.INFRAME_INS:      true,
	domain.INFRAME_INDEL:    true,
}

func (c *PS2) Classify(v domain.VariantDescriptor, _ *domain.FrequencyResult, ctx domain.EvidenceContext) domain.EvidenceResult {
	if r, ok := unparsed(domain.PS2, v); ok {
		return r
	}
	if ctx.FamilyHistory {
		return domain.NotApplied(domain.PS2, "Family history of VHL disease; the variant cannot be treated as de novo.")
	}
	if !ctx.DeNovoConfirmed {
		return domain.NotApplied(domain.PS2, "De novo status requires confirmed maternity and paternity.")
	}
	if !ps2Eligible[v.Type] {
		return domain.NotApplied(domain.PS2, "Variant type %s is not eligible for de novo scoring.", v.Type)
	}

	points, detail := c.Points(ctx)
	strength := c.strengthFor(points)
	if strength == domain.NOT_APPLICABLE {
		return domain.NotApplied(domain.PS2, "Confirmed de novo but %s (%.1f points).", detail, points)
	}
	return domain.Applied(domain.PS2, strength, "Confirmed de novo, %s (%.1f points).", detail, points)
}

// Points returns the phenotype points for a confirmed de novo proband and a short description.
func (c *PS2) Points(ctx domain.EvidenceContext) (float64, string) {
	dn := c.tables.DeNovo
	switch ctx.Phenotype {
	case domain.PHENOTYPE_HIGHLY_SPECIFIC:
		return dn.HighlySpecific, "phenotype highly specific for VHL"
	case domain.PHENOTYPE_CONSISTENT:
		sub := ctx.PanelSubgroup
		if sub == "" {
			sub = domain.PANEL_PHEO_PARA
		}
		genes := c.tables.PanelGenes(sub)
		if missing := untested(genes, ctx.PanelNegative); len(missing) > 0 {
			return dn.ConsistentIncomplete, "phenotype consistent with an incomplete " + string(sub) + " panel (not negative: " + strings.Join(missing, ", ") + ")"
		}
		return dn.ConsistentPanelNeg, "phenotype consistent with a negative " + string(sub) + " panel"
	case domain.PHENOTYPE_NONSPECIFIC:
		return dn.Nonspecific, "phenotype not specific for VHL"
	}
	return 0, "no qualifying phenotype"
}

// strengthFor maps points to a strength. A single proband scores at most the highly
// specific value, so the VeryStrong tier is only reachable with tables that award more.
func (c *PS2) strengthFor(points float64) domain.Strength {
	dn := c.tables.DeNovo
	switch {
	case points >= dn.VeryStrong:
		return domain.VERY_STRONG
	case points >= dn.Strong:
		return domain.STRONG
	case points >= dn.Moderate:
		return domain.MODERATE
	case points >= dn.Supporting:
		return domain.SUPPORTING
	}
	return domain.NOT_APPLICABLE
}

func untested(genes []string, negative map[string]bool) []string {
	var missing []string
	for _, g := range genes {
		if !negative[g] {
			missing = append(missing, g)
		}
	}
	return missing
}
